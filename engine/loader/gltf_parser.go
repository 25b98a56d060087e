package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

var (
	// ErrInvalidGLB is returned for bundles that are not a well-formed glTF 2.0 GLB or JSON document.
	ErrInvalidGLB = errors.New("invalid glTF bundle")

	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser parses an in-memory glTF bundle and reads typed accessor data out of it.
// Every read is bounds checked so a truncated or hostile bundle yields an error, never a panic.
type gltfParser interface {
	// Parse parses a GLB container or a glTF JSON document with embedded data URIs.
	// The format is detected from the GLB magic.
	//
	// Parameters:
	//   - data: the bundle bytes
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidGLB if parsing fails
	Parse(data []byte) error

	// Document returns the parsed glTF document, or nil before a successful Parse.
	//
	// Returns:
	//   - *gltfDocument: the parsed document or nil
	Document() *gltfDocument

	// BufferViewBytes returns the bytes covered by a buffer view.
	//
	// Parameters:
	//   - index: the buffer view index
	//
	// Returns:
	//   - []byte: the view's bytes, aliasing the buffer
	//   - error: error if the view is out of range
	BufferViewBytes(index int) ([]byte, error)

	// ReadFloats reads an accessor of the given type as a flat float slice. Normalized
	// integer components are converted to [0, 1] or [-1, 1].
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//   - accessorType: the expected accessor type, e.g. "VEC3"
	//
	// Returns:
	//   - []float32: count * components values
	//   - error: error if the accessor has a different type or is out of bounds
	ReadFloats(accessorIndex int, accessorType string) ([]float32, error)

	// ReadIndices reads a SCALAR accessor of unsigned integers as uint32.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the indices
	//   - error: error if reading fails
	ReadIndices(accessorIndex int) ([]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(data []byte) error {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

// parseJSON parses a glTF JSON document.
func (p *gltfParserImpl) parseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: failed to parse glTF JSON: %v", ErrInvalidGLB, err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("%w: unsupported glTF version %q", ErrInvalidGLB, doc.Asset.Version)
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("%w: failed to load buffers: %v", ErrInvalidGLB, err)
	}
	p.document = &doc
	return nil
}

// parseGLB parses a GLB binary container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("%w: file too small", ErrInvalidGLB)
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: failed to read header: %v", ErrInvalidGLB, err)
	}
	if header.Version != gltfGLBVersion {
		return fmt.Errorf("%w: GLB version %d", ErrInvalidGLB, header.Version)
	}
	if int(header.Length) > len(data) {
		return fmt.Errorf("%w: header length %d exceeds %d bytes", ErrInvalidGLB, header.Length, len(data))
	}

	var jsonData []byte
	for {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("%w: failed to read chunk header: %v", ErrInvalidGLB, err)
		}
		if int64(chunkHeader.ChunkLength) > int64(r.Len()) {
			return fmt.Errorf("%w: chunk of %d bytes overruns file", ErrInvalidGLB, chunkHeader.ChunkLength)
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return fmt.Errorf("%w: failed to read chunk data: %v", ErrInvalidGLB, err)
		}

		switch chunkHeader.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = chunkData
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = chunkData
		}
	}

	if jsonData == nil {
		return fmt.Errorf("%w: missing JSON chunk", ErrInvalidGLB)
	}
	return p.parseJSON(jsonData)
}

// loadBuffers resolves buffer data from the GLB binary chunk or embedded data URIs.
// Bundles are self-contained, so external file URIs are rejected.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			return fmt.Errorf("buffer %d: external URI %q is not supported in a bundle", i, buf.URI)
		}

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// decodeDataURI decodes a base64 data URI.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, errInvalidBufferURI
	}
	header := uri[5:commaIdx]
	if !strings.Contains(header, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

func (p *gltfParserImpl) BufferViewBytes(index int) ([]byte, error) {
	if p.document == nil {
		return nil, errors.New("no document loaded")
	}
	if index < 0 || index >= len(p.document.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", index)
	}
	bv := &p.document.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(p.document.Buffers) {
		return nil, fmt.Errorf("buffer view %d: buffer %d out of range", index, bv.Buffer)
	}
	data := p.document.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d: range [%d, %d) exceeds buffer of %d bytes", index, bv.ByteOffset, end, len(data))
	}
	return data[bv.ByteOffset:end], nil
}

// accessorElements returns the accessor plus a function yielding the raw bytes of element i.
func (p *gltfParserImpl) accessorElements(accessorIndex int) (*gltfAccessor, func(i int) []byte, error) {
	if p.document == nil {
		return nil, nil, errors.New("no document loaded")
	}
	if accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return nil, nil, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}
	acc := &p.document.Accessors[accessorIndex]
	if acc.BufferView == nil {
		return nil, nil, fmt.Errorf("accessor %d has no bufferView", accessorIndex)
	}
	view, err := p.BufferViewBytes(*acc.BufferView)
	if err != nil {
		return nil, nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
	}

	componentSize := gltfComponentTypeSize(acc.ComponentType)
	componentCount := gltfAccessorTypeComponentCount(acc.Type)
	if componentSize == 0 || componentCount == 0 || acc.Count < 0 {
		return nil, nil, fmt.Errorf("accessor %d: unsupported layout %s/%d", accessorIndex, acc.Type, acc.ComponentType)
	}
	elementSize := componentSize * componentCount
	stride := elementSize
	bv := &p.document.BufferViews[*acc.BufferView]
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	if acc.Count > 0 {
		last := acc.ByteOffset + (acc.Count-1)*stride + elementSize
		if acc.ByteOffset < 0 || last > len(view) {
			return nil, nil, fmt.Errorf("accessor %d: %d elements overrun buffer view of %d bytes", accessorIndex, acc.Count, len(view))
		}
	}

	return acc, func(i int) []byte {
		off := acc.ByteOffset + i*stride
		return view[off : off+elementSize]
	}, nil
}

func (p *gltfParserImpl) ReadFloats(accessorIndex int, accessorType string) ([]float32, error) {
	acc, element, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType {
		return nil, fmt.Errorf("accessor %d is %s, want %s", accessorIndex, acc.Type, accessorType)
	}
	if acc.ComponentType != gltfComponentTypeFloat && !acc.Normalized {
		return nil, fmt.Errorf("accessor %d: component type %d is neither float nor normalized", accessorIndex, acc.ComponentType)
	}

	n := gltfAccessorTypeComponentCount(acc.Type)
	size := gltfComponentTypeSize(acc.ComponentType)
	out := make([]float32, 0, acc.Count*n)
	for i := 0; i < acc.Count; i++ {
		raw := element(i)
		for c := 0; c < n; c++ {
			out = append(out, decodeComponent(raw[c*size:(c+1)*size], acc.ComponentType))
		}
	}
	return out, nil
}

// decodeComponent converts one little-endian component to float32, applying glTF normalization rules.
func decodeComponent(b []byte, componentType int) float32 {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentTypeByte:
		return max(float32(int8(b[0]))/127, -1)
	case gltfComponentTypeUnsignedByte:
		return float32(b[0]) / 255
	case gltfComponentTypeShort:
		return max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1)
	case gltfComponentTypeUnsignedShort:
		return float32(binary.LittleEndian.Uint16(b)) / 65535
	default:
		return 0
	}
}

func (p *gltfParserImpl) ReadIndices(accessorIndex int) ([]uint32, error) {
	acc, element, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor %d is not SCALAR: type=%s", accessorIndex, acc.Type)
	}

	result := make([]uint32, acc.Count)
	for i := range result {
		raw := element(i)
		switch acc.ComponentType {
		case gltfComponentTypeUnsignedByte:
			result[i] = uint32(raw[0])
		case gltfComponentTypeUnsignedShort:
			result[i] = uint32(binary.LittleEndian.Uint16(raw))
		case gltfComponentTypeUnsignedInt:
			result[i] = binary.LittleEndian.Uint32(raw)
		default:
			return nil, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
		}
	}
	return result, nil
}

// --- Helper Functions ---

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
