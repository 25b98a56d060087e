// Package loadertest builds small GLB actor bundles in memory for tests.
package loadertest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Clip is one animation in a generated bundle. The clip moves the "arm" node up by one
// unit over Duration seconds.
type Clip struct {
	Name     string
	Duration float32
}

// Options configures Build.
type Options struct {
	// Clips are the animations to include.
	Clips []Clip

	// Texture embeds a 2x2 PNG as the material's base color texture.
	Texture bool

	// BaseColor is the material factor. The zero value means opaque white.
	BaseColor [4]float32
}

// DefaultClips are the clips every stock actor bundle carries.
func DefaultClips() []Clip {
	return []Clip{
		{Name: "punch", Duration: 0.5},
		{Name: "powerPunch", Duration: 0.75},
		{Name: "dodge", Duration: 0.5},
		{Name: "idle", Duration: 1},
	}
}

// ActorGLB returns a bundle with the default clips and a textured material.
func ActorGLB() []byte {
	return Build(Options{Clips: DefaultClips(), Texture: true})
}

// Build encodes a two-node model ("body" with a child "arm", both drawing one triangle)
// as a GLB container.
func Build(opts Options) []byte {
	var bin binBuilder

	positions := bin.floats([]float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	})
	indices := bin.uint16s([]uint16{0, 1, 2})

	doc := map[string]any{
		"asset": map[string]any{"version": "2.0", "generator": "loadertest"},
		"scene": 0,
	}

	accessors := []map[string]any{
		{"bufferView": positions, "componentType": 5126, "count": 3, "type": "VEC3",
			"min": []float32{0, 0, 0}, "max": []float32{1, 1, 0}},
		{"bufferView": indices, "componentType": 5123, "count": 3, "type": "SCALAR"},
	}

	var animations []map[string]any
	for _, clip := range opts.Clips {
		times := bin.floats([]float32{0, clip.Duration})
		values := bin.floats([]float32{0, 0, 0, 0, 1, 0})
		in := len(accessors)
		accessors = append(accessors,
			map[string]any{"bufferView": times, "componentType": 5126, "count": 2, "type": "SCALAR",
				"min": []float32{0}, "max": []float32{clip.Duration}},
			map[string]any{"bufferView": values, "componentType": 5126, "count": 2, "type": "VEC3"},
		)
		animations = append(animations, map[string]any{
			"name":     clip.Name,
			"samplers": []map[string]any{{"input": in, "output": in + 1, "interpolation": "LINEAR"}},
			"channels": []map[string]any{{"sampler": 0, "target": map[string]any{"node": 1, "path": "translation"}}},
		})
	}

	baseColor := opts.BaseColor
	if baseColor == ([4]float32{}) {
		baseColor = [4]float32{1, 1, 1, 1}
	}
	pbr := map[string]any{"baseColorFactor": baseColor}
	if opts.Texture {
		img := bin.bytes(pngBytes())
		doc["images"] = []map[string]any{{"bufferView": img, "mimeType": "image/png"}}
		doc["textures"] = []map[string]any{{"source": 0}}
		pbr["baseColorTexture"] = map[string]any{"index": 0}
	}

	doc["scenes"] = []map[string]any{{"name": "actor", "nodes": []int{0}}}
	doc["nodes"] = []map[string]any{
		{"name": "body", "mesh": 0, "children": []int{1}},
		{"name": "arm", "mesh": 0, "translation": []float32{0, 0.5, 0}},
	}
	doc["meshes"] = []map[string]any{{
		"name": "triangle",
		"primitives": []map[string]any{{
			"attributes": map[string]int{"POSITION": 0},
			"indices":    1,
			"material":   0,
		}},
	}}
	doc["materials"] = []map[string]any{{"name": "skin", "pbrMetallicRoughness": pbr}}
	doc["accessors"] = accessors
	doc["bufferViews"] = bin.views
	doc["buffers"] = []map[string]any{{"byteLength": bin.buf.Len()}}
	if len(animations) > 0 {
		doc["animations"] = animations
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return Container(jsonData, bin.buf.Bytes())
}

// Container wraps a JSON chunk and an optional binary chunk in a GLB header.
func Container(jsonData, binData []byte) []byte {
	jsonData = pad(jsonData, ' ')
	binData = pad(binData, 0)

	total := 12 + 8 + len(jsonData)
	if len(binData) > 0 {
		total += 8 + len(binData)
	}

	var out bytes.Buffer
	write := func(v uint32) { _ = binary.Write(&out, binary.LittleEndian, v) }
	write(0x46546C67)
	write(2)
	write(uint32(total))
	write(uint32(len(jsonData)))
	write(0x4E4F534A)
	out.Write(jsonData)
	if len(binData) > 0 {
		write(uint32(len(binData)))
		write(0x004E4942)
		out.Write(binData)
	}
	return out.Bytes()
}

// PNG returns a 2x2 opaque PNG of the given color.
func PNG(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func pngBytes() []byte {
	return PNG(color.RGBA{R: 200, G: 120, B: 80, A: 255})
}

func pad(b []byte, fill byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, fill)
	}
	return b
}

// binBuilder accumulates the binary chunk and one buffer view per appended block.
type binBuilder struct {
	buf   bytes.Buffer
	views []map[string]any
}

func (b *binBuilder) bytes(data []byte) int {
	for b.buf.Len()%4 != 0 {
		b.buf.WriteByte(0)
	}
	offset := b.buf.Len()
	b.buf.Write(data)
	b.views = append(b.views, map[string]any{"buffer": 0, "byteOffset": offset, "byteLength": len(data)})
	return len(b.views) - 1
}

func (b *binBuilder) floats(vals []float32) int {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return b.bytes(data)
}

func (b *binBuilder) uint16s(vals []uint16) int {
	data := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return b.bytes(data)
}
