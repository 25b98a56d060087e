package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor converts glTF meshes into model.MeshData. All primitives of a glTF mesh
// are merged into one MeshData; the material of the first primitive applies to the whole mesh.
type gltfMeshExtractor interface {
	// ExtractMesh extracts a single mesh by index.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - model.MeshData: the merged geometry
	//   - int: the material index of the first primitive, or -1
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) (model.MeshData, int, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) (model.MeshData, int, error) {
	doc := e.parser.Document()
	if doc == nil {
		return model.MeshData{}, -1, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return model.MeshData{}, -1, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	out := model.MeshData{Name: mesh.Name}
	if out.Name == "" {
		out.Name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	materialIndex := -1

	for primIdx := range mesh.Primitives {
		prim := &mesh.Primitives[primIdx]
		if err := e.appendPrimitive(&out, prim); err != nil {
			return model.MeshData{}, -1, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		if primIdx == 0 && prim.Material != nil {
			materialIndex = *prim.Material
		}
	}
	out.ComputeBounds()
	return out, materialIndex, nil
}

// appendPrimitive reads one triangle primitive and appends it to out with rebased indices.
func (e *gltfMeshExtractorImpl) appendPrimitive(out *model.MeshData, prim *gltfPrimitive) error {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := e.parser.ReadFloats(posAccessor, gltfAccessorTypeVec3)
	if err != nil {
		return fmt.Errorf("failed to read positions: %w", err)
	}
	count := len(positions) / 3

	var normals []float32
	if normAccessor, ok := prim.Attributes["NORMAL"]; ok {
		normals, err = e.parser.ReadFloats(normAccessor, gltfAccessorTypeVec3)
		if err != nil {
			return fmt.Errorf("failed to read normals: %w", err)
		}
		if len(normals) != len(positions) {
			return fmt.Errorf("normal count %d does not match position count %d", len(normals)/3, count)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndices(*prim.Indices)
		if err != nil {
			return fmt.Errorf("failed to read indices: %w", err)
		}
		for _, idx := range indices {
			if int(idx) >= count {
				return fmt.Errorf("index %d out of range for %d vertices", idx, count)
			}
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	vertices := make([]model.Vertex, count)
	for i := range vertices {
		copy(vertices[i].Position[:], positions[i*3:i*3+3])
		if normals != nil {
			copy(vertices[i].Normal[:], normals[i*3:i*3+3])
		}
	}
	if normals == nil {
		generateNormals(vertices, indices)
	}

	base := uint32(len(out.Vertices))
	out.Vertices = append(out.Vertices, vertices...)
	for _, idx := range indices {
		out.Indices = append(out.Indices, base+idx)
	}
	return nil
}

// generateNormals computes smooth per-vertex normals by accumulating area-weighted face normals
// of every triangle a vertex belongs to.
//
// Parameters:
//   - vertices: the vertex slice to write normal data into
//   - indices: the triangle index buffer (must be a multiple of 3)
func generateNormals(vertices []model.Vertex, indices []uint32) {
	n := len(vertices)
	accum := make([]mgl32.Vec3, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}
		p0 := mgl32.Vec3(vertices[i0].Position)
		p1 := mgl32.Vec3(vertices[i1].Position)
		p2 := mgl32.Vec3(vertices[i2].Position)

		// length proportional to triangle area
		face := p1.Sub(p0).Cross(p2.Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}

	for i := range n {
		if accum[i].Len() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = accum[i].Normalize()
	}
}
