package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter orchestrates a full glTF import: it combines the parser and all extractors
// to produce a complete ImportedModel.
type gltfImporter interface {
	// Import parses a bundle and extracts its node hierarchy, meshes, materials and animations.
	//
	// Parameters:
	//   - name: the model name used when the bundle does not name its scene
	//   - data: the GLB or glTF JSON bytes
	//
	// Returns:
	//   - *model.ImportedModel: the fully populated imported model
	//   - error: error if import fails
	Import(name string, data []byte) (*model.ImportedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(name string, data []byte) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.Parse(data); err != nil {
		return nil, err
	}
	doc := parser.Document()

	materials, err := newGLTFMaterialExtractor(parser).ExtractAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}

	// glTF meshes may be instanced by several nodes; extract each once.
	meshExtractor := newGLTFMeshExtractor(parser)
	meshes := make([]model.MeshData, 0, len(doc.Meshes))
	meshMaterial := make([]int, 0, len(doc.Meshes))
	for i := range doc.Meshes {
		mesh, mat, err := meshExtractor.ExtractMesh(i)
		if err != nil {
			return nil, fmt.Errorf("mesh extraction failed: %w", err)
		}
		if mat >= len(materials) {
			return nil, fmt.Errorf("mesh %d references material %d of %d", i, mat, len(materials))
		}
		meshes = append(meshes, mesh)
		meshMaterial = append(meshMaterial, mat)
	}

	nodes, roots, err := gltfExtractNodes(doc, meshMaterial)
	if err != nil {
		return nil, fmt.Errorf("node extraction failed: %w", err)
	}

	animations, err := newGLTFAnimationExtractor(parser).ExtractAllAnimations()
	if err != nil {
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}

	m := &model.ImportedModel{
		Name:       gltfExtractModelName(doc, name),
		Nodes:      nodes,
		Roots:      roots,
		Meshes:     meshes,
		Materials:  materials,
		Animations: animations,
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGLB, err)
	}
	return m, nil
}

// gltfExtractNodes flattens the node array, resolving parents and rest transforms.
// Roots come from the default scene when there is one, otherwise every parentless node.
func gltfExtractNodes(doc *gltfDocument, meshMaterial []int) ([]model.ImportedNode, []int, error) {
	nodes := make([]model.ImportedNode, len(doc.Nodes))
	for i := range nodes {
		nodes[i].Parent = -1
	}

	for i := range doc.Nodes {
		src := &doc.Nodes[i]
		n := &nodes[i]
		n.Name = src.Name
		if n.Name == "" {
			n.Name = fmt.Sprintf("node_%d", i)
		}
		n.Transform = gltfNodeTransform(src)
		n.MeshIndex, n.MaterialIndex = -1, -1
		if src.Mesh != nil {
			if *src.Mesh < 0 || *src.Mesh >= len(meshMaterial) {
				return nil, nil, fmt.Errorf("node %d: mesh %d out of range", i, *src.Mesh)
			}
			n.MeshIndex = *src.Mesh
			n.MaterialIndex = meshMaterial[*src.Mesh]
		}
		for _, c := range src.Children {
			if c < 0 || c >= len(doc.Nodes) || c == i {
				return nil, nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			if nodes[c].Parent != -1 {
				return nil, nil, fmt.Errorf("node %d has more than one parent", c)
			}
			nodes[c].Parent = i
			n.Children = append(n.Children, c)
		}
	}

	var roots []int
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		roots = append(roots, doc.Scenes[*doc.Scene].Nodes...)
	} else if len(doc.Scenes) > 0 {
		roots = append(roots, doc.Scenes[0].Nodes...)
	} else {
		for i := range nodes {
			if nodes[i].Parent == -1 {
				roots = append(roots, i)
			}
		}
	}
	for _, r := range roots {
		if r < 0 || r >= len(nodes) || nodes[r].Parent != -1 {
			return nil, nil, fmt.Errorf("scene root %d is not a root node", r)
		}
	}
	if err := gltfCheckAcyclic(nodes); err != nil {
		return nil, nil, err
	}
	return nodes, roots, nil
}

// gltfCheckAcyclic rejects parent chains that loop back on themselves.
func gltfCheckAcyclic(nodes []model.ImportedNode) error {
	for i := range nodes {
		steps := 0
		for p := nodes[i].Parent; p != -1; p = nodes[p].Parent {
			steps++
			if steps > len(nodes) {
				return fmt.Errorf("node %d is part of a cycle", i)
			}
		}
	}
	return nil
}

// gltfNodeTransform returns the node's local rest transform from its TRS properties or matrix.
func gltfNodeTransform(n *gltfNode) model.Transform {
	t := model.IdentityTransform()
	if n.Matrix != nil {
		return decomposeMatrix(mgl32.Mat4(*n.Matrix))
	}
	if n.Translation != nil {
		t.Translation = mgl32.Vec3(*n.Translation)
	}
	if n.Rotation != nil {
		r := *n.Rotation
		t.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
	}
	if n.Scale != nil {
		t.Scale = mgl32.Vec3(*n.Scale)
	}
	return t
}

// decomposeMatrix splits an affine column-major matrix without shear into translation,
// rotation and scale.
func decomposeMatrix(m mgl32.Mat4) model.Transform {
	t := model.IdentityTransform()
	t.Translation = m.Col(3).Vec3()

	cols := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	for i, c := range cols {
		t.Scale[i] = c.Len()
	}
	// a negative determinant means one axis is mirrored
	if mgl32.Mat3FromCols(cols[0], cols[1], cols[2]).Det() < 0 {
		t.Scale[0] = -t.Scale[0]
	}
	var rot mgl32.Mat3
	for i, c := range cols {
		if t.Scale[i] != 0 {
			c = c.Mul(1 / t.Scale[i])
		}
		rot.SetCol(i, c)
	}
	t.Rotation = mgl32.Mat4ToQuat(rot.Mat4()).Normalize()
	return t
}

// gltfExtractModelName prefers the default scene's name over the caller's fallback.
func gltfExtractModelName(doc *gltfDocument, fallback string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	if fallback != "" {
		return fallback
	}
	return "unnamed_model"
}
