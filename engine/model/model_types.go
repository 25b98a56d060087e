package model

import (
	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/go-gl/mathgl/mgl32"
)

// --- Transform Types ---

// Transform represents a decomposed transform for animation interpolation.
type Transform struct {
	// Translation is the position offset.
	Translation mgl32.Vec3

	// Rotation is the orientation quaternion.
	Rotation mgl32.Quat

	// Scale is the scale factor along each axis.
	Scale mgl32.Vec3
}

// IdentityTransform returns a Transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes the transform as T * R * S.
//
// Returns:
//   - mgl32.Mat4: the local transform matrix
func (t Transform) Matrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	scale := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return translate.Mul4(t.Rotation.Normalize().Mat4()).Mul4(scale)
}

// --- Animation Types ---

// Interpolation selects how keyframes are blended between samples.
type Interpolation int

const (
	// InterpolationLinear blends linearly (slerp for rotations).
	InterpolationLinear Interpolation = iota

	// InterpolationStep holds each keyframe value until the next one.
	InterpolationStep
)

// AnimationClip represents a single animation (punch, dodge, idle, etc.).
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in seconds.
	Duration float32

	// Loop marks clips that are authored to repeat forever.
	// Looping clips never complete and cannot terminate a sequence.
	Loop bool

	// Channels contains animation data for each animated node.
	Channels []AnimationChannel
}

// AnimationChannel contains keyframe data for a single node.
type AnimationChannel struct {
	// NodeIndex is the index of the node this channel animates, in ImportedModel.Nodes order.
	NodeIndex int32

	// Interpolation is the blend mode shared by the channel's keyframes.
	Interpolation Interpolation

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation (quaternion).
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the quaternion value at this keyframe.
	Value mgl32.Quat
}

// --- Mesh Types ---

// Vertex is the interleaved vertex layout uploaded to the GPU: position then normal.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
}

// VertexStride is the byte size of one Vertex.
const VertexStride = 24

// MeshData is CPU-side triangle geometry ready for upload.
type MeshData struct {
	// Name is the mesh identifier.
	Name string

	// Vertices are the interleaved mesh vertices.
	Vertices []Vertex

	// Indices are the triangle indices.
	Indices []uint32

	// BoundingMin is the minimum corner of the axis-aligned bounding box.
	BoundingMin mgl32.Vec3

	// BoundingMax is the maximum corner of the axis-aligned bounding box.
	BoundingMax mgl32.Vec3
}

// --- Import Types ---

// ImportedModel represents a 3D model loaded from an asset bundle.
// This is the universal format that importers produce before any GPU upload.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Nodes is the flattened node hierarchy.
	Nodes []ImportedNode

	// Roots are indices of nodes with no parent.
	Roots []int

	// Meshes contains all mesh data referenced by nodes.
	Meshes []MeshData

	// Materials are referenced by ImportedNode.MaterialIndex.
	Materials []common.ImportedMaterial

	// Animations are all animation clips bundled with the model.
	Animations []*AnimationClip
}

// ImportedNode is one node of an imported hierarchy.
type ImportedNode struct {
	// Name is the node identifier.
	Name string

	// Parent is the parent node index, or -1 for roots.
	Parent int

	// Children are child node indices.
	Children []int

	// Transform is the node's local rest transform.
	Transform Transform

	// MeshIndex references ImportedModel.Meshes, or -1 when the node carries no geometry.
	MeshIndex int

	// MaterialIndex references ImportedModel.Materials, or -1 for the default material.
	MaterialIndex int
}
