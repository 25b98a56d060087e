package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSampleLinear(t *testing.T) {
	ch := AnimationChannel{
		PositionKeys: []VectorKeyframe{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
			{Time: 1, Value: mgl32.Vec3{2, 4, 0}},
		},
	}
	base := IdentityTransform()

	got := ch.Sample(0.5, base)
	assert.InDeltaSlice(t, []float32{1, 2, 0}, got.Translation[:], 1e-6)
	assert.Equal(t, base.Scale, got.Scale)

	// clamps outside the keyed range
	assert.Equal(t, mgl32.Vec3{2, 4, 0}, ch.Sample(5, base).Translation)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, ch.Sample(-1, base).Translation)
}

func TestChannelSampleStep(t *testing.T) {
	ch := AnimationChannel{
		Interpolation: InterpolationStep,
		ScaleKeys: []VectorKeyframe{
			{Time: 0, Value: mgl32.Vec3{1, 1, 1}},
			{Time: 1, Value: mgl32.Vec3{3, 3, 3}},
		},
	}
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, ch.Sample(0.99, IdentityTransform()).Scale)
	assert.Equal(t, mgl32.Vec3{3, 3, 3}, ch.Sample(1, IdentityTransform()).Scale)
}

func TestChannelSampleRotationSlerp(t *testing.T) {
	end := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	ch := AnimationChannel{
		RotationKeys: []QuaternionKeyframe{
			{Time: 0, Value: mgl32.QuatIdent()},
			{Time: 2, Value: end},
		},
	}
	got := ch.Sample(1, IdentityTransform()).Rotation
	want := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	assert.True(t, got.ApproxEqualThreshold(want, 1e-4), "got %v want %v", got, want)
}

func TestTransformMatrixOrder(t *testing.T) {
	tr := Transform{
		Translation: mgl32.Vec3{1, 0, 0},
		Rotation:    mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{2, 2, 2},
	}
	p := tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDeltaSlice(t, []float32{3, 0, 0, 1}, p[:], 1e-6)
}

func TestPrimitivesAreIndexedWithinRange(t *testing.T) {
	meshes := []MeshData{
		NewBox(3, 10, 3),
		NewCylinder(1, 1, 2, 32),
		NewCircle(5, 32),
		NewSphere(50, 16, 12),
	}
	for _, m := range meshes {
		t.Run(m.Name, func(t *testing.T) {
			require.NotEmpty(t, m.Vertices)
			require.Zero(t, len(m.Indices)%3)
			for _, idx := range m.Indices {
				require.Less(t, int(idx), len(m.Vertices))
			}
		})
	}

	box := NewBox(3, 10, 3)
	assert.Equal(t, mgl32.Vec3{-1.5, -5, -1.5}, box.BoundingMin)
	assert.Equal(t, mgl32.Vec3{1.5, 5, 1.5}, box.BoundingMax)
	assert.Len(t, box.Indices, 36)
}

func TestImportedModelValidate(t *testing.T) {
	m := &ImportedModel{
		Nodes: []ImportedNode{
			{Name: "root", Parent: -1, Children: []int{1}, MeshIndex: -1, MaterialIndex: -1},
			{Name: "body", Parent: 0, MeshIndex: 0, MaterialIndex: -1},
		},
		Roots:  []int{0},
		Meshes: []MeshData{NewBox(1, 1, 1)},
		Animations: []*AnimationClip{
			{Name: "punch", Duration: 1, Channels: []AnimationChannel{{NodeIndex: 1}}},
		},
	}
	require.NoError(t, m.Validate())
	assert.NotNil(t, m.Clip("punch"))
	assert.Nil(t, m.Clip("kick"))
	assert.Equal(t, []string{"punch"}, m.ClipNames())

	m.Animations[0].Channels[0].NodeIndex = 7
	assert.Error(t, m.Validate())
}
