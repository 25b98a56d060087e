package loader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vignette/engine/loader/loadertest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportActorBundle(t *testing.T) {
	m, err := newGLTFImporter().Import("fallback", loadertest.ActorGLB())
	require.NoError(t, err)

	assert.Equal(t, "actor", m.Name)
	require.Len(t, m.Nodes, 2)
	assert.Equal(t, []int{0}, m.Roots)
	assert.Equal(t, -1, m.Nodes[0].Parent)
	assert.Equal(t, 0, m.Nodes[1].Parent)
	assert.Equal(t, []int{1}, m.Nodes[0].Children)

	require.Len(t, m.Meshes, 1)
	assert.Len(t, m.Meshes[0].Indices, 3)
	// normals are generated for the +Z facing triangle
	assert.InDelta(t, 1.0, m.Meshes[0].Vertices[0].Normal[2], 1e-6)

	require.Len(t, m.Materials, 1)
	require.NotNil(t, m.Materials[0].DiffuseTexture)
	assert.Equal(t, "image/png", m.Materials[0].DiffuseTexture.MimeType)

	punch := m.Clip("punch")
	require.NotNil(t, punch)
	assert.InDelta(t, 0.5, punch.Duration, 1e-6)
	require.Len(t, punch.Channels, 1)
	assert.Equal(t, int32(1), punch.Channels[0].NodeIndex)
}

func TestImportWithoutClips(t *testing.T) {
	m, err := newGLTFImporter().Import("fallback", loadertest.Build(loadertest.Options{}))
	require.NoError(t, err)
	assert.Empty(t, m.Animations)
	assert.Nil(t, m.Materials[0].DiffuseTexture)
}

func TestImportRejectsTruncatedContainer(t *testing.T) {
	data := loadertest.ActorGLB()
	_, err := newGLTFImporter().Import("x", data[:len(data)/2])
	assert.ErrorIs(t, err, ErrInvalidGLB)
}

func TestImportRejectsParentCycle(t *testing.T) {
	doc := `{"asset":{"version":"2.0"},"nodes":[{"children":[1]},{"children":[0]}]}`
	_, err := newGLTFImporter().Import("x", loadertest.Container([]byte(doc), nil))
	assert.Error(t, err)
}

func TestDecomposeMatrix(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0})
	m := mgl32.Translate3D(1, 2, 3).Mul4(rot.Mat4()).Mul4(mgl32.Scale3D(2, 3, 4))

	tr := decomposeMatrix(m)
	assert.True(t, tr.Translation.ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, 1e-5))
	assert.True(t, tr.Scale.ApproxEqualThreshold(mgl32.Vec3{2, 3, 4}, 1e-5))
	assert.True(t, tr.Matrix().ApproxEqualThreshold(m, 1e-4))
}
