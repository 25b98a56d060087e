package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/light"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) (renderer.Renderer, *renderer.HeadlessBackend) {
	t.Helper()
	backend := renderer.NewHeadlessBackend()
	r, err := renderer.NewRenderer(backend, 320, 240)
	require.NoError(t, err)
	return r, backend
}

func boxNode(t *testing.T, r renderer.Renderer, name string, textured bool) *Node {
	t.Helper()
	data := model.NewBox(1, 1, 1)
	mesh, err := r.CreateMesh(name, data)
	require.NoError(t, err)
	mat := Material{Color: common.White}
	if textured {
		tex, err := r.CreateTexture(name+"-tex", common.TextureStagingData{Pixels: make([]byte, 16), Width: 2, Height: 2})
		require.NoError(t, err)
		mat.Texture = tex
	}
	return NewNode(name, WithMesh(mesh, data.BoundingMin, data.BoundingMax), WithMaterial(mat))
}

func TestNodeHierarchyAndWorldMatrix(t *testing.T) {
	parent := NewNode("parent")
	parent.SetPosition(mgl32.Vec3{1, 0, 0})
	parent.SetUniformScale(2)

	child := NewNode("child")
	child.SetPosition(mgl32.Vec3{0, 1, 0})
	parent.Add(child)

	assert.Equal(t, parent, child.Parent())
	assert.Equal(t, child, parent.Find("child"))
	assert.Nil(t, parent.Find("missing"))

	p := mgl32.TransformCoordinate(mgl32.Vec3{}, child.WorldMatrix())
	assert.InDelta(t, 1, p[0], 1e-5)
	assert.InDelta(t, 2, p[1], 1e-5)

	// cycles are refused
	child.Add(parent)
	assert.Nil(t, parent.Parent())

	other := NewNode("other")
	other.Add(child)
	assert.Empty(t, parent.Children())
	assert.Equal(t, other, child.Parent())
}

func TestSceneAddCountsRevisions(t *testing.T) {
	s := NewScene(WithName("arena"), WithLights(light.NewLight(light.LightTypeAmbient)))
	assert.Equal(t, "arena", s.Name())
	assert.Len(t, s.Lights(), 1)
	assert.Equal(t, uint64(0), s.Revision())

	n := NewNode("actor")
	n.Add(NewNode("arm"))
	require.NoError(t, s.Add(n))
	assert.Equal(t, 2, s.NodeCount())
	assert.Equal(t, uint64(1), s.Revision())

	assert.True(t, s.Remove(n))
	assert.False(t, s.Remove(n))
	assert.Equal(t, 0, s.NodeCount())
	assert.Equal(t, uint64(2), s.Revision())
}

func TestSceneDisposeReleasesEverythingOnce(t *testing.T) {
	r, backend := newTestRenderer(t)
	s := NewScene()

	a := boxNode(t, r, "a", true)
	b := boxNode(t, r, "b", false)
	a.Add(b)
	require.NoError(t, s.Add(a))

	bg, err := r.CreateTexture("bg", common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1})
	require.NoError(t, err)
	require.NoError(t, s.SetBackground(bg))
	require.Equal(t, 4, r.LiveResources())

	assert.Equal(t, 4, s.Dispose())
	assert.Equal(t, 0, s.Dispose())
	assert.True(t, s.Disposed())
	assert.Equal(t, 0, r.LiveResources())

	for _, c := range backend.Created() {
		assert.Equal(t, 1, backend.ReleaseCount(c.Handle), c.Label)
	}

	assert.ErrorIs(t, s.Add(NewNode("late")), ErrDisposed)
	assert.ErrorIs(t, s.AddLight(light.NewLight(light.LightTypePoint)), ErrDisposed)
	assert.ErrorIs(t, s.SetBackground(nil), ErrDisposed)
}

func TestSetBackgroundReleasesPrevious(t *testing.T) {
	r, _ := newTestRenderer(t)
	s := NewScene()

	first, err := r.CreateTexture("first", common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1})
	require.NoError(t, err)
	second, err := r.CreateTexture("second", common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1})
	require.NoError(t, err)

	require.NoError(t, s.SetBackground(first))
	require.NoError(t, s.SetBackground(second))
	assert.True(t, first.Released())
	assert.False(t, second.Released())
	assert.Equal(t, second, s.Background())
}

func TestWorldBoundsFollowTransform(t *testing.T) {
	n := NewNode("box", WithMesh(nil, mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}))
	n.SetPosition(mgl32.Vec3{5, 0, 0})

	lo, hi := n.WorldBounds()
	assert.InDelta(t, 4, lo[0], 1e-5)
	assert.InDelta(t, 6, hi[0], 1e-5)
	assert.Equal(t, common.White, n.Material().Color)
}
