package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) (Renderer, *HeadlessBackend) {
	t.Helper()
	backend := NewHeadlessBackend()
	r, err := NewRenderer(backend, 640, 480)
	require.NoError(t, err)
	return r, backend
}

func TestNewRendererConfiguresSurface(t *testing.T) {
	r, backend := newTestRenderer(t)

	assert.Equal(t, BackendTypeHeadless, r.BackendType())
	w, h := backend.SurfaceSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	require.NoError(t, r.Resize(320, 200))
	w, h = r.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
}

func TestNewRendererSurfaceFailure(t *testing.T) {
	backend := NewHeadlessBackend()
	backend.FailOn(OpConfigureSurface, errors.New("no adapter"))

	_, err := NewRenderer(backend, 640, 480)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter")
}

func TestResourceReleaseIsCountedOnce(t *testing.T) {
	r, backend := newTestRenderer(t)

	mesh, err := r.CreateMesh("box", model.NewBox(1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 36, mesh.IndexCount())
	assert.Equal(t, 1, r.LiveResources())

	mesh.Release()
	mesh.Release()

	assert.Equal(t, 1, backend.ReleaseCount(mesh.Handle()))
	assert.Zero(t, r.LiveResources())
	assert.True(t, mesh.Released())
}

func TestReleaseFreesLeftoversAndBlocksCreation(t *testing.T) {
	r, backend := newTestRenderer(t)

	target, err := r.CreateRenderTarget("base", 64, 64)
	require.NoError(t, err)

	r.Release()
	r.Release()
	target.Release()

	assert.Equal(t, 1, backend.ReleaseCount(target.Handle()))
	assert.True(t, backend.Released())
	assert.True(t, backend.Detached())

	_, err = r.CreateMesh("late", model.NewBox(1, 1, 1))
	assert.ErrorIs(t, err, ErrReleased)
}

func TestFrameRecording(t *testing.T) {
	r, backend := newTestRenderer(t)

	mesh, err := r.CreateMesh("box", model.NewBox(1, 1, 1))
	require.NoError(t, err)
	target, err := r.CreateRenderTarget("scene", 640, 480)
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.BeginPass(target, &common.Black))
	require.NoError(t, r.DrawMesh(mesh, DrawParams{Color: common.White}))
	r.EndPass()
	require.NoError(t, r.Blit(EffectCopy, []*Resource{target}, nil, EffectParams{}))
	require.NoError(t, r.EndFrame())

	ops := backend.OpNames()
	assert.Equal(t, []string{OpBeginFrame, OpBeginPass, OpDrawMesh, OpEndPass, OpBlit, OpEndFrame}, ops[len(ops)-6:])
}

func TestFrameOpsFailAfterDetach(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.DetachSurface()
	r.DetachSurface()

	assert.ErrorIs(t, r.BeginFrame(), ErrSurfaceDetached)
	assert.NoError(t, r.Resize(100, 100))

	_, err := r.CreateRenderTarget("still-allowed", 8, 8)
	assert.NoError(t, err)
}

func TestForeignResourceRejected(t *testing.T) {
	a, _ := newTestRenderer(t)
	b, _ := newTestRenderer(t)

	mesh, err := a.CreateMesh("box", model.NewBox(1, 1, 1))
	require.NoError(t, err)

	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginPass(nil, nil))
	assert.ErrorIs(t, b.DrawMesh(mesh, DrawParams{}), ErrForeignResource)
}

func TestInvalidCreateArguments(t *testing.T) {
	r, _ := newTestRenderer(t)

	_, err := r.CreateMesh("empty", model.MeshData{})
	assert.Error(t, err)
	_, err = r.CreateRenderTarget("zero", 0, 10)
	assert.Error(t, err)
	_, err = r.CreateTexture("short", common.TextureStagingData{Width: 2, Height: 2, Pixels: make([]byte, 3)})
	assert.Error(t, err)
}
