package effects

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/camera"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend  *renderer.HeadlessBackend
	renderer renderer.Renderer
	scene    scene.Scene
	camera   camera.Camera
	actor    *scene.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := renderer.NewHeadlessBackend()
	r, err := renderer.NewRenderer(backend, 640, 480)
	require.NoError(t, err)

	box := model.NewBox(1, 1, 1)
	mesh, err := r.CreateMesh("box", box)
	require.NoError(t, err)
	actor := scene.NewNode("actor", scene.WithMesh(mesh, box.BoundingMin, box.BoundingMax))

	s := scene.NewScene(scene.WithNodes(actor))
	cam := camera.NewCamera(camera.WithAspect(640.0 / 480.0))
	return &fixture{backend: backend, renderer: r, scene: s, camera: cam, actor: actor}
}

func (f *fixture) build(t *testing.T, options ...PipelineBuilderOption) Pipeline {
	t.Helper()
	p, err := Build(f.renderer, f.scene, f.camera, options...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func kinds(passes []Pass) []PassKind {
	out := make([]PassKind, len(passes))
	for i, p := range passes {
		out[i] = p.Kind()
	}
	return out
}

func blitEffects(ops []renderer.Op) []renderer.Effect {
	var out []renderer.Effect
	for _, op := range ops {
		if op.Name == renderer.OpBlit {
			out = append(out, op.Effect)
		}
	}
	return out
}

func countOps(ops []renderer.Op, name string) int {
	n := 0
	for _, op := range ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

func TestBuildSizesToRenderer(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	w, h := p.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, []PassKind{PassBase}, kinds(p.Passes()))

	w, h = p.Passes()[0].Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestBloomRadiusIsPercentOfShorterSide(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)
	require.NoError(t, p.AddBloom(BloomParams{Strength: 1, Radius: 2.5, Threshold: 0.5}))

	before := len(f.backend.Ops())
	require.NoError(t, p.Render())

	var radii []float32
	for _, op := range f.backend.Ops()[before:] {
		if op.Name == renderer.OpBlit && op.Effect == renderer.EffectBlur {
			radii = append(radii, op.Params.Radius)
		}
	}
	// 2.5% of 480
	require.Len(t, radii, 2)
	assert.InDelta(t, 12, radii[0], 1e-4)
	assert.InDelta(t, 12, radii[1], 1e-4)
}

func TestBuildRequiresCollaborators(t *testing.T) {
	f := newFixture(t)
	_, err := Build(nil, f.scene, f.camera)
	assert.Error(t, err)
	_, err = Build(f.renderer, nil, f.camera)
	assert.Error(t, err)
}

func TestBuildReleasesTargetsOnFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.FailOn(renderer.OpCreateRenderTarget, errors.New("no memory"))

	_, err := Build(f.renderer, f.scene, f.camera)
	require.Error(t, err)
	// only the fixture's mesh is left
	assert.Equal(t, 1, f.renderer.LiveResources())
}

func TestPassesRunInFixedOrder(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	require.NoError(t, p.AddBloom(DefaultBloomParams()))
	require.NoError(t, p.AddHighlight(f.actor))
	assert.Equal(t, []PassKind{PassBase, PassHighlight, PassBloom}, kinds(p.Passes()))

	require.NoError(t, p.Render())
	assert.Equal(t, []renderer.Effect{
		renderer.EffectOutline,
		renderer.EffectThreshold,
		renderer.EffectBlur,
		renderer.EffectBlur,
		renderer.EffectComposite,
		renderer.EffectCopy,
	}, blitEffects(f.backend.Ops()))
}

func TestAddPassTwice(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	require.NoError(t, p.AddHighlight(f.actor))
	assert.ErrorIs(t, p.AddHighlight(f.actor), ErrPassExists)
	require.NoError(t, p.AddBloom(DefaultBloomParams()))
	assert.ErrorIs(t, p.AddBloom(BloomParams{}), ErrPassExists)
}

func TestPassParameters(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)
	require.NoError(t, p.AddHighlight(f.actor, nil))
	require.NoError(t, p.AddBloom(DefaultBloomParams()))

	passes := p.Passes()
	hl, ok := passes[1].(HighlightPass)
	require.True(t, ok)
	assert.Equal(t, []*scene.Node{f.actor}, hl.Selected())
	assert.Equal(t, DefaultHighlightParams(), hl.Params())

	bloom, ok := passes[2].(BloomPass)
	require.True(t, ok)
	assert.Equal(t, BloomParams{Strength: 1.5, Radius: 0.4, Threshold: 0.85}, bloom.Params())
}

func TestRenderDrawsVisibleMeshesAndPresents(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	hidden := scene.NewNode("hidden", scene.WithMesh(f.actor.Mesh(), mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}))
	hidden.SetVisible(false)
	require.NoError(t, f.scene.Add(hidden))

	require.NoError(t, p.Render())
	ops := f.backend.Ops()
	assert.Equal(t, 1, countOps(ops, renderer.OpBeginFrame))
	assert.Equal(t, 1, countOps(ops, renderer.OpDrawMesh))
	assert.Equal(t, 1, countOps(ops, renderer.OpEndFrame))

	last := ops[len(ops)-2]
	assert.Equal(t, renderer.OpBlit, last.Name)
	assert.Equal(t, renderer.EffectCopy, last.Effect)
	assert.Equal(t, renderer.SurfaceHandle, last.Target)
}

func TestRenderCullsMeshesOutsideTheFrustum(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	// behind the camera at z = 5
	f.actor.SetPosition(mgl32.Vec3{0, 0, 20})
	require.NoError(t, p.Render())
	assert.Zero(t, countOps(f.backend.Ops(), renderer.OpDrawMesh))
}

func TestRenderDrawsBackgroundFirst(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	bg, err := f.renderer.CreateTexture("bg", common.TextureStagingData{Pixels: make([]byte, 16), Width: 2, Height: 2})
	require.NoError(t, err)
	require.NoError(t, f.scene.SetBackground(bg))

	require.NoError(t, p.Render())
	ops := f.backend.Ops()
	var first renderer.Op
	for _, op := range ops {
		if op.Name == renderer.OpBlit || op.Name == renderer.OpBeginPass {
			first = op
			break
		}
	}
	assert.Equal(t, renderer.OpBlit, first.Name)
	assert.Equal(t, []renderer.Handle{bg.Handle()}, first.Inputs)
}

func TestResizeReallocatesEveryPass(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)
	require.NoError(t, p.AddHighlight(f.actor))

	require.NoError(t, p.Resize(800, 600))
	require.NoError(t, p.AddBloom(DefaultBloomParams()))
	require.NoError(t, p.Resize(400, 300))

	for _, pass := range p.Passes() {
		w, h := pass.Size()
		assert.Equal(t, 400, w, pass.Kind().String())
		assert.Equal(t, 300, h, pass.Kind().String())
	}

	// every superseded target was released exactly once
	for _, c := range f.backend.Created() {
		if c.Kind != renderer.ResourceKindRenderTarget {
			continue
		}
		if c.Width == 400 {
			assert.Zero(t, f.backend.ReleaseCount(c.Handle), c.Label)
		} else {
			assert.Equal(t, 1, f.backend.ReleaseCount(c.Handle), c.Label)
		}
	}
	require.NoError(t, p.Render())
}

// starvedRenderer fails to create targets with the given label once armed.
type starvedRenderer struct {
	renderer.Renderer
	label string
	armed bool
}

func (r *starvedRenderer) CreateRenderTarget(label string, width, height int) (*renderer.Resource, error) {
	if r.armed && label == r.label {
		return nil, errors.New("out of video memory")
	}
	return r.Renderer.CreateRenderTarget(label, width, height)
}

func TestResizeFailureKeepsPreviousTargets(t *testing.T) {
	f := newFixture(t)
	starved := &starvedRenderer{Renderer: f.renderer, label: "bloom_blur_h"}
	p, err := Build(starved, f.scene, f.camera)
	require.NoError(t, err)
	defer p.Release()
	require.NoError(t, p.AddHighlight(f.actor))
	require.NoError(t, p.AddBloom(DefaultBloomParams()))
	live := f.renderer.LiveResources()

	starved.armed = true
	err = p.Resize(1024, 768)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bloom")

	w, h := p.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	for _, pass := range p.Passes() {
		w, h := pass.Size()
		assert.Equal(t, 640, w, pass.Kind().String())
		assert.Equal(t, 480, h, pass.Kind().String())
	}
	// the targets allocated for the failed resize were released, the old ones kept
	assert.Equal(t, live, f.renderer.LiveResources())
	for _, c := range f.backend.Created() {
		if c.Kind == renderer.ResourceKindRenderTarget && c.Width == 1024 {
			assert.Equal(t, 1, f.backend.ReleaseCount(c.Handle), c.Label)
		}
	}

	before := len(f.backend.Ops())
	require.NoError(t, p.Render())
	for _, op := range f.backend.Ops()[before:] {
		for _, in := range op.Inputs {
			assert.NotEqual(t, renderer.SurfaceHandle, in, "pass read from the surface")
		}
	}

	starved.armed = false
	require.NoError(t, p.Resize(1024, 768))
	w, h = p.Size()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)
}

func TestResizeRejectsZero(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)
	assert.Error(t, p.Resize(0, 300))
	w, h := p.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestRenderRecoversFromBackendFailure(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	f.backend.FailOn(renderer.OpBlit, errors.New("device lost"))
	err := p.Render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")

	f.backend.FailOn(renderer.OpBlit, nil)
	assert.NoError(t, p.Render())
}

type panickyRenderer struct {
	renderer.Renderer
}

func (panickyRenderer) DrawMesh(*renderer.Resource, renderer.DrawParams) error {
	panic("driver crashed")
}

func TestRenderConvertsPanicsToErrors(t *testing.T) {
	f := newFixture(t)
	p, err := Build(panickyRenderer{f.renderer}, f.scene, f.camera)
	require.NoError(t, err)
	defer p.Release()

	assert.NotPanics(t, func() {
		err = p.Render()
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver crashed")
	assert.False(t, f.renderer.Released())
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p, err := Build(f.renderer, f.scene, f.camera)
	require.NoError(t, err)
	require.NoError(t, p.AddBloom(DefaultBloomParams()))

	p.Release()
	p.Release()

	assert.Equal(t, 1, f.renderer.LiveResources())
	for _, c := range f.backend.Created() {
		if c.Kind == renderer.ResourceKindRenderTarget {
			assert.Equal(t, 1, f.backend.ReleaseCount(c.Handle), c.Label)
		}
	}
	assert.ErrorIs(t, p.Render(), ErrPipelineReleased)
	assert.ErrorIs(t, p.AddHighlight(f.actor), ErrPipelineReleased)
	assert.ErrorIs(t, p.Resize(10, 10), ErrPipelineReleased)
}
