package effects

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/light"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// PassKind identifies a render pass. Passes execute in ascending PassKind order.
type PassKind int

const (
	// PassBase draws the background and the scene's meshes.
	PassBase PassKind = iota

	// PassHighlight outlines a set of selected nodes.
	PassHighlight

	// PassBloom adds a glow around bright areas.
	PassBloom
)

func (k PassKind) String() string {
	switch k {
	case PassBase:
		return "base"
	case PassHighlight:
		return "highlight"
	case PassBloom:
		return "bloom"
	default:
		return "unknown"
	}
}

// Pass is one stage of a Pipeline.
type Pass interface {
	// Kind returns the pass kind.
	Kind() PassKind

	// Size returns the dimensions of the pass's internal buffers.
	Size() (int, int)
}

// HighlightPass is the Pass added by AddHighlight.
type HighlightPass interface {
	Pass

	// Selected returns the outlined nodes.
	Selected() []*scene.Node

	// Params returns the outline parameters.
	Params() HighlightParams
}

// BloomPass is the Pass added by AddBloom.
type BloomPass interface {
	Pass

	// Params returns the bloom parameters.
	Params() BloomParams
}

// HighlightParams configures the selection outline.
type HighlightParams struct {
	EdgeStrength     float32
	EdgeGlow         float32
	EdgeThickness    float32
	PulsePeriod      float32
	VisibleEdgeColor common.Color
	HiddenEdgeColor  common.Color
}

// DefaultHighlightParams returns a crisp white outline without glow or pulse.
func DefaultHighlightParams() HighlightParams {
	return HighlightParams{
		EdgeStrength:     3.0,
		EdgeGlow:         0,
		EdgeThickness:    1.0,
		PulsePeriod:      0,
		VisibleEdgeColor: common.White,
		HiddenEdgeColor:  common.Black,
	}
}

// BloomParams configures the bloom pass.
type BloomParams struct {
	Strength  float32 `toml:"strength" yaml:"strength" env:"STRENGTH"`
	Radius    float32 `toml:"radius" yaml:"radius" env:"RADIUS"`
	Threshold float32 `toml:"threshold" yaml:"threshold" env:"THRESHOLD"`
}

// DefaultBloomParams returns the stock bloom settings.
func DefaultBloomParams() BloomParams {
	return BloomParams{Strength: 1.5, Radius: 0.4, Threshold: 0.85}
}

// frame is the per-Render state shared by the passes.
type frame struct {
	r        renderer.Renderer
	scene    scene.Scene
	viewProj mgl32.Mat4
	frustum  common.Frustum
	lighting light.Lighting
	elapsed  float32
}

// stage is the internal side of a Pass.
type stage interface {
	Pass

	// buffers returns the stage's targets. The pipeline reallocates them on resize.
	buffers() *targetSet

	// render reads src and writes dst. The base stage ignores src.
	render(f *frame, src, dst *renderer.Resource) error
}

// targetSet is a group of render targets reallocated together. A set without labels
// only tracks its size.
type targetSet struct {
	labels  []string
	targets []*renderer.Resource
	width   int
	height  int
}

func newTargetSet(labels ...string) *targetSet {
	return &targetSet{labels: labels, targets: make([]*renderer.Resource, len(labels))}
}

// allocate creates a full set of targets at the given size without touching the current
// ones. On failure everything it created is released.
func (t *targetSet) allocate(r renderer.Renderer, width, height int) ([]*renderer.Resource, error) {
	next := make([]*renderer.Resource, len(t.labels))
	for i, label := range t.labels {
		res, err := r.CreateRenderTarget(label, width, height)
		if err != nil {
			releaseTargets(next)
			return nil, fmt.Errorf("failed to create render target %q: %w", label, err)
		}
		next[i] = res
	}
	return next, nil
}

// swap releases the current targets and installs next, allocated at width x height.
func (t *targetSet) swap(next []*renderer.Resource, width, height int) {
	releaseTargets(t.targets)
	t.targets = next
	t.width, t.height = width, height
}

// resize reallocates the set. On failure the current targets are kept.
func (t *targetSet) resize(r renderer.Renderer, width, height int) error {
	next, err := t.allocate(r, width, height)
	if err != nil {
		return err
	}
	t.swap(next, width, height)
	return nil
}

func (t *targetSet) release() {
	releaseTargets(t.targets)
	t.width, t.height = 0, 0
}

func releaseTargets(targets []*renderer.Resource) {
	for i, res := range targets {
		res.Release()
		targets[i] = nil
	}
}

func (t *targetSet) get(i int) *renderer.Resource {
	return t.targets[i]
}

func (t *targetSet) size() (int, int) {
	return t.width, t.height
}

// drawSubtree draws every visible, undisposed mesh under root that survives frustum culling.
func drawSubtree(f *frame, root *scene.Node, params func(n *scene.Node) renderer.DrawParams) error {
	var err error
	root.Walk(func(n *scene.Node) bool {
		if err != nil || !n.Visible() || n.Disposed() {
			return false
		}
		if err = drawNode(f, n, params); err != nil {
			return false
		}
		return true
	})
	return err
}

func drawNode(f *frame, n *scene.Node, params func(n *scene.Node) renderer.DrawParams) error {
	mesh := n.Mesh()
	if mesh == nil {
		return nil
	}
	minV, maxV := n.WorldBounds()
	if !f.frustum.IntersectsAABB(minV, maxV) {
		return nil
	}
	if err := f.r.DrawMesh(mesh, params(n)); err != nil {
		return fmt.Errorf("failed to draw %q: %w", n.Name(), err)
	}
	return nil
}
