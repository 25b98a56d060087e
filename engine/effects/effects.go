package effects

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-vignette/engine/camera"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"go.uber.org/zap"
)

var (
	// ErrPassExists is returned when adding a pass kind the pipeline already has.
	ErrPassExists = errors.New("effects: pass already added")

	// ErrPipelineReleased is returned by operations on a released pipeline.
	ErrPipelineReleased = errors.New("effects: pipeline released")
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	mu     *sync.Mutex
	logger *zap.Logger

	renderer renderer.Renderer
	scene    scene.Scene
	camera   camera.Camera

	highlight HighlightParams
	width     int
	height    int
	stages    []stage
	colors    *targetSet
	started   time.Time
	released  bool
}

// Pipeline composes the render passes of a vignette. Passes always run in PassKind order,
// whatever order they were added in. Every pass renders into ping-pong color targets and
// the final result is copied onto the surface.
type Pipeline interface {
	// AddHighlight adds the selection outline pass around the given nodes.
	//
	// Parameters:
	//   - nodes: the nodes to outline, with their subtrees
	//
	// Returns:
	//   - error: ErrPassExists if a highlight pass was already added, or a target allocation error
	AddHighlight(nodes ...*scene.Node) error

	// AddBloom adds the bloom pass.
	//
	// Parameters:
	//   - params: the bloom settings
	//
	// Returns:
	//   - error: ErrPassExists if a bloom pass was already added, or a target allocation error
	AddBloom(params BloomParams) error

	// Render draws one frame. Backend failures and backend panics are returned as errors.
	//
	// Returns:
	//   - error: error if the frame could not be drawn
	Render() error

	// Resize reallocates every pass's internal buffers at the new size.
	//
	// Parameters:
	//   - width, height: the new size in pixels, both > 0
	//
	// Returns:
	//   - error: error if the size is invalid or a target cannot be created
	Resize(width, height int) error

	// Passes returns the passes in execution order.
	Passes() []Pass

	// Size returns the current buffer size.
	Size() (int, int)

	// Release frees every render target the pipeline created. Repeated calls are no-ops.
	Release()
}

var _ Pipeline = &pipeline{}

// Build creates a Pipeline with its base pass, sized to the renderer unless WithSize is given.
//
// Parameters:
//   - r: the renderer that owns the pipeline's targets
//   - s: the scene to draw
//   - cam: the camera to draw from
//   - options: a variadic list of PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the pipeline
//   - error: error if an argument is missing or a target cannot be created
func Build(r renderer.Renderer, s scene.Scene, cam camera.Camera, options ...PipelineBuilderOption) (Pipeline, error) {
	if r == nil || s == nil || cam == nil {
		return nil, errors.New("effects: renderer, scene and camera are required")
	}
	p := &pipeline{
		mu:        &sync.Mutex{},
		logger:    zap.NewNop(),
		renderer:  r,
		scene:     s,
		camera:    cam,
		highlight: DefaultHighlightParams(),
		colors:    newTargetSet("color_a", "color_b"),
		started:   time.Now(),
	}
	p.width, p.height = r.Size()
	for _, option := range options {
		option(p)
	}
	if p.width <= 0 || p.height <= 0 {
		return nil, fmt.Errorf("effects: invalid size %dx%d", p.width, p.height)
	}

	if err := p.colors.resize(r, p.width, p.height); err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	base := &basePass{targets: newTargetSet()}
	if err := base.buffers().resize(r, p.width, p.height); err != nil {
		p.colors.release()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	p.stages = []stage{base}

	p.logger.Debug("pipeline built", zap.Int("width", p.width), zap.Int("height", p.height))
	return p, nil
}

func (p *pipeline) AddHighlight(nodes ...*scene.Node) error {
	selected := make([]*scene.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			selected = append(selected, n)
		}
	}
	return p.addStage(newHighlightPass(selected, p.highlight))
}

func (p *pipeline) AddBloom(params BloomParams) error {
	return p.addStage(newBloomPass(params))
}

// addStage allocates the stage at the current size and inserts it in kind order.
func (p *pipeline) addStage(s stage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrPipelineReleased
	}
	for _, existing := range p.stages {
		if existing.Kind() == s.Kind() {
			return fmt.Errorf("%w: %s", ErrPassExists, s.Kind())
		}
	}
	if err := s.buffers().resize(p.renderer, p.width, p.height); err != nil {
		return fmt.Errorf("failed to add %s pass: %w", s.Kind(), err)
	}
	p.stages = append(p.stages, s)
	slices.SortStableFunc(p.stages, func(a, b stage) int {
		return int(a.Kind()) - int(b.Kind())
	})
	p.logger.Debug("pass added", zap.Stringer("pass", s.Kind()))
	return nil
}

func (p *pipeline) Render() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrPipelineReleased
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("render panicked: %v", rec)
			p.abortFrame()
		}
	}()

	if err := p.renderer.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}

	// Lighting takes the scene lock, so it is resolved before the passes walk the graph.
	f := &frame{
		r:        p.renderer,
		scene:    p.scene,
		viewProj: p.camera.ViewProjectionMatrix(),
		frustum:  p.camera.Frustum(),
		lighting: p.scene.Lighting(),
		elapsed:  float32(time.Since(p.started).Seconds()),
	}

	cur, spare := p.colors.get(0), p.colors.get(1)
	for _, s := range p.stages {
		if s.Kind() == PassBase {
			err = s.render(f, nil, cur)
		} else {
			err = s.render(f, cur, spare)
			cur, spare = spare, cur
		}
		if err != nil {
			_ = p.renderer.EndFrame()
			return fmt.Errorf("%s pass failed: %w", s.Kind(), err)
		}
	}

	if err := p.renderer.Blit(renderer.EffectCopy, []*renderer.Resource{cur}, nil, renderer.EffectParams{}); err != nil {
		_ = p.renderer.EndFrame()
		return fmt.Errorf("failed to present: %w", err)
	}
	if err := p.renderer.EndFrame(); err != nil {
		return fmt.Errorf("failed to end frame: %w", err)
	}
	return nil
}

// abortFrame closes a frame left open by a panicking pass.
func (p *pipeline) abortFrame() {
	defer func() {
		_ = recover()
	}()
	_ = p.renderer.EndFrame()
}

func (p *pipeline) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("effects: invalid size %dx%d", width, height)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrPipelineReleased
	}
	if width == p.width && height == p.height {
		return nil
	}

	// Every target is allocated before any is swapped in, so a failure leaves the pipeline
	// whole at its previous size.
	sets := []*targetSet{p.colors}
	names := []string{"color"}
	for _, s := range p.stages {
		sets = append(sets, s.buffers())
		names = append(names, s.Kind().String())
	}
	next := make([][]*renderer.Resource, len(sets))
	for i, set := range sets {
		targets, err := set.allocate(p.renderer, width, height)
		if err != nil {
			for _, allocated := range next[:i] {
				releaseTargets(allocated)
			}
			return fmt.Errorf("failed to resize %s targets: %w", names[i], err)
		}
		next[i] = targets
	}
	for i, set := range sets {
		set.swap(next[i], width, height)
	}
	p.width, p.height = width, height

	p.logger.Debug("pipeline resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (p *pipeline) Passes() []Pass {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Pass, len(p.stages))
	for i, s := range p.stages {
		out[i] = s
	}
	return out
}

func (p *pipeline) Size() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

func (p *pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return
	}
	p.released = true
	for _, s := range p.stages {
		s.buffers().release()
	}
	p.colors.release()
}
