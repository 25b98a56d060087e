// Package session plays one fight vignette: it builds the scene for a location, loads both
// actors concurrently, sequences their clips and renders until the fight finishes.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/effects"
	"github.com/Carmen-Shannon/oxy-vignette/engine/environment"
	"github.com/Carmen-Shannon/oxy-vignette/engine/loader"
	"github.com/Carmen-Shannon/oxy-vignette/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/timeline"
	"github.com/Carmen-Shannon/oxy-vignette/engine/viewport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultWidth  = 800
	defaultHeight = 600
)

// SceneConfig describes one vignette. It is read once by New.
type SceneConfig struct {
	// Location picks the environment. Unknown names get an empty scene.
	Location string

	// MoveType selects the winner's clip. Only timeline.CriticalHit selects the power attack.
	MoveType string

	WinnerActorID string
	LoserActorID  string

	// OnComplete runs once, on the host loop, after the loser's clip finishes.
	OnComplete func()
}

// RendererFactory creates the session's renderer at the initial surface size.
type RendererFactory func(width, height int) (renderer.Renderer, error)

// session is the implementation of the Session interface.
type session struct {
	mu     *sync.Mutex
	id     string
	logger *zap.Logger
	cfg    SceneConfig

	host        scheduler.Host
	surface     viewport.Surface
	newRenderer RendererFactory
	fetcher     loader.Fetcher
	resolver    loader.AssetResolver
	catalog     *environment.Catalog
	clips       timeline.ClipSet
	bloom       effects.BloomParams
	highlight   effects.HighlightParams
	clearColor  common.Color
	workers     int
	profiler    *profiler.Profiler

	onProgress    func(percent float64)
	onStateChange func(State)

	state     State
	err       error
	cancelled atomic.Bool
	cancel    context.CancelFunc
	inFlight  bool
	tracker   *loader.ProgressTracker

	renderer  renderer.Renderer
	env       *environment.Environment
	pipeline  effects.Pipeline
	monitor   viewport.Monitor
	loader    loader.AssetLoader
	timeline  timeline.Coordinator
	scheduler scheduler.FrameScheduler
	results   []*loader.LoadResult

	completeOnce sync.Once
	teardownOnce sync.Once
	done         chan struct{}
}

// Session is one running vignette. Every method is safe to call from any goroutine.
type Session interface {
	// ID returns the session's unique id, as logged in the session_id field.
	ID() string

	// State returns the current lifecycle state.
	State() State

	// Err returns the cause of StateError, or nil. A failed actor load is a
	// *loader.AssetLoadError and a failed build step is an *InitializationError.
	Err() error

	// Progress returns the mean load progress of both actors in [0, 100].
	Progress() float64

	// Scene returns the session's scene, or nil once torn down.
	Scene() scene.Scene

	// Pipeline returns the effects pipeline, or nil once torn down.
	Pipeline() effects.Pipeline

	// Timeline returns the actor coordinator, or nil once torn down.
	Timeline() timeline.Coordinator

	// Teardown stops the session and releases everything it created. It is safe to call
	// more than once and in any state. Loads still in flight are cancelled and their
	// results discarded without touching the scene.
	Teardown()

	// Done returns a channel closed when teardown has finished.
	//
	// Returns:
	//   - <-chan struct{}: the done channel
	Done() <-chan struct{}
}

var _ Session = &session{}

// New builds a session and starts loading both actors. Construction never fails outright:
// a build error moves the session straight to StateError, tears down what was built and is
// reported by Err.
//
// Parameters:
//   - cfg: the vignette to play
//   - options: a variadic list of SessionBuilderOption functions
//
// Returns:
//   - Session: the session
func New(cfg SceneConfig, options ...SessionBuilderOption) Session {
	s := &session{
		mu:         &sync.Mutex{},
		id:         uuid.NewString(),
		logger:     zap.NewNop(),
		cfg:        cfg,
		resolver:   loader.DefaultAssetResolver(),
		clips:      timeline.DefaultClipSet(),
		bloom:      effects.DefaultBloomParams(),
		highlight:  effects.DefaultHighlightParams(),
		clearColor: common.Black,
		done:       make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}
	s.logger = s.logger.With(
		zap.String("session_id", s.id),
		zap.String("winner", cfg.WinnerActorID),
		zap.String("loser", cfg.LoserActorID),
	)
	if s.newRenderer == nil {
		s.newRenderer = headlessRenderer(s.logger)
	}
	if s.fetcher == nil {
		s.fetcher = loader.NewFSFetcher(os.DirFS("."))
	}

	s.setState(StateInitializing)
	if err := s.initialize(); err != nil {
		s.fail(err)
		return s
	}
	s.setState(StateLoading)
	s.startLoads()
	return s
}

// headlessRenderer is the factory used when no window is available.
func headlessRenderer(logger *zap.Logger) RendererFactory {
	return func(width, height int) (renderer.Renderer, error) {
		return renderer.NewRenderer(renderer.NewHeadlessBackend(), width, height, renderer.WithLogger(logger))
	}
}

func (s *session) ID() string {
	return s.id
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *session) Progress() float64 {
	s.mu.Lock()
	tracker := s.tracker
	s.mu.Unlock()
	if tracker == nil {
		return 0
	}
	return tracker.Percent()
}

func (s *session) Scene() scene.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env == nil {
		return nil
	}
	return s.env.Scene
}

func (s *session) Pipeline() effects.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline
}

func (s *session) Timeline() timeline.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline
}

func (s *session) Done() <-chan struct{} {
	return s.done
}

// initialize builds everything the session needs before loading. Each built component is
// stored as soon as it exists so a later failure can tear it down.
func (s *session) initialize() error {
	if s.cfg.WinnerActorID == "" || s.cfg.LoserActorID == "" {
		return initError(StageConfig, errors.New("winner and loser actor ids are required"))
	}
	if s.cfg.WinnerActorID == s.cfg.LoserActorID {
		return initError(StageConfig, fmt.Errorf("winner and loser share the actor id %q", s.cfg.WinnerActorID))
	}
	if s.host == nil {
		return initError(StageScheduler, scheduler.ErrNoHost)
	}

	width, height := defaultWidth, defaultHeight
	if s.surface != nil {
		if w, h := s.surface.Size(); w > 0 && h > 0 {
			width, height = w, h
		}
	}

	r, err := s.newRenderer(width, height)
	if err != nil {
		return initError(StageRenderer, err)
	}
	if r == nil {
		return initError(StageRenderer, errors.New("renderer factory returned nil"))
	}
	s.mu.Lock()
	s.renderer = r
	s.mu.Unlock()

	builder := environment.NewBuilder(r,
		environment.WithLogger(s.logger),
		environment.WithFetcher(s.fetcher),
		environment.WithResolver(s.resolver),
		environment.WithCatalog(s.catalog),
		environment.WithClearColor(s.clearColor),
	)
	env, err := builder.Build(context.Background(), s.cfg.Location)
	if err != nil {
		return initError(StageEnvironment, err)
	}
	s.mu.Lock()
	s.env = env
	s.mu.Unlock()
	if env.Camera == nil {
		return initError(StageCamera, errors.New("environment has no camera"))
	}

	pipe, err := effects.Build(r, env.Scene, env.Camera,
		effects.WithLogger(s.logger),
		effects.WithSize(width, height),
		effects.WithHighlightParams(s.highlight),
	)
	if err != nil {
		return initError(StagePipeline, err)
	}
	s.mu.Lock()
	s.pipeline = pipe
	s.mu.Unlock()

	mon := viewport.NewMonitor(s.surface, viewport.WithLogger(s.logger))
	if err := mon.Subscribe(s.onResize); err != nil {
		return initError(StageViewport, err)
	}
	s.mu.Lock()
	s.monitor = mon
	s.mu.Unlock()

	ld, err := loader.NewAssetLoader(r, s.fetcher,
		loader.WithLogger(s.logger),
		loader.WithLoopingClips(s.clips.Idle),
		loader.WithWorkers(s.workers),
	)
	if err != nil {
		return initError(StageLoader, err)
	}

	s.mu.Lock()
	s.loader = ld
	s.timeline = timeline.NewCoordinator(timeline.WithLogger(s.logger))
	s.scheduler = scheduler.NewFrameScheduler(s.host,
		scheduler.WithLogger(s.logger),
		scheduler.WithErrorHandler(s.onTickError),
	)
	s.mu.Unlock()

	s.logger.Info("session initialized",
		zap.String("location", env.Location),
		zap.Bool("known_location", env.Known),
		zap.Int("width", width),
		zap.Int("height", height),
	)
	return nil
}

// requests returns the two actor load requests.
func (s *session) requests() []loader.LoadRequest {
	var ambient []string
	if s.clips.Idle != "" {
		ambient = []string{s.clips.Idle}
	}
	return []loader.LoadRequest{
		{
			ActorID:         s.cfg.WinnerActorID,
			AssetURL:        s.resolver.WinnerURL(),
			InitialPosition: environment.WinnerPlacement.Position,
			InitialScale:    environment.WinnerPlacement.Scale,
			ClipsToStart:    ambient,
		},
		{
			ActorID:         s.cfg.LoserActorID,
			AssetURL:        s.resolver.LoserURL(),
			InitialPosition: environment.LoserPlacement.Position,
			InitialScale:    environment.LoserPlacement.Scale,
			ClipsToStart:    ambient,
		},
	}
}

// startLoads runs both loads off the host loop and posts the joined result back to it.
func (s *session) startLoads() {
	ctx, cancel := context.WithCancel(context.Background())
	reqs := s.requests()

	s.mu.Lock()
	s.cancel = cancel
	s.inFlight = true
	s.tracker = loader.NewProgressTracker(s.cfg.WinnerActorID, s.cfg.LoserActorID)
	ld := s.loader
	s.mu.Unlock()

	go func() {
		results, err := ld.LoadAll(ctx, reqs, s.handleProgress)

		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		ld.Release()

		if s.cancelled.Load() {
			s.discard(results)
			return
		}
		s.host.Post(func() {
			s.finishLoading(results, err)
		})
	}()
}

func (s *session) handleProgress(actorID string, p loader.Progress) {
	if s.cancelled.Load() {
		return
	}
	s.mu.Lock()
	tracker, fn := s.tracker, s.onProgress
	s.mu.Unlock()

	percent := tracker.Update(actorID, p)
	if fn != nil {
		fn(percent)
	}
}

// discard releases load results that will never be attached.
func (s *session) discard(results []*loader.LoadResult) {
	released := 0
	for _, res := range results {
		released += res.Release()
	}
	s.logger.Debug("discarded load results after teardown", zap.Int("released", released))
}

// finishLoading runs on the host loop once both loads have settled.
func (s *session) finishLoading(results []*loader.LoadResult, err error) {
	if s.cancelled.Load() {
		s.discard(results)
		return
	}
	if err != nil {
		s.fail(err)
		return
	}
	if err := s.animate(results); err != nil {
		s.fail(err)
	}
}

// animate attaches the actors, starts their clips and the effect passes, then starts the
// frame scheduler.
func (s *session) animate(results []*loader.LoadResult) error {
	s.mu.Lock()
	s.results = results
	env, coord, pipe, mon, sched := s.env, s.timeline, s.pipeline, s.monitor, s.scheduler
	s.mu.Unlock()

	nodes := make([]*scene.Node, 0, len(results))
	for _, res := range results {
		if err := env.Scene.Add(res.ModelNode); err != nil {
			return initError(StageEnvironment, fmt.Errorf("failed to attach actor %q: %w", res.ActorID, err))
		}
		nodes = append(nodes, res.ModelNode)
	}

	for _, res := range results {
		if err := coord.RegisterActor(res.ActorID, res.ModelNode, res.Mixer); err != nil {
			return initError(StageTimeline, err)
		}
		for _, clip := range res.ClipsToStart {
			if res.Mixer.Clip(clip) == nil {
				s.logger.Warn("ambient clip not found", zap.String("actor", res.ActorID), zap.String("clip", clip))
				continue
			}
			if err := coord.Play(res.ActorID, clip, timeline.PlayOptions{}); err != nil {
				return initError(StageTimeline, err)
			}
		}
	}

	sel := timeline.SelectClips(s.cfg.MoveType, s.clips)
	s.logger.Debug("clips selected",
		zap.String("move_type", s.cfg.MoveType),
		zap.String("winner_clip", sel.WinnerClip),
		zap.String("loser_clip", sel.LoserClip),
	)
	steps := timeline.FightSequence(s.cfg.WinnerActorID, s.cfg.LoserActorID, sel, s.complete)
	if err := coord.RunSequence(steps); err != nil {
		return initError(StageTimeline, err)
	}

	if err := pipe.AddHighlight(nodes...); err != nil {
		return initError(StagePipeline, err)
	}
	if err := pipe.AddBloom(s.bloom); err != nil {
		return initError(StagePipeline, err)
	}

	// Resizes reported while loading have been applied in order; catch up with the latest.
	if w, h := mon.Size(); w > 0 && h > 0 {
		s.applyResize(w, h)
	}

	s.setState(StateAnimating)
	if err := sched.Start(s.tick); err != nil {
		return initError(StageScheduler, err)
	}
	return nil
}

// tick is one frame: advance every actor, then draw.
func (s *session) tick(tick uint64, dt float32) error {
	s.mu.Lock()
	coord, pipe := s.timeline, s.pipeline
	s.mu.Unlock()
	if coord == nil || pipe == nil {
		return nil
	}

	// A teardown from another goroutine may land at any point of the tick; once the token
	// is set the remaining stages are skipped.
	if err := s.measure(profiler.StageAdvance, func() error {
		if s.cancelled.Load() {
			return nil
		}
		return coord.Advance(tick, dt)
	}); err != nil {
		return fmt.Errorf("failed to advance actors: %w", err)
	}

	// The tick that finishes the sequence still draws the final pose. Teardown is posted
	// by complete, so the pipeline is alive until the host runs it.
	switch s.State() {
	case StateAnimating, StateComplete:
	default:
		return nil
	}
	if err := s.measure(profiler.StageRender, func() error {
		if s.cancelled.Load() {
			return nil
		}
		return pipe.Render()
	}); err != nil {
		return fmt.Errorf("failed to render frame: %w", err)
	}
	return nil
}

func (s *session) measure(stage string, fn func() error) error {
	if s.profiler == nil {
		return fn()
	}
	return s.profiler.Measure(stage, fn)
}

// complete is the fight sequence's final step. It runs inside Advance on the host loop.
func (s *session) complete() {
	s.completeOnce.Do(func() {
		if s.cancelled.Load() || s.State() != StateAnimating {
			return
		}
		s.setState(StateComplete)

		s.mu.Lock()
		sched := s.scheduler
		s.mu.Unlock()
		sched.Stop()

		s.logger.Info("vignette complete")
		if s.cfg.OnComplete != nil {
			s.cfg.OnComplete()
		}
		s.host.Post(s.Teardown)
	})
}

func (s *session) onTickError(err error) {
	s.fail(err)
}

// onResize receives viewport reports from any goroutine and applies them on the host loop.
func (s *session) onResize(width, height int) {
	if s.cancelled.Load() {
		return
	}
	s.host.Post(func() {
		s.applyResize(width, height)
	})
}

func (s *session) applyResize(width, height int) {
	if s.cancelled.Load() {
		return
	}
	s.mu.Lock()
	r, env, pipe := s.renderer, s.env, s.pipeline
	s.mu.Unlock()

	if env != nil && env.Camera != nil {
		env.Camera.SetViewport(width, height)
	}
	if r != nil {
		if err := r.Resize(width, height); err != nil {
			s.logger.Warn("failed to resize renderer", zap.Error(err))
		}
	}
	if pipe != nil {
		if err := pipe.Resize(width, height); err != nil {
			s.logger.Warn("failed to resize pipeline", zap.Error(err))
		}
	}
}

func (s *session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	fn := s.onStateChange
	s.mu.Unlock()

	s.logger.Debug("state changed", zap.Stringer("from", prev), zap.Stringer("to", state))
	if fn != nil {
		fn(state)
	}
}

// fail moves the session to StateError and tears it down. Only the first error is kept,
// and errors raised after a teardown started are dropped.
func (s *session) fail(err error) {
	if s.cancelled.Load() {
		s.logger.Debug("error after teardown ignored", zap.Error(err))
		return
	}
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		s.logger.Debug("error after session ended ignored", zap.Stringer("state", s.State()), zap.Error(err))
		return
	}
	s.err = err
	s.mu.Unlock()

	var ale *loader.AssetLoadError
	var ie *InitializationError
	switch {
	case errors.As(err, &ale):
		s.logger.Error("actor load failed", zap.String("actor", ale.ActorID), zap.String("url", ale.URL), zap.Error(ale.Cause))
	case errors.As(err, &ie):
		s.logger.Error("session initialization failed", zap.String("stage", ie.Stage), zap.Error(ie.Cause))
	default:
		s.logger.Error("session failed", zap.Error(err))
	}

	s.setState(StateError)
	s.Teardown()
}

func (s *session) Teardown() {
	s.teardownOnce.Do(func() {
		s.cancelled.Store(true)

		s.mu.Lock()
		cancel := s.cancel
		sched, mon, coord := s.scheduler, s.monitor, s.timeline
		r, env, pipe := s.renderer, s.env, s.pipeline
		ld, inFlight, results := s.loader, s.inFlight, s.results
		state := s.state
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if sched != nil {
			sched.Stop()
		}
		if mon != nil {
			mon.Unsubscribe()
		}
		if coord != nil {
			coord.UnsubscribeAll()
		}
		if r != nil {
			r.DetachSurface()
		}

		disposed := 0
		if env != nil && env.Scene != nil {
			disposed = env.Scene.Dispose()
		}
		for _, res := range results {
			disposed += res.Release()
		}

		if pipe != nil {
			pipe.Release()
		}
		// An in-flight LoadAll releases the loader itself once its tasks have returned.
		if ld != nil && !inFlight {
			ld.Release()
		}
		if r != nil {
			r.Release()
		}

		s.mu.Lock()
		s.cancel = nil
		s.scheduler = nil
		s.monitor = nil
		s.timeline = nil
		s.renderer = nil
		s.env = nil
		s.pipeline = nil
		s.loader = nil
		s.results = nil
		s.mu.Unlock()

		s.logger.Info("session torn down", zap.Stringer("state", state), zap.Int("disposed", disposed))
		close(s.done)
	})
}
