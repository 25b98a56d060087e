package session

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Carmen-Shannon/oxy-vignette/engine/effects"
	"github.com/Carmen-Shannon/oxy-vignette/engine/loader"
	"github.com/Carmen-Shannon/oxy-vignette/engine/loader/loadertest"
	"github.com/Carmen-Shannon/oxy-vignette/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/timeline"
	"github.com/Carmen-Shannon/oxy-vignette/engine/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	frameDt     = float32(0.1)
	waitTimeout = 5 * time.Second
)

func actorFS() fstest.MapFS {
	return fstest.MapFS{
		"animations/assets/winnerModel.glb": &fstest.MapFile{Data: loadertest.ActorGLB()},
		"animations/assets/loserModel.glb":  &fstest.MapFile{Data: loadertest.ActorGLB()},
	}
}

// gateFetcher holds every fetch until the gate is closed. It ignores cancellation so
// loads can resolve after a teardown.
type gateFetcher struct {
	inner loader.Fetcher
	gate  chan struct{}
}

func newGateFetcher(fsys fs.FS) *gateFetcher {
	return &gateFetcher{inner: loader.NewFSFetcher(fsys), gate: make(chan struct{})}
}

func (f *gateFetcher) Fetch(ctx context.Context, url string, onProgress func(loaded, total int64)) ([]byte, error) {
	<-f.gate
	return f.inner.Fetch(context.Background(), url, onProgress)
}

type harness struct {
	t       *testing.T
	host    *scheduler.ManualHost
	surface *viewport.FakeSurface
	backend *renderer.HeadlessBackend

	mu        sync.Mutex
	states    []State
	completes atomic.Int32
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:       t,
		host:    scheduler.NewManualHost(),
		surface: viewport.NewFakeSurface(640, 480),
		backend: renderer.NewHeadlessBackend(),
	}
}

func (h *harness) start(cfg SceneConfig, fetcher loader.Fetcher, options ...SessionBuilderOption) Session {
	h.t.Helper()
	onComplete := cfg.OnComplete
	cfg.OnComplete = func() {
		h.completes.Add(1)
		if onComplete != nil {
			onComplete()
		}
	}
	opts := []SessionBuilderOption{
		WithHost(h.host),
		WithSurface(h.surface),
		WithFetcher(fetcher),
		WithRendererFactory(func(width, height int) (renderer.Renderer, error) {
			return renderer.NewRenderer(h.backend, width, height)
		}),
		WithOnStateChange(func(s State) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.states = append(h.states, s)
		}),
	}
	s := New(cfg, append(opts, options...)...)
	h.t.Cleanup(s.Teardown)
	return s
}

func (h *harness) stateLog() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.states...)
}

func (h *harness) waitState(s Session, want State) {
	h.t.Helper()
	ok := h.host.RunUntil(func() bool { return s.State() == want }, frameDt, waitTimeout)
	require.True(h.t, ok, "state %s not reached, at %s (err: %v)", want, s.State(), s.Err())
}

func (h *harness) waitDone(s Session) {
	h.t.Helper()
	ok := h.host.RunUntil(func() bool {
		select {
		case <-s.Done():
			return true
		default:
			return false
		}
	}, frameDt, waitTimeout)
	require.True(h.t, ok, "session was not torn down")
}

// assertReleasedOnce checks that every resource the backend handed out was released exactly once.
func (h *harness) assertReleasedOnce() {
	h.t.Helper()
	created := h.backend.Created()
	require.NotEmpty(h.t, created)
	for _, c := range created {
		assert.Equal(h.t, 1, h.backend.ReleaseCount(c.Handle), "resource %q (%s)", c.Label, c.Kind)
	}
}

func (h *harness) createdLabels() map[string]bool {
	labels := make(map[string]bool)
	for _, c := range h.backend.Created() {
		labels[c.Label] = true
	}
	return labels
}

func fightConfig(location, move string) SceneConfig {
	return SceneConfig{Location: location, MoveType: move, WinnerActorID: "winner", LoserActorID: "loser"}
}

// recordFinished subscribes to the finished events of both actors.
func recordFinished(t *testing.T, s Session) func() []string {
	t.Helper()
	var mu sync.Mutex
	var events []string
	for _, id := range []string{"winner", "loser"} {
		_, err := s.Timeline().OnFinished(id, func(actorID, clip string) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, actorID+":"+clip)
		})
		require.NoError(t, err)
	}
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), events...)
	}
}

func TestSessionPlaysVignette(t *testing.T) {
	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()))
	assert.NotEmpty(t, s.ID())

	h.waitState(s, StateAnimating)
	events := recordFinished(t, s)

	labels := h.createdLabels()
	assert.True(t, labels["highlight_mask"])
	assert.True(t, labels["bloom_bright"])
	kinds := make([]effects.PassKind, 0, 3)
	for _, p := range s.Pipeline().Passes() {
		kinds = append(kinds, p.Kind())
	}
	assert.Equal(t, []effects.PassKind{effects.PassBase, effects.PassHighlight, effects.PassBloom}, kinds)
	assert.Equal(t, 2, len(s.Timeline().Actors()))

	h.waitState(s, StateComplete)
	assert.Equal(t, []string{"winner:punch", "loser:dodge"}, events())
	assert.Equal(t, int32(1), h.completes.Load())

	h.waitDone(s)
	assert.NoError(t, s.Err())
	assert.Equal(t, []State{StateInitializing, StateLoading, StateAnimating, StateComplete}, h.stateLog())
	assert.Nil(t, s.Scene())
	assert.Nil(t, s.Pipeline())
	assert.True(t, h.backend.Released())
	h.assertReleasedOnce()

	// Nothing renders once complete.
	ops := len(h.backend.Ops())
	h.host.Step(frameDt)
	assert.Equal(t, ops, len(h.backend.Ops()))
	assert.Equal(t, int32(1), h.completes.Load())
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

func TestSessionDrawsFinalPose(t *testing.T) {
	h := newHarness(t)
	framesAtComplete := -1
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()),
		WithOnStateChange(func(state State) {
			if state == StateComplete {
				framesAtComplete = countOps(h.backend.Ops(), renderer.OpBeginFrame)
			}
		}),
	)
	h.waitDone(s)
	require.NoError(t, s.Err())
	require.GreaterOrEqual(t, framesAtComplete, 0)

	// the tick that finished the sequence still drew a whole frame
	ops := h.backend.Ops()
	assert.Equal(t, framesAtComplete+1, countOps(ops, renderer.OpBeginFrame))
	assert.Equal(t, countOps(ops, renderer.OpBeginFrame), countOps(ops, renderer.OpEndFrame))
}

func TestSessionSelectsWinnerClip(t *testing.T) {
	tests := []struct {
		move string
		want string
	}{
		{timeline.CriticalHit, "winner:powerPunch"},
		{"critical hit", "winner:punch"},
		{"Jab", "winner:punch"},
		{"", "winner:punch"},
	}
	for _, tt := range tests {
		t.Run(tt.move, func(t *testing.T) {
			h := newHarness(t)
			s := h.start(fightConfig("Gotham", tt.move), loader.NewFSFetcher(actorFS()))
			h.waitState(s, StateAnimating)
			events := recordFinished(t, s)

			h.waitState(s, StateComplete)
			assert.Equal(t, []string{tt.want, "loser:dodge"}, events())
		})
	}
}

func TestSessionUnknownLocationUsesEmptyScene(t *testing.T) {
	h := newHarness(t)
	s := h.start(fightConfig("UnknownPlace", "punch"), loader.NewFSFetcher(actorFS()))

	h.waitState(s, StateAnimating)
	sc := s.Scene()
	require.NotNil(t, sc)
	assert.Equal(t, "UnknownPlace", sc.Name())
	assert.Nil(t, sc.Background())
	// Only the base light and the two actors.
	assert.Len(t, sc.Lights(), 1)
	assert.Len(t, sc.Root().Children(), 2)

	h.waitState(s, StateComplete)
	h.waitDone(s)
	assert.Equal(t, int32(1), h.completes.Load())
	h.assertReleasedOnce()
}

func TestSessionLoserLoadFails(t *testing.T) {
	fsys := actorFS()
	delete(fsys, "animations/assets/loserModel.glb")

	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(fsys))

	h.waitState(s, StateError)
	h.waitDone(s)

	var ale *loader.AssetLoadError
	require.ErrorAs(t, s.Err(), &ale)
	assert.Equal(t, "loser", ale.ActorID)
	assert.Equal(t, "animations/assets/loserModel.glb", ale.URL)
	assert.ErrorIs(t, s.Err(), fs.ErrNotExist)

	labels := h.createdLabels()
	assert.False(t, labels["highlight_mask"], "highlight pass must not be added")
	assert.False(t, labels["bloom_bright"], "bloom pass must not be added")
	assert.Equal(t, int32(0), h.completes.Load())
	assert.Equal(t, []State{StateInitializing, StateLoading, StateError}, h.stateLog())
	h.assertReleasedOnce()
}

func TestSessionResizeDuringLoading(t *testing.T) {
	fetcher := newGateFetcher(actorFS())
	h := newHarness(t)
	s := h.start(fightConfig("Metropolis", "punch"), fetcher)
	require.Equal(t, StateLoading, s.State())

	assert.NotPanics(t, func() {
		h.surface.Resize(800, 600)
		h.surface.Resize(0, 0)
		h.surface.Resize(400, 300)
		h.host.Drain()
	})
	close(fetcher.gate)

	h.waitState(s, StateAnimating)
	w, ht := s.Pipeline().Size()
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, ht)

	h.surface.Resize(1024, 768)
	h.host.Drain()
	w, ht = s.Pipeline().Size()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, ht)
	sw, sh := h.backend.SurfaceSize()
	assert.Equal(t, 1024, sw)
	assert.Equal(t, 768, sh)
}

func TestSessionTeardownDuringLoading(t *testing.T) {
	fetcher := newGateFetcher(actorFS())
	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), fetcher)
	require.Equal(t, StateLoading, s.State())

	sc := s.Scene()
	require.NotNil(t, sc)
	revision := sc.Revision()

	s.Teardown()
	assert.Equal(t, 0, h.surface.Subscribers())
	assert.True(t, sc.Disposed())

	// Let the loads resolve after teardown.
	close(fetcher.gate)
	h.host.RunUntil(func() bool { return false }, frameDt, 200*time.Millisecond)

	assert.Equal(t, revision, sc.Revision())
	assert.Equal(t, StateLoading, s.State())
	assert.NoError(t, s.Err())
	assert.Equal(t, int32(0), h.completes.Load())
	for _, c := range h.backend.Created() {
		assert.LessOrEqual(t, h.backend.ReleaseCount(c.Handle), 1, c.Label)
	}
}

func TestSessionTeardownIsIdempotent(t *testing.T) {
	h := newHarness(t)
	s := h.start(fightConfig("Outer Space", "punch"), loader.NewFSFetcher(actorFS()))
	h.waitState(s, StateAnimating)
	h.host.Step(frameDt)

	assert.NotPanics(t, func() {
		s.Teardown()
		s.Teardown()
	})
	assert.Equal(t, StateAnimating, s.State())
	h.assertReleasedOnce()

	// The scheduler is stopped: stepping draws nothing and never completes.
	ops := len(h.backend.Ops())
	for range 20 {
		h.host.Step(frameDt)
	}
	assert.Equal(t, ops, len(h.backend.Ops()))
	assert.Equal(t, int32(0), h.completes.Load())
}

func TestSessionTeardownOrder(t *testing.T) {
	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()))
	h.waitState(s, StateAnimating)

	before := len(h.backend.Ops())
	s.Teardown()

	var names []string
	for _, op := range h.backend.Ops()[before:] {
		names = append(names, op.Name)
	}
	require.NotEmpty(t, names)
	assert.Equal(t, renderer.OpDetachSurface, names[0])
	assert.Equal(t, renderer.OpRelease, names[len(names)-1])
	for _, n := range names[1 : len(names)-1] {
		assert.Equal(t, renderer.OpReleaseResource, n)
	}
}

func TestSessionInitializationErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("renderer", func(t *testing.T) {
		h := newHarness(t)
		s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()),
			WithRendererFactory(func(int, int) (renderer.Renderer, error) { return nil, boom }),
		)
		var ie *InitializationError
		require.ErrorAs(t, s.Err(), &ie)
		assert.Equal(t, StageRenderer, ie.Stage)
		assert.ErrorIs(t, s.Err(), boom)
		assert.Equal(t, StateError, s.State())
		<-s.Done()
	})

	t.Run("pipeline", func(t *testing.T) {
		h := newHarness(t)
		h.backend.FailOn(renderer.OpCreateRenderTarget, boom)
		s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()))
		var ie *InitializationError
		require.ErrorAs(t, s.Err(), &ie)
		assert.Equal(t, StagePipeline, ie.Stage)
		assert.ErrorIs(t, s.Err(), boom)
		<-s.Done()
		h.assertReleasedOnce()
	})

	t.Run("no host", func(t *testing.T) {
		s := New(fightConfig("Asgard", "punch"))
		assert.ErrorIs(t, s.Err(), scheduler.ErrNoHost)
		assert.Equal(t, StateError, s.State())
		<-s.Done()
	})

	t.Run("same actor", func(t *testing.T) {
		h := newHarness(t)
		cfg := fightConfig("Asgard", "punch")
		cfg.LoserActorID = cfg.WinnerActorID
		s := h.start(cfg, loader.NewFSFetcher(actorFS()))
		var ie *InitializationError
		require.ErrorAs(t, s.Err(), &ie)
		assert.Equal(t, StageConfig, ie.Stage)
	})

	t.Run("looping step", func(t *testing.T) {
		h := newHarness(t)
		clips := timeline.DefaultClipSet()
		clips.Attack = clips.Idle
		s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()), WithClipSet(clips))

		h.waitState(s, StateError)
		h.waitDone(s)
		var ie *InitializationError
		require.ErrorAs(t, s.Err(), &ie)
		assert.Equal(t, StageTimeline, ie.Stage)
		assert.ErrorIs(t, s.Err(), timeline.ErrLoopingStep)
		h.assertReleasedOnce()
	})
}

func TestSessionRenderFailureStopsSession(t *testing.T) {
	boom := errors.New("device lost")
	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()))
	h.waitState(s, StateAnimating)

	h.backend.FailOn(renderer.OpBeginFrame, boom)
	h.waitState(s, StateError)
	h.waitDone(s)
	assert.ErrorIs(t, s.Err(), boom)
	assert.Equal(t, int32(0), h.completes.Load())
	h.assertReleasedOnce()
}

func TestSessionMissingAmbientClip(t *testing.T) {
	bundle := loadertest.Build(loadertest.Options{Clips: []loadertest.Clip{
		{Name: "punch", Duration: 0.3},
		{Name: "dodge", Duration: 0.3},
	}})
	fsys := fstest.MapFS{
		"animations/assets/winnerModel.glb": &fstest.MapFile{Data: bundle},
		"animations/assets/loserModel.glb":  &fstest.MapFile{Data: bundle},
	}

	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(fsys), WithLogger(zap.New(core)))

	h.waitState(s, StateComplete)
	assert.Equal(t, 2, logs.FilterMessage("ambient clip not found").Len())
}

func TestSessionProgress(t *testing.T) {
	var mu sync.Mutex
	var seen []float64

	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS(), loader.WithChunkSize(64)),
		WithWorkers(2),
		WithOnProgress(func(p float64) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, p)
		}),
	)
	h.waitState(s, StateAnimating)
	assert.InDelta(t, 100, s.Progress(), 1e-9)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.InDelta(t, 100, seen[len(seen)-1], 1e-9)
}

func TestSessionProfilesTicks(t *testing.T) {
	var clockMu sync.Mutex
	now := time.Unix(0, 0)
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
	prof := profiler.NewProfiler(profiler.WithClock(clock), profiler.WithInterval(time.Nanosecond))

	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()), WithProfiler(prof))
	h.waitState(s, StateAnimating)
	h.host.Step(frameDt)

	require.True(t, prof.Tick())
	stats := prof.Last()
	require.NotNil(t, stats)
	assert.Contains(t, stats.StageAvg, profiler.StageAdvance)
	assert.Contains(t, stats.StageAvg, profiler.StageRender)
}

func TestSessionTeardownDuringTick(t *testing.T) {
	var blockNext atomic.Bool
	entered := make(chan struct{})
	resume := make(chan struct{})
	clock := func() time.Time {
		if blockNext.CompareAndSwap(true, false) {
			close(entered)
			<-resume
		}
		return time.Now()
	}
	prof := profiler.NewProfiler(profiler.WithClock(clock))

	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()), WithProfiler(prof))
	h.waitState(s, StateAnimating)

	// Hold the next tick inside its advance stage and tear down from this goroutine.
	blockNext.Store(true)
	stepped := make(chan struct{})
	go func() {
		defer close(stepped)
		h.host.Step(frameDt)
	}()
	select {
	case <-entered:
	case <-time.After(waitTimeout):
		require.FailNow(t, "tick never started")
	}
	s.Teardown()
	close(resume)
	<-stepped

	assert.NoError(t, s.Err())
	assert.Equal(t, StateAnimating, s.State())
	assert.NotContains(t, h.stateLog(), StateError)
	assert.Equal(t, int32(0), h.completes.Load())
	h.assertReleasedOnce()

	select {
	case <-s.Done():
	default:
		assert.Fail(t, "session not torn down")
	}
}

func TestSessionLogsIdentity(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := newHarness(t)
	s := h.start(fightConfig("Asgard", "punch"), loader.NewFSFetcher(actorFS()), WithLogger(zap.New(core)))

	entries := logs.FilterMessage("session initialized").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session", entries[0].LoggerName)
	ctx := entries[0].ContextMap()
	assert.Equal(t, s.ID(), ctx["session_id"])
	assert.Equal(t, "winner", ctx["winner"])
	assert.Equal(t, "loser", ctx["loser"])
	assert.Equal(t, "Asgard", ctx["location"])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "animating", StateAnimating.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.True(t, StateError.Terminal())
	assert.False(t, StateLoading.Terminal())
}
