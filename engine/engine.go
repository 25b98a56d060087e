package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-vignette/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/window"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// It owns the host loop: window events, posted tasks and frame requests all run on it.
type engine struct {
	scheduler.FrameQueue

	mu      *sync.Mutex
	running bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window
	logger *zap.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameLimit time.Duration // minimum frame duration; 0 = uncapped
	idleSleep  time.Duration // pause when there is nothing to do
}

// Engine is the production frame host. Run blocks the calling goroutine, which must be the
// one the window was created on, and services window events, posted tasks and frame requests
// until Quit is called or the window closes.
type Engine interface {
	scheduler.Host

	// Window returns the underlying window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Profiler returns the frame profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop.
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetFrameLimit(fps float64)

	// Run starts the host loop and blocks until Quit is called or the window closes.
	//
	// Returns:
	//   - error: an error if the loop stopped because of a recovered panic
	Run() error

	// Quit signals the loop to stop after the current iteration.
	// Safe to call multiple times and from any goroutine; subsequent calls are no-ops.
	Quit()

	// Done returns a channel closed once Quit has been called.
	//
	// Returns:
	//   - <-chan struct{}: the quit channel
	Done() <-chan struct{}
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (window, profiling, frame limit, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:          &sync.Mutex{},
		quitChannel: make(chan struct{}),
		logger:      zap.NewNop(),
		frameLimit:  time.Second / 60,
		idleSleep:   time.Millisecond,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the loop.
func (e *engine) SetFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameLimit = frameDuration(fps)
}

func (e *engine) Done() <-chan struct{} {
	return e.quitChannel
}

// Quit signals the loop to exit.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Run() (err error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()
	// Recover from panics inside the loop so the caller still gets to tear down.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("host loop recovered from panic", zap.Any("panic", r))
			err = fmt.Errorf("host loop panicked: %v", r)
			e.Quit()
		}
	}()

	lastFrame := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return nil
		default:
		}

		if e.window != nil && !e.window.PollEvents() {
			e.Quit()
			continue
		}
		e.RunPosted()

		if e.PendingFrames() == 0 {
			time.Sleep(e.idleSleep)
			continue
		}

		now := time.Now()
		dt := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now
		e.RunFrames(dt)

		e.mu.Lock()
		profiling, limit := e.profilingEnabled, e.frameLimit
		e.mu.Unlock()
		if profiling {
			e.profiler.Tick()
		}

		// Frame rate limiting
		if limit > 0 {
			if remaining := limit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// frameDuration converts a frame rate into a frame duration; fps <= 0 means uncapped.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
