package scheduler

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning is returned by Start while the scheduler is running.
	ErrAlreadyRunning = errors.New("frame scheduler already running")

	// ErrNoHost is returned by Start when the scheduler has no host.
	ErrNoHost = errors.New("frame scheduler has no host")
)

// TickFunc is the per-frame work. tick counts from 1 and increases by one per frame.
type TickFunc func(tick uint64, dt float32) error

// frameScheduler is the implementation of the FrameScheduler interface.
type frameScheduler struct {
	mu *sync.Mutex

	host    Host
	logger  *zap.Logger
	onError func(error)

	tick       TickFunc
	running    bool
	generation uint64
	pending    FrameID
	count      uint64
}

// FrameScheduler repeatedly requests frames from a Host and runs a TickFunc in each.
// A tick that returns an error or panics stops the scheduler and is reported to the
// error handler; the frame after a Stop never runs.
type FrameScheduler interface {
	// Start begins requesting frames.
	//
	// Parameters:
	//   - tick: the per-frame work
	//
	// Returns:
	//   - error: ErrAlreadyRunning or ErrNoHost
	Start(tick TickFunc) error

	// Stop cancels the pending frame. Safe to call from inside a tick and more than once.
	Stop()

	// Running reports whether frames are being requested.
	//
	// Returns:
	//   - bool: true between Start and Stop
	Running() bool

	// Ticks returns the number of ticks run since construction.
	//
	// Returns:
	//   - uint64: the tick count
	Ticks() uint64
}

var _ FrameScheduler = &frameScheduler{}

// NewFrameScheduler creates a stopped FrameScheduler on host.
//
// Parameters:
//   - host: the loop that runs the frames
//   - options: variadic list of FrameSchedulerBuilderOption functions
//
// Returns:
//   - FrameScheduler: the scheduler
func NewFrameScheduler(host Host, options ...FrameSchedulerBuilderOption) FrameScheduler {
	s := &frameScheduler{
		mu:     &sync.Mutex{},
		host:   host,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *frameScheduler) Start(tick TickFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host == nil {
		return ErrNoHost
	}
	if s.running {
		return ErrAlreadyRunning
	}
	s.tick = tick
	s.running = true
	s.generation++
	s.pending = s.host.RequestFrame(s.frame(s.generation))
	return nil
}

func (s *frameScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.host.CancelFrame(s.pending)
	s.pending = 0
}

func (s *frameScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *frameScheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// frame returns the callback for one frame of the given run. A stale generation means
// the scheduler was stopped (and possibly restarted) after the request was made.
func (s *frameScheduler) frame(generation uint64) FrameFunc {
	return func(dt float32) {
		s.mu.Lock()
		if !s.running || s.generation != generation {
			s.mu.Unlock()
			return
		}
		s.pending = 0
		s.count++
		tick, fn := s.count, s.tick
		s.mu.Unlock()

		if err := s.runTick(fn, tick, dt); err != nil {
			s.Stop()
			if s.onError != nil {
				s.onError(err)
			}
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.running && s.generation == generation {
			s.pending = s.host.RequestFrame(s.frame(generation))
		}
	}
}

// runTick runs fn, converting a panic into an error.
func (s *frameScheduler) runTick(fn TickFunc, tick uint64, dt float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("frame tick recovered from panic", zap.Uint64("tick", tick), zap.Any("panic", r))
			err = fmt.Errorf("tick %d panicked: %v", tick, r)
		}
	}()
	if fn == nil {
		return nil
	}
	return fn(tick, dt)
}
