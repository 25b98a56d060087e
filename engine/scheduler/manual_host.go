package scheduler

import "time"

// ManualHost is a Host whose loop is driven by the caller, one Step at a time.
// It is meant for tests and for headless tools that want deterministic frame timing.
type ManualHost struct {
	FrameQueue
}

var _ Host = &ManualHost{}

// NewManualHost creates an idle ManualHost.
//
// Returns:
//   - *ManualHost: the host
func NewManualHost() *ManualHost {
	return &ManualHost{}
}

// Step runs posted tasks and then one frame.
//
// Parameters:
//   - dt: the frame delta in seconds
//
// Returns:
//   - int: the number of frame callbacks run
func (h *ManualHost) Step(dt float32) int {
	h.RunPosted()
	return h.RunFrames(dt)
}

// Drain runs posted tasks without advancing a frame.
//
// Returns:
//   - int: the number of tasks run
func (h *ManualHost) Drain() int {
	return h.RunPosted()
}

// RunUntil steps the host with a fixed dt until cond holds or timeout elapses. Tasks
// posted from other goroutines are picked up between steps.
//
// Parameters:
//   - cond: the condition to wait for, evaluated on the calling goroutine
//   - dt: the frame delta for each step
//   - timeout: the wall-clock limit
//
// Returns:
//   - bool: true if cond held before the timeout
func (h *ManualHost) RunUntil(cond func() bool, dt float32, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		if h.Step(dt) == 0 && h.PendingPosts() == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}
