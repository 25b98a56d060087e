// Package scheduler drives per-frame work on a single host loop.
package scheduler

// FrameID identifies a pending frame request. Zero is never issued.
type FrameID uint64

// FrameFunc is a one-shot frame callback receiving the seconds elapsed since the previous frame.
type FrameFunc func(dt float32)

// Host owns the loop goroutine that every frame callback and posted task runs on.
// Implementations must be safe to call from any goroutine.
type Host interface {
	// RequestFrame schedules fn to run once on the next frame.
	//
	// Parameters:
	//   - fn: the callback to run
	//
	// Returns:
	//   - FrameID: an id that can be passed to CancelFrame
	RequestFrame(fn FrameFunc) FrameID

	// CancelFrame drops a pending frame request. Unknown or already run ids are ignored.
	//
	// Parameters:
	//   - id: the request to drop
	CancelFrame(id FrameID)

	// Post queues fn to run on the loop before the next frame.
	//
	// Parameters:
	//   - fn: the task to run
	Post(fn func())
}
