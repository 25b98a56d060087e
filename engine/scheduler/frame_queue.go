package scheduler

import "sync"

type pendingFrame struct {
	id FrameID
	fn FrameFunc
}

// FrameQueue is the bookkeeping shared by Host implementations: pending frame requests
// and posted tasks, both in FIFO order. The zero value is ready to use.
type FrameQueue struct {
	mu     sync.Mutex
	next   FrameID
	frames []pendingFrame
	posted []func()
}

// RequestFrame implements Host.
func (q *FrameQueue) RequestFrame(fn FrameFunc) FrameID {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	q.frames = append(q.frames, pendingFrame{id: q.next, fn: fn})
	return q.next
}

// CancelFrame implements Host.
func (q *FrameQueue) CancelFrame(id FrameID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, f := range q.frames {
		if f.id == id {
			q.frames = append(q.frames[:i], q.frames[i+1:]...)
			return
		}
	}
}

// Post implements Host.
func (q *FrameQueue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.posted = append(q.posted, fn)
}

// RunPosted runs queued tasks until none remain, including tasks posted by those tasks.
//
// Returns:
//   - int: the number of tasks run
func (q *FrameQueue) RunPosted() int {
	n := 0
	for {
		q.mu.Lock()
		tasks := q.posted
		q.posted = nil
		q.mu.Unlock()

		if len(tasks) == 0 {
			return n
		}
		for _, task := range tasks {
			task()
			n++
		}
	}
}

// RunFrames runs every frame requested before the call. Frames requested by those
// callbacks wait for the next call.
//
// Parameters:
//   - dt: seconds since the previous frame
//
// Returns:
//   - int: the number of frame callbacks run
func (q *FrameQueue) RunFrames(dt float32) int {
	q.mu.Lock()
	frames := q.frames
	q.frames = nil
	q.mu.Unlock()

	for _, f := range frames {
		f.fn(dt)
	}
	return len(frames)
}

// PendingFrames returns the number of frame requests waiting to run.
func (q *FrameQueue) PendingFrames() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// PendingPosts returns the number of posted tasks waiting to run.
func (q *FrameQueue) PendingPosts() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.posted)
}
