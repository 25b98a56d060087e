package viewport

import (
	"slices"
	"sync"
)

// FakeSurface is an in-memory Surface for tests and headless runs. Resize delivers
// synchronously to every registered callback.
type FakeSurface struct {
	mu     sync.Mutex
	width  int
	height int
	next   int
	subs   map[int]func(width, height int)
}

var _ Surface = &FakeSurface{}

// NewFakeSurface creates a FakeSurface of the given size.
//
// Parameters:
//   - width, height: the initial size in pixels
//
// Returns:
//   - *FakeSurface: the surface
func NewFakeSurface(width, height int) *FakeSurface {
	return &FakeSurface{width: width, height: height, subs: make(map[int]func(int, int))}
}

// Size implements Surface.
func (s *FakeSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// OnResize implements Surface.
func (s *FakeSurface) OnResize(callback func(width, height int)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.subs[id] = callback
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Resize changes the size and notifies subscribers in registration order.
//
// Parameters:
//   - width, height: the new size in pixels
func (s *FakeSurface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(int, int), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(width, height)
	}
}

// Subscribers returns the number of registered callbacks.
func (s *FakeSurface) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
