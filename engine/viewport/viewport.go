// Package viewport observes the host surface's size and forwards changes to one subscriber.
package viewport

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrAlreadySubscribed is returned by Subscribe while a subscription is active.
var ErrAlreadySubscribed = errors.New("viewport monitor already subscribed")

// Surface is the host surface being observed. window.Window satisfies it.
type Surface interface {
	// Size returns the current size in pixels.
	Size() (int, int)

	// OnResize registers callback for size changes and returns a function that removes it.
	OnResize(callback func(width, height int)) func()
}

// monitor is the implementation of the Monitor interface.
type monitor struct {
	mu *sync.Mutex

	surface Surface
	logger  *zap.Logger

	onResize func(width, height int)
	cancel   func()
	lastW    int
	lastH    int
}

// Monitor forwards host surface size changes to a subscriber. Zero-sized reports are dropped,
// as are repeats of the last delivered size, so rapid bursts collapse to distinct sizes only.
type Monitor interface {
	// Subscribe starts forwarding size changes to onResize.
	//
	// Parameters:
	//   - onResize: the callback receiving width and height in pixels
	//
	// Returns:
	//   - error: ErrAlreadySubscribed if a subscription is active
	Subscribe(onResize func(width, height int)) error

	// Unsubscribe stops forwarding. Safe to call more than once.
	Unsubscribe()

	// Subscribed reports whether a subscription is active.
	//
	// Returns:
	//   - bool: true while subscribed
	Subscribed() bool

	// Size returns the last delivered size, or the surface size if nothing was delivered yet.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)
}

var _ Monitor = &monitor{}

// NewMonitor creates an unsubscribed Monitor over surface.
//
// Parameters:
//   - surface: the host surface
//   - options: variadic list of MonitorBuilderOption functions
//
// Returns:
//   - Monitor: the monitor
func NewMonitor(surface Surface, options ...MonitorBuilderOption) Monitor {
	m := &monitor{
		mu:      &sync.Mutex{},
		surface: surface,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *monitor) Subscribe(onResize func(width, height int)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return ErrAlreadySubscribed
	}
	if onResize == nil {
		return errors.New("resize callback is required")
	}
	m.onResize = onResize
	if m.surface != nil {
		m.lastW, m.lastH = m.surface.Size()
		m.cancel = m.surface.OnResize(m.handle)
	} else {
		m.cancel = func() {}
	}
	return nil
}

func (m *monitor) Unsubscribe() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.onResize = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (m *monitor) Subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *monitor) Size() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastW == 0 && m.lastH == 0 && m.surface != nil {
		return m.surface.Size()
	}
	return m.lastW, m.lastH
}

// handle filters a raw surface report and delivers it outside the lock.
func (m *monitor) handle(width, height int) {
	m.mu.Lock()
	fn := m.onResize
	if fn == nil {
		m.mu.Unlock()
		return
	}
	if width <= 0 || height <= 0 {
		m.mu.Unlock()
		m.logger.Debug("ignoring zero-sized viewport", zap.Int("width", width), zap.Int("height", height))
		return
	}
	if width == m.lastW && height == m.lastH {
		m.mu.Unlock()
		return
	}
	m.lastW, m.lastH = width, height
	m.mu.Unlock()

	m.logger.Debug("viewport resized", zap.Int("width", width), zap.Int("height", height))
	fn(width, height)
}
