package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type size struct{ w, h int }

func TestMonitorForwardsDistinctSizes(t *testing.T) {
	surface := NewFakeSurface(1280, 720)
	m := NewMonitor(surface)

	var got []size
	require.NoError(t, m.Subscribe(func(w, h int) { got = append(got, size{w, h}) }))

	surface.Resize(800, 600)
	surface.Resize(800, 600)
	surface.Resize(0, 0)
	surface.Resize(400, 300)
	surface.Resize(1280, 0)

	assert.Equal(t, []size{{800, 600}, {400, 300}}, got)
	w, h := m.Size()
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, h)
}

func TestMonitorDropsInitialSizeRepeat(t *testing.T) {
	surface := NewFakeSurface(640, 480)
	m := NewMonitor(surface)

	calls := 0
	require.NoError(t, m.Subscribe(func(int, int) { calls++ }))
	surface.Resize(640, 480)
	assert.Zero(t, calls)
}

func TestMonitorSubscribeTwice(t *testing.T) {
	m := NewMonitor(NewFakeSurface(1, 1))
	require.NoError(t, m.Subscribe(func(int, int) {}))
	assert.ErrorIs(t, m.Subscribe(func(int, int) {}), ErrAlreadySubscribed)
}

func TestMonitorUnsubscribe(t *testing.T) {
	surface := NewFakeSurface(100, 100)
	m := NewMonitor(surface)

	calls := 0
	require.NoError(t, m.Subscribe(func(int, int) { calls++ }))
	assert.Equal(t, 1, surface.Subscribers())

	m.Unsubscribe()
	m.Unsubscribe()
	surface.Resize(200, 200)

	assert.Zero(t, calls)
	assert.Zero(t, surface.Subscribers())
	assert.False(t, m.Subscribed())

	require.NoError(t, m.Subscribe(func(int, int) { calls++ }))
	surface.Resize(300, 300)
	assert.Equal(t, 1, calls)
}

func TestMonitorWithoutSurface(t *testing.T) {
	m := NewMonitor(nil)
	require.NoError(t, m.Subscribe(func(int, int) {}))
	assert.True(t, m.Subscribed())
	m.Unsubscribe()
	assert.False(t, m.Subscribed())
}
