package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runEngine(t *testing.T, e Engine) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	return done
}

func TestHeadlessEngineRunsPostsAndFrames(t *testing.T) {
	e := NewEngine(WithFrameLimit(0))
	done := runEngine(t, e)

	var frames atomic.Int32
	var request func(float32)
	request = func(float32) {
		if frames.Add(1) < 3 {
			e.RequestFrame(request)
			return
		}
		e.Quit()
	}
	e.Post(func() { e.RequestFrame(request) })

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not quit")
	}
	assert.Equal(t, int32(3), frames.Load())
}

func TestEngineQuitIsIdempotent(t *testing.T) {
	e := NewEngine()
	e.Quit()
	e.Quit()

	select {
	case <-e.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.NoError(t, e.Run())
}

func TestEngineRecoversPanic(t *testing.T) {
	e := NewEngine(WithFrameLimit(0))
	e.RequestFrame(func(float32) { panic("frame exploded") })

	err := e.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame exploded")
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Equal(t, 20*time.Millisecond, frameDuration(50))
}
