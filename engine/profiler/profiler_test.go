package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProfilerSummarizesInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithLogger(zap.New(core)), WithClock(clock.now))

	for i := 0; i < 4; i++ {
		require.NoError(t, p.Measure(StageAdvance, func() error {
			clock.advance(2 * time.Millisecond)
			return nil
		}))
		p.Record(StageRender, 8*time.Millisecond)
		clock.advance(248 * time.Millisecond)
		logged := p.Tick()
		assert.Equal(t, i == 3, logged)
	}

	stats := p.Last()
	require.NotNil(t, stats)
	assert.InDelta(t, 4.0, stats.FPS, 1e-9)
	assert.Equal(t, 2*time.Millisecond, stats.StageAvg[StageAdvance])
	assert.Equal(t, 8*time.Millisecond, stats.StageAvg[StageRender])

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "frame stats", entry.Message)
	assert.Contains(t, entry.ContextMap(), "render_avg")
}

func TestProfilerResetsAfterSummary(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(100*time.Millisecond))

	assert.Nil(t, p.Last())
	p.Record(StageRender, time.Millisecond)
	clock.advance(100 * time.Millisecond)
	require.True(t, p.Tick())

	clock.advance(100 * time.Millisecond)
	require.True(t, p.Tick())
	_, ok := p.Last().StageAvg[StageRender]
	assert.False(t, ok)
}
