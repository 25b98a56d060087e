package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage names recorded by the vignette frame loop.
const (
	StageAdvance = "advance"
	StageRender  = "render"
)

// Stats is one interval summary.
type Stats struct {
	// FPS is the frame rate over the interval.
	FPS float64

	// StageAvg is the mean duration of each recorded stage per frame.
	StageAvg map[string]time.Duration

	// HeapMB is the live heap at the end of the interval.
	HeapMB float64

	// AllocRateMB is the heap allocation rate in MB/s over the interval.
	AllocRateMB float64

	// GCCount is the total number of completed GC cycles.
	GCCount uint32

	// MaxPauseUs is the longest GC pause during the interval, in microseconds.
	MaxPauseUs uint64
}

// Profiler tracks frame rate, per-stage timings and memory statistics.
// Logs a summary at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	logger         *zap.Logger
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	stageTotals    map[string]time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           *Stats
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		logger:         zap.NewNop(),
		now:            time.Now,
		updateInterval: time.Second,
		stageTotals:    make(map[string]time.Duration),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Measure runs fn and adds its duration to the named stage.
//
// Parameters:
//   - stage: the stage name, such as StageAdvance
//   - fn: the work to time
//
// Returns:
//   - error: the error returned by fn
func (p *Profiler) Measure(stage string, fn func() error) error {
	start := p.now()
	err := fn()
	p.Record(stage, p.now().Sub(start))
	return err
}

// Record adds d to the named stage for the current interval.
//
// Parameters:
//   - stage: the stage name
//   - d: the elapsed time
func (p *Profiler) Record(stage string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stageTotals[stage] += d
}

// Tick should be called once per frame to track frame timing.
// Logs statistics when the update interval has elapsed: FPS, per-stage averages,
// heap usage, allocation rate and GC pauses.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	stats := Stats{
		FPS:      float64(p.frameCount) / elapsed.Seconds(),
		StageAvg: make(map[string]time.Duration, len(p.stageTotals)),
	}
	for stage, total := range p.stageTotals {
		stats.StageAvg[stage] = total / time.Duration(p.frameCount)
	}

	runtime.ReadMemStats(&p.memStats)
	stats.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	stats.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		if pause := p.memStats.PauseNs[i%256] / 1000; pause > stats.MaxPauseUs {
			stats.MaxPauseUs = pause
		}
	}
	stats.GCCount = gcCount

	fields := []zap.Field{
		zap.Float64("fps", stats.FPS),
		zap.Float64("heap_mb", stats.HeapMB),
		zap.Float64("alloc_rate_mb_s", stats.AllocRateMB),
		zap.Uint32("gc", stats.GCCount),
		zap.Uint64("gc_max_pause_us", stats.MaxPauseUs),
	}
	stages := make([]string, 0, len(stats.StageAvg))
	for stage := range stats.StageAvg {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		fields = append(fields, zap.Duration(stage+"_avg", stats.StageAvg[stage]))
	}
	p.logger.Info("frame stats", fields...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.stageTotals = make(map[string]time.Duration)
	p.last = &stats
	return true
}

// Last returns the most recent interval summary, or nil before the first one.
//
// Returns:
//   - *Stats: a copy of the last summary
func (p *Profiler) Last() *Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	cp := *p.last
	return &cp
}
