package loader

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-vignette/common"
)

// TotalUnits is the fixed size of one load's progress scale.
const TotalUnits int64 = 1000

// Share of the progress scale given to each load phase. Uploading fills the rest up to
// TotalUnits-1; the last unit is reported only when the load resolves.
const (
	fetchUnits  int64 = 800
	decodeUnits int64 = 50
)

// Progress is the state of one load request.
type Progress struct {
	LoadedUnits int64
	TotalUnits  int64
}

// Percent returns the completed share in [0, 100].
func (p Progress) Percent() float64 {
	return common.Percent(p.LoadedUnits, p.TotalUnits)
}

// Done reports whether the load has resolved successfully.
func (p Progress) Done() bool {
	return p.TotalUnits > 0 && p.LoadedUnits >= p.TotalUnits
}

// ProgressFunc receives progress for the named actor.
type ProgressFunc func(actorID string, p Progress)

// progressReporter forwards a single request's progress while keeping it monotonic
// and below TotalUnits until complete is called.
type progressReporter struct {
	mu      sync.Mutex
	actorID string
	fn      ProgressFunc
	last    int64
}

func newProgressReporter(actorID string, fn ProgressFunc) *progressReporter {
	return &progressReporter{actorID: actorID, fn: fn, last: -1}
}

// report emits units if they advance the last reported value. Values are capped at TotalUnits-1.
func (r *progressReporter) report(units int64) {
	r.emit(min(max(units, 0), TotalUnits-1))
}

// complete emits TotalUnits.
func (r *progressReporter) complete() {
	r.emit(TotalUnits)
}

func (r *progressReporter) emit(units int64) {
	r.mu.Lock()
	if units <= r.last {
		r.mu.Unlock()
		return
	}
	r.last = units
	fn := r.fn
	r.mu.Unlock()

	if fn != nil {
		fn(r.actorID, Progress{LoadedUnits: units, TotalUnits: TotalUnits})
	}
}

// fetchProgress maps bytes received onto the fetch phase.
func fetchProgress(loaded, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return min(loaded, total) * fetchUnits / total
}

// uploadProgress maps uploaded items onto the upload phase.
func uploadProgress(done, total int) int64 {
	base := fetchUnits + decodeUnits
	if total <= 0 {
		return base
	}
	return base + int64(done)*(TotalUnits-1-base)/int64(total)
}

// ProgressTracker aggregates per-request progress. The aggregate is the mean of the
// per-request percentages; requests that have reported nothing count as zero.
type ProgressTracker struct {
	mu       sync.Mutex
	order    []string
	progress map[string]Progress
}

// NewProgressTracker creates a tracker for the given actors.
//
// Parameters:
//   - actorIDs: the actors whose loads are tracked
//
// Returns:
//   - *ProgressTracker: the tracker
func NewProgressTracker(actorIDs ...string) *ProgressTracker {
	t := &ProgressTracker{progress: make(map[string]Progress, len(actorIDs))}
	for _, id := range actorIDs {
		if _, ok := t.progress[id]; ok {
			continue
		}
		t.order = append(t.order, id)
		t.progress[id] = Progress{TotalUnits: TotalUnits}
	}
	return t
}

// Update records progress for one actor and returns the new aggregate percentage.
// Updates for unknown actors or that move backwards are ignored.
//
// Parameters:
//   - actorID: the reporting actor
//   - p: its latest progress
//
// Returns:
//   - float64: the aggregate percentage in [0, 100]
func (t *ProgressTracker) Update(actorID string, p Progress) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.progress[actorID]; ok && p.Percent() > cur.Percent() {
		t.progress[actorID] = p
	}
	return t.percentLocked()
}

// Percent returns the aggregate percentage in [0, 100].
func (t *ProgressTracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percentLocked()
}

// Get returns the latest progress of one actor.
func (t *ProgressTracker) Get(actorID string) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.progress[actorID]
	return p, ok
}

func (t *ProgressTracker) percentLocked() float64 {
	if len(t.order) == 0 {
		return 0
	}
	var sum float64
	for _, id := range t.order {
		sum += t.progress[id].Percent()
	}
	return sum / float64(len(t.order))
}
