// Package pulse holds the runtime plumbing shared by long-running
// generation work: progress reporting here, pacing in pulse/budget and
// bounded retries in pulse/retry.
package pulse

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Progress is one step of a long-running operation.
type Progress struct {
	Stage     string        `json:"stage"`
	Current   int           `json:"current"`
	Total     int           `json:"total"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"` // 0 when unknown or done
}

// Percent returns completion in 0..100
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// ProgressObserver receives progress updates. Implementations must be safe
// for concurrent use; updates may arrive from worker goroutines.
type ProgressObserver interface {
	OnProgress(p Progress)
}

// ObserverFunc adapts a function to ProgressObserver
type ObserverFunc func(p Progress)

// OnProgress calls f(p)
func (f ObserverFunc) OnProgress(p Progress) { f(p) }

// EstimateRemaining extrapolates the time left from the average time per
// completed item. Returns 0 when nothing has completed yet or all items are done.
func EstimateRemaining(current, total int, elapsed time.Duration) time.Duration {
	if current <= 0 || current >= total {
		return 0
	}
	perItem := elapsed / time.Duration(current)
	return perItem * time.Duration(total-current)
}

// Tracker counts completed items for one stage and notifies an observer
// after each one.
type Tracker struct {
	mu       sync.Mutex
	stage    string
	total    int
	current  int
	start    time.Time
	observer ProgressObserver
	now      func() time.Time
}

// NewTracker starts the clock for a stage of total items. observer may be nil.
func NewTracker(stage string, total int, observer ProgressObserver) *Tracker {
	return newTrackerWithClock(stage, total, observer, time.Now)
}

func newTrackerWithClock(stage string, total int, observer ProgressObserver, now func() time.Time) *Tracker {
	return &Tracker{
		stage:    stage,
		total:    total,
		start:    now(),
		observer: observer,
		now:      now,
	}
}

// Done records one completed item and returns the resulting progress.
func (t *Tracker) Done() Progress {
	t.mu.Lock()
	t.current++
	elapsed := t.now().Sub(t.start)
	p := Progress{
		Stage:     t.stage,
		Current:   t.current,
		Total:     t.total,
		Elapsed:   elapsed,
		Remaining: EstimateRemaining(t.current, t.total, elapsed),
	}
	// Notify under the lock so observers see a monotonic sequence
	if t.observer != nil {
		t.observer.OnProgress(p)
	}
	t.mu.Unlock()
	return p
}

// Elapsed returns time since the tracker started
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// MultiObserver fans progress out to several observers. Nil entries are skipped.
func MultiObserver(observers ...ProgressObserver) ProgressObserver {
	var nonNil []ProgressObserver
	for _, o := range observers {
		if o != nil {
			nonNil = append(nonNil, o)
		}
	}
	return ObserverFunc(func(p Progress) {
		for _, o := range nonNil {
			o.OnProgress(p)
		}
	})
}

// LogObserver writes each update at info level.
func LogObserver(logger *zap.SugaredLogger) ProgressObserver {
	return ObserverFunc(func(p Progress) {
		logger.Infow("Progress",
			"stage", p.Stage,
			"current", p.Current,
			"total", p.Total,
			"elapsed", p.Elapsed.Round(time.Second).String(),
			"remaining", p.Remaining.Round(time.Second).String(),
		)
	})
}
