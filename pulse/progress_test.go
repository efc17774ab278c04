package pulse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEstimateRemaining(t *testing.T) {
	assert.Equal(t, time.Duration(0), EstimateRemaining(0, 10, time.Minute))
	assert.Equal(t, time.Duration(0), EstimateRemaining(10, 10, time.Minute))
	assert.Equal(t, 8*time.Second, EstimateRemaining(2, 10, 2*time.Second))
	assert.Equal(t, 30*time.Second, EstimateRemaining(1, 4, 10*time.Second))
}

func TestProgress_Percent(t *testing.T) {
	assert.Equal(t, 50.0, Progress{Current: 2, Total: 4}.Percent())
	assert.Equal(t, 0.0, Progress{Current: 2}.Percent())
}

func TestTracker_Done(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	var got []Progress
	tr := newTrackerWithClock("l2", 3, ObserverFunc(func(p Progress) { got = append(got, p) }), clock)

	now = now.Add(2 * time.Second)
	tr.Done()
	now = now.Add(2 * time.Second)
	tr.Done()
	now = now.Add(2 * time.Second)
	last := tr.Done()

	require.Len(t, got, 3)
	assert.Equal(t, Progress{Stage: "l2", Current: 1, Total: 3, Elapsed: 2 * time.Second, Remaining: 4 * time.Second}, got[0])
	assert.Equal(t, 2, got[1].Current)
	assert.Equal(t, 2*time.Second, got[1].Remaining)
	assert.Equal(t, 3, last.Current)
	assert.Equal(t, time.Duration(0), last.Remaining)
}

func TestTracker_ConcurrentDoneIsMonotonic(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	tr := NewTracker("l2", 50, ObserverFunc(func(p Progress) {
		mu.Lock()
		seen = append(seen, p.Current)
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Done()
		}()
	}
	wg.Wait()

	require.Len(t, seen, 50)
	for i, c := range seen {
		assert.Equal(t, i+1, c)
	}
}

func TestMultiObserver(t *testing.T) {
	var a, b int
	obs := MultiObserver(
		ObserverFunc(func(p Progress) { a += p.Current }),
		nil,
		ObserverFunc(func(p Progress) { b += p.Total }),
	)
	obs.OnProgress(Progress{Current: 1, Total: 5})
	assert.Equal(t, 1, a)
	assert.Equal(t, 5, b)
}

func TestLogObserver(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	LogObserver(zap.New(core).Sugar()).OnProgress(Progress{Stage: "l2", Current: 1, Total: 2})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "l2", fields["stage"])
	assert.EqualValues(t, 1, fields["current"])
}
