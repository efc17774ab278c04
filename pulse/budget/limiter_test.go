package budget

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_CapsWindow(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := NewLimiterWithClock(10, clock.Now)

	admitted := 0
	for i := 0; i < 15; i++ {
		if l.Allow() {
			admitted++
		}
		clock.Advance(10 * time.Millisecond)
	}
	assert.Equal(t, 10, admitted)
	assert.Equal(t, 10, l.InWindow())
}

func TestLimiter_SlidingWindow(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := NewLimiterWithClock(3, clock.Now)
	for i := 0; i < 3; i++ {
		require.True(t, l.Allow())
	}

	clock.Advance(30 * time.Second)
	assert.False(t, l.Allow())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 0, l.InWindow())
	assert.True(t, l.Allow())
}

func TestLimiter_ReserveReportsWait(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := NewLimiterWithClock(1, clock.Now)
	require.True(t, l.Allow())

	clock.Advance(45 * time.Second)
	assert.Equal(t, 15*time.Second, l.reserve())
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(100)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if l.Allow() {
					admitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(100), admitted.Load())
}

func TestLimiter_WaitUnderLimit(t *testing.T) {
	l := NewLimiter(5)
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiter_WaitCancelled(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := NewLimiterWithClock(1, clock.Now)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}
