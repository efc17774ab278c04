// Package budget keeps model calls within the pace and rate configured for
// the L2 attachment pass.
package budget

import (
	"context"
	"sync"
	"time"
)

// minRetry bounds the spin when another waiter takes a freed slot first.
const minRetry = 10 * time.Millisecond

// Limiter caps calls per minute over a sliding window. Providers such as the
// Gemini free tier count requests per rolling minute, which a token bucket
// over-admits at the window edge.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	calls []time.Time // ascending
}

// NewLimiter creates a limiter allowing perMinute calls per rolling minute.
func NewLimiter(perMinute int) *Limiter {
	return NewLimiterWithClock(perMinute, time.Now)
}

// NewLimiterWithClock is NewLimiter with an injectable clock.
func NewLimiterWithClock(perMinute int, now func() time.Time) *Limiter {
	return &Limiter{max: perMinute, window: time.Minute, now: now, calls: make([]time.Time, 0, perMinute)}
}

// Allow records a call if the window has room.
func (l *Limiter) Allow() bool {
	return l.reserve() == 0
}

// Wait blocks until a call is admitted or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait == 0 {
			return nil
		}
		timer := time.NewTimer(max(wait, minRetry))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InWindow returns the number of calls admitted in the current window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expire(l.now())
	return len(l.calls)
}

// reserve admits a call and returns 0, or returns how long until the oldest
// call leaves the window.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.expire(now)
	if len(l.calls) >= l.max {
		if wait := l.calls[0].Add(l.window).Sub(now); wait > 0 {
			return wait
		}
		return minRetry
	}
	l.calls = append(l.calls, now)
	return 0
}

func (l *Limiter) expire(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	l.calls = l.calls[i:]
}
