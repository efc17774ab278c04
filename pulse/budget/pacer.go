package budget

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces successive calls at least gap apart. A zero gap never blocks.
type Pacer struct {
	limiter *rate.Limiter
	gap     time.Duration
}

// NewPacer creates a pacer for the given minimum gap between calls
func NewPacer(gap time.Duration) *Pacer {
	if gap <= 0 {
		return &Pacer{}
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(gap), 1),
		gap:     gap,
	}
}

// Wait blocks until the next call may start
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Gap returns the configured minimum gap
func (p *Pacer) Gap() time.Duration {
	if p == nil {
		return 0
	}
	return p.gap
}
