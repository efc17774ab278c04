package budget

import (
	"context"
	"time"

	"github.com/teranos/capgen/ai/llm"
)

// Throttle holds the pacing rules applied to a client.
type Throttle struct {
	Pause             time.Duration // minimum gap between calls, 0 = none
	RequestsPerMinute int           // sliding-window cap, 0 = unlimited
}

// ThrottledClient delays each call until the pacer and limiter allow it.
type ThrottledClient struct {
	next    llm.Client
	pacer   *Pacer
	limiter *Limiter
}

// Wrap returns next unchanged when t imposes no limits.
func Wrap(next llm.Client, t Throttle) llm.Client {
	if t.Pause <= 0 && t.RequestsPerMinute <= 0 {
		return next
	}
	tc := &ThrottledClient{next: next, pacer: NewPacer(t.Pause)}
	if t.RequestsPerMinute > 0 {
		tc.limiter = NewLimiter(t.RequestsPerMinute)
	}
	return tc
}

// Chat waits for a slot, then delegates
func (c *ThrottledClient) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return c.next.Chat(ctx, req)
}

var _ llm.Client = (*ThrottledClient)(nil)
