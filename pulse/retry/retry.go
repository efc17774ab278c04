// Package retry wraps model calls in a bounded exponential backoff.
package retry

import (
	"context"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/errors"
)

// Policy bounds the retry loop. MaxAttempts counts the first call, so 1
// disables retries.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NoRetry makes exactly one attempt.
var NoRetry = Policy{MaxAttempts: 1}

// Backoff returns the delay before retry number attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.InitialBackoff <= 0 {
		return 0
	}
	delay := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxBackoff > 0 && delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

// httpStatuser is implemented by provider errors that carry an HTTP status.
type httpStatuser interface {
	HTTPStatus() int
}

// IsRetryable reports whether err is worth another attempt: network
// failures and timeouts, 429 and 5xx responses. A marked run cancellation
// never is. Do checks the caller's context separately, so a timeout here is
// the provider's own.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, errors.ErrCancelled) {
		return false
	}

	var status httpStatuser
	if errors.As(err, &status) {
		code := status.HTTPStatus()
		return code == http.StatusTooManyRequests || code >= 500
	}

	// http.Client.Timeout surfaces as a *url.Error that also wraps
	// context.DeadlineExceeded
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.IsCancelled(err) {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT:
			return true
		}
	}

	// Check for common network error strings
	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection reset by peer",
		"connection refused",
		"temporary failure",
		"network is unreachable",
		"i/o timeout",
	}
	for _, s := range networkErrors {
		if strings.Contains(errStr, s) {
			return true
		}
	}

	return false
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. The backoff sleep honours ctx.
func Do(ctx context.Context, p Policy, logger *zap.SugaredLogger, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.Backoff(attempt)
			logger.Debugw("Retrying model call", "attempt", attempt+1, "max_attempts", attempts, "delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.MarkCancelled(errors.WithSecondaryError(ctx.Err(), err))
			case <-timer.C:
			}
		}

		err = fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Infow("Model call succeeded after retries", "attempts", attempt+1)
			}
			return nil
		}
		if ctx.Err() != nil {
			return errors.MarkCancelled(err)
		}
		if !IsRetryable(err) {
			return err
		}
		logger.Warnw("Retryable model call failure", "attempt", attempt+1, "max_attempts", attempts, "error", err)
	}

	if attempts > 1 {
		return errors.Wrapf(err, "gave up after %d attempts", attempts)
	}
	return err
}

// Client retries the wrapped client's Chat under a policy.
type Client struct {
	next   llm.Client
	policy Policy
	logger *zap.SugaredLogger
}

// Wrap returns next unchanged when the policy allows a single attempt.
func Wrap(next llm.Client, p Policy, logger *zap.SugaredLogger) llm.Client {
	if p.MaxAttempts <= 1 {
		return next
	}
	return &Client{next: next, policy: p, logger: logger}
}

// Chat implements llm.Client
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	var resp *llm.ChatResponse
	err := Do(ctx, c.policy, c.logger, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.next.Chat(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

var _ llm.Client = (*Client)(nil)
