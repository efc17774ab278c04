package retry

import (
	"context"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/ai/openrouter"
	"github.com/teranos/capgen/errors"
)

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 350 * time.Millisecond}

	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 350*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 350*time.Millisecond, p.Backoff(10))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &openrouter.StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", errors.Wrap(&openrouter.StatusError{StatusCode: 502}, "OpenRouter API error"), true},
		{"bad request", &openrouter.StatusError{StatusCode: 400}, false},
		{"unauthorized", &openrouter.StatusError{StatusCode: 401}, false},
		{"connection refused errno", errors.Wrap(syscall.ECONNREFUSED, "dial"), true},
		{"reset string", errors.New("read tcp: connection reset by peer"), true},
		{"cancelled", errors.Wrap(context.Canceled, "request"), false},
		{"client timeout", clientTimeout(), true},
		{"wrapped client timeout", errors.NewGenerationError(clientTimeout(), "L2 batch"), true},
		{"marked cancellation", errors.MarkCancelled(clientTimeout()), false},
		{"malformed", errors.NewMalformedResponseError(nil, "not json"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

// clientTimeout is the error net/http returns when http.Client.Timeout fires
// while the caller's own context is still live.
func clientTimeout() error {
	return &url.Error{
		Op:  "Post",
		URL: "https://openrouter.ai/api/v1/chat/completions",
		Err: errors.Wrap(context.DeadlineExceeded, "Client.Timeout exceeded while awaiting headers"),
	}
}

func TestDo_RetriesProviderTimeout(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	calls := 0
	err := Do(context.Background(), p, nil, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return clientTimeout()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ProviderTimeoutExhaustedIsNotCancellation(t *testing.T) {
	p := Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond}

	err := Do(context.Background(), p, nil, func(ctx context.Context) error {
		return clientTimeout()
	})
	require.Error(t, err)
	assert.False(t, errors.IsCancelled(err))
	assert.Equal(t, errors.KindGeneration, errors.KindOf(errors.NewGenerationError(err, "L0 batch")))
}

func TestDo_CancelledContextStopsTimeoutRetries(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, p, nil, func(ctx context.Context) error {
		calls++
		cancel()
		return clientTimeout()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, errors.KindCancelled, errors.KindOf(errors.NewGenerationError(err, "L2 batch")))
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

	calls := 0
	err := Do(context.Background(), p, nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &openrouter.StatusError{StatusCode: 503}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	calls := 0
	err := Do(context.Background(), p, nil, func(ctx context.Context) error {
		calls++
		return &openrouter.StatusError{StatusCode: 400}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUp(t *testing.T) {
	p := Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond}

	calls := 0
	err := Do(context.Background(), p, nil, func(ctx context.Context) error {
		calls++
		return &openrouter.StatusError{StatusCode: 500}
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "gave up after 2 attempts")

	var statusErr *openrouter.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialBackoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, p, nil, func(ctx context.Context) error {
		calls++
		cancel()
		return &openrouter.StatusError{StatusCode: 503}
	})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, 1, calls)
}

func TestWrap(t *testing.T) {
	base := llm.Text("ok")
	_, isRetrying := Wrap(base, NoRetry, nil).(*Client)
	assert.False(t, isRetrying)

	calls := 0
	flaky := llm.Func(func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		calls++
		if calls == 1 {
			return nil, &openrouter.StatusError{StatusCode: 429}
		}
		return &llm.ChatResponse{Content: "ok"}, nil
	})
	client := Wrap(flaky, Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond}, nil)
	resp, err := client.Chat(context.Background(), llm.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, calls)
}
