package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := New("connection reset")
	err := Wrapf(cause, "L2 batch for %q", "Store Operations")

	assert.Equal(t, `L2 batch for "Store Operations": connection reset`, err.Error())
	assert.True(t, Is(err, cause))
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func TestAsThroughWrapping(t *testing.T) {
	err := Wrap(WithStack(&statusError{code: 429}), "OpenRouter API error")

	var se *statusError
	require.True(t, As(err, &se))
	assert.Equal(t, 429, se.code)
}

func TestStackTraceIsRecorded(t *testing.T) {
	err := New("boom")
	assert.True(t, strings.Contains(fmt.Sprintf("%+v", err), "errors_test.go"))
}

func TestInvalidRequest(t *testing.T) {
	err := NewInvalidRequestError("industry must be at most %d characters", 200)

	assert.True(t, IsInvalidRequestError(err))
	assert.False(t, IsServiceUnavailableError(err))
	assert.Equal(t, []string{"industry must be at most 200 characters"}, GetAllHints(err))
	assert.False(t, IsInvalidRequestError(nil))
}

func TestServiceUnavailable(t *testing.T) {
	err := Wrap(ErrServiceUnavailable, "server draining")
	assert.True(t, IsServiceUnavailableError(err))
	assert.False(t, IsServiceUnavailableError(New("service unavailable elsewhere")))
}

func TestHintsAccumulate(t *testing.T) {
	err := WithHint(WithHint(New("no key"), "set GEMINI_API_KEY"), "or pick --provider local")
	assert.ElementsMatch(t, []string{"set GEMINI_API_KEY", "or pick --provider local"}, GetAllHints(err))
}

func TestJoinKeepsBoth(t *testing.T) {
	a, b := New("config"), New("viper")
	err := Join(a, b)
	assert.True(t, Is(err, a))
	assert.True(t, Is(err, b))
}

func TestNilPassesThrough(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, WithHint(nil, "ignored"))
	assert.False(t, Is(nil, ErrInvalidRequest))
}
