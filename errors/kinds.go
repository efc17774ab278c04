package errors

import (
	"context"
)

// Kind names a class of pipeline failure. It is stable and safe to expose.
type Kind string

const (
	KindGeneration        Kind = "generation_error"
	KindMalformedResponse Kind = "malformed_response"
	KindMerge             Kind = "merge_error"
	KindInvalidRequest    Kind = "invalid_request"
	KindCancelled         Kind = "cancelled"
	KindInternal          Kind = "internal_error"
)

// Pipeline failure marks. Errors built by the constructors below carry one of
// these marks so errors.Is keeps working through any amount of wrapping.
var (
	// ErrGeneration indicates the text generation service call failed
	ErrGeneration = New("generation failed")

	// ErrMalformedResponse indicates the model answered with text that is not the expected JSON
	ErrMalformedResponse = New("malformed model response")

	// ErrMerge indicates partial results could not be combined into one tree
	ErrMerge = New("merge failed")

	// ErrCancelled indicates the run's own context ended before the work finished
	ErrCancelled = New("run cancelled")
)

var userMessages = map[Kind]string{
	KindGeneration:        "The text generation service failed to produce a response.",
	KindMalformedResponse: "The text generation service returned data in an unexpected format.",
	KindMerge:             "Generated chunks could not be combined into a single taxonomy.",
	KindInvalidRequest:    "The request is invalid.",
	KindCancelled:         "Generation was cancelled before it completed.",
	KindInternal:          "An internal error occurred.",
}

// NewGenerationError wraps a failed model call.
func NewGenerationError(cause error, format string, args ...interface{}) error {
	return markWith(cause, ErrGeneration, "retry the request; the generation service may be rate limited or unavailable", format, args...)
}

// NewMalformedResponseError reports a response that could not be parsed.
// cause may be nil when the shape check failed without an underlying error.
func NewMalformedResponseError(cause error, format string, args ...interface{}) error {
	return markWith(cause, ErrMalformedResponse, "retry the request; model output varies between calls", format, args...)
}

// NewMergeError reports chunk results that cannot be merged.
func NewMergeError(cause error, format string, args ...interface{}) error {
	return markWith(cause, ErrMerge, "retry the request; at least one chunk was not valid JSON", format, args...)
}

func markWith(cause, mark error, hint string, format string, args ...interface{}) error {
	var err error
	if cause == nil {
		err = Newf(format, args...)
	} else {
		err = Wrapf(cause, format, args...)
	}
	return WithHint(Mark(err, mark), hint)
}

// IsGenerationError checks if an error is or wraps ErrGeneration
func IsGenerationError(err error) bool {
	return err != nil && Is(err, ErrGeneration)
}

// IsMalformedResponseError checks if an error is or wraps ErrMalformedResponse
func IsMalformedResponseError(err error) bool {
	return err != nil && Is(err, ErrMalformedResponse)
}

// IsMergeError checks if an error is or wraps ErrMerge
func IsMergeError(err error) bool {
	return err != nil && Is(err, ErrMerge)
}

// MarkCancelled tags err as a run cancellation. Callers apply it only after
// checking that their own context is done: a provider's HTTP timeout also
// satisfies Is(err, context.DeadlineExceeded) and must stay a generation failure.
func MarkCancelled(err error) error {
	if err == nil {
		return nil
	}
	return Mark(err, ErrCancelled)
}

// CancelledIfDone marks err as cancelled when ctx is done and returns it
// unchanged otherwise.
func CancelledIfDone(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil {
		return err
	}
	return MarkCancelled(err)
}

// IsCancelled reports whether err carries the cancellation mark or wraps
// context.Canceled. A bare context.DeadlineExceeded is not enough: HTTP client
// timeouts report it too.
func IsCancelled(err error) bool {
	return err != nil && (Is(err, ErrCancelled) || Is(err, context.Canceled))
}

// KindOf classifies err. Cancellation takes precedence: a model call aborted
// by a cancelled context is reported as cancelled, not as a generation failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case IsCancelled(err):
		return KindCancelled
	case IsInvalidRequestError(err):
		return KindInvalidRequest
	case IsMalformedResponseError(err):
		return KindMalformedResponse
	case IsMergeError(err):
		return KindMerge
	case IsGenerationError(err):
		return KindGeneration
	default:
		return KindInternal
	}
}

// UserError is the structured failure payload handed to HTTP and CLI callers.
type UserError struct {
	Kind    Kind     `json:"error"`
	Message string   `json:"message"`
	Hints   []string `json:"hints,omitempty"`
}

func (u UserError) Error() string {
	return string(u.Kind) + ": " + u.Message
}

// ToUserError renders err without exposing wrapped internal text.
// Only the fixed per-kind message and hints attached with WithHint are used.
func ToUserError(err error) UserError {
	kind := KindOf(err)
	return UserError{
		Kind:    kind,
		Message: userMessages[kind],
		Hints:   GetAllHints(err),
	}
}
