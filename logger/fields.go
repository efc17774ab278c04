package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across capgen.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"

	// Components
	FieldComponent = "component"
	FieldProvider  = "provider"
	FieldModel     = "model"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldAttempt   = "attempt"

	// Timing
	FieldDurationMS  = "duration_ms"
	FieldRemainingMS = "remaining_ms"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Counts and sizes
	FieldCount      = "count"
	FieldBatch      = "batch"
	FieldBatchSize  = "batch_size"
	FieldTotalCount = "total_count"
	FieldWarnings   = "warnings"

	// Taxonomy
	FieldIndustry = "industry"
	FieldL0       = "l0"
	FieldL1       = "l1"

	// Memory
	FieldRSSMB = "rss_mb"
	FieldStage = "stage"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	requestIDKey contextKey = "logger_request_id"
	industryKey  contextKey = "logger_industry"
)

// WithRunID adds a generation run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithIndustry adds the industry being generated to the context for logging
func WithIndustry(ctx context.Context, industry string) context.Context {
	return context.WithValue(ctx, industryKey, industry)
}

// RunIDFromContext returns the run ID stored by WithRunID, if any.
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey).(string)
	return runID
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if industry, ok := ctx.Value(industryKey).(string); ok && industry != "" {
		fields = append(fields, FieldIndustry, industry)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	return ContextLogger(ctx, Logger)
}

// ContextLogger decorates base with the fields carried by ctx.
func ContextLogger(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Attacher struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func New() *Attacher {
//	    return &Attacher{
//	        logger: logger.ComponentLogger("taxonomy.attach"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
