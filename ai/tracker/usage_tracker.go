package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/db"
	"github.com/teranos/capgen/errors"
)

// ModelUsage represents a record of one model call
type ModelUsage struct {
	ID                int        `json:"id" db:"id"`
	RunID             string     `json:"run_id" db:"run_id"`
	OperationType     string     `json:"operation_type" db:"operation_type"`
	EntityType        string     `json:"entity_type" db:"entity_type"`
	EntityID          string     `json:"entity_id" db:"entity_id"`
	ModelName         string     `json:"model_name" db:"model_name"`
	ModelProvider     string     `json:"model_provider" db:"model_provider"`
	ModelConfig       *string    `json:"model_config,omitempty" db:"model_config"`
	RequestTimestamp  time.Time  `json:"request_timestamp" db:"request_timestamp"`
	ResponseTimestamp *time.Time `json:"response_timestamp,omitempty" db:"response_timestamp"`
	TokensUsed        *int       `json:"tokens_used,omitempty" db:"tokens_used"`
	Cost              *float64   `json:"cost,omitempty" db:"cost"`
	Success           bool       `json:"success" db:"success"`
	ErrorMessage      *string    `json:"error_message,omitempty" db:"error_message"`
	Metadata          *string    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// ModelConfig represents the configuration used for a model request
type ModelConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// UsageMetadata represents additional context for a model call
type UsageMetadata struct {
	InputLength  *int `json:"input_length,omitempty"`
	OutputLength *int `json:"output_length,omitempty"`
}

// UsageTracker records model calls in the ai_model_usage table
type UsageTracker struct {
	db *sql.DB
}

// NewUsageTracker creates a new usage tracker
func NewUsageTracker(db *sql.DB) *UsageTracker {
	return &UsageTracker{db: db}
}

// Begin starts a usage record for a call described by ctx's llm.CallInfo.
// Finish it with Succeed or Fail before passing it to TrackUsage.
func Begin(ctx context.Context, provider, model string, temperature *float64, maxTokens *int) *ModelUsage {
	info := llm.CallInfoFromContext(ctx)
	return &ModelUsage{
		RunID:            info.RunID,
		OperationType:    info.Operation,
		EntityType:       info.EntityType,
		EntityID:         info.EntityID,
		ModelName:        model,
		ModelProvider:    provider,
		ModelConfig:      NewModelConfig(temperature, maxTokens),
		RequestTimestamp: time.Now(),
	}
}

// Succeed marks the record successful. cost may be nil when pricing is unknown.
func (u *ModelUsage) Succeed(tokens int, cost *float64) *ModelUsage {
	now := time.Now()
	u.ResponseTimestamp = &now
	u.TokensUsed = &tokens
	u.Cost = cost
	u.Success = true
	return u
}

// Fail marks the record failed with err's message.
func (u *ModelUsage) Fail(err error) *ModelUsage {
	now := time.Now()
	msg := err.Error()
	u.ResponseTimestamp = &now
	u.Success = false
	u.ErrorMessage = &msg
	return u
}

// TrackUsage records a model call in the database
func (t *UsageTracker) TrackUsage(ctx context.Context, usage *ModelUsage) error {
	query := `
		INSERT INTO ai_model_usage (
			run_id, operation_type, entity_type, entity_id, model_name, model_provider,
			model_config, request_timestamp, response_timestamp, tokens_used,
			cost, success, error_message, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// Record even when the call's own context was cancelled
	ctx = context.WithoutCancel(ctx)
	_, err := t.db.ExecContext(ctx, query,
		usage.RunID, usage.OperationType, usage.EntityType, usage.EntityID,
		usage.ModelName, usage.ModelProvider, usage.ModelConfig,
		usage.RequestTimestamp, usage.ResponseTimestamp, usage.TokensUsed,
		usage.Cost, usage.Success, usage.ErrorMessage, usage.Metadata,
	)
	if db.IsDatabaseClosed(err) {
		return errors.Mark(errors.Wrap(err, "usage record dropped"), db.ErrDatabaseClosed)
	}
	if err != nil {
		return errors.Wrap(err, "failed to insert usage record")
	}
	return nil
}

// GetUsageStats returns usage statistics for a given time period
func (t *UsageTracker) GetUsageStats(ctx context.Context, since time.Time) (*UsageStats, error) {
	query := `
		SELECT
			COUNT(*) as total_requests,
			COUNT(CASE WHEN success = 1 THEN 1 END) as successful_requests,
			COALESCE(SUM(COALESCE(tokens_used, 0)), 0) as total_tokens,
			COALESCE(SUM(COALESCE(cost, 0)), 0) as total_cost,
			COUNT(DISTINCT run_id) as runs,
			COUNT(DISTINCT CASE WHEN model_name IS NOT NULL THEN model_name END) as unique_models
		FROM ai_model_usage
		WHERE request_timestamp >= ?`

	var stats UsageStats
	err := t.db.QueryRowContext(ctx, query, since).Scan(
		&stats.TotalRequests, &stats.SuccessfulRequests,
		&stats.TotalTokens, &stats.TotalCost, &stats.Runs, &stats.UniqueModels,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query usage stats")
	}

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests)
	}

	return &stats, nil
}

// GetOperationBreakdown returns usage grouped by operation type (l0_batch, l2_batch)
func (t *UsageTracker) GetOperationBreakdown(ctx context.Context, since time.Time) ([]OperationBreakdown, error) {
	query := `
		SELECT
			operation_type,
			COUNT(*) as request_count,
			COUNT(CASE WHEN success = 0 THEN 1 END) as failed_count,
			SUM(COALESCE(tokens_used, 0)) as total_tokens,
			AVG(CASE WHEN response_timestamp IS NOT NULL THEN
				(julianday(response_timestamp) - julianday(request_timestamp)) * 86400000
				ELSE NULL END) as avg_response_time_ms
		FROM ai_model_usage
		WHERE request_timestamp >= ?
		GROUP BY operation_type
		ORDER BY operation_type ASC`

	rows, err := t.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query operation breakdown")
	}
	defer rows.Close()

	var breakdown []OperationBreakdown
	for rows.Next() {
		var ob OperationBreakdown
		if err := rows.Scan(&ob.OperationType, &ob.RequestCount, &ob.FailedCount,
			&ob.TotalTokens, &ob.AvgResponseTimeMs); err != nil {
			return nil, errors.Wrap(err, "failed to scan operation breakdown")
		}
		breakdown = append(breakdown, ob)
	}

	return breakdown, rows.Err()
}

// GetModelBreakdown returns usage breakdown by model
func (t *UsageTracker) GetModelBreakdown(ctx context.Context, since time.Time) ([]ModelBreakdown, error) {
	query := `
		SELECT
			model_name,
			model_provider,
			COUNT(*) as request_count,
			SUM(COALESCE(tokens_used, 0)) as total_tokens,
			SUM(COALESCE(cost, 0)) as total_cost
		FROM ai_model_usage
		WHERE request_timestamp >= ? AND success = 1
		GROUP BY model_name, model_provider
		ORDER BY total_cost DESC`

	rows, err := t.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query model breakdown")
	}
	defer rows.Close()

	var breakdown []ModelBreakdown
	for rows.Next() {
		var mb ModelBreakdown
		if err := rows.Scan(&mb.ModelName, &mb.ModelProvider, &mb.RequestCount,
			&mb.TotalTokens, &mb.TotalCost); err != nil {
			return nil, errors.Wrap(err, "failed to scan model breakdown")
		}
		breakdown = append(breakdown, mb)
	}

	return breakdown, rows.Err()
}

// UsageStats represents aggregated usage statistics
type UsageStats struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	SuccessRate        float64 `json:"success_rate"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCost          float64 `json:"total_cost"`
	Runs               int     `json:"runs"`
	UniqueModels       int     `json:"unique_models"`
}

// OperationBreakdown represents usage statistics for one operation type
type OperationBreakdown struct {
	OperationType     string   `json:"operation_type"`
	RequestCount      int      `json:"request_count"`
	FailedCount       int      `json:"failed_count"`
	TotalTokens       int      `json:"total_tokens"`
	AvgResponseTimeMs *float64 `json:"avg_response_time_ms,omitempty"`
}

// ModelBreakdown represents usage statistics for a specific model
type ModelBreakdown struct {
	ModelName     string  `json:"model_name"`
	ModelProvider string  `json:"model_provider"`
	RequestCount  int     `json:"request_count"`
	TotalTokens   int     `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
}

// NewModelConfig creates a ModelConfig and serializes it to JSON
func NewModelConfig(temperature *float64, maxTokens *int) *string {
	if temperature == nil && maxTokens == nil {
		return nil
	}

	data, err := json.Marshal(ModelConfig{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil
	}

	jsonStr := string(data)
	return &jsonStr
}

// NewUsageMetadata creates UsageMetadata and serializes it to JSON
func NewUsageMetadata(metadata UsageMetadata) *string {
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}

	jsonStr := string(data)
	return &jsonStr
}
