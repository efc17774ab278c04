package am

import (
	"strings"

	"github.com/teranos/capgen/errors"
)

var knownProviders = map[string]bool{
	"gemini":     true,
	"openrouter": true,
	"local":      true,
	"auto":       true,
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	provider := strings.ToLower(c.Generator.Provider)
	if provider != "" && !knownProviders[provider] {
		return errors.Newf("generator.provider must be one of gemini, openrouter, local, auto; got %q", c.Generator.Provider)
	}

	if c.Taxonomy.BatchCount <= 0 {
		return errors.Newf("taxonomy.batch_count must be > 0, got %d", c.Taxonomy.BatchCount)
	}
	if c.Taxonomy.BatchSize <= 0 {
		return errors.Newf("taxonomy.batch_size must be > 0, got %d", c.Taxonomy.BatchSize)
	}
	if c.Taxonomy.L1PerL0 <= 0 {
		return errors.Newf("taxonomy.l1_per_l0 must be > 0, got %d", c.Taxonomy.L1PerL0)
	}
	if c.Taxonomy.L2PerL1 <= 0 {
		return errors.Newf("taxonomy.l2_per_l1 must be > 0, got %d", c.Taxonomy.L2PerL1)
	}

	if c.Attach.Workers <= 0 {
		return errors.Newf("attach.workers must be > 0, got %d", c.Attach.Workers)
	}
	// 0 = no pause / no cap, negative = invalid
	if c.Attach.PauseMS < 0 {
		return errors.Newf("attach.pause_ms must be >= 0, got %d", c.Attach.PauseMS)
	}
	if c.Attach.RequestsPerMinute < 0 {
		return errors.Newf("attach.requests_per_minute must be >= 0, got %d", c.Attach.RequestsPerMinute)
	}

	if c.Retry.MaxAttempts <= 0 {
		return errors.Newf("retry.max_attempts must be > 0 (1 disables retries), got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoffMS < 0 || c.Retry.MaxBackoffMS < 0 {
		return errors.New("retry backoff values must be >= 0")
	}
	if c.Retry.MaxBackoffMS < c.Retry.InitialBackoffMS {
		return errors.Newf("retry.max_backoff_ms (%d) must be >= retry.initial_backoff_ms (%d)", c.Retry.MaxBackoffMS, c.Retry.InitialBackoffMS)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.Newf("server.request_timeout_seconds must be > 0, got %d", c.Server.RequestTimeoutSeconds)
	}

	if c.Generator.LocalInference.Enabled || provider == "local" {
		if c.Generator.LocalInference.BaseURL == "" {
			return errors.New("generator.local_inference.base_url cannot be empty when enabled")
		}
		if c.Generator.LocalInference.Model == "" {
			return errors.New("generator.local_inference.model cannot be empty when enabled")
		}
		if c.Generator.LocalInference.TimeoutSeconds <= 0 {
			return errors.Newf("generator.local_inference.timeout_seconds must be > 0, got %d", c.Generator.LocalInference.TimeoutSeconds)
		}
	}

	if c.Database.TrackUsage && c.Database.Path == "" {
		return errors.New("database.path cannot be empty when database.track_usage is enabled")
	}

	return nil
}
