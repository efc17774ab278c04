package am

import "time"

// Config represents the capgen configuration
type Config struct {
	Generator GeneratorConfig `mapstructure:"generator"`
	Taxonomy  TaxonomyConfig  `mapstructure:"taxonomy"`
	Attach    AttachConfig    `mapstructure:"attach"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
}

// GeneratorConfig selects and configures the text generation service
type GeneratorConfig struct {
	Provider       string               `mapstructure:"provider"` // gemini, openrouter, local, auto
	Gemini         GeminiConfig         `mapstructure:"gemini"`
	OpenRouter     OpenRouterConfig     `mapstructure:"openrouter"`
	LocalInference LocalInferenceConfig `mapstructure:"local_inference"`
}

// GeminiConfig configures Google Gemini access
type GeminiConfig struct {
	APIKey      string   `mapstructure:"api_key"`     // also read from GEMINI_API_KEY
	Model       string   `mapstructure:"model"`       // e.g., "gemini-1.5-flash"
	Temperature *float64 `mapstructure:"temperature"` // nil = model default
	MaxTokens   *int     `mapstructure:"max_tokens"`  // nil = model default
}

// OpenRouterConfig configures OpenRouter.ai API access
type OpenRouterConfig struct {
	APIKey      string   `mapstructure:"api_key"`     // also read from OPENROUTER_API_KEY
	Model       string   `mapstructure:"model"`       // e.g., "openai/gpt-4o-mini"
	Temperature *float64 `mapstructure:"temperature"` // nil = default 0.2
	MaxTokens   *int     `mapstructure:"max_tokens"`  // nil = default 8000
}

// LocalInferenceConfig configures local model inference (Ollama, LocalAI, etc.)
type LocalInferenceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"` // e.g., "http://localhost:11434" for Ollama
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	ContextSize    *int   `mapstructure:"context_size"` // nil = model default
}

// TaxonomyConfig controls how the L0 layer is chunked and how many children each node should get
type TaxonomyConfig struct {
	BatchCount int `mapstructure:"batch_count"` // number of sequential L0 batches
	BatchSize  int `mapstructure:"batch_size"`  // L0 capabilities requested per batch
	L1PerL0    int `mapstructure:"l1_per_l0"`
	L2PerL1    int `mapstructure:"l2_per_l1"`
}

// AttachConfig controls the L2 attachment pass
type AttachConfig struct {
	Workers           int `mapstructure:"workers"`             // concurrent L2 requests (1 = sequential)
	PauseMS           int `mapstructure:"pause_ms"`            // minimum gap between L2 requests
	RequestsPerMinute int `mapstructure:"requests_per_minute"` // 0 = unlimited
}

// Pause returns the configured gap between L2 requests.
func (a AttachConfig) Pause() time.Duration {
	return time.Duration(a.PauseMS) * time.Millisecond
}

// RetryConfig configures the bounded retry wrapped around each model call
type RetryConfig struct {
	MaxAttempts      int `mapstructure:"max_attempts"` // 1 = no retry
	InitialBackoffMS int `mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int `mapstructure:"max_backoff_ms"`
}

// InitialBackoff returns the delay before the first retry.
func (r RetryConfig) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the ceiling for retry delays.
func (r RetryConfig) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}

// ServerConfig configures the capgen HTTP server
type ServerConfig struct {
	Port                  int      `mapstructure:"port"`
	RequestTimeoutSeconds int      `mapstructure:"request_timeout_seconds"` // upper bound for one generation request
	AllowedOrigins        []string `mapstructure:"allowed_origins"`         // WebSocket origin allowlist
}

// RequestTimeout returns the per-request generation deadline.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// DatabaseConfig configures the SQLite usage database
type DatabaseConfig struct {
	Path       string `mapstructure:"path"`
	TrackUsage bool   `mapstructure:"track_usage"` // record every model call in ai_model_usage
}

// LogConfig configures logging output
type LogConfig struct {
	JSON      bool `mapstructure:"json"`
	Verbosity int  `mapstructure:"verbosity"`
}

// Server port constants
const (
	DefaultServerPort = 8787
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
