package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Generator defaults
	v.SetDefault("generator.provider", "gemini")
	v.SetDefault("generator.gemini.api_key", "")
	v.SetDefault("generator.gemini.model", "gemini-1.5-flash")

	v.SetDefault("generator.openrouter.api_key", "")
	v.SetDefault("generator.openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("generator.openrouter.temperature", 0.2)
	v.SetDefault("generator.openrouter.max_tokens", 8000) // one L0 batch of 2x20 L1 is several thousand tokens

	v.SetDefault("generator.local_inference.enabled", false)
	v.SetDefault("generator.local_inference.base_url", "http://localhost:11434")
	v.SetDefault("generator.local_inference.model", "llama3.2:3b")
	v.SetDefault("generator.local_inference.timeout_seconds", 600)

	// Taxonomy shape
	v.SetDefault("taxonomy.batch_count", 2)
	v.SetDefault("taxonomy.batch_size", 2)
	v.SetDefault("taxonomy.l1_per_l0", 20)
	v.SetDefault("taxonomy.l2_per_l1", 20)

	// L2 attachment
	v.SetDefault("attach.workers", 1)
	v.SetDefault("attach.pause_ms", 0)
	v.SetDefault("attach.requests_per_minute", 0)

	// Retry: a single attempt unless configured
	v.SetDefault("retry.max_attempts", 1)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 8000)

	// Server
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.request_timeout_seconds", 1800)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})

	// Database
	v.SetDefault("database.path", "capgen.db")
	v.SetDefault("database.track_usage", false)

	// Logging
	v.SetDefault("log.json", false)
	v.SetDefault("log.verbosity", 0)
}

// BindSensitiveEnvVars explicitly binds API keys to their conventional
// environment variables in addition to the CAPGEN_ prefixed names.
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("generator.gemini.api_key", "CAPGEN_GENERATOR_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("generator.openrouter.api_key", "CAPGEN_GENERATOR_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
}
