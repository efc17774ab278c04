// Package provider selects and builds the text generation client named by
// configuration.
package provider

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/capgen/ai/gemini"
	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/ai/openrouter"
	"github.com/teranos/capgen/ai/tracker"
	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
)

// Provider represents an LLM provider type
type Provider string

const (
	// ProviderGemini uses the Google Gemini API
	ProviderGemini Provider = "gemini"
	// ProviderOpenRouter uses OpenRouter.ai API
	ProviderOpenRouter Provider = "openrouter"
	// ProviderLocal uses local inference (Ollama, LocalAI)
	ProviderLocal Provider = "local"
	// ProviderAuto selects based on configuration
	ProviderAuto Provider = "auto"
)

// Options carries the optional collaborators handed to every client.
type Options struct {
	Tracker *tracker.UsageTracker // nil = no usage tracking
	Logger  *zap.SugaredLogger    // nil = nop logger
}

// NewClient creates the client for provider. ProviderAuto (and "") resolve
// through DetermineProvider.
func NewClient(ctx context.Context, cfg *am.Config, provider Provider, opts Options) (llm.Client, error) {
	if provider == "" || provider == ProviderAuto {
		provider = DetermineProvider(cfg)
	}
	if opts.Logger != nil {
		opts.Logger.Debugw("Selected text generation provider", "provider", provider)
	}

	switch provider {
	case ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:       cfg.Generator.Gemini.APIKey,
			Model:        cfg.Generator.Gemini.Model,
			Temperature:  cfg.Generator.Gemini.Temperature,
			MaxTokens:    cfg.Generator.Gemini.MaxTokens,
			Logger:       opts.Logger,
			UsageTracker: opts.Tracker,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderOpenRouter:
		client := openrouter.NewClient(openrouter.Config{
			APIKey:       cfg.Generator.OpenRouter.APIKey,
			Model:        cfg.Generator.OpenRouter.Model,
			Temperature:  cfg.Generator.OpenRouter.Temperature,
			MaxTokens:    cfg.Generator.OpenRouter.MaxTokens,
			Logger:       opts.Logger,
			UsageTracker: opts.Tracker,
		})
		if !client.IsConfigured() {
			return nil, errors.WithHint(
				errors.New("OpenRouter API key not configured"),
				"set OPENROUTER_API_KEY or generator.openrouter.api_key",
			)
		}
		return client, nil
	case ProviderLocal:
		if cfg.Generator.LocalInference.BaseURL == "" {
			return nil, errors.WithHint(
				errors.New("local inference base URL not configured"),
				"set generator.local_inference.base_url, e.g. http://localhost:11434",
			)
		}
		return NewLocalProvider(cfg.Generator.LocalInference, opts.Tracker, opts.Logger), nil
	default:
		return nil, errors.Newf("unknown provider: %s", provider)
	}
}

// DetermineProvider resolves the configured provider.
// Priority for auto: LocalInference (if enabled) → Gemini (if API key set) → OpenRouter
func DetermineProvider(cfg *am.Config) Provider {
	if p, err := ParseProvider(cfg.Generator.Provider); err == nil && p != ProviderAuto {
		return p
	}
	if cfg.Generator.LocalInference.Enabled && cfg.Generator.LocalInference.BaseURL != "" {
		return ProviderLocal
	}
	if cfg.Generator.Gemini.APIKey != "" {
		return ProviderGemini
	}
	if cfg.Generator.OpenRouter.APIKey != "" {
		return ProviderOpenRouter
	}
	return ProviderGemini
}

// GetAvailableProviders returns a list of configured/available providers
func GetAvailableProviders(cfg *am.Config) []Provider {
	var providers []Provider
	if cfg.Generator.LocalInference.Enabled {
		providers = append(providers, ProviderLocal)
	}
	if cfg.Generator.Gemini.APIKey != "" {
		providers = append(providers, ProviderGemini)
	}
	if cfg.Generator.OpenRouter.APIKey != "" {
		providers = append(providers, ProviderOpenRouter)
	}
	return providers
}

// ParseProvider converts a string to a Provider type
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "openrouter", "or":
		return ProviderOpenRouter, nil
	case "local", "ollama", "localai":
		return ProviderLocal, nil
	case "auto", "":
		return ProviderAuto, nil
	default:
		return "", errors.Newf("unknown provider: %s (valid: gemini, openrouter, local, auto)", s)
	}
}
