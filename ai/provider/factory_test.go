package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/ai/gemini"
	"github.com/teranos/capgen/ai/openrouter"
	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
)

func TestDetermineProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   am.GeneratorConfig
		expected Provider
	}{
		{
			name: "explicit provider overrides local",
			config: am.GeneratorConfig{
				Provider:       "openrouter",
				LocalInference: am.LocalInferenceConfig{Enabled: true, BaseURL: "http://localhost:11434"},
			},
			expected: ProviderOpenRouter,
		},
		{
			name: "local enabled and configured",
			config: am.GeneratorConfig{
				Provider:       "auto",
				LocalInference: am.LocalInferenceConfig{Enabled: true, BaseURL: "http://localhost:11434"},
				Gemini:         am.GeminiConfig{APIKey: "g"},
			},
			expected: ProviderLocal,
		},
		{
			name: "local enabled but no base URL",
			config: am.GeneratorConfig{
				LocalInference: am.LocalInferenceConfig{Enabled: true},
				OpenRouter:     am.OpenRouterConfig{APIKey: "or"},
			},
			expected: ProviderOpenRouter,
		},
		{
			name: "gemini preferred over openrouter",
			config: am.GeneratorConfig{
				Gemini:     am.GeminiConfig{APIKey: "g"},
				OpenRouter: am.OpenRouterConfig{APIKey: "or"},
			},
			expected: ProviderGemini,
		},
		{
			name:     "nothing configured defaults to gemini",
			config:   am.GeneratorConfig{},
			expected: ProviderGemini,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &am.Config{Generator: tt.config}
			assert.Equal(t, tt.expected, DetermineProvider(cfg))
		})
	}
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input    string
		expected Provider
		wantErr  bool
	}{
		{"gemini", ProviderGemini, false},
		{"Google", ProviderGemini, false},
		{"openrouter", ProviderOpenRouter, false},
		{"or", ProviderOpenRouter, false},
		{"ollama", ProviderLocal, false},
		{"", ProviderAuto, false},
		{" auto ", ProviderAuto, false},
		{"anthropic", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProvider(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestGetAvailableProviders(t *testing.T) {
	cfg := &am.Config{Generator: am.GeneratorConfig{
		LocalInference: am.LocalInferenceConfig{Enabled: true},
		OpenRouter:     am.OpenRouterConfig{APIKey: "or"},
	}}
	assert.Equal(t, []Provider{ProviderLocal, ProviderOpenRouter}, GetAvailableProviders(cfg))
	assert.Empty(t, GetAvailableProviders(&am.Config{}))
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("openrouter", func(t *testing.T) {
		cfg := &am.Config{Generator: am.GeneratorConfig{OpenRouter: am.OpenRouterConfig{APIKey: "or"}}}
		client, err := NewClient(ctx, cfg, ProviderOpenRouter, Options{})
		require.NoError(t, err)
		assert.IsType(t, &openrouter.Client{}, client)
	})

	t.Run("openrouter without key", func(t *testing.T) {
		_, err := NewClient(ctx, &am.Config{}, ProviderOpenRouter, Options{})
		require.Error(t, err)
		assert.Contains(t, errors.FlattenHints(err), "OPENROUTER_API_KEY")
	})

	t.Run("gemini without key", func(t *testing.T) {
		_, err := NewClient(ctx, &am.Config{}, ProviderGemini, Options{})
		require.Error(t, err)
		assert.Contains(t, errors.FlattenHints(err), "GEMINI_API_KEY")
	})

	t.Run("gemini", func(t *testing.T) {
		cfg := &am.Config{Generator: am.GeneratorConfig{Gemini: am.GeminiConfig{APIKey: "g"}}}
		client, err := NewClient(ctx, cfg, ProviderAuto, Options{})
		require.NoError(t, err)
		assert.IsType(t, &gemini.Client{}, client)
	})

	t.Run("local", func(t *testing.T) {
		cfg := &am.Config{Generator: am.GeneratorConfig{LocalInference: am.LocalInferenceConfig{
			Enabled: true, BaseURL: "http://localhost:11434", Model: "llama3.2:3b", TimeoutSeconds: 5,
		}}}
		client, err := NewClient(ctx, cfg, "", Options{})
		require.NoError(t, err)
		local, ok := client.(*LocalProvider)
		require.True(t, ok)
		assert.Equal(t, "llama3.2:3b", local.Model())
	})

	t.Run("local without base URL", func(t *testing.T) {
		_, err := NewClient(ctx, &am.Config{}, ProviderLocal, Options{})
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewClient(ctx, &am.Config{}, Provider("bogus"), Options{})
		assert.Error(t, err)
	})
}
