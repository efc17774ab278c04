package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/ai/tracker"
	"github.com/teranos/capgen/errors"
	capgentesting "github.com/teranos/capgen/internal/testing"
)

// newTestClient points a client at server, bypassing the SSRF-safer transport for localhost
func newTestClient(server *httptest.Server, cfg Config) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	client := NewClient(cfg)
	client.baseURL = server.URL
	client.SetHTTPClient(server.Client())
	return client
}

func writeCompletion(w http.ResponseWriter, content string, usage Usage) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ChatCompletionResponse{
		ID:      "test-id",
		Object:  "chat.completion",
		Choices: []Choice{{Message: Message{Role: "assistant", Content: content}, FinishReason: "stop"}},
		Usage:   usage,
	})
}

func TestClient_Configuration(t *testing.T) {
	t.Run("applies default values", func(t *testing.T) {
		client := NewClient(Config{APIKey: "test-key"})

		assert.Equal(t, DefaultModel, client.config.Model)
		require.NotNil(t, client.config.Temperature)
		assert.Equal(t, 0.2, *client.config.Temperature)
		require.NotNil(t, client.config.MaxTokens)
		assert.Equal(t, 8000, *client.config.MaxTokens)
		assert.True(t, client.IsConfigured())
	})

	t.Run("preserves custom values", func(t *testing.T) {
		temp := 0.8
		tokens := 2000
		client := NewClient(Config{APIKey: "k", Model: "custom/model", Temperature: &temp, MaxTokens: &tokens})

		assert.Equal(t, "custom/model", client.config.Model)
		assert.Equal(t, 0.8, *client.config.Temperature)
		assert.Equal(t, 2000, *client.config.MaxTokens)
	})

	t.Run("unconfigured without API key", func(t *testing.T) {
		assert.False(t, NewClient(Config{}).IsConfigured())
	})
}

func TestClient_Chat(t *testing.T) {
	t.Run("successful request", func(t *testing.T) {
		var got ChatCompletionRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeCompletion(w, "  Test response content \n", Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30})
		}))
		defer server.Close()

		resp, err := newTestClient(server, Config{}).Chat(context.Background(), llm.ChatRequest{
			SystemPrompt: "You are a test assistant",
			UserPrompt:   "Hello, world!",
			JSONOutput:   true,
		})
		require.NoError(t, err)

		assert.Equal(t, "Test response content", resp.Content)
		assert.Equal(t, 30, resp.Usage.TotalTokens)
		assert.Equal(t, DefaultModel, resp.Model)

		require.Len(t, got.Messages, 2)
		assert.Equal(t, "system", got.Messages[0].Role)
		assert.Equal(t, "Hello, world!", got.Messages[1].Content)
		require.NotNil(t, got.ResponseFormat)
		assert.Equal(t, "json_object", got.ResponseFormat.Type)
	})

	t.Run("empty API key returns error", func(t *testing.T) {
		_, err := NewClient(Config{}).Chat(context.Background(), llm.ChatRequest{UserPrompt: "Hello"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key not configured")
	})

	t.Run("request parameter overrides", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var reqBody ChatCompletionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

			assert.Equal(t, 0.9, reqBody.Temperature)
			assert.Equal(t, 500, reqBody.MaxTokens)
			assert.Equal(t, "custom/model", reqBody.Model)
			assert.Nil(t, reqBody.ResponseFormat)
			assert.Len(t, reqBody.Messages, 1, "no system message without a system prompt")

			writeCompletion(w, "test", Usage{})
		}))
		defer server.Close()

		temperature := 0.9
		maxTokens := 500
		model := "custom/model"
		_, err := newTestClient(server, Config{}).Chat(context.Background(), llm.ChatRequest{
			UserPrompt:  "test",
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
			Model:       &model,
		})
		require.NoError(t, err)
	})
}

func TestClient_ErrorHandling(t *testing.T) {
	t.Run("HTTP errors are not retried and expose the status", func(t *testing.T) {
		requestCount := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestCount++
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestClient(server, Config{}).Chat(context.Background(), llm.ChatRequest{UserPrompt: "test"})
		require.Error(t, err)
		assert.Equal(t, 1, requestCount)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatus())
	})

	t.Run("handles malformed JSON response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("invalid json"))
		}))
		defer server.Close()

		_, err := newTestClient(server, Config{}).Chat(context.Background(), llm.ChatRequest{UserPrompt: "test"})
		assert.Error(t, err)
	})

	t.Run("handles empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ChatCompletionResponse{Choices: []Choice{}})
		}))
		defer server.Close()

		_, err := newTestClient(server, Config{}).Chat(context.Background(), llm.ChatRequest{UserPrompt: "test"})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "no response choices"))
	})
}

func TestClient_TracksUsage(t *testing.T) {
	db := capgentesting.CreateTestDB(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "[]", Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500})
	}))
	defer server.Close()

	client := newTestClient(server, Config{UsageTracker: tracker.NewUsageTracker(db)})
	ctx := llm.WithCallInfo(context.Background(), llm.CallInfo{Operation: llm.OperationL2Batch, EntityType: "l1_capability", EntityID: "Pricing", RunID: "run-7"})

	_, err := client.Chat(ctx, llm.ChatRequest{UserPrompt: "x"})
	require.NoError(t, err)

	var provider, entity string
	var tokens int
	var cost float64
	require.NoError(t, db.QueryRow(`SELECT model_provider, entity_id, tokens_used, cost FROM ai_model_usage WHERE run_id = 'run-7'`).
		Scan(&provider, &entity, &tokens, &cost))
	assert.Equal(t, ProviderName, provider)
	assert.Equal(t, "Pricing", entity)
	assert.Equal(t, 1500, tokens)
	assert.InDelta(t, 0.00045, cost, 1e-9)
}

func BenchmarkClient_Chat(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "test response", Usage{TotalTokens: 10})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key"})
	client.baseURL = server.URL
	client.SetHTTPClient(server.Client())

	ctx := context.Background()
	req := llm.ChatRequest{UserPrompt: "Hello"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := client.Chat(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}
