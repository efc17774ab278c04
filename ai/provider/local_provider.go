package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/ai/openrouter"
	"github.com/teranos/capgen/ai/tracker"
	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/internal/httpclient"
)

// LocalProviderName is recorded with usage records
const LocalProviderName = "local"

// LocalProvider implements llm.Client for local inference servers.
// Supports Ollama, LocalAI, or any OpenAI-compatible local endpoint.
type LocalProvider struct {
	baseURL    string
	model      string
	httpClient *httpclient.SaferClient
	config     am.LocalInferenceConfig
	tracker    *tracker.UsageTracker
	logger     *zap.SugaredLogger
}

// NewLocalProvider creates a provider for local inference.
// tracker and logger may be nil.
func NewLocalProvider(cfg am.LocalInferenceConfig, usageTracker *tracker.UsageTracker, logger *zap.SugaredLogger) *LocalProvider {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	// Local inference servers live on loopback or the LAN
	blockPrivateIP := false
	return &LocalProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: httpclient.NewSaferClientWithOptions(
			time.Duration(cfg.TimeoutSeconds)*time.Second,
			httpclient.SaferClientOptions{BlockPrivateIP: &blockPrivateIP},
		),
		config:  cfg,
		tracker: usageTracker,
		logger:  logger,
	}
}

// ChatCompletionRequest matches OpenAI API format (Ollama is compatible)
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Stream         bool            `json:"stream"`
	Options        *CompletionOpts `json:"options,omitempty"` // Ollama-specific options
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionOpts struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"num_predict,omitempty"` // Ollama uses num_predict
	NumCtx      int      `json:"num_ctx,omitempty"`     // Context window size (Ollama default: 4096)
}

// ChatCompletionResponse matches OpenAI API format
type ChatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *llm.Usage `json:"usage,omitempty"`
}

// Chat sends one prompt to the local inference server
func (lp *LocalProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model := lp.model
	if req.Model != nil {
		model = *req.Model
	}

	messages := []ChatMessage{{Role: "user", Content: req.UserPrompt}}
	if req.SystemPrompt != "" {
		messages = append([]ChatMessage{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	opts := &CompletionOpts{Temperature: req.Temperature}
	if req.MaxTokens != nil {
		opts.MaxTokens = *req.MaxTokens
	}
	if lp.config.ContextSize != nil {
		opts.NumCtx = *lp.config.ContextSize
	}

	body := ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options:  opts,
	}
	if req.JSONOutput {
		body.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	usage := tracker.Begin(ctx, LocalProviderName, model, req.Temperature, req.MaxTokens)

	completion, err := lp.post(ctx, body)
	if err != nil {
		lp.track(ctx, usage.Fail(err))
		return nil, err
	}
	if len(completion.Choices) == 0 {
		err := errors.New("no completion choices returned by local inference server")
		lp.track(ctx, usage.Fail(err))
		return nil, err
	}

	var u llm.Usage
	if completion.Usage != nil {
		u = *completion.Usage
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)

	lp.logger.Debugw("Local inference response",
		"model", model,
		"content_length", len(content),
		"total_tokens", u.TotalTokens,
	)

	zero := 0.0
	lp.track(ctx, usage.Succeed(u.TotalTokens, &zero))

	return &llm.ChatResponse{Content: content, Model: model, Usage: u}, nil
}

func (lp *LocalProvider) post(ctx context.Context, body ChatCompletionRequest) (*ChatCompletionResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	// OpenAI-compatible endpoint (works for Ollama, LocalAI, etc.)
	endpoint := lp.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := lp.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "local inference request to %s failed", lp.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.WithStack(&openrouter.StatusError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	var completion ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, errors.Wrap(err, "failed to decode local inference response")
	}
	return &completion, nil
}

func (lp *LocalProvider) track(ctx context.Context, usage *tracker.ModelUsage) {
	if lp.tracker == nil {
		return
	}
	if err := lp.tracker.TrackUsage(ctx, usage); err != nil {
		lp.logger.Warnw("Failed to track usage", "error", err, "model", usage.ModelName)
	}
}

// Model returns the configured local model name
func (lp *LocalProvider) Model() string {
	return lp.model
}

var _ llm.Client = (*LocalProvider)(nil)
