package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/ai/tracker"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/internal/httpclient"
)

const (
	// DefaultModel is the fallback model when none is specified
	// Should match the default in am/defaults.go for consistency
	DefaultModel = "openai/gpt-4o-mini"

	// ProviderName is recorded with usage records
	ProviderName = "openrouter"

	defaultBaseURL = "https://openrouter.ai/api/v1"
)

// Client represents an OpenRouter.ai API client
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *httpclient.SaferClient
	config       Config
	usageTracker *tracker.UsageTracker
	logger       *zap.SugaredLogger
}

// Config holds OpenRouter client configuration
type Config struct {
	APIKey       string
	Model        string
	Temperature  *float64 // nil = use default (0.2)
	MaxTokens    *int     // nil = use default (8000)
	Timeout      time.Duration
	Logger       *zap.SugaredLogger    // Structured logger (nil = nop logger)
	UsageTracker *tracker.UsageTracker // nil = no usage tracking
}

// NewClient creates a new OpenRouter.ai client with defaults applied
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == nil {
		defaultTemp := 0.2
		config.Temperature = &defaultTemp
	}
	if config.MaxTokens == nil {
		defaultTokens := 8000
		config.MaxTokens = &defaultTokens
	}
	if config.Timeout == 0 {
		config.Timeout = 180 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	// SSRF-safer HTTP client: blocks private IPs, metadata endpoints, dangerous schemes
	blockPrivateIP := true
	saferClient := httpclient.NewSaferClientWithOptions(config.Timeout, httpclient.SaferClientOptions{
		BlockPrivateIP: &blockPrivateIP,
	})

	return &Client{
		apiKey:       config.APIKey,
		baseURL:      defaultBaseURL,
		httpClient:   saferClient,
		config:       config,
		usageTracker: config.UsageTracker,
		logger:       logger,
	}
}

// ChatCompletionRequest represents a request to the chat completions endpoint
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat requests structured output
type ResponseFormat struct {
	Type string `json:"type"` // "json_object"
}

// Message represents a message in a chat completion
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents the response from chat completions
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage information
type Usage = llm.Usage

// StatusError is returned when OpenRouter answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus exposes the status code to retry classification.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// CreateChatCompletion sends a chat completion request to OpenRouter
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	// X-Title shows up in the OpenRouter dashboard
	httpReq.Header.Set("X-Title", "capgen")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithStack(&StatusError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	return &chatResp, nil
}

// Chat sends a single chat completion request. Retries are the caller's concern.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if c.config.APIKey == "" {
		return nil, errors.WithHint(
			errors.New("OpenRouter API key not configured"),
			"set OPENROUTER_API_KEY or generator.openrouter.api_key",
		)
	}

	// Config defaults with per-request overrides
	temperature := *c.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	maxTokens := *c.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	model := c.config.Model
	if req.Model != nil {
		model = *req.Model
	}

	c.logger.Debugw("OpenRouter request",
		"model", model,
		"temperature", temperature,
		"max_tokens", maxTokens,
		"prompt_length", len(req.UserPrompt),
	)

	messages := []Message{{Role: "user", Content: req.UserPrompt}}
	if req.SystemPrompt != "" {
		messages = append([]Message{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	openrouterReq := ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSONOutput {
		openrouterReq.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	usage := tracker.Begin(ctx, ProviderName, model, &temperature, &maxTokens)

	resp, err := c.CreateChatCompletion(ctx, openrouterReq)
	if err != nil {
		c.logger.Warnw("OpenRouter API error", "error", err, "model", model)
		c.track(ctx, usage.Fail(err))
		return nil, errors.Wrap(err, "OpenRouter API error")
	}

	if len(resp.Choices) == 0 {
		err := errors.New("no response choices from OpenRouter")
		c.track(ctx, usage.Fail(err))
		return nil, err
	}

	responseText := resp.Choices[0].Message.Content

	c.logger.Debugw("OpenRouter response",
		"content_length", len(responseText),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
	)

	var costPtr *float64
	if cost, known := CalculateCost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); known {
		costPtr = &cost
	}
	c.track(ctx, usage.Succeed(resp.Usage.TotalTokens, costPtr))

	return &llm.ChatResponse{
		Content: strings.TrimSpace(responseText),
		Model:   model,
		Usage:   resp.Usage,
	}, nil
}

func (c *Client) track(ctx context.Context, usage *tracker.ModelUsage) {
	if c.usageTracker == nil {
		return
	}
	if err := c.usageTracker.TrackUsage(ctx, usage); err != nil {
		c.logger.Warnw("Failed to track usage", "error", err, "model", usage.ModelName)
	}
}

// IsConfigured returns true if the client has a valid API key
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// SetHTTPClient allows overriding the HTTP client for testing
// Only use this in tests. Production code should use the default SSRF-safer client.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = httpclient.WrapClient(client)
}

var _ llm.Client = (*Client)(nil)
