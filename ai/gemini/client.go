// Package gemini is the Google Gemini text generation client, built on the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/ai/tracker"
	"github.com/teranos/capgen/errors"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-1.5-flash"

// ProviderName is recorded with usage records
const ProviderName = "gemini"

// contentGenerator is the subset of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds Gemini client configuration
type Config struct {
	APIKey       string
	Model        string
	Temperature  *float64 // nil = model default
	MaxTokens    *int     // nil = model default
	BaseURL      string   // override the API endpoint (tests, proxies)
	Logger       *zap.SugaredLogger
	UsageTracker *tracker.UsageTracker // nil = no usage tracking
}

// Client implements llm.Client against the Gemini API
type Client struct {
	models  contentGenerator
	config  Config
	tracker *tracker.UsageTracker
	logger  *zap.SugaredLogger
}

// NewClient creates a Gemini client. The API key is required.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.WithHint(
			errors.New("Gemini API key not configured"),
			"set GEMINI_API_KEY or generator.gemini.api_key",
		)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	sdk, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	return newClient(sdk.Models, config), nil
}

func newClient(models contentGenerator, config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		models:  models,
		config:  config,
		tracker: config.UsageTracker,
		logger:  logger,
	}
}

// Chat sends one prompt to Gemini and returns the response text
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model := c.config.Model
	if req.Model != nil {
		model = *req.Model
	}
	temperature := c.config.Temperature
	if req.Temperature != nil {
		temperature = req.Temperature
	}
	maxTokens := c.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = req.MaxTokens
	}

	genConfig := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if temperature != nil {
		t := float32(*temperature)
		genConfig.Temperature = &t
	}
	if maxTokens != nil {
		genConfig.MaxOutputTokens = int32(*maxTokens)
	}
	if req.JSONOutput {
		genConfig.ResponseMIMEType = "application/json"
	}

	c.logger.Debugw("Gemini request",
		"model", model,
		"prompt_length", len(req.UserPrompt),
		"json_output", req.JSONOutput,
	)

	usage := tracker.Begin(ctx, ProviderName, model, temperature, maxTokens)

	contents := []*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		c.track(ctx, usage.Fail(err))
		return nil, errors.Wrap(err, "Gemini API error")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		err := errors.Newf("Gemini returned no text (model %s)", model)
		c.track(ctx, usage.Fail(err))
		return nil, err
	}

	var u llm.Usage
	if resp.UsageMetadata != nil {
		u = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	c.logger.Debugw("Gemini response",
		"content_length", len(text),
		"prompt_tokens", u.PromptTokens,
		"completion_tokens", u.CompletionTokens,
	)

	cost, known := CalculateCost(model, u.PromptTokens, u.CompletionTokens)
	var costPtr *float64
	if known {
		costPtr = &cost
	}
	c.track(ctx, usage.Succeed(u.TotalTokens, costPtr))

	return &llm.ChatResponse{
		Content: strings.TrimSpace(text),
		Model:   model,
		Usage:   u,
	}, nil
}

func (c *Client) track(ctx context.Context, usage *tracker.ModelUsage) {
	if c.tracker == nil {
		return
	}
	if err := c.tracker.TrackUsage(ctx, usage); err != nil {
		c.logger.Warnw("Failed to track usage", "error", err, "model", usage.ModelName)
	}
}

// Model returns the configured default model
func (c *Client) Model() string {
	return c.config.Model
}

var _ llm.Client = (*Client)(nil)
