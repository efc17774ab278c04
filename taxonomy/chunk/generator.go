// Package chunk issues the bounded generation requests the pipeline is built
// from: one batch of L0 capabilities, or the L2 children of one L1.
//
// Each call renders a prompt, invokes the model once, sanitizes the reply and
// parses it. There is no retry here; callers wrap the llm.Client if they want one.
package chunk

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/taxonomy"
)

// Default policy constants
const (
	DefaultL1PerL0 = 20
	DefaultL2PerL1 = 20
)

// Config holds generator settings
type Config struct {
	L1PerL0 int // L1 children requested per L0
	L2PerL1 int // L2 children requested per L1
	Logger  *zap.SugaredLogger
}

// Generator builds and parses chunk requests against one llm.Client.
type Generator struct {
	client llm.Client
	cfg    Config
	logger *zap.SugaredLogger
}

// NewGenerator creates a generator. Zero counts fall back to the defaults.
func NewGenerator(client llm.Client, cfg Config) *Generator {
	if cfg.L1PerL0 <= 0 {
		cfg.L1PerL0 = DefaultL1PerL0
	}
	if cfg.L2PerL1 <= 0 {
		cfg.L2PerL1 = DefaultL2PerL1
	}
	log := cfg.Logger
	if log == nil {
		log = logger.ComponentLogger("taxonomy.chunk")
	}
	return &Generator{client: client, cfg: cfg, logger: log}
}

// L1PerL0 returns the configured L1 count per L0
func (g *Generator) L1PerL0() int { return g.cfg.L1PerL0 }

// L2PerL1 returns the configured L2 count per L1
func (g *Generator) L2PerL1() int { return g.cfg.L2PerL1 }

// L0Batch requests batchSize L0 capabilities for industry, each with the
// configured number of L1 children. prior is listed in the prompt so the
// model can avoid repeating names.
func (g *Generator) L0Batch(ctx context.Context, industry string, prior []taxonomy.L0Capability, batchSize int) (*taxonomy.Batch, error) {
	prompt, err := L0BatchPrompt(industry, prior, batchSize, g.cfg.L1PerL0)
	if err != nil {
		return nil, err
	}

	ctx = withCall(ctx, llm.OperationL0Batch, "industry", industry)
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, errors.NewGenerationError(err, "L0 batch for %q failed", industry)
	}

	batch, err := ParseBatch(text)
	if err != nil {
		g.logger.Debugw("Unparseable L0 batch", logger.FieldIndustry, industry, "response_length", len(text))
		return nil, err
	}

	g.logger.Debugw("L0 batch generated",
		logger.FieldIndustry, industry,
		logger.FieldCount, len(batch.L0),
		"prior", len(prior),
	)
	return batch, nil
}

// L2Batch requests the L2 children of one L1 capability. The returned
// entries are the model's array elements verbatim; a length other than the
// requested count is not an error.
func (g *Generator) L2Batch(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error) {
	prompt, err := L2BatchPrompt(l1, g.cfg.L2PerL1)
	if err != nil {
		return nil, err
	}

	ctx = withCall(ctx, llm.OperationL2Batch, "l1_capability", l1.Name)
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, errors.NewGenerationError(err, "L2 batch for %q failed", l1.Name)
	}

	entries, err := ParseL2(text)
	if err != nil {
		return nil, err
	}

	g.logger.Debugw("L2 batch generated", logger.FieldL1, l1.Name, logger.FieldCount, len(entries))
	return entries, nil
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat(ctx, llm.ChatRequest{
		SystemPrompt: SystemPrompt,
		UserPrompt:   prompt,
		JSONOutput:   true,
	})
	if err != nil {
		return "", errors.CancelledIfDone(ctx, err)
	}
	return resp.Content, nil
}

func withCall(ctx context.Context, operation, entityType, entityID string) context.Context {
	return llm.WithCallInfo(ctx, llm.CallInfo{
		Operation:  operation,
		EntityType: entityType,
		EntityID:   entityID,
		RunID:      logger.RunIDFromContext(ctx),
	})
}

// ParseBatch sanitizes text and decodes it as an L0 batch. The document must
// be a JSON object carrying every batch key.
func ParseBatch(text string) (*taxonomy.Batch, error) {
	clean := []byte(Sanitize(text))

	missing, err := taxonomy.MissingBatchKey(clean)
	if err != nil {
		return nil, errors.NewMalformedResponseError(err, "L0 batch is not a JSON object")
	}
	if missing != "" {
		return nil, errors.NewMalformedResponseError(nil, "L0 batch is missing key %q", missing)
	}

	var batch taxonomy.Batch
	if err := json.Unmarshal(clean, &batch); err != nil {
		return nil, errors.NewMalformedResponseError(err, "L0 batch does not match the expected shape")
	}
	return &batch, nil
}

// ParseL2 sanitizes text and decodes it as a JSON array. An empty array is
// malformed: every L1 must end up with L2 children.
func ParseL2(text string) ([]taxonomy.L2Entry, error) {
	clean := bytes.TrimSpace([]byte(Sanitize(text)))
	if len(clean) == 0 || clean[0] != '[' {
		return nil, errors.NewMalformedResponseError(nil, "L2 response is not a JSON array")
	}

	var entries []taxonomy.L2Entry
	if err := json.Unmarshal(clean, &entries); err != nil {
		return nil, errors.NewMalformedResponseError(err, "L2 response is not a valid JSON array")
	}
	if len(entries) == 0 {
		return nil, errors.NewMalformedResponseError(nil, "L2 response is an empty array")
	}
	return entries, nil
}
