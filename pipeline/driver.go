// Package pipeline runs one capability-taxonomy generation end to end:
// sequential L0 batches, merge, L2 attachment and flattening.
package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pulse"
	"github.com/teranos/capgen/pulse/budget"
	"github.com/teranos/capgen/pulse/retry"
	"github.com/teranos/capgen/taxonomy"
	"github.com/teranos/capgen/taxonomy/attach"
	"github.com/teranos/capgen/taxonomy/chunk"
)

// MaxIndustryLength bounds the industry name accepted from callers
const MaxIndustryLength = 200

// Driver orchestrates a generation run. It holds no per-run state and may
// serve concurrent runs.
type Driver struct {
	cfg    Config
	l0Gen  *chunk.Generator
	l2Gen  *chunk.Generator
	logger *zap.SugaredLogger
}

// New creates a driver around client. L0 calls are retried; L2 calls are
// paced by cfg.Throttle and then retried, so every attempt is paced.
func New(client llm.Client, cfg Config, log *zap.SugaredLogger) *Driver {
	if log == nil {
		log = logger.ComponentLogger("pipeline")
	}
	if cfg.BatchCount < 1 {
		cfg.BatchCount = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}

	genCfg := chunk.Config{L1PerL0: cfg.L1PerL0, L2PerL1: cfg.L2PerL1, Logger: log.Named("chunk")}
	l0Client := retry.Wrap(client, cfg.Retry, log.Named("retry"))
	l2Client := retry.Wrap(budget.Wrap(client, cfg.Throttle), cfg.Retry, log.Named("retry"))

	return &Driver{
		cfg:    cfg,
		l0Gen:  chunk.NewGenerator(l0Client, genCfg),
		l2Gen:  chunk.NewGenerator(l2Client, genCfg),
		logger: log,
	}
}

// Config returns the driver's run configuration
func (d *Driver) Config() Config {
	return d.cfg
}

// Outline is the merged L0/L1 tree, before L2 attachment.
type Outline struct {
	RunID    string
	Industry *taxonomy.Industry
	Warnings []taxonomy.Warning
}

// Result is a completed run
type Result struct {
	RunID    string
	Industry *taxonomy.Industry
	Rows     []taxonomy.Row
	Warnings []taxonomy.Warning
	Counts   taxonomy.CountSummary
	Duration time.Duration
}

// CSV renders the result table
func (r *Result) CSV() ([]byte, error) {
	return taxonomy.EncodeCSV(r.Rows)
}

// ValidateIndustry trims and checks a caller-supplied industry name.
func ValidateIndustry(industry string) (string, error) {
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return "", errors.NewInvalidRequestError("industry is required")
	}
	if utf8.RuneCountInString(industry) > MaxIndustryLength {
		return "", errors.NewInvalidRequestError("industry must be at most %d characters", MaxIndustryLength)
	}
	for _, r := range industry {
		if unicode.IsControl(r) {
			return "", errors.NewInvalidRequestError("industry must not contain control characters")
		}
	}
	return industry, nil
}

// Run generates the full taxonomy for industry. observer receives L2
// attachment progress and may be nil. On any error no rows are produced.
func (d *Driver) Run(ctx context.Context, industry string, observer pulse.ProgressObserver) (*Result, error) {
	start := time.Now()

	outline, err := d.Outline(ctx, industry)
	if err != nil {
		return nil, err
	}
	ctx = runContext(ctx, outline.RunID, outline.Industry.Name)
	log := logger.ContextLogger(ctx, d.logger)

	attacher := attach.New(d.l2Gen, attach.Options{
		Workers:  d.cfg.Workers,
		WantL2:   d.l2Gen.L2PerL1(),
		Observer: observer,
		Logger:   d.logger.Named("attach"),
	})
	full, l2Warnings, err := attacher.AttachAll(ctx, outline.Industry)
	if err != nil {
		err = errors.CancelledIfDone(ctx, err)
		d.logFailure(log, "attach", err)
		return nil, errors.Wrap(err, "failed to attach L2 capabilities")
	}
	logger.LogMemory(log, "attach")

	rows, err := taxonomy.ToRows(full)
	if err != nil {
		d.logFailure(log, "flatten", err)
		return nil, errors.Wrap(err, "failed to flatten taxonomy")
	}

	result := &Result{
		RunID:    outline.RunID,
		Industry: full,
		Rows:     rows,
		Warnings: append(outline.Warnings, l2Warnings...),
		Counts:   full.Counts(),
		Duration: time.Since(start),
	}

	log.Infow("Generation complete",
		"l0", result.Counts.L0,
		"l1", result.Counts.L1,
		"l2", result.Counts.L2,
		"rows", len(rows),
		logger.FieldWarnings, len(result.Warnings),
		logger.FieldDurationMS, result.Duration.Milliseconds(),
	)
	logger.LogMemory(log, "end")
	return result, nil
}

// Outline runs the L0 stage only: BatchCount sequential batches, each
// prompted with every L0 generated before it, merged in order.
func (d *Driver) Outline(ctx context.Context, industry string) (*Outline, error) {
	industry, err := ValidateIndustry(industry)
	if err != nil {
		return nil, err
	}

	runID := logger.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = runContext(ctx, runID, industry)
	log := logger.ContextLogger(ctx, d.logger)

	log.Infow("Generation started",
		logger.FieldBatch, d.cfg.BatchCount,
		logger.FieldBatchSize, d.cfg.BatchSize,
	)
	logger.LogMemory(log, "start")

	var (
		batches  []*taxonomy.Batch
		prior    []taxonomy.L0Capability
		warnings []taxonomy.Warning
	)
	for i := 0; i < d.cfg.BatchCount; i++ {
		batch, err := d.l0Gen.L0Batch(ctx, industry, prior, d.cfg.BatchSize)
		if err != nil {
			err = errors.CancelledIfDone(ctx, err)
			d.logFailure(log, "l0_batch", err)
			return nil, errors.Wrapf(err, "L0 batch %d of %d", i+1, d.cfg.BatchCount)
		}
		warnings = append(warnings, taxonomy.CheckBatch(batch, industry, d.cfg.BatchSize, d.l0Gen.L1PerL0())...)
		batches = append(batches, batch)
		prior = append(prior, batch.L0...)

		log.Debugw("L0 batch merged", logger.FieldBatch, i+1, logger.FieldCount, len(batch.L0))
	}

	ind, err := taxonomy.Merge(batches)
	if err != nil {
		d.logFailure(log, "merge", err)
		return nil, err
	}
	if ind.Name == "" {
		ind.Name = industry
	}
	warnings = append(warnings, taxonomy.CheckDeclaredCounts(ind)...)
	warnings = append(warnings, taxonomy.CheckDuplicates(ind)...)

	for _, w := range warnings {
		log.Infow("Data quality warning", "code", w.Code, "message", w.Message)
	}
	logger.LogMemory(log, "merge")

	return &Outline{RunID: runID, Industry: ind, Warnings: warnings}, nil
}

func (d *Driver) logFailure(log *zap.SugaredLogger, stage string, err error) {
	log.Warnw("Generation failed",
		logger.FieldStage, stage,
		logger.FieldErrorKind, errors.KindOf(err),
		logger.FieldError, err,
	)
}

func runContext(ctx context.Context, runID, industry string) context.Context {
	if logger.RunIDFromContext(ctx) != runID {
		ctx = logger.WithRunID(ctx, runID)
	}
	return logger.WithIndustry(ctx, industry)
}
