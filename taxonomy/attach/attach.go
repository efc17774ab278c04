// Package attach populates the L2 layer of a merged taxonomy: one model call
// per L1 capability, run by a bounded worker pool.
package attach

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pulse"
	"github.com/teranos/capgen/taxonomy"
)

// Stage is the progress stage name reported by the attacher
const Stage = "l2_attach"

// L2Generator produces the L2 children of one L1 capability.
type L2Generator interface {
	L2Batch(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error)
}

// Options configures an Attacher
type Options struct {
	Workers  int                    // concurrent L2 requests; <= 1 is sequential
	WantL2   int                    // expected L2 count per L1 for quality warnings; 0 = unchecked
	Observer pulse.ProgressObserver // nil = no progress reporting
	Logger   *zap.SugaredLogger
}

// Attacher attaches L2 children to every L1 of a tree.
type Attacher struct {
	gen    L2Generator
	opts   Options
	logger *zap.SugaredLogger
}

// New creates an Attacher
func New(gen L2Generator, opts Options) *Attacher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = logger.ComponentLogger("taxonomy.attach")
	}
	return &Attacher{gen: gen, opts: opts, logger: log}
}

type slot struct {
	l0, l1 int
}

// AttachAll returns a copy of ind in which every L1 carries the L2 entries
// the model returned for it, verbatim. The input tree is not modified.
//
// Any failed L1 fails the whole operation: the first error cancels the
// remaining requests and no partially populated tree is returned. Progress
// is reported after each L1 completes.
func (a *Attacher) AttachAll(ctx context.Context, ind *taxonomy.Industry) (*taxonomy.Industry, []taxonomy.Warning, error) {
	out := ind.Clone()

	var slots []slot
	for i, l0 := range out.L0 {
		for j := range l0.L1 {
			slots = append(slots, slot{l0: i, l1: j})
		}
	}

	log := logger.ContextLogger(ctx, a.logger)
	log.Infow("Attaching L2 capabilities",
		logger.FieldTotalCount, len(slots),
		"workers", a.opts.Workers,
	)

	tracker := pulse.NewTracker(Stage, len(slots), a.opts.Observer)
	warnings := make([][]taxonomy.Warning, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	for n, s := range slots {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.MarkCancelled(err)
			}
			l0 := &out.L0[s.l0]
			l1 := &l0.L1[s.l1]

			entries, err := a.gen.L2Batch(gctx, *l1)
			if err != nil {
				log.Warnw("L2 generation failed",
					logger.FieldL0, l0.Name,
					logger.FieldL1, l1.Name,
					logger.FieldError, err,
				)
				return err
			}

			// Each goroutine owns exactly one L1 slot
			l1.L2 = entries
			warnings[n] = taxonomy.CheckL2(l0.Name, l1.Name, entries, a.opts.WantL2)

			p := tracker.Done()
			log.Debugw("L2 attached",
				logger.FieldL1, l1.Name,
				logger.FieldCount, len(entries),
				"current", p.Current,
				logger.FieldRemainingMS, p.Remaining.Milliseconds(),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	// The loop stops scheduling once the group context is cancelled; a
	// parent cancellation without a failed task must still fail the run.
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.MarkCancelled(err)
	}

	var all []taxonomy.Warning
	for _, w := range warnings {
		all = append(all, w...)
	}

	log.Infow("L2 attachment complete",
		logger.FieldCount, len(slots),
		logger.FieldDurationMS, tracker.Elapsed().Milliseconds(),
		logger.FieldWarnings, len(all),
	)
	return out, all, nil
}
