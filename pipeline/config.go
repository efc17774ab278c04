package pipeline

import (
	"time"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/pulse/budget"
	"github.com/teranos/capgen/pulse/retry"
)

// Config controls the shape and pacing of one generation run
type Config struct {
	BatchCount int // sequential L0 batches
	BatchSize  int // L0 capabilities per batch
	L1PerL0    int
	L2PerL1    int

	Workers  int             // concurrent L2 requests
	Throttle budget.Throttle // pacing applied to L2 requests
	Retry    retry.Policy    // applied to every model call
}

// DefaultConfig mirrors am defaults
func DefaultConfig() Config {
	return Config{
		BatchCount: 2,
		BatchSize:  2,
		L1PerL0:    20,
		L2PerL1:    20,
		Workers:    1,
		Retry:      retry.NoRetry,
	}
}

// ConfigFromAM builds a run configuration from loaded settings
func ConfigFromAM(cfg *am.Config) Config {
	return Config{
		BatchCount: cfg.Taxonomy.BatchCount,
		BatchSize:  cfg.Taxonomy.BatchSize,
		L1PerL0:    cfg.Taxonomy.L1PerL0,
		L2PerL1:    cfg.Taxonomy.L2PerL1,
		Workers:    cfg.Attach.Workers,
		Throttle: budget.Throttle{
			Pause:             cfg.Attach.Pause(),
			RequestsPerMinute: cfg.Attach.RequestsPerMinute,
		},
		Retry: retry.Policy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff(),
			MaxBackoff:     cfg.Retry.MaxBackoff(),
		},
	}
}

// TotalL2Calls estimates the number of L2 requests a run will make
func (c Config) TotalL2Calls() int {
	return c.BatchCount * c.BatchSize * c.L1PerL0
}

// EstimatedDuration is a rough lower bound for a sequential run given the pause
func (c Config) EstimatedDuration() time.Duration {
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	return time.Duration(c.TotalL2Calls()/workers) * c.Throttle.Pause
}
