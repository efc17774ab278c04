package commands

import (
	"context"

	"github.com/teranos/capgen/ai/llm"
	"github.com/teranos/capgen/ai/provider"
	"github.com/teranos/capgen/ai/tracker"
	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
)

// newClient builds the configured model client. When usage tracking is
// enabled the returned close func closes the usage database.
func newClient(ctx context.Context, cfg *am.Config, providerName string) (llm.Client, func(), error) {
	p, err := provider.ParseProvider(providerName)
	if err != nil {
		return nil, nil, errors.Wrap(errors.Mark(err, errors.ErrInvalidRequest), "invalid --provider")
	}

	closeFn := func() {}
	opts := provider.Options{Logger: logger.Logger.Named("provider")}
	if cfg.Database.TrackUsage {
		database, err := openDatabase(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		opts.Tracker = tracker.NewUsageTracker(database)
		closeFn = func() { database.Close() }
	}

	client, err := provider.NewClient(ctx, cfg, p, opts)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return client, closeFn, nil
}
