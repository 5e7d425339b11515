package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tasktrack/internal/store"
)

// stagingSweeper clears abandoned uploads and expired sessions.
type stagingSweeper struct {
	files interface {
		SweepStaging(ctx context.Context, olderThan time.Duration) (int, error)
	}
	store  store.Gateway
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// run performs one sweep. Errors are logged; the next tick retries.
func (s *stagingSweeper) run(ctx context.Context) {
	removed, err := s.files.SweepStaging(ctx, s.ttl)
	if err != nil {
		s.logger.Warn("staging sweep failed", "error", err)
	} else if removed > 0 {
		s.logger.Info("staging swept", "removed", removed, "older_than", s.ttl)
	}

	purged, err := store.Sessions{}.PurgeExpired(ctx, s.store.DB(), s.now())
	if err != nil {
		s.logger.Warn("session purge failed", "error", err)
	} else if purged > 0 {
		s.logger.Debug("expired sessions purged", "count", purged)
	}
}

// schedule registers the sweep on a cron spec such as "@every 1h" and
// returns the unstarted scheduler.
func (s *stagingSweeper) schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { s.run(ctx) }); err != nil {
		return nil, err
	}
	return c, nil
}
