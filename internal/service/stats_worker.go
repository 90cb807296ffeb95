package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StatsWorker periodically refreshes saved-channel statistics that have
// gone stale.
type StatsWorker struct {
	stats    *StatsService
	interval time.Duration
	stopCh   chan struct{}
}

// NewStatsWorker creates a worker that ticks every interval.
func NewStatsWorker(stats *StatsService, interval time.Duration) *StatsWorker {
	return &StatsWorker{
		stats:    stats,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one tick immediately, then every interval.
func (w *StatsWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("stats-worker: starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			log.Info().Msg("stats-worker: stopping (context cancelled)")
			return
		case <-w.stopCh:
			log.Info().Msg("stats-worker: stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *StatsWorker) Stop() {
	close(w.stopCh)
}

func (w *StatsWorker) tick(ctx context.Context) {
	start := time.Now()

	stale, updated, err := w.stats.RefreshStale(ctx)
	if err != nil {
		log.Error().Err(err).Int("stale", stale).Msg("stats-worker: refresh failed")
		return
	}
	log.Info().
		Int("stale", stale).
		Int("rows_updated", updated).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("stats-worker: tick complete")
}
