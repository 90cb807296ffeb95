package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ChannelAddedTopic is the NOTIFY channel carrying newly saved channel ids.
const ChannelAddedTopic = "channel_added"

// StatsRefresher refreshes channel statistics. *StatsService implements it.
type StatsRefresher interface {
	Refresh(ctx context.Context, channelIDs []string) (int, error)
}

// StatsListener listens for channel_added notifications and refreshes the
// stats of newly saved channels in batches. Twenty adds of one channel
// within a window cost a single channels.list call.
type StatsListener struct {
	pool   *pgxpool.Pool
	stats  StatsRefresher
	window time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewStatsListener(pool *pgxpool.Pool, stats StatsRefresher) *StatsListener {
	return &StatsListener{
		pool:    pool,
		stats:   stats,
		window:  5 * time.Second,
		pending: make(map[string]struct{}),
	}
}

// Start listens until ctx is cancelled, reconnecting after errors.
func (w *StatsListener) Start(ctx context.Context) {
	log.Info().Dur("window", w.window).Msg("stats-listener: starting")

	for {
		if err := w.listenLoop(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("stats-listener: stopping (context cancelled)")
				return
			}
			log.Warn().Err(err).Msg("stats-listener: listen error, reconnecting in 5s")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				log.Info().Msg("stats-listener: stopping (context cancelled)")
				return
			}
		}
	}
}

func (w *StatsListener) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ChannelAddedTopic); err != nil {
		return err
	}
	log.Info().Str("topic", ChannelAddedTopic).Msg("stats-listener: listening")

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	go w.flushLoop(flushCtx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		w.Enqueue(n.Payload)
	}
}

// Enqueue adds a channel id to the next batch.
func (w *StatsListener) Enqueue(channelID string) {
	if channelID == "" {
		return
	}
	w.mu.Lock()
	w.pending[channelID] = struct{}{}
	w.mu.Unlock()
}

func (w *StatsListener) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx))
			return
		}
	}
}

// flush swaps out the pending set and refreshes it with one call per batch.
func (w *StatsListener) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	n, err := w.stats.Refresh(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Int("channels", len(ids)).Msg("stats-listener: refresh failed")
		return
	}
	log.Debug().Int("channels", len(ids)).Int("rows", n).Msg("stats-listener: batch refreshed")
}
