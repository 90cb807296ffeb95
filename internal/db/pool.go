package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/pkg/retry"
)

// PoolConfig sizes the pool and bounds start-up retries.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	ConnectAttempts int
}

// connectBackoff spaces start-up attempts while Postgres comes up alongside us.
var connectBackoff = retry.Config{InitialWait: time.Second, MaxWait: 8 * time.Second, Multiplier: 2}

func (pc PoolConfig) apply(c *pgxpool.Config) {
	c.MaxConns = 10
	if pc.MaxConns > 0 {
		c.MaxConns = pc.MaxConns
	}
	c.MinConns = min(2, c.MaxConns)
	if pc.MinConns > 0 {
		c.MinConns = min(pc.MinConns, c.MaxConns)
	}
	c.MaxConnLifetime = time.Hour
	c.MaxConnIdleTime = 30 * time.Minute
	c.HealthCheckPeriod = time.Minute
}

// unreachable marks a failed ping as worth another attempt.
type unreachable struct{ err error }

func (e *unreachable) Error() string   { return e.err.Error() }
func (e *unreachable) Unwrap() error   { return e.err }
func (e *unreachable) Temporary() bool { return true }

// NewPool connects to Postgres, retrying with backoff until it answers a ping
// or ConnectAttempts run out.
func NewPool(ctx context.Context, databaseURL string, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pc.apply(cfg)

	rc := connectBackoff
	rc.MaxRetries = max(pc.ConnectAttempts, 1) - 1

	attempt := 0
	pool, err := retry.Do(ctx, rc, func() (*pgxpool.Pool, error) {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", rc.MaxRetries+1).Msg("database not reachable")
			return nil, &unreachable{err: err}
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempt(s): %w", attempt, err)
	}

	log.Info().Int32("max_conns", cfg.MaxConns).Int("attempt", attempt).Msg("database connected")
	return pool, nil
}
