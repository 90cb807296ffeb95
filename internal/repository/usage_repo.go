package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

// UsageRepo persists daily YouTube quota counters and the call log.
type UsageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) *UsageRepo {
	return &UsageRepo{pool: pool}
}

// Get returns the stored counter for key.
func (r *UsageRepo) Get(ctx context.Context, key string) (*model.ApiUsage, error) {
	var u model.ApiUsage
	err := r.pool.QueryRow(ctx, `
		SELECT key, day, used, daily_limit, reset_at, updated_at
		FROM api_usage WHERE key = $1`, key).Scan(
		&u.Key, &u.Day, &u.Used, &u.Limit, &u.ResetAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update locks the counter for key, creating it from init when missing, and
// lets fn modify it. The modified counter and the log entry fn returns (if
// any) are written in the same transaction. An error from fn rolls back.
func (r *UsageRepo) Update(ctx context.Context, init model.ApiUsage, fn func(u *model.ApiUsage) (*model.UsageLogEntry, error)) (*model.ApiUsage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO api_usage (key, day, used, daily_limit, reset_at)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (key) DO NOTHING`,
		init.Key, init.Day, init.Limit, init.ResetAt)
	if err != nil {
		return nil, err
	}

	var u model.ApiUsage
	err = tx.QueryRow(ctx, `
		SELECT key, day, used, daily_limit, reset_at, updated_at
		FROM api_usage WHERE key = $1
		FOR UPDATE`, init.Key).Scan(
		&u.Key, &u.Day, &u.Used, &u.Limit, &u.ResetAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry, err := fn(&u)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE api_usage SET day = $2, used = $3, daily_limit = $4, reset_at = $5, updated_at = NOW()
		WHERE key = $1
		RETURNING updated_at`,
		u.Key, u.Day, u.Used, u.Limit, u.ResetAt).Scan(&u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if entry != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO api_usage_logs (key, operation, cost, detail) VALUES ($1, $2, $3, $4)`,
			u.Key, string(entry.Operation), entry.Cost, entry.Detail)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logs returns the most recent log entries for key.
func (r *UsageRepo) Logs(ctx context.Context, key string, limit int) ([]model.UsageLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, key, operation, cost, detail, created_at
		FROM api_usage_logs
		WHERE key = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, key, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.UsageLogEntry, error) {
		var e model.UsageLogEntry
		err := row.Scan(&e.ID, &e.Key, &e.Operation, &e.Cost, &e.Detail, &e.CreatedAt)
		return e, err
	})
}
