package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

// NoticeRepo stores the single system-wide notice row.
type NoticeRepo struct {
	pool *pgxpool.Pool
}

func NewNoticeRepo(pool *pgxpool.Pool) *NoticeRepo {
	return &NoticeRepo{pool: pool}
}

// Get returns the notice, or an inactive empty notice when none was ever set.
func (r *NoticeRepo) Get(ctx context.Context) (*model.Notice, error) {
	var n model.Notice
	err := r.pool.QueryRow(ctx, `
		SELECT title, body, active, updated_at, updated_by FROM system_notice WHERE id = 1`).Scan(
		&n.Title, &n.Body, &n.Active, &n.UpdatedAt, &n.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.Notice{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Set replaces the notice.
func (r *NoticeRepo) Set(ctx context.Context, n *model.Notice) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO system_notice (id, title, body, active, updated_by)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, body = EXCLUDED.body, active = EXCLUDED.active,
			updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING updated_at`,
		n.Title, n.Body, n.Active, n.UpdatedBy).Scan(&n.UpdatedAt)
}
