package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// InsertMany stores notifications in one batch.
func (r *NotificationRepo) InsertMany(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(`
			INSERT INTO notifications (id, user_id, kind, title, message, link, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.ID, n.UserID, string(n.Kind), n.Title, n.Message, n.Link, n.CreatedAt)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// List returns a user's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, uid string, unreadOnly bool, limit int) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, title, message, link, read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, uid, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ns := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

// UnreadCount returns how many notifications the user has not read.
func (r *NotificationRepo) UnreadCount(ctx context.Context, uid string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, uid).Scan(&n)
	return n, err
}

// MarkRead flags one notification as read. Returns pgx.ErrNoRows unless uid owns it.
func (r *NotificationRepo) MarkRead(ctx context.Context, uid, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE user_id = $1 AND id = $2`, uid, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkAllRead flags every notification of uid as read and returns how many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, uid string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, uid)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Delete removes one notification owned by uid.
func (r *NotificationRepo) Delete(ctx context.Context, uid, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1 AND id = $2`, uid, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
