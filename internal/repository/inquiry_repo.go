package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

type InquiryRepo struct {
	pool *pgxpool.Pool
}

func NewInquiryRepo(pool *pgxpool.Pool) *InquiryRepo {
	return &InquiryRepo{pool: pool}
}

const inquiryColumns = `id, user_id, subject, body, status, answer, answered_at, created_at`

func scanInquiry(row pgx.Row) (*model.Inquiry, error) {
	var q model.Inquiry
	if err := row.Scan(&q.ID, &q.UserID, &q.Subject, &q.Body, &q.Status, &q.Answer, &q.AnsweredAt, &q.CreatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

// Insert stores a new inquiry.
func (r *InquiryRepo) Insert(ctx context.Context, q *model.Inquiry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO inquiries (id, user_id, subject, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		q.ID, q.UserID, q.Subject, q.Body, string(q.Status)).Scan(&q.CreatedAt)
}

// Get returns one inquiry.
func (r *InquiryRepo) Get(ctx context.Context, id string) (*model.Inquiry, error) {
	return scanInquiry(r.pool.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`, id))
}

// ListByUser returns a user's inquiries, newest first.
func (r *InquiryRepo) ListByUser(ctx context.Context, uid string) ([]model.Inquiry, error) {
	return r.list(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE user_id = $1 ORDER BY created_at DESC`, uid)
}

// ListByStatus returns inquiries in status, oldest first. Empty status lists all.
func (r *InquiryRepo) ListByStatus(ctx context.Context, status model.InquiryStatus) ([]model.Inquiry, error) {
	return r.list(ctx, `
		SELECT `+inquiryColumns+` FROM inquiries
		WHERE $1 = '' OR status = $1
		ORDER BY created_at`, string(status))
}

// Answer stores the admin answer and marks the inquiry answered.
func (r *InquiryRepo) Answer(ctx context.Context, id, answer string, at time.Time) (*model.Inquiry, error) {
	return scanInquiry(r.pool.QueryRow(ctx, `
		UPDATE inquiries SET answer = $2, answered_at = $3, status = 'answered'
		WHERE id = $1 AND status <> 'closed'
		RETURNING `+inquiryColumns, id, answer, at))
}

// Close marks an inquiry closed.
func (r *InquiryRepo) Close(ctx context.Context, id string) (*model.Inquiry, error) {
	return scanInquiry(r.pool.QueryRow(ctx, `
		UPDATE inquiries SET status = 'closed' WHERE id = $1
		RETURNING `+inquiryColumns, id))
}

func (r *InquiryRepo) list(ctx context.Context, query string, args ...any) ([]model.Inquiry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Inquiry{}
	for rows.Next() {
		q, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}
