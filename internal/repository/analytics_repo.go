package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepo(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

// InsertSession stores a new visit.
func (r *AnalyticsRepo) InsertSession(ctx context.Context, s *model.AnalyticsSession) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO analytics_sessions (id, anonymous_id, user_id, user_agent, ip_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING started_at`,
		s.ID, s.AnonymousID, s.UserID, s.UserAgent, s.IPHash).Scan(&s.StartedAt)
}

// InsertPageView stores a page view. Returns a foreign key violation for unknown sessions.
func (r *AnalyticsRepo) InsertPageView(ctx context.Context, pv *model.PageView) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO analytics_pageviews (session_id, path, referrer)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		pv.SessionID, pv.Path, pv.Referrer).Scan(&pv.CreatedAt)
}

// Summary aggregates traffic since the given time.
func (r *AnalyticsRepo) Summary(ctx context.Context, since time.Time, topN int) (*model.AnalyticsSummary, error) {
	var s model.AnalyticsSummary
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM analytics_sessions WHERE started_at >= $1),
			(SELECT COUNT(DISTINCT anonymous_id) FROM analytics_sessions WHERE started_at >= $1),
			(SELECT COUNT(*) FROM analytics_pageviews WHERE created_at >= $1)`, since).Scan(
		&s.Sessions, &s.UniqueVisitors, &s.PageViews)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT path, COUNT(*) AS views
		FROM analytics_pageviews
		WHERE created_at >= $1
		GROUP BY path
		ORDER BY views DESC, path
		LIMIT $2`, since, topN)
	if err != nil {
		return nil, err
	}
	s.TopPaths, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.PathCount])
	if err != nil {
		return nil, err
	}
	return &s, nil
}
