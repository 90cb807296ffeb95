package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

type PackageRepo struct {
	pool *pgxpool.Pool
}

func NewPackageRepo(pool *pgxpool.Pool) *PackageRepo {
	return &PackageRepo{pool: pool}
}

const packageColumns = `id, kind, title, description, category, channels, status,
	submitted_by, reviewed_by, review_note, curated, created_at, updated_at, reviewed_at`

func scanPackage(row pgx.Row) (*model.RecommendedPackage, error) {
	var (
		p        model.RecommendedPackage
		channels []byte
	)
	err := row.Scan(
		&p.ID, &p.Kind, &p.Title, &p.Description, &p.Category, &channels, &p.Status,
		&p.SubmittedBy, &p.ReviewedBy, &p.ReviewNote, &p.Curated, &p.CreatedAt, &p.UpdatedAt, &p.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(channels, &p.Channels); err != nil {
		return nil, err
	}
	if p.Channels == nil {
		p.Channels = []model.PackageChannel{}
	}
	return &p, nil
}

// Get returns a package by id.
func (r *PackageRepo) Get(ctx context.Context, id string) (*model.RecommendedPackage, error) {
	return scanPackage(r.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM recommended_packages WHERE id = $1`, id))
}

// Insert stores a new package.
func (r *PackageRepo) Insert(ctx context.Context, p *model.RecommendedPackage) error {
	channels, err := json.Marshal(p.Channels)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO recommended_packages (id, kind, title, description, category, channels, status, submitted_by, curated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.Kind, p.Title, p.Description, p.Category, channels, p.Status, p.SubmittedBy, p.Curated,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// UpdateContent replaces a package's editable fields and status. The update
// only applies while the package is still in status from. A status change
// clears the previous review.
func (r *PackageRepo) UpdateContent(ctx context.Context, p *model.RecommendedPackage, from model.PackageStatus) (*model.RecommendedPackage, error) {
	channels, err := json.Marshal(p.Channels)
	if err != nil {
		return nil, err
	}
	return scanPackage(r.pool.QueryRow(ctx, `
		UPDATE recommended_packages SET
			kind = $2, title = $3, description = $4, category = $5, channels = $6, status = $7::text,
			reviewed_by = CASE WHEN $7::text = $8::text THEN reviewed_by ELSE '' END,
			review_note = CASE WHEN $7::text = $8::text THEN review_note ELSE '' END,
			reviewed_at = CASE WHEN $7::text = $8::text THEN reviewed_at ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1 AND status = $8::text
		RETURNING `+packageColumns,
		p.ID, p.Kind, p.Title, p.Description, p.Category, channels, p.Status, from))
}

// SetReview records a moderation decision. The update only applies while the
// package is still in status from, so concurrent reviews cannot both win.
func (r *PackageRepo) SetReview(ctx context.Context, id string, from, to model.PackageStatus, reviewer, note string, at time.Time) (*model.RecommendedPackage, error) {
	return scanPackage(r.pool.QueryRow(ctx, `
		UPDATE recommended_packages SET
			status = $3, reviewed_by = $4, review_note = $5, reviewed_at = $6, updated_at = $6
		WHERE id = $1 AND status = $2
		RETURNING `+packageColumns,
		id, from, to, reviewer, note, at))
}

// Delete removes a package.
func (r *PackageRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recommended_packages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// PackageFilter narrows ListByStatus. Empty fields match everything.
type PackageFilter struct {
	Status   model.PackageStatus
	Kind     model.PackageKind
	Category string
}

// List returns packages matching f, curated first, newest first.
func (r *PackageRepo) List(ctx context.Context, f PackageFilter) ([]model.RecommendedPackage, error) {
	return r.list(ctx, `
		SELECT `+packageColumns+` FROM recommended_packages
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR kind = $2) AND ($3 = '' OR category = $3)
		ORDER BY curated DESC, updated_at DESC`,
		string(f.Status), string(f.Kind), f.Category)
}

// ListBySubmitter returns a user's own submissions.
func (r *PackageRepo) ListBySubmitter(ctx context.Context, uid string) ([]model.RecommendedPackage, error) {
	return r.list(ctx, `
		SELECT `+packageColumns+` FROM recommended_packages
		WHERE submitted_by = $1
		ORDER BY updated_at DESC`, uid)
}

// UpsertCurated inserts or refreshes an editor-curated package as approved.
func (r *PackageRepo) UpsertCurated(ctx context.Context, p *model.RecommendedPackage) error {
	channels, err := json.Marshal(p.Channels)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO recommended_packages (id, kind, title, description, category, channels, status, curated, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'approved', TRUE, NOW())
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind, title = EXCLUDED.title, description = EXCLUDED.description,
			category = EXCLUDED.category, channels = EXCLUDED.channels,
			status = 'approved', curated = TRUE, updated_at = NOW()`,
		p.ID, p.Kind, p.Title, p.Description, p.Category, channels)
	return err
}

func (r *PackageRepo) list(ctx context.Context, query string, args ...any) ([]model.RecommendedPackage, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pkgs := []model.RecommendedPackage{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, *p)
	}
	return pkgs, rows.Err()
}
