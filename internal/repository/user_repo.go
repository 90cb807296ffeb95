package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `uid, email, display_name, role, expires_at, youtube_api_key,
	expiry_notified_at, created_at, last_active`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.UID, &u.Email, &u.DisplayName, &u.Role, &u.ExpiresAt, &u.YouTubeAPIKey,
		&u.ExpiryNotifiedAt, &u.CreatedAt, &u.LastActive,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns a single user by Firebase UID.
func (r *UserRepo) FindByID(ctx context.Context, uid string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
}

// Touch creates the user on first sight and refreshes last_active and
// profile fields otherwise. Empty profile fields never overwrite stored ones.
func (r *UserRepo) Touch(ctx context.Context, uid, email, displayName string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (uid, email, display_name) VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE SET
			last_active  = NOW(),
			email        = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name)
		RETURNING `+userColumns,
		uid, email, displayName))
}

// SetAPIKey stores or clears (empty key) the user's personal YouTube API key.
func (r *UserRepo) SetAPIKey(ctx context.Context, uid, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET youtube_api_key = $2 WHERE uid = $1`, uid, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetMembership writes role and expiry and clears the expiry reminder marker.
func (r *UserRepo) SetMembership(ctx context.Context, uid string, role model.Role, expiresAt *time.Time) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET role = $2, expires_at = $3, expiry_notified_at = NULL
		WHERE uid = $1
		RETURNING `+userColumns,
		uid, role, expiresAt))
}

// ExpireMember demotes a member to free, but only while their expiry is
// still at or before now. A renewal that lands first leaves the row alone
// and pgx.ErrNoRows is returned.
func (r *UserRepo) ExpireMember(ctx context.Context, uid string, now time.Time) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET role = 'free', expires_at = NULL, expiry_notified_at = NULL
		WHERE uid = $1 AND role = 'member' AND expires_at IS NOT NULL AND expires_at <= $2
		RETURNING `+userColumns,
		uid, now))
}

// ListExpired returns members whose expiry is at or before now.
func (r *UserRepo) ListExpired(ctx context.Context, now time.Time) ([]model.User, error) {
	return r.list(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = 'member' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at`, now)
}

// ListExpiringUnnotified returns members expiring in (now, until] who have
// not been reminded since their expiry was last set.
func (r *UserRepo) ListExpiringUnnotified(ctx context.Context, now, until time.Time) ([]model.User, error) {
	return r.list(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = 'member' AND expires_at > $1 AND expires_at <= $2
		  AND expiry_notified_at IS NULL
		ORDER BY expires_at`, now, until)
}

// MarkExpiryNotified records that the expiry reminder was sent.
func (r *UserRepo) MarkExpiryNotified(ctx context.Context, uid string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET expiry_notified_at = $2 WHERE uid = $1`, uid, at)
	return err
}

// ListIDsByRole returns the UIDs holding role, or every UID when role is empty.
func (r *UserRepo) ListIDsByRole(ctx context.Context, role model.Role) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT uid FROM users WHERE $1 = '' OR role = $1 ORDER BY uid`, string(role))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListAdminIDs returns the UIDs of all administrators.
func (r *UserRepo) ListAdminIDs(ctx context.Context) ([]string, error) {
	return r.ListIDsByRole(ctx, model.RoleAdmin)
}

// GetStats returns aggregate counts across the stored entities.
func (r *UserRepo) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE role = 'member' AND (expires_at IS NULL OR expires_at > NOW())) AS active_members,
			(SELECT COUNT(*) FROM saved_channels) AS saved_channels,
			(SELECT COUNT(*) FROM channel_groups) AS groups,
			(SELECT COUNT(*) FROM recommended_packages WHERE status = 'pending') AS pending_packages,
			(SELECT COUNT(*) FROM inquiries WHERE status = 'open') AS open_inquiries,
			(SELECT COUNT(*) FROM users WHERE last_active > NOW() - INTERVAL '24 hours') AS active_users_24h`

	var s model.StatsResponse
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalUsers, &s.ActiveMembers, &s.SavedChannels, &s.Groups,
		&s.PendingPackages, &s.OpenInquiries, &s.ActiveUsers24h,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *UserRepo) list(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
