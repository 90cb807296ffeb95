package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

// List returns a user's groups in display order with their channel counts.
func (r *GroupRepo) List(ctx context.Context, uid string) ([]model.ChannelGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.id, g.user_id, g.name, g.position, g.created_at,
		       (SELECT COUNT(*) FROM saved_channels s WHERE s.user_id = g.user_id AND s.group_id = g.id)
		FROM channel_groups g
		WHERE g.user_id = $1
		ORDER BY g.position, g.created_at`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []model.ChannelGroup{}
	for rows.Next() {
		var g model.ChannelGroup
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Position, &g.CreatedAt, &g.ChannelCount); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Counts returns the total number of saved channels and how many have no group.
func (r *GroupRepo) Counts(ctx context.Context, uid string) (total, unassigned int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE group_id IS NULL)
		FROM saved_channels WHERE user_id = $1`, uid).Scan(&total, &unassigned)
	return total, unassigned, err
}

// Exists reports whether uid owns group id.
func (r *GroupRepo) Exists(ctx context.Context, uid string, id model.GroupID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM channel_groups WHERE user_id = $1 AND id = $2)`, uid, id).Scan(&ok)
	return ok, err
}

// Create inserts g at the end of the user's group order.
func (r *GroupRepo) Create(ctx context.Context, g *model.ChannelGroup) error {
	return insertGroup(ctx, r.pool, g)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertGroup(ctx context.Context, q queryRower, g *model.ChannelGroup) error {
	return q.QueryRow(ctx, `
		INSERT INTO channel_groups (id, user_id, name, position)
		VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position) + 1, 0) FROM channel_groups WHERE user_id = $2))
		RETURNING position, created_at`,
		g.ID, g.UserID, g.Name).Scan(&g.Position, &g.CreatedAt)
}

// Rename changes a group's name. Returns pgx.ErrNoRows when uid does not own it.
func (r *GroupRepo) Rename(ctx context.Context, uid string, id model.GroupID, name string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE channel_groups SET name = $3 WHERE user_id = $1 AND id = $2`, uid, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Reorder assigns positions following ids. Groups missing from ids keep
// their relative order after the listed ones.
func (r *GroupRepo) Reorder(ctx context.Context, uid string, ids []model.GroupID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, id := range ids {
		tag, err := tx.Exec(ctx, `
			UPDATE channel_groups SET position = $3 WHERE user_id = $1 AND id = $2`, uid, id, i)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE channel_groups g SET position = $2 + o.rn
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY position, created_at) - 1 AS rn
			FROM channel_groups
			WHERE user_id = $1 AND NOT (id = ANY($3))
		) o
		WHERE g.id = o.id`, uid, len(ids), groupIDStrings(ids))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes a group. Its channels fall back to unassigned through the
// ON DELETE SET NULL foreign key.
func (r *GroupRepo) Delete(ctx context.Context, uid string, id model.GroupID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM channel_groups WHERE user_id = $1 AND id = $2`, uid, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CreateWithChannels creates g and files the given saved channels under it
// in one transaction. It returns how many channels were moved.
func (r *GroupRepo) CreateWithChannels(ctx context.Context, g *model.ChannelGroup, channelIDs []string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := insertGroup(ctx, tx, g); err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE saved_channels SET group_id = $2
		WHERE user_id = $1 AND channel_id = ANY($3)`, g.UserID, g.ID, channelIDs)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	g.ChannelCount = int(tag.RowsAffected())
	return g.ChannelCount, nil
}

func groupIDStrings(ids []model.GroupID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
