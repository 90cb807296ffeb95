package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

// ChannelRepo stores the channels each user tracks.
type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

const channelColumns = `user_id, channel_id, title, custom_url, thumbnail_url, uploads_playlist_id,
	group_id, subscriber_count, view_count, video_count, hidden_subscribers, stats_updated_at, added_at`

func scanChannel(row pgx.Row) (*model.SavedChannel, error) {
	var (
		ch           model.SavedChannel
		groupID      *string
		stats        model.ChannelStats
		statsUpdated *time.Time
	)
	err := row.Scan(
		&ch.UserID, &ch.ChannelID, &ch.Title, &ch.CustomURL, &ch.ThumbnailURL, &ch.UploadsPlaylistID,
		&groupID, &stats.SubscriberCount, &stats.ViewCount, &stats.VideoCount, &stats.HiddenSubscribers,
		&statsUpdated, &ch.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	if groupID != nil {
		g := model.GroupID(*groupID)
		ch.GroupID = &g
	}
	if statsUpdated != nil {
		stats.UpdatedAt = *statsUpdated
		ch.Stats = &stats
	}
	return &ch, nil
}

// List returns a user's channels. GroupAll returns every channel and
// GroupUnassigned those without a group.
func (r *ChannelRepo) List(ctx context.Context, uid string, group model.GroupID) ([]model.SavedChannel, error) {
	query := `SELECT ` + channelColumns + ` FROM saved_channels WHERE user_id = $1`
	args := []any{uid}
	switch group {
	case model.GroupAll, "":
	case model.GroupUnassigned:
		query += ` AND group_id IS NULL`
	default:
		query += ` AND group_id = $2`
		args = append(args, string(group))
	}
	query += ` ORDER BY added_at DESC, channel_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []model.SavedChannel{}
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

// Get returns one saved channel.
func (r *ChannelRepo) Get(ctx context.Context, uid, channelID string) (*model.SavedChannel, error) {
	return scanChannel(r.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM saved_channels WHERE user_id = $1 AND channel_id = $2`, uid, channelID))
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Upsert saves a resolved channel for a user. Re-adding an existing channel
// refreshes its metadata and moves it to the requested group; a nil group
// leaves it where it is.
func (r *ChannelRepo) Upsert(ctx context.Context, ch *model.SavedChannel) error {
	return upsertChannel(ctx, r.pool, ch)
}

func upsertChannel(ctx context.Context, q execer, ch *model.SavedChannel) error {
	var (
		stats        model.ChannelStats
		statsUpdated *time.Time
	)
	if ch.Stats != nil {
		stats = *ch.Stats
		t := stats.UpdatedAt
		statsUpdated = &t
	}
	_, err := q.Exec(ctx, `
		INSERT INTO saved_channels (user_id, channel_id, title, custom_url, thumbnail_url, uploads_playlist_id,
			group_id, subscriber_count, view_count, video_count, hidden_subscribers, stats_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, channel_id) DO UPDATE SET
			title               = COALESCE(NULLIF(EXCLUDED.title, ''), saved_channels.title),
			custom_url          = COALESCE(NULLIF(EXCLUDED.custom_url, ''), saved_channels.custom_url),
			thumbnail_url       = COALESCE(NULLIF(EXCLUDED.thumbnail_url, ''), saved_channels.thumbnail_url),
			uploads_playlist_id = COALESCE(NULLIF(EXCLUDED.uploads_playlist_id, ''), saved_channels.uploads_playlist_id),
			group_id            = COALESCE(EXCLUDED.group_id, saved_channels.group_id),
			subscriber_count    = CASE WHEN EXCLUDED.stats_updated_at IS NULL THEN saved_channels.subscriber_count ELSE EXCLUDED.subscriber_count END,
			view_count          = CASE WHEN EXCLUDED.stats_updated_at IS NULL THEN saved_channels.view_count ELSE EXCLUDED.view_count END,
			video_count         = CASE WHEN EXCLUDED.stats_updated_at IS NULL THEN saved_channels.video_count ELSE EXCLUDED.video_count END,
			hidden_subscribers  = CASE WHEN EXCLUDED.stats_updated_at IS NULL THEN saved_channels.hidden_subscribers ELSE EXCLUDED.hidden_subscribers END,
			stats_updated_at    = COALESCE(EXCLUDED.stats_updated_at, saved_channels.stats_updated_at)`,
		ch.UserID, ch.ChannelID, ch.Title, ch.CustomURL, ch.ThumbnailURL, ch.UploadsPlaylistID,
		groupParam(ch.GroupID), stats.SubscriberCount, stats.ViewCount, stats.VideoCount, stats.HiddenSubscribers,
		statsUpdated)
	return err
}

// Move files channels under group, or unassigns them when group is nil.
// It returns the number of channels moved.
func (r *ChannelRepo) Move(ctx context.Context, uid string, channelIDs []string, group *model.GroupID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE saved_channels SET group_id = $3
		WHERE user_id = $1 AND channel_id = ANY($2)`, uid, channelIDs, groupParam(group))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Remove untracks channels and returns how many were removed.
func (r *ChannelRepo) Remove(ctx context.Context, uid string, channelIDs []string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM saved_channels WHERE user_id = $1 AND channel_id = ANY($2)`, uid, channelIDs)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Import saves package channels for a user in one transaction. When
// newGroup is set it is created first and used as the target group.
func (r *ChannelRepo) Import(ctx context.Context, uid string, newGroup *model.ChannelGroup, group *model.GroupID, channels []model.PackageChannel) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if newGroup != nil {
		if err := insertGroup(ctx, tx, newGroup); err != nil {
			return 0, err
		}
		id := newGroup.ID
		group = &id
	}

	for _, pc := range channels {
		ch := &model.SavedChannel{
			UserID:       uid,
			ChannelID:    pc.ChannelID,
			Title:        pc.Title,
			ThumbnailURL: pc.ThumbnailURL,
			GroupID:      group,
		}
		if err := upsertChannel(ctx, tx, ch); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(channels), nil
}

// UpdateStats writes fresh channel metadata to every user's copy of the channel.
func (r *ChannelRepo) UpdateStats(ctx context.Context, info model.ChannelInfo) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE saved_channels SET
			title               = COALESCE(NULLIF($2, ''), title),
			custom_url          = COALESCE(NULLIF($3, ''), custom_url),
			thumbnail_url       = COALESCE(NULLIF($4, ''), thumbnail_url),
			uploads_playlist_id = COALESCE(NULLIF($5, ''), uploads_playlist_id),
			subscriber_count    = $6,
			view_count          = $7,
			video_count         = $8,
			hidden_subscribers  = $9,
			stats_updated_at    = $10
		WHERE channel_id = $1`,
		info.ChannelID, info.Title, info.CustomURL, info.ThumbnailURL, info.UploadsPlaylistID,
		info.Stats.SubscriberCount, info.Stats.ViewCount, info.Stats.VideoCount, info.Stats.HiddenSubscribers,
		info.Stats.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// StaleChannelIDs returns distinct channel ids whose stats are missing or
// older than cutoff, oldest first.
func (r *ChannelRepo) StaleChannelIDs(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel_id FROM saved_channels
		WHERE stats_updated_at IS NULL OR stats_updated_at < $1
		GROUP BY channel_id
		ORDER BY MIN(stats_updated_at) NULLS FIRST
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// NotifyAdded publishes channel ids on the channel_added notification channel.
func (r *ChannelRepo) NotifyAdded(ctx context.Context, channelID string) error {
	_, err := r.pool.Exec(ctx, `SELECT pg_notify('channel_added', $1)`, channelID)
	return err
}

func groupParam(g *model.GroupID) *string {
	if g == nil || *g == "" || g.IsSentinel() {
		return nil
	}
	s := string(*g)
	return &s
}
