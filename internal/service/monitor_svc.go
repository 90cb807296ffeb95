package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/viral"
)

const (
	defaultPerChannel = 10
	maxPerChannel     = 50
	feedFanout        = 4
)

// FeedOptions filters and shapes a monitoring feed.
type FeedOptions struct {
	PerChannel int
	MaxAgeDays int
	ShortsOnly bool
	LongOnly   bool
	MinScore   float64
	MinTier    viral.Tier
	Locale     string
}

func (o *FeedOptions) normalize() error {
	if o.ShortsOnly && o.LongOnly {
		return invalid("shortsOnly and longOnly are mutually exclusive")
	}
	if o.PerChannel <= 0 {
		o.PerChannel = defaultPerChannel
	}
	if o.PerChannel > maxPerChannel {
		o.PerChannel = maxPerChannel
	}
	if o.MaxAgeDays < 0 || o.MaxAgeDays > 365 {
		return invalid("maxAgeDays must be 0-365")
	}
	if o.MinScore < 0 {
		return invalid("minScore must not be negative")
	}
	if o.Locale == "" {
		o.Locale = "ko"
	}
	return nil
}

// MonitorService builds the monitoring feed over a user's tracked channels.
type MonitorService struct {
	channels ChannelStore
	yt       *YouTubeAccess
	cache    *CacheService
	now      func() time.Time
}

func NewMonitorService(channels ChannelStore, yt *YouTubeAccess, cache *CacheService) *MonitorService {
	return &MonitorService{channels: channels, yt: yt, cache: cache, now: time.Now}
}

// Feed returns recent uploads of the channels in group, scored against each
// channel's baseline and ranked.
func (s *MonitorService) Feed(ctx context.Context, u *model.User, group model.GroupID, opts FeedOptions) (*model.FeedResponse, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if group == "" {
		group = model.GroupAll
	}

	channels, err := s.channels.List(ctx, u.UID, group)
	if err != nil {
		return nil, err
	}
	now := s.now()
	resp := &model.FeedResponse{Videos: []model.VideoData{}, Channels: len(channels), GeneratedAt: now.UTC().Format(time.RFC3339)}
	if len(channels) == 0 {
		return resp, nil
	}

	yt, err := s.yt.For(ctx, u)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		fatalErr error
		videos   []model.VideoData
		sem      = make(chan struct{}, feedFanout)
	)
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := range channels {
		ch := &channels[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			uploads, err := s.uploads(fetchCtx, yt, ch, opts.PerChannel)
			if err != nil {
				mapped := yt.Err(ctx, err)
				if errors.Is(mapped, ErrQuotaExceeded) || errors.Is(mapped, ErrInvalidAPIKey) {
					mu.Lock()
					if fatalErr == nil {
						fatalErr = mapped
					}
					mu.Unlock()
					cancel()
					return
				}
				if fetchCtx.Err() == nil {
					log.Warn().Err(err).Str("channel_id", ch.ChannelID).Msg("feed: channel fetch failed")
				}
				return
			}
			scored := scoreChannelVideos(ch, uploads, now, opts.Locale)

			mu.Lock()
			videos = append(videos, scored...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}

	resp.Videos = filterVideos(videos, opts, now)
	viral.Rank(resp.Videos)
	resp.QuotaUsed = yt.Used()
	return resp, nil
}

// Outliers returns the feed restricted to videos at tier viral or above.
func (s *MonitorService) Outliers(ctx context.Context, u *model.User, group model.GroupID, opts FeedOptions) (*model.FeedResponse, error) {
	opts.MinTier = viral.TierViral
	return s.Feed(ctx, u, group, opts)
}

// uploads returns hydrated recent uploads for a channel, cache first.
func (s *MonitorService) uploads(ctx context.Context, yt *Session, ch *model.SavedChannel, perChannel int) ([]model.VideoData, error) {
	key := uploadsKey(ch.ChannelID, perChannel)
	var cached []model.VideoData
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: uploads get error")
	} else if ok {
		return cached, nil
	}

	playlist := ch.UploadsPlaylistID
	if playlist == "" && strings.HasPrefix(ch.ChannelID, "UC") {
		playlist = "UU" + ch.ChannelID[2:]
	}
	ids, err := yt.RecentUploads(ctx, playlist, perChannel)
	if err != nil {
		return nil, err
	}
	videos := []model.VideoData{}
	if len(ids) > 0 {
		videos, err = yt.Videos(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	if err := s.cache.Set(ctx, key, videos, UploadsCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: uploads set error")
	}
	return videos, nil
}

// scoreChannelVideos scores a channel's uploads against its baseline.
func scoreChannelVideos(ch *model.SavedChannel, uploads []model.VideoData, now time.Time, locale string) []model.VideoData {
	var stats model.ChannelStats
	if ch.Stats != nil {
		stats = *ch.Stats
	}
	recent := make([]int64, 0, len(uploads))
	for _, v := range uploads {
		recent = append(recent, v.ViewCount)
	}
	avg := viral.Baseline(stats.ViewCount, stats.VideoCount, recent)

	out := make([]model.VideoData, len(uploads))
	for i, v := range uploads {
		if v.ChannelTitle == "" {
			v.ChannelTitle = ch.Title
		}
		v.SubscriberCount = stats.SubscriberCount
		viral.Apply(&v, avg, now, locale)
		out[i] = v
	}
	return out
}

func filterVideos(videos []model.VideoData, opts FeedOptions, now time.Time) []model.VideoData {
	out := make([]model.VideoData, 0, len(videos))
	var cutoff time.Time
	if opts.MaxAgeDays > 0 {
		cutoff = now.AddDate(0, 0, -opts.MaxAgeDays)
	}
	for _, v := range videos {
		switch {
		case !cutoff.IsZero() && v.PublishedAt.Before(cutoff):
			continue
		case opts.ShortsOnly && !v.IsShort:
			continue
		case opts.LongOnly && v.IsShort:
			continue
		case v.ViralScore < opts.MinScore:
			continue
		case opts.MinTier != "" && !viral.Tier(v.Tier).AtLeast(opts.MinTier):
			continue
		}
		out = append(out, v)
	}
	return out
}
