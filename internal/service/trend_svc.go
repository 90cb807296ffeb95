package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/viral"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

const (
	maxQueryLen        = 100
	defaultTrendMax    = 25
	maxTrendResults    = 50
	defaultRegion      = "KR"
	maxTrendWindowDays = 365
)

var validDurations = map[string]bool{"": true, "any": true, "short": true, "medium": true, "long": true}

// TrendOptions narrows a keyword search.
type TrendOptions struct {
	Region   string
	Days     int
	Duration string
	Max      int
	Locale   string
}

// TrendService searches YouTube for breakout videos. Member only.
type TrendService struct {
	yt    *YouTubeAccess
	cache *CacheService
	now   func() time.Time
}

func NewTrendService(yt *YouTubeAccess, cache *CacheService) *TrendService {
	return &TrendService{yt: yt, cache: cache, now: time.Now}
}

// NormalizeQuery folds a search query so equivalent inputs share a cache entry.
func NormalizeQuery(q string) string {
	q = norm.NFC.String(q)
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Search runs a keyword search ordered by views and scores each hit against
// its channel's lifetime baseline.
func (s *TrendService) Search(ctx context.Context, u *model.User, query string, opts TrendOptions) (*model.FeedResponse, error) {
	now := s.now()
	if !u.MembershipActive(now) {
		return nil, ErrMembershipRequired
	}
	q := NormalizeQuery(query)
	if q == "" || utf8.RuneCountInString(q) > maxQueryLen {
		return nil, invalid("query must be 1-%d characters", maxQueryLen)
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	key := trendKey("search", q, opts.Region, strconv.Itoa(opts.Days), opts.Duration, strconv.Itoa(opts.Max), opts.Locale)
	var cached model.FeedResponse
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: trend get error")
	} else if ok {
		cached.QuotaUsed = 0
		return &cached, nil
	}

	yt, err := s.yt.For(ctx, u)
	if err != nil {
		return nil, err
	}
	sq := youtube.SearchQuery{
		Query:      q,
		RegionCode: opts.Region,
		Duration:   opts.Duration,
		Order:      "viewCount",
		Max:        opts.Max,
	}
	if opts.Days > 0 {
		sq.PublishedAfter = now.AddDate(0, 0, -opts.Days)
	}
	ids, err := yt.Search(ctx, sq)
	if err != nil {
		return nil, yt.Err(ctx, err)
	}
	videos := []model.VideoData{}
	if len(ids) > 0 {
		if videos, err = yt.Videos(ctx, ids); err != nil {
			return nil, yt.Err(ctx, err)
		}
	}

	resp, err := s.score(ctx, yt, videos, now, opts.Locale)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, resp, TrendCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: trend set error")
	}
	return resp, nil
}

// Popular returns the most popular chart for a region and optional category.
func (s *TrendService) Popular(ctx context.Context, u *model.User, region, categoryID, locale string) (*model.FeedResponse, error) {
	now := s.now()
	if !u.MembershipActive(now) {
		return nil, ErrMembershipRequired
	}
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = defaultRegion
	}
	if len(region) != 2 {
		return nil, invalid("region must be a 2-letter country code")
	}
	if categoryID != "" {
		if _, err := strconv.Atoi(categoryID); err != nil {
			return nil, invalid("categoryId must be numeric")
		}
	}
	if locale == "" {
		locale = "ko"
	}

	key := trendKey("popular", region, categoryID, locale)
	var cached model.FeedResponse
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: trend get error")
	} else if ok {
		cached.QuotaUsed = 0
		return &cached, nil
	}

	yt, err := s.yt.For(ctx, u)
	if err != nil {
		return nil, err
	}
	videos, err := yt.Popular(ctx, region, categoryID, maxTrendResults)
	if err != nil {
		return nil, yt.Err(ctx, err)
	}
	resp, err := s.score(ctx, yt, videos, now, locale)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, resp, TrendCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: trend set error")
	}
	return resp, nil
}

// score hydrates channel statistics and applies viral scores.
func (s *TrendService) score(ctx context.Context, yt *Session, videos []model.VideoData, now time.Time, locale string) (*model.FeedResponse, error) {
	var channelIDs []string
	for _, v := range videos {
		channelIDs = append(channelIDs, v.ChannelID)
	}
	stats := make(map[string]model.ChannelStats)
	if len(channelIDs) > 0 {
		infos, err := yt.Channels(ctx, channelIDs)
		if err != nil {
			return nil, yt.Err(ctx, err)
		}
		for _, info := range infos {
			stats[info.ChannelID] = info.Stats
		}
	}

	for i := range videos {
		st := stats[videos[i].ChannelID]
		videos[i].SubscriberCount = st.SubscriberCount
		viral.Apply(&videos[i], viral.Baseline(st.ViewCount, st.VideoCount, nil), now, locale)
	}
	viral.Rank(videos)

	return &model.FeedResponse{
		Videos:      videos,
		Channels:    len(stats),
		QuotaUsed:   yt.Used(),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}, nil
}

func (o *TrendOptions) normalize() error {
	o.Region = strings.ToUpper(strings.TrimSpace(o.Region))
	if o.Region != "" && len(o.Region) != 2 {
		return invalid("region must be a 2-letter country code")
	}
	if o.Days < 0 || o.Days > maxTrendWindowDays {
		return invalid("days must be 0-%d", maxTrendWindowDays)
	}
	if !validDurations[o.Duration] {
		return invalid("duration must be any, short, medium or long")
	}
	if o.Duration == "" {
		o.Duration = "any"
	}
	if o.Max <= 0 {
		o.Max = defaultTrendMax
	}
	if o.Max > maxTrendResults {
		o.Max = maxTrendResults
	}
	if o.Locale == "" {
		o.Locale = "ko"
	}
	return nil
}
