// Package youtube wraps the YouTube Data API v3 with quota metering,
// pacing and retries.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/pkg/retry"
)

// MaxBatch is the largest id list a single list call accepts.
const MaxBatch = 50

// ShortMaxSeconds is the longest duration still classified as a Short.
const ShortMaxSeconds = 180

var (
	channelParts  = []string{"snippet", "statistics", "contentDetails"}
	videoParts    = []string{"snippet", "statistics", "contentDetails"}
	playlistParts = []string{"contentDetails"}
	searchParts   = []string{"id"}
)

// Meter is consulted before every billable call. A non-nil error aborts the call.
type Meter func(ctx context.Context, op model.Operation, detail string) error

// Observer is told about every completed call.
type Observer func(op model.Operation, err error)

// API is the subset of the Data API the service uses.
type API interface {
	ResolveChannel(ctx context.Context, input string) (*model.ChannelInfo, error)
	Channels(ctx context.Context, ids []string) ([]model.ChannelInfo, error)
	RecentUploads(ctx context.Context, uploadsPlaylistID string, max int) ([]string, error)
	Videos(ctx context.Context, ids []string) ([]model.VideoData, error)
	Search(ctx context.Context, q SearchQuery) ([]string, error)
	Popular(ctx context.Context, regionCode, categoryID string, max int) ([]model.VideoData, error)
}

// SearchQuery describes a keyword video search.
type SearchQuery struct {
	Query          string
	RegionCode     string
	PublishedAfter time.Time
	Duration       string // any, short, medium, long
	Order          string // viewCount, date, relevance
	Max            int
}

// FactoryConfig configures how clients reach the API.
type FactoryConfig struct {
	Endpoint   string // override for tests
	HTTPClient *http.Client
	RPS        float64
	Retry      retry.Config
	Observe    Observer
}

// Factory hands out API clients bound to an API key and a quota meter.
// All clients share one token bucket so the process never bursts past RPS.
type Factory struct {
	cfg      FactoryConfig
	limiter  *rate.Limiter
	mu       sync.Mutex
	services map[string]*yt.Service
}

// NewFactory creates a client factory.
func NewFactory(cfg FactoryConfig) *Factory {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialWait == 0 {
		cfg.Retry = retry.Default
	}
	return &Factory{
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), int(cfg.RPS)+1),
		services: make(map[string]*yt.Service),
	}
}

// Client returns an API bound to apiKey. Every call is charged through meter.
func (f *Factory) Client(ctx context.Context, apiKey string, meter Meter) (API, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	svc, err := f.service(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, key: apiKey, meter: meter, factory: f}, nil
}

// forget drops the cached service for a key the API has rejected.
func (f *Factory) forget(apiKey string) {
	f.mu.Lock()
	delete(f.services, apiKey)
	f.mu.Unlock()
}

func (f *Factory) service(ctx context.Context, apiKey string) (*yt.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if svc, ok := f.services[apiKey]; ok {
		return svc, nil
	}

	opts := []option.ClientOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{
			Timeout:   f.cfg.HTTPClient.Timeout,
			Transport: &keyTransport{key: apiKey, base: f.cfg.HTTPClient.Transport},
		}),
	}
	if f.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.cfg.Endpoint))
	}

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	f.services[apiKey] = svc
	return svc, nil
}

// keyTransport appends the API key to every request. option.WithAPIKey is
// ignored once a custom HTTP client is supplied.
type keyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()
	return base.RoundTrip(r)
}

// Client is an API bound to one key and meter.
type Client struct {
	svc     *yt.Service
	key     string
	meter   Meter
	factory *Factory
}

// call meters, paces, retries and classifies one billable request.
func call[T any](ctx context.Context, c *Client, op model.Operation, detail string, fn func() (T, error)) (T, error) {
	var zero T
	if c.meter != nil {
		if err := c.meter(ctx, op, detail); err != nil {
			return zero, err
		}
	}
	if err := c.factory.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	res, err := retry.Do(ctx, c.factory.cfg.Retry, func() (T, error) {
		r, err := fn()
		if err != nil {
			return zero, classify(err)
		}
		return r, nil
	})
	if c.factory.cfg.Observe != nil {
		c.factory.cfg.Observe(op, err)
	}
	var te *transientError
	if errors.As(err, &te) {
		err = te.err
	}
	if errors.Is(err, ErrInvalidAPIKey) {
		c.factory.forget(c.key)
	}
	return res, err
}

// ResolveChannel looks up a channel by id, @handle or URL.
func (c *Client) ResolveChannel(ctx context.Context, input string) (*model.ChannelInfo, error) {
	ref, err := ParseChannelRef(input)
	if err != nil {
		return nil, err
	}

	resp, err := call(ctx, c, model.OpChannelsList, ref.Value, func() (*yt.ChannelListResponse, error) {
		req := c.svc.Channels.List(channelParts).Context(ctx)
		switch ref.Kind {
		case RefID:
			req = req.Id(ref.Value)
		case RefHandle:
			req = req.ForHandle(ref.Value)
		case RefUsername:
			req = req.ForUsername(ref.Value)
		}
		return req.Do()
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrChannelNotFound
	}
	info := toChannelInfo(resp.Items[0])
	return &info, nil
}

// Channels fetches metadata for up to any number of ids, MaxBatch per request.
func (c *Client) Channels(ctx context.Context, ids []string) ([]model.ChannelInfo, error) {
	out := make([]model.ChannelInfo, 0, len(ids))
	for _, batch := range Batches(ids, MaxBatch) {
		resp, err := call(ctx, c, model.OpChannelsList, fmt.Sprintf("%d ids", len(batch)), func() (*yt.ChannelListResponse, error) {
			return c.svc.Channels.List(channelParts).Id(batch...).MaxResults(MaxBatch).Context(ctx).Do()
		})
		if err != nil {
			return out, err
		}
		for _, ch := range resp.Items {
			out = append(out, toChannelInfo(ch))
		}
	}
	return out, nil
}

// RecentUploads returns the newest video ids in an uploads playlist.
func (c *Client) RecentUploads(ctx context.Context, uploadsPlaylistID string, max int) ([]string, error) {
	if max <= 0 || max > MaxBatch {
		max = MaxBatch
	}
	resp, err := call(ctx, c, model.OpPlaylistItemsList, uploadsPlaylistID, func() (*yt.PlaylistItemListResponse, error) {
		return c.svc.PlaylistItems.List(playlistParts).PlaylistId(uploadsPlaylistID).MaxResults(int64(max)).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			ids = append(ids, item.ContentDetails.VideoId)
		}
	}
	return ids, nil
}

// Videos hydrates video ids, MaxBatch per request. Unknown ids are skipped.
func (c *Client) Videos(ctx context.Context, ids []string) ([]model.VideoData, error) {
	out := make([]model.VideoData, 0, len(ids))
	for _, batch := range Batches(ids, MaxBatch) {
		resp, err := call(ctx, c, model.OpVideosList, fmt.Sprintf("%d ids", len(batch)), func() (*yt.VideoListResponse, error) {
			return c.svc.Videos.List(videoParts).Id(batch...).MaxResults(MaxBatch).Context(ctx).Do()
		})
		if err != nil {
			return out, err
		}
		for _, v := range resp.Items {
			out = append(out, toVideoData(v))
		}
	}
	return out, nil
}

// Search runs a keyword search and returns matching video ids.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]string, error) {
	max := q.Max
	if max <= 0 || max > MaxBatch {
		max = MaxBatch
	}
	order := q.Order
	if order == "" {
		order = "viewCount"
	}

	resp, err := call(ctx, c, model.OpSearchList, q.Query, func() (*yt.SearchListResponse, error) {
		req := c.svc.Search.List(searchParts).
			Q(q.Query).
			Type("video").
			Order(order).
			MaxResults(int64(max)).
			Context(ctx)
		if q.RegionCode != "" {
			req = req.RegionCode(q.RegionCode)
		}
		if !q.PublishedAfter.IsZero() {
			req = req.PublishedAfter(q.PublishedAfter.UTC().Format(time.RFC3339))
		}
		if q.Duration != "" && q.Duration != "any" {
			req = req.VideoDuration(q.Duration)
		}
		return req.Do()
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	return ids, nil
}

// Popular returns the most-popular chart for a region.
func (c *Client) Popular(ctx context.Context, regionCode, categoryID string, max int) ([]model.VideoData, error) {
	if max <= 0 || max > MaxBatch {
		max = MaxBatch
	}
	resp, err := call(ctx, c, model.OpVideosList, "chart:"+regionCode, func() (*yt.VideoListResponse, error) {
		req := c.svc.Videos.List(videoParts).Chart("mostPopular").MaxResults(int64(max)).Context(ctx)
		if regionCode != "" {
			req = req.RegionCode(regionCode)
		}
		if categoryID != "" {
			req = req.VideoCategoryId(categoryID)
		}
		return req.Do()
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.VideoData, 0, len(resp.Items))
	for _, v := range resp.Items {
		out = append(out, toVideoData(v))
	}
	return out, nil
}

// Batches splits ids into chunks of at most size, dropping duplicates and blanks.
func Batches(ids []string, size int) [][]string {
	seen := make(map[string]struct{}, len(ids))
	var batches [][]string
	var cur []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cur = append(cur, id)
		if len(cur) == size {
			batches = append(batches, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

func toChannelInfo(ch *yt.Channel) model.ChannelInfo {
	info := model.ChannelInfo{ChannelID: ch.Id}
	if ch.Snippet != nil {
		info.Title = ch.Snippet.Title
		info.CustomURL = ch.Snippet.CustomUrl
		info.ThumbnailURL = thumbnail(ch.Snippet.Thumbnails)
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		info.UploadsPlaylistID = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	if info.UploadsPlaylistID == "" && strings.HasPrefix(ch.Id, "UC") {
		info.UploadsPlaylistID = "UU" + ch.Id[2:]
	}
	if ch.Statistics != nil {
		info.Stats = model.ChannelStats{
			SubscriberCount:   int64(ch.Statistics.SubscriberCount),
			ViewCount:         int64(ch.Statistics.ViewCount),
			VideoCount:        int64(ch.Statistics.VideoCount),
			HiddenSubscribers: ch.Statistics.HiddenSubscriberCount,
		}
	}
	info.Stats.UpdatedAt = time.Now().UTC()
	return info
}

func toVideoData(v *yt.Video) model.VideoData {
	d := model.VideoData{VideoID: v.Id}
	if v.Snippet != nil {
		d.Title = v.Snippet.Title
		d.ChannelID = v.Snippet.ChannelId
		d.ChannelTitle = v.Snippet.ChannelTitle
		d.Tags = v.Snippet.Tags
		d.ThumbnailURL = thumbnail(v.Snippet.Thumbnails)
		if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			d.PublishedAt = t
		}
	}
	if v.Statistics != nil {
		d.ViewCount = int64(v.Statistics.ViewCount)
		d.LikeCount = int64(v.Statistics.LikeCount)
		d.CommentCount = int64(v.Statistics.CommentCount)
	}
	if v.ContentDetails != nil {
		if secs, ok := ParseDuration(v.ContentDetails.Duration); ok {
			d.DurationSeconds = secs
			d.IsShort = secs > 0 && secs <= ShortMaxSeconds
		}
	}
	return d
}

func thumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
