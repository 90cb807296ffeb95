package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/pkg/retry"
)

const channelJSON = `{
  "items": [{
    "id": "UC_x5XG1OV2P6uZZ5FSM9Ttw",
    "snippet": {
      "title": "Google for Developers",
      "customUrl": "@googledevelopers",
      "thumbnails": {"default": {"url": "https://img/default.jpg"}, "high": {"url": "https://img/high.jpg"}}
    },
    "contentDetails": {"relatedPlaylists": {"uploads": "UU_x5XG1OV2P6uZZ5FSM9Ttw"}},
    "statistics": {"subscriberCount": "2500000", "viewCount": "300000000", "videoCount": "6000"}
  }]
}`

const videosJSON = `{
  "items": [
    {
      "id": "dQw4w9WgXcQ",
      "snippet": {"title": "Long one", "channelId": "UC_x5XG1OV2P6uZZ5FSM9Ttw", "channelTitle": "Google for Developers", "publishedAt": "2026-01-03T10:00:00Z", "tags": ["go"]},
      "statistics": {"viewCount": "120000", "likeCount": "3000", "commentCount": "150"},
      "contentDetails": {"duration": "PT12M30S"}
    },
    {
      "id": "aaaaaaaaaaa",
      "snippet": {"title": "Short one", "channelId": "UC_x5XG1OV2P6uZZ5FSM9Ttw", "publishedAt": "2026-01-04T10:00:00Z"},
      "statistics": {"viewCount": "5000"},
      "contentDetails": {"duration": "PT45S"}
    }
  ]
}`

const quotaJSON = `{"error": {"code": 403, "message": "The request cannot be completed because you have exceeded your quota.",
  "errors": [{"message": "quota", "domain": "youtube.quota", "reason": "quotaExceeded"}]}}`

func newTestFactory(t *testing.T, h http.HandlerFunc) *Factory {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewFactory(FactoryConfig{
		Endpoint: srv.URL + "/",
		RPS:      1000,
		Retry:    retry.Config{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1},
	})
}

type meterLog struct {
	ops []model.Operation
}

func (m *meterLog) meter(_ context.Context, op model.Operation, _ string) error {
	m.ops = append(m.ops, op)
	return nil
}

func TestResolveChannel_Handle(t *testing.T) {
	var gotQuery string
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/channels"), r.URL.Path)
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, channelJSON)
	})

	var m meterLog
	c, err := f.Client(context.Background(), "test-key", m.meter)
	require.NoError(t, err)

	info, err := c.ResolveChannel(context.Background(), "https://www.youtube.com/@GoogleDevelopers")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "forHandle=%40GoogleDevelopers")
	assert.Contains(t, gotQuery, "key=test-key")
	assert.Equal(t, "UC_x5XG1OV2P6uZZ5FSM9Ttw", info.ChannelID)
	assert.Equal(t, "Google for Developers", info.Title)
	assert.Equal(t, "https://img/high.jpg", info.ThumbnailURL)
	assert.Equal(t, "UU_x5XG1OV2P6uZZ5FSM9Ttw", info.UploadsPlaylistID)
	assert.Equal(t, int64(2_500_000), info.Stats.SubscriberCount)
	assert.Equal(t, int64(6000), info.Stats.VideoCount)
	assert.Equal(t, []model.Operation{model.OpChannelsList}, m.ops)
}

func TestResolveChannel_NotFound(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	})
	c, err := f.Client(context.Background(), "k", nil)
	require.NoError(t, err)

	_, err = c.ResolveChannel(context.Background(), "UC_x5XG1OV2P6uZZ5FSM9Ttw")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestResolveChannel_InvalidInputSkipsAPI(t *testing.T) {
	var calls atomic.Int32
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	c, err := f.Client(context.Background(), "k", nil)
	require.NoError(t, err)

	_, err = c.ResolveChannel(context.Background(), "https://example.com/@x")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, calls.Load())
}

func TestVideos_MapsFields(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/videos"), r.URL.Path)
		fmt.Fprint(w, videosJSON)
	})
	c, err := f.Client(context.Background(), "k", nil)
	require.NoError(t, err)

	videos, err := c.Videos(context.Background(), []string{"dQw4w9WgXcQ", "aaaaaaaaaaa"})
	require.NoError(t, err)
	require.Len(t, videos, 2)

	long := videos[0]
	assert.Equal(t, "Long one", long.Title)
	assert.Equal(t, 750, long.DurationSeconds)
	assert.False(t, long.IsShort)
	assert.Equal(t, int64(120_000), long.ViewCount)
	assert.Equal(t, int64(150), long.CommentCount)
	assert.Equal(t, time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC), long.PublishedAt)
	assert.Equal(t, []string{"go"}, long.Tags)

	assert.True(t, videos[1].IsShort)
}

func TestVideos_Batches(t *testing.T) {
	var calls atomic.Int32
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"items": []}`)
	})
	var m meterLog
	c, err := f.Client(context.Background(), "k", m.meter)
	require.NoError(t, err)

	ids := make([]string, 0, 101)
	for i := range 101 {
		ids = append(ids, fmt.Sprintf("vid%08d", i))
	}
	_, err = c.Videos(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, m.ops, 3)
}

func TestQuotaExceededIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, quotaJSON)
	})
	c, err := f.Client(context.Background(), "k", nil)
	require.NoError(t, err)

	_, err = c.Videos(context.Background(), []string{"dQw4w9WgXcQ"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error": {"code": 503, "message": "backend error"}}`)
			return
		}
		fmt.Fprint(w, videosJSON)
	})
	c, err := f.Client(context.Background(), "k", nil)
	require.NoError(t, err)

	videos, err := c.Videos(context.Background(), []string{"dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Len(t, videos, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMeterErrorAbortsCall(t *testing.T) {
	var calls atomic.Int32
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	denied := errors.New("over budget")
	c, err := f.Client(context.Background(), "k", func(context.Context, model.Operation, string) error {
		return denied
	})
	require.NoError(t, err)

	_, err = c.Search(context.Background(), SearchQuery{Query: "golang"})
	assert.ErrorIs(t, err, denied)
	assert.Zero(t, calls.Load())
}

func TestSearch_Params(t *testing.T) {
	var q map[string][]string
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/search"), r.URL.Path)
		q = r.URL.Query()
		fmt.Fprint(w, `{"items": [{"id": {"kind": "youtube#video", "videoId": "dQw4w9WgXcQ"}}, {"id": {"kind": "youtube#channel"}}]}`)
	})
	var m meterLog
	c, err := f.Client(context.Background(), "k", m.meter)
	require.NoError(t, err)

	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ids, err := c.Search(context.Background(), SearchQuery{
		Query: "요리", RegionCode: "KR", PublishedAfter: after, Duration: "short",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dQw4w9WgXcQ"}, ids)
	assert.Equal(t, "viewCount", q["order"][0])
	assert.Equal(t, "video", q["type"][0])
	assert.Equal(t, "KR", q["regionCode"][0])
	assert.Equal(t, "short", q["videoDuration"][0])
	assert.Equal(t, "2026-01-01T00:00:00Z", q["publishedAfter"][0])
	assert.Equal(t, []model.Operation{model.OpSearchList}, m.ops)
}

func TestClientRequiresKey(t *testing.T) {
	f := NewFactory(FactoryConfig{})
	_, err := f.Client(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestRejectedKeyIsNotCached(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("key") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": {"code": 400, "message": "API key not valid. Please pass a valid API key.",
  "errors": [{"message": "API key not valid.", "domain": "global", "reason": "badRequest"}]}}`)
			return
		}
		fmt.Fprint(w, channelJSON)
	})
	cached := func(key string) bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		_, ok := f.services[key]
		return ok
	}

	bad, err := f.Client(context.Background(), "bad", nil)
	require.NoError(t, err)
	_, err = bad.Channels(context.Background(), []string{"UC_x5XG1OV2P6uZZ5FSM9Ttw"})
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
	assert.False(t, cached("bad"))

	good, err := f.Client(context.Background(), "good", nil)
	require.NoError(t, err)
	_, err = good.Channels(context.Background(), []string{"UC_x5XG1OV2P6uZZ5FSM9Ttw"})
	require.NoError(t, err)
	assert.True(t, cached("good"))
}
