package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

func newStatsFixture(t *testing.T) (*StatsService, *fakeLibrary, *testEnv) {
	t.Helper()
	env := newTestEnv(10000)
	env.yt.channels[chefID] = model.ChannelInfo{ChannelID: chefID, Stats: model.ChannelStats{SubscriberCount: 7000, ViewCount: 50000, VideoCount: 20, UpdatedAt: env.now}}
	env.yt.channels[techID] = model.ChannelInfo{ChannelID: techID, Stats: model.ChannelStats{SubscriberCount: 10, UpdatedAt: env.now}}
	lib, channels := newFakeLibrary()
	svc := NewStatsService(channels, env.access, 24*time.Hour)
	svc.now = func() time.Time { return env.now }
	return svc, lib, env
}

func TestStats_RefreshUpdatesEverySavedRow(t *testing.T) {
	svc, lib, env := newStatsFixture(t)
	lib.channels = []model.SavedChannel{
		{UserID: "u1", ChannelID: chefID},
		{UserID: "u2", ChannelID: chefID},
		{UserID: "u2", ChannelID: techID},
	}

	n, err := svc.Refresh(context.Background(), []string{chefID, techID, musicID})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(7000), lib.channels[1].Stats.SubscriberCount)
	assert.Equal(t, 1, env.yt.count(model.OpChannelsList), "fifty ids per call")

	n, err = svc.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStats_RefreshStale(t *testing.T) {
	svc, lib, env := newStatsFixture(t)
	fresh := model.ChannelStats{UpdatedAt: env.now.Add(-time.Hour)}
	old := model.ChannelStats{UpdatedAt: env.now.Add(-48 * time.Hour)}
	lib.channels = []model.SavedChannel{
		{UserID: "u1", ChannelID: chefID, Stats: &old},
		{UserID: "u1", ChannelID: techID, Stats: &fresh},
		{UserID: "u1", ChannelID: musicID},
	}

	stale, updated, err := svc.RefreshStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stale)
	assert.Equal(t, 1, updated, "channels unknown upstream are left alone")
	assert.Equal(t, int64(7000), lib.channels[0].Stats.SubscriberCount)
	assert.Nil(t, lib.channels[2].Stats)
}

func TestStats_RefreshQuota(t *testing.T) {
	svc, lib, env := newStatsFixture(t)
	env.quota.cfg.DailyLimit = 0
	lib.channels = []model.SavedChannel{{UserID: "u1", ChannelID: chefID}}

	_, err := svc.Refresh(context.Background(), []string{chefID})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Nil(t, lib.channels[0].Stats)
}

type fakeRefresher struct {
	batches [][]string
	err     error
}

func (f *fakeRefresher) Refresh(_ context.Context, ids []string) (int, error) {
	f.batches = append(f.batches, ids)
	return len(ids), f.err
}

func TestStatsListener_FlushBatchesDistinctIDs(t *testing.T) {
	r := &fakeRefresher{}
	w := NewStatsListener(nil, r)
	ctx := context.Background()

	w.flush(ctx)
	assert.Empty(t, r.batches, "nothing pending, nothing fetched")

	for range 20 {
		w.Enqueue(techID)
	}
	w.Enqueue(chefID)
	w.Enqueue("")
	w.flush(ctx)

	require.Len(t, r.batches, 1)
	assert.Equal(t, []string{techID, chefID}, r.batches[0])

	r.err = errors.New("boom")
	w.Enqueue(musicID)
	w.flush(ctx)
	w.flush(ctx)
	assert.Len(t, r.batches, 2, "a failed batch is not retried")
}

func TestStatsWorker_StopEndsLoop(t *testing.T) {
	svc, _, _ := newStatsFixture(t)
	w := NewStatsWorker(svc, time.Hour)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()
	w.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
