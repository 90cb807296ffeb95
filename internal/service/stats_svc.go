package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const staleBatchLimit = 500

// StatsService refreshes the snapshot statistics stored on saved channels.
// Calls are charged to the shared key.
type StatsService struct {
	channels ChannelStore
	yt       *YouTubeAccess
	maxAge   time.Duration
	now      func() time.Time

	// OnRefresh, when set, observes the duration of every Refresh call.
	OnRefresh func(time.Duration)
}

func NewStatsService(channels ChannelStore, yt *YouTubeAccess, maxAge time.Duration) *StatsService {
	return &StatsService{channels: channels, yt: yt, maxAge: maxAge, now: time.Now}
}

// Refresh fetches current statistics for channelIDs and writes them to every
// saved row of each channel. It returns the number of rows updated.
func (s *StatsService) Refresh(ctx context.Context, channelIDs []string) (int, error) {
	if len(channelIDs) == 0 {
		return 0, nil
	}
	if s.OnRefresh != nil {
		start := time.Now()
		defer func() { s.OnRefresh(time.Since(start)) }()
	}
	yt, err := s.yt.Shared(ctx)
	if err != nil {
		return 0, err
	}
	infos, err := yt.Channels(ctx, channelIDs)
	// Channels returns the batches that succeeded before an error.
	updated := 0
	for _, info := range infos {
		n, uErr := s.channels.UpdateStats(ctx, info)
		if uErr != nil {
			log.Error().Err(uErr).Str("channel_id", info.ChannelID).Msg("stats: update failed")
			continue
		}
		updated += n
	}
	if err != nil {
		return updated, yt.Err(ctx, err)
	}
	return updated, nil
}

// RefreshStale refreshes channels whose stats are older than the max age.
func (s *StatsService) RefreshStale(ctx context.Context) (int, int, error) {
	ids, err := s.channels.StaleChannelIDs(ctx, s.now().Add(-s.maxAge), staleBatchLimit)
	if err != nil {
		return 0, 0, err
	}
	n, err := s.Refresh(ctx, ids)
	return len(ids), n, err
}
