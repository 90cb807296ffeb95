package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

// TranscriptFetcher extracts captions. *transcript.Fetcher implements it.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string, langs []string) *model.Transcript
	Languages(ctx context.Context, videoID string) *model.LanguagesResponse
}

// TranscriptService serves video transcripts with a Redis cache in front.
// Only successful lookups are cached.
type TranscriptService struct {
	fetcher TranscriptFetcher
	cache   *CacheService
	ttl     time.Duration
}

func NewTranscriptService(fetcher TranscriptFetcher, cache *CacheService, ttl time.Duration) *TranscriptService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TranscriptService{fetcher: fetcher, cache: cache, ttl: ttl}
}

// Transcript returns the best transcript of videoID for langs, in order of preference.
func (s *TranscriptService) Transcript(ctx context.Context, videoID string, langs []string) (*model.Transcript, error) {
	videoID = strings.TrimSpace(videoID)
	if !youtube.IsVideoID(videoID) {
		return nil, invalid("invalid video id %q", videoID)
	}

	key := transcriptKey(videoID, langs)
	var cached model.Transcript
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: transcript get error")
	} else if ok {
		return &cached, nil
	}

	t := s.fetcher.Fetch(ctx, videoID, langs)
	if t.Success {
		if err := s.cache.Set(ctx, key, t, s.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache: transcript set error")
		}
	} else if t.Error != nil {
		log.Debug().Str("video_id", videoID).Str("reason", *t.Error).Msg("transcript: unavailable")
	}
	return t, nil
}

// Languages lists the caption tracks available for videoID.
func (s *TranscriptService) Languages(ctx context.Context, videoID string) (*model.LanguagesResponse, error) {
	videoID = strings.TrimSpace(videoID)
	if !youtube.IsVideoID(videoID) {
		return nil, invalid("invalid video id %q", videoID)
	}

	key := languagesKey(videoID)
	var cached model.LanguagesResponse
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: languages get error")
	} else if ok {
		return &cached, nil
	}

	res := s.fetcher.Languages(ctx, videoID)
	if res.Success {
		if err := s.cache.Set(ctx, key, res, s.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache: languages set error")
		}
	}
	return res, nil
}
