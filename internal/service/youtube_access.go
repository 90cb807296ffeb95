package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

// ClientFactory builds YouTube API clients. *youtube.Factory implements it.
type ClientFactory interface {
	Client(ctx context.Context, apiKey string, meter youtube.Meter) (youtube.API, error)
}

// YouTubeAccess picks the API key and quota bucket for a caller.
type YouTubeAccess struct {
	factory   ClientFactory
	quota     *QuotaService
	sharedKey string
}

func NewYouTubeAccess(factory ClientFactory, quota *QuotaService, sharedKey string) *YouTubeAccess {
	return &YouTubeAccess{factory: factory, quota: quota, sharedKey: sharedKey}
}

// Session is a YouTube client bound to one usage key that tallies the
// quota units it spent.
type Session struct {
	youtube.API
	Key string

	access *YouTubeAccess
	used   atomic.Int64
}

// Used returns the quota units charged through this session.
func (s *Session) Used() int {
	return int(s.used.Load())
}

// Err maps a client error and records upstream quota exhaustion.
func (s *Session) Err(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, youtube.ErrQuotaExceeded) {
		if mErr := s.access.quota.MarkExhausted(ctx, s.Key); mErr != nil {
			log.Error().Err(mErr).Str("usage_key", s.Key).Msg("quota: failed to mark exhausted")
		}
	}
	return upstreamErr(err)
}

// For returns a session using u's personal key when set, else the shared key.
func (a *YouTubeAccess) For(ctx context.Context, u *model.User) (*Session, error) {
	if u != nil && u.HasOwnAPIKey() {
		return a.open(ctx, u.UID, u.YouTubeAPIKey)
	}
	return a.Shared(ctx)
}

// Shared returns a session on the server's key.
func (a *YouTubeAccess) Shared(ctx context.Context) (*Session, error) {
	return a.open(ctx, model.SharedUsageKey, a.sharedKey)
}

// Probe returns a session on an arbitrary key charged to usageKey.
func (a *YouTubeAccess) Probe(ctx context.Context, usageKey, apiKey string) (*Session, error) {
	return a.open(ctx, usageKey, apiKey)
}

func (a *YouTubeAccess) open(ctx context.Context, usageKey, apiKey string) (*Session, error) {
	s := &Session{Key: usageKey, access: a}
	meter := a.quota.Meter(usageKey)
	api, err := a.factory.Client(ctx, apiKey, func(ctx context.Context, op model.Operation, detail string) error {
		if err := meter(ctx, op, detail); err != nil {
			return err
		}
		s.used.Add(int64(op.Cost()))
		return nil
	})
	if err != nil {
		return nil, upstreamErr(err)
	}
	s.API = api
	return s, nil
}
