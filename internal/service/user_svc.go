package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/auth"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

// probeChannelID is a stable public channel used to validate API keys.
const probeChannelID = "UC_x5XG1OV2P6uZZ5FSM9Ttw"

var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{30,64}$`)

type UserService struct {
	users UserStore
	quota *QuotaService
	yt    *YouTubeAccess
	now   func() time.Time
}

func NewUserService(users UserStore, quota *QuotaService, yt *YouTubeAccess) *UserService {
	return &UserService{users: users, quota: quota, yt: yt, now: time.Now}
}

// Authenticate loads the caller's account, creating it on first sight.
func (s *UserService) Authenticate(ctx context.Context, id *auth.Identity) (*model.User, error) {
	if id == nil || id.UID == "" {
		return nil, auth.ErrInvalidToken
	}
	return s.users.Touch(ctx, id.UID, id.Email, truncate(id.DisplayName, 100))
}

// Me returns the caller's profile with a masked key and current usage.
func (s *UserService) Me(ctx context.Context, u *model.User) (*model.MeResponse, error) {
	usage, err := s.quota.Snapshot(ctx, UsageKey(u), u.HasOwnAPIKey())
	if err != nil {
		return nil, err
	}
	return &model.MeResponse{
		User:             u,
		MembershipActive: u.MembershipActive(s.now()),
		APIKey:           u.MaskedAPIKey(),
		Usage:            usage,
	}, nil
}

// Usage returns the quota snapshot for the bucket the caller is charged to.
func (s *UserService) Usage(ctx context.Context, u *model.User) (*model.UsageSnapshot, error) {
	return s.quota.Snapshot(ctx, UsageKey(u), u.HasOwnAPIKey())
}

// UsageLogs returns recent charged calls. Logs of the shared key are visible
// to admins only.
func (s *UserService) UsageLogs(ctx context.Context, u *model.User, limit int) ([]model.UsageLogEntry, error) {
	key := UsageKey(u)
	if key == model.SharedUsageKey && !u.IsAdmin() {
		return []model.UsageLogEntry{}, nil
	}
	return s.quota.Logs(ctx, key, limit)
}

// SetAPIKey stores a personal YouTube API key after a one-unit probe, or
// clears it when key is empty.
func (s *UserService) SetAPIKey(ctx context.Context, u *model.User, key string) (*model.MeResponse, error) {
	key = strings.TrimSpace(key)
	if key != "" {
		if !apiKeyPattern.MatchString(key) {
			return nil, invalid("API key format is not valid")
		}
		if err := s.probe(ctx, u.UID, key); err != nil {
			return nil, err
		}
	}
	if err := s.users.SetAPIKey(ctx, u.UID, key); err != nil {
		return nil, storeErr(err)
	}
	u.YouTubeAPIKey = key
	log.Info().Str("uid", u.UID).Bool("own_key", key != "").Msg("users: API key updated")
	return s.Me(ctx, u)
}

func (s *UserService) probe(ctx context.Context, uid, key string) error {
	yt, err := s.yt.Probe(ctx, uid, key)
	if err != nil {
		return err
	}
	if _, err := yt.Channels(ctx, []string{probeChannelID}); err != nil {
		err = yt.Err(ctx, err)
		if errors.Is(err, ErrInvalidAPIKey) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return err
	}
	return nil
}

// Stats returns platform-wide counters for the admin dashboard.
func (s *UserService) Stats(ctx context.Context) (*model.StatsResponse, error) {
	return s.users.GetStats(ctx)
}
