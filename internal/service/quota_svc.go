package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

// QuotaConfig controls daily YouTube quota accounting.
type QuotaConfig struct {
	DailyLimit int
	Location   *time.Location
	Enforce    bool
	WarnRatio  float64
}

// QuotaService meters YouTube Data API usage per API key owner. A quota day
// starts at midnight in the configured timezone, matching Google's reset.
type QuotaService struct {
	store UsageStore
	cfg   QuotaConfig
	now   func() time.Time

	// OnCharge, when set, observes every successful charge.
	OnCharge func(op model.Operation, cost int)
}

func NewQuotaService(store UsageStore, cfg QuotaConfig) *QuotaService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.WarnRatio <= 0 {
		cfg.WarnRatio = 0.8
	}
	return &QuotaService{store: store, cfg: cfg, now: time.Now}
}

// Day returns the quota day containing t and the instant the next one begins.
func (s *QuotaService) Day(t time.Time) (string, time.Time) {
	local := t.In(s.cfg.Location)
	y, m, d := local.Date()
	return local.Format(time.DateOnly), time.Date(y, m, d+1, 0, 0, 0, 0, s.cfg.Location)
}

func (s *QuotaService) fresh(key string, now time.Time) model.ApiUsage {
	day, resetAt := s.Day(now)
	return model.ApiUsage{Key: key, Day: day, Limit: s.cfg.DailyLimit, ResetAt: resetAt}
}

// Charge admits one call of op against key's daily budget. When enforcement
// is on and the call would exceed the limit nothing is charged and
// ErrQuotaExceeded is returned.
func (s *QuotaService) Charge(ctx context.Context, key string, op model.Operation, detail string) (*model.ApiUsage, error) {
	now := s.now()
	cost := op.Cost()
	day, resetAt := s.Day(now)

	u, err := s.store.Update(ctx, s.fresh(key, now), func(u *model.ApiUsage) (*model.UsageLogEntry, error) {
		u.Rollover(day, resetAt)
		u.Limit = s.cfg.DailyLimit
		if s.cfg.Enforce && !u.CanAfford(cost) {
			return nil, fmt.Errorf("%w: %d of %d units used, %s needs %d", ErrQuotaExceeded, u.Used, u.Limit, op, cost)
		}
		u.Used += cost
		return &model.UsageLogEntry{Key: key, Operation: op, Cost: cost, Detail: truncate(detail, 200)}, nil
	})
	if err != nil {
		return nil, err
	}
	if s.OnCharge != nil {
		s.OnCharge(op, cost)
	}
	return u, nil
}

// MarkExhausted records that YouTube itself refused key for the rest of the day.
func (s *QuotaService) MarkExhausted(ctx context.Context, key string) error {
	now := s.now()
	day, resetAt := s.Day(now)
	_, err := s.store.Update(ctx, s.fresh(key, now), func(u *model.ApiUsage) (*model.UsageLogEntry, error) {
		u.Rollover(day, resetAt)
		u.Limit = s.cfg.DailyLimit
		u.Used = max(u.Used, u.Limit)
		return nil, nil
	})
	if err == nil {
		log.Warn().Str("usage_key", key).Msg("quota: upstream reported quota exhausted")
	}
	return err
}

// Snapshot returns key's usage for the current quota day without writing.
func (s *QuotaService) Snapshot(ctx context.Context, key string, ownKey bool) (*model.UsageSnapshot, error) {
	now := s.now()
	u, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(storeErr(err), ErrNotFound) {
			return nil, err
		}
		f := s.fresh(key, now)
		u = &f
	}
	day, resetAt := s.Day(now)
	u.Rollover(day, resetAt)
	u.Limit = s.cfg.DailyLimit

	return &model.UsageSnapshot{
		Key:       u.Key,
		Day:       u.Day,
		Used:      u.Used,
		Limit:     u.Limit,
		Remaining: u.Remaining(),
		Level:     u.Level(s.cfg.WarnRatio),
		ResetAt:   u.ResetAt,
		OwnKey:    ownKey,
	}, nil
}

// Logs returns key's most recent charged calls.
func (s *QuotaService) Logs(ctx context.Context, key string, limit int) ([]model.UsageLogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.store.Logs(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []model.UsageLogEntry{}
	}
	return logs, nil
}

// Meter returns a youtube.Meter charging key.
func (s *QuotaService) Meter(key string) youtube.Meter {
	return func(ctx context.Context, op model.Operation, detail string) error {
		_, err := s.Charge(ctx, key, op, detail)
		return err
	}
}

// UsageKey returns the quota bucket u's YouTube calls are charged to.
func UsageKey(u *model.User) string {
	if u != nil && u.HasOwnAPIKey() {
		return u.UID
	}
	return model.SharedUsageKey
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
