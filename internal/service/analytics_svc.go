package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/pkg/hash"
)

const (
	maxUserAgentLen    = 512
	maxPathLen         = 512
	maxReferrerLen     = 1024
	maxSummaryDays     = 90
	defaultSummaryDays = 7
	summaryTopPaths    = 10
)

// AnalyticsService records first-party visit analytics. Raw IPs are never
// stored, only a salted hash.
type AnalyticsService struct {
	store AnalyticsStore
	salt  string
	now   func() time.Time
}

func NewAnalyticsService(store AnalyticsStore, salt string) *AnalyticsService {
	return &AnalyticsService{store: store, salt: salt, now: time.Now}
}

// StartSession opens a visit. A missing or malformed anonymous id is replaced
// with a fresh one, which the client should keep.
func (s *AnalyticsService) StartSession(ctx context.Context, anonymousID, uid, userAgent, ip string) (*model.AnalyticsSession, error) {
	if _, err := uuid.Parse(anonymousID); err != nil {
		anonymousID = uuid.NewString()
	}
	sess := &model.AnalyticsSession{
		ID:          uuid.NewString(),
		AnonymousID: anonymousID,
		UserID:      uid,
		UserAgent:   truncate(userAgent, maxUserAgentLen),
	}
	if ip != "" {
		sess.IPHash = hash.HashIP(ip, s.salt)
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// TrackPageView records one page view in an existing session.
func (s *AnalyticsService) TrackPageView(ctx context.Context, req model.PageViewRequest) (*model.PageView, error) {
	if _, err := uuid.Parse(req.SessionID); err != nil {
		return nil, invalid("sessionId must be a UUID")
	}
	path := strings.TrimSpace(req.Path)
	if !strings.HasPrefix(path, "/") || utf8.RuneCountInString(path) > maxPathLen {
		return nil, invalid("path must start with / and be at most %d characters", maxPathLen)
	}
	pv := &model.PageView{
		SessionID: req.SessionID,
		Path:      path,
		Referrer:  truncate(strings.TrimSpace(req.Referrer), maxReferrerLen),
	}
	if err := s.store.InsertPageView(ctx, pv); err != nil {
		return nil, storeErr(err)
	}
	return pv, nil
}

// Summary aggregates the last days days of traffic.
func (s *AnalyticsService) Summary(ctx context.Context, days int) (*model.AnalyticsSummary, error) {
	if days == 0 {
		days = defaultSummaryDays
	}
	if days < 1 || days > maxSummaryDays {
		return nil, invalid("days must be 1-%d", maxSummaryDays)
	}
	sum, err := s.store.Summary(ctx, s.now().AddDate(0, 0, -days), summaryTopPaths)
	if err != nil {
		return nil, err
	}
	sum.Days = days
	if sum.TopPaths == nil {
		sum.TopPaths = []model.PathCount{}
	}
	return sum, nil
}
