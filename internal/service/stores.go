package service

import (
	"context"
	"time"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/repository"
)

// The store interfaces below are satisfied by the repository types and
// replaced by in-memory fakes in tests.

type UserStore interface {
	FindByID(ctx context.Context, uid string) (*model.User, error)
	Touch(ctx context.Context, uid, email, displayName string) (*model.User, error)
	SetAPIKey(ctx context.Context, uid, key string) error
	SetMembership(ctx context.Context, uid string, role model.Role, expiresAt *time.Time) (*model.User, error)
	ExpireMember(ctx context.Context, uid string, now time.Time) (*model.User, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.User, error)
	ListExpiringUnnotified(ctx context.Context, now, until time.Time) ([]model.User, error)
	MarkExpiryNotified(ctx context.Context, uid string, at time.Time) error
	ListIDsByRole(ctx context.Context, role model.Role) ([]string, error)
	ListAdminIDs(ctx context.Context) ([]string, error)
	GetStats(ctx context.Context) (*model.StatsResponse, error)
}

type GroupStore interface {
	List(ctx context.Context, uid string) ([]model.ChannelGroup, error)
	Counts(ctx context.Context, uid string) (total, unassigned int, err error)
	Exists(ctx context.Context, uid string, id model.GroupID) (bool, error)
	Create(ctx context.Context, g *model.ChannelGroup) error
	Rename(ctx context.Context, uid string, id model.GroupID, name string) error
	Reorder(ctx context.Context, uid string, ids []model.GroupID) error
	Delete(ctx context.Context, uid string, id model.GroupID) error
	CreateWithChannels(ctx context.Context, g *model.ChannelGroup, channelIDs []string) (int, error)
}

type ChannelStore interface {
	List(ctx context.Context, uid string, group model.GroupID) ([]model.SavedChannel, error)
	Get(ctx context.Context, uid, channelID string) (*model.SavedChannel, error)
	Upsert(ctx context.Context, ch *model.SavedChannel) error
	Move(ctx context.Context, uid string, channelIDs []string, group *model.GroupID) (int, error)
	Remove(ctx context.Context, uid string, channelIDs []string) (int, error)
	Import(ctx context.Context, uid string, newGroup *model.ChannelGroup, group *model.GroupID, channels []model.PackageChannel) (int, error)
	UpdateStats(ctx context.Context, info model.ChannelInfo) (int, error)
	StaleChannelIDs(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	NotifyAdded(ctx context.Context, channelID string) error
}

type PackageStore interface {
	Get(ctx context.Context, id string) (*model.RecommendedPackage, error)
	Insert(ctx context.Context, p *model.RecommendedPackage) error
	UpdateContent(ctx context.Context, p *model.RecommendedPackage, from model.PackageStatus) (*model.RecommendedPackage, error)
	SetReview(ctx context.Context, id string, from, to model.PackageStatus, reviewer, note string, at time.Time) (*model.RecommendedPackage, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repository.PackageFilter) ([]model.RecommendedPackage, error)
	ListBySubmitter(ctx context.Context, uid string) ([]model.RecommendedPackage, error)
	UpsertCurated(ctx context.Context, p *model.RecommendedPackage) error
}

type UsageStore interface {
	Get(ctx context.Context, key string) (*model.ApiUsage, error)
	Update(ctx context.Context, init model.ApiUsage, fn func(u *model.ApiUsage) (*model.UsageLogEntry, error)) (*model.ApiUsage, error)
	Logs(ctx context.Context, key string, limit int) ([]model.UsageLogEntry, error)
}

type NotificationStore interface {
	InsertMany(ctx context.Context, ns []model.Notification) error
	List(ctx context.Context, uid string, unreadOnly bool, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, uid string) (int, error)
	MarkRead(ctx context.Context, uid, id string) error
	MarkAllRead(ctx context.Context, uid string) (int, error)
	Delete(ctx context.Context, uid, id string) error
}

type InquiryStore interface {
	Insert(ctx context.Context, q *model.Inquiry) error
	Get(ctx context.Context, id string) (*model.Inquiry, error)
	ListByUser(ctx context.Context, uid string) ([]model.Inquiry, error)
	ListByStatus(ctx context.Context, status model.InquiryStatus) ([]model.Inquiry, error)
	Answer(ctx context.Context, id, answer string, at time.Time) (*model.Inquiry, error)
	Close(ctx context.Context, id string) (*model.Inquiry, error)
}

type NoticeStore interface {
	Get(ctx context.Context) (*model.Notice, error)
	Set(ctx context.Context, n *model.Notice) error
}

type AnalyticsStore interface {
	InsertSession(ctx context.Context, s *model.AnalyticsSession) error
	InsertPageView(ctx context.Context, pv *model.PageView) error
	Summary(ctx context.Context, since time.Time, topN int) (*model.AnalyticsSummary, error)
}

var (
	_ UserStore         = (*repository.UserRepo)(nil)
	_ GroupStore        = (*repository.GroupRepo)(nil)
	_ ChannelStore      = (*repository.ChannelRepo)(nil)
	_ PackageStore      = (*repository.PackageRepo)(nil)
	_ UsageStore        = (*repository.UsageRepo)(nil)
	_ NotificationStore = (*repository.NotificationRepo)(nil)
	_ InquiryStore      = (*repository.InquiryRepo)(nil)
	_ NoticeStore       = (*repository.NoticeRepo)(nil)
	_ AnalyticsStore    = (*repository.AnalyticsRepo)(nil)
)
