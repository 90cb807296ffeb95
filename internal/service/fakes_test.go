package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/repository"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

var (
	errUnique        = &pgconn.PgError{Code: "23505"}
	errUpstreamQuota = fmt.Errorf("%w: daily limit reached", youtube.ErrQuotaExceeded)
)

// ---- users ----

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*model.User

	// beforeExpire runs inside ExpireMember before the expiry check.
	beforeExpire func(u *model.User)
}

func newFakeUsers(us ...model.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*model.User{}}
	for _, u := range us {
		f.users[u.UID] = &u
	}
	return f
}

func (f *fakeUsers) get(uid string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *f.users[uid]
	return &u
}

func (f *fakeUsers) FindByID(_ context.Context, uid string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Touch(_ context.Context, uid, email, name string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		u = &model.User{UID: uid, Role: model.RoleFree, CreatedAt: time.Now()}
		f.users[uid] = u
	}
	if email != "" {
		u.Email = email
	}
	if name != "" {
		u.DisplayName = name
	}
	u.LastActive = time.Now()
	c := *u
	return &c, nil
}

func (f *fakeUsers) SetAPIKey(_ context.Context, uid, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return pgx.ErrNoRows
	}
	u.YouTubeAPIKey = key
	return nil
}

func (f *fakeUsers) SetMembership(_ context.Context, uid string, role model.Role, exp *time.Time) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	u.Role = role
	u.ExpiresAt = exp
	u.ExpiryNotifiedAt = nil
	c := *u
	return &c, nil
}

func (f *fakeUsers) ExpireMember(_ context.Context, uid string, now time.Time) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if ok && f.beforeExpire != nil {
		f.beforeExpire(u)
	}
	if !ok || u.Role != model.RoleMember || u.ExpiresAt == nil || u.ExpiresAt.After(now) {
		return nil, pgx.ErrNoRows
	}
	u.Role, u.ExpiresAt, u.ExpiryNotifiedAt = model.RoleFree, nil, nil
	c := *u
	return &c, nil
}

func (f *fakeUsers) ListExpired(_ context.Context, now time.Time) ([]model.User, error) {
	return f.filter(func(u *model.User) bool {
		return u.Role == model.RoleMember && u.ExpiresAt != nil && !u.ExpiresAt.After(now)
	}), nil
}

func (f *fakeUsers) ListExpiringUnnotified(_ context.Context, now, until time.Time) ([]model.User, error) {
	return f.filter(func(u *model.User) bool {
		return u.Role == model.RoleMember && u.ExpiresAt != nil && u.ExpiresAt.After(now) &&
			!u.ExpiresAt.After(until) && u.ExpiryNotifiedAt == nil
	}), nil
}

func (f *fakeUsers) MarkExpiryNotified(_ context.Context, uid string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[uid].ExpiryNotifiedAt = &at
	return nil
}

func (f *fakeUsers) ListIDsByRole(_ context.Context, role model.Role) ([]string, error) {
	var ids []string
	for _, u := range f.filter(func(u *model.User) bool { return role == "" || u.Role == role }) {
		ids = append(ids, u.UID)
	}
	return ids, nil
}

func (f *fakeUsers) ListAdminIDs(ctx context.Context) ([]string, error) {
	return f.ListIDsByRole(ctx, model.RoleAdmin)
}

func (f *fakeUsers) GetStats(context.Context) (*model.StatsResponse, error) {
	return &model.StatsResponse{TotalUsers: len(f.users)}, nil
}

func (f *fakeUsers) filter(keep func(*model.User) bool) []model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		if keep(u) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// ---- usage ----

type fakeUsage struct {
	mu   sync.Mutex
	rows map[string]model.ApiUsage
	logs []model.UsageLogEntry
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{rows: map[string]model.ApiUsage{}}
}

func (f *fakeUsage) Get(_ context.Context, key string) (*model.ApiUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (f *fakeUsage) Update(_ context.Context, init model.ApiUsage, fn func(*model.ApiUsage) (*model.UsageLogEntry, error)) (*model.ApiUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[init.Key]
	if !ok {
		u = init
	}
	entry, err := fn(&u)
	if err != nil {
		return nil, err
	}
	f.rows[init.Key] = u
	if entry != nil {
		entry.ID = int64(len(f.logs) + 1)
		f.logs = append(f.logs, *entry)
	}
	return &u, nil
}

func (f *fakeUsage) Logs(_ context.Context, key string, limit int) ([]model.UsageLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UsageLogEntry
	for i := len(f.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.logs[i].Key == key {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

// ---- library ----

type fakeLibrary struct {
	mu       sync.Mutex
	groups   []model.ChannelGroup
	channels []model.SavedChannel
	notified []string
}

func (f *fakeLibrary) List(_ context.Context, uid string) ([]model.ChannelGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ChannelGroup{}
	for _, g := range f.groups {
		if g.UserID == uid {
			for _, ch := range f.channels {
				if ch.UserID == uid && ch.EffectiveGroup() == g.ID {
					g.ChannelCount++
				}
			}
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeLibrary) Counts(_ context.Context, uid string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, unassigned int
	for _, ch := range f.channels {
		if ch.UserID == uid {
			total++
			if ch.EffectiveGroup() == model.GroupUnassigned {
				unassigned++
			}
		}
	}
	return total, unassigned, nil
}

func (f *fakeLibrary) Exists(_ context.Context, uid string, id model.GroupID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groupIndex(uid, id) >= 0, nil
}

func (f *fakeLibrary) groupIndex(uid string, id model.GroupID) int {
	return slices.IndexFunc(f.groups, func(g model.ChannelGroup) bool { return g.UserID == uid && g.ID == id })
}

func (f *fakeLibrary) Create(_ context.Context, g *model.ChannelGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertGroup(g)
}

func (f *fakeLibrary) insertGroup(g *model.ChannelGroup) error {
	pos := 0
	for _, o := range f.groups {
		if o.UserID == g.UserID {
			if o.Name == g.Name {
				return errUnique
			}
			pos = max(pos, o.Position+1)
		}
	}
	g.Position = pos
	g.CreatedAt = time.Now()
	f.groups = append(f.groups, *g)
	return nil
}

func (f *fakeLibrary) Rename(_ context.Context, uid string, id model.GroupID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.groupIndex(uid, id)
	if i < 0 {
		return pgx.ErrNoRows
	}
	f.groups[i].Name = name
	return nil
}

func (f *fakeLibrary) Reorder(_ context.Context, uid string, ids []model.GroupID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pos, id := range ids {
		i := f.groupIndex(uid, id)
		if i < 0 {
			return pgx.ErrNoRows
		}
		f.groups[i].Position = pos
	}
	return nil
}

func (f *fakeLibrary) Delete(_ context.Context, uid string, id model.GroupID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.groupIndex(uid, id)
	if i < 0 {
		return pgx.ErrNoRows
	}
	f.groups = slices.Delete(f.groups, i, i+1)
	for j := range f.channels {
		if f.channels[j].UserID == uid && f.channels[j].EffectiveGroup() == id {
			f.channels[j].GroupID = nil
		}
	}
	return nil
}

func (f *fakeLibrary) CreateWithChannels(ctx context.Context, g *model.ChannelGroup, channelIDs []string) (int, error) {
	f.mu.Lock()
	if err := f.insertGroup(g); err != nil {
		f.mu.Unlock()
		return 0, err
	}
	f.mu.Unlock()
	id := g.ID
	return f.Move(ctx, g.UserID, channelIDs, &id)
}

func (f *fakeLibrary) ListChannels(_ context.Context, uid string, group model.GroupID) ([]model.SavedChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.SavedChannel{}
	for _, ch := range f.channels {
		if ch.UserID != uid {
			continue
		}
		if group == model.GroupAll || ch.EffectiveGroup() == group {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeLibrary) channelIndex(uid, channelID string) int {
	return slices.IndexFunc(f.channels, func(c model.SavedChannel) bool { return c.UserID == uid && c.ChannelID == channelID })
}

func (f *fakeLibrary) upsert(ch model.SavedChannel) {
	if i := f.channelIndex(ch.UserID, ch.ChannelID); i >= 0 {
		ch.AddedAt = f.channels[i].AddedAt
		if ch.GroupID == nil {
			ch.GroupID = f.channels[i].GroupID
		}
		f.channels[i] = ch
		return
	}
	ch.AddedAt = time.Now()
	f.channels = append(f.channels, ch)
}

func (f *fakeLibrary) Move(_ context.Context, uid string, channelIDs []string, group *model.GroupID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range channelIDs {
		if i := f.channelIndex(uid, id); i >= 0 {
			f.channels[i].GroupID = group
			n++
		}
	}
	return n, nil
}

// fakeChannels adapts fakeLibrary to ChannelStore, whose List differs from GroupStore's.
type fakeChannels struct{ *fakeLibrary }

func (f fakeChannels) List(ctx context.Context, uid string, group model.GroupID) ([]model.SavedChannel, error) {
	return f.ListChannels(ctx, uid, group)
}

func (f fakeChannels) Get(_ context.Context, uid, channelID string) (*model.SavedChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.channelIndex(uid, channelID)
	if i < 0 {
		return nil, pgx.ErrNoRows
	}
	c := f.channels[i]
	return &c, nil
}

func (f fakeChannels) Upsert(_ context.Context, ch *model.SavedChannel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsert(*ch)
	return nil
}

func (f fakeChannels) Remove(_ context.Context, uid string, channelIDs []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range channelIDs {
		if i := f.channelIndex(uid, id); i >= 0 {
			f.channels = slices.Delete(f.channels, i, i+1)
			n++
		}
	}
	return n, nil
}

func (f fakeChannels) Import(_ context.Context, uid string, newGroup *model.ChannelGroup, group *model.GroupID, channels []model.PackageChannel) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if newGroup != nil {
		if err := f.insertGroup(newGroup); err != nil {
			return 0, err
		}
		id := newGroup.ID
		group = &id
	}
	for _, pc := range channels {
		f.upsert(model.SavedChannel{UserID: uid, ChannelID: pc.ChannelID, Title: pc.Title, GroupID: group})
	}
	return len(channels), nil
}

func (f fakeChannels) UpdateStats(_ context.Context, info model.ChannelInfo) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := range f.channels {
		if f.channels[i].ChannelID == info.ChannelID {
			st := info.Stats
			f.channels[i].Stats = &st
			n++
		}
	}
	return n, nil
}

func (f fakeChannels) StaleChannelIDs(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, ch := range f.channels {
		if (ch.Stats == nil || ch.Stats.UpdatedAt.Before(cutoff)) && !slices.Contains(out, ch.ChannelID) {
			out = append(out, ch.ChannelID)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeChannels) NotifyAdded(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, channelID)
	return nil
}

func newFakeLibrary() (*fakeLibrary, fakeChannels) {
	lib := &fakeLibrary{}
	return lib, fakeChannels{lib}
}

// ---- packages ----

type fakePackages struct {
	mu   sync.Mutex
	pkgs map[string]*model.RecommendedPackage

	// beforeUpdate runs inside UpdateContent before the status check,
	// standing in for a concurrent writer.
	beforeUpdate func(p *model.RecommendedPackage)
}

func newFakePackages() *fakePackages {
	return &fakePackages{pkgs: map[string]*model.RecommendedPackage{}}
}

func (f *fakePackages) Get(_ context.Context, id string) (*model.RecommendedPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pkgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *p
	return &c, nil
}

func (f *fakePackages) Insert(_ context.Context, p *model.RecommendedPackage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pkgs[p.ID]; ok {
		return errUnique
	}
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	c := *p
	f.pkgs[p.ID] = &c
	return nil
}

func (f *fakePackages) UpdateContent(_ context.Context, p *model.RecommendedPackage, from model.PackageStatus) (*model.RecommendedPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.pkgs[p.ID]
	if ok && f.beforeUpdate != nil {
		f.beforeUpdate(cur)
	}
	if !ok || cur.Status != from {
		return nil, pgx.ErrNoRows
	}
	cur.Kind, cur.Title, cur.Description, cur.Category, cur.Channels =
		p.Kind, p.Title, p.Description, p.Category, p.Channels
	if p.Status != from {
		cur.ReviewedBy, cur.ReviewNote, cur.ReviewedAt = "", "", nil
	}
	cur.Status = p.Status
	c := *cur
	return &c, nil
}

func (f *fakePackages) SetReview(_ context.Context, id string, from, to model.PackageStatus, reviewer, note string, at time.Time) (*model.RecommendedPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pkgs[id]
	if !ok || p.Status != from {
		return nil, pgx.ErrNoRows
	}
	p.Status, p.ReviewedBy, p.ReviewNote, p.ReviewedAt = to, reviewer, note, &at
	c := *p
	return &c, nil
}

func (f *fakePackages) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pkgs[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.pkgs, id)
	return nil
}

func (f *fakePackages) List(_ context.Context, flt repository.PackageFilter) ([]model.RecommendedPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.RecommendedPackage{}
	for _, p := range f.pkgs {
		if (flt.Status == "" || p.Status == flt.Status) && (flt.Kind == "" || p.Kind == flt.Kind) &&
			(flt.Category == "" || p.Category == flt.Category) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePackages) ListBySubmitter(_ context.Context, uid string) ([]model.RecommendedPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.RecommendedPackage{}
	for _, p := range f.pkgs {
		if p.SubmittedBy == uid {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePackages) UpsertCurated(_ context.Context, p *model.RecommendedPackage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *p
	c.Status, c.Curated = model.PackageApproved, true
	f.pkgs[p.ID] = &c
	return nil
}

// ---- inbox ----

type fakeNotifications struct {
	mu sync.Mutex
	ns []model.Notification
}

func (f *fakeNotifications) InsertMany(_ context.Context, ns []model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ns = append(f.ns, ns...)
	return nil
}

func (f *fakeNotifications) For(uid string) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.ns {
		if n.UserID == uid {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeNotifications) List(_ context.Context, uid string, unreadOnly bool, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.For(uid) {
		if (!unreadOnly || !n.Read) && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) UnreadCount(ctx context.Context, uid string) (int, error) {
	ns, _ := f.List(ctx, uid, true, 1000)
	return len(ns), nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, uid, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.ns {
		if f.ns[i].ID == id && f.ns[i].UserID == uid {
			f.ns[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, uid string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := range f.ns {
		if f.ns[i].UserID == uid && !f.ns[i].Read {
			f.ns[i].Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) Delete(_ context.Context, uid, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.ns, func(n model.Notification) bool { return n.ID == id && n.UserID == uid })
	if i < 0 {
		return pgx.ErrNoRows
	}
	f.ns = slices.Delete(f.ns, i, i+1)
	return nil
}

type fakeInquiries struct {
	mu sync.Mutex
	qs map[string]*model.Inquiry
}

func newFakeInquiries() *fakeInquiries {
	return &fakeInquiries{qs: map[string]*model.Inquiry{}}
}

func (f *fakeInquiries) Insert(_ context.Context, q *model.Inquiry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.CreatedAt = time.Now()
	c := *q
	f.qs[q.ID] = &c
	return nil
}

func (f *fakeInquiries) Get(_ context.Context, id string) (*model.Inquiry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.qs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *q
	return &c, nil
}

func (f *fakeInquiries) ListByUser(_ context.Context, uid string) ([]model.Inquiry, error) {
	return f.list(func(q *model.Inquiry) bool { return q.UserID == uid }), nil
}

func (f *fakeInquiries) ListByStatus(_ context.Context, st model.InquiryStatus) ([]model.Inquiry, error) {
	return f.list(func(q *model.Inquiry) bool { return q.Status == st }), nil
}

func (f *fakeInquiries) list(keep func(*model.Inquiry) bool) []model.Inquiry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Inquiry{}
	for _, q := range f.qs {
		if keep(q) {
			out = append(out, *q)
		}
	}
	return out
}

func (f *fakeInquiries) Answer(_ context.Context, id, answer string, at time.Time) (*model.Inquiry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.qs[id]
	if !ok || q.Status == model.InquiryClosed {
		return nil, pgx.ErrNoRows
	}
	q.Answer, q.AnsweredAt, q.Status = answer, &at, model.InquiryAnswered
	c := *q
	return &c, nil
}

func (f *fakeInquiries) Close(_ context.Context, id string) (*model.Inquiry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.qs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	q.Status = model.InquiryClosed
	c := *q
	return &c, nil
}

type fakeNotice struct{ n model.Notice }

func (f *fakeNotice) Get(context.Context) (*model.Notice, error) {
	c := f.n
	return &c, nil
}

func (f *fakeNotice) Set(_ context.Context, n *model.Notice) error {
	f.n = *n
	return nil
}

// ---- analytics ----

type fakeAnalytics struct {
	sessions  map[string]model.AnalyticsSession
	pageViews []model.PageView
	since     time.Time
}

func (f *fakeAnalytics) InsertSession(_ context.Context, s *model.AnalyticsSession) error {
	if f.sessions == nil {
		f.sessions = map[string]model.AnalyticsSession{}
	}
	s.StartedAt = time.Now()
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeAnalytics) InsertPageView(_ context.Context, pv *model.PageView) error {
	if _, ok := f.sessions[pv.SessionID]; !ok {
		return &pgconn.PgError{Code: "23503"}
	}
	pv.CreatedAt = time.Now()
	f.pageViews = append(f.pageViews, *pv)
	return nil
}

func (f *fakeAnalytics) Summary(_ context.Context, since time.Time, topN int) (*model.AnalyticsSummary, error) {
	f.since = since
	return &model.AnalyticsSummary{Sessions: len(f.sessions), PageViews: len(f.pageViews)}, nil
}

// ---- youtube ----

// fakeAPI is an in-memory YouTube. Every call runs through the meter like
// the real client does.
type fakeAPI struct {
	meter youtube.Meter
	yt    *fakeYouTube
}

type fakeYouTube struct {
	mu        sync.Mutex
	channels  map[string]model.ChannelInfo
	handles   map[string]string
	uploads   map[string][]string
	videos    map[string]model.VideoData
	search    []string
	popular   []model.VideoData
	badKeys   map[string]bool
	failFor   map[string]error // uploads playlist id -> error
	calls     map[model.Operation]int
	lastQuery youtube.SearchQuery
}

func newFakeYouTube() *fakeYouTube {
	return &fakeYouTube{
		channels: map[string]model.ChannelInfo{},
		handles:  map[string]string{},
		uploads:  map[string][]string{},
		videos:   map[string]model.VideoData{},
		badKeys:  map[string]bool{},
		failFor:  map[string]error{},
		calls:    map[model.Operation]int{},
	}
}

func (y *fakeYouTube) Client(_ context.Context, apiKey string, meter youtube.Meter) (youtube.API, error) {
	if apiKey == "" {
		return nil, youtube.ErrNoAPIKey
	}
	if y.badKeys[apiKey] {
		return &fakeAPI{yt: y, meter: func(ctx context.Context, op model.Operation, d string) error {
			if err := meter(ctx, op, d); err != nil {
				return err
			}
			return youtube.ErrInvalidAPIKey
		}}, nil
	}
	return &fakeAPI{yt: y, meter: meter}, nil
}

func (y *fakeYouTube) count(op model.Operation) int {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.calls[op]
}

func (a *fakeAPI) charge(ctx context.Context, op model.Operation) error {
	if err := a.meter(ctx, op, ""); err != nil {
		return err
	}
	a.yt.mu.Lock()
	a.yt.calls[op]++
	a.yt.mu.Unlock()
	return nil
}

func (a *fakeAPI) ResolveChannel(ctx context.Context, input string) (*model.ChannelInfo, error) {
	ref, err := youtube.ParseChannelRef(input)
	if err != nil {
		return nil, err
	}
	if err := a.charge(ctx, model.OpChannelsList); err != nil {
		return nil, err
	}
	a.yt.mu.Lock()
	defer a.yt.mu.Unlock()
	id := ref.Value
	if ref.Kind == youtube.RefHandle {
		id = a.yt.handles[ref.Value]
	}
	info, ok := a.yt.channels[id]
	if !ok {
		return nil, youtube.ErrChannelNotFound
	}
	return &info, nil
}

func (a *fakeAPI) Channels(ctx context.Context, ids []string) ([]model.ChannelInfo, error) {
	var out []model.ChannelInfo
	for _, batch := range youtube.Batches(ids, youtube.MaxBatch) {
		if err := a.charge(ctx, model.OpChannelsList); err != nil {
			return out, err
		}
		a.yt.mu.Lock()
		for _, id := range batch {
			if info, ok := a.yt.channels[id]; ok {
				out = append(out, info)
			}
		}
		a.yt.mu.Unlock()
	}
	return out, nil
}

func (a *fakeAPI) RecentUploads(ctx context.Context, playlist string, max int) ([]string, error) {
	if err := a.charge(ctx, model.OpPlaylistItemsList); err != nil {
		return nil, err
	}
	a.yt.mu.Lock()
	defer a.yt.mu.Unlock()
	if err := a.yt.failFor[playlist]; err != nil {
		return nil, err
	}
	ids := a.yt.uploads[playlist]
	if len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (a *fakeAPI) Videos(ctx context.Context, ids []string) ([]model.VideoData, error) {
	var out []model.VideoData
	for _, batch := range youtube.Batches(ids, youtube.MaxBatch) {
		if err := a.charge(ctx, model.OpVideosList); err != nil {
			return out, err
		}
		a.yt.mu.Lock()
		for _, id := range batch {
			if v, ok := a.yt.videos[id]; ok {
				out = append(out, v)
			}
		}
		a.yt.mu.Unlock()
	}
	return out, nil
}

func (a *fakeAPI) Search(ctx context.Context, q youtube.SearchQuery) ([]string, error) {
	if err := a.charge(ctx, model.OpSearchList); err != nil {
		return nil, err
	}
	a.yt.mu.Lock()
	defer a.yt.mu.Unlock()
	a.yt.lastQuery = q
	return a.yt.search, nil
}

func (a *fakeAPI) Popular(ctx context.Context, region, category string, max int) ([]model.VideoData, error) {
	if err := a.charge(ctx, model.OpVideosList); err != nil {
		return nil, err
	}
	a.yt.mu.Lock()
	defer a.yt.mu.Unlock()
	return slices.Clone(a.yt.popular), nil
}

// ---- wiring ----

type testEnv struct {
	now       time.Time
	users     *fakeUsers
	usage     *fakeUsage
	quota     *QuotaService
	yt        *fakeYouTube
	access    *YouTubeAccess
	cache     *CacheService
	ns        *fakeNotifications
	inquiries *fakeInquiries
	inbox     *InboxService
}

func newTestEnv(limit int, users ...model.User) *testEnv {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := &testEnv{now: now, users: newFakeUsers(users...), usage: newFakeUsage(), yt: newFakeYouTube()}
	e.quota = NewQuotaService(e.usage, QuotaConfig{DailyLimit: limit, Location: time.UTC, Enforce: true, WarnRatio: 0.8})
	e.quota.now = func() time.Time { return e.now }
	e.access = NewYouTubeAccess(e.yt, e.quota, "shared-key")
	e.cache = NewCacheServiceWithClient(nil)
	e.ns = &fakeNotifications{}
	e.inquiries = newFakeInquiries()
	e.inbox = NewInboxService(e.users, e.ns, e.inquiries, &fakeNotice{})
	e.inbox.now = func() time.Time { return e.now }
	return e
}
