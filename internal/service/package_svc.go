package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/config"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/repository"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
	"github.com/boxtvstar/tube-radar-sub000/pkg/ids"
)

const (
	maxPackageTitleLen = 100
	maxPackageDescLen  = 1000
	maxPackageCategory = 40
	maxPackageChannels = 50
	maxReviewNoteLen   = 500
)

// PackageService handles user-submitted channel packages and their moderation.
type PackageService struct {
	packages PackageStore
	groups   GroupStore
	channels ChannelStore
	inbox    *InboxService
	now      func() time.Time
}

func NewPackageService(packages PackageStore, groups GroupStore, channels ChannelStore, inbox *InboxService) *PackageService {
	return &PackageService{packages: packages, groups: groups, channels: channels, inbox: inbox, now: time.Now}
}

// Submit stores a new package as pending and tells the admins.
func (s *PackageService) Submit(ctx context.Context, u *model.User, req model.PackageRequest) (*model.RecommendedPackage, error) {
	p, err := packageFromRequest(req)
	if err != nil {
		return nil, err
	}
	p.ID = ids.WithPrefix("pkg")
	p.Status = model.PackagePending
	p.SubmittedBy = u.UID
	if err := s.packages.Insert(ctx, p); err != nil {
		return nil, storeErr(err)
	}
	s.inbox.NotifyAdmins(ctx, model.NotifyPackage, "새 패키지 검토 요청", p.Title, "/admin/packages")
	return p, nil
}

// Update replaces a package's content. Only the submitter may edit, and only
// while the package is pending or rejected. A rejected package goes back to
// pending for another review.
func (s *PackageService) Update(ctx context.Context, u *model.User, id string, req model.PackageRequest) (*model.RecommendedPackage, error) {
	cur, err := s.packages.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if cur.Curated || cur.SubmittedBy != u.UID {
		return nil, ErrForbidden
	}
	if !cur.Status.Editable() {
		return nil, fmt.Errorf("%w: %s package cannot be edited", ErrInvalidTransition, cur.Status)
	}

	next, err := packageFromRequest(req)
	if err != nil {
		return nil, err
	}
	next.ID = cur.ID
	next.SubmittedBy = cur.SubmittedBy
	next.CreatedAt = cur.CreatedAt
	next.Status = cur.Status
	if cur.Status == model.PackageRejected {
		next.Status = model.PackagePending
	}
	updated, err := s.packages.UpdateContent(ctx, next, cur.Status)
	if repository.IsNotFound(err) {
		return nil, fmt.Errorf("%w: package %s changed while it was being edited", ErrConflict, id)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if cur.Status == model.PackageRejected {
		s.inbox.NotifyAdmins(ctx, model.NotifyPackage, "패키지 재검토 요청", updated.Title, "/admin/packages")
	}
	return updated, nil
}

// Review approves or rejects a package. Admin only.
func (s *PackageService) Review(ctx context.Context, admin *model.User, id string, req model.ReviewRequest) (*model.RecommendedPackage, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	note := strings.TrimSpace(req.Note)
	if utf8.RuneCountInString(note) > maxReviewNoteLen {
		return nil, invalid("note must be at most %d characters", maxReviewNoteLen)
	}
	cur, err := s.packages.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	to := model.PackageRejected
	if req.Approve {
		to = model.PackageApproved
	}
	if !cur.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, cur.Status, to)
	}

	p, err := s.packages.SetReview(ctx, id, cur.Status, to, admin.UID, note, s.now().UTC())
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: package %s changed during review", ErrConflict, id)
		}
		return nil, err
	}

	if p.SubmittedBy != "" {
		title, msg := "패키지가 승인되었습니다", p.Title
		if to == model.PackageRejected {
			title = "패키지가 반려되었습니다"
			if note != "" {
				msg = p.Title + ": " + note
			}
		}
		s.inbox.notifyQuietly(ctx, []string{p.SubmittedBy}, model.NotifyPackage, title, msg, "/packages/mine")
	}
	log.Info().Str("package_id", id).Str("status", string(to)).Str("reviewer", admin.UID).Msg("packages: reviewed")
	return p, nil
}

// ListApproved returns the public catalog.
func (s *PackageService) ListApproved(ctx context.Context, kind model.PackageKind, category string) ([]model.RecommendedPackage, error) {
	if kind != "" && !kind.Valid() {
		return nil, invalid("unknown kind %q", kind)
	}
	return s.packages.List(ctx, repository.PackageFilter{Status: model.PackageApproved, Kind: kind, Category: category})
}

func (s *PackageService) ListMine(ctx context.Context, uid string) ([]model.RecommendedPackage, error) {
	return s.packages.ListBySubmitter(ctx, uid)
}

// ListPending returns packages awaiting review.
func (s *PackageService) ListPending(ctx context.Context) ([]model.RecommendedPackage, error) {
	return s.packages.List(ctx, repository.PackageFilter{Status: model.PackagePending})
}

// Delete removes a package. Submitters may delete until approval; admins always.
func (s *PackageService) Delete(ctx context.Context, u *model.User, id string) error {
	p, err := s.packages.Get(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if !u.IsAdmin() {
		if p.SubmittedBy != u.UID {
			return ErrForbidden
		}
		if p.Status == model.PackageApproved {
			return fmt.Errorf("%w: approved packages can only be removed by an admin", ErrForbidden)
		}
	}
	return storeErr(s.packages.Delete(ctx, id))
}

// Import copies an approved package's channels into the user's library
// under one group. A new group and the channel rows are written in one
// transaction.
func (s *PackageService) Import(ctx context.Context, u *model.User, id string, req model.ImportRequest) (*model.ImportResponse, error) {
	p, err := s.packages.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if p.Status != model.PackageApproved {
		return nil, fmt.Errorf("%w: package %s is not published", ErrNotFound, id)
	}
	if req.NewGroupName != "" && req.GroupID != "" {
		return nil, invalid("give either groupId or newGroupName")
	}

	var (
		newGroup *model.ChannelGroup
		target   *model.GroupID
	)
	switch {
	case req.NewGroupName != "":
		name, err := validGroupName(req.NewGroupName)
		if err != nil {
			return nil, err
		}
		newGroup = &model.ChannelGroup{ID: newGroupID(), UserID: u.UID, Name: name}
	case req.GroupID != "" && !req.GroupID.IsSentinel():
		ok, err := s.groups.Exists(ctx, u.UID, req.GroupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: group %s does not exist", ErrNotFound, req.GroupID)
		}
		g := req.GroupID
		target = &g
	}

	n, err := s.channels.Import(ctx, u.UID, newGroup, target, p.Channels)
	if err != nil {
		return nil, storeErr(err)
	}
	for _, ch := range p.Channels {
		if err := s.channels.NotifyAdded(ctx, ch.ChannelID); err != nil {
			log.Warn().Err(err).Str("channel_id", ch.ChannelID).Msg("packages: notify channel_added failed")
			break
		}
	}

	resp := &model.ImportResponse{GroupID: model.GroupUnassigned, Imported: n}
	switch {
	case newGroup != nil:
		resp.GroupID = newGroup.ID
	case target != nil:
		resp.GroupID = *target
	}
	return resp, nil
}

// SeedCurated upserts editor-curated packages as approved.
func (s *PackageService) SeedCurated(ctx context.Context, curated []config.CuratedPackage) error {
	for _, c := range curated {
		p := &model.RecommendedPackage{
			ID:          c.ID,
			Kind:        c.Kind,
			Title:       c.Title,
			Description: c.Description,
			Category:    c.Category,
			Channels:    c.Channels,
			Status:      model.PackageApproved,
			Curated:     true,
		}
		if err := s.packages.UpsertCurated(ctx, p); err != nil {
			return fmt.Errorf("seed curated package %s: %w", c.ID, err)
		}
	}
	if len(curated) > 0 {
		log.Info().Int("packages", len(curated)).Msg("packages: curated packages seeded")
	}
	return nil
}

// packageFromRequest validates and normalises submitted package content.
func packageFromRequest(req model.PackageRequest) (*model.RecommendedPackage, error) {
	kind := req.Kind
	if kind == "" {
		kind = model.KindPackage
	}
	if !kind.Valid() {
		return nil, invalid("unknown kind %q", kind)
	}
	title := strings.TrimSpace(req.Title)
	if err := checkLen("title", title, 1, maxPackageTitleLen); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(req.Description)
	if err := checkLen("description", desc, 0, maxPackageDescLen); err != nil {
		return nil, err
	}
	category := strings.TrimSpace(req.Category)
	if err := checkLen("category", category, 0, maxPackageCategory); err != nil {
		return nil, err
	}
	if len(req.Channels) == 0 || len(req.Channels) > maxPackageChannels {
		return nil, invalid("a package holds 1-%d channels", maxPackageChannels)
	}

	seen := make(map[string]bool, len(req.Channels))
	channels := make([]model.PackageChannel, 0, len(req.Channels))
	for _, ch := range req.Channels {
		ch.ChannelID = strings.TrimSpace(ch.ChannelID)
		if !youtube.IsChannelID(ch.ChannelID) {
			return nil, invalid("invalid channel id %q", ch.ChannelID)
		}
		if seen[ch.ChannelID] {
			continue
		}
		seen[ch.ChannelID] = true
		ch.Title = truncate(strings.TrimSpace(ch.Title), maxTitleLen)
		channels = append(channels, ch)
	}

	return &model.RecommendedPackage{
		Kind:        kind,
		Title:       title,
		Description: desc,
		Category:    category,
		Channels:    channels,
	}, nil
}
