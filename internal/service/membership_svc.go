package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/repository"
)

const (
	maxGrantDays   = 3650
	expiryReminder = 3 * 24 * time.Hour
)

// MembershipService grants and expires paid membership. Grants are admin
// actions; payment collection happens outside this service.
type MembershipService struct {
	users UserStore
	inbox *InboxService
	now   func() time.Time
}

func NewMembershipService(users UserStore, inbox *InboxService) *MembershipService {
	return &MembershipService{users: users, inbox: inbox, now: time.Now}
}

// Grant makes uid a member for days more days, counted from the later of
// now and the current expiry.
func (s *MembershipService) Grant(ctx context.Context, uid string, days int) (*model.User, error) {
	if days < 1 || days > maxGrantDays {
		return nil, invalid("days must be 1-%d", maxGrantDays)
	}
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	if u.IsAdmin() {
		return nil, fmt.Errorf("%w: %s is an admin", ErrConflict, uid)
	}

	now := s.now().UTC()
	from := now
	if u.Role == model.RoleMember && u.ExpiresAt != nil && u.ExpiresAt.After(now) {
		from = *u.ExpiresAt
	}
	expires := from.AddDate(0, 0, days)

	updated, err := s.users.SetMembership(ctx, uid, model.RoleMember, &expires)
	if err != nil {
		return nil, storeErr(err)
	}
	s.inbox.notifyQuietly(ctx, []string{uid}, model.NotifyMembership,
		"멤버십이 활성화되었습니다",
		fmt.Sprintf("%s까지 이용할 수 있습니다.", expires.Format(time.DateOnly)),
		"/me")
	log.Info().Str("uid", uid).Int("days", days).Time("expires_at", expires).Msg("membership: granted")
	return updated, nil
}

// Revoke returns a member to the free tier immediately. Admins are demoted
// only through SetRole.
func (s *MembershipService) Revoke(ctx context.Context, uid string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	if u.IsAdmin() {
		return nil, fmt.Errorf("%w: admins cannot be revoked", ErrForbidden)
	}
	updated, err := s.users.SetMembership(ctx, uid, model.RoleFree, nil)
	if err != nil {
		return nil, storeErr(err)
	}
	log.Info().Str("uid", uid).Msg("membership: revoked")
	return updated, nil
}

// SetRole sets a user's role directly. An admin cannot change their own role.
func (s *MembershipService) SetRole(ctx context.Context, actor *model.User, uid string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	if actor != nil && actor.UID == uid {
		return nil, fmt.Errorf("%w: cannot change your own role", ErrForbidden)
	}
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	expires := u.ExpiresAt
	if role != model.RoleMember {
		expires = nil
	}
	updated, err := s.users.SetMembership(ctx, uid, role, expires)
	if err != nil {
		return nil, storeErr(err)
	}
	log.Info().Str("uid", uid).Str("role", string(role)).Msg("membership: role set")
	return updated, nil
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Expired  int
	Reminded int
}

// Sweep expires lapsed members and reminds members whose membership ends
// within three days. Each member is reminded once per expiry.
func (s *MembershipService) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now().UTC()

	expired, err := s.users.ListExpired(ctx, now)
	if err != nil {
		return res, err
	}
	for _, u := range expired {
		if _, err := s.users.ExpireMember(ctx, u.UID, now); err != nil {
			if repository.IsNotFound(err) {
				log.Info().Str("uid", u.UID).Msg("membership: renewed before expiry, skipping")
			} else {
				log.Error().Err(err).Str("uid", u.UID).Msg("membership: expire failed")
			}
			continue
		}
		res.Expired++
		s.inbox.notifyQuietly(ctx, []string{u.UID}, model.NotifyMembership,
			"멤버십이 만료되었습니다", "멤버십을 연장하면 트렌드 검색을 다시 이용할 수 있습니다.", "/me")
	}

	expiring, err := s.users.ListExpiringUnnotified(ctx, now, now.Add(expiryReminder))
	if err != nil {
		return res, err
	}
	for _, u := range expiring {
		if u.ExpiresAt == nil {
			continue
		}
		msg := fmt.Sprintf("멤버십이 %s에 만료됩니다.", u.ExpiresAt.Format(time.DateOnly))
		if err := s.inbox.Notify(ctx, []string{u.UID}, model.NotifyMembership, "멤버십 만료 예정", msg, "/me"); err != nil {
			log.Error().Err(err).Str("uid", u.UID).Msg("membership: reminder failed")
			continue
		}
		if err := s.users.MarkExpiryNotified(ctx, u.UID, now); err != nil {
			log.Error().Err(err).Str("uid", u.UID).Msg("membership: mark reminded failed")
			continue
		}
		res.Reminded++
	}
	return res, nil
}

// MembershipWorker runs Sweep on an interval.
type MembershipWorker struct {
	svc      *MembershipService
	interval time.Duration
	stopCh   chan struct{}
}

func NewMembershipWorker(svc *MembershipService, interval time.Duration) *MembershipWorker {
	return &MembershipWorker{svc: svc, interval: interval, stopCh: make(chan struct{})}
}

// Start runs one sweep immediately, then every interval.
func (w *MembershipWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("membership-worker: starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			log.Info().Msg("membership-worker: stopping (context cancelled)")
			return
		case <-w.stopCh:
			log.Info().Msg("membership-worker: stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *MembershipWorker) Stop() {
	close(w.stopCh)
}

func (w *MembershipWorker) tick(ctx context.Context) {
	res, err := w.svc.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("membership-worker: sweep failed")
		return
	}
	if res.Expired > 0 || res.Reminded > 0 {
		log.Info().Int("expired", res.Expired).Int("reminded", res.Reminded).Msg("membership-worker: sweep complete")
	}
}
