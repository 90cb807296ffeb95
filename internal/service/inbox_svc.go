package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/pkg/ids"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
	maxTitleLen              = 100
	maxMessageLen            = 1000
	maxInquirySubjectLen     = 100
	maxInquiryBodyLen        = 5000
	maxAnswerLen             = 5000
	maxNoticeBodyLen         = 5000
)

// InboxService owns notifications, support inquiries and the site notice.
type InboxService struct {
	users         UserStore
	notifications NotificationStore
	inquiries     InquiryStore
	notice        NoticeStore
	now           func() time.Time
}

func NewInboxService(users UserStore, notifications NotificationStore, inquiries InquiryStore, notice NoticeStore) *InboxService {
	return &InboxService{users: users, notifications: notifications, inquiries: inquiries, notice: notice, now: time.Now}
}

// Notify sends one notification to each of uids.
func (s *InboxService) Notify(ctx context.Context, uids []string, kind model.NotificationKind, title, message, link string) error {
	if len(uids) == 0 {
		return nil
	}
	now := s.now().UTC()
	ns := make([]model.Notification, 0, len(uids))
	for _, uid := range uids {
		ns = append(ns, model.Notification{
			ID:        ids.WithPrefix("ntf"),
			UserID:    uid,
			Kind:      kind,
			Title:     truncate(title, maxTitleLen),
			Message:   truncate(message, maxMessageLen),
			Link:      link,
			CreatedAt: now,
		})
	}
	return s.notifications.InsertMany(ctx, ns)
}

// notifyQuietly sends a notification and logs failures. Notifications are a
// side effect and never fail the action that triggered them.
func (s *InboxService) notifyQuietly(ctx context.Context, uids []string, kind model.NotificationKind, title, message, link string) {
	if err := s.Notify(ctx, uids, kind, title, message, link); err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Int("recipients", len(uids)).Msg("inbox: notify failed")
	}
}

// NotifyAdmins sends a notification to every admin.
func (s *InboxService) NotifyAdmins(ctx context.Context, kind model.NotificationKind, title, message, link string) {
	admins, err := s.users.ListAdminIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("inbox: list admins failed")
		return
	}
	s.notifyQuietly(ctx, admins, kind, title, message, link)
}

// Broadcast sends a system notification to all users, or to one role.
func (s *InboxService) Broadcast(ctx context.Context, req model.BroadcastRequest) (int, error) {
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	if err := checkLen("title", title, 1, maxTitleLen); err != nil {
		return 0, err
	}
	if err := checkLen("message", message, 1, maxMessageLen); err != nil {
		return 0, err
	}
	if req.Role != "" && !req.Role.Valid() {
		return 0, invalid("unknown role %q", req.Role)
	}
	uids, err := s.users.ListIDsByRole(ctx, req.Role)
	if err != nil {
		return 0, err
	}
	if err := s.Notify(ctx, uids, model.NotifySystem, title, message, req.Link); err != nil {
		return 0, err
	}
	return len(uids), nil
}

// Notifications lists a user's notifications.
func (s *InboxService) Notifications(ctx context.Context, uid string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	ns, err := s.notifications.List(ctx, uid, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		ns = []model.Notification{}
	}
	return ns, nil
}

func (s *InboxService) UnreadCount(ctx context.Context, uid string) (int, error) {
	return s.notifications.UnreadCount(ctx, uid)
}

// MarkRead marks one of the user's notifications read.
func (s *InboxService) MarkRead(ctx context.Context, uid, id string) error {
	return storeErr(s.notifications.MarkRead(ctx, uid, id))
}

func (s *InboxService) MarkAllRead(ctx context.Context, uid string) (int, error) {
	return s.notifications.MarkAllRead(ctx, uid)
}

func (s *InboxService) DeleteNotification(ctx context.Context, uid, id string) error {
	return storeErr(s.notifications.Delete(ctx, uid, id))
}

// CreateInquiry opens a support inquiry and tells the admins.
func (s *InboxService) CreateInquiry(ctx context.Context, uid string, req model.InquiryRequest) (*model.Inquiry, error) {
	subject := strings.TrimSpace(req.Subject)
	body := strings.TrimSpace(req.Body)
	if err := checkLen("subject", subject, 1, maxInquirySubjectLen); err != nil {
		return nil, err
	}
	if err := checkLen("body", body, 1, maxInquiryBodyLen); err != nil {
		return nil, err
	}
	q := &model.Inquiry{
		ID:      ids.WithPrefix("inq"),
		UserID:  uid,
		Subject: subject,
		Body:    body,
		Status:  model.InquiryOpen,
	}
	if err := s.inquiries.Insert(ctx, q); err != nil {
		return nil, err
	}
	s.NotifyAdmins(ctx, model.NotifyInquiry, "새 문의", subject, "/admin/inquiries")
	return q, nil
}

func (s *InboxService) MyInquiries(ctx context.Context, uid string) ([]model.Inquiry, error) {
	return s.inquiries.ListByUser(ctx, uid)
}

// Inquiries lists inquiries in status, open by default.
func (s *InboxService) Inquiries(ctx context.Context, status model.InquiryStatus) ([]model.Inquiry, error) {
	if status == "" {
		status = model.InquiryOpen
	}
	switch status {
	case model.InquiryOpen, model.InquiryAnswered, model.InquiryClosed:
	default:
		return nil, invalid("unknown inquiry status %q", status)
	}
	return s.inquiries.ListByStatus(ctx, status)
}

// AnswerInquiry stores the answer and notifies the asker.
func (s *InboxService) AnswerInquiry(ctx context.Context, id, answer string) (*model.Inquiry, error) {
	answer = strings.TrimSpace(answer)
	if err := checkLen("answer", answer, 1, maxAnswerLen); err != nil {
		return nil, err
	}
	if _, err := s.inquiries.Get(ctx, id); err != nil {
		return nil, storeErr(err)
	}
	q, err := s.inquiries.Answer(ctx, id, answer, s.now().UTC())
	if err != nil {
		// The row exists, so no match means it was closed.
		if err := storeErr(err); errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: inquiry %s is closed", ErrConflict, id)
		}
		return nil, err
	}
	s.notifyQuietly(ctx, []string{q.UserID}, model.NotifyInquiry, "문의에 답변이 등록되었습니다", q.Subject, "/inquiries")
	return q, nil
}

func (s *InboxService) CloseInquiry(ctx context.Context, id string) (*model.Inquiry, error) {
	q, err := s.inquiries.Close(ctx, id)
	return q, storeErr(err)
}

// Notice returns the site notice. Inactive notices are returned as is so the
// admin UI can edit them.
func (s *InboxService) Notice(ctx context.Context) (*model.Notice, error) {
	return s.notice.Get(ctx)
}

func (s *InboxService) SetNotice(ctx context.Context, adminUID string, n model.Notice) (*model.Notice, error) {
	n.Title = strings.TrimSpace(n.Title)
	n.Body = strings.TrimSpace(n.Body)
	if err := checkLen("title", n.Title, 0, maxTitleLen); err != nil {
		return nil, err
	}
	if err := checkLen("body", n.Body, 0, maxNoticeBodyLen); err != nil {
		return nil, err
	}
	if n.Active && n.Body == "" {
		return nil, invalid("an active notice needs a body")
	}
	n.UpdatedAt = s.now().UTC()
	n.UpdatedBy = adminUID
	if err := s.notice.Set(ctx, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func checkLen(field, v string, lo, hi int) error {
	if n := utf8.RuneCountInString(v); n < lo || n > hi {
		return invalid("%s must be %d-%d characters", field, lo, hi)
	}
	return nil
}
