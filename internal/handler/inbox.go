package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

// InboxHandler serves notifications, support inquiries and the system notice.
type InboxHandler struct {
	svc *service.InboxService
}

func NewInboxHandler(svc *service.InboxService) *InboxHandler {
	return &InboxHandler{svc: svc}
}

// Notifications handles GET /api/notifications?unread=bool&limit=N
func (h *InboxHandler) Notifications(c fiber.Ctx) error {
	unread, errMsg := middleware.QueryBool(c, "unread")
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	limit, errMsg := middleware.QueryInt(c, "limit", 0)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	ns, err := h.svc.Notifications(c.Context(), middleware.CurrentUser(c).UID, unread, limit)
	if err != nil {
		return respondError(c, err, "Failed to list notifications")
	}
	return c.JSON(fiber.Map{"notifications": ns})
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *InboxHandler) UnreadCount(c fiber.Ctx) error {
	n, err := h.svc.UnreadCount(c.Context(), middleware.CurrentUser(c).UID)
	if err != nil {
		return respondError(c, err, "Failed to count notifications")
	}
	return c.JSON(fiber.Map{"count": n})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *InboxHandler) MarkRead(c fiber.Ctx) error {
	if err := h.svc.MarkRead(c.Context(), middleware.CurrentUser(c).UID, c.Params("id")); err != nil {
		return respondError(c, err, "Failed to update notification")
	}
	return c.JSON(fiber.Map{"success": true})
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *InboxHandler) MarkAllRead(c fiber.Ctx) error {
	n, err := h.svc.MarkAllRead(c.Context(), middleware.CurrentUser(c).UID)
	if err != nil {
		return respondError(c, err, "Failed to update notifications")
	}
	return c.JSON(fiber.Map{"marked": n})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (h *InboxHandler) DeleteNotification(c fiber.Ctx) error {
	if err := h.svc.DeleteNotification(c.Context(), middleware.CurrentUser(c).UID, c.Params("id")); err != nil {
		return respondError(c, err, "Failed to delete notification")
	}
	return c.JSON(fiber.Map{"success": true})
}

// Broadcast handles POST /api/admin/notifications/broadcast
func (h *InboxHandler) Broadcast(c fiber.Ctx) error {
	var req model.BroadcastRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	n, err := h.svc.Broadcast(c.Context(), req)
	if err != nil {
		return respondError(c, err, "Failed to broadcast")
	}
	return c.JSON(fiber.Map{"sent": n})
}

// MyInquiries handles GET /api/inquiries
func (h *InboxHandler) MyInquiries(c fiber.Ctx) error {
	qs, err := h.svc.MyInquiries(c.Context(), middleware.CurrentUser(c).UID)
	if err != nil {
		return respondError(c, err, "Failed to list inquiries")
	}
	return c.JSON(fiber.Map{"inquiries": qs})
}

// CreateInquiry handles POST /api/inquiries
func (h *InboxHandler) CreateInquiry(c fiber.Ctx) error {
	var req model.InquiryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	q, err := h.svc.CreateInquiry(c.Context(), middleware.CurrentUser(c).UID, req)
	if err != nil {
		return respondError(c, err, "Failed to create inquiry")
	}
	return c.Status(fiber.StatusCreated).JSON(q)
}

// Inquiries handles GET /api/admin/inquiries?status=open|answered|closed
func (h *InboxHandler) Inquiries(c fiber.Ctx) error {
	qs, err := h.svc.Inquiries(c.Context(), model.InquiryStatus(c.Query("status")))
	if err != nil {
		return respondError(c, err, "Failed to list inquiries")
	}
	return c.JSON(fiber.Map{"inquiries": qs})
}

// AnswerInquiry handles POST /api/admin/inquiries/:id/answer
func (h *InboxHandler) AnswerInquiry(c fiber.Ctx) error {
	var req model.AnswerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	q, err := h.svc.AnswerInquiry(c.Context(), c.Params("id"), req.Answer)
	if err != nil {
		return respondError(c, err, "Failed to answer inquiry")
	}
	return c.JSON(q)
}

// CloseInquiry handles POST /api/admin/inquiries/:id/close
func (h *InboxHandler) CloseInquiry(c fiber.Ctx) error {
	q, err := h.svc.CloseInquiry(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to close inquiry")
	}
	return c.JSON(q)
}

// Notice handles GET /api/notice
func (h *InboxHandler) Notice(c fiber.Ctx) error {
	n, err := h.svc.Notice(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to load notice")
	}
	return c.JSON(n)
}

// SetNotice handles PUT /api/admin/notice
func (h *InboxHandler) SetNotice(c fiber.Ctx) error {
	var req model.Notice
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	n, err := h.svc.SetNotice(c.Context(), middleware.CurrentUser(c).UID, req)
	if err != nil {
		return respondError(c, err, "Failed to update notice")
	}
	return c.JSON(n)
}
