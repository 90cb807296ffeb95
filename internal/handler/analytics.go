package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

type AnalyticsHandler struct {
	svc *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// StartSession handles POST /api/analytics/sessions
// Signed-in callers are linked to the session; anonymous visits are allowed.
func (h *AnalyticsHandler) StartSession(c fiber.Ctx) error {
	var req model.SessionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return invalidBody(c)
		}
	}

	var uid string
	if u := middleware.CurrentUser(c); u != nil {
		uid = u.UID
	}

	sess, err := h.svc.StartSession(c.Context(), req.AnonymousID, uid, middleware.ValidateUserAgent(c.Get("User-Agent")), c.IP())
	if err != nil {
		return respondError(c, err, "Failed to start session")
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

// PageView handles POST /api/analytics/pageviews
func (h *AnalyticsHandler) PageView(c fiber.Ctx) error {
	var req model.PageViewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	pv, err := h.svc.TrackPageView(c.Context(), req)
	if err != nil {
		return respondError(c, err, "Failed to record page view")
	}
	return c.Status(fiber.StatusCreated).JSON(pv)
}

// Summary handles GET /api/admin/analytics/summary?days=N
func (h *AnalyticsHandler) Summary(c fiber.Ctx) error {
	days, errMsg := middleware.QueryInt(c, "days", 0)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	s, err := h.svc.Summary(c.Context(), days)
	if err != nil {
		return respondError(c, err, "Failed to load analytics")
	}
	return c.JSON(s)
}
