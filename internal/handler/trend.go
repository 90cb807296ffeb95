package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

type TrendHandler struct {
	svc *service.TrendService
}

func NewTrendHandler(svc *service.TrendService) *TrendHandler {
	return &TrendHandler{svc: svc}
}

// Search handles GET /api/trends/search?q=...&region=KR&days=7&duration=short&max=25&locale=ko
func (h *TrendHandler) Search(c fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_PARAM", "q query parameter is required")
	}

	opts := service.TrendOptions{
		Region:   c.Query("region"),
		Duration: c.Query("duration"),
		Locale:   c.Query("locale"),
	}
	var errMsg string
	if opts.Days, errMsg = middleware.QueryInt(c, "days", 0); errMsg != "" {
		return badRequest(c, errMsg)
	}
	if opts.Max, errMsg = middleware.QueryInt(c, "max", 0); errMsg != "" {
		return badRequest(c, errMsg)
	}

	resp, err := h.svc.Search(c.Context(), middleware.CurrentUser(c), q, opts)
	if err != nil {
		return respondError(c, err, "Failed to search trends")
	}
	return c.JSON(resp)
}

// Popular handles GET /api/trends/popular?region=KR&category=10&locale=ko
func (h *TrendHandler) Popular(c fiber.Ctx) error {
	resp, err := h.svc.Popular(c.Context(), middleware.CurrentUser(c), c.Query("region"), c.Query("category"), c.Query("locale"))
	if err != nil {
		return respondError(c, err, "Failed to load popular videos")
	}
	return c.JSON(resp)
}
