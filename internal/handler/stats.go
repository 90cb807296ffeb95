package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

type StatsHandler struct {
	svc *service.UserService
}

func NewStatsHandler(svc *service.UserService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// GetStats handles GET /api/admin/stats
func (h *StatsHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.svc.Stats(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to fetch statistics")
	}
	return c.JSON(stats)
}
