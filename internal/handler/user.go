package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me handles GET /api/me
func (h *UserHandler) Me(c fiber.Ctx) error {
	resp, err := h.svc.Me(c.Context(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err, "Failed to load profile")
	}
	return c.JSON(resp)
}

// SetAPIKey handles PUT /api/me/api-key
// An empty apiKey clears the personal key.
func (h *UserHandler) SetAPIKey(c fiber.Ctx) error {
	var req model.APIKeyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.svc.SetAPIKey(c.Context(), middleware.CurrentUser(c), req.APIKey)
	if err != nil {
		return respondError(c, err, "Failed to update API key")
	}
	return c.JSON(resp)
}

// Usage handles GET /api/usage
func (h *UserHandler) Usage(c fiber.Ctx) error {
	resp, err := h.svc.Usage(c.Context(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err, "Failed to load usage")
	}
	return c.JSON(resp)
}

// UsageLogs handles GET /api/usage/logs?limit=N
func (h *UserHandler) UsageLogs(c fiber.Ctx) error {
	limit, errMsg := middleware.QueryInt(c, "limit", 50)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	logs, err := h.svc.UsageLogs(c.Context(), middleware.CurrentUser(c), limit)
	if err != nil {
		return respondError(c, err, "Failed to load usage logs")
	}
	return c.JSON(fiber.Map{"logs": logs})
}
