package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

type MembershipHandler struct {
	svc *service.MembershipService
}

func NewMembershipHandler(svc *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{svc: svc}
}

// Grant handles POST /api/admin/members/:uid/grant
func (h *MembershipHandler) Grant(c fiber.Ctx) error {
	uid, errMsg := middleware.ValidateUID(c.Params("uid"))
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	var req model.GrantRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	u, err := h.svc.Grant(c.Context(), uid, req.Days)
	if err != nil {
		return respondError(c, err, "Failed to grant membership")
	}
	return c.JSON(u)
}

// Revoke handles POST /api/admin/members/:uid/revoke
func (h *MembershipHandler) Revoke(c fiber.Ctx) error {
	uid, errMsg := middleware.ValidateUID(c.Params("uid"))
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	u, err := h.svc.Revoke(c.Context(), uid)
	if err != nil {
		return respondError(c, err, "Failed to revoke membership")
	}
	return c.JSON(u)
}

// SetRole handles PUT /api/admin/members/:uid/role
func (h *MembershipHandler) SetRole(c fiber.Ctx) error {
	uid, errMsg := middleware.ValidateUID(c.Params("uid"))
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	var req model.RoleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	u, err := h.svc.SetRole(c.Context(), middleware.CurrentUser(c), uid, req.Role)
	if err != nil {
		return respondError(c, err, "Failed to change role")
	}
	return c.JSON(u)
}
