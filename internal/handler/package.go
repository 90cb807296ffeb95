package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

type PackageHandler struct {
	svc *service.PackageService
}

func NewPackageHandler(svc *service.PackageService) *PackageHandler {
	return &PackageHandler{svc: svc}
}

// List handles GET /api/packages?kind=package|topic&category=...
func (h *PackageHandler) List(c fiber.Ctx) error {
	pkgs, err := h.svc.ListApproved(c.Context(), model.PackageKind(c.Query("kind")), c.Query("category"))
	if err != nil {
		return respondError(c, err, "Failed to list packages")
	}
	return c.JSON(fiber.Map{"packages": pkgs})
}

// Mine handles GET /api/packages/mine
func (h *PackageHandler) Mine(c fiber.Ctx) error {
	pkgs, err := h.svc.ListMine(c.Context(), middleware.CurrentUser(c).UID)
	if err != nil {
		return respondError(c, err, "Failed to list packages")
	}
	return c.JSON(fiber.Map{"packages": pkgs})
}

// Submit handles POST /api/packages
func (h *PackageHandler) Submit(c fiber.Ctx) error {
	var req model.PackageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	p, err := h.svc.Submit(c.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return respondError(c, err, "Failed to submit package")
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// Update handles PUT /api/packages/:id
func (h *PackageHandler) Update(c fiber.Ctx) error {
	var req model.PackageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	p, err := h.svc.Update(c.Context(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err, "Failed to update package")
	}
	return c.JSON(p)
}

// Delete handles DELETE /api/packages/:id
func (h *PackageHandler) Delete(c fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), middleware.CurrentUser(c), c.Params("id")); err != nil {
		return respondError(c, err, "Failed to delete package")
	}
	return c.JSON(fiber.Map{"success": true})
}

// Import handles POST /api/packages/:id/import
func (h *PackageHandler) Import(c fiber.Ctx) error {
	var req model.ImportRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return invalidBody(c)
		}
	}

	resp, err := h.svc.Import(c.Context(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err, "Failed to import package")
	}
	return c.JSON(resp)
}

// Pending handles GET /api/admin/packages/pending
func (h *PackageHandler) Pending(c fiber.Ctx) error {
	pkgs, err := h.svc.ListPending(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to list packages")
	}
	return c.JSON(fiber.Map{"packages": pkgs})
}

// Review handles POST /api/admin/packages/:id/review
func (h *PackageHandler) Review(c fiber.Ctx) error {
	var req model.ReviewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	p, err := h.svc.Review(c.Context(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err, "Failed to review package")
	}
	return c.JSON(p)
}
