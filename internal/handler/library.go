package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

// LibraryHandler serves a user's channel groups and saved channels.
type LibraryHandler struct {
	svc *service.LibraryService
}

func NewLibraryHandler(svc *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{svc: svc}
}

// Groups handles GET /api/groups
func (h *LibraryHandler) Groups(c fiber.Ctx) error {
	resp, err := h.svc.Groups(c.Context(), middleware.CurrentUser(c).UID)
	if err != nil {
		return respondError(c, err, "Failed to list groups")
	}
	return c.JSON(resp)
}

// CreateGroup handles POST /api/groups
func (h *LibraryHandler) CreateGroup(c fiber.Ctx) error {
	var req model.GroupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	g, err := h.svc.CreateGroup(c.Context(), middleware.CurrentUser(c).UID, req.Name)
	if err != nil {
		return respondError(c, err, "Failed to create group")
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

// RenameGroup handles PUT /api/groups/:groupId
func (h *LibraryHandler) RenameGroup(c fiber.Ctx) error {
	var req model.GroupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	id := model.GroupID(c.Params("groupId"))
	if err := h.svc.RenameGroup(c.Context(), middleware.CurrentUser(c).UID, id, req.Name); err != nil {
		return respondError(c, err, "Failed to rename group")
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeleteGroup handles DELETE /api/groups/:groupId
// Channels in the group become unassigned.
func (h *LibraryHandler) DeleteGroup(c fiber.Ctx) error {
	id := model.GroupID(c.Params("groupId"))
	if err := h.svc.DeleteGroup(c.Context(), middleware.CurrentUser(c).UID, id); err != nil {
		return respondError(c, err, "Failed to delete group")
	}
	return c.JSON(fiber.Map{"success": true})
}

// ReorderGroups handles PUT /api/groups/order
func (h *LibraryHandler) ReorderGroups(c fiber.Ctx) error {
	var req model.GroupOrderRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	if err := h.svc.ReorderGroups(c.Context(), middleware.CurrentUser(c).UID, req.GroupIDs); err != nil {
		return respondError(c, err, "Failed to reorder groups")
	}
	return c.JSON(fiber.Map{"success": true})
}

// Bundle handles POST /api/groups/bundle
func (h *LibraryHandler) Bundle(c fiber.Ctx) error {
	var req model.BundleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	g, err := h.svc.CreateGroupWithChannels(c.Context(), middleware.CurrentUser(c).UID, req)
	if err != nil {
		return respondError(c, err, "Failed to create group")
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

// Channels handles GET /api/channels?group=ID
// group defaults to all; "unassigned" lists channels outside any group.
func (h *LibraryHandler) Channels(c fiber.Ctx) error {
	group := model.GroupID(c.Query("group"))

	chs, err := h.svc.Channels(c.Context(), middleware.CurrentUser(c).UID, group)
	if err != nil {
		return respondError(c, err, "Failed to list channels")
	}
	return c.JSON(fiber.Map{"channels": chs})
}

// AddChannel handles POST /api/channels
// input may be a channel id, an @handle or a channel URL.
func (h *LibraryHandler) AddChannel(c fiber.Ctx) error {
	var req model.AddChannelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	if req.Input == "" {
		return badRequest(c, "input is required")
	}

	ch, err := h.svc.AddChannel(c.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return respondError(c, err, "Failed to add channel")
	}
	return c.Status(fiber.StatusCreated).JSON(ch)
}

// MoveChannels handles PATCH /api/channels
func (h *LibraryHandler) MoveChannels(c fiber.Ctx) error {
	var req model.MoveChannelsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	if errMsg := validateChannelIDs(req.ChannelIDs); errMsg != "" {
		return badRequest(c, errMsg)
	}

	n, err := h.svc.MoveChannels(c.Context(), middleware.CurrentUser(c).UID, req)
	if err != nil {
		return respondError(c, err, "Failed to move channels")
	}
	return c.JSON(fiber.Map{"moved": n})
}

// RemoveChannels handles DELETE /api/channels
func (h *LibraryHandler) RemoveChannels(c fiber.Ctx) error {
	var req model.RemoveChannelsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	if errMsg := validateChannelIDs(req.ChannelIDs); errMsg != "" {
		return badRequest(c, errMsg)
	}

	n, err := h.svc.RemoveChannels(c.Context(), middleware.CurrentUser(c).UID, req)
	if err != nil {
		return respondError(c, err, "Failed to remove channels")
	}
	return c.JSON(fiber.Map{"removed": n})
}

func validateChannelIDs(ids []string) string {
	if len(ids) == 0 {
		return "channelIds must not be empty"
	}
	for i, id := range ids {
		clean, errMsg := middleware.ValidateChannelID(id)
		if errMsg != "" {
			return errMsg
		}
		ids[i] = clean
	}
	return ""
}
