package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

type TranscriptHandler struct {
	svc *service.TranscriptService
}

func NewTranscriptHandler(svc *service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{svc: svc}
}

// Transcript handles GET /api/transcript?v=VIDEO_ID&lang=ko,en
// Extraction failures are reported with 200 and success=false.
func (h *TranscriptHandler) Transcript(c fiber.Ctx) error {
	videoID, errMsg := middleware.ValidateVideoID(c.Query("v"))
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	langs, errMsg := middleware.ValidateLanguages(c.Query("lang"))
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	t, err := h.svc.Transcript(c.Context(), videoID, langs)
	if err != nil {
		return respondError(c, err, "Failed to fetch transcript")
	}
	return c.JSON(t)
}

// Languages handles GET /api/languages?v=VIDEO_ID
func (h *TranscriptHandler) Languages(c fiber.Ctx) error {
	videoID, errMsg := middleware.ValidateVideoID(c.Query("v"))
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	res, err := h.svc.Languages(c.Context(), videoID)
	if err != nil {
		return respondError(c, err, "Failed to list languages")
	}
	return c.JSON(res)
}
