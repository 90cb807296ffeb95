package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

// respondError maps service errors onto the API error envelope. Unknown
// errors are logged and reported as internal with fallback as the message.
func respondError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrMembershipRequired):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "MEMBERSHIP_REQUIRED", "An active membership is required")
	case errors.Is(err, service.ErrForbidden):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, service.ErrConflict):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, service.ErrQuotaExceeded):
		return middleware.ErrorResponse(c, fiber.StatusTooManyRequests, "QUOTA_EXCEEDED",
			"Daily YouTube quota exhausted. Try again after the daily reset.")
	case errors.Is(err, service.ErrInvalidAPIKey):
		return middleware.ErrorResponse(c, fiber.StatusBadGateway, "API_KEY_REJECTED", "YouTube rejected the API key")
	case errors.Is(err, service.ErrNoAPIKey):
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "NO_API_KEY", "No YouTube API key is configured")
	}
	log.Error().Err(err).Str("path", middleware.SanitizePath(c.Path())).Msg(fallback)
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

// badRequest reports a handler-level validation failure.
func badRequest(c fiber.Ctx, msg string) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", msg)
}

// invalidBody reports a request body that could not be decoded.
func invalidBody(c fiber.Ctx) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
}
