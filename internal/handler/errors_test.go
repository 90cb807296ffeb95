package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/service"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func serveError(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	app := fiber.New()
	app.Get("/x", func(c fiber.Ctx) error {
		return respondError(c, err, "Something failed")
	})
	resp, tErr := app.Test(httptest.NewRequest(fiber.MethodGet, "/x", nil))
	if tErr != nil {
		t.Fatalf("request: %v", tErr)
	}
	defer resp.Body.Close()
	var body errorBody
	if dErr := json.NewDecoder(resp.Body).Decode(&body); dErr != nil {
		t.Fatalf("decode: %v", dErr)
	}
	return resp.StatusCode, body
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", fmt.Errorf("%w: name is required", service.ErrInvalidInput), 400, "INVALID_INPUT"},
		{"not found", service.ErrNotFound, 404, "NOT_FOUND"},
		{"membership", service.ErrMembershipRequired, 403, "MEMBERSHIP_REQUIRED"},
		{"forbidden", service.ErrForbidden, 403, "FORBIDDEN"},
		{"transition", service.ErrInvalidTransition, 409, "INVALID_TRANSITION"},
		{"conflict", service.ErrConflict, 409, "CONFLICT"},
		{"quota", service.ErrQuotaExceeded, 429, "QUOTA_EXCEEDED"},
		{"key rejected", service.ErrInvalidAPIKey, 502, "API_KEY_REJECTED"},
		{"no key", service.ErrNoAPIKey, 503, "NO_API_KEY"},
		{"unknown", errors.New("connection reset"), 500, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serveError(t, tt.err)
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if body.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.code)
			}
		})
	}
}

func TestRespondError_InternalHidesCause(t *testing.T) {
	_, body := serveError(t, errors.New("pq: password authentication failed"))
	if body.Error.Message != "Something failed" {
		t.Errorf("message = %q, want the fallback", body.Error.Message)
	}
}
