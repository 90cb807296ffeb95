package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func pingUp(context.Context) error   { return nil }
func pingDown(context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		db, cache  func(context.Context) error
		wantCode   int
		wantStatus string
		wantCache  string
	}{
		{"all up", pingUp, pingUp, fiber.StatusOK, "healthy", "up"},
		{"cache down degrades", pingUp, pingDown, fiber.StatusOK, "degraded", "down"},
		{"cache disabled", pingUp, nil, fiber.StatusOK, "healthy", "disabled"},
		{"database down", pingDown, pingUp, fiber.StatusServiceUnavailable, "unhealthy", "up"},
		{"both down", pingDown, pingDown, fiber.StatusServiceUnavailable, "unhealthy", "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHealthHandler(
				Dependency{Name: "database", Critical: true, Ping: tt.db},
				Dependency{Name: "redis", Ping: tt.cache},
			)
			app := fiber.New()
			app.Get("/health/ready", h.Ready)

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health/ready", nil))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.wantCode)
			}

			var body readiness
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if got := body.Checks["redis"].Status; got != tt.wantCache {
				t.Errorf("redis check = %q, want %q", got, tt.wantCache)
			}
			if body.Version != Version {
				t.Errorf("version = %q, want %q", body.Version, Version)
			}
		})
	}
}
