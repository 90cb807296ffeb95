package middleware

import (
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// exposedHeaders lets the dashboard read rate-limit state off responses.
var exposedHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", fiber.HeaderRetryAfter}

// AllowedOrigins turns a comma-separated CORS_ORIGINS value into the origin
// list. Blank entries and trailing slashes are dropped; an empty value or any
// "*" entry allows every origin.
func AllowedOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || slices.Contains(origins, o) {
			continue
		}
		if o == "*" {
			return []string{"*"}
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// NewCORS returns the dashboard's CORS middleware. Bearer tokens travel in
// the Authorization header, so credentials mode is never needed.
func NewCORS(corsOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: AllowedOrigins(corsOrigins),
		AllowMethods: []string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodPut,
			fiber.MethodPatch, fiber.MethodDelete, fiber.MethodOptions,
		},
		AllowHeaders:  []string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization},
		ExposeHeaders: exposedHeaders,
		MaxAge:        int((12 * time.Hour).Seconds()),
	})
}
