package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/auth"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

const userLocal = "user"

// Authenticator loads the account behind a verified identity.
// *service.UserService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, id *auth.Identity) (*model.User, error)
}

// NewAuth returns a middleware that requires a valid bearer token and stores
// the caller's account in the request locals.
func NewAuth(v auth.Verifier, users Authenticator) fiber.Handler {
	return authenticate(v, users, true)
}

// NewOptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through unchanged.
func NewOptionalAuth(v auth.Verifier, users Authenticator) fiber.Handler {
	return authenticate(v, users, false)
}

func authenticate(v auth.Verifier, users Authenticator, required bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			if !required {
				return c.Next()
			}
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Missing bearer token")
		}

		id, err := v.Verify(c.Context(), token)
		if err != nil {
			if !required {
				return c.Next()
			}
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token")
		}

		u, err := users.Authenticate(c.Context(), id)
		if err != nil {
			Logger.Error().Err(err).Msg("auth: failed to load account")
			return ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load account")
		}
		c.Locals(userLocal, u)
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after NewAuth.
func RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Missing bearer token")
		}
		if !u.IsAdmin() {
			return ErrorResponse(c, fiber.StatusForbidden, "FORBIDDEN", "Admin access required")
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated caller, or nil.
func CurrentUser(c fiber.Ctx) *model.User {
	u, _ := c.Locals(userLocal).(*model.User)
	return u
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
