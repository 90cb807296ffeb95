package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/pkg/hash"
)

// Logger is the package-level zerolog logger used throughout the application.
var Logger zerolog.Logger

// InitLogger sets up the global zerolog logger with structured JSON output.
// Level is parsed from the given string (e.g. "debug", "info", "warn", "error").
// The zerolog/log package logger is replaced too, so services share the setup.
func InitLogger(level, service string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
	log.Logger = Logger
}

// dynamicParents are path segments followed by an identifier.
var dynamicParents = map[string]string{
	"groups":        ":groupId",
	"packages":      ":id",
	"notifications": ":id",
	"inquiries":     ":id",
	"members":       ":uid",
}

// staticChildren are fixed route segments that follow a dynamic parent.
var staticChildren = map[string]bool{
	"order":        true,
	"bundle":       true,
	"mine":         true,
	"pending":      true,
	"unread-count": true,
	"read-all":     true,
	"broadcast":    true,
}

// SanitizePath replaces dynamic path segments (group ids, package ids, user
// ids) with placeholders so PII is never written to logs and metric labels
// stay bounded.
func SanitizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		placeholder, ok := dynamicParents[parts[i-1]]
		if ok && parts[i] != "" && !staticChildren[parts[i]] {
			parts[i] = placeholder
		}
	}
	return strings.Join(parts, "/")
}

// NewRequestLogger returns a Fiber middleware that logs each request as
// structured JSON via zerolog.
// Privacy: raw IPs are hashed; dynamic path segments are sanitized.
func NewRequestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		evt := Logger.Info()
		if status >= 500 {
			evt = Logger.Error()
		} else if status >= 400 {
			evt = Logger.Warn()
		}

		if u := CurrentUser(c); u != nil {
			evt = evt.Str("uid_hash", hash.Short(u.UID, 12))
		}
		evt.
			Str("method", c.Method()).
			Str("path", SanitizePath(c.Path())).
			Int("status", status).
			Dur("duration_ms", duration).
			Str("ip_hash", hash.Short(c.IP(), 12)).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}
