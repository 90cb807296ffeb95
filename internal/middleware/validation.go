package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/text/language"

	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

// Field length limits matching database schema constraints.
const (
	MaxUIDLen       = 128 // users.uid VARCHAR(128)
	MaxUserAgentLen = 512 // analytics_sessions.user_agent VARCHAR(512)
	MaxLanguages    = 5
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateVideoID checks that a video ID is an 11-character YouTube id.
func ValidateVideoID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "videoId is required"
	}
	if !youtube.IsVideoID(id) {
		return "", "videoId must be an 11-character YouTube video id"
	}
	return id, ""
}

// ValidateChannelID checks that a channel ID has the UC... form.
func ValidateChannelID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "channelId is required"
	}
	if !youtube.IsChannelID(id) {
		return "", "channelId must be a UC... channel id"
	}
	return id, ""
}

// ValidateUID checks an account id taken from the path.
func ValidateUID(uid string) (string, string) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", "uid is required"
	}
	if len(uid) > MaxUIDLen {
		return "", "uid must be at most 128 characters"
	}
	if strings.ContainsAny(uid, " /\\\t\n") {
		return "", "uid contains invalid characters"
	}
	return uid, ""
}

// ValidateLanguages parses a comma-separated list of BCP 47 language codes.
// An empty list is allowed and means "any language".
func ValidateLanguages(raw string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	parts := strings.Split(raw, ",")
	if len(parts) > MaxLanguages {
		return nil, "at most 5 languages may be requested"
	}
	langs := make([]string, 0, len(parts))
	for _, p := range parts {
		tag, err := language.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, "languages must be BCP 47 codes such as ko or en-US"
		}
		langs = append(langs, tag.String())
	}
	return langs, ""
}

// QueryInt reads an optional integer query parameter.
func QueryInt(c fiber.Ctx, key string, fallback int) (int, string) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return fallback, ""
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, key + " must be an integer"
	}
	return n, ""
}

// QueryBool reads an optional boolean query parameter.
func QueryBool(c fiber.Ctx, key string) (bool, string) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return false, ""
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, key + " must be true or false"
	}
	return b, ""
}

// ValidateUserAgent trims and truncates user agent to DB limits.
func ValidateUserAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if len(ua) > MaxUserAgentLen {
		ua = ua[:MaxUserAgentLen]
	}
	return ua
}
