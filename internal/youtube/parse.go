package youtube

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// RefKind says how a channel reference should be looked up.
type RefKind int

const (
	RefID RefKind = iota + 1
	RefHandle
	RefUsername
)

// ChannelRef is a parsed user-supplied channel reference.
type ChannelRef struct {
	Kind  RefKind
	Value string
}

var (
	channelIDRe = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	handleRe    = regexp.MustCompile(`^@?[A-Za-z0-9._\-\p{L}\p{N}]{3,100}$`)
	videoIDRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	isoDurRe    = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// IsChannelID reports whether s has the shape of a canonical channel id.
func IsChannelID(s string) bool {
	return channelIDRe.MatchString(s)
}

// IsVideoID reports whether s has the shape of a video id.
func IsVideoID(s string) bool {
	return videoIDRe.MatchString(s)
}

// ParseChannelRef accepts a channel id, an @handle, or a channel URL.
func ParseChannelRef(input string) (ChannelRef, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return ChannelRef{}, ErrInvalidInput
	}

	if strings.Contains(s, "youtube.com") || strings.HasPrefix(s, "http") {
		return parseChannelURL(s)
	}
	if IsChannelID(s) {
		return ChannelRef{Kind: RefID, Value: s}, nil
	}
	if handleRe.MatchString(s) {
		return ChannelRef{Kind: RefHandle, Value: "@" + strings.TrimPrefix(s, "@")}, nil
	}
	return ChannelRef{}, ErrInvalidInput
}

func parseChannelURL(s string) (ChannelRef, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ChannelRef{}, ErrInvalidInput
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "youtube.com" && host != "m.youtube.com" {
		return ChannelRef{}, ErrInvalidInput
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return ChannelRef{}, ErrInvalidInput
	}

	first, _ := url.PathUnescape(segs[0])
	switch {
	case strings.HasPrefix(first, "@"):
		return ChannelRef{Kind: RefHandle, Value: first}, nil
	case first == "channel" && len(segs) > 1 && IsChannelID(segs[1]):
		return ChannelRef{Kind: RefID, Value: segs[1]}, nil
	case first == "user" && len(segs) > 1:
		return ChannelRef{Kind: RefUsername, Value: segs[1]}, nil
	case first == "c" && len(segs) > 1:
		// Legacy custom URLs have no API lookup; most now redirect to the same-named handle.
		name, _ := url.PathUnescape(segs[1])
		return ChannelRef{Kind: RefHandle, Value: "@" + name}, nil
	}
	return ChannelRef{}, ErrInvalidInput
}

// ParseDuration converts an ISO 8601 video duration ("PT1H2M3S") into seconds.
func ParseDuration(s string) (int, bool) {
	m := isoDurRe.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	mult := []int{86400, 3600, 60, 1}
	total := 0
	for i, part := range m[1:] {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, false
		}
		total += n * mult[i]
	}
	return total, true
}
