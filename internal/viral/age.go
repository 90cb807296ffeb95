package viral

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	koAgeRe = regexp.MustCompile(`^(\d+)\s*(초|분|시간|일|주|개월|달|년)\s*전$`)
	enAgeRe = regexp.MustCompile(`^(\d+|an?)\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)

	// Live and premiere labels lead with a verb before the relative time.
	agePrefixRe = regexp.MustCompile(`^(?:streamed(?:\s+live)?|premiered|스트리밍\s*시간:|최초\s*공개:)\s*`)
)

var unitHours = map[string]float64{
	"초": 1.0 / 3600, "second": 1.0 / 3600,
	"분": 1.0 / 60, "minute": 1.0 / 60,
	"시간": 1, "hour": 1,
	"일": 24, "day": 24,
	"주": 24 * 7, "week": 24 * 7,
	"개월": 24 * 30, "달": 24 * 30, "month": 24 * 30,
	"년": 24 * 365, "year": 24 * 365,
}

// ParseRelativeAge converts a localized relative-time label such as
// "2일 전" or "3 weeks ago" into hours.
func ParseRelativeAge(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
	s = agePrefixRe.ReplaceAllString(s, "")

	switch s {
	case "":
		return 0, false
	case "방금 전", "방금", "just now":
		return 0, true
	}

	if m := koAgeRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return float64(n) * unitHours[m[2]], true
	}

	if m := enAgeRe.FindStringSubmatch(s); m != nil {
		n := 1
		if m[1] != "a" && m[1] != "an" {
			var err error
			if n, err = strconv.Atoi(m[1]); err != nil {
				return 0, false
			}
		}
		return float64(n) * unitHours[m[2]], true
	}

	return 0, false
}
