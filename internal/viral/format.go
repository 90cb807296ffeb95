package viral

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

type unit struct {
	size   float64
	suffix string
}

var (
	koUnits = []unit{{1e8, "억"}, {1e4, "만"}, {1e3, "천"}}
	enUnits = []unit{{1e9, "B"}, {1e6, "M"}, {1e3, "K"}}
)

// FormatScore renders a score as a multiplier, e.g. "3.2x".
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1fx", score)
}

// FormatCount renders n in compact form the way YouTube does: one truncated
// decimal below ten units, whole units above. Locale "ko" uses 천/만/억.
func FormatCount(n int64, locale string) string {
	units := enUnits
	if locale == "ko" {
		units = koUnits
	}
	if n < 0 {
		// -(n+1)+1 stays in range for math.MinInt64.
		return "-" + formatMagnitude(uint64(-(n+1))+1, units)
	}
	return formatMagnitude(uint64(n), units)
}

func formatMagnitude(m uint64, units []unit) string {
	for _, u := range units {
		if float64(m) >= u.size {
			return compact(float64(m)/u.size) + u.suffix
		}
	}
	return strconv.FormatUint(m, 10)
}

// FormatFull renders n with thousands separators.
func FormatFull(n int64) string {
	return humanize.Comma(n)
}

func compact(v float64) string {
	if v < 10 {
		return strconv.FormatFloat(math.Floor(v*10+1e-9)/10, 'f', -1, 64)
	}
	return strconv.FormatFloat(math.Floor(v+1e-9), 'f', 0, 64)
}
