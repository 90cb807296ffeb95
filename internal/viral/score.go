// Package viral scores how far a video outperforms its channel's usual reach.
package viral

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

const (
	// WeekHours is the age at which a video is expected to reach its channel average.
	WeekHours = 168.0

	minAgeFactor = 0.3
	maxAgeFactor = 1.0

	// minBaselineSamples is how many recent videos are needed before their
	// mean replaces the lifetime channel average.
	minBaselineSamples = 3
)

// Tier buckets a viral score for display.
type Tier string

const (
	TierNormal    Tier = "normal"
	TierRising    Tier = "rising"
	TierViral     Tier = "viral"
	TierExplosive Tier = "explosive"
)

// Tier thresholds, inclusive lower bounds.
const (
	RisingThreshold    = 1.5
	ViralThreshold     = 3.0
	ExplosiveThreshold = 10.0
)

// AgeFactor scales the channel average by video age:
//
//	clamp(sqrt(hours/168), 0.3, 1.0)
func AgeFactor(hours float64) float64 {
	if hours < 1 {
		hours = 1
	}
	f := math.Sqrt(hours / WeekHours)
	return math.Max(minAgeFactor, math.Min(maxAgeFactor, f))
}

// ExpectedViews is the view count a video of the given age should have
// when the channel averages avg views per video.
func ExpectedViews(avg, hours float64) float64 {
	return avg * AgeFactor(hours)
}

// Score returns views / ExpectedViews(avg, hours), or 0 without a usable baseline.
func Score(views int64, avg, hours float64) float64 {
	if avg <= 0 || views <= 0 {
		return 0
	}
	return float64(views) / ExpectedViews(avg, hours)
}

// TierFor buckets a score.
func TierFor(score float64) Tier {
	switch {
	case score >= ExplosiveThreshold:
		return TierExplosive
	case score >= ViralThreshold:
		return TierViral
	case score >= RisingThreshold:
		return TierRising
	}
	return TierNormal
}

// AtLeast reports whether t is the same as or above min.
func (t Tier) AtLeast(min Tier) bool {
	return tierRank(t) >= tierRank(min)
}

func tierRank(t Tier) int {
	switch t {
	case TierRising:
		return 1
	case TierViral:
		return 2
	case TierExplosive:
		return 3
	}
	return 0
}

// Baseline picks the average-views reference for a channel. The mean of
// recent uploads wins once there are enough of them; otherwise the lifetime
// channel average is used.
func Baseline(channelViews, channelVideos int64, recentViews []int64) float64 {
	if len(recentViews) >= minBaselineSamples {
		var sum int64
		for _, v := range recentViews {
			sum += v
		}
		return float64(sum) / float64(len(recentViews))
	}
	if channelVideos <= 0 {
		return 0
	}
	return float64(channelViews) / float64(channelVideos)
}

// HoursSince returns the age of a video published at t, as seen at now.
func HoursSince(t, now time.Time) float64 {
	if t.IsZero() || t.After(now) {
		return 0
	}
	return now.Sub(t).Hours()
}

// Apply fills the score fields of v against baseline avg at now.
func Apply(v *model.VideoData, avg float64, now time.Time, locale string) {
	score := Score(v.ViewCount, avg, HoursSince(v.PublishedAt, now))
	v.ViralScore = math.Round(score*100) / 100
	v.ViralScoreText = FormatScore(score)
	v.Tier = string(TierFor(score))
	v.Views = FormatCount(v.ViewCount, locale)
	v.ViewsFull = FormatFull(v.ViewCount)
	v.Subscribers = FormatCount(v.SubscriberCount, locale)
}

// Rank orders videos by score, highest first; ties go to the higher view count.
func Rank(videos []model.VideoData) {
	slices.SortStableFunc(videos, func(a, b model.VideoData) int {
		if c := cmp.Compare(b.ViralScore, a.ViralScore); c != 0 {
			return c
		}
		return cmp.Compare(b.ViewCount, a.ViewCount)
	})
}
