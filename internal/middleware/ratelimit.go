package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/time/rate"
)

// Limit is a per-key token bucket: Burst requests at once, refilled evenly
// so that Burst more are available after Per.
type Limit struct {
	Name  string
	Burst int
	Per   time.Duration
	Key   func(c fiber.Ctx) string
}

// Inbound limits per route family.
var (
	LibraryWriteLimit = Limit{Name: "library-write", Burst: 60, Per: time.Minute, Key: KeyByUserID}
	TrendLimit        = Limit{Name: "trend", Burst: 20, Per: time.Minute, Key: KeyByUserID}
	TranscriptLimit   = Limit{Name: "transcript", Burst: 30, Per: time.Minute, Key: KeyByIP}
	AnalyticsLimit    = Limit{Name: "analytics", Burst: 120, Per: time.Minute, Key: KeyByIP}
)

// pruneEvery bounds how many decisions pass between sweeps of idle buckets.
const pruneEvery = 1024

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key.
type RateLimiter struct {
	limit Limit
	every rate.Limit
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	decisions int
}

// NewRateLimiter creates a limiter enforcing l.
func NewRateLimiter(l Limit) *RateLimiter {
	return &RateLimiter{
		limit:   l,
		every:   rate.Every(l.Per / time.Duration(l.Burst)),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Decision is the outcome of one Take.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Take spends one token from key's bucket.
func (rl *RateLimiter) Take(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.every, rl.limit.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	rl.decisions++
	if rl.decisions%pruneEvery == 0 {
		rl.prune(now)
	}

	if b.lim.AllowN(now, 1) {
		return Decision{Allowed: true, Remaining: int(math.Floor(b.lim.TokensAt(now)))}
	}
	missing := 1 - b.lim.TokensAt(now)
	wait := time.Duration(missing / float64(rl.every) * float64(time.Second))
	return Decision{RetryAfter: wait}
}

// prune drops buckets idle long enough to have refilled completely.
func (rl *RateLimiter) prune(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.limit.Per {
			delete(rl.buckets, key)
		}
	}
}

// Handler returns a Fiber middleware enforcing the limit.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		d := rl.Take(rl.limit.Key(c))
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Burst))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if d.Allowed {
			return c.Next()
		}

		secs := int(math.Ceil(d.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
		return ErrorResponse(c, fiber.StatusTooManyRequests, "RATE_LIMITED",
			"Too many "+rl.limit.Name+" requests. Try again in "+strconv.Itoa(secs)+"s.")
	}
}

// KeyByIP returns the client IP as the rate limit key.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// KeyByUserID keys on the authenticated caller, falling back to IP for
// anonymous requests. Must run after NewAuth.
func KeyByUserID(c fiber.Ctx) string {
	if u := CurrentUser(c); u != nil {
		return "user:" + u.UID
	}
	return "ip:" + c.IP()
}
