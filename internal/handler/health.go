package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Version is reported by the readiness probe. Overridden at link time.
var Version = "dev"

const readyTimeout = 3 * time.Second

// Dependency is one backend checked by the readiness probe. A failing
// critical dependency makes the service unhealthy; any other only degrades it.
type Dependency struct {
	Name     string
	Critical bool
	// Ping is nil for a dependency that is configured off.
	Ping func(ctx context.Context) error
}

type depCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type readiness struct {
	Status        string              `json:"status"`
	Checks        map[string]depCheck `json:"checks"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Version       string              `json:"version"`
}

type HealthHandler struct {
	deps    []Dependency
	startAt time.Time
}

// NewHealthHandler checks Postgres as critical and Redis, when configured,
// as optional.
func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	cache := Dependency{Name: "redis"}
	if rdb != nil {
		cache.Ping = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return newHealthHandler(
		Dependency{Name: "database", Critical: true, Ping: pool.Ping},
		cache,
	)
}

func newHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps, startAt: time.Now()}
}

// Live handles GET /health/live, the liveness probe.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. Dependencies are pinged concurrently.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readyTimeout)
	defer cancel()

	results := make([]depCheck, len(h.deps))
	var wg sync.WaitGroup
	for i, d := range h.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = ping(ctx, d)
		}()
	}
	wg.Wait()

	resp := readiness{
		Status:        "healthy",
		Checks:        make(map[string]depCheck, len(h.deps)),
		UptimeSeconds: int64(time.Since(h.startAt).Seconds()),
		Version:       Version,
	}
	for i, d := range h.deps {
		resp.Checks[d.Name] = results[i]
		if results[i].Status != "down" {
			continue
		}
		if d.Critical {
			resp.Status = "unhealthy"
		} else if resp.Status == "healthy" {
			resp.Status = "degraded"
		}
	}

	if resp.Status == "unhealthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func ping(ctx context.Context, d Dependency) depCheck {
	if d.Ping == nil {
		return depCheck{Status: "disabled"}
	}
	start := time.Now()
	err := d.Ping(ctx)
	check := depCheck{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "down"
		check.Error = "connection failed"
	}
	return check
}
