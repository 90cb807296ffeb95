package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

// Metrics holds all Prometheus collectors for the Tube Radar backend.
var Metrics = struct {
	YouTubeCalls     *prometheus.CounterVec
	QuotaUnits       *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	DBPoolActive     prometheus.GaugeFunc
	DBPoolIdle       prometheus.GaugeFunc
	RequestsInFlight prometheus.Gauge
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	StatsRefresh     prometheus.Histogram
}{}

// InitMetrics registers all Prometheus metrics. Call once at startup.
func InitMetrics(pool *pgxpool.Pool) {
	Metrics.YouTubeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuberadar_youtube_calls_total",
			Help: "YouTube Data API calls, by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	Metrics.QuotaUnits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuberadar_quota_units_total",
			Help: "YouTube quota units charged, by operation.",
		},
		[]string{"op"},
	)

	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tuberadar_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tuberadar_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	Metrics.CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tuberadar_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	Metrics.CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tuberadar_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	Metrics.StatsRefresh = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tuberadar_channel_stats_refresh_duration_seconds",
			Help:    "Duration of saved-channel statistics refreshes.",
			Buckets: prometheus.DefBuckets,
		},
	)

	if pool != nil {
		Metrics.DBPoolActive = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "tuberadar_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 {
				return float64(pool.Stat().AcquiredConns())
			},
		)

		Metrics.DBPoolIdle = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "tuberadar_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 {
				return float64(pool.Stat().IdleConns())
			},
		)

		prometheus.MustRegister(Metrics.DBPoolActive)
		prometheus.MustRegister(Metrics.DBPoolIdle)
	}

	prometheus.MustRegister(
		Metrics.YouTubeCalls,
		Metrics.QuotaUnits,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
		Metrics.CacheHits,
		Metrics.CacheMisses,
		Metrics.StatsRefresh,
	)
}

// ObserveYouTubeCall is a youtube.Observer feeding the call counter.
func ObserveYouTubeCall(op model.Operation, err error) {
	Metrics.YouTubeCalls.WithLabelValues(string(op), callOutcome(err)).Inc()
}

// ObserveQuotaCharge counts units charged against any quota bucket.
func ObserveQuotaCharge(op model.Operation, cost int) {
	Metrics.QuotaUnits.WithLabelValues(string(op)).Add(float64(cost))
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, youtube.ErrInvalidAPIKey):
		return "key_rejected"
	case errors.Is(err, youtube.ErrChannelNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// MetricsMiddleware records request duration and in-flight count for Prometheus.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings before c.Next(); Fiber
		// returns slices backed by the fasthttp buffer which handlers may reuse.
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := middleware.SanitizePath(path)

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
