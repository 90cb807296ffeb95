package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/boxtvstar/tube-radar-sub000/internal/auth"
	"github.com/boxtvstar/tube-radar-sub000/internal/handler"
	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health     *handler.HealthHandler
	User       *handler.UserHandler
	Library    *handler.LibraryHandler
	Feed       *handler.FeedHandler
	Trend      *handler.TrendHandler
	Package    *handler.PackageHandler
	Inbox      *handler.InboxHandler
	Membership *handler.MembershipHandler
	Transcript *handler.TranscriptHandler
	Analytics  *handler.AnalyticsHandler
	Stats      *handler.StatsHandler
}

// Options carries what the middleware stack needs besides handlers.
type Options struct {
	CORSOrigins string
	Verifier    auth.Verifier
	Accounts    middleware.Authenticator
	// Metrics enables the Prometheus middleware and /metrics endpoint.
	// handler.InitMetrics must have been called first.
	Metrics bool
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	if opts.Metrics {
		app.Use(handler.MetricsMiddleware())
	}
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	if h.Health != nil {
		app.Get("/health/live", h.Health.Live)
		app.Get("/health/ready", h.Health.Ready)
	}
	if opts.Metrics {
		app.Get("/metrics", handler.MetricsHandler())
	}

	authed := middleware.NewAuth(opts.Verifier, opts.Accounts)
	optional := middleware.NewOptionalAuth(opts.Verifier, opts.Accounts)
	libraryWrites := middleware.NewRateLimiter(middleware.LibraryWriteLimit).Handler()
	trendLimit := middleware.NewRateLimiter(middleware.TrendLimit).Handler()
	transcriptLimit := middleware.NewRateLimiter(middleware.TranscriptLimit).Handler()
	analyticsLimit := middleware.NewRateLimiter(middleware.AnalyticsLimit).Handler()

	api := app.Group("/api")

	// Public routes
	api.Get("/notice", h.Inbox.Notice)
	api.Get("/transcript", transcriptLimit, h.Transcript.Transcript)
	api.Get("/languages", transcriptLimit, h.Transcript.Languages)
	api.Post("/analytics/sessions", analyticsLimit, optional, h.Analytics.StartSession)
	api.Post("/analytics/pageviews", analyticsLimit, h.Analytics.PageView)
	api.Get("/packages", h.Package.List)

	// Account routes
	api.Get("/me", authed, h.User.Me)
	api.Put("/me/api-key", authed, h.User.SetAPIKey)
	api.Get("/usage", authed, h.User.Usage)
	api.Get("/usage/logs", authed, h.User.UsageLogs)

	// Library routes; static segments register before :groupId
	api.Get("/groups", authed, h.Library.Groups)
	api.Post("/groups", authed, libraryWrites, h.Library.CreateGroup)
	api.Put("/groups/order", authed, libraryWrites, h.Library.ReorderGroups)
	api.Post("/groups/bundle", authed, libraryWrites, h.Library.Bundle)
	api.Put("/groups/:groupId", authed, libraryWrites, h.Library.RenameGroup)
	api.Delete("/groups/:groupId", authed, libraryWrites, h.Library.DeleteGroup)
	api.Get("/channels", authed, h.Library.Channels)
	api.Post("/channels", authed, libraryWrites, h.Library.AddChannel)
	api.Patch("/channels", authed, libraryWrites, h.Library.MoveChannels)
	api.Delete("/channels", authed, libraryWrites, h.Library.RemoveChannels)

	// Monitoring and discovery
	api.Get("/feed", authed, h.Feed.Feed)
	api.Get("/feed/outliers", authed, h.Feed.Outliers)
	api.Get("/trends/search", authed, trendLimit, h.Trend.Search)
	api.Get("/trends/popular", authed, trendLimit, h.Trend.Popular)

	// Packages
	api.Post("/packages", authed, h.Package.Submit)
	api.Get("/packages/mine", authed, h.Package.Mine)
	api.Put("/packages/:id", authed, h.Package.Update)
	api.Delete("/packages/:id", authed, h.Package.Delete)
	api.Post("/packages/:id/import", authed, libraryWrites, h.Package.Import)

	// Notifications and inquiries
	api.Get("/notifications", authed, h.Inbox.Notifications)
	api.Get("/notifications/unread-count", authed, h.Inbox.UnreadCount)
	api.Post("/notifications/read-all", authed, h.Inbox.MarkAllRead)
	api.Post("/notifications/:id/read", authed, h.Inbox.MarkRead)
	api.Delete("/notifications/:id", authed, h.Inbox.DeleteNotification)
	api.Get("/inquiries", authed, h.Inbox.MyInquiries)
	api.Post("/inquiries", authed, h.Inbox.CreateInquiry)

	// Admin routes
	admin := api.Group("/admin", authed, middleware.RequireAdmin())
	admin.Get("/packages/pending", h.Package.Pending)
	admin.Post("/packages/:id/review", h.Package.Review)
	admin.Post("/notifications/broadcast", h.Inbox.Broadcast)
	admin.Get("/inquiries", h.Inbox.Inquiries)
	admin.Post("/inquiries/:id/answer", h.Inbox.AnswerInquiry)
	admin.Post("/inquiries/:id/close", h.Inbox.CloseInquiry)
	admin.Put("/notice", h.Inbox.SetNotice)
	admin.Post("/members/:uid/grant", h.Membership.Grant)
	admin.Post("/members/:uid/revoke", h.Membership.Revoke)
	admin.Put("/members/:uid/role", h.Membership.SetRole)
	admin.Get("/analytics/summary", h.Analytics.Summary)
	admin.Get("/stats", h.Stats.GetStats)
}
