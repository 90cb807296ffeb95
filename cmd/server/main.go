package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/auth"
	"github.com/boxtvstar/tube-radar-sub000/internal/config"
	"github.com/boxtvstar/tube-radar-sub000/internal/db"
	"github.com/boxtvstar/tube-radar-sub000/internal/handler"
	"github.com/boxtvstar/tube-radar-sub000/internal/middleware"
	"github.com/boxtvstar/tube-radar-sub000/internal/repository"
	"github.com/boxtvstar/tube-radar-sub000/internal/router"
	"github.com/boxtvstar/tube-radar-sub000/internal/service"
	"github.com/boxtvstar/tube-radar-sub000/internal/transcript"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "tube-radar")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		ConnectAttempts: cfg.DBConnectAttempts,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	handler.InitMetrics(pool)

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()
	cache.OnHit = handler.Metrics.CacheHits.Inc
	cache.OnMiss = handler.Metrics.CacheMisses.Inc

	verifier := newVerifier(ctx, cfg)

	// Repositories
	users := repository.NewUserRepo(pool)
	groups := repository.NewGroupRepo(pool)
	channels := repository.NewChannelRepo(pool)
	packages := repository.NewPackageRepo(pool)
	usage := repository.NewUsageRepo(pool)
	notifications := repository.NewNotificationRepo(pool)
	inquiries := repository.NewInquiryRepo(pool)
	notices := repository.NewNoticeRepo(pool)
	analytics := repository.NewAnalyticsRepo(pool)

	// YouTube access and quota
	quota := service.NewQuotaService(usage, service.QuotaConfig{
		DailyLimit: cfg.QuotaDailyLimit,
		Location:   cfg.QuotaLocation(),
		Enforce:    cfg.QuotaEnforce,
		WarnRatio:  cfg.QuotaWarnRatio,
	})
	quota.OnCharge = handler.ObserveQuotaCharge
	factory := youtube.NewFactory(youtube.FactoryConfig{
		RPS:     cfg.YouTubeRPS,
		Observe: handler.ObserveYouTubeCall,
	})
	access := service.NewYouTubeAccess(factory, quota, cfg.YouTubeAPIKey)
	if cfg.YouTubeAPIKey == "" {
		log.Warn().Msg("YOUTUBE_API_KEY not set; members without their own key cannot reach YouTube")
	}

	// Services
	userSvc := service.NewUserService(users, quota, access)
	librarySvc := service.NewLibraryService(groups, channels, access)
	monitorSvc := service.NewMonitorService(channels, access, cache)
	trendSvc := service.NewTrendService(access, cache)
	inboxSvc := service.NewInboxService(users, notifications, inquiries, notices)
	packageSvc := service.NewPackageService(packages, groups, channels, inboxSvc)
	membershipSvc := service.NewMembershipService(users, inboxSvc)
	transcriptSvc := service.NewTranscriptService(transcript.NewFetcher(transcript.Config{}), cache, cfg.TranscriptCacheTTL)
	analyticsSvc := service.NewAnalyticsService(analytics, cfg.AnalyticsSalt)
	statsSvc := service.NewStatsService(channels, access, cfg.StatsMaxAge)
	statsSvc.OnRefresh = func(d time.Duration) { handler.Metrics.StatsRefresh.Observe(d.Seconds()) }

	curated, err := config.LoadCuratedPackages(cfg.CuratedPackagesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.CuratedPackagesFile).Msg("failed to load curated packages")
	}
	if err := packageSvc.SeedCurated(ctx, curated); err != nil {
		log.Fatal().Err(err).Msg("failed to seed curated packages")
	}

	// Background workers
	var wg sync.WaitGroup
	statsListener := service.NewStatsListener(pool, statsSvc)
	statsWorker := service.NewStatsWorker(statsSvc, cfg.StatsRefreshInterval)
	membershipWorker := service.NewMembershipWorker(membershipSvc, cfg.MembershipSweepInterval)
	for _, start := range []func(context.Context){statsListener.Start, statsWorker.Start, membershipWorker.Start} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(ctx)
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:      "Tube Radar API",
		ServerHeader: "TubeRadar",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	router.Setup(app, &router.Handlers{
		Health:     handler.NewHealthHandler(pool, cache.Client()),
		User:       handler.NewUserHandler(userSvc),
		Library:    handler.NewLibraryHandler(librarySvc),
		Feed:       handler.NewFeedHandler(monitorSvc),
		Trend:      handler.NewTrendHandler(trendSvc),
		Package:    handler.NewPackageHandler(packageSvc),
		Inbox:      handler.NewInboxHandler(inboxSvc),
		Membership: handler.NewMembershipHandler(membershipSvc),
		Transcript: handler.NewTranscriptHandler(transcriptSvc),
		Analytics:  handler.NewAnalyticsHandler(analyticsSvc),
		Stats:      handler.NewStatsHandler(userSvc),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    verifier,
		Accounts:    userSvc,
		Metrics:     true,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("Tube Radar backend starting")
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}

	// Listen can return without a signal, so stop the workers explicitly.
	statsWorker.Stop()
	membershipWorker.Stop()
	stop()
	wg.Wait()
	log.Info().Msg("shutdown complete")
}

// newVerifier picks Firebase token verification when a project is
// configured and falls back to the development verifier otherwise.
func newVerifier(ctx context.Context, cfg *config.Config) auth.Verifier {
	if cfg.FirebaseProjectID == "" {
		log.Warn().Msg("FIREBASE_PROJECT_ID not set; accepting development tokens")
		return auth.DevVerifier{}
	}
	v, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise Firebase auth")
	}
	return v
}
