package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/woreda-portal/compliance-service/internal/api/http"
	"github.com/woreda-portal/compliance-service/internal/api/http/handlers"
	"github.com/woreda-portal/compliance-service/internal/auth"
	"github.com/woreda-portal/compliance-service/internal/cache"
	"github.com/woreda-portal/compliance-service/internal/config"
	"github.com/woreda-portal/compliance-service/internal/events"
	"github.com/woreda-portal/compliance-service/internal/observability"
	"github.com/woreda-portal/compliance-service/internal/persistence"
	"github.com/woreda-portal/compliance-service/internal/repository"
	"github.com/woreda-portal/compliance-service/internal/service"
	"github.com/woreda-portal/compliance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	noteRepo := repository.NewAdminNoteRepository(pool)
	historyRepo := repository.NewReportHistoryRepository(pool)

	retrier := persistence.NewRetrier(cfg.Persistence, logger)
	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	publisher := events.NewRedisPublisher(redis.Client, cfg.Redis.EventsChannel, logger)
	worker.StartNotificationWorker(dispatcher, notificationService, publisher)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo:  reportRepo,
		NoteRepo:    noteRepo,
		HistoryRepo: historyRepo,
		UserRepo:    userRepo,
		StatsCache:  cache.NewRedisStatsCache(redis.Client, cfg.Redis.StatsTTL),
		Dispatcher:  dispatcher,
		Retrier:     retrier,
		Config:      cfg.Reports,
		Logger:      logger,
	})
	userService := service.NewUserService(*cfg, service.UserDependencies{
		UserRepo: userRepo,
		Retrier:  retrier,
		Logger:   logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokens,
		Retrier:      retrier,
		Logger:       logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo, cfg.Auth.SessionCookie)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		PublicReports:  handlers.NewPublicReportsHandler(reportService),
		StaffReports:   handlers.NewStaffReportsHandler(reportService),
		Users:          handlers.NewUsersHandler(userService),
		Auth:           handlers.NewAuthHandler(authService, cfg.Auth.SessionCookie, cfg.App.Env == "production"),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
