package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sweet-shop/internal/api/http"
	"github.com/spec-kit/sweet-shop/internal/api/http/handlers"
	"github.com/spec-kit/sweet-shop/internal/auth"
	"github.com/spec-kit/sweet-shop/internal/config"
	"github.com/spec-kit/sweet-shop/internal/events"
	"github.com/spec-kit/sweet-shop/internal/observability"
	"github.com/spec-kit/sweet-shop/internal/persistence"
	"github.com/spec-kit/sweet-shop/internal/service"
	"github.com/spec-kit/sweet-shop/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	revocations := auth.NewMemoryRevocationList()
	if redis != nil {
		revocations = auth.NewRedisRevocationList(redis.Client)
	}

	metrics := observability.NewMetrics()

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:    store.Users,
		Revocations: revocations,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}

	if cfg.Seed.OnStart {
		seedAdmin(ctx, authService, cfg.Seed, logger)
	}

	notifier := worker.NewNotificationWorker(logger, metrics, cfg.Notification.WebhookURL, cfg.Notification.QueueSize)
	notifier.Start(ctx)

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, notifier, logger).RegisterHandlers()

	sweetService := service.NewSweetService(service.SweetDependencies{
		SweetRepo:         store.Sweets,
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Logger:            logger,
		LowStockThreshold: cfg.Notification.LowStockThreshold,
	})

	dependencies := store.Pingers()
	if redis != nil {
		dependencies["redis"] = redis
	}

	validator := handlers.NewValidator()
	app := httptransport.NewApp(cfg.App.Name,
		httptransport.MiddlewareConfig{
			Logger:         logger,
			Metrics:        metrics,
			Timeout:        cfg.App.RequestTimeout(),
			AllowedOrigins: cfg.App.AllowedOrigins(),
		},
		httptransport.RouteConfig{
			Prefix:         cfg.App.APIPrefix,
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
			Auth:           handlers.NewAuthHandler(authService, validator),
			Sweets:         handlers.NewSweetsHandler(sweetService, validator),
			AuthMiddleware: auth.NewAuthMiddleware(authService),
		})

	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("storage", cfg.Storage.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	notifier.Stop()
}

func seedAdmin(ctx context.Context, authService *service.AuthService, cfg config.SeedConfig, logger *zap.Logger) {
	if cfg.AdminPassword == "" {
		logger.Warn("SEED_ADMIN_ON_START set without SEED_ADMIN_PASSWORD; skipping seed")
		return
	}
	created, err := authService.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}
	logger.Info("admin seed checked", zap.String("email", cfg.AdminEmail), zap.Bool("created", created))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
