// Command seed creates the bootstrap administrator account if it is missing.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sweet-shop/internal/config"
	"github.com/spec-kit/sweet-shop/internal/observability"
	"github.com/spec-kit/sweet-shop/internal/persistence"
	"github.com/spec-kit/sweet-shop/internal/repository"
	"github.com/spec-kit/sweet-shop/internal/repository/mongodb"
	"github.com/spec-kit/sweet-shop/internal/service"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
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

	if cfg.Seed.AdminPassword == "" {
		logger.Fatal("SEED_ADMIN_PASSWORD is required")
	}

	var users repository.UserRepository
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		users = repository.NewUserRepository(pg.Pool)
	case config.DriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			logger.Fatal("failed to connect mongo", zap.Error(err))
		}
		defer m.Close(context.Background())
		if err := mongodb.EnsureIndexes(ctx, m.Database); err != nil {
			logger.Fatal("failed to ensure indexes", zap.Error(err))
		}
		users = mongodb.NewUserRepository(m.Database)
	default:
		logger.Fatal("seeding needs a persistent storage driver", zap.String("driver", cfg.Storage.Driver))
	}

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: users, Logger: logger})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}

	created, err := authService.SeedAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword)
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	if created {
		logger.Info("admin account created", zap.String("email", cfg.Seed.AdminEmail))
		return
	}
	logger.Info("admin account already exists", zap.String("email", cfg.Seed.AdminEmail))
}
