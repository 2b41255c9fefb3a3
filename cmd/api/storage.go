package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sweet-shop/internal/api/http/handlers"
	"github.com/spec-kit/sweet-shop/internal/config"
	"github.com/spec-kit/sweet-shop/internal/persistence"
	"github.com/spec-kit/sweet-shop/internal/repository"
	"github.com/spec-kit/sweet-shop/internal/repository/memory"
	"github.com/spec-kit/sweet-shop/internal/repository/mongodb"
)

// storage holds the repositories of the selected driver.
type storage struct {
	Users    repository.UserRepository
	Sweets   repository.SweetRepository
	postgres *persistence.Postgres
	mongo    *persistence.Mongo
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &storage{
			Users:    repository.NewUserRepository(pg.Pool),
			Sweets:   repository.NewSweetRepository(pg.Pool),
			postgres: pg,
		}, nil

	case config.DriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, m.Database); err != nil {
			m.Close(ctx)
			return nil, err
		}
		return &storage{
			Users:  mongodb.NewUserRepository(m.Database),
			Sweets: mongodb.NewSweetRepository(m.Database),
			mongo:  m,
		}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return &storage{
			Users:  memory.NewUserRepository(),
			Sweets: memory.NewSweetRepository(),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// Pingers lists the connections the readiness check pings.
func (s *storage) Pingers() map[string]handlers.Pinger {
	deps := map[string]handlers.Pinger{}
	if s.postgres != nil {
		deps["postgres"] = s.postgres
	}
	if s.mongo != nil {
		deps["mongo"] = s.mongo
	}
	return deps
}

func (s *storage) Close() {
	if s.postgres != nil {
		s.postgres.Close()
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.mongo.Close(ctx)
	}
}
