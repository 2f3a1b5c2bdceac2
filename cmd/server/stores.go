package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/taskflow/internal/config"
	"github.com/fastygo/taskflow/internal/infrastructure/monitor"
	mongoInfra "github.com/fastygo/taskflow/internal/infrastructure/mongodb"
	pgInfra "github.com/fastygo/taskflow/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/taskflow/internal/infrastructure/redis"
	"github.com/fastygo/taskflow/internal/services/lifecycle"
	"github.com/fastygo/taskflow/repository"
	"github.com/fastygo/taskflow/repository/memory"
	"github.com/fastygo/taskflow/repository/mongodb"
	"github.com/fastygo/taskflow/repository/postgres"
	redisRepo "github.com/fastygo/taskflow/repository/redis"
)

// stores is the persistence selected by configuration.
type stores struct {
	tasks    repository.TaskRepository
	activity repository.ActivityRepository
	users    repository.UserRepository
	sessions repository.SessionRepository
	checks   []monitor.Check
}

func openStores(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (*stores, error) {
	s := &stores{}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		manager.Register(lifecycle.StageStores, "postgres", func(ctx context.Context) error {
			pgInfra.Close(pool, logger)
			return nil
		})
		s.tasks = postgres.NewTaskRepository(pool)
		s.activity = postgres.NewActivityRepository(pool)
		s.users = postgres.NewUserRepository(pool)
		s.checks = append(s.checks, monitor.PostgresCheck(pool))

	case config.DriverMongo:
		client, err := mongoInfra.NewClient(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		manager.Register(lifecycle.StageStores, "mongo", func(ctx context.Context) error {
			return mongoInfra.Close(ctx, client, logger)
		})
		db := client.Database(cfg.Mongo.Database)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		s.tasks = mongodb.NewTaskRepository(db)
		s.activity = mongodb.NewActivityRepository(db)
		s.users = mongodb.NewUserRepository(db)
		s.checks = append(s.checks, monitor.MongoCheck(client))

	default:
		logger.Warn("using in-memory store, data is lost on restart")
		s.tasks = memory.NewTaskRepository()
		s.activity = memory.NewActivityRepository()
		s.users = memory.NewUserRepository()
	}

	if cfg.Redis.URL == "" {
		s.sessions = memory.NewSessionRepository(cfg.JWT.TTL)
		return s, nil
	}

	redisClient, err := redisInfra.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	manager.Register(lifecycle.StageStores, "redis", func(ctx context.Context) error {
		return redisClient.Close()
	})
	s.sessions = redisRepo.NewSessionRepository(redisClient, cfg.JWT.TTL)
	s.checks = append(s.checks, monitor.RedisCheck(redisClient))
	return s, nil
}
