package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/flexyearn/flexyearn/internal/config"
)

// Stores holds the optional backing services. A nil field means the backend
// is not configured and callers fall back to in-memory implementations.
type Stores struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Open connects every backend named in cfg and migrates the database schema.
// Connections opened before a failure are closed again.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stores, error) {
	s := &Stores{}

	if cfg.DatabaseURL != "" {
		db, err := connectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.DB = db

		applied, err := Migrate(ctx, db)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "files", applied)
		}
	} else {
		logger.Warn("DATABASE_URL not set, accounts and journal kept in memory")
	}

	if cfg.RedisURL != "" {
		cache, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Cache = cache
	} else {
		logger.Warn("REDIS_URL not set, idempotency and rate limits disabled")
	}

	return s, nil
}

// Close releases every open connection.
func (s *Stores) Close() error {
	var err error
	if s.Cache != nil {
		err = s.Cache.Close()
		s.Cache = nil
	}
	if s.DB != nil {
		s.DB.Close()
		s.DB = nil
	}
	return err
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 2 * time.Second
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
