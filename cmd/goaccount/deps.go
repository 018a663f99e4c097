package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/MrEthical07/goAccount/internal/logging"
)

const retryBase = 250 * time.Millisecond

// connectBackoff retries with exponential delays capped at 5s until limit
// has elapsed.
func connectBackoff(limit time.Duration) retry.Backoff {
	b := retry.NewExponential(retryBase)
	b = retry.WithCappedDuration(5*time.Second, b)
	return retry.WithMaxDuration(limit, b)
}

// ping runs fn until it succeeds or the backoff gives up, logging each
// failed attempt.
func ping(ctx context.Context, logger *slog.Logger, what string, b retry.Backoff, fn func(context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			logger.WarnContext(ctx, "dependency not ready", "dependency", what, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func openPostgres(ctx context.Context, cfg appConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("database url is required (--database.url or DATABASE_URL)")
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	if err := ping(ctx, logger, "postgres", connectBackoff(cfg.Database.ConnectRetry), pool.Ping); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	return pool, nil
}

func openRedis(ctx context.Context, cfg appConfig, logger *slog.Logger) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("redis url is required (--redis.url or REDIS_URL)")
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, oops.Code("REDIS_URL_INVALID").Wrap(err)
	}
	client := redis.NewClient(opts)
	err = ping(ctx, logger, "redis", connectBackoff(cfg.Database.ConnectRetry), func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
	}
	return client, nil
}

func setupLogger(cfg appConfig) (*slog.Logger, error) {
	logger, err := logging.Setup("goaccount", version, logging.Options{Format: cfg.Log.Format, Level: cfg.Log.Level})
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return logger, nil
}
