package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/store/postgres"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the account HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg appConfig) error {
	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	pool, err := openPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.MigratePool(ctx, pool); err != nil {
			return err
		}
		logger.InfoContext(ctx, "migrations applied")
	}

	rdb, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rdb.Close() //nolint:errcheck // shutdown path

	engine, err := goAccount.New().
		WithConfig(cfg.Account).
		WithStore(postgres.New(pool)).
		WithRateLimiter(rate.New(rdb, cfg.Redis.Prefix)).
		WithLogger(logger).
		WithAuditSink(goAccount.NewSlogAuditSink(logger)).
		Build()
	if err != nil {
		return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(engine, httpapi.RouterConfig{
		Cookie:  cfg.cookie(),
		Metrics: prometheus.NewPrometheusExporter(engine).Handler(),
		Ready: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVE_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
