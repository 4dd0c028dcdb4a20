package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-ims/meridian/internal/alerts"
	"github.com/meridian-ims/meridian/internal/app"
	"github.com/meridian-ims/meridian/internal/platform/cache"
	"github.com/meridian-ims/meridian/internal/platform/db"
	"github.com/meridian-ims/meridian/internal/shared"
	"github.com/meridian-ims/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	alertsRepo := alerts.NewRepository(pool)
	alertsService := alerts.NewService(logger, alertsRepo, redisClient, cfg.AlertCacheTTL)
	refreshHandler := jobs.NewAlertsRefreshHandler(logger, alertsService)

	idempotencyStore := shared.NewIdempotencyStore(pool)
	cleanupHandler := jobs.NewIdempotencyCleanupHandler(logger, idempotencyStore, 0)

	refreshSpec := fmt.Sprintf("@every %s", cfg.AlertRefreshInterval)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAlertsRefresh, Handler: refreshHandler},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupHandler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: refreshSpec, Task: jobs.NewAlertsRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(2)}},
			{Spec: "45 2 * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
