package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-ims/meridian/internal/alerts"
	"github.com/meridian-ims/meridian/internal/app"
	"github.com/meridian-ims/meridian/internal/auth"
	"github.com/meridian-ims/meridian/internal/batch"
	"github.com/meridian-ims/meridian/internal/catalog"
	"github.com/meridian-ims/meridian/internal/observability"
	"github.com/meridian-ims/meridian/internal/platform/cache"
	"github.com/meridian-ims/meridian/internal/platform/db"
	"github.com/meridian-ims/meridian/internal/pricing"
	"github.com/meridian-ims/meridian/internal/shared"
	"github.com/meridian-ims/meridian/internal/txn"
	"github.com/meridian-ims/meridian/internal/users"
	"github.com/meridian-ims/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	sessionManager := shared.NewSessionManager(
		shared.NewRedisStore(redisClient), "meridian_session", cfg.SessionSecret,
		cfg.SessionTTL, cfg.IsProduction())

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService)

	authService := auth.NewService(usersRepo, redisClient, cfg.LoginMaxAttempts, cfg.LoginLockoutWindow)
	authHandler := auth.NewHandler(logger, authService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	pricingRepo := pricing.NewRepository(pool)
	pricingService := pricing.NewService(pricingRepo, usersService, auditLogger)
	pricingHandler := pricing.NewHandler(logger, pricingService)

	batchRepo := batch.NewRepository(pool)
	batchService := batch.NewService(batchRepo)
	batchHandler := batch.NewHandler(logger, batchService)

	txnRepo := txn.NewRepository(pool)
	txnService := txn.NewService(txnRepo, auditLogger, idempotencyStore, usersService)
	txnHandler := txn.NewHandler(logger, txnService, batchRepo, batchService)

	alertsRepo := alerts.NewRepository(pool)
	alertsService := alerts.NewService(logger, alertsRepo, redisClient, cfg.AlertCacheTTL)
	alertsHandler := alerts.NewHandler(logger, alertsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		Pool:           pool,
		AuthHandler:    authHandler,
		CatalogHandler: catalogHandler,
		PricingHandler: pricingHandler,
		BatchHandler:   batchHandler,
		TxnHandler:     txnHandler,
		AlertsHandler:  alertsHandler,
		UsersHandler:   usersHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
