package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-ims/meridian/internal/alerts"
	"github.com/meridian-ims/meridian/internal/shared"
)

// AlertsRefreshHandler drives the alert prioritizer on a fixed cadence.
// Polling keeps the consumer contract simple: readers tolerate up to one
// interval of staleness and never assume monotonic consistency between runs.
type AlertsRefreshHandler struct {
	logger  *slog.Logger
	service *alerts.Service
}

// NewAlertsRefreshHandler constructs the handler.
func NewAlertsRefreshHandler(logger *slog.Logger, service *alerts.Service) *AlertsRefreshHandler {
	return &AlertsRefreshHandler{logger: logger, service: service}
}

// ProcessTask recomputes the alert list and caches it.
func (h *AlertsRefreshHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	list, err := h.service.Refresh(ctx)
	if err != nil {
		h.logger.Error("alerts refresh", slog.Any("error", err))
		return err
	}
	h.logger.Info("alerts refreshed",
		slog.Int("alerts", len(list)),
		slog.Duration("took", time.Since(start)))
	return nil
}

// IdempotencyCleanupHandler prunes idempotency keys past their retention.
type IdempotencyCleanupHandler struct {
	logger    *slog.Logger
	store     *shared.IdempotencyStore
	retention time.Duration
}

// NewIdempotencyCleanupHandler constructs the handler.
func NewIdempotencyCleanupHandler(logger *slog.Logger, store *shared.IdempotencyStore, retention time.Duration) *IdempotencyCleanupHandler {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &IdempotencyCleanupHandler{logger: logger, store: store, retention: retention}
}

// ProcessTask removes expired keys.
func (h *IdempotencyCleanupHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	if err := h.store.Cleanup(ctx, h.retention); err != nil {
		h.logger.Error("idempotency cleanup", slog.Any("error", err))
		return err
	}
	return nil
}
