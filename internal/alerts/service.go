package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotPort fetches the items and pending outgoing lines the prioritizer
// runs over.
type SnapshotPort interface {
	Snapshot(ctx context.Context) ([]ItemSnapshot, []PendingLineSnapshot, error)
}

const cacheKey = "alerts:current"

// Service computes and caches the alert list. Consumers read the cached
// list and tolerate it being up to one refresh interval stale.
type Service struct {
	logger *slog.Logger
	repo   SnapshotPort
	cache  *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds Service. ttl bounds cache staleness when the refresh
// job stalls.
func NewService(logger *slog.Logger, repo SnapshotPort, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{logger: logger, repo: repo, cache: cache, ttl: ttl, now: time.Now}
}

// Refresh recomputes the alert list from a fresh snapshot and caches it.
func (s *Service) Refresh(ctx context.Context) ([]AlertItem, error) {
	items, pending, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	alerts := Prioritize(items, pending, s.now().UTC())

	if s.cache != nil {
		payload, err := json.Marshal(alerts)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
			// A cold cache just means the next read recomputes.
			s.logger.Warn("cache alert list", slog.Any("error", err))
		}
	}
	return alerts, nil
}

// List returns the cached alert list, recomputing on a cache miss.
func (s *Service) List(ctx context.Context) ([]AlertItem, error) {
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var alerts []AlertItem
			if err := json.Unmarshal(payload, &alerts); err == nil {
				return alerts, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("read alert cache", slog.Any("error", err))
		}
	}
	return s.Refresh(ctx)
}

// RequisitionLine is one suggested purchase on a generated requisition list.
type RequisitionLine struct {
	ItemID       int64  `json:"item_id"`
	Name         string `json:"name"`
	RequestedQty int    `json:"requested_quantity"`
	Floored      bool   `json:"floored,omitempty"`
}

// BuildRequisition turns the current alert list into a requisition with
// per-item overrides. Decimal overrides are floored and flagged; each
// non-positive override is an error.
func (s *Service) BuildRequisition(ctx context.Context, overrides map[int64]float64) ([]RequisitionLine, error) {
	alerts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]RequisitionLine, 0, len(alerts))
	for _, alert := range alerts {
		line := RequisitionLine{
			ItemID:       alert.ItemID,
			Name:         alert.Name,
			RequestedQty: alert.SuggestedQty,
		}
		if override, ok := overrides[alert.ItemID]; ok {
			qty, floored, err := NormalizeRequestedQty(override)
			if err != nil {
				return nil, err
			}
			line.RequestedQty = qty
			line.Floored = floored
		}
		if line.RequestedQty < 1 {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
