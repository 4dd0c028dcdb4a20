package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-ims/meridian/internal/shared"
)

// RepositoryPort abstracts pricing persistence for the service.
type RepositoryPort interface {
	GetPriceSet(ctx context.Context, itemID int64) (PriceSet, error)
	SavePriceSet(ctx context.Context, itemID int64, prices PriceSet) error
}

// UserTierPort resolves a user's cost tier for sell-side checks.
type UserTierPort interface {
	GetCostTier(ctx context.Context, userID int64) (*Tier, error)
}

// ErrPriceSetNotFound indicates no pricing row exists for the item yet.
var ErrPriceSetNotFound = errors.New("pricing: price set not found")

// ValidationFailedError wraps the full violation list from a rejected save.
type ValidationFailedError struct {
	Violations []Violation
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("pricing: %d violation(s)", len(e.Violations))
}

// Service coordinates tier pricing reads and writes.
type Service struct {
	repo  RepositoryPort
	users UserTierPort
	audit AuditPort
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewService builds Service.
func NewService(repo RepositoryPort, users UserTierPort, audit AuditPort) *Service {
	return &Service{repo: repo, users: users, audit: audit}
}

// GetItemPricing returns the stored price set, defaulting to an empty set when
// the item has no pricing row yet.
func (s *Service) GetItemPricing(ctx context.Context, itemID int64) (PriceSet, error) {
	if itemID == 0 {
		return nil, errors.New("pricing: item required")
	}
	prices, err := s.repo.GetPriceSet(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrPriceSetNotFound) {
			return PriceSet{}, nil
		}
		return nil, err
	}
	return prices, nil
}

// SaveItemPricing validates and persists the price set. Every violation is
// reported in one round trip.
func (s *Service) SaveItemPricing(ctx context.Context, actorID, itemID int64, prices PriceSet) error {
	if itemID == 0 {
		return errors.New("pricing: item required")
	}
	for tier := range prices {
		if _, err := TierRank(tier); err != nil {
			return err
		}
	}
	if violations := ValidateHierarchy(prices); len(violations) > 0 {
		return &ValidationFailedError{Violations: violations}
	}
	if err := s.repo.SavePriceSet(ctx, itemID, prices); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "pricing:save",
			Entity:   "item_tier_pricing",
			EntityID: fmt.Sprintf("%d", itemID),
			Meta:     map[string]any{"tiers_set": len(prices)},
		})
	}
	return nil
}

// SellingTiersFor returns the tiers the user may sell at, honoring the
// cost-tier restriction.
func (s *Service) SellingTiersFor(ctx context.Context, userID int64) ([]Tier, error) {
	costTier, err := s.users.GetCostTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	return AllowedSellingTiers(costTier)
}
