package users

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-ims/meridian/internal/pricing"
	"github.com/meridian-ims/meridian/internal/shared"
)

// RepositoryPort abstracts user persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, u User) (int64, error)
	UpdateCostTier(ctx context.Context, id int64, tier *pricing.Tier) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages accounts and tier assignments.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a user with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, actorID int64, u User, password string) (User, error) {
	if len(password) < 8 {
		return User{}, errors.New("users: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = string(hash)
	if u.Role == "" {
		u.Role = RoleStaff
	}
	if u.CostTier != nil {
		if _, err := pricing.TierRank(*u.CostTier); err != nil {
			return User{}, err
		}
	}

	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id
	s.record(ctx, actorID, "users:create", u.ID, map[string]any{"username": u.Username, "role": u.Role})
	return u, nil
}

// AssignCostTier sets or clears a user's cost tier. The actor may never
// touch their own tier, even as admin.
func (s *Service) AssignCostTier(ctx context.Context, actorID, userID int64, tier *pricing.Tier) error {
	if actorID == userID {
		return ErrSelfTierEdit
	}
	if tier != nil {
		if _, err := pricing.TierRank(*tier); err != nil {
			return err
		}
	}
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.UpdateCostTier(ctx, userID, tier); err != nil {
		return err
	}

	meta := map[string]any{"cost_tier": nil}
	if tier != nil {
		meta["cost_tier"] = string(*tier)
	}
	s.record(ctx, actorID, "users:assign-tier", userID, meta)
	return nil
}

// GetCostTier resolves the user's purchase tier. Satisfies the tier lookup
// the pricing and transaction services depend on.
func (s *Service) GetCostTier(ctx context.Context, userID int64) (*pricing.Tier, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.CostTier, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprintf("%d", userID),
		Meta:     meta,
	})
}
