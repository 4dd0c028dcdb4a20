package users

import (
	"errors"
	"time"

	"github.com/meridian-ims/meridian/internal/pricing"
)

// Role gates administrative operations.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// User is an account that transacts on behalf of the business. CostTier is
// the tier the user purchases at; nil means unrestricted (admin buyer).
type User struct {
	ID           int64         `json:"user_id"`
	Username     string        `json:"username"`
	FullName     string        `json:"full_name"`
	Role         Role          `json:"role"`
	CostTier     *pricing.Tier `json:"cost_tier,omitempty"`
	PasswordHash string        `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

var (
	// ErrNotFound indicates a missing user.
	ErrNotFound = errors.New("users: not found")
	// ErrSelfTierEdit is the domain rule, not a UI nicety: a user must not
	// grant themselves a better purchase tier.
	ErrSelfTierEdit = errors.New("users: cannot edit own cost tier")
	// ErrDuplicateUsername indicates a taken username.
	ErrDuplicateUsername = errors.New("users: username already taken")
)
