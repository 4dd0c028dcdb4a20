package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-ims/meridian/internal/pricing"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[int64]User{}}
}

func (r *memoryUserRepo) List(context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepo) Get(_ context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryUserRepo) Create(_ context.Context, u User) (int64, error) {
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return 0, ErrDuplicateUsername
		}
	}
	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *memoryUserRepo) UpdateCostTier(_ context.Context, id int64, tier *pricing.Tier) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.CostTier = tier
	r.users[id] = u
	return nil
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), 1, User{Username: "dhani", FullName: "Dhani S"}, "correct horse")
	require.NoError(t, err)
	require.Equal(t, RoleStaff, created.Role)
	require.NotEqual(t, "correct horse", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("correct horse")))

	_, err = svc.Create(context.Background(), 1, User{Username: "short", FullName: "S"}, "tiny")
	require.Error(t, err)

	_, err = svc.Create(context.Background(), 1, User{Username: "dhani", FullName: "Dupe"}, "correct horse")
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestAssignCostTier(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users[1] = User{ID: 1, Username: "admin", Role: RoleAdmin}
	repo.users[2] = User{ID: 2, Username: "dhani", Role: RoleStaff}
	svc := NewService(repo, nil)

	tier := pricing.TierPD
	require.NoError(t, svc.AssignCostTier(context.Background(), 1, 2, &tier))
	got, err := svc.GetCostTier(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, pricing.TierPD, *got)

	// Clearing the tier makes the user unrestricted again.
	require.NoError(t, svc.AssignCostTier(context.Background(), 1, 2, nil))
	got, err = svc.GetCostTier(context.Background(), 2)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAssignCostTierRejectsSelfEdit(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users[1] = User{ID: 1, Username: "admin", Role: RoleAdmin}
	svc := NewService(repo, nil)

	tier := pricing.TierRD
	require.ErrorIs(t, svc.AssignCostTier(context.Background(), 1, 1, &tier), ErrSelfTierEdit)
}

func TestAssignCostTierValidatesTier(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users[1] = User{ID: 1}
	repo.users[2] = User{ID: 2}
	svc := NewService(repo, nil)

	bogus := pricing.Tier("WHOLESALE")
	require.ErrorIs(t, svc.AssignCostTier(context.Background(), 1, 2, &bogus), pricing.ErrInvalidTier)

	tier := pricing.TierDD
	require.ErrorIs(t, svc.AssignCostTier(context.Background(), 1, 99, &tier), ErrNotFound)
}
