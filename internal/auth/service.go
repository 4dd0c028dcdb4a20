package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-ims/meridian/internal/shared"
	"github.com/meridian-ims/meridian/internal/users"
)

// UserPort resolves accounts for authentication.
type UserPort interface {
	GetByUsername(ctx context.Context, username string) (users.User, error)
}

// Service authenticates credentials with redis-backed lockout counters.
// The counter lives server-side with a TTL, so it survives page reloads and
// cannot be reset by the client.
type Service struct {
	users       UserPort
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewService builds Service.
func NewService(userPort UserPort, client *redis.Client, maxAttempts int, window time.Duration) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Service{users: userPort, redis: client, maxAttempts: maxAttempts, window: window}
}

func lockoutKey(username string) string {
	return "lockout:" + username
}

// Authenticate verifies the credentials. Failures increment the per-username
// counter; reaching the limit locks the account until the window expires.
func (s *Service) Authenticate(ctx context.Context, username, password string) (users.User, error) {
	locked, err := s.isLocked(ctx, username)
	if err != nil {
		return users.User{}, err
	}
	if locked {
		return users.User{}, shared.ErrAccountLocked
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, s.recordFailure(ctx, username)
		}
		return users.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return users.User{}, s.recordFailure(ctx, username)
	}

	if s.redis != nil {
		_ = s.redis.Del(ctx, lockoutKey(username)).Err()
	}
	return u, nil
}

// RemainingAttempts reports how many failures are left before lockout.
func (s *Service) RemainingAttempts(ctx context.Context, username string) (int, error) {
	if s.redis == nil {
		return s.maxAttempts, nil
	}
	attempts, err := s.redis.Get(ctx, lockoutKey(username)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.maxAttempts, nil
		}
		return 0, err
	}
	remaining := s.maxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *Service) isLocked(ctx context.Context, username string) (bool, error) {
	remaining, err := s.RemainingAttempts(ctx, username)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

func (s *Service) recordFailure(ctx context.Context, username string) error {
	if s.redis == nil {
		return shared.ErrInvalidCredentials
	}
	key := lockoutKey(username)
	attempts, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("auth: record failure: %w", err)
	}
	if attempts == 1 {
		_ = s.redis.Expire(ctx, key, s.window).Err()
	}
	if int(attempts) >= s.maxAttempts {
		return shared.ErrAccountLocked
	}
	return shared.ErrInvalidCredentials
}
