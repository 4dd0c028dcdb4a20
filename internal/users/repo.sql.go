package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ims/meridian/internal/pricing"
)

// Repository persists users in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, full_name, role, cost_tier, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var tier *string
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &tier, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	if tier != nil {
		t := pricing.Tier(*tier)
		u.CostTier = &t
	}
	return u, nil
}

// List returns all users ordered by username.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Get returns one user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// GetByUsername returns one user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// Create inserts a user.
func (r *Repository) Create(ctx context.Context, u User) (int64, error) {
	var tier *string
	if u.CostTier != nil {
		t := string(*u.CostTier)
		tier = &t
	}
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, full_name, role, cost_tier, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`,
		u.Username, u.FullName, u.Role, tier, u.PasswordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}
	return id, nil
}

// UpdateCostTier sets or clears the user's cost tier.
func (r *Repository) UpdateCostTier(ctx context.Context, id int64, tier *pricing.Tier) error {
	var value *string
	if tier != nil {
		t := string(*tier)
		value = &t
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET cost_tier = $2, updated_at = NOW() WHERE id = $1`, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
