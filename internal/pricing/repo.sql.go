package pricing

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists tier pricing in PostgreSQL. One row per item and tier.
type Repository struct {
	pool *pgxpool.Pool
}

const insertTierPriceSQL = `INSERT INTO item_tier_pricing (item_id, tier, price) VALUES ($1, $2, $3)`

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPriceSet loads all tier prices for the item.
func (r *Repository) GetPriceSet(ctx context.Context, itemID int64) (PriceSet, error) {
	rows, err := r.pool.Query(ctx, `SELECT tier, price FROM item_tier_pricing WHERE item_id = $1`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := PriceSet{}
	for rows.Next() {
		var tier string
		var price decimal.Decimal
		if err := rows.Scan(&tier, &price); err != nil {
			return nil, err
		}
		prices[Tier(tier)] = price
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, ErrPriceSetNotFound
	}
	return prices, nil
}

// SavePriceSet replaces the item's tier prices atomically.
func (r *Repository) SavePriceSet(ctx context.Context, itemID int64, prices PriceSet) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM item_tier_pricing WHERE item_id = $1`, itemID); err != nil {
		return err
	}
	for _, tier := range Tiers() {
		price, ok := prices[tier]
		if !ok || price.IsZero() {
			continue
		}
		if _, err := tx.Exec(ctx, insertTierPriceSQL,
			itemID, string(tier), price); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
