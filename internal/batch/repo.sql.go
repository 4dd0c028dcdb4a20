package batch

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ims/meridian/internal/pricing"
)

// Repository persists inventory batches in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const batchColumns = `id, item_id, batch_number, cost_price, cost_tier,
	initial_qty, available_qty, reserved_qty, sold_qty,
	purchased_at, manufactured_at, expires_at`

func scanBatch(row pgx.Row) (Batch, error) {
	var b Batch
	var costTier string
	var manufactured, expires *time.Time
	err := row.Scan(&b.ID, &b.ItemID, &b.Number, &b.CostPrice, &costTier,
		&b.InitialQty, &b.AvailableQty, &b.ReservedQty, &b.SoldQty,
		&b.PurchasedAt, &manufactured, &expires)
	if err != nil {
		return Batch{}, err
	}
	b.CostTier = pricing.Tier(costTier)
	b.ManufacturedAt = manufactured
	b.ExpiresAt = expires
	return b, nil
}

// ListByItem returns the item's batches ordered oldest purchase first.
func (r *Repository) ListByItem(ctx context.Context, itemID int64) ([]Batch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM inventory_batches WHERE item_id = $1 ORDER BY purchased_at, id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Get returns one batch by id.
func (r *Repository) Get(ctx context.Context, id int64) (Batch, error) {
	b, err := scanBatch(r.pool.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM inventory_batches WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, ErrNotFound
	}
	return b, err
}

// ListNumbersByItem returns all batch numbers recorded for the item.
func (r *Repository) ListNumbersByItem(ctx context.Context, itemID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT batch_number FROM inventory_batches WHERE item_id = $1`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		numbers = append(numbers, number)
	}
	return numbers, rows.Err()
}

// NumberExists reports whether the item already has a batch with the number.
func (r *Repository) NumberExists(ctx context.Context, itemID int64, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inventory_batches WHERE item_id = $1 AND batch_number = $2)`,
		itemID, number).Scan(&exists)
	return exists, err
}
