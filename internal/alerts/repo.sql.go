package alerts

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads alert snapshots from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Snapshot loads every item plus pending outgoing lines ordered by
// transaction creation, so later transactions overwrite earlier ones in the
// prioritizer's index.
func (r *Repository) Snapshot(ctx context.Context) ([]ItemSnapshot, []PendingLineSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, quantity, threshold_value FROM items ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var items []ItemSnapshot
	for rows.Next() {
		var item ItemSnapshot
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Quantity, &item.Threshold); err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	lineRows, err := r.pool.Query(ctx,
		`SELECT t.id, l.item_id, t.due_date, l.quantity_change
		 FROM transactions t
		 JOIN transaction_lines l ON l.transaction_id = t.id
		 WHERE t.transaction_status = 'Pending' AND t.transaction_type = 'OUTGOING'
		 ORDER BY t.created_at, t.id, l.id`)
	if err != nil {
		return nil, nil, err
	}
	defer lineRows.Close()

	var pending []PendingLineSnapshot
	for lineRows.Next() {
		var line PendingLineSnapshot
		var due *time.Time
		if err := lineRows.Scan(&line.TransactionID, &line.ItemID, &due, &line.QuantityChange); err != nil {
			return nil, nil, err
		}
		line.DueDate = due
		pending = append(pending, line)
	}
	return items, pending, lineRows.Err()
}
