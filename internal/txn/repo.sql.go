package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ims/meridian/internal/batch"
	"github.com/meridian-ims/meridian/internal/pricing"
)

// Repository persists transactions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction. Stock postings lock
// batch rows FOR UPDATE, so concurrent submissions against the same batch
// serialize instead of overselling.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const txColumns = `id, reference_number, transaction_type, transaction_status,
	due_date, brand_id, customer_name, notes, created_by, created_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var due *time.Time
	var brandID *int64
	var customer, notes *string
	err := row.Scan(&t.ID, &t.ReferenceNumber, &t.Type, &t.Status,
		&due, &brandID, &customer, &notes, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	t.DueDate = due
	if brandID != nil {
		t.BrandID = *brandID
	}
	if customer != nil {
		t.CustomerName = *customer
	}
	if notes != nil {
		t.Notes = *notes
	}
	return t, nil
}

// List returns transaction headers, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	where := ""
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND transaction_status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND transaction_type = $%d", len(args))
	}
	args = append(args, filter.Limit)
	query := `SELECT ` + txColumns + ` FROM transactions WHERE 1=1` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// Get returns one transaction with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	t.Lines, err = queryLines(ctx, r.pool, id)
	return t, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, txID int64) ([]Line, error) {
	rows, err := q.Query(ctx,
		`SELECT id, transaction_id, item_id, quantity_change, batch_id, batch_number, cost_price, expires_at
		 FROM transaction_lines WHERE transaction_id = $1 ORDER BY id`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		var batchID *int64
		var number *string
		var expires *time.Time
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.ItemID, &l.QuantityChange,
			&batchID, &number, &l.CostPrice, &expires); err != nil {
			return nil, err
		}
		if batchID != nil {
			l.BatchID = *batchID
		}
		if number != nil {
			l.BatchNumber = *number
		}
		l.ExpiresAt = expires
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

// NextReference advances the per-year sequence and formats <year>-NNNN.
func (r *txRepo) NextReference(ctx context.Context, year int) (string, error) {
	var seq int
	err := r.tx.QueryRow(ctx,
		`INSERT INTO transaction_refs (year, last_seq) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET last_seq = transaction_refs.last_seq + 1
		 RETURNING last_seq`, year).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%04d", year, seq), nil
}

func (r *txRepo) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var brandID *int64
	if t.BrandID != 0 {
		brandID = &t.BrandID
	}
	var customer, notes *string
	if t.CustomerName != "" {
		customer = &t.CustomerName
	}
	if t.Notes != "" {
		notes = &t.Notes
	}
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO transactions (reference_number, transaction_type, transaction_status,
			due_date, brand_id, customer_name, notes, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		t.ReferenceNumber, t.Type, t.Status, t.DueDate, brandID, customer, notes,
		t.CreatedBy, t.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepo) InsertLines(ctx context.Context, txID int64, lines []Line) error {
	for _, l := range lines {
		var batchID *int64
		if l.BatchID != 0 {
			batchID = &l.BatchID
		}
		var number *string
		if l.BatchNumber != "" {
			number = &l.BatchNumber
		}
		_, err := r.tx.Exec(ctx,
			`INSERT INTO transaction_lines (transaction_id, item_id, quantity_change, batch_id, batch_number, cost_price, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			txID, l.ItemID, l.QuantityChange, batchID, number, l.CostPrice, l.ExpiresAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanTransaction(r.tx.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	t.Lines, err = queryLines(ctx, r.tx, id)
	return t, err
}

func (r *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE transactions SET transaction_status = $2 WHERE id = $1`, id, status)
	return err
}

func (r *txRepo) GetBatchForUpdate(ctx context.Context, batchID int64) (batch.Batch, error) {
	var b batch.Batch
	var costTier string
	var manufactured, expires *time.Time
	err := r.tx.QueryRow(ctx,
		`SELECT id, item_id, batch_number, cost_price, cost_tier,
			initial_qty, available_qty, reserved_qty, sold_qty,
			purchased_at, manufactured_at, expires_at
		 FROM inventory_batches WHERE id = $1 FOR UPDATE`, batchID).
		Scan(&b.ID, &b.ItemID, &b.Number, &b.CostPrice, &costTier,
			&b.InitialQty, &b.AvailableQty, &b.ReservedQty, &b.SoldQty,
			&b.PurchasedAt, &manufactured, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return batch.Batch{}, batch.ErrNotFound
	}
	if err != nil {
		return batch.Batch{}, err
	}
	b.CostTier = pricing.Tier(costTier)
	b.ManufacturedAt = manufactured
	b.ExpiresAt = expires
	return b, nil
}

func (r *txRepo) UpdateBatchQuantities(ctx context.Context, b batch.Batch) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE inventory_batches SET available_qty=$2, reserved_qty=$3, sold_qty=$4 WHERE id=$1`,
		b.ID, b.AvailableQty, b.ReservedQty, b.SoldQty)
	return err
}

func (r *txRepo) InsertBatch(ctx context.Context, b batch.Batch) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO inventory_batches (item_id, batch_number, cost_price, cost_tier,
			initial_qty, available_qty, reserved_qty, sold_qty,
			purchased_at, manufactured_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		b.ItemID, b.Number, b.CostPrice, string(b.CostTier),
		b.InitialQty, b.AvailableQty, b.ReservedQty, b.SoldQty,
		b.PurchasedAt, b.ManufacturedAt, b.ExpiresAt).Scan(&id)
	return id, err
}

func (r *txRepo) BatchNumberExists(ctx context.Context, itemID int64, number string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inventory_batches WHERE item_id = $1 AND batch_number = $2)`,
		itemID, number).Scan(&exists)
	return exists, err
}

func (r *txRepo) AdjustItemQuantity(ctx context.Context, itemID int64, delta int) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE items SET quantity = quantity + $2, updated_at = NOW() WHERE id = $1`, itemID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("txn: item %d not found", itemID)
	}
	return nil
}
