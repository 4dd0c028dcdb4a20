package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, name, model_number, item_type, category, brand_id, quantity, threshold_value, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.ModelNumber, &item.Type, &item.Category,
		&item.BrandID, &item.Quantity, &item.Threshold, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

// ListItems returns items matching the filter plus the unfiltered-page total.
func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, int, error) {
	where := ""
	args := []any{}
	if filter.BrandID != 0 {
		where = " WHERE brand_id = $1"
		args = append(args, filter.BrandID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + itemColumns + ` FROM items` + where + ` ORDER BY name, id`
	if !filter.All {
		perPage := filter.PerPage
		if perPage <= 0 {
			perPage = 20
		}
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", perPage, (page-1)*perPage)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// GetItem returns one item by id.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return item, err
}

// SaveItem inserts or updates an item and returns its id.
func (r *Repository) SaveItem(ctx context.Context, item Item) (int64, error) {
	if item.ID == 0 {
		var id int64
		err := r.pool.QueryRow(ctx,
			`INSERT INTO items (name, model_number, item_type, category, brand_id, quantity, threshold_value, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`,
			item.Name, item.ModelNumber, item.Type, item.Category, item.BrandID, item.Quantity, item.Threshold).Scan(&id)
		return id, err
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE items SET name=$2, model_number=$3, item_type=$4, category=$5, brand_id=$6, threshold_value=$7, updated_at=NOW() WHERE id=$1`,
		item.ID, item.Name, item.ModelNumber, item.Type, item.Category, item.BrandID, item.Threshold)
	return item.ID, err
}

// ListBrands returns all brands ordered by name.
func (r *Repository) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM brands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []Brand
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}
