package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/preskrba/internal/model"
)

const productColumns = `id, name, sku, description, price, status, created_at, updated_at, deleted_at`

// CreateProduct creates a new catalog product.
func CreateProduct(ctx context.Context, db *sql.DB, name, sku, description string, price decimal.Decimal) (*model.Product, error) {
	if price.IsNegative() {
		return nil, validationf("price must not be negative")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO products (name, sku, description, price) VALUES (?, ?, ?, ?)`,
		name, sku, description, price.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}

	return GetProduct(ctx, db, id)
}

// GetProduct returns a product by ID.
func GetProduct(ctx context.Context, q Querier, id int64) (*model.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// ListProducts returns all non-deleted products, optionally filtered by status.
func ListProducts(ctx context.Context, db *sql.DB, status string) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE deleted_at IS NULL`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct updates a product's metadata and price. Shipments already
// created keep their price snapshot.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, name, description, status string, price decimal.Decimal) error {
	if price.IsNegative() {
		return validationf("price must not be negative")
	}

	_, err := db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, status = ?, price = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, description, status, price.String(), id,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	return nil
}

// DeleteProduct soft-deletes a product.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE products SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var description sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &description, &p.Price, &p.Status,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	return p, nil
}
