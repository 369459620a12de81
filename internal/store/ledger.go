package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/erazemk/preskrba/internal/model"
)

// maxStock is the largest quantity a stock line can hold. Credits are
// bounded by it so the column never leaves the integer range.
const maxStock = math.MaxInt

const stockColumns = `s.id, s.product_id, s.location_id, s.quantity, s.updated_at, s.updated_by,
		        p.name AS product_name, l.name AS location_name, l.type AS location_type`

// AddStock books initial stock of a product into the central warehouse.
func AddStock(ctx context.Context, db *sql.DB, actor model.Actor, productID int64, quantity int) (*model.StockEntry, error) {
	if !model.RoleAtLeast(actor.Role, model.RoleManager) {
		return nil, unauthorizedf("stocking requires the %s role", model.RoleManager)
	}
	if quantity <= 0 {
		return nil, validationf("quantity must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("beginning transaction", err)
	}
	defer tx.Rollback()

	warehouse, err := GetWarehouse(ctx, tx)
	if err != nil {
		return nil, persistence("loading warehouse", err)
	}
	if warehouse == nil {
		return nil, notFoundf("no central warehouse configured")
	}

	product, err := GetProduct(ctx, tx, productID)
	if err != nil {
		return nil, persistence("loading product", err)
	}
	if product == nil || product.DeletedAt != nil {
		return nil, notFoundf("product %d", productID)
	}

	stockID, err := creditStock(ctx, tx, productID, warehouse.ID, quantity, actorRef(actor), model.MovementStocking, "")
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("committing stock addition", err)
	}
	return GetStockEntry(ctx, db, stockID)
}

// GetStockEntry returns a stock line by ID.
func GetStockEntry(ctx context.Context, q Querier, id int64) (*model.StockEntry, error) {
	var e model.StockEntry
	err := q.QueryRowContext(ctx,
		`SELECT `+stockColumns+`
		 FROM stock s
		 JOIN products p ON p.id = s.product_id
		 JOIN locations l ON l.id = s.location_id
		 WHERE s.id = ?`, id,
	).Scan(&e.ID, &e.ProductID, &e.LocationID, &e.Quantity, &e.UpdatedAt, &e.UpdatedBy,
		&e.ProductName, &e.LocationName, &e.LocationType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stock entry: %w", err)
	}
	return &e, nil
}

// ListStock returns stock lines of one location, or of all locations when locationID is 0.
func ListStock(ctx context.Context, db *sql.DB, locationID int64) ([]model.StockEntry, error) {
	query := `SELECT ` + stockColumns + `
	          FROM stock s
	          JOIN products p ON p.id = s.product_id
	          JOIN locations l ON l.id = s.location_id
	          WHERE 1=1`
	var args []any
	if locationID > 0 {
		query += ` AND s.location_id = ?`
		args = append(args, locationID)
	}
	query += ` ORDER BY l.type DESC, l.name, p.name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}
	defer rows.Close()

	var entries []model.StockEntry
	for rows.Next() {
		var e model.StockEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.LocationID, &e.Quantity, &e.UpdatedAt, &e.UpdatedBy,
			&e.ProductName, &e.LocationName, &e.LocationType); err != nil {
			return nil, fmt.Errorf("scanning stock entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StockQuantity returns the quantity of a product at a location; absent entries count as zero.
func StockQuantity(ctx context.Context, q Querier, productID, locationID int64) (int, error) {
	var qty int
	err := q.QueryRowContext(ctx,
		`SELECT quantity FROM stock WHERE product_id = ? AND location_id = ?`,
		productID, locationID,
	).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting stock quantity: %w", err)
	}
	return qty, nil
}

// ListMovements returns the journal of a stock line, newest first.
func ListMovements(ctx context.Context, db *sql.DB, stockID int64) ([]model.Movement, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, stock_id, delta, reason, reference, created_at, created_by
		 FROM stock_movements WHERE stock_id = ?
		 ORDER BY id DESC`, stockID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var movements []model.Movement
	for rows.Next() {
		var m model.Movement
		var reference sql.NullString
		if err := rows.Scan(&m.ID, &m.StockID, &m.Delta, &m.Reason, &reference, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		m.Reference = reference.String
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// debitStock removes quantity from a stock line. The decrement is conditional on
// enough stock being present, so concurrent debits can never oversell the line.
func debitStock(ctx context.Context, tx *sql.Tx, stockID int64, quantity int, by *int64, reason, reference string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE stock SET quantity = quantity - ?, updated_at = ?, updated_by = ?
		 WHERE id = ? AND quantity >= ?`,
		quantity, time.Now().UTC(), by, stockID, quantity,
	)
	if err != nil {
		return persistence("debiting stock", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return persistence("debiting stock", err)
	}
	if n == 0 {
		var productID int64
		var available int
		err := tx.QueryRowContext(ctx,
			`SELECT product_id, quantity FROM stock WHERE id = ?`, stockID,
		).Scan(&productID, &available)
		if err == sql.ErrNoRows {
			return notFoundf("stock line %d", stockID)
		}
		if err != nil {
			return persistence("checking available stock", err)
		}
		return &InsufficientStockError{StockID: stockID, ProductID: productID, Available: available, Requested: quantity}
	}

	return recordMovement(ctx, tx, stockID, -quantity, by, reason, reference)
}

// creditStockLine returns quantity to an existing stock line.
func creditStockLine(ctx context.Context, tx *sql.Tx, stockID int64, quantity int, by *int64, reason, reference string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE stock SET quantity = quantity + ?, updated_at = ?, updated_by = ?
		 WHERE id = ? AND quantity <= ?`,
		quantity, time.Now().UTC(), by, stockID, maxStock-quantity,
	)
	if err != nil {
		return persistence("crediting stock", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return persistence("crediting stock", err)
	}
	if n == 0 {
		return validationf("crediting %d to stock line %d would exceed the maximum quantity", quantity, stockID)
	}
	return recordMovement(ctx, tx, stockID, quantity, by, reason, reference)
}

// creditStock adds quantity of a product at a location, creating the entry at
// zero if absent. Returns the stock line ID. A credit that would push the line
// past maxStock is a validation error and leaves the line untouched.
func creditStock(ctx context.Context, tx *sql.Tx, productID, locationID int64, quantity int, by *int64, reason, reference string) (int64, error) {
	var stockID int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO stock (product_id, location_id, quantity, updated_at, updated_by) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (product_id, location_id) DO UPDATE SET
		     quantity = quantity + excluded.quantity,
		     updated_at = excluded.updated_at,
		     updated_by = excluded.updated_by
		 WHERE stock.quantity <= ?
		 RETURNING id`,
		productID, locationID, quantity, time.Now().UTC(), by, maxStock-quantity,
	).Scan(&stockID)
	if err == sql.ErrNoRows {
		return 0, validationf("crediting %d of product %d at location %d would exceed the maximum quantity", quantity, productID, locationID)
	}
	if err != nil {
		return 0, persistence("crediting stock", err)
	}
	return stockID, recordMovement(ctx, tx, stockID, quantity, by, reason, reference)
}

func recordMovement(ctx context.Context, tx *sql.Tx, stockID int64, delta int, by *int64, reason, reference string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO stock_movements (stock_id, delta, reason, reference, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		stockID, delta, reason, reference, time.Now().UTC(), by,
	)
	if err != nil {
		return persistence("recording movement", err)
	}
	return nil
}

// actorRef returns the actor's user ID for attribution columns, or nil for system actions.
func actorRef(a model.Actor) *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}
