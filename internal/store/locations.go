package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/preskrba/internal/model"
)

// CreateLocation creates a new warehouse or branch location.
func CreateLocation(ctx context.Context, db *sql.DB, name, code, locationType string) (*model.Location, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	result, err := db.ExecContext(ctx,
		`INSERT INTO locations (name, code, type) VALUES (?, ?, ?)`,
		name, code, locationType,
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting location id: %w", err)
	}

	return GetLocation(ctx, db, id)
}

// GetLocation returns a location by ID.
func GetLocation(ctx context.Context, q Querier, id int64) (*model.Location, error) {
	l := &model.Location{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, code, type, created_at, deleted_at
		 FROM locations WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Code, &l.Type, &l.CreatedAt, &l.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return l, nil
}

// GetWarehouse returns the active central warehouse.
func GetWarehouse(ctx context.Context, q Querier) (*model.Location, error) {
	l := &model.Location{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, code, type, created_at, deleted_at
		 FROM locations WHERE type = 'warehouse' AND deleted_at IS NULL`,
	).Scan(&l.ID, &l.Name, &l.Code, &l.Type, &l.CreatedAt, &l.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting warehouse: %w", err)
	}
	return l, nil
}

// ListLocations returns all non-deleted locations, optionally filtered by type.
func ListLocations(ctx context.Context, db *sql.DB, locationType string) ([]model.Location, error) {
	query := `SELECT id, name, code, type, created_at, deleted_at
	          FROM locations WHERE deleted_at IS NULL`
	var args []any
	if locationType != "" {
		query += ` AND type = ?`
		args = append(args, locationType)
	}
	query += ` ORDER BY type DESC, name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Code, &l.Type, &l.CreatedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateLocation updates a location's name.
func UpdateLocation(ctx context.Context, db *sql.DB, id int64, name string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE locations SET name = ? WHERE id = ? AND deleted_at IS NULL`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	return nil
}

// DeleteLocation soft-deletes a branch. Fails for the warehouse, for branches
// still holding stock and for branches with transfers that are not closed.
func DeleteLocation(ctx context.Context, db *sql.DB, id int64) error {
	loc, err := GetLocation(ctx, db, id)
	if err != nil {
		return err
	}
	if loc == nil || loc.DeletedAt != nil {
		return notFoundf("location %d", id)
	}
	if loc.Type == model.LocationTypeWarehouse {
		return validationf("the central warehouse cannot be deleted")
	}

	var held, open int
	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock WHERE location_id = ?`, id,
	).Scan(&held)
	if err != nil {
		return fmt.Errorf("checking location stock: %w", err)
	}
	if held > 0 {
		return validationf("location still holds %d units", held)
	}

	err = db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM shipments
		    WHERE location_id = ? AND status <> 'cancelled' AND received_at IS NULL) +
		   (SELECT COUNT(*) FROM requests
		    WHERE location_id = ? AND status IN ('pending', 'approved'))`, id, id,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("checking open transfers: %w", err)
	}
	if open > 0 {
		return validationf("location has %d open transfers", open)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE locations SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}
