package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/erazemk/preskrba/internal/model"
)

// ShipmentLine selects a central stock line and the quantity to send from it.
type ShipmentLine struct {
	StockID  int64 `json:"stock_id"`
	Quantity int   `json:"quantity"`
}

// ShipmentInput describes a shipment to create.
type ShipmentInput struct {
	LocationID int64          `json:"location_id"`
	Lines      []ShipmentLine `json:"lines"`
	Notes      string         `json:"notes"`
}

// ShipmentFilter narrows ListShipments. Zero values match everything.
type ShipmentFilter struct {
	LocationID int64
	Status     string
}

const shipmentColumns = `sh.id, sh.tracking_id, sh.location_id, sh.status, sh.total, sh.notes,
		        sh.created_by, sh.created_at, sh.shipped_at, sh.delivered_at, sh.cancelled_at,
		        sh.received_at, sh.received_by, l.name AS location_name`

// CreateShipment creates a shipment to a branch and reserves its lines from
// central stock in the same transaction. Either every line is reserved or none is.
func CreateShipment(ctx context.Context, db *sql.DB, actor model.Actor, in ShipmentInput) (*model.Shipment, error) {
	if !model.RoleAtLeast(actor.Role, model.RoleManager) {
		return nil, unauthorizedf("creating shipments requires the %s role", model.RoleManager)
	}
	if in.LocationID <= 0 {
		return nil, validationf("location_id is required")
	}
	lines, err := mergeShipmentLines(in.Lines)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("beginning transaction", err)
	}
	defer tx.Rollback()

	dest, err := GetLocation(ctx, tx, in.LocationID)
	if err != nil {
		return nil, persistence("loading destination", err)
	}
	if dest == nil || dest.DeletedAt != nil {
		return nil, notFoundf("location %d", in.LocationID)
	}
	if dest.Type != model.LocationTypeBranch {
		return nil, validationf("shipments can only be sent to branches")
	}

	warehouse, err := GetWarehouse(ctx, tx)
	if err != nil {
		return nil, persistence("loading warehouse", err)
	}
	if warehouse == nil {
		return nil, notFoundf("no central warehouse configured")
	}

	items := make([]model.ShipmentItem, 0, len(lines))
	for i, line := range lines {
		entry, err := GetStockEntry(ctx, tx, line.StockID)
		if err != nil {
			return nil, persistence("loading stock line", err)
		}
		if entry == nil {
			return nil, notFoundf("stock line %d", line.StockID)
		}
		if entry.LocationID != warehouse.ID {
			return nil, validationf("stock line %d is not held by the central warehouse", line.StockID)
		}

		product, err := GetProduct(ctx, tx, entry.ProductID)
		if err != nil {
			return nil, persistence("loading product", err)
		}
		if product == nil {
			return nil, notFoundf("product %d", entry.ProductID)
		}

		items = append(items, model.ShipmentItem{
			Line:        i + 1,
			StockID:     entry.ID,
			ProductID:   entry.ProductID,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			ProductName: product.Name,
		})
	}

	trackingID := newTransferID(shipmentPrefix, dest.Code)
	total := model.ShipmentTotal(items)
	createdBy := actorRef(actor)

	result, err := tx.ExecContext(ctx,
		`INSERT INTO shipments (tracking_id, location_id, status, total, notes, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trackingID, dest.ID, model.ShipmentPending, total.String(), in.Notes, createdBy, time.Now().UTC(),
	)
	if err != nil {
		return nil, persistence("recording shipment", err)
	}
	shipmentID, err := result.LastInsertId()
	if err != nil {
		return nil, persistence("getting shipment id", err)
	}

	for _, it := range items {
		if err := debitStock(ctx, tx, it.StockID, it.Quantity, createdBy, model.MovementShipment, trackingID); err != nil {
			return nil, err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shipment_items (shipment_id, line, stock_id, product_id, quantity, unit_price)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			shipmentID, it.Line, it.StockID, it.ProductID, it.Quantity, it.UnitPrice.String(),
		)
		if err != nil {
			return nil, persistence("recording shipment line", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("committing shipment", err)
	}
	return GetShipment(ctx, db, trackingID)
}

// TransitionShipment moves a shipment to a new status. Cancelling returns every
// line to its central stock line in the same transaction.
func TransitionShipment(ctx context.Context, db *sql.DB, actor model.Actor, trackingID, to string) (*model.Shipment, error) {
	if !model.RoleAtLeast(actor.Role, model.RoleManager) {
		return nil, unauthorizedf("updating shipments requires the %s role", model.RoleManager)
	}
	if !model.ValidShipmentStatus(to) {
		return nil, validationf("unknown shipment status %q", to)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("beginning transaction", err)
	}
	defer tx.Rollback()

	sh, err := GetShipment(ctx, tx, trackingID)
	if err != nil {
		return nil, persistence("loading shipment", err)
	}
	if sh == nil {
		return nil, notFoundf("shipment %s", trackingID)
	}
	transitionErr := &TransitionError{Kind: model.KindShipment, ID: trackingID, From: sh.Status, To: to}
	if !model.CanTransitionShipment(sh.Status, to) {
		return nil, transitionErr
	}

	now := time.Now().UTC()
	query := `UPDATE shipments SET status = ?`
	args := []any{to}
	switch to {
	case model.ShipmentInTransit:
		query += `, shipped_at = ?`
		args = append(args, now)
	case model.ShipmentDelivered:
		query += `, shipped_at = COALESCE(shipped_at, ?), delivered_at = ?`
		args = append(args, now, now)
	case model.ShipmentCancelled:
		query += `, cancelled_at = ?`
		args = append(args, now)
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, sh.ID, sh.Status)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, persistence("updating shipment status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, persistence("updating shipment status", err)
	}
	if n == 0 {
		return nil, transitionErr
	}

	if to == model.ShipmentCancelled {
		by := actorRef(actor)
		for _, it := range sh.Items {
			if err := creditStockLine(ctx, tx, it.StockID, it.Quantity, by, model.MovementCancellation, trackingID); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("committing shipment status", err)
	}
	return GetShipment(ctx, db, trackingID)
}

// GetShipment returns a shipment with its lines by tracking ID.
func GetShipment(ctx context.Context, q Querier, trackingID string) (*model.Shipment, error) {
	sh := &model.Shipment{}
	err := scanShipment(q.QueryRowContext(ctx,
		`SELECT `+shipmentColumns+`
		 FROM shipments sh
		 JOIN locations l ON l.id = sh.location_id
		 WHERE sh.tracking_id = ?`, trackingID,
	), sh)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting shipment: %w", err)
	}

	if sh.Items, err = shipmentItems(ctx, q, sh.ID); err != nil {
		return nil, err
	}
	return sh, nil
}

// ListShipments returns shipments with their lines, newest first.
func ListShipments(ctx context.Context, q Querier, f ShipmentFilter) ([]model.Shipment, error) {
	query := `SELECT ` + shipmentColumns + `
	          FROM shipments sh
	          JOIN locations l ON l.id = sh.location_id
	          WHERE 1=1`
	var args []any
	if f.LocationID > 0 {
		query += ` AND sh.location_id = ?`
		args = append(args, f.LocationID)
	}
	if f.Status != "" {
		query += ` AND sh.status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY sh.created_at DESC, sh.id DESC`

	shipments, err := queryShipments(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}

	// Lines are loaded after the header rows are closed; the pool holds one connection.
	for i := range shipments {
		if shipments[i].Items, err = shipmentItems(ctx, q, shipments[i].ID); err != nil {
			return nil, err
		}
	}
	return shipments, nil
}

func queryShipments(ctx context.Context, q Querier, query string, args ...any) ([]model.Shipment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing shipments: %w", err)
	}
	defer rows.Close()

	var shipments []model.Shipment
	for rows.Next() {
		var sh model.Shipment
		if err := scanShipment(rows, &sh); err != nil {
			return nil, fmt.Errorf("scanning shipment: %w", err)
		}
		shipments = append(shipments, sh)
	}
	return shipments, rows.Err()
}

func scanShipment(row rowScanner, sh *model.Shipment) error {
	var notes sql.NullString
	if err := row.Scan(&sh.ID, &sh.TrackingID, &sh.LocationID, &sh.Status, &sh.Total, &notes,
		&sh.CreatedBy, &sh.CreatedAt, &sh.ShippedAt, &sh.DeliveredAt, &sh.CancelledAt,
		&sh.ReceivedAt, &sh.ReceivedBy, &sh.LocationName); err != nil {
		return err
	}
	sh.Notes = notes.String
	return nil
}

func shipmentItems(ctx context.Context, q Querier, shipmentID int64) ([]model.ShipmentItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT si.line, si.stock_id, si.product_id, si.quantity, si.unit_price, p.name
		 FROM shipment_items si
		 JOIN products p ON p.id = si.product_id
		 WHERE si.shipment_id = ?
		 ORDER BY si.line`, shipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing shipment lines: %w", err)
	}
	defer rows.Close()

	var items []model.ShipmentItem
	for rows.Next() {
		var it model.ShipmentItem
		if err := rows.Scan(&it.Line, &it.StockID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.ProductName); err != nil {
			return nil, fmt.Errorf("scanning shipment line: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// mergeShipmentLines validates lines and folds repeated stock lines together,
// keeping first-seen order.
func mergeShipmentLines(lines []ShipmentLine) ([]ShipmentLine, error) {
	if len(lines) == 0 {
		return nil, validationf("at least one line is required")
	}

	index := make(map[int64]int, len(lines))
	merged := make([]ShipmentLine, 0, len(lines))
	for _, l := range lines {
		if l.StockID <= 0 {
			return nil, validationf("stock_id is required on every line")
		}
		if l.Quantity <= 0 {
			return nil, validationf("quantity must be positive (stock line %d)", l.StockID)
		}
		if i, ok := index[l.StockID]; ok {
			if merged[i].Quantity > math.MaxInt-l.Quantity {
				return nil, validationf("quantity too large (stock line %d)", l.StockID)
			}
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.StockID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}
