package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/preskrba/internal/model"
)

// ConfirmReceipt confirms that a delivered shipment or an approved request has
// arrived at its branch, and credits the branch stock exactly once.
//
// The record is moved into its received condition with a conditional update on
// its live state before any stock is credited, so concurrent or repeated calls
// for the same record credit the branch at most once. Later calls fail with
// ErrAlreadyReceived.
func ConfirmReceipt(ctx context.Context, db *sql.DB, actor model.Actor, kind, id string) (*model.Receivable, error) {
	if !model.RoleAtLeast(actor.Role, model.RoleSupervisor) {
		return nil, unauthorizedf("confirming receipt requires the %s role", model.RoleSupervisor)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("beginning transaction", err)
	}
	defer tx.Rollback()

	switch kind {
	case model.KindShipment:
		err = confirmShipmentReceipt(ctx, tx, actor, id)
	case model.KindRequest:
		err = confirmRequestReceipt(ctx, tx, actor, id)
	default:
		return nil, validationf("unknown transfer kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("committing receipt", err)
	}
	return GetReceivable(ctx, db, kind, id)
}

func confirmShipmentReceipt(ctx context.Context, tx *sql.Tx, actor model.Actor, trackingID string) error {
	sh, err := GetShipment(ctx, tx, trackingID)
	if err != nil {
		return persistence("loading shipment", err)
	}
	if sh == nil {
		return notFoundf("shipment %s", trackingID)
	}
	if !actor.ActsFor(sh.LocationID) {
		return unauthorizedf("%s cannot receive goods for location %d", actor.Username, sh.LocationID)
	}
	if sh.Received() {
		return fmt.Errorf("%w: shipment %s", ErrAlreadyReceived, trackingID)
	}
	if sh.Status != model.ShipmentDelivered {
		return fmt.Errorf("%w: shipment %s is %s", ErrNotReceivable, trackingID, sh.Status)
	}

	by := actorRef(actor)
	result, err := tx.ExecContext(ctx,
		`UPDATE shipments SET received_at = ?, received_by = ?
		 WHERE id = ? AND status = ? AND received_at IS NULL`,
		time.Now().UTC(), by, sh.ID, model.ShipmentDelivered,
	)
	if err != nil {
		return persistence("marking shipment received", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return persistence("marking shipment received", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: shipment %s", ErrAlreadyReceived, trackingID)
	}

	for _, it := range sh.Items {
		if _, err := creditStock(ctx, tx, it.ProductID, sh.LocationID, it.Quantity, by, model.MovementReceipt, trackingID); err != nil {
			return err
		}
	}
	return nil
}

func confirmRequestReceipt(ctx context.Context, tx *sql.Tx, actor model.Actor, requestID string) error {
	r, err := GetRequest(ctx, tx, requestID)
	if err != nil {
		return persistence("loading request", err)
	}
	if r == nil {
		return notFoundf("request %s", requestID)
	}
	if !actor.ActsFor(r.LocationID) {
		return unauthorizedf("%s cannot receive goods for location %d", actor.Username, r.LocationID)
	}
	if r.Received() || r.Status == model.RequestFulfilled {
		return fmt.Errorf("%w: request %s", ErrAlreadyReceived, requestID)
	}
	if r.Status != model.RequestApproved {
		return fmt.Errorf("%w: request %s is %s", ErrNotReceivable, requestID, r.Status)
	}

	swapped, err := receiveRequest(ctx, tx, actor, r)
	if err != nil {
		return err
	}
	if !swapped {
		return fmt.Errorf("%w: request %s", ErrAlreadyReceived, requestID)
	}
	return nil
}

// receiveRequest moves an approved request to fulfilled, records the receipt
// and credits its lines to the branch. It reports false, without touching
// stock, when the request was no longer approved.
func receiveRequest(ctx context.Context, tx *sql.Tx, actor model.Actor, r *model.Request) (bool, error) {
	now := time.Now().UTC()
	by := actorRef(actor)
	result, err := tx.ExecContext(ctx,
		`UPDATE requests
		 SET status = ?, fulfilled_at = ?, fulfilled_by = ?, received_at = ?, received_by = ?
		 WHERE id = ? AND status = ?`,
		model.RequestFulfilled, now, by, now, by, r.ID, model.RequestApproved,
	)
	if err != nil {
		return false, persistence("marking request received", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, persistence("marking request received", err)
	}
	if n == 0 {
		return false, nil
	}

	for _, it := range r.Items {
		if _, err := creditStock(ctx, tx, it.ProductID, r.LocationID, it.Quantity, by, model.MovementReceipt, r.RequestID); err != nil {
			return false, err
		}
	}
	return true, nil
}
