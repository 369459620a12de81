package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/preskrba/internal/model"
	"github.com/erazemk/preskrba/internal/reconcile"
)

// ReceivableFilter narrows ListReceivables. A zero LocationID covers every branch.
type ReceivableFilter struct {
	LocationID     int64
	ReceivableOnly bool
}

// ListReceivables returns the merged shipment and request view. It only reads.
func ListReceivables(ctx context.Context, db *sql.DB, f ReceivableFilter) ([]model.Receivable, error) {
	shipments, err := ListShipments(ctx, db, ShipmentFilter{LocationID: f.LocationID})
	if err != nil {
		return nil, persistence("loading shipments", err)
	}
	requests, err := ListRequests(ctx, db, RequestFilter{
		LocationID: f.LocationID,
		Statuses:   []string{model.RequestApproved, model.RequestFulfilled},
	})
	if err != nil {
		return nil, persistence("loading requests", err)
	}

	rows := reconcile.Merge(shipments, requests)
	if f.ReceivableOnly {
		rows = reconcile.ReceivableOnly(rows)
	}
	return rows, nil
}

// GetReceivable returns the view row of one shipment or request, or nil if the
// record is missing or not part of the view.
func GetReceivable(ctx context.Context, q Querier, kind, id string) (*model.Receivable, error) {
	switch kind {
	case model.KindShipment:
		sh, err := GetShipment(ctx, q, id)
		if err != nil || sh == nil {
			return nil, err
		}
		row := reconcile.FromShipment(sh)
		return &row, nil
	case model.KindRequest:
		r, err := GetRequest(ctx, q, id)
		if err != nil || r == nil {
			return nil, err
		}
		row, ok := reconcile.FromRequest(r)
		if !ok {
			return nil, nil
		}
		return &row, nil
	}
	return nil, validationf("unknown transfer kind %q", kind)
}
