// Package reconcile merges shipments and requests into one receivable view.
//
// Everything here is pure: the view is recomputed from the records on every
// read and nothing is written back.
package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/erazemk/preskrba/internal/model"
)

// Merge builds the receivable view from shipments and requests, newest first.
// Shipments appear in every status. Only approved and fulfilled requests appear.
func Merge(shipments []model.Shipment, requests []model.Request) []model.Receivable {
	rows := make([]model.Receivable, 0, len(shipments)+len(requests))
	for i := range shipments {
		rows = append(rows, FromShipment(&shipments[i]))
	}
	for i := range requests {
		if row, ok := FromRequest(&requests[i]); ok {
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows
}

// ReceivableOnly keeps the rows that can currently be marked received.
func ReceivableOnly(rows []model.Receivable) []model.Receivable {
	out := make([]model.Receivable, 0, len(rows))
	for _, r := range rows {
		if r.CanMarkReceived {
			out = append(out, r)
		}
	}
	return out
}

// FromShipment projects a shipment into a view row.
func FromShipment(sh *model.Shipment) model.Receivable {
	status := sh.Status
	if sh.Received() {
		status = model.LabelReceived
	}

	items := make([]model.ReceivableItem, 0, len(sh.Items))
	for _, it := range sh.Items {
		items = append(items, model.ReceivableItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
		})
	}

	return model.Receivable{
		ID:              sh.TrackingID,
		Kind:            model.KindShipment,
		LocationID:      sh.LocationID,
		LocationName:    sh.LocationName,
		Status:          status,
		Items:           items,
		Total:           sh.Total,
		Date:            sh.CreatedAt,
		CanMarkReceived: sh.Status == model.ShipmentDelivered && !sh.Received(),
	}
}

// FromRequest projects a request into a view row. It reports false for
// requests that are not transfers in progress (pending or rejected).
func FromRequest(r *model.Request) (model.Receivable, bool) {
	var status string
	date := r.RequestedAt
	switch r.Status {
	case model.RequestApproved:
		status = model.LabelApprovedRequest
	case model.RequestFulfilled:
		status = model.LabelFulfilledRequest
		if r.FulfilledAt != nil {
			date = *r.FulfilledAt
		}
	default:
		return model.Receivable{}, false
	}

	total := decimal.Zero
	items := make([]model.ReceivableItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, model.ReceivableItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
		})
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	return model.Receivable{
		ID:              r.RequestID,
		Kind:            model.KindRequest,
		LocationID:      r.LocationID,
		LocationName:    r.LocationName,
		Status:          status,
		Items:           items,
		Total:           total,
		Date:            date,
		CanMarkReceived: r.Status == model.RequestApproved && !r.Received(),
	}, true
}
