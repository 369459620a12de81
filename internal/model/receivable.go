package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer kinds, as they appear in the receivable view.
const (
	KindShipment = "shipment"
	KindRequest  = "request"
)

// Normalized labels for request rows and received shipments.
const (
	LabelApprovedRequest  = "approved-request"
	LabelFulfilledRequest = "fulfilled-request"
	LabelReceived         = "received"
)

// Receivable is one row of the merged shipment/request view. It is computed on read.
type Receivable struct {
	ID              string           `json:"id"`
	Kind            string           `json:"kind"`
	LocationID      int64            `json:"location_id"`
	LocationName    string           `json:"location_name,omitempty"`
	Status          string           `json:"status"`
	Items           []ReceivableItem `json:"items"`
	Total           decimal.Decimal  `json:"total"`
	Date            time.Time        `json:"date"`
	CanMarkReceived bool             `json:"can_mark_received"`
}

// ReceivableItem is a product line of a receivable row.
type ReceivableItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
}
