package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment is a warehouse-initiated transfer of stock to a branch.
// Central stock is reserved when the shipment is created.
type Shipment struct {
	ID          int64           `json:"-"`
	TrackingID  string          `json:"tracking_id"`
	LocationID  int64           `json:"location_id"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Notes       string          `json:"notes,omitempty"`
	CreatedBy   *int64          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ShippedAt   *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
	ReceivedAt  *time.Time      `json:"received_at,omitempty"`
	ReceivedBy  *int64          `json:"received_by,omitempty"`

	Items []ShipmentItem `json:"items"`

	// Joined fields (not always populated).
	LocationName string `json:"location_name,omitempty"`
}

// ShipmentItem is one line of a shipment. UnitPrice is the catalog price at creation.
type ShipmentItem struct {
	Line      int             `json:"line"`
	StockID   int64           `json:"stock_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`

	ProductName string `json:"product_name,omitempty"`
}

// Received reports whether the branch confirmed arrival of the shipment.
func (s *Shipment) Received() bool {
	return s.ReceivedAt != nil
}

// Shipment statuses.
const (
	ShipmentPending   = "pending"
	ShipmentInTransit = "in-transit"
	ShipmentDelivered = "delivered"
	ShipmentCancelled = "cancelled"
)

// shipmentOrder ranks the forward path of a shipment.
var shipmentOrder = map[string]int{
	ShipmentPending:   1,
	ShipmentInTransit: 2,
	ShipmentDelivered: 3,
}

// ValidShipmentStatus reports whether status is a known shipment status.
func ValidShipmentStatus(status string) bool {
	_, ok := shipmentOrder[status]
	return ok || status == ShipmentCancelled
}

// CanTransitionShipment reports whether a shipment may move from one status to another.
// Shipments only move forward (steps may be skipped) or get cancelled before delivery.
func CanTransitionShipment(from, to string) bool {
	if to == ShipmentCancelled {
		return from == ShipmentPending || from == ShipmentInTransit
	}
	f, ok := shipmentOrder[from]
	if !ok {
		return false
	}
	t, ok := shipmentOrder[to]
	return ok && t > f
}

// ShipmentTotal sums quantity times unit price over the items.
func ShipmentTotal(items []ShipmentItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
