package model

import "time"

// StockEntry is the quantity of a product held at one location.
// Entries at the warehouse are the central inventory lines shipments draw from.
type StockEntry struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	LocationID int64     `json:"location_id"`
	Quantity   int       `json:"quantity"`
	UpdatedAt  time.Time `json:"updated_at"`
	UpdatedBy  *int64    `json:"updated_by,omitempty"`

	// Joined fields (not always populated).
	ProductName  string `json:"product_name,omitempty"`
	LocationName string `json:"location_name,omitempty"`
	LocationType string `json:"location_type,omitempty"`
}

// Movement is one journal line of a stock change.
type Movement struct {
	ID        int64     `json:"id"`
	StockID   int64     `json:"stock_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy *int64    `json:"created_by,omitempty"`
}

// Movement reasons.
const (
	MovementStocking     = "stocking"
	MovementShipment     = "shipment"
	MovementCancellation = "cancellation"
	MovementReceipt      = "receipt"
)
