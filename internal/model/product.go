package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry for a finished good.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

// Product statuses.
const (
	ProductStatusActive       = "active"
	ProductStatusDiscontinued = "discontinued"
)
