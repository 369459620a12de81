package model

import "time"

// Location is the central warehouse or a branch that can hold stock.
type Location struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code"`
	Type      string     `json:"type"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Location types. Exactly one active warehouse exists.
const (
	LocationTypeWarehouse = "warehouse"
	LocationTypeBranch    = "branch"
)
