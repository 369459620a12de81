package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request is a branch-initiated ask for stock. It reserves nothing.
type Request struct {
	ID           int64      `json:"-"`
	RequestID    string     `json:"request_id"`
	LocationID   int64      `json:"location_id"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`
	CreatedBy    *int64     `json:"created_by,omitempty"`
	RequestedAt  time.Time  `json:"requested_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	ApprovedBy   *int64     `json:"approved_by,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`
	RejectedBy   *int64     `json:"rejected_by,omitempty"`
	FulfilledAt  *time.Time `json:"fulfilled_at,omitempty"`
	FulfilledBy  *int64     `json:"fulfilled_by,omitempty"`
	ReceivedAt   *time.Time `json:"received_at,omitempty"`
	ReceivedBy   *int64     `json:"received_by,omitempty"`

	Items []RequestItem `json:"items"`

	// Joined fields (not always populated).
	LocationName string `json:"location_name,omitempty"`
}

// RequestItem is one requested product line.
type RequestItem struct {
	Line      int    `json:"line"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`

	// Joined from the catalog at read time; requests carry no price snapshot.
	ProductName string          `json:"product_name,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// Received reports whether the requested goods were credited to the branch.
func (r *Request) Received() bool {
	return r.ReceivedAt != nil
}

// Request statuses.
const (
	RequestPending   = "pending"
	RequestApproved  = "approved"
	RequestRejected  = "rejected"
	RequestFulfilled = "fulfilled"
)

// Request priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// requestTransitions lists the legal next statuses of a request.
var requestTransitions = map[string][]string{
	RequestPending:  {RequestApproved, RequestRejected},
	RequestApproved: {RequestFulfilled},
}

// CanTransitionRequest reports whether a request may move from one status to another.
func CanTransitionRequest(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
