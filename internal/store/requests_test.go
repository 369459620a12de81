package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/erazemk/preskrba/internal/model"
)

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	milk := f.newProduct(t, "Milk", "MLK-1", "1.10")

	r, err := CreateRequest(f.ctx, f.db, f.supervisor, RequestInput{
		LocationID: f.branch.ID,
		Lines: []RequestLine{
			{ProductID: f.product.ID, Quantity: 5, Note: "sliced"},
			{ProductID: milk.ID, Quantity: 12},
		},
		Notes: "weekend",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	if !strings.HasPrefix(r.RequestID, "REQ-LJ-") {
		t.Errorf("unexpected request id %q", r.RequestID)
	}
	if r.Status != model.RequestPending {
		t.Errorf("expected pending, got %q", r.Status)
	}
	if r.Priority != model.PriorityMedium {
		t.Errorf("expected default priority medium, got %q", r.Priority)
	}
	if len(r.Items) != 2 || r.Items[0].Note != "sliced" || r.Items[1].ProductName != "Milk" {
		t.Errorf("unexpected items: %+v", r.Items)
	}
	if r.CreatedBy == nil || *r.CreatedBy != f.supervisor.UserID {
		t.Errorf("expected creator %d, got %v", f.supervisor.UserID, r.CreatedBy)
	}

	// Requests reserve nothing.
	if n := f.qty(t, f.product.ID, f.warehouse.ID); n != 100 {
		t.Errorf("central stock changed: %d", n)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)
	line := []RequestLine{{ProductID: f.product.ID, Quantity: 1}}

	tests := []struct {
		name  string
		actor model.Actor
		in    RequestInput
		want  error
	}{
		{"clerk", f.clerk, RequestInput{LocationID: f.branch.ID, Lines: line}, ErrUnauthorized},
		{"other branch", f.supervisor, RequestInput{LocationID: f.other.ID, Lines: line}, ErrUnauthorized},
		{"no lines", f.supervisor, RequestInput{LocationID: f.branch.ID}, ErrValidation},
		{"zero quantity", f.supervisor, RequestInput{LocationID: f.branch.ID, Lines: []RequestLine{{ProductID: f.product.ID}}}, ErrValidation},
		{"bad priority", f.supervisor, RequestInput{LocationID: f.branch.ID, Lines: line, Priority: "asap"}, ErrValidation},
		{"warehouse", f.manager, RequestInput{LocationID: f.warehouse.ID, Lines: line}, ErrValidation},
		{"unknown product", f.supervisor, RequestInput{LocationID: f.branch.ID, Lines: []RequestLine{{ProductID: 9999, Quantity: 1}}}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CreateRequest(f.ctx, f.db, tt.actor, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// Managers may request on behalf of any branch.
	r, err := CreateRequest(f.ctx, f.db, f.manager, RequestInput{LocationID: f.other.ID, Lines: line, Priority: model.PriorityUrgent})
	if err != nil {
		t.Fatalf("manager CreateRequest: %v", err)
	}
	if r.Priority != model.PriorityUrgent {
		t.Errorf("expected urgent, got %q", r.Priority)
	}
}

func TestApproveAndRejectRequest(t *testing.T) {
	f := newFixture(t)

	r := f.request(t, 5)
	if _, err := ApproveRequest(f.ctx, f.db, f.supervisor, r.RequestID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("supervisor approval: expected ErrUnauthorized, got %v", err)
	}

	approved, err := ApproveRequest(f.ctx, f.db, f.manager, r.RequestID)
	if err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	if approved.Status != model.RequestApproved || approved.ApprovedAt == nil || approved.ApprovedBy == nil {
		t.Errorf("approval not recorded: %+v", approved)
	}
	if _, err := ApproveRequest(f.ctx, f.db, f.manager, r.RequestID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second approval: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := RejectRequest(f.ctx, f.db, f.manager, r.RequestID, "too late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reject approved: expected ErrInvalidTransition, got %v", err)
	}

	other := f.request(t, 1)
	for _, reason := range []string{"", "   "} {
		if _, err := RejectRequest(f.ctx, f.db, f.manager, other.RequestID, reason); !errors.Is(err, ErrValidation) {
			t.Errorf("reject with %q: expected ErrValidation, got %v", reason, err)
		}
	}
	rejected, err := RejectRequest(f.ctx, f.db, f.manager, other.RequestID, " out of season ")
	if err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}
	if rejected.Status != model.RequestRejected || rejected.RejectReason != "out of season" {
		t.Errorf("rejection not recorded: %+v", rejected)
	}
	if _, err := FulfillRequest(f.ctx, f.db, f.manager, other.RequestID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("fulfil rejected: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := ApproveRequest(f.ctx, f.db, f.manager, "REQ-XX-00000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown request: expected ErrNotFound, got %v", err)
	}
}

func TestFulfillRequestCreditsBranch(t *testing.T) {
	f := newFixture(t)

	pending := f.request(t, 5)
	if _, err := FulfillRequest(f.ctx, f.db, f.manager, pending.RequestID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("fulfil pending: expected ErrInvalidTransition, got %v", err)
	}

	r := f.approved(t, 5)
	if _, err := FulfillRequest(f.ctx, f.db, f.supervisor, r.RequestID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("supervisor fulfilment: expected ErrUnauthorized, got %v", err)
	}

	fulfilled, err := FulfillRequest(f.ctx, f.db, f.manager, r.RequestID)
	if err != nil {
		t.Fatalf("FulfillRequest: %v", err)
	}
	if fulfilled.Status != model.RequestFulfilled || !fulfilled.Received() {
		t.Errorf("expected fulfilled and received, got %+v", fulfilled)
	}
	if n := f.qty(t, f.product.ID, f.branch.ID); n != 5 {
		t.Errorf("expected branch stock 5, got %d", n)
	}

	if _, err := FulfillRequest(f.ctx, f.db, f.manager, r.RequestID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second fulfilment: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindRequest, r.RequestID); !errors.Is(err, ErrAlreadyReceived) {
		t.Errorf("receipt after fulfilment: expected ErrAlreadyReceived, got %v", err)
	}
	if n := f.qty(t, f.product.ID, f.branch.ID); n != 5 {
		t.Errorf("branch credited twice: %d", n)
	}
}

func TestListRequestsFilter(t *testing.T) {
	f := newFixture(t)
	f.request(t, 1)
	f.approved(t, 2)

	all, err := ListRequests(f.ctx, f.db, RequestFilter{LocationID: f.branch.ID})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 requests, got %d", len(all))
	}

	approved, err := ListRequests(f.ctx, f.db, RequestFilter{Statuses: []string{model.RequestApproved, model.RequestFulfilled}})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(approved) != 1 || approved[0].Items[0].Quantity != 2 {
		t.Errorf("unexpected approved requests: %+v", approved)
	}

	none, _ := ListRequests(f.ctx, f.db, RequestFilter{LocationID: f.other.ID})
	if len(none) != 0 {
		t.Errorf("expected no requests for the other branch, got %d", len(none))
	}
}
