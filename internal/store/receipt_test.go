package store

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/erazemk/preskrba/internal/model"
)

func TestConfirmShipmentReceipt(t *testing.T) {
	f := newFixture(t)
	sh := f.deliver(t, 30)

	row, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindShipment, sh.TrackingID)
	if err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}
	if row.Status != model.LabelReceived || row.CanMarkReceived {
		t.Errorf("unexpected row after receipt: %+v", row)
	}
	if n := f.qty(t, f.product.ID, f.branch.ID); n != 30 {
		t.Errorf("expected branch stock 30, got %d", n)
	}

	got, err := GetShipment(f.ctx, f.db, sh.TrackingID)
	if err != nil {
		t.Fatalf("GetShipment: %v", err)
	}
	if got.ReceivedBy == nil || *got.ReceivedBy != f.supervisor.UserID {
		t.Errorf("expected receiver %d, got %v", f.supervisor.UserID, got.ReceivedBy)
	}
	if got.Status != model.ShipmentDelivered {
		t.Errorf("status should stay delivered, got %q", got.Status)
	}

	_, err = ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindShipment, sh.TrackingID)
	if !errors.Is(err, ErrAlreadyReceived) {
		t.Fatalf("second receipt: expected ErrAlreadyReceived, got %v", err)
	}
	if Retryable(err) {
		t.Error("already received must not be retryable")
	}
	if n := f.qty(t, f.product.ID, f.branch.ID); n != 30 {
		t.Errorf("second receipt changed branch stock: %d", n)
	}
}

func TestConfirmRequestReceipt(t *testing.T) {
	f := newFixture(t)
	r := f.approved(t, 5)

	row, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindRequest, r.RequestID)
	if err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}
	if row.Status != model.LabelFulfilledRequest || row.CanMarkReceived {
		t.Errorf("unexpected row after receipt: %+v", row)
	}
	if n := f.qty(t, f.product.ID, f.branch.ID); n != 5 {
		t.Errorf("expected branch stock 5, got %d", n)
	}
	// Requests never draw on central stock.
	if n := f.qty(t, f.product.ID, f.warehouse.ID); n != 100 {
		t.Errorf("central stock changed: %d", n)
	}

	got, _ := GetRequest(f.ctx, f.db, r.RequestID)
	if got.Status != model.RequestFulfilled || got.ReceivedAt == nil || got.FulfilledBy == nil {
		t.Errorf("receipt not recorded: %+v", got)
	}

	if _, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindRequest, r.RequestID); !errors.Is(err, ErrAlreadyReceived) {
		t.Errorf("second receipt: expected ErrAlreadyReceived, got %v", err)
	}
}

func TestConfirmReceiptAddsToExistingBranchStock(t *testing.T) {
	f := newFixture(t)

	first := f.deliver(t, 10)
	if _, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindShipment, first.TrackingID); err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}
	second := f.deliver(t, 7)
	if _, err := ConfirmReceipt(f.ctx, f.db, f.manager, model.KindShipment, second.TrackingID); err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}

	if n := f.qty(t, f.product.ID, f.branch.ID); n != 17 {
		t.Errorf("expected 17, got %d", n)
	}
	branch, _ := ListStock(f.ctx, f.db, f.branch.ID)
	if len(branch) != 1 {
		t.Errorf("expected a single branch stock line, got %d", len(branch))
	}
}

func TestConfirmReceiptOverflowRejected(t *testing.T) {
	f := newFixture(t)

	sh := f.deliver(t, 30)
	if _, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindShipment, sh.TrackingID); err != nil {
		t.Fatalf("ConfirmReceipt(shipment): %v", err)
	}

	r := f.approved(t, math.MaxInt)
	if _, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindRequest, r.RequestID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	if n := f.qty(t, f.product.ID, f.branch.ID); n != 30 {
		t.Errorf("expected branch stock to stay at 30, got %d", n)
	}
	if _, err := ListStock(f.ctx, f.db, f.branch.ID); err != nil {
		t.Errorf("ListStock(branch): %v", err)
	}
	got, err := GetRequest(f.ctx, f.db, r.RequestID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Status != model.RequestApproved || got.Received() {
		t.Errorf("rejected receipt changed the request: status %s, received %v", got.Status, got.Received())
	}
}

func TestConfirmReceiptErrors(t *testing.T) {
	f := newFixture(t)
	pendingShipment := f.ship(t, 1)
	delivered := f.deliver(t, 1)
	pendingRequest := f.request(t, 1)
	approved := f.approved(t, 1)

	rejected := f.request(t, 1)
	if _, err := RejectRequest(f.ctx, f.db, f.manager, rejected.RequestID, "no"); err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}
	cancelled := f.ship(t, 1)
	if _, err := TransitionShipment(f.ctx, f.db, f.manager, cancelled.TrackingID, model.ShipmentCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	outsider := f.actor(t, "olga", model.RoleSupervisor, &f.other.ID)

	tests := []struct {
		name  string
		actor model.Actor
		kind  string
		id    string
		want  error
	}{
		{"clerk", f.clerk, model.KindShipment, delivered.TrackingID, ErrUnauthorized},
		{"other branch shipment", outsider, model.KindShipment, delivered.TrackingID, ErrUnauthorized},
		{"other branch request", outsider, model.KindRequest, approved.RequestID, ErrUnauthorized},
		{"pending shipment", f.supervisor, model.KindShipment, pendingShipment.TrackingID, ErrNotReceivable},
		{"cancelled shipment", f.supervisor, model.KindShipment, cancelled.TrackingID, ErrNotReceivable},
		{"pending request", f.supervisor, model.KindRequest, pendingRequest.RequestID, ErrNotReceivable},
		{"rejected request", f.supervisor, model.KindRequest, rejected.RequestID, ErrNotReceivable},
		{"unknown shipment", f.supervisor, model.KindShipment, "SHP-LJ-00000000", ErrNotFound},
		{"unknown request", f.supervisor, model.KindRequest, "REQ-LJ-00000000", ErrNotFound},
		{"unknown kind", f.supervisor, "parcel", delivered.TrackingID, ErrValidation},
		{"kind mismatch", f.supervisor, model.KindRequest, delivered.TrackingID, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ConfirmReceipt(f.ctx, f.db, tt.actor, tt.kind, tt.id); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if n := f.qty(t, f.product.ID, f.branch.ID); n != 0 {
		t.Errorf("failed receipts credited the branch: %d", n)
	}
}

func TestConcurrentReceiptCreditsOnce(t *testing.T) {
	for _, kind := range []string{model.KindShipment, model.KindRequest} {
		t.Run(kind, func(t *testing.T) {
			f := newFixture(t)

			var id string
			if kind == model.KindShipment {
				id = f.deliver(t, 30).TrackingID
			} else {
				id = f.approved(t, 30).RequestID
			}

			const workers = 10
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, kind, id)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			ok := 0
			for err := range errs {
				switch {
				case err == nil:
					ok++
				case !errors.Is(err, ErrAlreadyReceived):
					t.Errorf("unexpected error: %v", err)
				}
			}
			if ok != 1 {
				t.Errorf("expected exactly one successful receipt, got %d", ok)
			}
			if n := f.qty(t, f.product.ID, f.branch.ID); n != 30 {
				t.Errorf("expected branch stock 30, got %d", n)
			}
		})
	}
}

func TestShipmentConservation(t *testing.T) {
	f := newFixture(t)

	received := f.deliver(t, 25)
	if _, err := ConfirmReceipt(f.ctx, f.db, f.supervisor, model.KindShipment, received.TrackingID); err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}
	cancelled := f.ship(t, 15)
	if _, err := TransitionShipment(f.ctx, f.db, f.manager, cancelled.TrackingID, model.ShipmentCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.ship(t, 5) // still open

	central := f.qty(t, f.product.ID, f.warehouse.ID)
	branch := f.qty(t, f.product.ID, f.branch.ID)
	if central+branch+5 != 100 {
		t.Errorf("stock not conserved: central %d + branch %d + open 5 != 100", central, branch)
	}
}
