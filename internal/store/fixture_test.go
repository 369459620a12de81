package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/preskrba/internal/db"
	"github.com/erazemk/preskrba/internal/model"
)

// fixture is a database with a warehouse, two branches, a manager, a
// supervisor of the first branch and one product stocked centrally.
type fixture struct {
	db  *sql.DB
	ctx context.Context

	warehouse *model.Location
	branch    *model.Location
	other     *model.Location

	manager    model.Actor
	supervisor model.Actor
	clerk      model.Actor

	product *model.Product
	central *model.StockEntry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{db: db.NewTestDB(t), ctx: context.Background()}

	var err error
	if f.warehouse, err = CreateLocation(f.ctx, f.db, "Central", "cen", model.LocationTypeWarehouse); err != nil {
		t.Fatalf("CreateLocation(warehouse): %v", err)
	}
	if f.branch, err = CreateLocation(f.ctx, f.db, "Ljubljana", "lj", model.LocationTypeBranch); err != nil {
		t.Fatalf("CreateLocation(branch): %v", err)
	}
	if f.other, err = CreateLocation(f.ctx, f.db, "Maribor", "mb", model.LocationTypeBranch); err != nil {
		t.Fatalf("CreateLocation(other): %v", err)
	}

	f.manager = f.actor(t, "maja", model.RoleManager, nil)
	f.supervisor = f.actor(t, "sara", model.RoleSupervisor, &f.branch.ID)
	f.clerk = f.actor(t, "urban", model.RoleUser, &f.branch.ID)

	f.product = f.newProduct(t, "Sourdough loaf", "BRD-1", "3.20")
	f.central = f.stock(t, f.product.ID, 100)

	return f
}

func (f *fixture) actor(t *testing.T, username, role string, locationID *int64) model.Actor {
	t.Helper()
	u, err := CreateUser(f.ctx, f.db, username, "hash", role, locationID)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return model.Actor{UserID: u.ID, Username: u.Username, Role: u.Role, LocationID: u.LocationID}
}

func (f *fixture) newProduct(t *testing.T, name, sku, price string) *model.Product {
	t.Helper()
	p, err := CreateProduct(f.ctx, f.db, name, sku, "", decimal.RequireFromString(price))
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", sku, err)
	}
	return p
}

func (f *fixture) stock(t *testing.T, productID int64, quantity int) *model.StockEntry {
	t.Helper()
	e, err := AddStock(f.ctx, f.db, f.manager, productID, quantity)
	if err != nil {
		t.Fatalf("AddStock: %v", err)
	}
	return e
}

func (f *fixture) qty(t *testing.T, productID, locationID int64) int {
	t.Helper()
	n, err := StockQuantity(f.ctx, f.db, productID, locationID)
	if err != nil {
		t.Fatalf("StockQuantity: %v", err)
	}
	return n
}

func (f *fixture) ship(t *testing.T, quantity int) *model.Shipment {
	t.Helper()
	sh, err := CreateShipment(f.ctx, f.db, f.manager, ShipmentInput{
		LocationID: f.branch.ID,
		Lines:      []ShipmentLine{{StockID: f.central.ID, Quantity: quantity}},
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	return sh
}

func (f *fixture) deliver(t *testing.T, quantity int) *model.Shipment {
	t.Helper()
	sh := f.ship(t, quantity)
	sh, err := TransitionShipment(f.ctx, f.db, f.manager, sh.TrackingID, model.ShipmentDelivered)
	if err != nil {
		t.Fatalf("TransitionShipment(delivered): %v", err)
	}
	return sh
}

func (f *fixture) request(t *testing.T, quantity int) *model.Request {
	t.Helper()
	r, err := CreateRequest(f.ctx, f.db, f.supervisor, RequestInput{
		LocationID: f.branch.ID,
		Lines:      []RequestLine{{ProductID: f.product.ID, Quantity: quantity}},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return r
}

func (f *fixture) approved(t *testing.T, quantity int) *model.Request {
	t.Helper()
	r := f.request(t, quantity)
	r, err := ApproveRequest(f.ctx, f.db, f.manager, r.RequestID)
	if err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	return r
}
