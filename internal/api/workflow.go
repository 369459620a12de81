package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/preskrba/internal/audit"
	"github.com/erazemk/preskrba/internal/model"
	"github.com/erazemk/preskrba/internal/store"
)

// WorkflowHandler handles stock, shipment, request and receipt endpoints.
// Every workflow mutation is reported to Audit.
type WorkflowHandler struct {
	DB    *sql.DB
	Audit audit.Sink
}

// Workflow operation names, as reported to the audit sink.
const (
	opAddStock           = "add_stock"
	opCreateShipment     = "create_shipment"
	opTransitionShipment = "transition_shipment"
	opCreateRequest      = "create_request"
	opApproveRequest     = "approve_request"
	opRejectRequest      = "reject_request"
	opFulfillRequest     = "fulfill_request"
	opConfirmReceipt     = "confirm_receipt"
)

// record reports the outcome of a workflow operation.
func (h *WorkflowHandler) record(r *http.Request, op, kind, id string, location int64, err error) {
	outcome := audit.OutcomeOK
	if err != nil {
		_, outcome = errorCode(err)
	}
	h.Audit.Record(r.Context(), audit.Event{
		Op:       op,
		Kind:     kind,
		ID:       id,
		Location: location,
		User:     actorOf(r).Username,
		Outcome:  outcome,
		Err:      err,
	})
}

// transferLocation looks up the destination of a shipment or request so that
// failed operations are still reported against their location. It returns 0
// when the transfer cannot be found.
func (h *WorkflowHandler) transferLocation(ctx context.Context, kind, id string) int64 {
	switch kind {
	case model.KindShipment:
		if sh, err := store.GetShipment(ctx, h.DB, id); err == nil && sh != nil {
			return sh.LocationID
		}
	case model.KindRequest:
		if r, err := store.GetRequest(ctx, h.DB, id); err == nil && r != nil {
			return r.LocationID
		}
	}
	return 0
}

// ListStock handles GET /api/stock. Without location_id it lists central stock.
func (h *WorkflowHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryID(r, "location_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location_id")
		return
	}

	var loc *model.Location
	var err error
	if locationID == 0 {
		loc, err = store.GetWarehouse(r.Context(), h.DB)
	} else {
		loc, err = store.GetLocation(r.Context(), h.DB, locationID)
	}
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get location")
		return
	}
	if loc == nil || loc.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	if !canViewStock(actorOf(r), loc) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	entries, err := store.ListStock(r.Context(), h.DB, loc.ID)
	if err != nil {
		slog.Error("failed to list stock", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list stock")
		return
	}
	if entries == nil {
		entries = []model.StockEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

type addStockRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AddStock handles POST /api/stock: booking stock into the central warehouse.
func (h *WorkflowHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := store.AddStock(r.Context(), h.DB, actorOf(r), req.ProductID, req.Quantity)
	var location int64
	if entry != nil {
		location = entry.LocationID
	} else if wh, _ := store.GetWarehouse(r.Context(), h.DB); wh != nil {
		location = wh.ID
	}
	h.record(r, opAddStock, "", "", location, err)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, entry)
}

// Movements handles GET /api/stock/{id}/movements.
func (h *WorkflowHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid stock id")
		return
	}

	entry, err := store.GetStockEntry(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get stock entry", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get stock entry")
		return
	}
	if entry == nil {
		jsonError(w, http.StatusNotFound, "stock entry not found")
		return
	}
	if !canViewStock(actorOf(r), &model.Location{ID: entry.LocationID, Type: entry.LocationType}) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	movements, err := store.ListMovements(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to list movements", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list movements")
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}
