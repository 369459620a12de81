package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/preskrba/internal/model"
	"github.com/erazemk/preskrba/internal/store"
)

type shipmentStatusRequest struct {
	Status string `json:"status"`
}

// ListShipments handles GET /api/shipments.
func (h *WorkflowHandler) ListShipments(w http.ResponseWriter, r *http.Request) {
	requested, ok := queryID(r, "location_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location_id")
		return
	}
	locationID, ok := scopeLocation(actorOf(r), requested)
	if !ok {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidShipmentStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	shipments, err := store.ListShipments(r.Context(), h.DB, store.ShipmentFilter{LocationID: locationID, Status: status})
	if err != nil {
		slog.Error("failed to list shipments", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list shipments")
		return
	}
	if shipments == nil {
		shipments = []model.Shipment{}
	}
	jsonResponse(w, http.StatusOK, shipments)
}

// CreateShipment handles POST /api/shipments.
func (h *WorkflowHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req store.ShipmentInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sh, err := store.CreateShipment(r.Context(), h.DB, actorOf(r), req)
	var id string
	if sh != nil {
		id = sh.TrackingID
	}
	h.record(r, opCreateShipment, model.KindShipment, id, req.LocationID, err)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, sh)
}

// GetShipment handles GET /api/shipments/{id}.
func (h *WorkflowHandler) GetShipment(w http.ResponseWriter, r *http.Request) {
	sh, err := store.GetShipment(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get shipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get shipment")
		return
	}
	if sh == nil {
		jsonError(w, http.StatusNotFound, "shipment not found")
		return
	}
	if !actorOf(r).ActsFor(sh.LocationID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	jsonResponse(w, http.StatusOK, sh)
}

// TransitionShipment handles POST /api/shipments/{id}/status.
func (h *WorkflowHandler) TransitionShipment(w http.ResponseWriter, r *http.Request) {
	var req shipmentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	sh, err := store.TransitionShipment(r.Context(), h.DB, actorOf(r), id, req.Status)
	var location int64
	if sh != nil {
		location = sh.LocationID
	} else {
		location = h.transferLocation(r.Context(), model.KindShipment, id)
	}
	h.record(r, opTransitionShipment, model.KindShipment, id, location, err)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, sh)
}
