package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/preskrba/internal/model"
	"github.com/erazemk/preskrba/internal/store"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

// ListRequests handles GET /api/requests.
func (h *WorkflowHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
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

	f := store.RequestFilter{LocationID: locationID}
	if status := r.URL.Query().Get("status"); status != "" {
		f.Statuses = []string{status}
	}

	requests, err := store.ListRequests(r.Context(), h.DB, f)
	if err != nil {
		slog.Error("failed to list requests", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// CreateRequest handles POST /api/requests. Branch staff may leave out
// location_id; it defaults to their home branch.
func (h *WorkflowHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req store.RequestInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := actorOf(r)
	if req.LocationID == 0 && actor.LocationID != nil {
		req.LocationID = *actor.LocationID
	}

	created, err := store.CreateRequest(r.Context(), h.DB, actor, req)
	var id string
	if created != nil {
		id = created.RequestID
	}
	h.record(r, opCreateRequest, model.KindRequest, id, req.LocationID, err)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// GetRequest handles GET /api/requests/{id}.
func (h *WorkflowHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := store.GetRequest(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get request", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	if req == nil {
		jsonError(w, http.StatusNotFound, "request not found")
		return
	}
	if !actorOf(r).ActsFor(req.LocationID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	jsonResponse(w, http.StatusOK, req)
}

// ApproveRequest handles POST /api/requests/{id}/approve.
func (h *WorkflowHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.requestTransition(w, r, opApproveRequest, store.ApproveRequest)
}

// RejectRequest handles POST /api/requests/{id}/reject.
func (h *WorkflowHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.requestTransition(w, r, opRejectRequest, func(ctx context.Context, db *sql.DB, a model.Actor, id string) (*model.Request, error) {
		return store.RejectRequest(ctx, db, a, id, req.Reason)
	})
}

// FulfillRequest handles POST /api/requests/{id}/fulfill.
func (h *WorkflowHandler) FulfillRequest(w http.ResponseWriter, r *http.Request) {
	h.requestTransition(w, r, opFulfillRequest, store.FulfillRequest)
}

type requestTransitionFunc func(ctx context.Context, db *sql.DB, a model.Actor, id string) (*model.Request, error)

func (h *WorkflowHandler) requestTransition(w http.ResponseWriter, r *http.Request, op string, fn requestTransitionFunc) {
	id := r.PathValue("id")
	req, err := fn(r.Context(), h.DB, actorOf(r), id)
	var location int64
	if req != nil {
		location = req.LocationID
	} else {
		location = h.transferLocation(r.Context(), model.KindRequest, id)
	}
	h.record(r, op, model.KindRequest, id, location, err)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, req)
}
