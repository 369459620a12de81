package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/preskrba/internal/model"
	"github.com/erazemk/preskrba/internal/store"
)

// ListReceivables handles GET /api/receivables. receivable=1 keeps only rows
// that can be marked received now.
func (h *WorkflowHandler) ListReceivables(w http.ResponseWriter, r *http.Request) {
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

	receivableOnly := false
	switch r.URL.Query().Get("receivable") {
	case "", "0", "false":
	case "1", "true":
		receivableOnly = true
	default:
		jsonError(w, http.StatusBadRequest, "receivable must be 0 or 1")
		return
	}

	rows, err := store.ListReceivables(r.Context(), h.DB, store.ReceivableFilter{
		LocationID:     locationID,
		ReceivableOnly: receivableOnly,
	})
	if err != nil {
		slog.Error("failed to list receivables", "error", err)
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []model.Receivable{}
	}
	jsonResponse(w, http.StatusOK, rows)
}

// ConfirmReceipt handles POST /api/receivables/{kind}/{id}/receive.
// Repeating the call for a received transfer answers 409 already_received.
func (h *WorkflowHandler) ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	kind, id := r.PathValue("kind"), r.PathValue("id")

	row, err := store.ConfirmReceipt(r.Context(), h.DB, actorOf(r), kind, id)
	var location int64
	if row != nil {
		location = row.LocationID
	} else {
		location = h.transferLocation(r.Context(), kind, id)
	}
	h.record(r, opConfirmReceipt, kind, id, location, err)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, row)
}
