package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/preskrba/internal/model"
	"github.com/erazemk/preskrba/internal/store"
)

// LocationsHandler handles the branch directory.
type LocationsHandler struct {
	DB *sql.DB
}

type createLocationRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type updateLocationRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locationType := r.URL.Query().Get("type")
	if locationType != "" && locationType != model.LocationTypeWarehouse && locationType != model.LocationTypeBranch {
		jsonError(w, http.StatusBadRequest, "type must be 'warehouse' or 'branch'")
		return
	}

	locations, err := store.ListLocations(r.Context(), h.DB, locationType)
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Create handles POST /api/locations. Only branches can be created; the
// warehouse is set up with the database.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	if req.Name == "" || req.Code == "" {
		jsonError(w, http.StatusBadRequest, "name and code required")
		return
	}
	if strings.ContainsAny(req.Code, " -") {
		jsonError(w, http.StatusBadRequest, "code must not contain spaces or dashes")
		return
	}

	loc, err := store.CreateLocation(r.Context(), h.DB, req.Name, req.Code, model.LocationTypeBranch)
	if isConstraint(err) {
		jsonError(w, http.StatusConflict, "location code already in use")
		return
	}
	if err != nil {
		slog.Error("failed to create location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create location")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("location created", "user", claims.Username, "location", loc.Name, "code", loc.Code)
	jsonResponse(w, http.StatusCreated, loc)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	loc, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get location")
		return
	}
	if loc == nil || loc.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	jsonResponse(w, http.StatusOK, loc)
}

// Update handles PUT /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	var req updateLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateLocation(r.Context(), h.DB, id, strings.TrimSpace(req.Name)); err != nil {
		slog.Error("failed to update location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update location")
		return
	}

	loc, _ := store.GetLocation(r.Context(), h.DB, id)
	if loc == nil || loc.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	claims := GetClaims(r.Context())
	slog.Info("location updated", "user", claims.Username, "location", loc.Name)
	jsonResponse(w, http.StatusOK, loc)
}

// Delete handles DELETE /api/locations/{id}.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	if err := store.DeleteLocation(r.Context(), h.DB, id); err != nil {
		if errors.Is(err, store.ErrValidation) || errors.Is(err, store.ErrNotFound) {
			slog.Warn("location not deleted", "id", id, "error", err)
		}
		writeError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("location deleted", "user", claims.Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "location deleted"})
}

// Stock handles GET /api/locations/{id}/stock.
func (h *LocationsHandler) Stock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	loc, err := store.GetLocation(r.Context(), h.DB, id)
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

	entries, err := store.ListStock(r.Context(), h.DB, id)
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
