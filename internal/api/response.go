package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/preskrba/internal/store"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message, Code: statusCode(status)})
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	}
	return "internal"
}

// errorCode maps a workflow error to its HTTP status and error code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, store.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, store.ErrAlreadyReceived):
		return http.StatusConflict, "already_received"
	case errors.Is(err, store.ErrNotReceivable):
		return http.StatusConflict, "not_receivable"
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusUnprocessableEntity, "insufficient_stock"
	case errors.Is(err, store.ErrPersistence):
		return http.StatusServiceUnavailable, "persistence"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError writes a workflow error. Persistence failures are retryable and
// carry a Retry-After header; their details are logged, not returned.
func writeError(w http.ResponseWriter, err error) {
	status, code := errorCode(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		slog.Error("storage failure", "error", err)
		w.Header().Set("Retry-After", "1")
		message = "storage temporarily unavailable, retry"
	case http.StatusInternalServerError:
		slog.Error("internal error", "error", err)
		message = "internal error"
	}
	jsonResponse(w, status, errorBody{Error: message, Code: code})
}

// isConstraint reports whether err is a uniqueness violation from SQLite.
func isConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID parses an optional numeric query parameter; absent means 0.
func queryID(r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return id, err == nil && id > 0
}
