package api

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/preskrba/internal/audit"
	"github.com/erazemk/preskrba/internal/auth"
	"github.com/erazemk/preskrba/internal/model"
)

// Options configures NewRouter.
type Options struct {
	DB     *sql.DB
	Issuer *auth.Issuer
	Audit  audit.Sink // nil discards workflow events
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) *http.ServeMux {
	db := opts.DB
	sink := opts.Audit
	if sink == nil {
		sink = audit.Discard{}
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Issuer: opts.Issuer}
	usersHandler := &UsersHandler{DB: db}
	locationsHandler := &LocationsHandler{DB: db}
	productsHandler := &ProductsHandler{DB: db}
	workflow := &WorkflowHandler{DB: db, Audit: sink}

	authMW := AuthMiddleware(opts.Issuer, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /healthz", health(db))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Locations: read (all roles), write (manager+).
	mux.Handle("GET /api/locations", authed(locationsHandler.List))
	mux.Handle("POST /api/locations", manager(locationsHandler.Create))
	mux.Handle("GET /api/locations/{id}", authed(locationsHandler.Get))
	mux.Handle("PUT /api/locations/{id}", manager(locationsHandler.Update))
	mux.Handle("DELETE /api/locations/{id}", manager(locationsHandler.Delete))
	mux.Handle("GET /api/locations/{id}/stock", authed(locationsHandler.Stock))

	// Products: read (all roles), write (manager+).
	mux.Handle("GET /api/products", authed(productsHandler.List))
	mux.Handle("POST /api/products", manager(productsHandler.Create))
	mux.Handle("GET /api/products/{id}", authed(productsHandler.Get))
	mux.Handle("PUT /api/products/{id}", manager(productsHandler.Update))
	mux.Handle("DELETE /api/products/{id}", manager(productsHandler.Delete))

	// Stock ledger.
	mux.Handle("GET /api/stock", authed(workflow.ListStock))
	mux.Handle("POST /api/stock", manager(workflow.AddStock))
	mux.Handle("GET /api/stock/{id}/movements", authed(workflow.Movements))

	// Workflow. Role and location checks for mutations live in the store.
	mux.Handle("GET /api/shipments", authed(workflow.ListShipments))
	mux.Handle("POST /api/shipments", authed(workflow.CreateShipment))
	mux.Handle("GET /api/shipments/{id}", authed(workflow.GetShipment))
	mux.Handle("POST /api/shipments/{id}/status", authed(workflow.TransitionShipment))

	mux.Handle("GET /api/requests", authed(workflow.ListRequests))
	mux.Handle("POST /api/requests", authed(workflow.CreateRequest))
	mux.Handle("GET /api/requests/{id}", authed(workflow.GetRequest))
	mux.Handle("POST /api/requests/{id}/approve", authed(workflow.ApproveRequest))
	mux.Handle("POST /api/requests/{id}/reject", authed(workflow.RejectRequest))
	mux.Handle("POST /api/requests/{id}/fulfill", authed(workflow.FulfillRequest))

	mux.Handle("GET /api/receivables", authed(workflow.ListReceivables))
	mux.Handle("POST /api/receivables/{kind}/{id}/receive", authed(workflow.ConfirmReceipt))

	return mux
}

func health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
