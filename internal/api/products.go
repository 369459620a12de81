package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/preskrba/internal/model"
	"github.com/erazemk/preskrba/internal/store"
)

// ProductsHandler handles the product catalog.
type ProductsHandler struct {
	DB *sql.DB
}

type productRequest struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
}

// List handles GET /api/products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	products, err := store.ListProducts(r.Context(), h.DB, status)
	if err != nil {
		slog.Error("failed to list products", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// Create handles POST /api/products.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)
	if req.Name == "" || req.SKU == "" {
		jsonError(w, http.StatusBadRequest, "name and sku required")
		return
	}

	product, err := store.CreateProduct(r.Context(), h.DB, req.Name, req.SKU, req.Description, req.Price)
	if isConstraint(err) {
		jsonError(w, http.StatusConflict, "sku already in use")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("product created", "user", claims.Username, "product", product.Name, "sku", product.SKU, "price", product.Price)
	jsonResponse(w, http.StatusCreated, product)
}

// Get handles GET /api/products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil || product.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// Update handles PUT /api/products/{id}. Existing shipments keep the price
// they were created with.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.Status == "" {
		req.Status = model.ProductStatusActive
	}
	if req.Status != model.ProductStatusActive && req.Status != model.ProductStatusDiscontinued {
		jsonError(w, http.StatusBadRequest, "status must be 'active' or 'discontinued'")
		return
	}

	if err := store.UpdateProduct(r.Context(), h.DB, id, strings.TrimSpace(req.Name), req.Description, req.Status, req.Price); err != nil {
		writeError(w, err)
		return
	}

	product, _ := store.GetProduct(r.Context(), h.DB, id)
	if product == nil || product.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}
	claims := GetClaims(r.Context())
	slog.Info("product updated", "user", claims.Username, "product", product.Name, "price", product.Price, "status", product.Status)
	jsonResponse(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, _ := store.GetProduct(r.Context(), h.DB, id)
	if product == nil || product.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := store.DeleteProduct(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to delete product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("product deleted", "user", claims.Username, "product", product.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "product deleted"})
}
