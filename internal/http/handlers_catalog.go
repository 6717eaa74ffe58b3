package httpx

import (
	"errors"
	"net/http"

	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

const (
	defaultProductLimit = 24
	maxProductLimit     = 100
)

// CatalogHandlers provides HTTP handlers for the product catalog.
type CatalogHandlers struct {
	Svc *service.CatalogService
}

// ListProducts handles the storefront catalog listing.
// GET /api/products?q=&category_id=&active=&min_price_cents=&max_price_cents=&sort=&dir=&limit=&offset=.
func (h *CatalogHandlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultProductLimit, maxProductLimit)
	opts := model.ProductsListOptions{
		Limit:         limit,
		Offset:        offset,
		Q:             stringQuery(r, "q"),
		CategoryID:    stringQuery(r, "category_id"),
		Active:        boolQuery(r, "active"),
		MinPriceCents: int64Query(r, "min_price_cents"),
		MaxPriceCents: int64Query(r, "max_price_cents"),
		Sort:          r.URL.Query().Get("sort"),
		Dir:           r.URL.Query().Get("dir"),
	}

	// Storefront callers only see active products; staff may filter.
	if opts.Active == nil && GetSessionFromContext(r.Context()) == nil {
		active := true
		opts.Active = &active
	}

	products, err := h.Svc.ListProducts(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"products": products, "limit": limit, "offset": offset})
}

// GetProduct handles a single product fetch.
// GET /api/products/{id}.
func (h *CatalogHandlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.Svc.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, product)
}

// CreateProduct handles product creation (back-office).
// POST /api/products.
func (h *CatalogHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProductRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	product, err := h.Svc.CreateProduct(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "create_failed")
		return
	}
	WriteJSON(w, http.StatusCreated, product)
}

// UpdateProduct handles product updates (back-office).
// PUT /api/products/{id}.
func (h *CatalogHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProductRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	product, err := h.Svc.UpdateProduct(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}
	WriteJSON(w, http.StatusOK, product)
}

// DeleteProduct handles product deletion (back-office).
// DELETE /api/products/{id}.
func (h *CatalogHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Svc.DeleteProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("product not found"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustStockRequest struct {
	Delta float64 `json:"delta"`
}

// AdjustStock adds a delta (possibly negative) to a product's stock.
// POST /api/products/{id}/stock.
func (h *CatalogHandlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Delta == 0 {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_request",
			Err:     errors.New("delta must be non-zero"),
		})
		return
	}

	product, err := h.Svc.AdjustStock(r.Context(), r.PathValue("id"), req.Delta)
	if err != nil {
		writeServiceError(w, err, "stock_adjust_failed")
		return
	}
	WriteJSON(w, http.StatusOK, product)
}

// ListCategories handles the category listing.
// GET /api/categories.
func (h *CatalogHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Svc.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// GetCategoryBySlug resolves a category by its URL slug.
// GET /api/categories/{slug}.
func (h *CatalogHandlers) GetCategoryBySlug(w http.ResponseWriter, r *http.Request) {
	category, err := h.Svc.GetCategoryBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, category)
}

// CreateCategory handles category creation (back-office).
// POST /api/categories.
func (h *CatalogHandlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCategoryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	category, err := h.Svc.CreateCategory(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "create_failed")
		return
	}
	WriteJSON(w, http.StatusCreated, category)
}

// UpdateCategory handles category updates (back-office).
// PUT /api/categories/{id}.
func (h *CatalogHandlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateCategoryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !req.HasUpdates() {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_request",
			Err:     errors.New("at least one field must be updated"),
		})
		return
	}

	category, err := h.Svc.UpdateCategory(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}
	WriteJSON(w, http.StatusOK, category)
}

// DeleteCategory handles category deletion (back-office).
// DELETE /api/categories/{id}.
func (h *CatalogHandlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Svc.DeleteCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("category not found"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
