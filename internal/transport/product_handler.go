package transport

import (
	"net/http"

	"farmapos/internal/domain"
	"farmapos/internal/middleware"
	"farmapos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description"`
	CategoryID    int64  `json:"category_id" validate:"required,gt=0"`
	Presentation  string `json:"presentation" validate:"required"`
	Concentration string `json:"concentration"`
	Image         string `json:"image"`
}

// SetStockRequest carries the administrative total-stock override
type SetStockRequest struct {
	Stock int `json:"stock" validate:"gte=0"`
}

// SetPriceRequest carries the product-wide sale price update
type SetPriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	catalog   service.CatalogAdminService
	inventory service.InventoryService
	logger    *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogAdminService, inventory service.InventoryService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, inventory: inventory, logger: logger}
}

// RegisterRoutes registers product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequirePermission("products.view", h.logger)).Get("/", h.List)
		r.With(middleware.RequirePermission("products.view", h.logger)).Get("/{id}", h.Get)
		r.With(middleware.RequirePermission("products.view", h.logger)).Get("/{id}/batches", h.ListBatches)
		r.With(middleware.RequirePermission("products.create", h.logger)).Post("/", h.Create)
		r.With(middleware.RequirePermission("products.edit", h.logger)).Patch("/{id}", h.Update)
		r.With(middleware.RequirePermission("products.delete", h.logger)).Delete("/{id}", h.Deactivate)
		r.With(middleware.RequirePermission("stock.modify", h.logger)).Put("/{id}/stock", h.SetStock)
		r.With(middleware.RequirePermission("products.edit", h.logger)).Put("/{id}/price", h.SetPrice)
	})
}

// Create adds a product to the catalog
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	product := &domain.Product{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Presentation:  req.Presentation,
		Concentration: req.Concentration,
		Image:         req.Image,
	}
	if err := h.catalog.CreateProduct(r.Context(), product); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// List returns the active catalog
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get returns one product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid product id")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// ListBatches returns the product's active batches
func (h *ProductHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid product id")
		return
	}

	batches, err := h.catalog.ListProductBatches(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, batches)
}

// Update applies a partial edit
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid product id")
		return
	}

	var patch domain.ProductPatch
	if err := middleware.DecodeAndValidate(r, &patch); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Deactivate logically deletes a product
func (h *ProductHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid product id")
		return
	}

	if err := h.catalog.DeactivateProduct(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product deactivated"})
}

// SetStock overrides the product's total stock
func (h *ProductHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid product id")
		return
	}

	var req SetStockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}
	if req.Stock < 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "stock must not be negative")
		return
	}

	batches, err := h.inventory.SetTotalStock(r.Context(), id, req.Stock)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, batches)
}

// SetPrice sets the sale price on all active batches of the product
func (h *ProductHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid product id")
		return
	}

	var req SetPriceRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}
	if req.Price.IsNegative() {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "price must not be negative")
		return
	}

	if err := h.inventory.SetPrice(r.Context(), id, req.Price); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "price updated"})
}
