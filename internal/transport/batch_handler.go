package transport

import (
	"net/http"
	"time"

	"farmapos/internal/domain"
	"farmapos/internal/middleware"
	"farmapos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateBatchRequest represents the batch creation payload. Stock starts at
// the given count; afterwards it only moves through orders and the stock
// override endpoint.
type CreateBatchRequest struct {
	ProductID      int64               `json:"product_id" validate:"required,gt=0"`
	ExpirationDate string              `json:"expiration_date"`
	Stock          int                 `json:"stock" validate:"gte=0"`
	PurchasePrice  decimal.NullDecimal `json:"purchase_price"`
	SalePrice      decimal.NullDecimal `json:"sale_price"`
}

// BatchHandler handles HTTP requests for batches
type BatchHandler struct {
	catalog service.CatalogAdminService
	logger  *zap.Logger
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(catalog service.CatalogAdminService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers batch routes
func (h *BatchHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/batches", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequirePermission("products.batches", h.logger)).Get("/", h.List)
		r.With(middleware.RequirePermission("products.batches", h.logger)).Get("/{id}", h.Get)
		r.With(middleware.RequirePermission("products.batches", h.logger)).Post("/", h.Create)
		r.With(middleware.RequirePermission("products.batches", h.logger)).Patch("/{id}", h.Update)
		r.With(middleware.RequirePermission("products.batches", h.logger)).Delete("/{id}", h.Deactivate)
	})
}

// Create opens a new batch
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	batch := &domain.Batch{
		ProductID:     req.ProductID,
		Stock:         req.Stock,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
	}
	if req.ExpirationDate != "" {
		parsed, err := time.Parse(dateLayout, req.ExpirationDate)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "expiration_date must be YYYY-MM-DD")
			return
		}
		batch.ExpirationDate = &parsed
	}

	if err := h.catalog.CreateBatch(r.Context(), batch); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, batch)
}

// List returns all batches
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	batches, err := h.catalog.ListBatches(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, batches)
}

// Get returns one batch
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid batch id")
		return
	}

	batch, err := h.catalog.GetBatch(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, batch)
}

// Update applies a partial edit to expiration or pricing
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid batch id")
		return
	}

	var patch domain.BatchPatch
	if err := middleware.DecodeAndValidate(r, &patch); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	batch, err := h.catalog.UpdateBatch(r.Context(), id, patch)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, batch)
}

// Deactivate logically deletes a batch
func (h *BatchHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid batch id")
		return
	}

	if err := h.catalog.DeactivateBatch(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "batch deactivated"})
}
