package transport

import (
	"net/http"

	"farmapos/internal/domain"
	"farmapos/internal/middleware"
	"farmapos/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SupplierRequest represents the supplier create/update payload
type SupplierRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// SupplierHandler handles HTTP requests for suppliers
type SupplierHandler struct {
	parties service.PartyService
	logger  *zap.Logger
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(parties service.PartyService, logger *zap.Logger) *SupplierHandler {
	return &SupplierHandler{parties: parties, logger: logger}
}

// RegisterRoutes registers supplier routes
func (h *SupplierHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/suppliers", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequirePermission("suppliers.view", h.logger)).Get("/", h.List)
		r.With(middleware.RequirePermission("suppliers.view", h.logger)).Get("/{id}", h.Get)
		r.With(middleware.RequirePermission("suppliers.create", h.logger)).Post("/", h.Create)
		r.With(middleware.RequirePermission("suppliers.edit", h.logger)).Put("/{id}", h.Update)
		r.With(middleware.RequirePermission("suppliers.delete", h.logger)).Delete("/{id}", h.Deactivate)
	})
}

// Create registers a supplier
func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SupplierRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	supplier := &domain.Supplier{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		City:    req.City,
	}
	if err := h.parties.CreateSupplier(r.Context(), supplier); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, supplier)
}

// List returns active suppliers
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.parties.ListSuppliers(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, suppliers)
}

// Get returns one supplier
func (h *SupplierHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid supplier id")
		return
	}

	supplier, err := h.parties.GetSupplier(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, supplier)
}

// Update replaces the supplier's contact fields
func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid supplier id")
		return
	}

	var req SupplierRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	supplier := &domain.Supplier{
		ID:      id,
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		City:    req.City,
	}
	if err := h.parties.UpdateSupplier(r.Context(), supplier); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, supplier)
}

// Deactivate logically deletes a supplier
func (h *SupplierHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid supplier id")
		return
	}

	if err := h.parties.DeactivateSupplier(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "supplier deactivated"})
}
