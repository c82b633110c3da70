package transport

import (
	"net/http"
	"time"

	"farmapos/internal/middleware"
	"farmapos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleLineRequest is one submitted sale line. The subtotal is advisory and
// recomputed server-side.
type SaleLineRequest struct {
	BatchID   int64           `json:"batch_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CreateSaleRequest represents the sale creation payload
type CreateSaleRequest struct {
	ClientID      int64             `json:"client_id" validate:"required,gt=0"`
	SaleDate      string            `json:"sale_date"`
	PaymentMethod string            `json:"payment_method" validate:"required"`
	Details       []SaleLineRequest `json:"details" validate:"required,min=1,dive"`
}

// SaleHandler handles HTTP requests for sales
type SaleHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(orders service.OrderService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers sale routes. The rate limiter only guards order
// submission; reads stay unthrottled.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimiter func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequirePermission("sales.create", h.logger), rateLimiter).Post("/", h.Create)
		r.With(middleware.RequirePermission("sales.view", h.logger)).Get("/", h.List)
		r.With(middleware.RequirePermission("sales.view", h.logger)).Get("/{id}", h.Get)
	})
}

// Create records a sale
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sale validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.CodeUnauthorized, "authentication required")
		return
	}

	var saleDate time.Time
	if req.SaleDate != "" {
		parsed, err := time.Parse(dateLayout, req.SaleDate)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "sale_date must be YYYY-MM-DD")
			return
		}
		saleDate = parsed
	}

	in := service.CreateSaleInput{
		ClientID:      req.ClientID,
		UserID:        userID,
		SaleDate:      saleDate,
		PaymentMethod: req.PaymentMethod,
	}
	for _, line := range req.Details {
		if line.UnitPrice.IsNegative() {
			middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "unit_price must not be negative")
			return
		}
		in.Details = append(in.Details, service.SaleLineInput{
			BatchID:   line.BatchID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}

	sale, err := h.orders.CreateSale(r.Context(), in)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// List returns sales matching the query filters
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilterFromQuery(r, "client_id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid filter parameters")
		return
	}

	sales, err := h.orders.ListSales(r.Context(), filter)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sales)
}

// Get returns one sale with all display fields resolved
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid sale id")
		return
	}

	sale, err := h.orders.GetSale(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}
