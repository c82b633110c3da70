package transport

import (
	"errors"
	"net/http"
	"time"

	"farmapos/internal/middleware"
	"farmapos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseLineRequest is one submitted purchase line. Either batch_id or a
// complete product descriptor must be present; when both are, the descriptor
// wins and a fresh batch is opened.
type PurchaseLineRequest struct {
	BatchID *int64 `json:"batch_id"`

	ProductName   string `json:"product_name"`
	CategoryID    int64  `json:"category_id"`
	Presentation  string `json:"presentation"`
	Concentration string `json:"concentration"`
	Description   string `json:"description"`
	Image         string `json:"image"`

	ExpirationDate string              `json:"expiration_date"`
	Quantity       int                 `json:"quantity" validate:"required,gt=0"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	PurchasePrice  decimal.NullDecimal `json:"purchase_price"`
	SalePrice      decimal.NullDecimal `json:"sale_price"`
}

// CreatePurchaseRequest represents the purchase creation payload
type CreatePurchaseRequest struct {
	SupplierID    int64                 `json:"supplier_id" validate:"required,gt=0"`
	PurchaseDate  string                `json:"purchase_date"`
	PaymentMethod string                `json:"payment_method" validate:"required"`
	Details       []PurchaseLineRequest `json:"details" validate:"required,min=1,dive"`
}

// PurchaseHandler handles HTTP requests for purchases
type PurchaseHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(orders service.OrderService, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers purchase routes
func (h *PurchaseHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimiter func(http.Handler) http.Handler) {
	r.Route("/api/purchases", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequirePermission("purchases.create", h.logger), rateLimiter).Post("/", h.Create)
		r.With(middleware.RequirePermission("purchases.view", h.logger)).Get("/", h.List)
		r.With(middleware.RequirePermission("purchases.view", h.logger)).Get("/{id}", h.Get)
	})
}

// toLineInput maps a request line onto the service input, deciding between
// the restock shape and the new-product shape. The descriptor shape requires
// name, category_id, presentation, and concentration together: a partial
// descriptor never silently creates a product with blank triple components.
func (h *PurchaseHandler) toLineInput(req PurchaseLineRequest) (service.PurchaseLineInput, error) {
	line := service.PurchaseLineInput{
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		Subtotal:      req.Subtotal,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		BatchID:       req.BatchID,
	}

	if req.UnitPrice.IsNegative() {
		return line, errors.New("unit_price must not be negative")
	}
	if req.PurchasePrice.Valid && req.PurchasePrice.Decimal.IsNegative() {
		return line, errors.New("purchase_price must not be negative")
	}
	if req.SalePrice.Valid && req.SalePrice.Decimal.IsNegative() {
		return line, errors.New("sale_price must not be negative")
	}

	if req.ExpirationDate != "" {
		parsed, err := time.Parse(dateLayout, req.ExpirationDate)
		if err != nil {
			return line, errors.New("expiration_date must be YYYY-MM-DD")
		}
		line.ExpirationDate = &parsed
	}

	descriptorStarted := req.ProductName != "" || req.CategoryID != 0 ||
		req.Presentation != "" || req.Concentration != ""
	descriptorComplete := req.ProductName != "" && req.CategoryID > 0 &&
		req.Presentation != "" && req.Concentration != ""

	switch {
	case descriptorComplete:
		line.Product = &service.ProductDescriptor{
			Name:          req.ProductName,
			CategoryID:    req.CategoryID,
			Presentation:  req.Presentation,
			Concentration: req.Concentration,
			Description:   req.Description,
			Image:         req.Image,
		}
	case descriptorStarted:
		return line, errors.New("a product descriptor requires product_name, category_id, presentation, and concentration")
	}

	return line, nil
}

// Create records a purchase
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Purchase validation failed", zap.Error(err))
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

	var purchaseDate time.Time
	if req.PurchaseDate != "" {
		parsed, err := time.Parse(dateLayout, req.PurchaseDate)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "purchase_date must be YYYY-MM-DD")
			return
		}
		purchaseDate = parsed
	}

	in := service.CreatePurchaseInput{
		SupplierID:    req.SupplierID,
		UserID:        userID,
		PurchaseDate:  purchaseDate,
		PaymentMethod: req.PaymentMethod,
	}
	for _, lineReq := range req.Details {
		line, err := h.toLineInput(lineReq)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, err.Error())
			return
		}
		in.Details = append(in.Details, line)
	}

	purchase, err := h.orders.CreatePurchase(r.Context(), in)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, purchase)
}

// List returns purchases matching the query filters
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilterFromQuery(r, "supplier_id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid filter parameters")
		return
	}

	purchases, err := h.orders.ListPurchases(r.Context(), filter)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, purchases)
}

// Get returns one purchase with all display fields resolved
func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid purchase id")
		return
	}

	purchase, err := h.orders.GetPurchase(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, purchase)
}
