package transport

import (
	"net/http"

	"farmapos/internal/middleware"
	"farmapos/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AlertHandler handles HTTP requests for inventory alerts
type AlertHandler struct {
	alerts service.AlertService
	logger *zap.Logger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alerts service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, logger: logger}
}

// RegisterRoutes registers alert routes
func (h *AlertHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/alerts", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequirePermission("products.view", h.logger)).Get("/low-stock", h.LowStock)
		r.With(middleware.RequirePermission("products.view", h.logger)).Get("/expiring", h.Expiring)
	})
}

// LowStock returns batches at or below the stock threshold
func (h *AlertHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := queryInt(r, "threshold", 0)

	alerts, err := h.alerts.LowStock(r.Context(), threshold)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, alerts)
}

// Expiring returns batches expiring within the requested window
func (h *AlertHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 0)

	alerts, err := h.alerts.Expiring(r.Context(), days)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, alerts)
}
