package transport

import (
	"net/http"

	"farmapos/internal/domain"
	"farmapos/internal/middleware"
	"farmapos/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ClientRequest represents the client create/update payload
type ClientRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// ClientHandler handles HTTP requests for clients
type ClientHandler struct {
	parties service.PartyService
	logger  *zap.Logger
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(parties service.PartyService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{parties: parties, logger: logger}
}

// RegisterRoutes registers client routes
func (h *ClientHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/clients", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequirePermission("clients.view", h.logger)).Get("/", h.List)
		r.With(middleware.RequirePermission("clients.view", h.logger)).Get("/{id}", h.Get)
		r.With(middleware.RequirePermission("clients.create", h.logger)).Post("/", h.Create)
		r.With(middleware.RequirePermission("clients.edit", h.logger)).Put("/{id}", h.Update)
		r.With(middleware.RequirePermission("clients.delete", h.logger)).Delete("/{id}", h.Deactivate)
	})
}

// Create registers a client
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	client := &domain.Client{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
	}
	if err := h.parties.CreateClient(r.Context(), client); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, client)
}

// List returns active clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.parties.ListClients(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, clients)
}

// Get returns one client
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid client id")
		return
	}

	client, err := h.parties.GetClient(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, client)
}

// Update replaces the client's contact fields
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid client id")
		return
	}

	var req ClientRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return
	}

	client := &domain.Client{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
	}
	if err := h.parties.UpdateClient(r.Context(), client); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, client)
}

// Deactivate logically deletes a client
func (h *ClientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid client id")
		return
	}

	if err := h.parties.DeactivateClient(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "client deactivated"})
}
