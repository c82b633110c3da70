package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"farmapos/internal/domain"
	"farmapos/internal/service"

	"go.uber.org/zap"
)

// Stable wire error codes. Clients dispatch on these, not on messages.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeNotFound           = "NOT_FOUND"
	CodeInactive           = "RESOURCE_INACTIVE"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeMissingLineSource  = "MISSING_LINE_SOURCE"
	CodeIntegrityViolation = "INTEGRITY_VIOLATION"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	RespondWithErrorDetails(w, statusCode, code, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	json.NewEncoder(w).Encode(response)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	details := make(map[string]interface{})
	details["validation_errors"] = errors

	RespondWithErrorDetails(w, http.StatusBadRequest, CodeValidationFailed, "validation failed", details)
}

// RespondWithDomainError maps service-layer failures onto the wire contract.
// Unknown errors are logged and collapse to a 500 so internals never leak.
func RespondWithDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var notFound *domain.NotFoundError
	var inactive *domain.InactiveError
	var insufficient *domain.InsufficientStockError
	var integrity *domain.IntegrityError
	var storage *domain.StorageError

	switch {
	case errors.As(err, &notFound):
		RespondWithErrorDetails(w, http.StatusNotFound, CodeNotFound, notFound.Error(), map[string]interface{}{
			"entity": notFound.Entity,
			"id":     notFound.ID,
		})
	case errors.As(err, &inactive):
		RespondWithErrorDetails(w, http.StatusConflict, CodeInactive, inactive.Error(), map[string]interface{}{
			"entity": inactive.Entity,
			"id":     inactive.ID,
		})
	case errors.As(err, &insufficient):
		RespondWithErrorDetails(w, http.StatusConflict, CodeInsufficientStock, insufficient.Error(), map[string]interface{}{
			"batch_id":  insufficient.BatchID,
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, domain.ErrMissingLineSource):
		RespondWithError(w, http.StatusBadRequest, CodeMissingLineSource, err.Error())
	case errors.Is(err, domain.ErrNoActiveBatches):
		RespondWithError(w, http.StatusConflict, CodeIntegrityViolation, err.Error())
	case errors.As(err, &integrity):
		RespondWithErrorDetails(w, http.StatusConflict, CodeIntegrityViolation, "request violates a data constraint", map[string]interface{}{
			"constraint": integrity.Constraint,
		})
	case errors.As(err, &storage):
		RespondWithError(w, http.StatusServiceUnavailable, CodeStorageUnavailable, "storage temporarily unavailable")
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrUserInactive):
		RespondWithError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
