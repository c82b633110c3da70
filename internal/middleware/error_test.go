package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmapos/internal/domain"
	"farmapos/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRespondWithDomainError_Mapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        &domain.NotFoundError{Entity: "batch", ID: 9},
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
		},
		{
			name:       "inactive",
			err:        &domain.InactiveError{Entity: "batch", ID: 4},
			wantStatus: http.StatusConflict,
			wantCode:   CodeInactive,
		},
		{
			name:       "insufficient stock",
			err:        &domain.InsufficientStockError{BatchID: 3, Available: 1, Requested: 5},
			wantStatus: http.StatusConflict,
			wantCode:   CodeInsufficientStock,
		},
		{
			name:       "missing line source",
			err:        domain.ErrMissingLineSource,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeMissingLineSource,
		},
		{
			name:       "integrity violation",
			err:        &domain.IntegrityError{Constraint: "products.category"},
			wantStatus: http.StatusConflict,
			wantCode:   CodeIntegrityViolation,
		},
		{
			name:       "no active batches",
			err:        domain.ErrNoActiveBatches,
			wantStatus: http.StatusConflict,
			wantCode:   CodeIntegrityViolation,
		},
		{
			name:       "storage unavailable",
			err:        &domain.StorageError{Err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   CodeStorageUnavailable,
		},
		{
			name:       "invalid credentials",
			err:        service.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeUnauthorized,
		},
		{
			name:       "unknown error collapses to 500",
			err:        errors.New("something internal exploded"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithDomainError(w, zap.NewNop(), tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Timestamp)
		})
	}
}

func TestRespondWithDomainError_InsufficientStockDetails(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithDomainError(w, zap.NewNop(), &domain.InsufficientStockError{BatchID: 12, Available: 2, Requested: 6})

	resp := decodeError(t, w)
	assert.EqualValues(t, 12, resp.Error.Details["batch_id"])
	assert.EqualValues(t, 2, resp.Error.Details["available"])
	assert.EqualValues(t, 6, resp.Error.Details["requested"])
}

func TestRespondWithDomainError_InternalErrorsNeverLeakText(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithDomainError(w, zap.NewNop(), errors.New("pq: password authentication failed"))

	resp := decodeError(t, w)
	assert.Equal(t, "internal server error", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestErrorHandlingMiddleware_RecoversPanics(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, CodeInternal, resp.Error.Code)
}

func TestRespondWithValidationErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{
		{Field: "ClientID", Message: "This field is required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, CodeValidationFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "validation_errors")
}
