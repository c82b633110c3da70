package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmapos/internal/domain"
	"farmapos/internal/middleware"
	"farmapos/internal/repository"
	"farmapos/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Canned order service for handler tests
type stubOrderService struct {
	lastSaleInput     service.CreateSaleInput
	saleErr           error
	lastPurchaseInput service.CreatePurchaseInput
	purchaseCalls     int
	purchaseErr       error
}

func (s *stubOrderService) CreateSale(_ context.Context, in service.CreateSaleInput) (*domain.Sale, error) {
	s.lastSaleInput = in
	if s.saleErr != nil {
		return nil, s.saleErr
	}
	return &domain.Sale{
		ID:       1,
		ClientID: in.ClientID,
		UserID:   in.UserID,
		Total:    decimal.RequireFromString("25.00"),
		Details:  []domain.SaleDetail{},
	}, nil
}

func (s *stubOrderService) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	return nil, &domain.NotFoundError{Entity: "sale", ID: id}
}

func (s *stubOrderService) ListSales(_ context.Context, _ repository.OrderFilter) ([]*domain.Sale, error) {
	return []*domain.Sale{}, nil
}

func (s *stubOrderService) CreatePurchase(_ context.Context, in service.CreatePurchaseInput) (*domain.Purchase, error) {
	s.lastPurchaseInput = in
	s.purchaseCalls++
	if s.purchaseErr != nil {
		return nil, s.purchaseErr
	}
	return &domain.Purchase{
		ID:         1,
		SupplierID: in.SupplierID,
		UserID:     in.UserID,
		Total:      decimal.RequireFromString("42.00"),
		Details:    []domain.PurchaseDetail{},
	}, nil
}

func (s *stubOrderService) GetPurchase(_ context.Context, id int64) (*domain.Purchase, error) {
	return nil, &domain.NotFoundError{Entity: "purchase", ID: id}
}

func (s *stubOrderService) ListPurchases(_ context.Context, _ repository.OrderFilter) ([]*domain.Purchase, error) {
	return []*domain.Purchase{}, nil
}

// withUser attaches authenticated-caller context the way the auth middleware does
func withUser(req *http.Request, userID int64) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.UserRoleKey, "cashier")
	return req.WithContext(ctx)
}

func postSale(t *testing.T, handler *SaleHandler, payload any, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/sales", bytes.NewReader(body))
	req = withUser(req, userID)
	w := httptest.NewRecorder()
	handler.Create(w, req)
	return w
}

func TestSaleHandler_CreateFillsUserFromToken(t *testing.T) {
	stub := &stubOrderService{}
	handler := NewSaleHandler(stub, zap.NewNop())

	w := postSale(t, handler, CreateSaleRequest{
		ClientID:      3,
		PaymentMethod: "cash",
		Details: []SaleLineRequest{
			{BatchID: 8, Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
	}, 42)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(42), stub.lastSaleInput.UserID)
	assert.Equal(t, int64(3), stub.lastSaleInput.ClientID)
	require.Len(t, stub.lastSaleInput.Details, 1)
	assert.Equal(t, int64(8), stub.lastSaleInput.Details[0].BatchID)
}

func TestSaleHandler_CreateRejectsEmptyDetails(t *testing.T) {
	stub := &stubOrderService{}
	handler := NewSaleHandler(stub, zap.NewNop())

	w := postSale(t, handler, CreateSaleRequest{
		ClientID:      3,
		PaymentMethod: "cash",
		Details:       []SaleLineRequest{},
	}, 42)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, middleware.CodeValidationFailed, resp.Error.Code)
}

func TestSaleHandler_CreateMapsInsufficientStock(t *testing.T) {
	stub := &stubOrderService{
		saleErr: &domain.InsufficientStockError{BatchID: 8, Available: 1, Requested: 2},
	}
	handler := NewSaleHandler(stub, zap.NewNop())

	w := postSale(t, handler, CreateSaleRequest{
		ClientID:      3,
		PaymentMethod: "cash",
		Details: []SaleLineRequest{
			{BatchID: 8, Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
	}, 42)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, middleware.CodeInsufficientStock, resp.Error.Code)
}

func TestSaleHandler_CreateRejectsNegativeUnitPrice(t *testing.T) {
	stub := &stubOrderService{}
	handler := NewSaleHandler(stub, zap.NewNop())

	w := postSale(t, handler, CreateSaleRequest{
		ClientID:      3,
		PaymentMethod: "cash",
		Details: []SaleLineRequest{
			{BatchID: 8, Quantity: 1, UnitPrice: decimal.RequireFromString("-0.01")},
		},
	}, 42)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, middleware.CodeValidationFailed, resp.Error.Code)
	assert.Zero(t, stub.lastSaleInput.ClientID)
}

func TestSaleHandler_CreateRejectsBadDate(t *testing.T) {
	stub := &stubOrderService{}
	handler := NewSaleHandler(stub, zap.NewNop())

	w := postSale(t, handler, CreateSaleRequest{
		ClientID:      3,
		SaleDate:      "31-12-2025",
		PaymentMethod: "cash",
		Details: []SaleLineRequest{
			{BatchID: 8, Quantity: 1, UnitPrice: decimal.RequireFromString("1.00")},
		},
	}, 42)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
