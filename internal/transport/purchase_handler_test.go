package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmapos/internal/middleware"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func postPurchase(t *testing.T, handler *PurchaseHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/purchases", bytes.NewReader(body))
	req = withUser(req, 42)
	w := httptest.NewRecorder()
	handler.Create(w, req)
	return w
}

func TestPurchaseHandler_FullDescriptorRoutesToProductCreation(t *testing.T) {
	stub := &stubOrderService{}
	handler := NewPurchaseHandler(stub, zap.NewNop())

	w := postPurchase(t, handler, CreatePurchaseRequest{
		SupplierID:    5,
		PaymentMethod: "cash",
		Details: []PurchaseLineRequest{
			{
				ProductName:   "Cetirizine",
				CategoryID:    7,
				Presentation:  "tablets",
				Concentration: "10mg",
				Quantity:      30,
				UnitPrice:     decimal.RequireFromString("2.10"),
				PurchasePrice: decimal.NewNullDecimal(decimal.RequireFromString("1.80")),
			},
		},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, stub.lastPurchaseInput.Details, 1)

	line := stub.lastPurchaseInput.Details[0]
	require.NotNil(t, line.Product)
	assert.Equal(t, "Cetirizine", line.Product.Name)
	assert.Equal(t, "tablets", line.Product.Presentation)
	assert.Equal(t, "10mg", line.Product.Concentration)
	require.True(t, line.PurchasePrice.Valid)
	assert.True(t, line.PurchasePrice.Decimal.Equal(decimal.RequireFromString("1.80")))
}

func TestPurchaseHandler_PartialDescriptorIsRejected(t *testing.T) {
	tests := []struct {
		name string
		line PurchaseLineRequest
	}{
		{
			name: "name and category only",
			line: PurchaseLineRequest{
				ProductName: "Cetirizine",
				CategoryID:  7,
				Quantity:    5,
				UnitPrice:   decimal.RequireFromString("2.10"),
			},
		},
		{
			name: "missing category",
			line: PurchaseLineRequest{
				ProductName:   "Cetirizine",
				Presentation:  "tablets",
				Concentration: "10mg",
				Quantity:      5,
				UnitPrice:     decimal.RequireFromString("2.10"),
			},
		},
		{
			name: "batch id with stray product name",
			line: PurchaseLineRequest{
				BatchID:     int64Ptr(3),
				ProductName: "Cetirizine",
				Quantity:    5,
				UnitPrice:   decimal.RequireFromString("2.10"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubOrderService{}
			handler := NewPurchaseHandler(stub, zap.NewNop())

			w := postPurchase(t, handler, CreatePurchaseRequest{
				SupplierID:    5,
				PaymentMethod: "cash",
				Details:       []PurchaseLineRequest{tt.line},
			})

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, stub.purchaseCalls)

			var resp middleware.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, middleware.CodeValidationFailed, resp.Error.Code)
		})
	}
}

func TestPurchaseHandler_BatchIDAloneRoutesToRestock(t *testing.T) {
	stub := &stubOrderService{}
	handler := NewPurchaseHandler(stub, zap.NewNop())

	w := postPurchase(t, handler, CreatePurchaseRequest{
		SupplierID:    5,
		PaymentMethod: "cash",
		Details: []PurchaseLineRequest{
			{BatchID: int64Ptr(3), Quantity: 40, UnitPrice: decimal.RequireFromString("4.25")},
		},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, stub.lastPurchaseInput.Details, 1)

	line := stub.lastPurchaseInput.Details[0]
	assert.Nil(t, line.Product)
	require.NotNil(t, line.BatchID)
	assert.Equal(t, int64(3), *line.BatchID)
}

func TestPurchaseHandler_RejectsNegativePrices(t *testing.T) {
	stub := &stubOrderService{}
	handler := NewPurchaseHandler(stub, zap.NewNop())

	w := postPurchase(t, handler, CreatePurchaseRequest{
		SupplierID:    5,
		PaymentMethod: "cash",
		Details: []PurchaseLineRequest{
			{BatchID: int64Ptr(3), Quantity: 1, UnitPrice: decimal.RequireFromString("-1.00")},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, stub.purchaseCalls)
}

func int64Ptr(v int64) *int64 { return &v }
