package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"farmapos/internal/domain"
	"farmapos/internal/notify"
	"farmapos/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOrderService() OrderService {
	logger := zap.NewNop()
	inventory := NewInventoryService(testStore, logger)
	return NewOrderService(testStore, inventory, notify.NewLogNotifier(logger), logger)
}

func TestCreateSale_DecrementsStockAndComputesTotals(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	clientID := seedClient(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Paracetamol")
	batchID := seedBatch(t, productID, 50, "12.50")

	orders := newOrderService()

	sale, err := orders.CreateSale(ctx, CreateSaleInput{
		ClientID:      clientID,
		UserID:        userID,
		PaymentMethod: "cash",
		Details: []SaleLineInput{
			{BatchID: batchID, Quantity: 3, UnitPrice: decimal.RequireFromString("12.50")},
		},
	})
	require.NoError(t, err)

	assert.True(t, sale.Total.Equal(decimal.RequireFromString("37.50")), "total was %s", sale.Total)
	require.Len(t, sale.Details, 1)
	assert.True(t, sale.Details[0].Subtotal.Equal(decimal.RequireFromString("37.50")))
	assert.Equal(t, "Maria Lopez", sale.ClientName)
	assert.Equal(t, 47, batchStock(t, batchID))
}

func TestCreateSale_SubmittedSubtotalIsIgnored(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	clientID := seedClient(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Ibuprofen")
	batchID := seedBatch(t, productID, 20, "8.00")

	orders := newOrderService()

	// Client claims the line costs 1.00; the server persists 16.00
	sale, err := orders.CreateSale(ctx, CreateSaleInput{
		ClientID:      clientID,
		UserID:        userID,
		PaymentMethod: "card",
		Details: []SaleLineInput{
			{BatchID: batchID, Quantity: 2, UnitPrice: decimal.RequireFromString("8.00"), Subtotal: decimal.RequireFromString("1.00")},
		},
	})
	require.NoError(t, err)
	assert.True(t, sale.Details[0].Subtotal.Equal(decimal.RequireFromString("16.00")))
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("16.00")))
}

func TestCreateSale_InsufficientStockRollsBackEverything(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	clientID := seedClient(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Amoxicillin")
	okBatch := seedBatch(t, productID, 100, "5.00")
	thinBatch := seedBatch(t, productID, 2, "5.00")

	orders := newOrderService()

	_, err := orders.CreateSale(ctx, CreateSaleInput{
		ClientID:      clientID,
		UserID:        userID,
		PaymentMethod: "cash",
		Details: []SaleLineInput{
			{BatchID: okBatch, Quantity: 10, UnitPrice: decimal.RequireFromString("5.00")},
			{BatchID: thinBatch, Quantity: 5, UnitPrice: decimal.RequireFromString("5.00")},
		},
	})

	var insufficientErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, thinBatch, insufficientErr.BatchID)
	assert.Equal(t, 2, insufficientErr.Available)
	assert.Equal(t, 5, insufficientErr.Requested)

	// Nothing committed: no headers, no lines, first batch untouched
	assert.Equal(t, 0, countRows(t, "sales"))
	assert.Equal(t, 0, countRows(t, "sale_details"))
	assert.Equal(t, 100, batchStock(t, okBatch))
	assert.Equal(t, 2, batchStock(t, thinBatch))
}

func TestCreateSale_UnknownClientFailsBeforeAnyWrite(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Loratadine")
	batchID := seedBatch(t, productID, 10, "4.00")

	orders := newOrderService()

	_, err := orders.CreateSale(ctx, CreateSaleInput{
		ClientID:      9999,
		UserID:        userID,
		PaymentMethod: "cash",
		Details:       []SaleLineInput{{BatchID: batchID, Quantity: 1, UnitPrice: decimal.RequireFromString("4.00")}},
	})

	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "client", notFound.Entity)
	assert.Equal(t, 0, countRows(t, "sales"))
	assert.Equal(t, 10, batchStock(t, batchID))
}

func TestCreateSale_InactiveBatchIsRejected(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	clientID := seedClient(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Omeprazole")
	batchID := seedBatch(t, productID, 10, "9.00")

	require.NoError(t, repository.NewBatchRepository(testDB).Deactivate(context.Background(), batchID))

	orders := newOrderService()
	_, err := orders.CreateSale(ctx, CreateSaleInput{
		ClientID:      clientID,
		UserID:        userID,
		PaymentMethod: "cash",
		Details:       []SaleLineInput{{BatchID: batchID, Quantity: 1, UnitPrice: decimal.RequireFromString("9.00")}},
	})

	var inactive *domain.InactiveError
	require.ErrorAs(t, err, &inactive)
	assert.Equal(t, "batch", inactive.Entity)
}

func TestCreateSale_ConcurrentSalesNeverOversell(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	clientID := seedClient(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Aspirin")
	batchID := seedBatch(t, productID, 10, "3.00")

	orders := newOrderService()

	// 10 units, 8 buyers wanting 3 each: at most 3 sales can succeed
	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orders.CreateSale(ctx, CreateSaleInput{
				ClientID:      clientID,
				UserID:        userID,
				PaymentMethod: "cash",
				Details:       []SaleLineInput{{BatchID: batchID, Quantity: 3, UnitPrice: decimal.RequireFromString("3.00")}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var insufficientErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &insufficientErr)
	}

	remaining := batchStock(t, batchID)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.Equal(t, 10-succeeded*3, remaining)
	assert.Equal(t, succeeded, countRows(t, "sales"))
}

func TestCreatePurchase_RestockIncrementsExistingBatch(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	supplierID := seedSupplier(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Metformin")
	batchID := seedBatch(t, productID, 5, "7.00")

	orders := newOrderService()

	purchase, err := orders.CreatePurchase(ctx, CreatePurchaseInput{
		SupplierID:    supplierID,
		UserID:        userID,
		PaymentMethod: "transfer",
		Details: []PurchaseLineInput{
			{BatchID: &batchID, Quantity: 40, UnitPrice: decimal.RequireFromString("4.25")},
		},
	})
	require.NoError(t, err)

	assert.True(t, purchase.Total.Equal(decimal.RequireFromString("170.00")))
	assert.Equal(t, 45, batchStock(t, batchID))
}

func TestCreatePurchase_DescriptorCreatesProductAndBatch(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	supplierID := seedSupplier(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)

	orders := newOrderService()

	purchase, err := orders.CreatePurchase(ctx, CreatePurchaseInput{
		SupplierID:    supplierID,
		UserID:        userID,
		PaymentMethod: "cash",
		Details: []PurchaseLineInput{
			{
				Product: &ProductDescriptor{
					Name:          "Cetirizine",
					CategoryID:    categoryID,
					Presentation:  "tablets",
					Concentration: "10mg",
				},
				Quantity:  30,
				UnitPrice: decimal.RequireFromString("2.10"),
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, purchase.Details, 1)

	// Product row created, batch seeded with the full line quantity
	product, err := repository.NewProductRepository(testDB).FindActiveByTriple(ctx, "Cetirizine", "tablets", "10mg")
	require.NoError(t, err)
	assert.Equal(t, "Cetirizine", purchase.Details[0].ProductName)
	assert.Equal(t, 30, batchStock(t, purchase.Details[0].BatchID))

	// Batch prices default to the purchase unit price
	batch, err := repository.NewBatchRepository(testDB).FindByID(ctx, purchase.Details[0].BatchID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, batch.ProductID)
	require.True(t, batch.PurchasePrice.Valid)
	assert.True(t, batch.PurchasePrice.Decimal.Equal(decimal.RequireFromString("2.10")))
	require.True(t, batch.SalePrice.Valid)
	assert.True(t, batch.SalePrice.Decimal.Equal(decimal.RequireFromString("2.10")))
}

func TestCreatePurchase_DistinctPurchasePriceIsRecorded(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	supplierID := seedSupplier(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)

	orders := newOrderService()

	// Supplier invoices at 1.80 a unit; the batch sells at 2.50
	purchase, err := orders.CreatePurchase(ctx, CreatePurchaseInput{
		SupplierID:    supplierID,
		UserID:        userID,
		PaymentMethod: "transfer",
		Details: []PurchaseLineInput{
			{
				Product: &ProductDescriptor{
					Name:          "Omeprazole",
					CategoryID:    categoryID,
					Presentation:  "capsules",
					Concentration: "20mg",
				},
				Quantity:      20,
				UnitPrice:     decimal.RequireFromString("2.10"),
				PurchasePrice: decimal.NewNullDecimal(decimal.RequireFromString("1.80")),
				SalePrice:     decimal.NewNullDecimal(decimal.RequireFromString("2.50")),
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, purchase.Details, 1)

	batch, err := repository.NewBatchRepository(testDB).FindByID(ctx, purchase.Details[0].BatchID)
	require.NoError(t, err)
	require.True(t, batch.PurchasePrice.Valid)
	assert.True(t, batch.PurchasePrice.Decimal.Equal(decimal.RequireFromString("1.80")))
	require.True(t, batch.SalePrice.Valid)
	assert.True(t, batch.SalePrice.Decimal.Equal(decimal.RequireFromString("2.50")))

	// The line total still follows the submitted unit price
	assert.True(t, purchase.Total.Equal(decimal.RequireFromString("42.00")))
}

func TestCreatePurchase_SameTripleReusesProduct(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	supplierID := seedSupplier(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)

	orders := newOrderService()

	descriptor := ProductDescriptor{
		Name:          "Naproxen",
		CategoryID:    categoryID,
		Presentation:  "tablets",
		Concentration: "250mg",
	}

	for i := 0; i < 2; i++ {
		_, err := orders.CreatePurchase(ctx, CreatePurchaseInput{
			SupplierID:    supplierID,
			UserID:        userID,
			PaymentMethod: "cash",
			Details: []PurchaseLineInput{
				{Product: &descriptor, Quantity: 10, UnitPrice: decimal.RequireFromString("1.00")},
			},
		})
		require.NoError(t, err)
	}

	// One product, two batches
	var productCount int
	require.NoError(t, testDB.QueryRow(`SELECT COUNT(*) FROM products WHERE name = 'Naproxen'`).Scan(&productCount))
	assert.Equal(t, 1, productCount)
	assert.Equal(t, 2, countRows(t, "batches"))
}

func TestCreatePurchase_DescriptorWinsOverBatchID(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	supplierID := seedSupplier(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Diclofenac")
	existingBatch := seedBatch(t, productID, 5, "6.00")

	orders := newOrderService()

	purchase, err := orders.CreatePurchase(ctx, CreatePurchaseInput{
		SupplierID:    supplierID,
		UserID:        userID,
		PaymentMethod: "cash",
		Details: []PurchaseLineInput{
			{
				BatchID: &existingBatch,
				Product: &ProductDescriptor{
					Name:          "Diclofenac",
					CategoryID:    categoryID,
					Presentation:  "tablets",
					Concentration: "500mg",
				},
				Quantity:  12,
				UnitPrice: decimal.RequireFromString("3.00"),
			},
		},
	})
	require.NoError(t, err)

	// A new batch carries the stock; the named batch is untouched
	assert.NotEqual(t, existingBatch, purchase.Details[0].BatchID)
	assert.Equal(t, 5, batchStock(t, existingBatch))
	assert.Equal(t, 12, batchStock(t, purchase.Details[0].BatchID))
}

func TestCreatePurchase_LineWithoutSourceIsRejected(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	supplierID := seedSupplier(t)
	userID := seedUser(t)

	orders := newOrderService()

	_, err := orders.CreatePurchase(ctx, CreatePurchaseInput{
		SupplierID:    supplierID,
		UserID:        userID,
		PaymentMethod: "cash",
		Details: []PurchaseLineInput{
			{Quantity: 4, UnitPrice: decimal.RequireFromString("1.50")},
		},
	})

	require.True(t, errors.Is(err, domain.ErrMissingLineSource))
	assert.Equal(t, 0, countRows(t, "purchases"))
	assert.Equal(t, 0, countRows(t, "batches"))
}

func TestListSales_FiltersByClientAndDate(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	clientID := seedClient(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Salbutamol")
	batchID := seedBatch(t, productID, 100, "15.00")

	orders := newOrderService()

	for i := 0; i < 3; i++ {
		_, err := orders.CreateSale(ctx, CreateSaleInput{
			ClientID:      clientID,
			UserID:        userID,
			PaymentMethod: "cash",
			Details:       []SaleLineInput{{BatchID: batchID, Quantity: 1, UnitPrice: decimal.RequireFromString("15.00")}},
		})
		require.NoError(t, err)
	}

	sales, err := orders.ListSales(ctx, repository.OrderFilter{CounterpartyID: &clientID})
	require.NoError(t, err)
	assert.Len(t, sales, 3)

	other := int64(424242)
	sales, err = orders.ListSales(ctx, repository.OrderFilter{CounterpartyID: &other})
	require.NoError(t, err)
	assert.Len(t, sales, 0)
}

func TestProperty_SaleTotalsMatchLineArithmetic(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	clientID := seedClient(t)
	userID := seedUser(t)
	categoryID := seedCategory(t)
	productID := seedProduct(t, categoryID, "Vitamin C")
	batchID := seedBatch(t, productID, 1_000_000, "1.00")

	orders := newOrderService()

	properties := gopter.NewProperties(nil)

	properties.Property("persisted totals equal quantity times unit price rounded to cents", prop.ForAll(
		func(quantity int, cents int) bool {
			unitPrice := decimal.New(int64(cents), -2)
			sale, err := orders.CreateSale(ctx, CreateSaleInput{
				ClientID:      clientID,
				UserID:        userID,
				PaymentMethod: "cash",
				Details:       []SaleLineInput{{BatchID: batchID, Quantity: quantity, UnitPrice: unitPrice}},
			})
			if err != nil {
				t.Logf("unexpected error: %v", err)
				return false
			}

			want := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
			return sale.Total.Equal(want) && sale.Details[0].Subtotal.Equal(want)
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 99999),
	))

	properties.TestingRun(t)
}
