package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmapos/internal/domain"
	"farmapos/internal/notify"
	"farmapos/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// subtotalTolerance bounds how far a client-submitted subtotal may drift from
// the computed one before a discrepancy is logged. The computed value is
// persisted either way.
var subtotalTolerance = decimal.New(1, -2)

// SaleLineInput is one submitted sale line. Subtotal is advisory: the server
// recomputes it from unit price and quantity.
type SaleLineInput struct {
	BatchID   int64
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// CreateSaleInput carries everything needed to record a sale
type CreateSaleInput struct {
	ClientID      int64
	UserID        int64
	SaleDate      time.Time
	PaymentMethod string
	Details       []SaleLineInput
}

// PurchaseLineInput is one submitted purchase line. Exactly one of BatchID
// and Product must be set; when both are, the descriptor wins and a new
// batch is created for the resolved product.
type PurchaseLineInput struct {
	BatchID        *int64
	Product        *ProductDescriptor
	ExpirationDate *time.Time
	Quantity       int
	UnitPrice      decimal.Decimal
	Subtotal       decimal.Decimal
	PurchasePrice  decimal.NullDecimal
	SalePrice      decimal.NullDecimal
}

// CreatePurchaseInput carries everything needed to record a purchase
type CreatePurchaseInput struct {
	SupplierID    int64
	UserID        int64
	PurchaseDate  time.Time
	PaymentMethod string
	Details       []PurchaseLineInput
}

// OrderService records sales and purchases as atomic units of work: header,
// lines, and every stock movement commit together or not at all.
type OrderService interface {
	CreateSale(ctx context.Context, in CreateSaleInput) (*domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	ListSales(ctx context.Context, filter repository.OrderFilter) ([]*domain.Sale, error)
	CreatePurchase(ctx context.Context, in CreatePurchaseInput) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, filter repository.OrderFilter) ([]*domain.Purchase, error)
}

type orderService struct {
	store     *repository.Store
	inventory InventoryService
	notifier  notify.Notifier
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(store *repository.Store, inventory InventoryService, notifier notify.Notifier, logger *zap.Logger) OrderService {
	return &orderService{
		store:     store,
		inventory: inventory,
		notifier:  notifier,
		logger:    logger,
	}
}

// authoritativeSubtotal computes the persisted line subtotal
func authoritativeSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// checkSubmittedSubtotal logs when a submitted subtotal drifts beyond the
// tolerance. Discrepancies never block the order.
func (s *orderService) checkSubmittedSubtotal(kind string, line int, submitted, computed decimal.Decimal) {
	if submitted.IsZero() {
		return
	}
	if submitted.Sub(computed).Abs().LessThanOrEqual(subtotalTolerance) {
		return
	}
	s.logger.Warn("Submitted subtotal differs from computed value",
		zap.String("order_type", kind),
		zap.Int("line", line),
		zap.String("submitted", submitted.StringFixed(2)),
		zap.String("computed", computed.StringFixed(2)),
	)
}

// CreateSale validates the client, the user, and every line, then commits
// header, lines, and stock decrements as one transaction. Stock checks are
// repeated atomically at decrement time, so two concurrent sales can never
// drive a batch negative.
func (s *orderService) CreateSale(ctx context.Context, in CreateSaleInput) (*domain.Sale, error) {
	if len(in.Details) == 0 {
		return nil, fmt.Errorf("sale requires at least one line")
	}

	var saleID int64
	err := s.store.WithinTx(ctx, func(tx repository.DBTX) error {
		clients := repository.NewClientRepository(tx)
		users := repository.NewUserRepository(tx)
		batches := repository.NewBatchRepository(tx)
		sales := repository.NewSaleRepository(tx)

		if _, err := clients.FindByID(ctx, in.ClientID); err != nil {
			if errors.Is(err, repository.ErrClientNotFound) {
				return &domain.NotFoundError{Entity: "client", ID: in.ClientID}
			}
			return err
		}
		if _, err := users.FindByID(ctx, in.UserID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return &domain.NotFoundError{Entity: "user", ID: in.UserID}
			}
			return err
		}

		total := decimal.Zero
		lines := make([]domain.SaleDetail, 0, len(in.Details))
		for i, line := range in.Details {
			if line.Quantity <= 0 {
				return fmt.Errorf("line %d: quantity must be positive", i)
			}
			if line.UnitPrice.IsNegative() {
				return fmt.Errorf("line %d: unit price must not be negative", i)
			}

			batch, err := batches.FindByID(ctx, line.BatchID)
			if err != nil {
				if errors.Is(err, repository.ErrBatchNotFound) {
					return &domain.NotFoundError{Entity: "batch", ID: line.BatchID}
				}
				return err
			}
			if !batch.Active {
				return &domain.InactiveError{Entity: "batch", ID: line.BatchID}
			}
			if batch.Stock < line.Quantity {
				return &domain.InsufficientStockError{
					BatchID:   line.BatchID,
					Available: batch.Stock,
					Requested: line.Quantity,
				}
			}

			subtotal := authoritativeSubtotal(line.UnitPrice, line.Quantity)
			s.checkSubmittedSubtotal("sale", i, line.Subtotal, subtotal)
			total = total.Add(subtotal)

			lines = append(lines, domain.SaleDetail{
				BatchID:   line.BatchID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice.Round(2),
				Subtotal:  subtotal,
			})
		}

		saleDate := in.SaleDate
		if saleDate.IsZero() {
			saleDate = time.Now()
		}

		sale := &domain.Sale{
			ClientID:      in.ClientID,
			UserID:        in.UserID,
			SaleDate:      saleDate,
			PaymentMethod: in.PaymentMethod,
			Total:         total,
		}
		if err := sales.InsertHeader(ctx, sale); err != nil {
			return err
		}

		for i := range lines {
			lines[i].SaleID = sale.ID
			if err := sales.InsertDetail(ctx, &lines[i]); err != nil {
				return err
			}
			if err := s.inventory.Decrement(ctx, tx, lines[i].BatchID, lines[i].Quantity); err != nil {
				return err
			}
		}

		saleID = sale.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	sale, err := repository.NewSaleRepository(s.store.DB()).GetEnriched(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload sale %d: %w", saleID, err)
	}

	s.logger.Info("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("client_id", sale.ClientID),
		zap.Int("lines", len(sale.Details)),
		zap.String("total", sale.Total.StringFixed(2)),
	)
	s.sendReceipt(ctx, sale)

	return sale, nil
}

// sendReceipt posts a best-effort receipt after commit; a failed delivery is
// logged and otherwise ignored.
func (s *orderService) sendReceipt(ctx context.Context, sale *domain.Sale) {
	recipient := sale.ClientEmail
	if recipient == "" {
		recipient = sale.ClientPhone
	}
	if recipient == "" {
		return
	}

	msg := notify.Message{
		Recipient: recipient,
		Subject:   fmt.Sprintf("Receipt for sale #%d", sale.ID),
		Body: fmt.Sprintf("Thank you %s. %d item(s), total %s, paid by %s.",
			sale.ClientName, len(sale.Details), sale.Total.StringFixed(2), sale.PaymentMethod),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send sale receipt",
			zap.Int64("sale_id", sale.ID),
			zap.Error(err),
		)
	}
}

func (s *orderService) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := repository.NewSaleRepository(s.store.DB()).GetEnriched(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return nil, &domain.NotFoundError{Entity: "sale", ID: id}
		}
		return nil, err
	}
	return sale, nil
}

func (s *orderService) ListSales(ctx context.Context, filter repository.OrderFilter) ([]*domain.Sale, error) {
	return repository.NewSaleRepository(s.store.DB()).List(ctx, filter)
}

// CreatePurchase validates the supplier, the user, and every line, then
// commits header, lines, and stock movements as one transaction. Lines
// naming an existing batch restock it; lines carrying a product descriptor
// resolve the product through the catalog and open a fresh batch.
func (s *orderService) CreatePurchase(ctx context.Context, in CreatePurchaseInput) (*domain.Purchase, error) {
	if len(in.Details) == 0 {
		return nil, fmt.Errorf("purchase requires at least one line")
	}

	var purchaseID int64
	err := s.store.WithinTx(ctx, func(tx repository.DBTX) error {
		suppliers := repository.NewSupplierRepository(tx)
		users := repository.NewUserRepository(tx)
		batches := repository.NewBatchRepository(tx)
		purchases := repository.NewPurchaseRepository(tx)
		resolver := NewCatalogService(repository.NewProductRepository(tx), s.logger)

		if _, err := suppliers.FindByID(ctx, in.SupplierID); err != nil {
			if errors.Is(err, repository.ErrSupplierNotFound) {
				return &domain.NotFoundError{Entity: "supplier", ID: in.SupplierID}
			}
			return err
		}
		if _, err := users.FindByID(ctx, in.UserID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return &domain.NotFoundError{Entity: "user", ID: in.UserID}
			}
			return err
		}

		// The total only depends on submitted prices and quantities, so it
		// is settled before the header is written.
		total := decimal.Zero
		subtotals := make([]decimal.Decimal, len(in.Details))
		for i, line := range in.Details {
			if line.Quantity <= 0 {
				return fmt.Errorf("line %d: quantity must be positive", i)
			}
			if line.UnitPrice.IsNegative() {
				return fmt.Errorf("line %d: unit price must not be negative", i)
			}

			subtotals[i] = authoritativeSubtotal(line.UnitPrice, line.Quantity)
			s.checkSubmittedSubtotal("purchase", i, line.Subtotal, subtotals[i])
			total = total.Add(subtotals[i])
		}

		purchaseDate := in.PurchaseDate
		if purchaseDate.IsZero() {
			purchaseDate = time.Now()
		}

		purchase := &domain.Purchase{
			SupplierID:    in.SupplierID,
			UserID:        in.UserID,
			PurchaseDate:  purchaseDate,
			PaymentMethod: in.PaymentMethod,
			Total:         total,
		}
		if err := purchases.InsertHeader(ctx, purchase); err != nil {
			return err
		}

		for i, line := range in.Details {
			batchID, err := s.receiveLine(ctx, tx, resolver, batches, i, line)
			if err != nil {
				return err
			}

			detail := &domain.PurchaseDetail{
				PurchaseID: purchase.ID,
				BatchID:    batchID,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice.Round(2),
				Subtotal:   subtotals[i],
			}
			if err := purchases.InsertDetail(ctx, detail); err != nil {
				return err
			}
		}

		purchaseID = purchase.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	purchase, err := repository.NewPurchaseRepository(s.store.DB()).GetEnriched(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload purchase %d: %w", purchaseID, err)
	}

	s.logger.Info("Purchase recorded",
		zap.Int64("purchase_id", purchase.ID),
		zap.Int64("supplier_id", purchase.SupplierID),
		zap.Int("lines", len(purchase.Details)),
		zap.String("total", purchase.Total.StringFixed(2)),
	)

	return purchase, nil
}

// receiveLine routes a purchase line to its stock movement and returns the
// batch the line settled on. A descriptor opens a new batch seeded with the
// line quantity; a bare batch id restocks the existing batch.
func (s *orderService) receiveLine(
	ctx context.Context,
	tx repository.DBTX,
	resolver CatalogResolver,
	batches repository.BatchRepository,
	line int,
	in PurchaseLineInput,
) (int64, error) {
	switch {
	case in.Product != nil:
		product, err := resolver.Resolve(ctx, *in.Product)
		if err != nil {
			return 0, err
		}

		// Batch prices fall back to the line's unit price when not supplied
		purchasePrice := in.PurchasePrice
		if !purchasePrice.Valid {
			purchasePrice = decimal.NullDecimal{Decimal: in.UnitPrice.Round(2), Valid: true}
		}
		salePrice := in.SalePrice
		if !salePrice.Valid {
			salePrice = decimal.NullDecimal{Decimal: in.UnitPrice.Round(2), Valid: true}
		}
		batch := &domain.Batch{
			ProductID:      product.ID,
			ExpirationDate: in.ExpirationDate,
			Stock:          in.Quantity,
			PurchasePrice:  purchasePrice,
			SalePrice:      salePrice,
		}
		if err := batches.Create(ctx, batch); err != nil {
			return 0, err
		}
		return batch.ID, nil

	case in.BatchID != nil:
		if err := s.inventory.Increment(ctx, tx, *in.BatchID, in.Quantity); err != nil {
			return 0, err
		}
		return *in.BatchID, nil

	default:
		return 0, fmt.Errorf("line %d: %w", line, domain.ErrMissingLineSource)
	}
}

func (s *orderService) GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error) {
	purchase, err := repository.NewPurchaseRepository(s.store.DB()).GetEnriched(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseNotFound) {
			return nil, &domain.NotFoundError{Entity: "purchase", ID: id}
		}
		return nil, err
	}
	return purchase, nil
}

func (s *orderService) ListPurchases(ctx context.Context, filter repository.OrderFilter) ([]*domain.Purchase, error) {
	return repository.NewPurchaseRepository(s.store.DB()).List(ctx, filter)
}
