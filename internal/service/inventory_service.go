package service

import (
	"context"
	"errors"
	"fmt"

	"farmapos/internal/domain"
	"farmapos/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryService is the sole authority for batch stock and pricing
// mutation. Decrement and Increment participate in the caller's transaction;
// the administrative overrides open their own unit of work.
type InventoryService interface {
	Decrement(ctx context.Context, tx repository.DBTX, batchID int64, qty int) error
	Increment(ctx context.Context, tx repository.DBTX, batchID int64, qty int) error
	SetTotalStock(ctx context.Context, productID int64, newTotal int) ([]*domain.Batch, error)
	SetPrice(ctx context.Context, productID int64, price decimal.Decimal) error
}

type inventoryService struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewInventoryService creates a new instance of InventoryService
func NewInventoryService(store *repository.Store, logger *zap.Logger) InventoryService {
	return &inventoryService{store: store, logger: logger}
}

// Decrement applies stock -= qty within the caller's transaction. The
// conditional update guards against concurrent sales: when it touches no row
// the failure is re-derived from a fresh read so the caller learns whether
// the batch vanished or the stock ran out.
func (s *inventoryService) Decrement(ctx context.Context, tx repository.DBTX, batchID int64, qty int) error {
	batches := repository.NewBatchRepository(tx)

	ok, err := batches.DecrementStock(ctx, batchID, qty)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	batch, err := batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return &domain.NotFoundError{Entity: "batch", ID: batchID}
		}
		return err
	}

	return &domain.InsufficientStockError{
		BatchID:   batchID,
		Available: batch.Stock,
		Requested: qty,
	}
}

// Increment applies stock += qty within the caller's transaction
func (s *inventoryService) Increment(ctx context.Context, tx repository.DBTX, batchID int64, qty int) error {
	batches := repository.NewBatchRepository(tx)

	if err := batches.IncrementStock(ctx, batchID, qty); err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return &domain.NotFoundError{Entity: "batch", ID: batchID}
		}
		return err
	}

	return nil
}

// SetTotalStock is the administrative stock override: the entire new total
// lands on the most recently created active batch, every other active batch
// is zeroed, and no price field is touched. With no active batch a fresh one
// is created holding the total, with prices left unset. Calling it twice
// with the same value yields the same distribution.
func (s *inventoryService) SetTotalStock(ctx context.Context, productID int64, newTotal int) ([]*domain.Batch, error) {
	var result []*domain.Batch

	err := s.store.WithinTx(ctx, func(tx repository.DBTX) error {
		products := repository.NewProductRepository(tx)
		batches := repository.NewBatchRepository(tx)

		if _, err := products.FindByID(ctx, productID); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return &domain.NotFoundError{Entity: "product", ID: productID}
			}
			return err
		}

		active, err := batches.ListActiveByProduct(ctx, productID)
		if err != nil {
			return err
		}

		if len(active) == 0 {
			batch := &domain.Batch{ProductID: productID, Stock: newTotal}
			if err := batches.Create(ctx, batch); err != nil {
				return err
			}
			result = []*domain.Batch{batch}
			return nil
		}

		// Ascending ids: the last element is the most recent lot
		target := active[len(active)-1]
		for _, batch := range active[:len(active)-1] {
			if batch.Stock == 0 {
				continue
			}
			if err := batches.SetStock(ctx, batch.ID, 0); err != nil {
				return err
			}
			batch.Stock = 0
		}
		if err := batches.SetStock(ctx, target.ID, newTotal); err != nil {
			return err
		}
		target.Stock = newTotal

		result = active
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product stock overridden",
		zap.Int64("product_id", productID),
		zap.Int("new_total", newTotal),
	)

	return result, nil
}

// SetPrice applies the sale price to every active batch of the product,
// touching no stock fields.
func (s *inventoryService) SetPrice(ctx context.Context, productID int64, price decimal.Decimal) error {
	err := s.store.WithinTx(ctx, func(tx repository.DBTX) error {
		products := repository.NewProductRepository(tx)
		batches := repository.NewBatchRepository(tx)

		if _, err := products.FindByID(ctx, productID); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return &domain.NotFoundError{Entity: "product", ID: productID}
			}
			return err
		}

		updated, err := batches.SetSalePriceForProduct(ctx, productID, price)
		if err != nil {
			return err
		}
		if updated == 0 {
			return fmt.Errorf("product %d: %w", productID, domain.ErrNoActiveBatches)
		}

		s.logger.Info("Product sale price updated",
			zap.Int64("product_id", productID),
			zap.String("price", price.StringFixed(2)),
			zap.Int64("batches", updated),
		)
		return nil
	})

	return err
}
