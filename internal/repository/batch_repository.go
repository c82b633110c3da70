package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"farmapos/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrBatchNotFound = errors.New("batch not found")
)

// BatchRepository defines the interface for batch (lot) data access.
// Stock mutation methods participate in the caller's transaction; they never
// commit on their own.
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.Batch) error
	FindByID(ctx context.Context, id int64) (*domain.Batch, error)
	List(ctx context.Context) ([]*domain.Batch, error)
	ListActiveByProduct(ctx context.Context, productID int64) ([]*domain.Batch, error)
	Update(ctx context.Context, batch *domain.Batch) error
	Deactivate(ctx context.Context, id int64) error

	DecrementStock(ctx context.Context, id int64, qty int) (bool, error)
	IncrementStock(ctx context.Context, id int64, qty int) error
	SetStock(ctx context.Context, id int64, stock int) error
	SetSalePriceForProduct(ctx context.Context, productID int64, price decimal.Decimal) (int64, error)
}

type batchRepository struct {
	db DBTX
}

// NewBatchRepository creates a new instance of BatchRepository
func NewBatchRepository(db DBTX) BatchRepository {
	return &batchRepository{db: db}
}

const batchColumns = `id, product_id, expiration_date, stock, purchase_price, sale_price, active, created_at`

// Create inserts a new batch and fills in the generated id
func (r *batchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	query := `
		INSERT INTO batches (product_id, expiration_date, stock, purchase_price, sale_price, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	batch.Active = true
	batch.CreatedAt = time.Now()

	err := r.db.QueryRowContext(
		ctx,
		query,
		batch.ProductID,
		batch.ExpirationDate,
		batch.Stock,
		batch.PurchasePrice,
		batch.SalePrice,
		batch.Active,
		batch.CreatedAt,
	).Scan(&batch.ID)

	if err != nil {
		return Translate("create batch", err)
	}

	return nil
}

func scanBatch(row interface{ Scan(...any) error }) (*domain.Batch, error) {
	batch := &domain.Batch{}
	err := row.Scan(
		&batch.ID,
		&batch.ProductID,
		&batch.ExpirationDate,
		&batch.Stock,
		&batch.PurchasePrice,
		&batch.SalePrice,
		&batch.Active,
		&batch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// FindByID retrieves a batch by ID
func (r *batchRepository) FindByID(ctx context.Context, id int64) (*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`

	batch, err := scanBatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBatchNotFound
		}
		return nil, Translate("find batch by ID", err)
	}

	return batch, nil
}

// List retrieves all active batches
func (r *batchRepository) List(ctx context.Context) ([]*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE active ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, Translate("list batches", err)
	}
	defer rows.Close()

	return collectBatches(rows)
}

// ListActiveByProduct retrieves a product's active batches ordered by
// creation (ascending ids), so the last element is the most recent lot.
func (r *batchRepository) ListActiveByProduct(ctx context.Context, productID int64) ([]*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE product_id = $1 AND active ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, Translate("list batches by product", err)
	}
	defer rows.Close()

	return collectBatches(rows)
}

func collectBatches(rows *sql.Rows) ([]*domain.Batch, error) {
	batches := []*domain.Batch{}
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	return batches, nil
}

// Update writes administrative batch fields. Stock is not touched here:
// stock only changes through the ledger operations below.
func (r *batchRepository) Update(ctx context.Context, batch *domain.Batch) error {
	query := `
		UPDATE batches
		SET expiration_date = $2, purchase_price = $3, sale_price = $4, active = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		batch.ID,
		batch.ExpirationDate,
		batch.PurchasePrice,
		batch.SalePrice,
		batch.Active,
	)

	if err != nil {
		return Translate("update batch", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// Deactivate logically deletes a batch
func (r *batchRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE batches SET active = FALSE WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return Translate("deactivate batch", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// DecrementStock applies an atomic conditional decrement. It reports false
// when the batch is missing or the guard `stock >= qty` fails, so concurrent
// sales against the same batch can never drive stock negative.
func (r *batchRepository) DecrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	query := `UPDATE batches SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	result, err := r.db.ExecContext(ctx, query, id, qty)
	if err != nil {
		return false, Translate("decrement batch stock", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// IncrementStock adds qty to the batch's stock
func (r *batchRepository) IncrementStock(ctx context.Context, id int64, qty int) error {
	query := `UPDATE batches SET stock = stock + $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, qty)
	if err != nil {
		return Translate("increment batch stock", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// SetStock overwrites the batch's stock, leaving prices untouched
func (r *batchRepository) SetStock(ctx context.Context, id int64, stock int) error {
	query := `UPDATE batches SET stock = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, stock)
	if err != nil {
		return Translate("set batch stock", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// SetSalePriceForProduct applies the sale price to every active batch of the
// product, touching no stock fields. Returns the number of batches updated.
func (r *batchRepository) SetSalePriceForProduct(ctx context.Context, productID int64, price decimal.Decimal) (int64, error) {
	query := `UPDATE batches SET sale_price = $2 WHERE product_id = $1 AND active`

	result, err := r.db.ExecContext(ctx, query, productID, price)
	if err != nil {
		return 0, Translate("set sale price for product", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
