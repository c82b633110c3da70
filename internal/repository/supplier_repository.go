package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"farmapos/internal/domain"
)

var (
	ErrSupplierNotFound = errors.New("supplier not found")
)

// SupplierRepository defines the interface for supplier data access
type SupplierRepository interface {
	Create(ctx context.Context, supplier *domain.Supplier) error
	FindByID(ctx context.Context, id int64) (*domain.Supplier, error)
	List(ctx context.Context) ([]*domain.Supplier, error)
	Update(ctx context.Context, supplier *domain.Supplier) error
	Deactivate(ctx context.Context, id int64) error
}

type supplierRepository struct {
	db DBTX
}

// NewSupplierRepository creates a new instance of SupplierRepository
func NewSupplierRepository(db DBTX) SupplierRepository {
	return &supplierRepository{db: db}
}

// Create inserts a new supplier and fills in the generated id
func (r *supplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		INSERT INTO suppliers (name, phone, email, address, city, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`

	supplier.Active = true

	err := r.db.QueryRowContext(
		ctx,
		query,
		supplier.Name,
		supplier.Phone,
		supplier.Email,
		supplier.Address,
		supplier.City,
	).Scan(&supplier.ID)

	if err != nil {
		return Translate("create supplier", err)
	}

	return nil
}

// FindByID retrieves a supplier by ID
func (r *supplierRepository) FindByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	query := `
		SELECT id, name, phone, email, address, city, active
		FROM suppliers
		WHERE id = $1
	`

	supplier := &domain.Supplier{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&supplier.ID,
		&supplier.Name,
		&supplier.Phone,
		&supplier.Email,
		&supplier.Address,
		&supplier.City,
		&supplier.Active,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSupplierNotFound
		}
		return nil, Translate("find supplier by ID", err)
	}

	return supplier, nil
}

// List retrieves all active suppliers
func (r *supplierRepository) List(ctx context.Context) ([]*domain.Supplier, error) {
	query := `
		SELECT id, name, phone, email, address, city, active
		FROM suppliers
		WHERE active
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, Translate("list suppliers", err)
	}
	defer rows.Close()

	suppliers := []*domain.Supplier{}
	for rows.Next() {
		supplier := &domain.Supplier{}
		err := rows.Scan(
			&supplier.ID,
			&supplier.Name,
			&supplier.Phone,
			&supplier.Email,
			&supplier.Address,
			&supplier.City,
			&supplier.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suppliers: %w", err)
	}

	return suppliers, nil
}

// Update writes all mutable supplier fields
func (r *supplierRepository) Update(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		UPDATE suppliers
		SET name = $2, phone = $3, email = $4, address = $5, city = $6, active = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		supplier.ID,
		supplier.Name,
		supplier.Phone,
		supplier.Email,
		supplier.Address,
		supplier.City,
		supplier.Active,
	)

	if err != nil {
		return Translate("update supplier", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSupplierNotFound
	}

	return nil
}

// Deactivate logically deletes a supplier
func (r *supplierRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE suppliers SET active = FALSE WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return Translate("deactivate supplier", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSupplierNotFound
	}

	return nil
}
