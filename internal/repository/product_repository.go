package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"farmapos/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindActiveByTriple(ctx context.Context, name, presentation, concentration string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	UpdateImage(ctx context.Context, id int64, image string) error
	Deactivate(ctx context.Context, id int64) error
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product and fills in the generated id
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, description, category_id, presentation, concentration, image, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Active = true

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.CategoryID,
		product.Presentation,
		product.Concentration,
		product.Image,
		product.Active,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID)

	if err != nil {
		return Translate("create product", err)
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, description, category_id, presentation, concentration, image, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.CategoryID,
		&product.Presentation,
		&product.Concentration,
		&product.Image,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, Translate("find product by ID", err)
	}

	return product, nil
}

// FindActiveByTriple looks up the single active product matching the
// (name, presentation, concentration) dedup key.
func (r *productRepository) FindActiveByTriple(ctx context.Context, name, presentation, concentration string) (*domain.Product, error) {
	query := `
		SELECT id, name, description, category_id, presentation, concentration, image, active, created_at, updated_at
		FROM products
		WHERE name = $1 AND presentation = $2 AND concentration = $3 AND active
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, name, presentation, concentration).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.CategoryID,
		&product.Presentation,
		&product.Concentration,
		&product.Image,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, Translate("find product by triple", err)
	}

	return product, nil
}

// List retrieves all active products
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, name, description, category_id, presentation, concentration, image, active, created_at, updated_at
		FROM products
		WHERE active
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, Translate("list products", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.CategoryID,
			&product.Presentation,
			&product.Concentration,
			&product.Image,
			&product.Active,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Update writes all mutable product fields
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, category_id = $4, presentation = $5,
		    concentration = $6, image = $7, active = $8, updated_at = $9
		WHERE id = $1
	`

	product.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.CategoryID,
		product.Presentation,
		product.Concentration,
		product.Image,
		product.Active,
		product.UpdatedAt,
	)

	if err != nil {
		return Translate("update product", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// UpdateImage overwrites the stored image reference (last write wins)
func (r *productRepository) UpdateImage(ctx context.Context, id int64, image string) error {
	query := `UPDATE products SET image = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, image, time.Now())
	if err != nil {
		return Translate("update product image", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Deactivate logically deletes a product; rows are never physically removed
// so order history keeps resolving.
func (r *productRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE products SET active = FALSE, updated_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return Translate("deactivate product", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
