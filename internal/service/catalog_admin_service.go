package service

import (
	"context"
	"errors"

	"farmapos/internal/domain"
	"farmapos/internal/repository"
)

// CatalogAdminService covers the administrative catalog surface: categories,
// direct product edits, and batch upkeep. Stock and pricing changes are
// excluded on purpose; those go through the inventory service.
type CatalogAdminService interface {
	CreateCategory(ctx context.Context, category *domain.Category) error
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)

	CreateProduct(ctx context.Context, product *domain.Product) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id int64) error

	CreateBatch(ctx context.Context, batch *domain.Batch) error
	GetBatch(ctx context.Context, id int64) (*domain.Batch, error)
	ListBatches(ctx context.Context) ([]*domain.Batch, error)
	ListProductBatches(ctx context.Context, productID int64) ([]*domain.Batch, error)
	UpdateBatch(ctx context.Context, id int64, patch domain.BatchPatch) (*domain.Batch, error)
	DeactivateBatch(ctx context.Context, id int64) error
}

type catalogAdminService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	batches    repository.BatchRepository
}

// NewCatalogAdminService creates a new instance of CatalogAdminService
func NewCatalogAdminService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	batches repository.BatchRepository,
) CatalogAdminService {
	return &catalogAdminService{
		categories: categories,
		products:   products,
		batches:    batches,
	}
}

func (s *catalogAdminService) CreateCategory(ctx context.Context, category *domain.Category) error {
	return s.categories.Create(ctx, category)
}

func (s *catalogAdminService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *catalogAdminService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, &domain.NotFoundError{Entity: "category", ID: id}
		}
		return nil, err
	}
	return category, nil
}

func (s *catalogAdminService) CreateProduct(ctx context.Context, product *domain.Product) error {
	return s.products.Create(ctx, product)
}

func (s *catalogAdminService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &domain.NotFoundError{Entity: "product", ID: id}
		}
		return nil, err
	}
	return product, nil
}

func (s *catalogAdminService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

// UpdateProduct applies a partial edit and returns the updated row
func (s *catalogAdminService) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(product)
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogAdminService) DeactivateProduct(ctx context.Context, id int64) error {
	if err := s.products.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return &domain.NotFoundError{Entity: "product", ID: id}
		}
		return err
	}
	return nil
}

func (s *catalogAdminService) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	if _, err := s.GetProduct(ctx, batch.ProductID); err != nil {
		return err
	}
	return s.batches.Create(ctx, batch)
}

func (s *catalogAdminService) GetBatch(ctx context.Context, id int64) (*domain.Batch, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return nil, &domain.NotFoundError{Entity: "batch", ID: id}
		}
		return nil, err
	}
	return batch, nil
}

func (s *catalogAdminService) ListBatches(ctx context.Context) ([]*domain.Batch, error) {
	return s.batches.List(ctx)
}

func (s *catalogAdminService) ListProductBatches(ctx context.Context, productID int64) ([]*domain.Batch, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.batches.ListActiveByProduct(ctx, productID)
}

// UpdateBatch applies a partial edit covering expiration and purchase price.
// The patch cannot carry stock; stock only moves through sales, purchases,
// and the administrative override.
func (s *catalogAdminService) UpdateBatch(ctx context.Context, id int64, patch domain.BatchPatch) (*domain.Batch, error) {
	batch, err := s.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(batch)
	if err := s.batches.Update(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *catalogAdminService) DeactivateBatch(ctx context.Context, id int64) error {
	if err := s.batches.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return &domain.NotFoundError{Entity: "batch", ID: id}
		}
		return err
	}
	return nil
}
