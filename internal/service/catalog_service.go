package service

import (
	"context"
	"errors"

	"farmapos/internal/domain"
	"farmapos/internal/repository"

	"go.uber.org/zap"
)

// ProductDescriptor identifies a product by its natural key. Two descriptors
// naming the same (name, presentation, concentration) triple resolve to the
// same product regardless of description or image.
type ProductDescriptor struct {
	Name          string
	CategoryID    int64
	Presentation  string
	Concentration string
	Description   string
	Image         string
}

// CatalogResolver maps product descriptors onto catalog rows, creating the
// row on first sight of a new triple.
type CatalogResolver interface {
	Resolve(ctx context.Context, desc ProductDescriptor) (*domain.Product, error)
}

type catalogService struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewCatalogService creates a new instance of CatalogResolver
func NewCatalogService(products repository.ProductRepository, logger *zap.Logger) CatalogResolver {
	return &catalogService{products: products, logger: logger}
}

// tripleConstraint is the relation name Translate assigns to a violation of
// the partial unique index on the active product triple.
const tripleConstraint = "products.name_presentation_concentration"

// Resolve finds the active product matching the descriptor's triple, or
// creates it when none exists. On a match a non-empty descriptor image
// replaces the stored one (last write wins); description differences are
// ignored. Invalid category references surface from the insert as an
// integrity violation rather than being pre-checked.
func (s *catalogService) Resolve(ctx context.Context, desc ProductDescriptor) (*domain.Product, error) {
	product, err := s.lookup(ctx, desc)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, repository.ErrProductNotFound) {
		return nil, err
	}

	product = &domain.Product{
		Name:          desc.Name,
		CategoryID:    desc.CategoryID,
		Presentation:  desc.Presentation,
		Concentration: desc.Concentration,
		Description:   desc.Description,
		Image:         desc.Image,
	}
	if err := s.products.Create(ctx, product); err != nil {
		// A concurrent resolver may insert the same triple between the lookup
		// and the create; the unique index rejects the loser, which then
		// adopts the winner's row.
		var integrityErr *domain.IntegrityError
		if errors.As(err, &integrityErr) && integrityErr.Constraint == tripleConstraint {
			return s.lookup(ctx, desc)
		}
		return nil, err
	}

	s.logger.Info("Product created from descriptor",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("presentation", product.Presentation),
		zap.String("concentration", product.Concentration),
	)

	return product, nil
}

// lookup resolves the descriptor against an existing active product,
// applying the image last-write-wins rule on a hit.
func (s *catalogService) lookup(ctx context.Context, desc ProductDescriptor) (*domain.Product, error) {
	product, err := s.products.FindActiveByTriple(ctx, desc.Name, desc.Presentation, desc.Concentration)
	if err != nil {
		return nil, err
	}

	if desc.Image != "" && desc.Image != product.Image {
		if err := s.products.UpdateImage(ctx, product.ID, desc.Image); err != nil {
			return nil, err
		}
		product.Image = desc.Image
	}
	return product, nil
}
