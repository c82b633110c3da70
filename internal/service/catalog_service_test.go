package service

import (
	"context"
	"fmt"
	"testing"

	"farmapos/internal/domain"
	"farmapos/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Map-backed product repository for resolver tests
type mockProductRepository struct {
	products map[int64]*domain.Product
	nextID   int64
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[int64]*domain.Product), nextID: 1}
}

func (m *mockProductRepository) tripleKey(name, presentation, concentration string) string {
	return fmt.Sprintf("%s|%s|%s", name, presentation, concentration)
}

func (m *mockProductRepository) Create(_ context.Context, product *domain.Product) error {
	for _, p := range m.products {
		if p.Active && m.tripleKey(p.Name, p.Presentation, p.Concentration) == m.tripleKey(product.Name, product.Presentation, product.Concentration) {
			return &domain.IntegrityError{Constraint: "products.name_presentation_concentration"}
		}
	}
	product.ID = m.nextID
	product.Active = true
	m.nextID++
	clone := *product
	m.products[product.ID] = &clone
	return nil
}

func (m *mockProductRepository) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *mockProductRepository) FindActiveByTriple(_ context.Context, name, presentation, concentration string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.Active && m.tripleKey(p.Name, p.Presentation, p.Concentration) == m.tripleKey(name, presentation, concentration) {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(_ context.Context) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, p := range m.products {
		if p.Active {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockProductRepository) Update(_ context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	clone := *product
	m.products[product.ID] = &clone
	return nil
}

func (m *mockProductRepository) UpdateImage(_ context.Context, id int64, image string) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Image = image
	return nil
}

func (m *mockProductRepository) Deactivate(_ context.Context, id int64) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Active = false
	return nil
}

func TestResolve_CreatesOnFirstSight(t *testing.T) {
	repo := newMockProductRepository()
	resolver := NewCatalogService(repo, zap.NewNop())

	product, err := resolver.Resolve(context.Background(), ProductDescriptor{
		Name:          "Paracetamol",
		CategoryID:    1,
		Presentation:  "tablets",
		Concentration: "500mg",
		Description:   "Analgesic",
	})
	require.NoError(t, err)
	assert.NotZero(t, product.ID)
	assert.Equal(t, "Analgesic", product.Description)
}

func TestResolve_SameTripleIsIdempotent(t *testing.T) {
	repo := newMockProductRepository()
	resolver := NewCatalogService(repo, zap.NewNop())
	ctx := context.Background()

	desc := ProductDescriptor{Name: "Ibuprofen", CategoryID: 1, Presentation: "gel", Concentration: "5%"}

	first, err := resolver.Resolve(ctx, desc)
	require.NoError(t, err)

	// Description differences do not fork a new product
	desc.Description = "something else entirely"
	second, err := resolver.Resolve(ctx, desc)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.products, 1)
}

func TestResolve_NonEmptyImageOverwrites(t *testing.T) {
	repo := newMockProductRepository()
	resolver := NewCatalogService(repo, zap.NewNop())
	ctx := context.Background()

	desc := ProductDescriptor{Name: "Omeprazole", CategoryID: 1, Presentation: "capsules", Concentration: "20mg", Image: "v1.png"}
	first, err := resolver.Resolve(ctx, desc)
	require.NoError(t, err)
	assert.Equal(t, "v1.png", first.Image)

	desc.Image = "v2.png"
	second, err := resolver.Resolve(ctx, desc)
	require.NoError(t, err)
	assert.Equal(t, "v2.png", second.Image)
	assert.Equal(t, "v2.png", repo.products[first.ID].Image)
}

func TestResolve_EmptyImageKeepsExisting(t *testing.T) {
	repo := newMockProductRepository()
	resolver := NewCatalogService(repo, zap.NewNop())
	ctx := context.Background()

	desc := ProductDescriptor{Name: "Loratadine", CategoryID: 1, Presentation: "syrup", Concentration: "5mg/5ml", Image: "original.png"}
	first, err := resolver.Resolve(ctx, desc)
	require.NoError(t, err)

	desc.Image = ""
	second, err := resolver.Resolve(ctx, desc)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "original.png", repo.products[first.ID].Image)
}

// racedProductRepository simulates a concurrent resolver committing the same
// triple between the lookup and the create: the first triple lookup misses,
// the winner's row lands, and the insert then hits the unique index.
type racedProductRepository struct {
	*mockProductRepository
	winner *domain.Product
	looked bool
}

func (r *racedProductRepository) FindActiveByTriple(ctx context.Context, name, presentation, concentration string) (*domain.Product, error) {
	if !r.looked {
		r.looked = true
		if err := r.mockProductRepository.Create(ctx, r.winner); err != nil {
			return nil, err
		}
		return nil, repository.ErrProductNotFound
	}
	return r.mockProductRepository.FindActiveByTriple(ctx, name, presentation, concentration)
}

func TestResolve_ConcurrentCreateAdoptsWinner(t *testing.T) {
	repo := &racedProductRepository{
		mockProductRepository: newMockProductRepository(),
		winner:                &domain.Product{Name: "Cetirizine", CategoryID: 1, Presentation: "tablets", Concentration: "10mg"},
	}
	resolver := NewCatalogService(repo, zap.NewNop())

	product, err := resolver.Resolve(context.Background(), ProductDescriptor{
		Name:          "Cetirizine",
		CategoryID:    1,
		Presentation:  "tablets",
		Concentration: "10mg",
	})
	require.NoError(t, err)
	assert.Equal(t, repo.winner.ID, product.ID)
	assert.Len(t, repo.products, 1)
}

func TestResolve_DifferentConcentrationForksProduct(t *testing.T) {
	repo := newMockProductRepository()
	resolver := NewCatalogService(repo, zap.NewNop())
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, ProductDescriptor{Name: "Amoxicillin", CategoryID: 1, Presentation: "capsules", Concentration: "250mg"})
	require.NoError(t, err)

	second, err := resolver.Resolve(ctx, ProductDescriptor{Name: "Amoxicillin", CategoryID: 1, Presentation: "capsules", Concentration: "500mg"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, repo.products, 2)
}
