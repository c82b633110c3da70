package service

import (
	"context"
	"errors"

	"farmapos/internal/domain"
	"farmapos/internal/repository"
)

// PartyService manages the order counterparties: clients and suppliers.
// Deletion is logical; deactivated parties stay referenced by historic orders.
type PartyService interface {
	CreateClient(ctx context.Context, client *domain.Client) error
	GetClient(ctx context.Context, id int64) (*domain.Client, error)
	ListClients(ctx context.Context) ([]*domain.Client, error)
	UpdateClient(ctx context.Context, client *domain.Client) error
	DeactivateClient(ctx context.Context, id int64) error

	CreateSupplier(ctx context.Context, supplier *domain.Supplier) error
	GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier *domain.Supplier) error
	DeactivateSupplier(ctx context.Context, id int64) error
}

type partyService struct {
	clients   repository.ClientRepository
	suppliers repository.SupplierRepository
}

// NewPartyService creates a new instance of PartyService
func NewPartyService(clients repository.ClientRepository, suppliers repository.SupplierRepository) PartyService {
	return &partyService{clients: clients, suppliers: suppliers}
}

func (s *partyService) CreateClient(ctx context.Context, client *domain.Client) error {
	return s.clients.Create(ctx, client)
}

func (s *partyService) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return nil, &domain.NotFoundError{Entity: "client", ID: id}
		}
		return nil, err
	}
	return client, nil
}

func (s *partyService) ListClients(ctx context.Context) ([]*domain.Client, error) {
	return s.clients.List(ctx)
}

func (s *partyService) UpdateClient(ctx context.Context, client *domain.Client) error {
	if err := s.clients.Update(ctx, client); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return &domain.NotFoundError{Entity: "client", ID: client.ID}
		}
		return err
	}
	return nil
}

func (s *partyService) DeactivateClient(ctx context.Context, id int64) error {
	if err := s.clients.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return &domain.NotFoundError{Entity: "client", ID: id}
		}
		return err
	}
	return nil
}

func (s *partyService) CreateSupplier(ctx context.Context, supplier *domain.Supplier) error {
	return s.suppliers.Create(ctx, supplier)
}

func (s *partyService) GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	supplier, err := s.suppliers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSupplierNotFound) {
			return nil, &domain.NotFoundError{Entity: "supplier", ID: id}
		}
		return nil, err
	}
	return supplier, nil
}

func (s *partyService) ListSuppliers(ctx context.Context) ([]*domain.Supplier, error) {
	return s.suppliers.List(ctx)
}

func (s *partyService) UpdateSupplier(ctx context.Context, supplier *domain.Supplier) error {
	if err := s.suppliers.Update(ctx, supplier); err != nil {
		if errors.Is(err, repository.ErrSupplierNotFound) {
			return &domain.NotFoundError{Entity: "supplier", ID: supplier.ID}
		}
		return err
	}
	return nil
}

func (s *partyService) DeactivateSupplier(ctx context.Context, id int64) error {
	if err := s.suppliers.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSupplierNotFound) {
			return &domain.NotFoundError{Entity: "supplier", ID: id}
		}
		return err
	}
	return nil
}
