package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"farmapos/internal/domain"
)

var (
	ErrClientNotFound = errors.New("client not found")
)

// ClientRepository defines the interface for client data access
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	FindByID(ctx context.Context, id int64) (*domain.Client, error)
	List(ctx context.Context) ([]*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Deactivate(ctx context.Context, id int64) error
}

type clientRepository struct {
	db DBTX
}

// NewClientRepository creates a new instance of ClientRepository
func NewClientRepository(db DBTX) ClientRepository {
	return &clientRepository{db: db}
}

// Create inserts a new client and fills in the generated id
func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clients (first_name, last_name, phone, email, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id
	`

	client.Active = true

	err := r.db.QueryRowContext(
		ctx,
		query,
		client.FirstName,
		client.LastName,
		client.Phone,
		client.Email,
	).Scan(&client.ID)

	if err != nil {
		return Translate("create client", err)
	}

	return nil
}

// FindByID retrieves a client by ID
func (r *clientRepository) FindByID(ctx context.Context, id int64) (*domain.Client, error) {
	query := `
		SELECT id, first_name, last_name, phone, email, active
		FROM clients
		WHERE id = $1
	`

	client := &domain.Client{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.FirstName,
		&client.LastName,
		&client.Phone,
		&client.Email,
		&client.Active,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, Translate("find client by ID", err)
	}

	return client, nil
}

// List retrieves all active clients
func (r *clientRepository) List(ctx context.Context) ([]*domain.Client, error) {
	query := `
		SELECT id, first_name, last_name, phone, email, active
		FROM clients
		WHERE active
		ORDER BY last_name ASC, first_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, Translate("list clients", err)
	}
	defer rows.Close()

	clients := []*domain.Client{}
	for rows.Next() {
		client := &domain.Client{}
		err := rows.Scan(
			&client.ID,
			&client.FirstName,
			&client.LastName,
			&client.Phone,
			&client.Email,
			&client.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}

	return clients, nil
}

// Update writes all mutable client fields
func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	query := `
		UPDATE clients
		SET first_name = $2, last_name = $3, phone = $4, email = $5, active = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		client.ID,
		client.FirstName,
		client.LastName,
		client.Phone,
		client.Email,
		client.Active,
	)

	if err != nil {
		return Translate("update client", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrClientNotFound
	}

	return nil
}

// Deactivate logically deletes a client
func (r *clientRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE clients SET active = FALSE WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return Translate("deactivate client", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrClientNotFound
	}

	return nil
}
