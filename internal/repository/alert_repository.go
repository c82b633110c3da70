package repository

import (
	"context"
	"fmt"
	"time"

	"farmapos/internal/domain"
)

// AlertRepository surfaces batches that are running low or expiring soon.
// Read-only; both queries resolve product display fields directly.
type AlertRepository interface {
	LowStock(ctx context.Context, threshold int) ([]*domain.StockAlert, error)
	Expiring(ctx context.Context, within time.Duration) ([]*domain.StockAlert, error)
}

type alertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new instance of AlertRepository
func NewAlertRepository(db DBTX) AlertRepository {
	return &alertRepository{db: db}
}

const alertSelect = `
	SELECT b.id, p.id, p.name, p.presentation, p.concentration, b.stock, b.expiration_date
	FROM batches b
	JOIN products p ON p.id = b.product_id
	WHERE b.active AND p.active
`

// LowStock lists active batches whose stock is below the threshold
func (r *alertRepository) LowStock(ctx context.Context, threshold int) ([]*domain.StockAlert, error) {
	query := alertSelect + ` AND b.stock < $1 ORDER BY b.stock ASC, b.id ASC`

	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, Translate("list low stock alerts", err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// Expiring lists active batches whose expiration date falls inside the window
func (r *alertRepository) Expiring(ctx context.Context, within time.Duration) ([]*domain.StockAlert, error) {
	query := alertSelect + ` AND b.expiration_date IS NOT NULL AND b.expiration_date <= $1 ORDER BY b.expiration_date ASC, b.id ASC`

	cutoff := time.Now().Add(within)

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, Translate("list expiring alerts", err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

func collectAlerts(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]*domain.StockAlert, error) {
	alerts := []*domain.StockAlert{}
	for rows.Next() {
		alert := &domain.StockAlert{}
		err := rows.Scan(
			&alert.BatchID,
			&alert.ProductID,
			&alert.ProductName,
			&alert.ProductPresentation,
			&alert.ProductConcentration,
			&alert.Stock,
			&alert.ExpirationDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}
