package service

import (
	"context"
	"time"

	"farmapos/internal/domain"
	"farmapos/internal/repository"
)

const (
	// DefaultLowStockThreshold flags batches at or below this stock level
	DefaultLowStockThreshold = 10

	// DefaultExpiryWindow flags batches expiring within this window
	DefaultExpiryWindow = 30 * 24 * time.Hour
)

// AlertService surfaces batches that need attention before they block sales
type AlertService interface {
	LowStock(ctx context.Context, threshold int) ([]*domain.StockAlert, error)
	Expiring(ctx context.Context, withinDays int) ([]*domain.StockAlert, error)
}

type alertService struct {
	alerts repository.AlertRepository
}

// NewAlertService creates a new instance of AlertService
func NewAlertService(alerts repository.AlertRepository) AlertService {
	return &alertService{alerts: alerts}
}

func (s *alertService) LowStock(ctx context.Context, threshold int) ([]*domain.StockAlert, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.alerts.LowStock(ctx, threshold)
}

func (s *alertService) Expiring(ctx context.Context, withinDays int) ([]*domain.StockAlert, error) {
	window := DefaultExpiryWindow
	if withinDays > 0 {
		window = time.Duration(withinDays) * 24 * time.Hour
	}
	return s.alerts.Expiring(ctx, window)
}
