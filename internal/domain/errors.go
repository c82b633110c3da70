package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingLineSource is returned when a purchase line supplies neither
	// an existing batch id nor a full product descriptor.
	ErrMissingLineSource = errors.New("purchase line must supply a batch_id or a full product descriptor")

	// ErrNoActiveBatches is returned by price updates when a product has no
	// active batch to apply the price to.
	ErrNoActiveBatches = errors.New("product has no active batches")
)

// NotFoundError identifies a missing referenced entity by kind and id.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

// InactiveError identifies a referenced entity that exists but is logically deleted.
type InactiveError struct {
	Entity string
	ID     int64
}

func (e *InactiveError) Error() string {
	return fmt.Sprintf("%s with ID %d is inactive", e.Entity, e.ID)
}

// InsufficientStockError carries the available vs. requested quantities for a batch.
type InsufficientStockError struct {
	BatchID   int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for batch %d: available %d, requested %d",
		e.BatchID, e.Available, e.Requested)
}

// IntegrityError is a storage constraint violation translated into a named
// relationship so raw database error text never reaches the caller.
type IntegrityError struct {
	Constraint string
	Err        error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s", e.Constraint)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// StorageError marks a persistence-layer fault that is retryable by the caller.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "storage unavailable"
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
