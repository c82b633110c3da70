package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"farmapos/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can
// participate in a caller's transaction without committing independently.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the connection pool and opens units of work.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store around the pool
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the pool for read paths that do not need a transaction
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithinTx runs fn inside a single transaction. Any error from fn rolls the
// whole unit of work back; commit errors are translated like any other
// storage fault.
func (s *Store) WithinTx(ctx context.Context, fn func(tx DBTX) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Translate("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return Translate("commit transaction", err)
	}

	return nil
}

// Translate converts driver-level failures into the domain error taxonomy:
// constraint violations become IntegrityError with the constraint name,
// connection-class failures become StorageError, everything else is wrapped
// with the operation name for diagnosis.
func Translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23503" || pgErr.Code == "23505" || pgErr.Code == "23514":
			return &domain.IntegrityError{Constraint: constraintRelation(pgErr), Err: err}
		case strings.HasPrefix(pgErr.Code, "08"):
			return &domain.StorageError{Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return &domain.StorageError{Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// constraintRelation maps a constraint name to the relationship it protects,
// so callers see "products.category" instead of raw constraint text.
func constraintRelation(pgErr *pgconn.PgError) string {
	switch pgErr.ConstraintName {
	case "products_category_id_fkey":
		return "products.category"
	case "products_active_triple_key":
		return "products.name_presentation_concentration"
	case "batches_product_id_fkey":
		return "batches.product"
	case "batches_stock_check":
		return "batches.stock"
	case "sale_details_batch_id_fkey", "purchase_details_batch_id_fkey":
		return "details.batch"
	case "sales_client_id_fkey":
		return "sales.client"
	case "purchases_supplier_id_fkey":
		return "purchases.supplier"
	case "users_email_key":
		return "users.email"
	case "categories_name_key":
		return "categories.name"
	}
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return pgErr.TableName
}
