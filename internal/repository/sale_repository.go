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
	ErrSaleNotFound = errors.New("sale not found")
)

// OrderFilter narrows order listings. Nil fields are ignored.
type OrderFilter struct {
	CounterpartyID *int64
	UserID         *int64
	From           *time.Time
	To             *time.Time
}

// SaleRepository defines the interface for sale data access. Inserts
// participate in the caller's transaction; reads resolve all nested display
// fields so callers never issue follow-up lookups.
type SaleRepository interface {
	InsertHeader(ctx context.Context, sale *domain.Sale) error
	InsertDetail(ctx context.Context, detail *domain.SaleDetail) error
	GetEnriched(ctx context.Context, id int64) (*domain.Sale, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Sale, error)
}

type saleRepository struct {
	db DBTX
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db DBTX) SaleRepository {
	return &saleRepository{db: db}
}

// InsertHeader inserts the sale header and fills in the generated id
func (r *saleRepository) InsertHeader(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (client_id, user_id, sale_date, payment_method, total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		sale.ClientID,
		sale.UserID,
		sale.SaleDate,
		sale.PaymentMethod,
		sale.Total,
	).Scan(&sale.ID)

	if err != nil {
		return Translate("insert sale", err)
	}

	return nil
}

// InsertDetail inserts one sale line and fills in the generated id
func (r *saleRepository) InsertDetail(ctx context.Context, detail *domain.SaleDetail) error {
	query := `
		INSERT INTO sale_details (sale_id, batch_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		detail.SaleID,
		detail.BatchID,
		detail.Quantity,
		detail.UnitPrice,
		detail.Subtotal,
	).Scan(&detail.ID)

	if err != nil {
		return Translate("insert sale detail", err)
	}

	return nil
}

const saleHeaderSelect = `
	SELECT s.id, s.client_id, s.user_id, s.sale_date, s.payment_method, s.total,
	       trim(c.first_name || ' ' || c.last_name), c.email, c.phone,
	       trim(u.first_name || ' ' || u.last_name), u.email
	FROM sales s
	JOIN clients c ON c.id = s.client_id
	JOIN users u ON u.id = s.user_id
`

func scanSaleHeader(row interface{ Scan(...any) error }) (*domain.Sale, error) {
	sale := &domain.Sale{}
	err := row.Scan(
		&sale.ID,
		&sale.ClientID,
		&sale.UserID,
		&sale.SaleDate,
		&sale.PaymentMethod,
		&sale.Total,
		&sale.ClientName,
		&sale.ClientEmail,
		&sale.ClientPhone,
		&sale.UserName,
		&sale.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// GetEnriched retrieves a sale with lines and resolved display fields
func (r *saleRepository) GetEnriched(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := scanSaleHeader(r.db.QueryRowContext(ctx, saleHeaderSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSaleNotFound
		}
		return nil, Translate("get sale", err)
	}

	details, err := r.loadDetails(ctx, []int64{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Details = details[sale.ID]
	if sale.Details == nil {
		sale.Details = []domain.SaleDetail{}
	}

	return sale, nil
}

// List retrieves sales newest first, applying the filter, with details
// loaded in one extra query rather than per sale.
func (r *saleRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Sale, error) {
	query := saleHeaderSelect + ` WHERE TRUE`
	args := []any{}

	if filter.CounterpartyID != nil {
		args = append(args, *filter.CounterpartyID)
		query += fmt.Sprintf(" AND s.client_id = $%d", len(args))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND s.user_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND s.sale_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND s.sale_date <= $%d", len(args))
	}

	query += ` ORDER BY s.sale_date DESC, s.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Translate("list sales", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	ids := []int64{}
	for rows.Next() {
		sale, err := scanSaleHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sale.Details = []domain.SaleDetail{}
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	if len(ids) == 0 {
		return sales, nil
	}

	details, err := r.loadDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sale := range sales {
		if d, ok := details[sale.ID]; ok {
			sale.Details = d
		}
	}

	return sales, nil
}

// loadDetails fetches the lines of the given sales, with batch and product
// fields resolved, grouped by sale id.
func (r *saleRepository) loadDetails(ctx context.Context, saleIDs []int64) (map[int64][]domain.SaleDetail, error) {
	query := `
		SELECT d.id, d.sale_id, d.batch_id, d.quantity, d.unit_price, d.subtotal,
		       b.expiration_date, b.stock,
		       p.name, p.presentation, p.concentration
		FROM sale_details d
		JOIN batches b ON b.id = d.batch_id
		JOIN products p ON p.id = b.product_id
		WHERE d.sale_id = ANY($1)
		ORDER BY d.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, saleIDs)
	if err != nil {
		return nil, Translate("load sale details", err)
	}
	defer rows.Close()

	details := map[int64][]domain.SaleDetail{}
	for rows.Next() {
		detail := domain.SaleDetail{}
		err := rows.Scan(
			&detail.ID,
			&detail.SaleID,
			&detail.BatchID,
			&detail.Quantity,
			&detail.UnitPrice,
			&detail.Subtotal,
			&detail.BatchExpirationDate,
			&detail.BatchStock,
			&detail.ProductName,
			&detail.ProductPresentation,
			&detail.ProductConcentration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale detail: %w", err)
		}
		details[detail.SaleID] = append(details[detail.SaleID], detail)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale details: %w", err)
	}

	return details, nil
}
