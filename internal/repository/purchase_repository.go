package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"farmapos/internal/domain"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")
)

// PurchaseRepository defines the interface for purchase data access
type PurchaseRepository interface {
	InsertHeader(ctx context.Context, purchase *domain.Purchase) error
	InsertDetail(ctx context.Context, detail *domain.PurchaseDetail) error
	GetEnriched(ctx context.Context, id int64) (*domain.Purchase, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Purchase, error)
}

type purchaseRepository struct {
	db DBTX
}

// NewPurchaseRepository creates a new instance of PurchaseRepository
func NewPurchaseRepository(db DBTX) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// InsertHeader inserts the purchase header and fills in the generated id
func (r *purchaseRepository) InsertHeader(ctx context.Context, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (supplier_id, user_id, purchase_date, payment_method, total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		purchase.SupplierID,
		purchase.UserID,
		purchase.PurchaseDate,
		purchase.PaymentMethod,
		purchase.Total,
	).Scan(&purchase.ID)

	if err != nil {
		return Translate("insert purchase", err)
	}

	return nil
}

// InsertDetail inserts one purchase line and fills in the generated id
func (r *purchaseRepository) InsertDetail(ctx context.Context, detail *domain.PurchaseDetail) error {
	query := `
		INSERT INTO purchase_details (purchase_id, batch_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		detail.PurchaseID,
		detail.BatchID,
		detail.Quantity,
		detail.UnitPrice,
		detail.Subtotal,
	).Scan(&detail.ID)

	if err != nil {
		return Translate("insert purchase detail", err)
	}

	return nil
}

const purchaseHeaderSelect = `
	SELECT p.id, p.supplier_id, p.user_id, p.purchase_date, p.payment_method, p.total,
	       sp.name, sp.email,
	       trim(u.first_name || ' ' || u.last_name), u.email
	FROM purchases p
	JOIN suppliers sp ON sp.id = p.supplier_id
	JOIN users u ON u.id = p.user_id
`

func scanPurchaseHeader(row interface{ Scan(...any) error }) (*domain.Purchase, error) {
	purchase := &domain.Purchase{}
	err := row.Scan(
		&purchase.ID,
		&purchase.SupplierID,
		&purchase.UserID,
		&purchase.PurchaseDate,
		&purchase.PaymentMethod,
		&purchase.Total,
		&purchase.SupplierName,
		&purchase.SupplierEmail,
		&purchase.UserName,
		&purchase.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// GetEnriched retrieves a purchase with lines and resolved display fields
func (r *purchaseRepository) GetEnriched(ctx context.Context, id int64) (*domain.Purchase, error) {
	purchase, err := scanPurchaseHeader(r.db.QueryRowContext(ctx, purchaseHeaderSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPurchaseNotFound
		}
		return nil, Translate("get purchase", err)
	}

	details, err := r.loadDetails(ctx, []int64{purchase.ID})
	if err != nil {
		return nil, err
	}
	purchase.Details = details[purchase.ID]
	if purchase.Details == nil {
		purchase.Details = []domain.PurchaseDetail{}
	}

	return purchase, nil
}

// List retrieves purchases newest first, applying the filter
func (r *purchaseRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Purchase, error) {
	query := purchaseHeaderSelect + ` WHERE TRUE`
	args := []any{}

	if filter.CounterpartyID != nil {
		args = append(args, *filter.CounterpartyID)
		query += fmt.Sprintf(" AND p.supplier_id = $%d", len(args))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND p.user_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND p.purchase_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND p.purchase_date <= $%d", len(args))
	}

	query += ` ORDER BY p.purchase_date DESC, p.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Translate("list purchases", err)
	}
	defer rows.Close()

	purchases := []*domain.Purchase{}
	ids := []int64{}
	for rows.Next() {
		purchase, err := scanPurchaseHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchase.Details = []domain.PurchaseDetail{}
		purchases = append(purchases, purchase)
		ids = append(ids, purchase.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	if len(ids) == 0 {
		return purchases, nil
	}

	details, err := r.loadDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, purchase := range purchases {
		if d, ok := details[purchase.ID]; ok {
			purchase.Details = d
		}
	}

	return purchases, nil
}

func (r *purchaseRepository) loadDetails(ctx context.Context, purchaseIDs []int64) (map[int64][]domain.PurchaseDetail, error) {
	query := `
		SELECT d.id, d.purchase_id, d.batch_id, d.quantity, d.unit_price, d.subtotal,
		       b.expiration_date, b.stock, b.purchase_price, b.sale_price,
		       p.name, p.presentation, p.concentration, p.image
		FROM purchase_details d
		JOIN batches b ON b.id = d.batch_id
		JOIN products p ON p.id = b.product_id
		WHERE d.purchase_id = ANY($1)
		ORDER BY d.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, purchaseIDs)
	if err != nil {
		return nil, Translate("load purchase details", err)
	}
	defer rows.Close()

	details := map[int64][]domain.PurchaseDetail{}
	for rows.Next() {
		detail := domain.PurchaseDetail{}
		err := rows.Scan(
			&detail.ID,
			&detail.PurchaseID,
			&detail.BatchID,
			&detail.Quantity,
			&detail.UnitPrice,
			&detail.Subtotal,
			&detail.BatchExpirationDate,
			&detail.BatchStock,
			&detail.BatchPurchasePrice,
			&detail.BatchSalePrice,
			&detail.ProductName,
			&detail.ProductPresentation,
			&detail.ProductConcentration,
			&detail.ProductImage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase detail: %w", err)
		}
		details[detail.PurchaseID] = append(details[detail.PurchaseID], detail)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase details: %w", err)
	}

	return details, nil
}
