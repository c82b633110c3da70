package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is an outbound order to a client. Totals and line subtotals are always
// computed server-side; the persisted values are authoritative.
type Sale struct {
	ID            int64           `json:"id" db:"id"`
	ClientID      int64           `json:"client_id" db:"client_id"`
	UserID        int64           `json:"user_id" db:"user_id"`
	SaleDate      time.Time       `json:"sale_date" db:"sale_date"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	Total         decimal.Decimal `json:"total" db:"total"`
	Details       []SaleDetail    `json:"details"`

	// Resolved display fields so callers never issue follow-up lookups
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`
	UserName    string `json:"user_name"`
	UserEmail   string `json:"user_email"`
}

// SaleDetail is one line of a sale, snapshotting the unit price at sale time.
type SaleDetail struct {
	ID        int64           `json:"id" db:"id"`
	SaleID    int64           `json:"sale_id" db:"sale_id"`
	BatchID   int64           `json:"batch_id" db:"batch_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal" db:"subtotal"`

	BatchExpirationDate  *time.Time `json:"batch_expiration_date"`
	BatchStock           int        `json:"batch_stock"`
	ProductName          string     `json:"product_name"`
	ProductPresentation  string     `json:"product_presentation"`
	ProductConcentration string     `json:"product_concentration"`
}

// Purchase is an inbound order from a supplier
type Purchase struct {
	ID            int64            `json:"id" db:"id"`
	SupplierID    int64            `json:"supplier_id" db:"supplier_id"`
	UserID        int64            `json:"user_id" db:"user_id"`
	PurchaseDate  time.Time        `json:"purchase_date" db:"purchase_date"`
	PaymentMethod string           `json:"payment_method" db:"payment_method"`
	Total         decimal.Decimal  `json:"total" db:"total"`
	Details       []PurchaseDetail `json:"details"`

	SupplierName  string `json:"supplier_name"`
	SupplierEmail string `json:"supplier_email"`
	UserName      string `json:"user_name"`
	UserEmail     string `json:"user_email"`
}

// PurchaseDetail is one line of a purchase
type PurchaseDetail struct {
	ID         int64           `json:"id" db:"id"`
	PurchaseID int64           `json:"purchase_id" db:"purchase_id"`
	BatchID    int64           `json:"batch_id" db:"batch_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`

	BatchExpirationDate  *time.Time          `json:"batch_expiration_date"`
	BatchStock           int                 `json:"batch_stock"`
	BatchPurchasePrice   decimal.NullDecimal `json:"batch_purchase_price"`
	BatchSalePrice       decimal.NullDecimal `json:"batch_sale_price"`
	ProductName          string              `json:"product_name"`
	ProductPresentation  string              `json:"product_presentation"`
	ProductConcentration string              `json:"product_concentration"`
	ProductImage         string              `json:"product_image"`
}
