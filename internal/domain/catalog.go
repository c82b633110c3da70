package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category represents a product category
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Product is a catalog entry. The (name, presentation, concentration) triple
// is the natural dedup key; rows are logically deleted via the active flag so
// referential history survives.
type Product struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	CategoryID    int64     `json:"category_id" db:"category_id"`
	Presentation  string    `json:"presentation" db:"presentation"`
	Concentration string    `json:"concentration" db:"concentration"`
	Image         string    `json:"image" db:"image"`
	Active        bool      `json:"active" db:"active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ProductPatch is an explicit partial update: only non-nil fields are applied.
type ProductPatch struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	CategoryID    *int64  `json:"category_id"`
	Presentation  *string `json:"presentation"`
	Concentration *string `json:"concentration"`
	Image         *string `json:"image"`
	Active        *bool   `json:"active"`
}

// Apply merges the patch into the product
func (p *ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.CategoryID != nil {
		product.CategoryID = *p.CategoryID
	}
	if p.Presentation != nil {
		product.Presentation = *p.Presentation
	}
	if p.Concentration != nil {
		product.Concentration = *p.Concentration
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	if p.Active != nil {
		product.Active = *p.Active
	}
}

// Batch is a physical lot of a product with its own stock count, expiration
// date and pricing. Stock never goes below zero; the schema enforces it too.
type Batch struct {
	ID             int64               `json:"id" db:"id"`
	ProductID      int64               `json:"product_id" db:"product_id"`
	ExpirationDate *time.Time          `json:"expiration_date" db:"expiration_date"`
	Stock          int                 `json:"stock" db:"stock"`
	PurchasePrice  decimal.NullDecimal `json:"purchase_price" db:"purchase_price"`
	SalePrice      decimal.NullDecimal `json:"sale_price" db:"sale_price"`
	Active         bool                `json:"active" db:"active"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
}

// BatchPatch is an explicit partial update for administrative batch edits.
// Stock is deliberately absent: stock only moves through the inventory ledger.
type BatchPatch struct {
	ExpirationDate *time.Time       `json:"expiration_date"`
	PurchasePrice  *decimal.Decimal `json:"purchase_price"`
	SalePrice      *decimal.Decimal `json:"sale_price"`
	Active         *bool            `json:"active"`
}

// Apply merges the patch into the batch
func (p *BatchPatch) Apply(batch *Batch) {
	if p.ExpirationDate != nil {
		batch.ExpirationDate = p.ExpirationDate
	}
	if p.PurchasePrice != nil {
		batch.PurchasePrice = decimal.NewNullDecimal(*p.PurchasePrice)
	}
	if p.SalePrice != nil {
		batch.SalePrice = decimal.NewNullDecimal(*p.SalePrice)
	}
	if p.Active != nil {
		batch.Active = *p.Active
	}
}
