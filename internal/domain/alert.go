package domain

import "time"

// StockAlert flags a batch that needs attention: running low or close to its
// expiration date.
type StockAlert struct {
	BatchID              int64      `json:"batch_id"`
	ProductID            int64      `json:"product_id"`
	ProductName          string     `json:"product_name"`
	ProductPresentation  string     `json:"product_presentation"`
	ProductConcentration string     `json:"product_concentration"`
	Stock                int        `json:"stock"`
	ExpirationDate       *time.Time `json:"expiration_date"`
}
