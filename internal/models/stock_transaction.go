package models

import "time"

type StockTransactionType string

const (
	StockTxRestock    StockTransactionType = "RESTOCK"
	StockTxStockIn    StockTransactionType = "STOCK_IN"
	StockTxStockOut   StockTransactionType = "STOCK_OUT"
	StockTxSale       StockTransactionType = "SALE"
	StockTxReturn     StockTransactionType = "RETURN"
	StockTxAdjustment StockTransactionType = "ADJUSTMENT"
)

// StockTransaction is the append-only audit record for every product
// quantity change. Rows are never updated or deleted.
type StockTransaction struct {
	ID               uint                 `gorm:"primaryKey" json:"id"`
	Type             StockTransactionType `gorm:"size:20;not null;index" json:"type"`
	Quantity         int                  `gorm:"not null" json:"quantity"` // signed delta
	PreviousQuantity int                  `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int                  `gorm:"not null" json:"new_quantity"`
	Reference        string               `gorm:"size:50;index" json:"reference"`
	ProductID        uint                 `gorm:"index;not null" json:"product_id"`
	Product          Product              `json:"-"`
	BranchID         uint                 `gorm:"index;not null" json:"branch_id"`
	PerformedByID    *uint                `json:"performed_by_id"`
	CreatedAt        time.Time            `json:"created_at"`
}
