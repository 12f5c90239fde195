package stock

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// InsufficientStockError carries enough context for the caller to correct and
// retry (which product, how much was asked, how much is left).
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
		e.ProductID, e.ProductName, e.Requested, e.Available)
}

// AdjustParams describes one signed quantity change against a product.
type AdjustParams struct {
	ProductID     uint
	Delta         int // negative = stock out
	Type          models.StockTransactionType
	Reference     string // order number, shipment number, ...
	PerformedByID *uint
}

// Adjust is the only code path that mutates Product.Quantity. It re-reads the
// row under a lock, rejects any change that would take the quantity below
// zero, applies the delta and appends a StockTransaction audit row.
//
// Must run inside a transaction; the lock is held until that transaction
// ends, which serializes concurrent adjustments on the same product.
func Adjust(tx *gorm.DB, p AdjustParams) (*models.Product, error) {
	var product models.Product
	if err := database.LockForUpdate(tx).First(&product, "id = ?", p.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	newQty := product.Quantity + p.Delta
	if newQty < 0 {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   -p.Delta,
			Available:   product.Quantity,
		}
	}

	prevQty := product.Quantity
	if err := tx.Model(&product).Update("quantity", newQty).Error; err != nil {
		return nil, err
	}
	product.Quantity = newQty

	record := models.StockTransaction{
		Type:             p.Type,
		Quantity:         p.Delta,
		PreviousQuantity: prevQty,
		NewQuantity:      newQty,
		Reference:        p.Reference,
		ProductID:        product.ID,
		BranchID:         product.BranchID,
		PerformedByID:    p.PerformedByID,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}

	return &product, nil
}
