package stock

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"restochain-backend/internal/auth"
	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

type CreateAdjustmentRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"` // signed delta
	Reason    string `json:"reason"`
}

// POST /api/stock-adjustments
// Manual correction path (count discrepancies, damage). Routes through the
// same Adjust primitive as orders and shipments.
func CreateAdjustmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAdjustmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id is required")
		}
		if body.Quantity == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be non-zero")
		}
		if body.Reason == "" {
			return fiber.NewError(fiber.StatusBadRequest, "reason is required")
		}

		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		var product *models.Product
		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			product, err = Adjust(tx, AdjustParams{
				ProductID:     body.ProductID,
				Delta:         body.Quantity,
				Type:          models.StockTxAdjustment,
				Reference:     body.Reason,
				PerformedByID: &userID,
			})
			if err != nil {
				return err
			}
			if product.BranchID != branchID {
				return errWrongBranch
			}
			return nil
		})
		if txErr != nil {
			return translateError(txErr)
		}

		log.Info().Uint("product_id", product.ID).Int("delta", body.Quantity).
			Uint("user_id", userID).Msg("manual stock adjustment")

		return c.JSON(fiber.Map{
			"product_id": product.ID,
			"quantity":   product.Quantity,
		})
	}
}

var errWrongBranch = errors.New("product belongs to another branch")

func translateError(err error) error {
	var insufficient *InsufficientStockError
	switch {
	case errors.Is(err, ErrProductNotFound):
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	case errors.Is(err, errWrongBranch):
		return fiber.NewError(fiber.StatusForbidden, "product belongs to another branch")
	case errors.As(err, &insufficient):
		return fiber.NewError(fiber.StatusBadRequest, insufficient.Error())
	default:
		return err
	}
}

type transactionResponse struct {
	ID               uint                        `json:"id"`
	Type             models.StockTransactionType `json:"type"`
	Quantity         int                         `json:"quantity"`
	PreviousQuantity int                         `json:"previous_quantity"`
	NewQuantity      int                         `json:"new_quantity"`
	Reference        string                      `json:"reference"`
	ProductID        uint                        `json:"product_id"`
	ProductName      string                      `json:"product_name"`
	BranchID         uint                        `json:"branch_id"`
	PerformedByID    *uint                       `json:"performed_by_id"`
	CreatedAt        string                      `json:"created_at"`
}

// GET /api/stock-transactions?product_id=&type=
func ListTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		q := database.DB.Preload("Product").Where("branch_id = ?", branchID)
		if pid := c.QueryInt("product_id"); pid > 0 {
			q = q.Where("product_id = ?", pid)
		}
		if t := c.Query("type"); t != "" {
			q = q.Where("type = ?", t)
		}

		var txs []models.StockTransaction
		if err := q.Order("created_at DESC").Limit(500).Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list stock transactions")
		}

		resp := make([]transactionResponse, 0, len(txs))
		for _, t := range txs {
			resp = append(resp, transactionResponse{
				ID:               t.ID,
				Type:             t.Type,
				Quantity:         t.Quantity,
				PreviousQuantity: t.PreviousQuantity,
				NewQuantity:      t.NewQuantity,
				Reference:        t.Reference,
				ProductID:        t.ProductID,
				ProductName:      t.Product.Name,
				BranchID:         t.BranchID,
				PerformedByID:    t.PerformedByID,
				CreatedAt:        t.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(resp)
	}
}
