package shipment

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
	"restochain-backend/internal/stock"
)

var (
	ErrShipmentNotFound        = errors.New("shipment not found")
	ErrInvalidTransition       = errors.New("invalid shipment status transition")
	ErrStockRequestNotFound    = errors.New("stock request not found")
	ErrShipmentNumberExhausted = errors.New("could not generate a unique shipment number")
)

// Status flow is strictly forward: PENDING → IN_TRANSIT → DELIVERED →
// COMPLETED. No regression to an earlier state is modeled.
var allowedTransitions = map[models.ShipmentStatus]map[models.ShipmentStatus]bool{
	models.ShipmentStatusPending:   {models.ShipmentStatusInTransit: true},
	models.ShipmentStatusInTransit: {models.ShipmentStatusDelivered: true},
	models.ShipmentStatusDelivered: {models.ShipmentStatusCompleted: true},
	models.ShipmentStatusCompleted: {},
}

func newShipmentNumber(now time.Time) string {
	const digits = "0123456789"
	b := make([]byte, 6)
	max := big.NewInt(int64(len(digits)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = digits[n.Int64()]
	}
	return fmt.Sprintf("SHP-%s-%s", now.Format("20060102"), string(b))
}

type CreateInput struct {
	BranchID       uint
	StockRequestID *uint
	Quantity       int
	AssignedToID   *uint
	Note           string
}

// Create registers a new shipment, optionally against a branch stock request.
func Create(db *gorm.DB, in CreateInput) (*models.Shipment, error) {
	var created *models.Shipment

	err := db.Transaction(func(tx *gorm.DB) error {
		if in.StockRequestID != nil {
			var req models.StockRequest
			if err := tx.First(&req, "id = ?", *in.StockRequestID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrStockRequestNotFound
				}
				return err
			}
			if err := tx.Model(&req).Update("status", models.StockRequestShipped).Error; err != nil {
				return err
			}
		}

		var number string
		for attempt := 0; ; attempt++ {
			if attempt == 5 {
				return ErrShipmentNumberExhausted
			}
			candidate := newShipmentNumber(time.Now())
			var count int64
			if err := tx.Model(&models.Shipment{}).Where("shipment_number = ?", candidate).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				number = candidate
				break
			}
		}

		s := models.Shipment{
			ShipmentNumber: number,
			StockRequestID: in.StockRequestID,
			BranchID:       in.BranchID,
			Quantity:       in.Quantity,
			Status:         models.ShipmentStatusPending,
			AssignedToID:   in.AssignedToID,
			Note:           in.Note,
		}
		if err := tx.Create(&s).Error; err != nil {
			return err
		}
		created = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("shipment_number", created.ShipmentNumber).Uint("branch_id", created.BranchID).
		Msg("shipment created")
	return created, nil
}

// UpdateStatus advances a shipment along its one-way status chain. The
// DELIVERED transition replenishes stock in the same transaction: product
// quantity is incremented through stock.Adjust (which appends the RESTOCK
// audit row) and the branch inventory row is upserted.
func UpdateStatus(db *gorm.DB, shipmentID uint, newStatus models.ShipmentStatus, performedByID *uint) (*models.Shipment, error) {
	var updated *models.Shipment

	err := db.Transaction(func(tx *gorm.DB) error {
		var s models.Shipment
		if err := database.LockForUpdate(tx).First(&s, "id = ?", shipmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShipmentNotFound
			}
			return err
		}

		if !allowedTransitions[s.Status][newStatus] {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, newStatus)
		}

		updates := map[string]interface{}{"status": newStatus}
		if newStatus == models.ShipmentStatusDelivered {
			now := time.Now()
			updates["delivered_at"] = now
			s.DeliveredAt = &now

			if err := deliver(tx, &s, performedByID, now); err != nil {
				return err
			}
		}

		if err := tx.Model(&s).Updates(updates).Error; err != nil {
			return err
		}
		s.Status = newStatus

		updated = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("shipment_number", updated.ShipmentNumber).Str("status", string(updated.Status)).
		Msg("shipment status updated")
	return updated, nil
}

// deliver applies the stock side effect of a delivery. A shipment without a
// linked stock request (or a request without a product) has no stock effect;
// the status still updates.
func deliver(tx *gorm.DB, s *models.Shipment, performedByID *uint, now time.Time) error {
	if s.StockRequestID == nil {
		return nil
	}

	var req models.StockRequest
	if err := tx.First(&req, "id = ?", *s.StockRequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if req.ProductID == 0 {
		return nil
	}

	if _, err := stock.Adjust(tx, stock.AdjustParams{
		ProductID:     req.ProductID,
		Delta:         s.Quantity,
		Type:          models.StockTxRestock,
		Reference:     s.ShipmentNumber,
		PerformedByID: performedByID,
	}); err != nil {
		return err
	}

	var inv models.Inventory
	err := database.LockForUpdate(tx).
		Where("branch_id = ? AND product_id = ?", s.BranchID, req.ProductID).
		First(&inv).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		inv = models.Inventory{
			BranchID:      s.BranchID,
			ProductID:     req.ProductID,
			Quantity:      s.Quantity,
			LastRestocked: &now,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := tx.Model(&inv).Updates(map[string]interface{}{
			"quantity":       inv.Quantity + s.Quantity,
			"last_restocked": now,
		}).Error; err != nil {
			return err
		}
	}

	return tx.Model(&req).Update("status", models.StockRequestFulfilled).Error
}
