package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"restochain-backend/internal/billing"
	"restochain-backend/internal/database"
	"restochain-backend/internal/loyalty"
	"restochain-backend/internal/models"
	"restochain-backend/internal/stock"
)

var (
	ErrBranchNotFound    = errors.New("branch not found")
	ErrBranchInactive    = errors.New("branch is not active")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotEditable  = errors.New("only pending orders can be edited")
	ErrOrderTerminal     = errors.New("order is already completed or cancelled")
	ErrOrderNotPending   = errors.New("order is not pending")
	ErrOrderNotPreparing = errors.New("order is not being prepared")
	ErrBranchMismatch    = errors.New("order belongs to another branch")
	ErrPromotionInvalid  = errors.New("promotion code is not applicable")
)

// ItemError identifies the offending line item when order validation fails.
type ItemError struct {
	ProductID   uint
	ProductName string
	Reason      string // not_found / unavailable / insufficient_stock / invalid_quantity
	Requested   int
	Available   int
}

func (e *ItemError) Error() string {
	switch e.Reason {
	case "insufficient_stock":
		return fmt.Sprintf("product %d (%s): insufficient stock, requested %d, available %d",
			e.ProductID, e.ProductName, e.Requested, e.Available)
	case "unavailable":
		return fmt.Sprintf("product %d (%s) is not available", e.ProductID, e.ProductName)
	case "invalid_quantity":
		return fmt.Sprintf("product %d: quantity must be positive, got %d", e.ProductID, e.Requested)
	default:
		return fmt.Sprintf("product %d not found", e.ProductID)
	}
}

type ItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type CreateInput struct {
	BranchID      uint
	CustomerID    *uint
	StaffID       *uint
	Items         []ItemInput
	PaymentMethod string
	Notes         string
	PromoCode     string
}

// Create places an order: inside one transaction every product row is
// re-read under a lock, validated against the locked value and decremented,
// then the order and its items are inserted. Any failing item aborts the
// whole transaction.
func Create(db *gorm.DB, in CreateInput) (*models.Order, error) {
	var created *models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		var branch models.Branch
		if err := tx.First(&branch, "id = ?", in.BranchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBranchNotFound
			}
			return err
		}
		if !branch.IsActive {
			return ErrBranchInactive
		}

		number, err := AllocateOrderNumber(time.Now(), func(candidate string) (bool, error) {
			var count int64
			if err := tx.Model(&models.Order{}).Where("order_number = ?", candidate).Count(&count).Error; err != nil {
				return false, err
			}
			return count > 0, nil
		})
		if err != nil {
			return err
		}

		items, subtotal, err := applyItems(tx, in.BranchID, in.Items, number, in.StaffID)
		if err != nil {
			return err
		}

		var discount float64
		var promotionID *uint
		if in.PromoCode != "" {
			promo, err := usePromotion(tx, in.PromoCode)
			if err != nil {
				return err
			}
			discount = promo.DiscountAmount
			promotionID = &promo.ID
		}

		total := subtotal - discount
		if total < 0 {
			total = 0
		}

		o := models.Order{
			OrderNumber:    number,
			BranchID:       in.BranchID,
			CustomerID:     in.CustomerID,
			StaffID:        in.StaffID,
			Status:         models.OrderStatusPending,
			PaymentMethod:  in.PaymentMethod,
			PaymentStatus:  models.PaymentStatusUnpaid,
			DiscountAmount: discount,
			Total:          total,
			Notes:          in.Notes,
			PromotionID:    promotionID,
			Items:          items,
		}
		if err := tx.Create(&o).Error; err != nil {
			return err
		}

		if err := writeAudit(tx, o.ID, in.StaffID, models.OrderActionCreated, ""); err != nil {
			return err
		}

		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_number", created.OrderNumber).Uint("branch_id", created.BranchID).
		Float64("total", created.Total).Msg("order created")
	return created, nil
}

// applyItems validates each requested line against the locked product row and
// decrements stock through stock.Adjust. Returns the built order items with
// price snapshots and their subtotal.
func applyItems(tx *gorm.DB, branchID uint, inputs []ItemInput, reference string, actorID *uint) ([]models.OrderItem, float64, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	var subtotal float64

	for _, it := range inputs {
		if it.Quantity <= 0 {
			return nil, 0, &ItemError{ProductID: it.ProductID, Reason: "invalid_quantity", Requested: it.Quantity}
		}

		// Pre-check branch ownership and availability on the locked row;
		// soft-deleted products are excluded by the default scope.
		var product models.Product
		if err := database.LockForUpdate(tx).First(&product, "id = ?", it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, &ItemError{ProductID: it.ProductID, Reason: "not_found"}
			}
			return nil, 0, err
		}
		if product.BranchID != branchID {
			return nil, 0, &ItemError{ProductID: product.ID, ProductName: product.Name, Reason: "not_found"}
		}
		if !product.IsAvailable {
			return nil, 0, &ItemError{ProductID: product.ID, ProductName: product.Name, Reason: "unavailable"}
		}

		updated, err := stock.Adjust(tx, stock.AdjustParams{
			ProductID:     product.ID,
			Delta:         -it.Quantity,
			Type:          models.StockTxSale,
			Reference:     reference,
			PerformedByID: actorID,
		})
		if err != nil {
			var insufficient *stock.InsufficientStockError
			if errors.As(err, &insufficient) {
				return nil, 0, &ItemError{
					ProductID:   insufficient.ProductID,
					ProductName: insufficient.ProductName,
					Reason:      "insufficient_stock",
					Requested:   insufficient.Requested,
					Available:   insufficient.Available,
				}
			}
			return nil, 0, err
		}

		items = append(items, models.OrderItem{
			ProductID: updated.ID,
			Quantity:  it.Quantity,
			Price:     updated.Price,
		})
		subtotal += updated.Price * float64(it.Quantity)
	}

	return items, subtotal, nil
}

func usePromotion(tx *gorm.DB, code string) (*models.Promotion, error) {
	var promo models.Promotion
	if err := database.LockForUpdate(tx).First(&promo, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromotionInvalid
		}
		return nil, err
	}
	if !promo.IsActive {
		return nil, ErrPromotionInvalid
	}
	if promo.MaxUsage > 0 && promo.UsageCount >= promo.MaxUsage {
		return nil, ErrPromotionInvalid
	}

	promo.UsageCount++
	if err := tx.Model(&promo).Update("usage_count", promo.UsageCount).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func writeAudit(tx *gorm.DB, orderID uint, actorID *uint, action models.OrderAction, reason string) error {
	return tx.Create(&models.OrderAuditLog{
		OrderID: orderID,
		ActorID: actorID,
		Action:  action,
		Reason:  reason,
	}).Error
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var o models.Order
	if err := database.LockForUpdate(tx).First(&o, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := tx.Where("order_id = ?", o.ID).Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// EditItems replaces a pending order's item set: the previous quantities are
// restored to stock, old items deleted, then the new set is validated and
// decremented exactly like Create. Restore and reapply share one transaction;
// a failed reapply rolls the restore back too.
func EditItems(db *gorm.DB, orderID uint, newItems []ItemInput, reason string, actorID *uint) (*models.Order, error) {
	var edited *models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != models.OrderStatusPending {
			return ErrOrderNotEditable
		}

		for _, item := range o.Items {
			if _, err := stock.Adjust(tx, stock.AdjustParams{
				ProductID:     item.ProductID,
				Delta:         item.Quantity,
				Type:          models.StockTxReturn,
				Reference:     o.OrderNumber,
				PerformedByID: actorID,
			}); err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}

		items, subtotal, err := applyItems(tx, o.BranchID, newItems, o.OrderNumber, actorID)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		total := subtotal - o.DiscountAmount
		if total < 0 {
			total = 0
		}
		// update by id, not through o: o.Items still holds the deleted set
		// and a model-bound update would re-save those associations
		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("total", total).Error; err != nil {
			return err
		}
		o.Total = total
		o.Items = items

		if err := writeAudit(tx, o.ID, actorID, models.OrderActionItemsEdited, reason); err != nil {
			return err
		}

		edited = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_number", edited.OrderNumber).Int("items", len(edited.Items)).
		Msg("order items edited")
	return edited, nil
}

// Cancel restores every item's quantity and marks the order CANCELLED.
func Cancel(db *gorm.DB, orderID uint, reason string, actorID *uint) (*models.Order, error) {
	var cancelled *models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.IsTerminal() {
			return ErrOrderTerminal
		}

		for _, item := range o.Items {
			if _, err := stock.Adjust(tx, stock.AdjustParams{
				ProductID:     item.ProductID,
				Delta:         item.Quantity,
				Type:          models.StockTxReturn,
				Reference:     o.OrderNumber,
				PerformedByID: actorID,
			}); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("status", models.OrderStatusCancelled).Error; err != nil {
			return err
		}
		o.Status = models.OrderStatusCancelled

		if err := writeAudit(tx, o.ID, actorID, models.OrderActionCancelled, reason); err != nil {
			return err
		}

		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_number", cancelled.OrderNumber).Str("reason", reason).
		Msg("order cancelled")
	return cancelled, nil
}

// Accept moves PENDING to PREPARING after re-validating that every product is
// still available and stocked; time may have passed since placement. Stock
// itself was already decremented at creation, so nothing is mutated here.
func Accept(db *gorm.DB, orderID uint, callerBranchID uint, actorID *uint) (*models.Order, error) {
	var accepted *models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.BranchID != callerBranchID {
			return ErrBranchMismatch
		}
		if o.Status != models.OrderStatusPending {
			return ErrOrderNotPending
		}

		for _, item := range o.Items {
			var product models.Product
			if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ItemError{ProductID: item.ProductID, Reason: "not_found"}
				}
				return err
			}
			if !product.IsAvailable {
				return &ItemError{ProductID: product.ID, ProductName: product.Name, Reason: "unavailable"}
			}
			// stock may have been adjusted away since placement
			if product.Quantity < item.Quantity {
				return &ItemError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Reason:      "insufficient_stock",
					Requested:   item.Quantity,
					Available:   product.Quantity,
				}
			}
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("status", models.OrderStatusPreparing).Error; err != nil {
			return err
		}
		o.Status = models.OrderStatusPreparing

		if err := writeAudit(tx, o.ID, actorID, models.OrderActionAccepted, ""); err != nil {
			return err
		}

		accepted = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// MarkReady moves PREPARING to READY when the kitchen finishes. No stock or
// payment effect.
func MarkReady(db *gorm.DB, orderID uint, callerBranchID uint, actorID *uint) (*models.Order, error) {
	var ready *models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.BranchID != callerBranchID {
			return ErrBranchMismatch
		}
		if o.Status != models.OrderStatusPreparing {
			return ErrOrderNotPreparing
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("status", models.OrderStatusReady).Error; err != nil {
			return err
		}
		o.Status = models.OrderStatusReady

		if err := writeAudit(tx, o.ID, actorID, models.OrderActionReady, ""); err != nil {
			return err
		}

		ready = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ready, nil
}

type CompleteInput struct {
	OrderID        uint
	CallerBranchID uint
	PaymentMethod  string               // optional override
	PaymentStatus  models.PaymentStatus // optional, defaults to PAID
	ActorID        *uint
	Loyalty        loyalty.Config
}

// Complete finalizes an order in one transaction: terminal status, bill
// snapshot with a branch-scoped daily bill number, and loyalty award for the
// order's customer. If any step fails nothing is finalized.
func Complete(db *gorm.DB, in CompleteInput) (*models.Order, *models.Bill, error) {
	var (
		completed *models.Order
		bill      *models.Bill
	)

	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, in.OrderID)
		if err != nil {
			return err
		}
		if o.BranchID != in.CallerBranchID {
			return ErrBranchMismatch
		}
		if o.IsTerminal() {
			return ErrOrderTerminal
		}

		now := time.Now()
		paymentStatus := in.PaymentStatus
		if paymentStatus == "" {
			paymentStatus = models.PaymentStatusPaid
		}
		updates := map[string]interface{}{
			"status":         models.OrderStatusCompleted,
			"completed_at":   now,
			"payment_status": paymentStatus,
		}
		if in.PaymentMethod != "" {
			updates["payment_method"] = in.PaymentMethod
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Updates(updates).Error; err != nil {
			return err
		}
		o.Status = models.OrderStatusCompleted
		o.CompletedAt = &now
		o.PaymentStatus = paymentStatus
		if in.PaymentMethod != "" {
			o.PaymentMethod = in.PaymentMethod
		}

		var customer *models.Customer
		if o.CustomerID != nil {
			customer, err = loyalty.Award(tx, in.Loyalty, *o.CustomerID, o.Total, now)
			if err != nil {
				return err
			}
		}

		bill, err = billing.CreateForOrder(tx, o, customer, now)
		if err != nil {
			return err
		}

		if err := writeAudit(tx, o.ID, in.ActorID, models.OrderActionCompleted, ""); err != nil {
			return err
		}

		completed = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("order_number", completed.OrderNumber).Str("bill_number", bill.BillNumber).
		Msg("order completed")
	return completed, bill, nil
}
