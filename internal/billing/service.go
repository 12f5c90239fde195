package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

var (
	ErrBillNotFound   = errors.New("bill not found")
	ErrBranchMismatch = errors.New("bill belongs to another branch")
	ErrReasonRequired = errors.New("an edit reason is required")
)

// nextBillNumber hands out the branch-scoped daily sequence under a locking
// read of the counter row, so concurrent completions for the same branch and
// day cannot both observe the same value.
func nextBillNumber(tx *gorm.DB, branchID uint, now time.Time) (string, error) {
	day := now.Format("2006-01-02")

	var seq models.BillSequence
	err := database.LockForUpdate(tx).
		Where("branch_id = ? AND day = ?", branchID, day).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = models.BillSequence{BranchID: branchID, Day: day}
		// racing first-bill-of-the-day inserts collide on the unique index
		// and roll the losing completion back, which is the safe outcome
		if err := tx.Create(&seq).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	seq.Seq++
	if err := tx.Model(&seq).Update("seq", seq.Seq).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("BILL-%s-%d-%04d", now.Format("20060102"), branchID, seq.Seq), nil
}

// CreateForOrder materializes the immutable bill snapshot for a completed
// order. Called only from order completion, inside its transaction; the
// unique index on order_id enforces one bill per order even under races.
func CreateForOrder(tx *gorm.DB, o *models.Order, customer *models.Customer, now time.Time) (*models.Bill, error) {
	number, err := nextBillNumber(tx, o.BranchID, now)
	if err != nil {
		return nil, err
	}

	var subtotal float64
	for _, item := range o.Items {
		subtotal += item.Price * float64(item.Quantity)
	}

	bill := models.Bill{
		BillNumber: number,
		OrderID:    o.ID,
		BranchID:   o.BranchID,
		Subtotal:   subtotal,
		Tax:        0,
		Discount:   o.DiscountAmount,
		Total:      o.Total,
	}
	if customer != nil {
		bill.CustomerName = customer.Name
		bill.CustomerPhone = customer.Phone
	}

	if err := tx.Create(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// ComplaintUpdate lists the bill fields a complaint may correct.
type ComplaintUpdate struct {
	CustomerName  *string  `json:"customer_name"`
	CustomerPhone *string  `json:"customer_phone"`
	Discount      *float64 `json:"discount"`
	Total         *float64 `json:"total"`
}

// UpdateForComplaint applies a post-hoc correction. The pre-change state is
// persisted to BillHistory before any field changes, so every historical
// version of the bill stays reconstructible.
func UpdateForComplaint(db *gorm.DB, billID uint, callerBranchID uint, editorID uint, reason string, changes ComplaintUpdate) (*models.Bill, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var updated *models.Bill
	err := db.Transaction(func(tx *gorm.DB) error {
		var bill models.Bill
		if err := database.LockForUpdate(tx).First(&bill, "id = ?", billID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBillNotFound
			}
			return err
		}
		if bill.BranchID != callerBranchID {
			return ErrBranchMismatch
		}

		before, err := json.Marshal(bill)
		if err != nil {
			return err
		}
		if err := tx.Create(&models.BillHistory{
			BillID:     bill.ID,
			EditedByID: editorID,
			Reason:     reason,
			BeforeData: string(before),
		}).Error; err != nil {
			return err
		}

		if changes.CustomerName != nil {
			bill.CustomerName = *changes.CustomerName
		}
		if changes.CustomerPhone != nil {
			bill.CustomerPhone = *changes.CustomerPhone
		}
		if changes.Discount != nil {
			bill.Discount = *changes.Discount
		}
		if changes.Total != nil {
			bill.Total = *changes.Total
		}

		if err := tx.Save(&bill).Error; err != nil {
			return err
		}

		updated = &bill
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
