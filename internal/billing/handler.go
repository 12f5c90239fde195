package billing

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"restochain-backend/internal/auth"
	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

type ComplaintRequest struct {
	Reason  string          `json:"reason"`
	Changes ComplaintUpdate `json:"changes"`
}

// POST /api/bills/:id/complaint
func ComplaintHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		billID, err := c.ParamsInt("id")
		if err != nil || billID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid bill id")
		}

		var body ComplaintRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}
		editorID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		bill, err := UpdateForComplaint(database.DB, uint(billID), branchID, editorID, body.Reason, body.Changes)
		if err != nil {
			switch {
			case errors.Is(err, ErrBillNotFound):
				return fiber.NewError(fiber.StatusNotFound, "bill not found")
			case errors.Is(err, ErrBranchMismatch):
				return fiber.NewError(fiber.StatusForbidden, "bill belongs to another branch")
			case errors.Is(err, ErrReasonRequired):
				return fiber.NewError(fiber.StatusBadRequest, "reason is required")
			default:
				return err
			}
		}

		return c.JSON(bill)
	}
}

// GET /api/bills?from=&to=
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		q := database.DB.Where("branch_id = ?", branchID)
		if from := c.Query("from"); from != "" {
			q = q.Where("created_at >= ?", from)
		}
		if to := c.Query("to"); to != "" {
			q = q.Where("created_at < ?", to)
		}

		var bills []models.Bill
		if err := q.Order("created_at DESC").Limit(500).Find(&bills).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list bills")
		}
		return c.JSON(bills)
	}
}

// GET /api/bills/:id/history
func HistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		billID, err := c.ParamsInt("id")
		if err != nil || billID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid bill id")
		}

		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		var bill models.Bill
		if err := database.DB.First(&bill, "id = ?", billID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "bill not found")
		}
		if bill.BranchID != branchID {
			return fiber.NewError(fiber.StatusForbidden, "bill belongs to another branch")
		}

		var history []models.BillHistory
		if err := database.DB.Where("bill_id = ?", bill.ID).Order("created_at ASC").Find(&history).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list bill history")
		}
		return c.JSON(history)
	}
}
