package report

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"

	"restochain-backend/internal/auth"
	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

// GET /api/reports/stock-transactions/export?from=&to=
func ExportStockTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		q := database.DB.Preload("Product").Where("branch_id = ?", branchID)
		if from := c.Query("from"); from != "" {
			q = q.Where("created_at >= ?", from)
		}
		if to := c.Query("to"); to != "" {
			q = q.Where("created_at < ?", to)
		}

		var txs []models.StockTransaction
		if err := q.Order("created_at ASC").Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load stock transactions")
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := f.GetSheetName(0)
		headers := []string{"Date", "Type", "Product", "Delta", "Previous", "New", "Reference"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		for row, t := range txs {
			values := []interface{}{
				t.CreatedAt.Format("2006-01-02 15:04:05"),
				string(t.Type),
				t.Product.Name,
				t.Quantity,
				t.PreviousQuantity,
				t.NewQuantity,
				t.Reference,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not build export file")
		}

		c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="stock-transactions-branch-%d.xlsx"`, branchID))
		return c.Send(buf.Bytes())
	}
}

// GET /api/reports/bills/export?from=&to=
func ExportBillsHandler() fiber.Handler {
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
		if err := q.Order("created_at ASC").Find(&bills).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load bills")
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := f.GetSheetName(0)
		headers := []string{"Bill Number", "Date", "Customer", "Phone", "Subtotal", "Discount", "Total"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		for row, b := range bills {
			values := []interface{}{
				b.BillNumber,
				b.CreatedAt.Format("2006-01-02 15:04:05"),
				b.CustomerName,
				b.CustomerPhone,
				b.Subtotal,
				b.Discount,
				b.Total,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not build export file")
		}

		c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bills-branch-%d.xlsx"`, branchID))
		return c.Send(buf.Bytes())
	}
}
