package inventory

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"restochain-backend/internal/auth"
	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

type ProductResponse struct {
	ID          uint    `json:"id"`
	BranchID    uint    `json:"branch_id"`
	CategoryID  *uint   `json:"category_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	CostPrice   float64 `json:"cost_price"`
	Quantity    int     `json:"quantity"`
	IsAvailable bool    `json:"is_available"`
}

type CreateProductRequest struct {
	BranchID   *uint   `json:"branch_id"`
	CategoryID *uint   `json:"category_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	CostPrice  float64 `json:"cost_price"`
	Quantity   int     `json:"quantity"`
}

type UpdateProductRequest struct {
	CategoryID  *uint    `json:"category_id"`
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	CostPrice   *float64 `json:"cost_price"`
	IsAvailable *bool    `json:"is_available"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		BranchID:    p.BranchID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Price:       p.Price,
		CostPrice:   p.CostPrice,
		Quantity:    p.Quantity,
		IsAvailable: p.IsAvailable,
	}
}

// GET /api/products
// Soft-deleted products are excluded by the default scope.
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("branch_id = ?", branchID)
		if c.Query("available") == "true" {
			dbq = dbq.Where("is_available = ?", true)
		}

		var products []models.Product
		if err := dbq.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list products")
		}

		res := make([]ProductResponse, 0, len(products))
		for i := range products {
			res = append(res, toProductResponse(&products[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/products
// Initial quantity is set at creation; afterwards the quantity only moves
// through stock adjustments, orders and shipment deliveries.
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if body.Price <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "price must be positive")
		}
		if body.Quantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity cannot be negative")
		}

		branchID, err := auth.ResolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", branchID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "branch not found")
		}

		product := models.Product{
			BranchID:    branchID,
			CategoryID:  body.CategoryID,
			Name:        body.Name,
			Price:       body.Price,
			CostPrice:   body.CostPrice,
			Quantity:    body.Quantity,
			IsAvailable: true,
		}
		if err := database.DB.Create(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create product")
		}

		return c.Status(fiber.StatusCreated).JSON(toProductResponse(&product))
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			product.Name = name
		}
		if body.CategoryID != nil {
			product.CategoryID = body.CategoryID
		}
		if body.Price != nil {
			if *body.Price <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "price must be positive")
			}
			product.Price = *body.Price
		}
		if body.CostPrice != nil {
			product.CostPrice = *body.CostPrice
		}
		if body.IsAvailable != nil {
			product.IsAvailable = *body.IsAvailable
		}

		if err := database.DB.Save(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update product")
		}
		return c.JSON(toProductResponse(&product))
	}
}

// DELETE /api/admin/products/:id (soft delete)
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}

		if err := database.DB.Delete(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete product")
		}
		return c.JSON(fiber.Map{"message": "product deleted"})
	}
}

// GET /api/inventories
func ListInventoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		var rows []models.Inventory
		if err := database.DB.Preload("Product").Where("branch_id = ?", branchID).Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list inventories")
		}
		return c.JSON(rows)
	}
}
