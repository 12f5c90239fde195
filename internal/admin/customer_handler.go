package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type CustomerResponse struct {
	ID            uint                `json:"id"`
	Name          string              `json:"name"`
	Phone         string              `json:"phone"`
	Points        int                 `json:"points"`
	Tier          models.CustomerTier `json:"tier"`
	EffectiveTier models.CustomerTier `json:"effective_tier"`
	TotalSpent    float64             `json:"total_spent"`
	LastOrderDate *string             `json:"last_order_date"`
}

func toCustomerResponse(cu *models.Customer) CustomerResponse {
	var lastOrder *string
	if cu.LastOrderDate != nil {
		v := cu.LastOrderDate.Format("2006-01-02 15:04:05")
		lastOrder = &v
	}
	return CustomerResponse{
		ID:            cu.ID,
		Name:          cu.Name,
		Phone:         cu.Phone,
		Points:        cu.Points,
		Tier:          cu.Tier,
		EffectiveTier: cu.EffectiveTier(),
		TotalSpent:    cu.TotalSpent,
		LastOrderDate: lastOrder,
	}
}

// POST /api/customers
func CreateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Phone = strings.TrimSpace(body.Phone)
		if body.Name == "" || body.Phone == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and phone are required")
		}

		customer := models.Customer{
			Name:  body.Name,
			Phone: body.Phone,
			Tier:  models.TierBronze,
		}
		if err := database.DB.Create(&customer).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not create customer; phone may already be registered")
		}

		return c.Status(fiber.StatusCreated).JSON(toCustomerResponse(&customer))
	}
}

// GET /api/customers?phone=
func ListCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Customer{})
		if phone := c.Query("phone"); phone != "" {
			q = q.Where("phone = ?", phone)
		}

		var customers []models.Customer
		if err := q.Order("name asc").Limit(200).Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list customers")
		}

		res := make([]CustomerResponse, 0, len(customers))
		for i := range customers {
			res = append(res, toCustomerResponse(&customers[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/customers/:id
func GetCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var customer models.Customer
		if err := database.DB.First(&customer, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "customer not found")
		}
		return c.JSON(toCustomerResponse(&customer))
	}
}
