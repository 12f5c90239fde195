package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

type CreatePromotionRequest struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	DiscountAmount float64 `json:"discount_amount"`
	MaxUsage       int     `json:"max_usage"`
}

type UpdatePromotionRequest struct {
	Description    *string  `json:"description"`
	DiscountAmount *float64 `json:"discount_amount"`
	MaxUsage       *int     `json:"max_usage"`
	IsActive       *bool    `json:"is_active"`
}

// POST /api/admin/promotions
func CreatePromotionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePromotionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Code = strings.ToUpper(strings.TrimSpace(body.Code))
		if body.Code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "code is required")
		}
		if body.DiscountAmount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "discount_amount must be positive")
		}
		if body.MaxUsage < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "max_usage cannot be negative")
		}

		promo := models.Promotion{
			Code:           body.Code,
			Description:    body.Description,
			DiscountAmount: body.DiscountAmount,
			MaxUsage:       body.MaxUsage,
			IsActive:       true,
		}
		if err := database.DB.Create(&promo).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not create promotion; code may already exist")
		}

		return c.Status(fiber.StatusCreated).JSON(promo)
	}
}

// GET /api/admin/promotions
func ListPromotionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var promos []models.Promotion
		if err := database.DB.Order("created_at DESC").Find(&promos).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list promotions")
		}
		return c.JSON(promos)
	}
}

// PUT /api/admin/promotions/:id
func UpdatePromotionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var promo models.Promotion
		if err := database.DB.First(&promo, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "promotion not found")
		}

		var body UpdatePromotionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Description != nil {
			promo.Description = *body.Description
		}
		if body.DiscountAmount != nil {
			if *body.DiscountAmount <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "discount_amount must be positive")
			}
			promo.DiscountAmount = *body.DiscountAmount
		}
		if body.MaxUsage != nil {
			promo.MaxUsage = *body.MaxUsage
		}
		if body.IsActive != nil {
			promo.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&promo).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update promotion")
		}
		return c.JSON(promo)
	}
}
