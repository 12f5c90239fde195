package loyalty

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"restochain-backend/internal/auth"
	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

type TierOverrideRequest struct {
	Tier   models.CustomerTier `json:"tier"`
	Reason string              `json:"reason"`
}

func validTier(t models.CustomerTier) bool {
	switch t {
	case models.TierBronze, models.TierSilver, models.TierGold, models.TierVIP:
		return true
	}
	return false
}

// PUT /api/customers/:id/tier-override
// Manager escape hatch: pins a tier independent of points, with a recorded
// reason and actor.
func SetTierOverrideHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		customerID, err := c.ParamsInt("id")
		if err != nil || customerID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid customer id")
		}

		var body TierOverrideRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if !validTier(body.Tier) {
			return fiber.NewError(fiber.StatusBadRequest, "tier must be BRONZE, SILVER, GOLD or VIP")
		}
		if body.Reason == "" {
			return fiber.NewError(fiber.StatusBadRequest, "reason is required")
		}

		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		customer, err := SetTierOverride(database.DB, uint(customerID), body.Tier, body.Reason, userID)
		if err != nil {
			if errors.Is(err, ErrCustomerNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "customer not found")
			}
			return err
		}

		return c.JSON(fiber.Map{
			"id":             customer.ID,
			"points":         customer.Points,
			"tier":           customer.Tier,
			"tier_override":  customer.TierOverride,
			"effective_tier": customer.EffectiveTier(),
		})
	}
}

// DELETE /api/customers/:id/tier-override
func ClearTierOverrideHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		customerID, err := c.ParamsInt("id")
		if err != nil || customerID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid customer id")
		}

		customer, err := ClearTierOverride(database.DB, uint(customerID))
		if err != nil {
			if errors.Is(err, ErrCustomerNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "customer not found")
			}
			return err
		}

		return c.JSON(fiber.Map{
			"id":             customer.ID,
			"points":         customer.Points,
			"tier":           customer.Tier,
			"effective_tier": customer.EffectiveTier(),
		})
	}
}
