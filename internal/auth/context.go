package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"restochain-backend/internal/models"
)

// CurrentUserID returns the authenticated user's id from the request context.
func CurrentUserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return 0, fiber.NewError(fiber.StatusForbidden, "user claim missing")
	}
	return id, nil
}

func CurrentRole(c *fiber.Ctx) (models.UserRole, error) {
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return "", fiber.NewError(fiber.StatusForbidden, "role claim missing")
	}
	return role, nil
}

// ResolveBranchID picks the caller's branch: branch-bound roles get it from
// the token, super_admin must name it explicitly (body pointer or
// ?branch_id=).
func ResolveBranchID(c *fiber.Ctx, bodyBranchID *uint) (uint, error) {
	role, err := CurrentRole(c)
	if err != nil {
		return 0, err
	}

	if role != models.RoleSuperAdmin {
		bPtr, ok := c.Locals(CtxBranchIDKey).(*uint)
		if !ok || bPtr == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "no branch assigned to this account")
		}
		return *bPtr, nil
	}

	if bodyBranchID != nil {
		return *bodyBranchID, nil
	}

	bidStr := c.Query("branch_id")
	if bidStr == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id is required")
	}
	var bid uint
	if _, err := fmt.Sscan(bidStr, &bid); err != nil || bid == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id is invalid")
	}
	return bid, nil
}
