package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"restochain-backend/internal/auth"
	"restochain-backend/internal/config"
	"restochain-backend/internal/database"
	"restochain-backend/internal/loyalty"
	"restochain-backend/internal/models"
)

type CreateOrderRequest struct {
	BranchID      *uint       `json:"branch_id"` // super_admin only; others use their token branch
	CustomerID    *uint       `json:"customer_id"`
	Items         []ItemInput `json:"items"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes"`
	PromoCode     string      `json:"promo_code"`
}

type EditItemsRequest struct {
	Items  []ItemInput `json:"items"`
	Reason string      `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type CompleteRequest struct {
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"` // optional, defaults to PAID
}

type ItemResponse struct {
	ID        uint    `json:"id"`
	ProductID uint    `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderResponse struct {
	ID             uint                 `json:"id"`
	OrderNumber    string               `json:"order_number"`
	BranchID       uint                 `json:"branch_id"`
	CustomerID     *uint                `json:"customer_id"`
	StaffID        *uint                `json:"staff_id"`
	Status         models.OrderStatus   `json:"status"`
	PaymentMethod  string               `json:"payment_method"`
	PaymentStatus  models.PaymentStatus `json:"payment_status"`
	DiscountAmount float64              `json:"discount_amount"`
	Total          float64              `json:"total"`
	Notes          string               `json:"notes"`
	Items          []ItemResponse       `json:"items"`
	CreatedAt      string               `json:"created_at"`
}

func toResponse(o *models.Order) OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return OrderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		BranchID:       o.BranchID,
		CustomerID:     o.CustomerID,
		StaffID:        o.StaffID,
		Status:         o.Status,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  o.PaymentStatus,
		DiscountAmount: o.DiscountAmount,
		Total:          o.Total,
		Notes:          o.Notes,
		Items:          items,
		CreatedAt:      o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// translateError maps core order errors onto the HTTP taxonomy: 404 for
// unresolved ids, 400 for validation and state conflicts, 500 only for
// exhausted retries and the unexpected.
func translateError(err error) error {
	var itemErr *ItemError
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	case errors.Is(err, ErrBranchNotFound):
		return fiber.NewError(fiber.StatusBadRequest, "branch not found")
	case errors.Is(err, ErrBranchInactive):
		return fiber.NewError(fiber.StatusBadRequest, "branch is not active")
	case errors.Is(err, ErrOrderNotEditable):
		return fiber.NewError(fiber.StatusBadRequest, "only pending orders can be edited")
	case errors.Is(err, ErrOrderTerminal):
		return fiber.NewError(fiber.StatusBadRequest, "order is already completed or cancelled")
	case errors.Is(err, ErrOrderNotPending):
		return fiber.NewError(fiber.StatusBadRequest, "order is not pending")
	case errors.Is(err, ErrOrderNotPreparing):
		return fiber.NewError(fiber.StatusBadRequest, "order is not being prepared")
	case errors.Is(err, ErrBranchMismatch):
		return fiber.NewError(fiber.StatusForbidden, "order belongs to another branch")
	case errors.Is(err, ErrPromotionInvalid):
		return fiber.NewError(fiber.StatusBadRequest, "promotion code is not applicable")
	case errors.As(err, &itemErr):
		return fiber.NewError(fiber.StatusBadRequest, itemErr.Error())
	case errors.Is(err, ErrOrderNumberExhausted):
		log.Error().Err(err).Msg("order number generation exhausted")
		return fiber.NewError(fiber.StatusInternalServerError, "could not generate order number")
	default:
		return err
	}
}

// POST /api/orders
func CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "at least one item is required")
		}
		for _, it := range body.Items {
			if it.ProductID == 0 || it.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "every item needs a product_id and a positive quantity")
			}
		}

		branchID, err := auth.ResolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}
		staffID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		o, err := Create(database.DB, CreateInput{
			BranchID:      branchID,
			CustomerID:    body.CustomerID,
			StaffID:       &staffID,
			Items:         body.Items,
			PaymentMethod: body.PaymentMethod,
			Notes:         body.Notes,
			PromoCode:     body.PromoCode,
		})
		if err != nil {
			return translateError(err)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(o))
	}
}

// PUT /api/orders/:id/items
func EditItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		var body EditItemsRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "at least one item is required")
		}
		if body.Reason == "" {
			return fiber.NewError(fiber.StatusBadRequest, "reason is required")
		}

		actorID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		o, err := EditItems(database.DB, uint(orderID), body.Items, body.Reason, &actorID)
		if err != nil {
			return translateError(err)
		}

		return c.JSON(toResponse(o))
	}
}

// POST /api/orders/:id/cancel
func CancelHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		var body CancelRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Reason == "" {
			return fiber.NewError(fiber.StatusBadRequest, "reason is required")
		}

		actorID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		o, err := Cancel(database.DB, uint(orderID), body.Reason, &actorID)
		if err != nil {
			return translateError(err)
		}

		return c.JSON(toResponse(o))
	}
}

// POST /api/orders/:id/accept
func AcceptHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}
		actorID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		o, err := Accept(database.DB, uint(orderID), branchID, &actorID)
		if err != nil {
			return translateError(err)
		}

		return c.JSON(toResponse(o))
	}
}

// POST /api/orders/:id/ready
func ReadyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}
		actorID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		o, err := MarkReady(database.DB, uint(orderID), branchID, &actorID)
		if err != nil {
			return translateError(err)
		}

		return c.JSON(toResponse(o))
	}
}

// POST /api/orders/:id/complete
func CompleteHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		var body CompleteRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}

		paymentStatus := models.PaymentStatus(body.PaymentStatus)
		switch paymentStatus {
		case "", models.PaymentStatusUnpaid, models.PaymentStatusPaid, models.PaymentStatusRefunded:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "payment_status must be UNPAID, PAID or REFUNDED")
		}

		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}
		actorID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		o, bill, err := Complete(database.DB, CompleteInput{
			OrderID:        uint(orderID),
			CallerBranchID: branchID,
			PaymentMethod:  body.PaymentMethod,
			PaymentStatus:  paymentStatus,
			ActorID:        &actorID,
			Loyalty:        loyalty.FromAppConfig(cfg),
		})
		if err != nil {
			return translateError(err)
		}

		return c.JSON(fiber.Map{
			"order": toResponse(o),
			"bill":  bill,
		})
	}
}

// GET /api/orders?status=
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		q := database.DB.Preload("Items").Where("branch_id = ?", branchID)
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var orders []models.Order
		if err := q.Order("created_at DESC").Limit(200).Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list orders")
		}

		resp := make([]OrderResponse, 0, len(orders))
		for i := range orders {
			resp = append(resp, toResponse(&orders[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/orders/:id
func GetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		var o models.Order
		if err := database.DB.Preload("Items").First(&o, "id = ?", orderID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}

		return c.JSON(toResponse(&o))
	}
}

// GET /api/orders/:id/audit-logs
func AuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
		}

		var logs []models.OrderAuditLog
		if err := database.DB.Where("order_id = ?", orderID).Order("created_at ASC").Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list audit logs")
		}
		return c.JSON(logs)
	}
}
