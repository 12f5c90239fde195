package shipment

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"restochain-backend/internal/auth"
	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

type CreateShipmentRequest struct {
	BranchID       *uint  `json:"branch_id"`
	StockRequestID *uint  `json:"stock_request_id"`
	Quantity       int    `json:"quantity"`
	AssignedToID   *uint  `json:"assigned_to_id"`
	Note           string `json:"note"`
}

type UpdateStatusRequest struct {
	Status models.ShipmentStatus `json:"status"`
}

type CreateStockRequestRequest struct {
	BranchID  *uint  `json:"branch_id"`
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
}

type ShipmentResponse struct {
	ID             uint                  `json:"id"`
	ShipmentNumber string                `json:"shipment_number"`
	StockRequestID *uint                 `json:"stock_request_id"`
	BranchID       uint                  `json:"branch_id"`
	Quantity       int                   `json:"quantity"`
	Status         models.ShipmentStatus `json:"status"`
	AssignedToID   *uint                 `json:"assigned_to_id"`
	DeliveredAt    *string               `json:"delivered_at"`
	Note           string                `json:"note"`
	CreatedAt      string                `json:"created_at"`
}

func toResponse(s *models.Shipment) ShipmentResponse {
	var deliveredAt *string
	if s.DeliveredAt != nil {
		v := s.DeliveredAt.Format("2006-01-02 15:04:05")
		deliveredAt = &v
	}
	return ShipmentResponse{
		ID:             s.ID,
		ShipmentNumber: s.ShipmentNumber,
		StockRequestID: s.StockRequestID,
		BranchID:       s.BranchID,
		Quantity:       s.Quantity,
		Status:         s.Status,
		AssignedToID:   s.AssignedToID,
		DeliveredAt:    deliveredAt,
		Note:           s.Note,
		CreatedAt:      s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func translateError(err error) error {
	switch {
	case errors.Is(err, ErrShipmentNotFound):
		return fiber.NewError(fiber.StatusNotFound, "shipment not found")
	case errors.Is(err, ErrStockRequestNotFound):
		return fiber.NewError(fiber.StatusNotFound, "stock request not found")
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

// POST /api/shipments
func CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateShipmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be positive")
		}

		branchID, err := auth.ResolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}

		s, err := Create(database.DB, CreateInput{
			BranchID:       branchID,
			StockRequestID: body.StockRequestID,
			Quantity:       body.Quantity,
			AssignedToID:   body.AssignedToID,
			Note:           body.Note,
		})
		if err != nil {
			return translateError(err)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(s))
	}
}

// PATCH /api/shipments/:id/status
// status=DELIVERED triggers stock replenishment as a side effect.
func UpdateStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		shipmentID, err := c.ParamsInt("id")
		if err != nil || shipmentID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shipment id")
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		switch body.Status {
		case models.ShipmentStatusInTransit, models.ShipmentStatusDelivered, models.ShipmentStatusCompleted:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "status must be IN_TRANSIT, DELIVERED or COMPLETED")
		}

		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		s, err := UpdateStatus(database.DB, uint(shipmentID), body.Status, &userID)
		if err != nil {
			return translateError(err)
		}

		return c.JSON(toResponse(s))
	}
}

// GET /api/shipments?status=
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		q := database.DB.Where("branch_id = ?", branchID)
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var shipments []models.Shipment
		if err := q.Order("created_at DESC").Find(&shipments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list shipments")
		}

		resp := make([]ShipmentResponse, 0, len(shipments))
		for i := range shipments {
			resp = append(resp, toResponse(&shipments[i]))
		}
		return c.JSON(resp)
	}
}

// POST /api/stock-requests
func CreateStockRequestHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStockRequestRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ProductID == 0 || body.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id and a positive quantity are required")
		}

		branchID, err := auth.ResolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var product models.Product
		if err := database.DB.First(&product, "id = ? AND branch_id = ?", body.ProductID, branchID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "product not found in this branch")
		}

		req := models.StockRequest{
			BranchID:      branchID,
			ProductID:     body.ProductID,
			Quantity:      body.Quantity,
			Status:        models.StockRequestPending,
			RequestedByID: userID,
			Note:          body.Note,
		}
		if err := database.DB.Create(&req).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create stock request")
		}

		return c.Status(fiber.StatusCreated).JSON(req)
	}
}

// GET /api/stock-requests?status=
func ListStockRequestsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		q := database.DB.Preload("Product").Where("branch_id = ?", branchID)
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var reqs []models.StockRequest
		if err := q.Order("created_at DESC").Find(&reqs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list stock requests")
		}
		return c.JSON(reqs)
	}
}
