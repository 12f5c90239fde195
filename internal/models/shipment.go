package models

import "time"

type StockRequestStatus string

const (
	StockRequestPending   StockRequestStatus = "PENDING"
	StockRequestApproved  StockRequestStatus = "APPROVED"
	StockRequestShipped   StockRequestStatus = "SHIPPED"
	StockRequestFulfilled StockRequestStatus = "FULFILLED"
	StockRequestRejected  StockRequestStatus = "REJECTED"
)

// StockRequest: a branch asking the center for more of one product.
type StockRequest struct {
	ID            uint `gorm:"primaryKey"`
	BranchID      uint `gorm:"index;not null"`
	Branch        Branch
	ProductID     uint `gorm:"index;not null"`
	Product       Product
	Quantity      int                `gorm:"not null"`
	Status        StockRequestStatus `gorm:"size:20;not null;default:'PENDING'"`
	RequestedByID uint
	RequestedBy   User
	Note          string `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusCompleted ShipmentStatus = "COMPLETED"
)

// Shipment: a logistics delivery from the center to a branch. The transition
// to DELIVERED is the replenishment trigger; status never moves backwards.
type Shipment struct {
	ID             uint   `gorm:"primaryKey"`
	ShipmentNumber string `gorm:"size:30;uniqueIndex;not null"`
	StockRequestID *uint
	StockRequest   *StockRequest
	BranchID       uint `gorm:"index;not null"`
	Branch         Branch
	Quantity       int            `gorm:"not null"`
	Status         ShipmentStatus `gorm:"size:20;not null;default:'PENDING'"`
	AssignedToID   *uint
	AssignedTo     *User
	DeliveredAt    *time.Time
	Note           string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Inventory: per-branch restock bookkeeping row for a product, maintained by
// shipment delivery.
type Inventory struct {
	ID            uint `gorm:"primaryKey"`
	BranchID      uint `gorm:"not null;uniqueIndex:idx_inventory_branch_product"`
	ProductID     uint `gorm:"not null;uniqueIndex:idx_inventory_branch_product"`
	Product       Product
	Quantity      int `gorm:"not null;default:0"`
	LastRestocked *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
