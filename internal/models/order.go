package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type Order struct {
	ID             uint   `gorm:"primaryKey"`
	OrderNumber    string `gorm:"size:30;uniqueIndex;not null"`
	BranchID       uint   `gorm:"index;not null"`
	Branch         Branch
	CustomerID     *uint `gorm:"index"`
	Customer       *Customer
	StaffID        *uint
	Staff          *User
	Status         OrderStatus   `gorm:"size:20;not null;default:'PENDING';index"`
	PaymentMethod  string        `gorm:"size:20"`
	PaymentStatus  PaymentStatus `gorm:"size:20;not null;default:'UNPAID'"`
	DiscountAmount float64
	Total          float64 `gorm:"not null"`
	Notes          string  `gorm:"size:500"`
	PromotionID    *uint
	Promotion      *Promotion
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// IsTerminal reports whether no further status transition is allowed.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// OrderItem captures Price at order time; later product price changes do not
// affect existing orders.
type OrderItem struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Quantity  int     `gorm:"not null"`
	Price     float64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderAction string

const (
	OrderActionCreated     OrderAction = "created"
	OrderActionItemsEdited OrderAction = "items_edited"
	OrderActionAccepted    OrderAction = "accepted"
	OrderActionReady       OrderAction = "ready"
	OrderActionCompleted   OrderAction = "completed"
	OrderActionCancelled   OrderAction = "cancelled"
)

// OrderAuditLog: structured audit trail for order mutations. Append-only.
type OrderAuditLog struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"index;not null" json:"order_id"`
	ActorID   *uint       `json:"actor_id"`
	Action    OrderAction `gorm:"size:20;not null" json:"action"`
	Reason    string      `gorm:"size:255" json:"reason"`
	CreatedAt time.Time   `json:"created_at"`
}
