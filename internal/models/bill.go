package models

import "time"

// Bill is an immutable financial snapshot of a completed order. The unique
// index on OrderID backs the one-bill-per-order invariant at the database
// level; the status check in order completion is not the only guard.
type Bill struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BillNumber    string    `gorm:"size:40;uniqueIndex;not null" json:"bill_number"`
	OrderID       uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	Order         Order     `json:"-"`
	BranchID      uint      `gorm:"index;not null" json:"branch_id"`
	Subtotal      float64   `gorm:"not null" json:"subtotal"`
	Tax           float64   `json:"tax"`
	Discount      float64   `json:"discount"`
	Total         float64   `gorm:"not null" json:"total"`
	CustomerName  string    `gorm:"size:100" json:"customer_name"`
	CustomerPhone string    `gorm:"size:20" json:"customer_phone"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BillHistory stores the full pre-change bill state before any complaint
// edit, so every historical version is reconstructible. Append-only.
type BillHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BillID     uint      `gorm:"index;not null" json:"bill_id"`
	EditedByID uint      `json:"edited_by_id"`
	Reason     string    `gorm:"size:255;not null" json:"reason"`
	BeforeData string    `gorm:"type:jsonb" json:"before_data"`
	CreatedAt  time.Time `json:"created_at"`
}

// BillSequence is the per-branch-per-day counter behind bill numbers. The row
// is incremented under a locking read so concurrent completions cannot hand
// out the same sequence value.
type BillSequence struct {
	ID       uint   `gorm:"primaryKey"`
	BranchID uint   `gorm:"not null;uniqueIndex:idx_bill_seq_branch_day"`
	Day      string `gorm:"size:10;not null;uniqueIndex:idx_bill_seq_branch_day"`
	Seq      int    `gorm:"not null;default:0"`
}
