package models

import "time"

type Promotion struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Code           string    `gorm:"size:30;uniqueIndex;not null" json:"code"`
	Description    string    `gorm:"size:255" json:"description"`
	DiscountAmount float64   `gorm:"not null" json:"discount_amount"`
	UsageCount     int       `gorm:"not null;default:0" json:"usage_count"`
	MaxUsage       int       `gorm:"not null;default:0" json:"max_usage"` // 0 = unlimited
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
