package models

import (
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is branch-scoped; Quantity is the live stock level and is mutated
// only through stock.Adjust so every change leaves a StockTransaction behind.
type Product struct {
	ID          uint `gorm:"primaryKey"`
	BranchID    uint `gorm:"index;not null"`
	Branch      Branch
	CategoryID  *uint
	Category    *Category
	Name        string  `gorm:"size:100;not null"`
	Price       float64 `gorm:"not null"`
	CostPrice   float64
	Quantity    int  `gorm:"not null;default:0"`
	IsAvailable bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}
