package models

import "time"

type CustomerTier string

const (
	TierBronze CustomerTier = "BRONZE"
	TierSilver CustomerTier = "SILVER"
	TierGold   CustomerTier = "GOLD"
	TierVIP    CustomerTier = "VIP"
)

// Customer.Tier is always the tier computed from Points. A manager can pin a
// different tier via TierOverride; EffectiveTier resolves which one applies.
type Customer struct {
	ID            uint         `gorm:"primaryKey"`
	Name          string       `gorm:"size:100;not null"`
	Phone         string       `gorm:"size:20;uniqueIndex;not null"`
	Points        int          `gorm:"not null;default:0"`
	Tier          CustomerTier `gorm:"size:10;not null;default:'BRONZE'"`
	TotalSpent    float64      `gorm:"not null;default:0"`
	LastOrderDate *time.Time

	TierOverride       *CustomerTier `gorm:"size:10"`
	TierOverrideReason string        `gorm:"size:255"`
	TierOverrideByID   *uint

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Customer) EffectiveTier() CustomerTier {
	if c.TierOverride != nil {
		return *c.TierOverride
	}
	return c.Tier
}
