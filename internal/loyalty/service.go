package loyalty

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"restochain-backend/internal/config"
	"restochain-backend/internal/database"
	"restochain-backend/internal/models"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Config holds the points divisor and the ascending tier thresholds.
// BRONZE is the floor; SILVER/GOLD/VIP start at their Min values.
type Config struct {
	Divisor   int
	SilverMin int
	GoldMin   int
	VIPMin    int
}

func FromAppConfig(cfg *config.Config) Config {
	return Config{
		Divisor:   cfg.PointsDivisor,
		SilverMin: cfg.TierSilverMin,
		GoldMin:   cfg.TierGoldMin,
		VIPMin:    cfg.TierVIPMin,
	}
}

// PointsEarned: one point per Divisor currency units, floored.
func PointsEarned(orderTotal float64, cfg Config) int {
	if orderTotal <= 0 {
		return 0
	}
	return int(orderTotal) / cfg.Divisor
}

// TierForPoints is a pure function of the point balance.
func TierForPoints(points int, cfg Config) models.CustomerTier {
	switch {
	case points >= cfg.VIPMin:
		return models.TierVIP
	case points >= cfg.GoldMin:
		return models.TierGold
	case points >= cfg.SilverMin:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// Award adds the points earned by a completed order, recomputes the tier and
// updates spend bookkeeping. Runs inside the caller's completion transaction
// so points are never awarded for an order that fails to finalize.
func Award(tx *gorm.DB, cfg Config, customerID uint, orderTotal float64, completedAt time.Time) (*models.Customer, error) {
	var customer models.Customer
	if err := database.LockForUpdate(tx).First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	customer.Points += PointsEarned(orderTotal, cfg)
	customer.Tier = TierForPoints(customer.Points, cfg)
	customer.TotalSpent += orderTotal
	customer.LastOrderDate = &completedAt

	if err := tx.Model(&customer).Updates(map[string]interface{}{
		"points":          customer.Points,
		"tier":            customer.Tier,
		"total_spent":     customer.TotalSpent,
		"last_order_date": customer.LastOrderDate,
	}).Error; err != nil {
		return nil, err
	}

	return &customer, nil
}

// SetTierOverride pins a customer's tier independent of points. The computed
// tier keeps tracking points underneath and applies again once cleared.
func SetTierOverride(db *gorm.DB, customerID uint, tier models.CustomerTier, reason string, byID uint) (*models.Customer, error) {
	var customer models.Customer
	if err := db.First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	customer.TierOverride = &tier
	customer.TierOverrideReason = reason
	customer.TierOverrideByID = &byID

	if err := db.Model(&customer).Updates(map[string]interface{}{
		"tier_override":        tier,
		"tier_override_reason": reason,
		"tier_override_by_id":  byID,
	}).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func ClearTierOverride(db *gorm.DB, customerID uint) (*models.Customer, error) {
	var customer models.Customer
	if err := db.First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	customer.TierOverride = nil
	customer.TierOverrideReason = ""
	customer.TierOverrideByID = nil

	if err := db.Model(&customer).Updates(map[string]interface{}{
		"tier_override":        nil,
		"tier_override_reason": "",
		"tier_override_by_id":  nil,
	}).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}
