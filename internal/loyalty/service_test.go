package loyalty_test

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"restochain-backend/internal/database"
	"restochain-backend/internal/loyalty"
	"restochain-backend/internal/models"
)

var cfg = loyalty.Config{Divisor: 10000, SilverMin: 100, GoldMin: 500, VIPMin: 1500}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestPointsEarned(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		want  int
	}{
		{"floors fractional points", 125000, 12},
		{"exact multiple", 120000, 12},
		{"below one point", 9999, 0},
		{"zero total", 0, 0},
		{"negative total", -5000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loyalty.PointsEarned(tt.total, cfg))
		})
	}
}

func TestTierForPoints_Boundaries(t *testing.T) {
	tests := []struct {
		points int
		want   models.CustomerTier
	}{
		{0, models.TierBronze},
		{99, models.TierBronze},
		{100, models.TierSilver},
		{499, models.TierSilver},
		{500, models.TierGold},
		{1499, models.TierGold},
		{1500, models.TierVIP},
		{9000, models.TierVIP},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, loyalty.TierForPoints(tt.points, cfg), "points=%d", tt.points)
	}
}

func TestAward_AccumulatesAndPromotes(t *testing.T) {
	db := openTestDB(t)
	customer := models.Customer{Name: "Mai", Phone: "0900000001", Points: 95, Tier: models.TierBronze}
	require.NoError(t, db.Create(&customer).Error)

	now := time.Now()
	awarded, err := loyalty.Award(db, cfg, customer.ID, 125000, now)
	require.NoError(t, err)

	// 95 + 12 crosses the SILVER threshold
	assert.Equal(t, 107, awarded.Points)
	assert.Equal(t, models.TierSilver, awarded.Tier)
	assert.Equal(t, 125000.0, awarded.TotalSpent)

	var reloaded models.Customer
	require.NoError(t, db.First(&reloaded, customer.ID).Error)
	assert.Equal(t, 107, reloaded.Points)
	assert.Equal(t, models.TierSilver, reloaded.Tier)
	require.NotNil(t, reloaded.LastOrderDate)
}

func TestAward_UnknownCustomer(t *testing.T) {
	db := openTestDB(t)
	_, err := loyalty.Award(db, cfg, 42, 50000, time.Now())
	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
}

func TestTierOverride_PinsAndReleases(t *testing.T) {
	db := openTestDB(t)
	customer := models.Customer{Name: "Quan", Phone: "0900000002", Points: 10, Tier: models.TierBronze}
	require.NoError(t, db.Create(&customer).Error)

	pinned, err := loyalty.SetTierOverride(db, customer.ID, models.TierVIP, "partner restaurant owner", 1)
	require.NoError(t, err)
	assert.Equal(t, models.TierVIP, pinned.EffectiveTier())
	assert.Equal(t, models.TierBronze, pinned.Tier)

	// points keep driving the computed tier while the override is pinned
	_, err = loyalty.Award(db, cfg, customer.ID, 1200000, time.Now())
	require.NoError(t, err)

	var reloaded models.Customer
	require.NoError(t, db.First(&reloaded, customer.ID).Error)
	assert.Equal(t, models.TierSilver, reloaded.Tier)
	assert.Equal(t, models.TierVIP, reloaded.EffectiveTier())

	cleared, err := loyalty.ClearTierOverride(db, customer.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.TierOverride)
	assert.Equal(t, models.TierSilver, cleared.EffectiveTier())
}
