package database

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restochain-backend/internal/config"
	"restochain-backend/internal/models"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}

	if err := Migrate(DB); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	log.Info().Msg("database connected, migration complete")
}

// Migrate runs AutoMigrate over every model. Shared with package tests, which
// run it against an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Customer{},
		&models.Promotion{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderAuditLog{},
		&models.StockTransaction{},
		&models.Bill{},
		&models.BillHistory{},
		&models.BillSequence{},
		&models.StockRequest{},
		&models.Shipment{},
		&models.Inventory{},
	)
}

// LockForUpdate adds a row-level locking clause to a read inside a
// transaction. SQLite (used by tests) has no FOR UPDATE; its transactions
// already serialize writers.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
