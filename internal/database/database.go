package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"planengine/internal/config"
	"planengine/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize sets up the database connection and runs migrations.
func Initialize() error {
	cfg := config.GetConfig()

	var gormLogger logger.Interface
	if cfg.Server.Environment == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	} else {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.Postgres.MinConns)
	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db

	if err := runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("database connection established and migrations completed")
	return nil
}

// runMigrations automatically migrates the database schema.
func runMigrations() error {
	return DB.AutoMigrate(
		&models.Trip{},
		&models.TripPreferences{},
		&models.Itinerary{},
		&models.ItineraryItem{},
		&models.ItineraryVersion{},
		&models.Booking{},
		&models.BookingStateHistory{},
		&models.IdempotencyRecord{},
		&models.EventSignal{},
		&models.ReplanTrigger{},
		&models.ReplanProposal{},
		&models.ReplanApplication{},
	)
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection.
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
