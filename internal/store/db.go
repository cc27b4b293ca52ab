package store

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inventory-reservation-api/internal/reservation"
)

// Open connects to Postgres and migrates the reservation schema. Error
// translation is enabled so unique-constraint violations surface as
// gorm.ErrDuplicatedKey instead of driver-specific errors.
func Open(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&StockRecord{},
		&reservation.Reservation{},
		&reservation.IdempotencyEvent{},
		&reservation.AuditEntry{},
	); err != nil {
		return nil, fmt.Errorf("error migrating reservation schema: %w", err)
	}

	slog.Info("Postgres connection established and schema migrated")
	return db, nil
}
