package database

import (
	"agenthq-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres, usually behind a pooler).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for the locally persisted models. Teams and
// organizations have no local rows; their rosters live in the directory.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Invitation{}, &models.NotificationLog{})
}
