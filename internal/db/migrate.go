package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Lead{},
		&models.Artisan{},
		&models.Assignment{},
		&models.NotificationJob{},
	}
}

// AutoMigrate creates or updates all engine tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
