package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
)

// RunMigrations brings the schema up to date for every model, including the
// unique indexes and check constraints the services rely on
func RunMigrations(db *gorm.DB) error {
	logging.Info().Str("driver", db.Dialector.Name()).Msg("running auto-migration")
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
