package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/socialshields/mhdash/internal/models"
	"github.com/socialshields/mhdash/pkg/logging"
)

// Migrate brings the schema up to date. It runs once at startup; request
// handlers never alter the schema. The timestamp column on post_labels and
// the (post_hash, username) unique index are both covered here.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Post{},
		&models.PostLabel{},
		&models.User{},
		&models.PostsPerHour{},
		&models.CommentsPerHour{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	logging.GetLogger().Info("Database schema up to date")
	return nil
}
