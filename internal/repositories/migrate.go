package repositories

import (
	"github.com/anonto42/swaply/backend/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the relational schema, unique indexes and
// cascading foreign keys included.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.ItemRequest{},
		&models.Review{},
		&models.Notification{},
	)
}
