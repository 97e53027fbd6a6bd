package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/swaply/backend/internal/models"
	"gorm.io/gorm"
)

// ItemFilter narrows catalog listings. Zero values mean "no filter".
type ItemFilter struct {
	OwnerID        uint
	ExcludeOwnerID uint
	Mode           models.ItemMode
}

// ItemRepository defines the interface for item catalog operations
type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id uint) (*models.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error)
	CountItemsByOwner(ctx context.Context, ownerID uint) (int64, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id uint) error
}

// PostgresItemRepository implements ItemRepository on top of gorm
type PostgresItemRepository struct {
	db *gorm.DB
}

// NewPostgresItemRepository creates a new PostgresItemRepository
func NewPostgresItemRepository(db *gorm.DB) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

func (r *PostgresItemRepository) CreateItem(ctx context.Context, item *models.Item) error {
	if item.Mode == "" {
		item.Mode = models.ItemModeSwap
	}
	return r.db.WithContext(ctx).Omit("Owner").Create(item).Error
}

// GetItemByID retrieves an item with its owner preloaded
func (r *PostgresItemRepository) GetItemByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Preload("Owner").First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns matching items, newest first, owners preloaded
func (r *PostgresItemRepository) ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	q := r.db.WithContext(ctx).Model(&models.Item{}).Preload("Owner")
	if filter.OwnerID != 0 {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.ExcludeOwnerID != 0 {
		q = q.Where("owner_id <> ?", filter.ExcludeOwnerID)
	}
	if filter.Mode != "" {
		q = q.Where("mode = ?", filter.Mode)
	}

	var items []models.Item
	if err := q.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresItemRepository) CountItemsByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Item{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

// UpdateItem writes the editable fields. Owner and creation time never change.
func (r *PostgresItemRepository) UpdateItem(ctx context.Context, item *models.Item) error {
	res := r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"title":       item.Title,
		"description": item.Description,
		"mode":        item.Mode,
		"image_ref":   item.ImageRef,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteItem removes an item, its requests and their reviews in one transaction
func (r *PostgresItemRepository) DeleteItem(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := tx.Model(&models.ItemRequest{}).Select("id").Where("item_id = ?", id)
		if err := tx.Where("item_request_id IN (?)", requests).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		if err := tx.Where("item_id = ?", id).Delete(&models.ItemRequest{}).Error; err != nil {
			return fmt.Errorf("delete item requests: %w", err)
		}
		res := tx.Delete(&models.Item{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
