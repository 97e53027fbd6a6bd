package repositories

import (
	"context"
	"time"

	"github.com/anonto42/swaply/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error)
	GetGrouped(ctx context.Context, recipientID uint, now time.Time) (*NotificationGroups, error)
	GetUnreadCount(ctx context.Context, recipientID uint) (int64, error)
	MarkAsRead(ctx context.Context, recipientID, notificationID uint) error
	MarkAllAsRead(ctx context.Context, recipientID uint) error
}

const maxOlderNotifications = 50

// NotificationGroups holds a recipient's notifications split by age
type NotificationGroups struct {
	Today     []models.Notification
	Yesterday []models.Notification
	ThisWeek  []models.Notification
	Older     []models.Notification
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

// GetGrouped buckets the recipient's notifications by age relative to now.
// The older bucket is capped at maxOlderNotifications.
func (r *postgresNotificationRepository) GetGrouped(ctx context.Context, recipientID uint, now time.Time) (*NotificationGroups, error) {
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)

	var recent []models.Notification
	if err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND created_at >= ?", recipientID, weekStart).
		Order("created_at DESC").Order("id DESC").
		Find(&recent).Error; err != nil {
		return nil, err
	}

	groups := &NotificationGroups{}
	for _, n := range recent {
		switch {
		case !n.CreatedAt.Before(todayStart):
			groups.Today = append(groups.Today, n)
		case !n.CreatedAt.Before(yesterdayStart):
			groups.Yesterday = append(groups.Yesterday, n)
		default:
			groups.ThisWeek = append(groups.ThisWeek, n)
		}
	}

	if err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND created_at < ?", recipientID, weekStart).
		Order("created_at DESC").Order("id DESC").
		Limit(maxOlderNotifications).
		Find(&groups.Older).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND is_read = ?", recipientID, false).Count(&count).Error
	return count, err
}

// MarkAsRead only touches notifications addressed to recipientID
func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, recipientID, notificationID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND is_read = ?", recipientID, false).Update("is_read", true).Error
}
