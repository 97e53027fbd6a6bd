package repositories

import (
	"context"

	"github.com/anonto42/swaply/backend/internal/models"
	"gorm.io/gorm"
)

// ReviewRepository defines the interface for the review ledger
type ReviewRepository interface {
	CreateReview(ctx context.Context, review *models.Review) error
	ExistsForRequest(ctx context.Context, itemRequestID uint) (bool, error)
	ListReceived(ctx context.Context, userID uint, limit int) ([]models.Review, error)
	RatingStats(ctx context.Context, userID uint) (*models.RatingStats, error)
}

// PostgresReviewRepository implements ReviewRepository on top of gorm
type PostgresReviewRepository struct {
	db *gorm.DB
}

// NewPostgresReviewRepository creates a new PostgresReviewRepository
func NewPostgresReviewRepository(db *gorm.DB) *PostgresReviewRepository {
	return &PostgresReviewRepository{db: db}
}

// CreateReview inserts a review; a second review for the same request yields ErrDuplicate
func (r *PostgresReviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Omit("ItemRequest", "ReviewedUser", "Reviewer").Create(review).Error
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ExistsForRequest is an explicit existence lookup, no relation traversal
func (r *PostgresReviewRepository) ExistsForRequest(ctx context.Context, itemRequestID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("item_request_id = ?", itemRequestID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// ListReceived returns the newest reviews about a user with reviewer and item preloaded
func (r *PostgresReviewRepository) ListReceived(ctx context.Context, userID uint, limit int) ([]models.Review, error) {
	var reviews []models.Review
	q := r.db.WithContext(ctx).
		Where("reviewed_user_id = ?", userID).
		Preload("Reviewer").
		Preload("ItemRequest.Item").
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

// RatingStats computes the average rating and review count for a user.
// Average is nil when the user has no reviews.
func (r *PostgresReviewRepository) RatingStats(ctx context.Context, userID uint) (*models.RatingStats, error) {
	var row struct {
		RatingAvg   *float64
		RatingCount int64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("AVG(rating) AS rating_avg, COUNT(id) AS rating_count").
		Where("reviewed_user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &models.RatingStats{Average: row.RatingAvg, Count: row.RatingCount}, nil
}
