package repositories

import (
	"context"

	"github.com/anonto42/swaply/backend/internal/models"
	"gorm.io/gorm"
)

// ItemRequestRepository defines the interface for the request ledger
type ItemRequestRepository interface {
	CreateRequest(ctx context.Context, req *models.ItemRequest) error
	GetRequestByID(ctx context.Context, id uint) (*models.ItemRequest, error)
	TransitionStatus(ctx context.Context, id uint, from, to models.RequestStatus) (bool, error)
	ListByRequester(ctx context.Context, requesterID uint, statuses ...models.RequestStatus) ([]models.ItemRequest, error)
	ListForOwner(ctx context.Context, ownerID uint, statuses ...models.RequestStatus) ([]models.ItemRequest, error)
}

// PostgresItemRequestRepository implements ItemRequestRepository on top of gorm
type PostgresItemRequestRepository struct {
	db *gorm.DB
}

// NewPostgresItemRequestRepository creates a new PostgresItemRequestRepository
func NewPostgresItemRequestRepository(db *gorm.DB) *PostgresItemRequestRepository {
	return &PostgresItemRequestRepository{db: db}
}

// CreateRequest inserts a pending request. The (item_id, requester_id) unique
// index decides races: the loser gets ErrDuplicate and the winner's row is untouched.
func (r *PostgresItemRequestRepository) CreateRequest(ctx context.Context, req *models.ItemRequest) error {
	req.Status = models.RequestStatusPending
	if err := r.db.WithContext(ctx).Omit("Item", "Requester").Create(req).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetRequestByID retrieves a request with its item, the item owner and the requester
func (r *PostgresItemRequestRepository) GetRequestByID(ctx context.Context, id uint) (*models.ItemRequest, error) {
	var req models.ItemRequest
	err := r.db.WithContext(ctx).
		Preload("Item.Owner").
		Preload("Requester").
		First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// TransitionStatus moves a request from one status to another only if it is
// still in the expected status. It reports false when nothing changed.
func (r *PostgresItemRequestRepository) TransitionStatus(ctx context.Context, id uint, from, to models.RequestStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ItemRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListByRequester returns the requests a user made, newest first, annotated with has_review
func (r *PostgresItemRequestRepository) ListByRequester(ctx context.Context, requesterID uint, statuses ...models.RequestStatus) ([]models.ItemRequest, error) {
	q := r.listQuery(ctx).Where("item_requests.requester_id = ?", requesterID)
	if len(statuses) > 0 {
		q = q.Where("item_requests.status IN ?", statuses)
	}

	var requests []models.ItemRequest
	if err := q.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ListForOwner returns the requests made on a user's items, newest first
func (r *PostgresItemRequestRepository) ListForOwner(ctx context.Context, ownerID uint, statuses ...models.RequestStatus) ([]models.ItemRequest, error) {
	q := r.listQuery(ctx).
		Joins("JOIN items ON items.id = item_requests.item_id").
		Where("items.owner_id = ?", ownerID)
	if len(statuses) > 0 {
		q = q.Where("item_requests.status IN ?", statuses)
	}

	var requests []models.ItemRequest
	if err := q.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *PostgresItemRequestRepository) listQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.ItemRequest{}).
		Select("item_requests.*, EXISTS (SELECT 1 FROM reviews WHERE reviews.item_request_id = item_requests.id) AS has_review").
		Preload("Item.Owner").
		Preload("Requester").
		Order("item_requests.created_at DESC").
		Order("item_requests.id DESC")
}
