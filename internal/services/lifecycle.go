package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	minRating = 1
	maxRating = 5
)

// LifecycleService guards the item-request state machine
// (pending -> accepted | rejected) and the one-review-per-accepted-request rule.
type LifecycleService struct {
	items         repositories.ItemRepository
	requests      repositories.ItemRequestRepository
	reviews       repositories.ReviewRepository
	notifications repositories.NotificationRepository
}

// NewLifecycleService creates a LifecycleService. notifications may be nil.
func NewLifecycleService(
	items repositories.ItemRepository,
	requests repositories.ItemRequestRepository,
	reviews repositories.ReviewRepository,
	notifications repositories.NotificationRepository,
) *LifecycleService {
	return &LifecycleService{
		items:         items,
		requests:      requests,
		reviews:       reviews,
		notifications: notifications,
	}
}

// SubmitRequest records requesterID's claim on itemID as a pending request
func (s *LifecycleService) SubmitRequest(ctx context.Context, itemID, requesterID uint) (*models.ItemRequest, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, notFound("item", err)
	}
	if item.OwnerID == requesterID {
		return nil, ErrSelfRequest
	}

	req := &models.ItemRequest{ItemID: item.ID, RequesterID: requesterID}
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("create item request: %w", err)
	}
	req.Item = item

	s.notify(ctx, &models.Notification{
		Type:        models.NotificationItemRequest,
		ActorID:     requesterID,
		RecipientID: item.OwnerID,
		TargetID:    req.ID,
		TargetType:  "item_request",
		Message:     fmt.Sprintf("New request for %q", item.Title),
	})
	return req, nil
}

// AcceptRequest moves a pending request to accepted on behalf of the item owner
func (s *LifecycleService) AcceptRequest(ctx context.Context, requestID, actorID uint) (*models.ItemRequest, error) {
	return s.transition(ctx, requestID, actorID, models.RequestStatusAccepted)
}

// RejectRequest moves a pending request to rejected on behalf of the item owner
func (s *LifecycleService) RejectRequest(ctx context.Context, requestID, actorID uint) (*models.ItemRequest, error) {
	return s.transition(ctx, requestID, actorID, models.RequestStatusRejected)
}

func (s *LifecycleService) transition(ctx context.Context, requestID, actorID uint, to models.RequestStatus) (*models.ItemRequest, error) {
	req, err := s.requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, notFound("item request", err)
	}
	if req.Item == nil || req.Item.OwnerID != actorID {
		return nil, ErrNotOwner
	}
	if req.Status.Terminal() {
		return nil, ErrAlreadyProcessed
	}

	changed, err := s.requests.TransitionStatus(ctx, req.ID, models.RequestStatusPending, to)
	if err != nil {
		return nil, fmt.Errorf("update item request status: %w", err)
	}
	if !changed {
		// another transition won between the read and the conditional update
		return nil, ErrAlreadyProcessed
	}
	req.Status = to

	n := &models.Notification{
		ActorID:     actorID,
		RecipientID: req.RequesterID,
		TargetID:    req.ID,
		TargetType:  "item_request",
	}
	if to == models.RequestStatusAccepted {
		n.Type = models.NotificationRequestAccepted
		n.Message = fmt.Sprintf("Your request for %q was accepted", req.Item.Title)
	} else {
		n.Type = models.NotificationRequestRejected
		n.Message = fmt.Sprintf("Your request for %q was rejected", req.Item.Title)
	}
	s.notify(ctx, n)
	return req, nil
}

// ReviewContext checks that actorID may review requestID right now and returns
// the request with its item and owner loaded.
func (s *LifecycleService) ReviewContext(ctx context.Context, requestID, actorID uint) (*models.ItemRequest, error) {
	req, err := s.requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, notFound("item request", err)
	}
	if req.RequesterID != actorID {
		return nil, ErrNotRequester
	}
	if req.Status != models.RequestStatusAccepted {
		return nil, ErrNotAccepted
	}

	exists, err := s.reviews.ExistsForRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return nil, ErrDuplicateReview
	}
	return req, nil
}

// LeaveReview records the requester's rating of the item owner
func (s *LifecycleService) LeaveReview(ctx context.Context, requestID, actorID uint, rating int, text string) (*models.Review, error) {
	req, err := s.ReviewContext(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}
	if rating < minRating || rating > maxRating {
		return nil, ErrInvalidRating
	}

	review := &models.Review{
		ItemRequestID:  req.ID,
		ReviewedUserID: req.Item.OwnerID,
		ReviewerID:     actorID,
		Rating:         rating,
		Text:           text,
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	review.ItemRequest = req

	s.notify(ctx, &models.Notification{
		Type:        models.NotificationReview,
		ActorID:     actorID,
		RecipientID: req.Item.OwnerID,
		TargetID:    review.ID,
		TargetType:  "review",
		Message:     fmt.Sprintf("You received a %d/5 review for %q", rating, req.Item.Title),
	})
	return review, nil
}

func (s *LifecycleService) notify(ctx context.Context, n *models.Notification) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("type", n.Type).
			Uint("recipient_id", n.RecipientID).
			Msg("failed to record notification")
	}
}

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
