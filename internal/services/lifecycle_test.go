package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/anonto42/swaply/backend/internal/services"
	"github.com/anonto42/swaply/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db            *gorm.DB
	svc           *services.LifecycleService
	requests      repositories.ItemRequestRepository
	notifications repositories.NotificationRepository
	owner         *models.User
	requester     *models.User
	other         *models.User
	item          *models.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:            db,
		requests:      repositories.NewPostgresItemRequestRepository(db),
		notifications: repositories.NewPostgresNotificationRepository(db),
		owner:         testutil.CreateUser(t, db, "owner"),
		requester:     testutil.CreateUser(t, db, "requester"),
		other:         testutil.CreateUser(t, db, "other"),
	}
	f.svc = services.NewLifecycleService(
		repositories.NewPostgresItemRepository(db),
		f.requests,
		repositories.NewPostgresReviewRepository(db),
		f.notifications,
	)
	f.item = testutil.CreateItem(t, db, f.owner, "Camera", models.ItemModeRent)
	return f
}

func TestSubmitRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.svc.SubmitRequest(ctx, f.item.ID, f.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, f.item.ID, req.ItemID)
	assert.Equal(t, f.requester.ID, req.RequesterID)

	unread, err := f.notifications.GetUnreadCount(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestSwapScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	board := testutil.CreateItem(t, f.db, f.owner, "Board game", models.ItemModeSwap)

	req, err := f.svc.SubmitRequest(ctx, board.ID, f.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	req, err = f.svc.AcceptRequest(ctx, req.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, req.Status)

	review, err := f.svc.LeaveReview(ctx, req.ID, f.requester.ID, 4, "")
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, review.ReviewedUserID)
	assert.Equal(t, f.requester.ID, review.ReviewerID)

	_, err = f.svc.LeaveReview(ctx, req.ID, f.requester.ID, 4, "")
	assert.ErrorIs(t, err, services.ErrDuplicateReview)
}

func TestSubmitRequestErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SubmitRequest(ctx, f.item.ID, f.owner.ID)
	assert.ErrorIs(t, err, services.ErrSelfRequest)

	_, err = f.svc.SubmitRequest(ctx, 9999, f.requester.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.svc.SubmitRequest(ctx, f.item.ID, f.requester.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitRequest(ctx, f.item.ID, f.requester.ID)
	assert.ErrorIs(t, err, services.ErrDuplicateRequest)
}

func TestSubmitRequestAfterRejectionIsStillDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.svc.SubmitRequest(ctx, f.item.ID, f.requester.ID)
	require.NoError(t, err)
	_, err = f.svc.RejectRequest(ctx, req.ID, f.owner.ID)
	require.NoError(t, err)

	_, err = f.svc.SubmitRequest(ctx, f.item.ID, f.requester.ID)
	assert.ErrorIs(t, err, services.ErrDuplicateRequest)
}

func TestConcurrentSubmitRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitRequest(ctx, f.item.ID, f.requester.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, services.ErrDuplicateRequest):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, dupes)

	all, err := f.requests.ListByRequester(ctx, f.requester.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAcceptAndReject(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		act    func(*services.LifecycleService, context.Context, uint, uint) (*models.ItemRequest, error)
		status models.RequestStatus
		notice string
	}{
		{"accept", (*services.LifecycleService).AcceptRequest, models.RequestStatusAccepted, models.NotificationRequestAccepted},
		{"reject", (*services.LifecycleService).RejectRequest, models.RequestStatusRejected, models.NotificationRequestRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := testutil.CreateRequest(t, f.db, f.item, f.requester, models.RequestStatusPending)

			_, err := tt.act(f.svc, ctx, req.ID, f.requester.ID)
			assert.ErrorIs(t, err, services.ErrNotOwner)

			got, err := tt.act(f.svc, ctx, req.ID, f.owner.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)

			stored, err := f.requests.GetRequestByID(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)

			notes, _, err := f.notifications.GetByRecipientID(ctx, f.requester.ID, 1, 10)
			require.NoError(t, err)
			require.Len(t, notes, 1)
			assert.Equal(t, tt.notice, notes[0].Type)

			// terminal: neither transition is allowed any more
			_, err = f.svc.AcceptRequest(ctx, req.ID, f.owner.ID)
			assert.ErrorIs(t, err, services.ErrAlreadyProcessed)
			_, err = f.svc.RejectRequest(ctx, req.ID, f.owner.ID)
			assert.ErrorIs(t, err, services.ErrAlreadyProcessed)

			_, err = tt.act(f.svc, ctx, 9999, f.owner.ID)
			assert.ErrorIs(t, err, services.ErrNotFound)
		})
	}
}

func TestConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := testutil.CreateRequest(t, f.db, f.item, f.requester, models.RequestStatusPending)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []models.RequestStatus
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			act := f.svc.AcceptRequest
			if i%2 == 1 {
				act = f.svc.RejectRequest
			}
			got, err := act(ctx, req.ID, f.owner.ID)
			if err != nil {
				assert.ErrorIs(t, err, services.ErrAlreadyProcessed)
				return
			}
			mu.Lock()
			wins = append(wins, got.Status)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, wins, 1)
	stored, err := f.requests.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, wins[0], stored.Status)
}

func TestLeaveReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := testutil.CreateRequest(t, f.db, f.item, f.requester, models.RequestStatusAccepted)

	review, err := f.svc.LeaveReview(ctx, req.ID, f.requester.ID, 5, "Great camera")
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, review.ReviewedUserID)
	assert.Equal(t, f.requester.ID, review.ReviewerID)
	assert.Equal(t, 5, review.Rating)

	_, err = f.svc.LeaveReview(ctx, req.ID, f.requester.ID, 3, "again")
	assert.ErrorIs(t, err, services.ErrDuplicateReview)

	_, err = f.svc.ReviewContext(ctx, req.ID, f.requester.ID)
	assert.ErrorIs(t, err, services.ErrDuplicateReview)
}

func TestLeaveReviewGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pending := testutil.CreateRequest(t, f.db, f.item, f.requester, models.RequestStatusPending)
	rejected := testutil.CreateRequest(t, f.db, f.item, f.other, models.RequestStatusRejected)

	tests := []struct {
		name      string
		requestID uint
		actorID   uint
		rating    int
		want      error
	}{
		{"unknown request", 9999, f.requester.ID, 5, services.ErrNotFound},
		{"owner cannot review", pending.ID, f.owner.ID, 5, services.ErrNotRequester},
		{"stranger cannot review", pending.ID, f.other.ID, 5, services.ErrNotRequester},
		{"pending request", pending.ID, f.requester.ID, 5, services.ErrNotAccepted},
		{"rejected request", rejected.ID, f.other.ID, 5, services.ErrNotAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.LeaveReview(ctx, tt.requestID, tt.actorID, tt.rating, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLeaveReviewRatingRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := testutil.CreateRequest(t, f.db, f.item, f.requester, models.RequestStatusAccepted)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.LeaveReview(ctx, req.ID, f.requester.ID, rating, "")
		assert.ErrorIs(t, err, services.ErrInvalidRating, "rating %d", rating)
	}

	ctxReq, err := f.svc.ReviewContext(ctx, req.ID, f.requester.ID)
	require.NoError(t, err, "invalid ratings must not consume the review slot")
	require.NotNil(t, ctxReq.Item)
	require.NotNil(t, ctxReq.Item.Owner)
	assert.Equal(t, f.owner.ID, ctxReq.Item.Owner.ID)

	_, err = f.svc.LeaveReview(ctx, req.ID, f.requester.ID, 1, "")
	assert.NoError(t, err)
}

func TestConcurrentLeaveReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := testutil.CreateRequest(t, f.db, f.item, f.requester, models.RequestStatusAccepted)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := f.svc.LeaveReview(ctx, req.ID, f.requester.ID, rating, "")
			if err != nil {
				assert.ErrorIs(t, err, services.ErrDuplicateReview)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}(i + 1)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

type mockNotificationRepository struct {
	mock.Mock
	repositories.NotificationRepository
}

func (m *mockNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	requester := testutil.CreateUser(t, db, "requester")
	item := testutil.CreateItem(t, db, owner, "Bike", models.ItemModeSwap)

	notifications := new(mockNotificationRepository)
	notifications.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.RecipientID == owner.ID && n.Type == models.NotificationItemRequest
	})).Return(errors.New("connection reset")).Once()

	svc := services.NewLifecycleService(
		repositories.NewPostgresItemRepository(db),
		repositories.NewPostgresItemRequestRepository(db),
		repositories.NewPostgresReviewRepository(db),
		notifications,
	)

	req, err := svc.SubmitRequest(ctx, item.ID, requester.ID)
	require.NoError(t, err)
	assert.NotZero(t, req.ID)
	notifications.AssertExpectations(t)
}

func TestNilNotificationRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	requester := testutil.CreateUser(t, db, "requester")
	item := testutil.CreateItem(t, db, owner, "Bike", models.ItemModeSwap)

	svc := services.NewLifecycleService(
		repositories.NewPostgresItemRepository(db),
		repositories.NewPostgresItemRequestRepository(db),
		repositories.NewPostgresReviewRepository(db),
		nil,
	)

	req, err := svc.SubmitRequest(ctx, item.ID, requester.ID)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, req.ID, owner.ID)
	require.NoError(t, err)
	_, err = svc.LeaveReview(ctx, req.ID, requester.ID, 4, "ok")
	assert.NoError(t, err)
}
