package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// Lifecycle is the request/review state machine the handlers drive;
// *services.LifecycleService satisfies it.
type Lifecycle interface {
	SubmitRequest(ctx context.Context, itemID, requesterID uint) (*models.ItemRequest, error)
	AcceptRequest(ctx context.Context, requestID, actorID uint) (*models.ItemRequest, error)
	RejectRequest(ctx context.Context, requestID, actorID uint) (*models.ItemRequest, error)
	ReviewContext(ctx context.Context, requestID, actorID uint) (*models.ItemRequest, error)
	LeaveReview(ctx context.Context, requestID, actorID uint, rating int, text string) (*models.Review, error)
}

// RequestHandler handles item requests and their transitions
type RequestHandler struct {
	lifecycle         Lifecycle
	requestRepository repositories.ItemRequestRepository
	sessions          *middleware.SessionManager
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(lifecycle Lifecycle, requestRepo repositories.ItemRequestRepository, sessions *middleware.SessionManager) *RequestHandler {
	return &RequestHandler{
		lifecycle:         lifecycle,
		requestRepository: requestRepo,
		sessions:          sessions,
	}
}

// RegisterRequestRoutes registers item request routes
func (h *RequestHandler) RegisterRequestRoutes(g *echo.Group) {
	g.POST("/items/:id/request", h.SubmitRequest)
	g.POST("/requests/:id/accept", h.AcceptRequest)
	g.POST("/requests/:id/reject", h.RejectRequest)
	g.GET("/my-requests", h.MyRequests)
	g.GET("/requests-on-my-items", h.RequestsOnMyItems)
}

// SubmitRequest asks the owner of an item for it
func (h *RequestHandler) SubmitRequest(c echo.Context) error {
	itemID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.lifecycle.SubmitRequest(c.Request().Context(), itemID, currentUserID(c))
	if err != nil {
		return lifecycleError(c, h.sessions, err, "Item not found")
	}
	return respond(c, h.sessions, outcome{http.StatusCreated, middleware.FlashSuccess, "Request sent to item owner"}, req)
}

// AcceptRequest lets the item owner accept a pending request
func (h *RequestHandler) AcceptRequest(c echo.Context) error {
	return h.transition(c, h.lifecycle.AcceptRequest, "Request accepted")
}

// RejectRequest lets the item owner reject a pending request
func (h *RequestHandler) RejectRequest(c echo.Context) error {
	return h.transition(c, h.lifecycle.RejectRequest, "Request rejected")
}

type transitionFunc func(ctx context.Context, requestID, actorID uint) (*models.ItemRequest, error)

func (h *RequestHandler) transition(c echo.Context, fn transitionFunc, message string) error {
	requestID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	req, err := fn(c.Request().Context(), requestID, currentUserID(c))
	if err != nil {
		return lifecycleError(c, h.sessions, err, "Request not found")
	}
	return respond(c, h.sessions, outcome{http.StatusOK, middleware.FlashSuccess, message}, req)
}

// MyRequests lists the caller's pending and completed requests
func (h *RequestHandler) MyRequests(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	pending, err := h.requestRepository.ListByRequester(ctx, userID, models.RequestStatusPending)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	completed, err := h.requestRepository.ListByRequester(ctx, userID, models.RequestStatusAccepted, models.RequestStatusRejected)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"pending": pending, "completed": completed})
}

// RequestsOnMyItems lists incoming requests on the caller's items
func (h *RequestHandler) RequestsOnMyItems(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	pending, err := h.requestRepository.ListForOwner(ctx, userID, models.RequestStatusPending)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	completed, err := h.requestRepository.ListForOwner(ctx, userID, models.RequestStatusAccepted, models.RequestStatusRejected)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"pending": pending, "completed": completed})
}
