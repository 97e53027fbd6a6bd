package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

const recentReviewsLimit = 10

// ReviewHandler handles reviews of completed transactions
type ReviewHandler struct {
	lifecycle        Lifecycle
	reviewRepository repositories.ReviewRepository
	sessions         *middleware.SessionManager
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(lifecycle Lifecycle, reviewRepo repositories.ReviewRepository, sessions *middleware.SessionManager) *ReviewHandler {
	return &ReviewHandler{
		lifecycle:        lifecycle,
		reviewRepository: reviewRepo,
		sessions:         sessions,
	}
}

// RegisterReviewRoutes registers review routes
func (h *ReviewHandler) RegisterReviewRoutes(g *echo.Group) {
	g.GET("/requests/:id/review", h.ReviewForm)
	g.POST("/requests/:id/review", h.LeaveReview)
	g.GET("/reviews", h.MyReviews)
}

// ReviewForm returns the request being reviewed if the caller may review it
func (h *ReviewHandler) ReviewForm(c echo.Context) error {
	requestID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.lifecycle.ReviewContext(c.Request().Context(), requestID, currentUserID(c))
	if err != nil {
		return lifecycleError(c, h.sessions, err, "Request not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"request": req, "item": req.Item, "owner": req.Item.Owner})
}

// LeaveReview rates the owner of an accepted request's item
func (h *ReviewHandler) LeaveReview(c echo.Context) error {
	requestID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var body models.CreateReviewRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	review, err := h.lifecycle.LeaveReview(c.Request().Context(), requestID, currentUserID(c), body.Rating, strings.TrimSpace(body.Text))
	if err != nil {
		return lifecycleError(c, h.sessions, err, "Request not found")
	}
	return respond(c, h.sessions, outcome{http.StatusCreated, middleware.FlashSuccess, "Thanks for your review!"}, review)
}

// MyReviews returns the caller's rating summary and latest received reviews
func (h *ReviewHandler) MyReviews(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	stats, err := h.reviewRepository.RatingStats(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	reviews, err := h.reviewRepository.ListReceived(ctx, userID, recentReviewsLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"rating_avg":   stats.Average,
		"rating_count": stats.Count,
		"reviews":      reviews,
	})
}
