package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// UserHandler handles the authenticated user's profile
type UserHandler struct {
	userRepository   repositories.UserRepository
	itemRepository   repositories.ItemRepository
	reviewRepository repositories.ReviewRepository
	imageRepository  repositories.ImageRepository // may be nil
	sessions         *middleware.SessionManager
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, itemRepo repositories.ItemRepository, reviewRepo repositories.ReviewRepository, imageRepo repositories.ImageRepository, sessions *middleware.SessionManager) *UserHandler {
	return &UserHandler{
		userRepository:   userRepo,
		itemRepository:   itemRepo,
		reviewRepository: reviewRepo,
		imageRepository:  imageRepo,
		sessions:         sessions,
	}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.POST("/profile/delete", h.DeleteProfile)
}

// GetProfile returns the authenticated user with listing and rating summaries
func (h *UserHandler) GetProfile(c echo.Context) error {
	user := middleware.CurrentUser(c)
	ctx := c.Request().Context()

	itemCount, err := h.itemRepository.CountItemsByOwner(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	stats, err := h.reviewRepository.RatingStats(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":         user,
		"item_count":   itemCount,
		"rating_avg":   stats.Average,
		"rating_count": stats.Count,
	})
}

// DeleteProfile removes the account and everything it owns, then logs out
func (h *UserHandler) DeleteProfile(c echo.Context) error {
	user := middleware.CurrentUser(c)
	ctx := c.Request().Context()

	owned, err := h.itemRepository.ListItems(ctx, repositories.ItemFilter{OwnerID: user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.userRepository.DeleteUser(ctx, user.ID); err != nil {
		log.Ctx(ctx).Error().Err(err).Uint("user_id", user.ID).Msg("delete user")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete account")
	}
	if h.imageRepository != nil {
		for _, item := range owned {
			if item.ImageRef == nil {
				continue
			}
			if err := h.imageRepository.DeleteImage(ctx, *item.ImageRef); err != nil && !errors.Is(err, repositories.ErrImageNotFound) {
				log.Ctx(ctx).Warn().Err(err).Str("image_ref", *item.ImageRef).Msg("failed to delete item image")
			}
		}
	}
	if err := h.sessions.Logout(c); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to clear session after account deletion")
	}
	return c.NoContent(http.StatusNoContent)
}
