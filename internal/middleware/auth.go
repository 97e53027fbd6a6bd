package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ContextUserKey is the echo.Context key holding the authenticated *models.User
const ContextUserKey = "user"

// UserLookup is the slice of the user repository the auth middleware needs
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// RequireUser authenticates the request from a bearer token or, failing that,
// the session cookie, and stores the user in the context. Requests for which
// skipper returns true pass through untouched.
func RequireUser(sessions *SessionManager, tokens *TokenIssuer, users UserLookup, skipper eMiddleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = eMiddleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			var userID uint
			if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
				claims, err := tokens.ParseBearer(header)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
				}
				userID = claims.UserID
			} else if id, ok := sessions.UserID(c); ok {
				userID = id
			} else {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			user, err := users.GetUserByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
				}
				log.Ctx(c.Request().Context()).Error().Err(err).Uint("user_id", userID).Msg("load authenticated user")
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
			}

			c.Set(ContextUserKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by RequireUser, or nil
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(ContextUserKey).(*models.User)
	return user
}
