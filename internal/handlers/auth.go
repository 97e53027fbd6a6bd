package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/anonto42/swaply/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenVerifier verifies Firebase ID tokens; *auth.Client satisfies it
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	sessions       *middleware.SessionManager
	tokens         *middleware.TokenIssuer
	firebaseAuth   TokenVerifier
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil.
func NewAuthHandler(userRepo repositories.UserRepository, sessions *middleware.SessionManager, tokens *middleware.TokenIssuer, firebaseAuth TokenVerifier) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		sessions:       sessions,
		tokens:         tokens,
		firebaseAuth:   firebaseAuth,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.POST("/auth/firebase-login", h.FirebaseLogin)
	g.GET("/messages", h.Messages)
	g.GET("/csrf", h.CSRFToken)
}

// CSRFToken hands API clients the token to echo back on cookie-authenticated POSTs
func (h *AuthHandler) CSRFToken(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"csrf_token": middleware.CSRFToken(c)})
}

// Signup handles local user registration
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "This email is already registered.")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusConflict, "A user with that username or email already exists.")
		}
		log.Ctx(ctx).Error().Err(err).Msg("create user")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
	}

	return respond(c, h.sessions, outcome{http.StatusCreated, middleware.FlashSuccess, "Account created, you can now log in"}, user)
}

// Login authenticates by username or email and starts a session
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.SigninRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	req.Login = strings.TrimSpace(req.Login)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return h.startSession(c, user)
}

// Logout ends the session
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to end session")
	}
	if next := safeNext(c); next != "" {
		return c.Redirect(http.StatusSeeOther, next)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" form:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token, links or creates the account
// and starts a session.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
	}

	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}
	identity := firebase.IdentityFromToken(token)
	if identity.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, identity.UID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = h.linkOrCreateFirebaseUser(ctx, identity.UID, identity.Email)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("firebase_uid", identity.UID).Msg("firebase login")
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to sign in with Firebase")
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}

	return h.startSession(c, user)
}

func (h *AuthHandler) linkOrCreateFirebaseUser(ctx context.Context, uid, email string) (*models.User, error) {
	user, err := h.userRepository.GetUserByEmail(ctx, email)
	if err == nil {
		if err := h.userRepository.LinkFirebaseUID(ctx, user.ID, uid); err != nil {
			return nil, err
		}
		user.FirebaseUID = &uid
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &models.User{
		Username:    fmt.Sprintf("fb_%s", uid),
		Email:       email,
		FirebaseUID: &uid,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *AuthHandler) startSession(c echo.Context, user *models.User) error {
	if err := h.sessions.Login(c, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to start session")
	}
	token, err := h.tokens.Issue(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	if next := safeNext(c); next != "" {
		return c.Redirect(http.StatusSeeOther, next)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

// Messages pops the pending flash messages
func (h *AuthHandler) Messages(c echo.Context) error {
	flashes, err := h.sessions.Flashes(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read messages")
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": flashes})
}
