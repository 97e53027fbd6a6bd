package router

import (
	"fmt"

	"github.com/anonto42/swaply/backend/internal/handlers"
	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/anonto42/swaply/backend/internal/services"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Dependencies are the infrastructure handles the routes are built from
type Dependencies struct {
	DB           *gorm.DB
	SessionStore sessions.Store
	JWTSecret    string
	// Images is nil when image storage is not configured
	Images repositories.ImageRepository
	// FirebaseAuth is nil when Firebase login is not configured
	FirebaseAuth handlers.TokenVerifier
	// SecureCookies marks the CSRF cookie Secure, as the session store does in production
	SecureCookies bool
	// TrustedOrigins may make cookie-authenticated state changes cross-site
	TrustedOrigins []string
}

// SetupRoutes migrates the schema, configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) error {
	if err := repositories.Migrate(deps.DB); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	log.Info().Msg("Database auto-migrations completed for all models.")

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.DB)
	itemRepo := repositories.NewPostgresItemRepository(deps.DB)
	requestRepo := repositories.NewPostgresItemRequestRepository(deps.DB)
	reviewRepo := repositories.NewPostgresReviewRepository(deps.DB)
	notificationRepo := repositories.NewPostgresNotificationRepository(deps.DB)

	lifecycle := services.NewLifecycleService(itemRepo, requestRepo, reviewRepo, notificationRepo)
	sessionManager := middleware.NewSessionManager(deps.SessionStore)
	tokens := middleware.NewTokenIssuer(deps.JWTSecret)

	csrf, err := middleware.CSRF(deps.SecureCookies, deps.TrustedOrigins)
	if err != nil {
		return fmt.Errorf("csrf middleware: %w", err)
	}
	e.Use(csrf)

	// Health check - always accessible
	e.GET("/health", handlers.NewHealthHandler(deps.DB).HealthCheck)

	// --- Unprotected routes for authentication ---
	public := e.Group("")
	authHandler := handlers.NewAuthHandler(userRepo, sessionManager, tokens, deps.FirebaseAuth)
	authHandler.RegisterAuthRoutes(public)
	log.Debug().Msg("Auth routes configured.")

	// Everything registered so far is public. The auth middleware is global
	// rather than group-level so wrong-method requests still get a 405.
	publicPaths := make(map[string]bool)
	for _, r := range e.Routes() {
		publicPaths[r.Path] = true
	}
	e.Use(middleware.RequireUser(sessionManager, tokens, userRepo, func(c echo.Context) bool {
		return publicPaths[c.Path()]
	}))

	// --- Protected routes (session cookie or bearer token) ---
	app := e.Group("")

	userHandler := handlers.NewUserHandler(userRepo, itemRepo, reviewRepo, deps.Images, sessionManager)
	userHandler.RegisterProfileRoutes(app)

	itemHandler := handlers.NewItemHandler(itemRepo, deps.Images, sessionManager)
	itemHandler.RegisterItemRoutes(app)

	requestHandler := handlers.NewRequestHandler(lifecycle, requestRepo, sessionManager)
	requestHandler.RegisterRequestRoutes(app)

	reviewHandler := handlers.NewReviewHandler(lifecycle, reviewRepo, sessionManager)
	reviewHandler.RegisterReviewRoutes(app)

	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(app)

	log.Info().Int("routes", len(e.Routes())).Msg("All routes configured.")
	return nil
}
