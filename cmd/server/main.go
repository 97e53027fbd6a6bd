package main

import (
	"context"
	"errors"

	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/anonto42/swaply/backend/internal/router"
	"github.com/anonto42/swaply/backend/pkg/config"
	"github.com/anonto42/swaply/backend/pkg/firebase"
	"github.com/anonto42/swaply/backend/pkg/logger"
	"github.com/anonto42/swaply/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init("swaply", cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Str("env", cfg.Env).Msg("Refusing to start with an unsafe configuration")
	}

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize databases")
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	deps := router.Dependencies{
		DB:             db.SQL,
		SessionStore:   middleware.NewCookieStore(cfg.SessionSecret, cfg.IsProduction()),
		JWTSecret:      cfg.JWTSecret,
		SecureCookies:  cfg.IsProduction(),
		TrustedOrigins: cfg.CORSOrigins,
	}

	if db.Mongo != nil {
		images, err := repositories.NewMongoImageRepository(db.Mongo.Database(cfg.MongoDatabase))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize image storage")
		}
		deps.Images = images
	}

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case err == nil:
		deps.FirebaseAuth = firebaseApp.AuthClient
	case errors.Is(err, firebase.ErrNotConfigured):
		log.Warn().Msg("FIREBASE_CREDENTIALS_PATH not set, Firebase login is disabled")
	default:
		log.Fatal().Err(err).Msg("Failed to initialize Firebase")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	config.SetupMiddleware(e, cfg)

	// Setup routes and dependencies
	if err := router.SetupRoutes(e, deps); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up routes")
	}

	// Start server
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting server")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
}
