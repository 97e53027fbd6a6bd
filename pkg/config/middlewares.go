package config

import (
	"github.com/anonto42/swaply/backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware installs the global middleware chain. Request ids come
// first so the request logger and every handler log line can carry them.
func SetupMiddleware(e *echo.Echo, cfg *Config) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logger.RequestLogger())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.Secure())

	// Session cookies only travel cross-origin to origins listed explicitly.
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
		}))
	} else {
		e.Use(middleware.CORS())
	}
}
