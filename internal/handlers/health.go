package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// HealthHandler reports liveness plus database reachability.
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		log.Ctx(c.Request().Context()).Error().Err(err).Msg("Health check: database unreachable")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"service":  "swaply",
			"database": "down",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "healthy",
		"service":  "swaply",
		"database": "up",
	})
}
