package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// outcome is the user-facing result of an action
type outcome struct {
	status  int
	level   string
	message string
}

var lifecycleOutcomes = []struct {
	err error
	outcome
}{
	{services.ErrSelfRequest, outcome{http.StatusBadRequest, middleware.FlashError, "You can't request your own item."}},
	{services.ErrDuplicateRequest, outcome{http.StatusConflict, middleware.FlashInfo, "Request already sent"}},
	{services.ErrNotOwner, outcome{http.StatusForbidden, middleware.FlashError, "You are not authorized to modify this request"}},
	{services.ErrAlreadyProcessed, outcome{http.StatusConflict, middleware.FlashInfo, "That request is already processed"}},
	{services.ErrNotRequester, outcome{http.StatusForbidden, middleware.FlashError, "You can only review your own requests."}},
	{services.ErrNotAccepted, outcome{http.StatusBadRequest, middleware.FlashError, "You can only review accepted requests."}},
	{services.ErrDuplicateReview, outcome{http.StatusConflict, middleware.FlashInfo, "You already left a review for this transaction"}},
	{services.ErrInvalidRating, outcome{http.StatusBadRequest, middleware.FlashError, "Rating must be between 1 and 5"}},
}

// lifecycleOutcome maps a lifecycle error to its response. ok is false for
// unexpected failures.
func lifecycleOutcome(err error, notFoundMsg string) (outcome, bool) {
	if errors.Is(err, services.ErrNotFound) {
		return outcome{http.StatusNotFound, middleware.FlashError, notFoundMsg}, true
	}
	for _, lo := range lifecycleOutcomes {
		if errors.Is(err, lo.err) {
			return lo.outcome, true
		}
	}
	return outcome{}, false
}

// lifecycleError answers a failed lifecycle operation; unexpected errors are
// logged and become a 500.
func lifecycleError(c echo.Context, sessions *middleware.SessionManager, err error, notFoundMsg string) error {
	if o, ok := lifecycleOutcome(err, notFoundMsg); ok {
		return respond(c, sessions, o, nil)
	}
	log.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg("lifecycle operation failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong")
}

// respond finishes a state-changing action. With a safe "next" target the
// message becomes a flash and the client is redirected; otherwise it is JSON.
func respond(c echo.Context, sessions *middleware.SessionManager, o outcome, data interface{}) error {
	if next := safeNext(c); next != "" {
		if err := sessions.AddFlash(c, o.level, o.message); err != nil {
			log.Ctx(c.Request().Context()).Warn().Err(err).Msg("failed to store flash message")
		}
		return c.Redirect(http.StatusSeeOther, next)
	}

	body := echo.Map{"message": o.message}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(o.status, body)
}

// safeNext returns the "next" form or query value if it points at this host
func safeNext(c echo.Context) string {
	next := c.FormValue("next")
	if next == "" {
		next = c.QueryParam("next")
	}
	if isSafeRedirect(next, c.Request().Host) {
		return next
	}
	return ""
}

// isSafeRedirect accepts host-relative paths and absolute http(s) URLs on host
func isSafeRedirect(next, host string) bool {
	next = strings.TrimSpace(next)
	if next == "" || strings.ContainsAny(next, "\\\r\n\t") {
		return false
	}
	if strings.HasPrefix(next, "//") {
		return false
	}

	u, err := url.Parse(next)
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" {
		return strings.HasPrefix(next, "/")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return host != "" && strings.EqualFold(u.Host, host)
}

// parseID reads a positive numeric path parameter
func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	return uint(id), nil
}

// currentUserID returns the authenticated user's ID, 0 if absent
func currentUserID(c echo.Context) uint {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}
