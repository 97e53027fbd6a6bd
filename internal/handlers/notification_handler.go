package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 50
)

// NotificationHandler serves the activity feed produced by the request lifecycle
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
}

func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
	}
}

func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.ListNotifications)
	g.GET("/notifications/grouped", h.GroupedNotifications)
	g.GET("/notifications/unread-count", h.UnreadCount)
	g.POST("/notifications/:id/read", h.MarkAsRead)
	g.POST("/notifications/read-all", h.MarkAllAsRead)
}

// notificationView is a notification plus who caused it and where to go next
type notificationView struct {
	models.Notification
	Actor models.UserCompact `json:"actor"`
	Link  string             `json:"link"`
}

// notificationLink points the recipient at the page where they can act on it
func notificationLink(n models.Notification) string {
	switch n.Type {
	case models.NotificationItemRequest:
		return "/requests-on-my-items"
	case models.NotificationRequestAccepted:
		return fmt.Sprintf("/requests/%d/review", n.TargetID)
	case models.NotificationRequestRejected:
		return "/my-requests"
	case models.NotificationReview:
		return "/reviews"
	}
	return ""
}

// views resolves actors once per distinct user. A deleted actor leaves an
// empty compact user rather than failing the whole listing.
func (h *NotificationHandler) views(ctx context.Context, notifications []models.Notification, actors map[uint]models.UserCompact) []notificationView {
	out := make([]notificationView, 0, len(notifications))
	for _, n := range notifications {
		actor, seen := actors[n.ActorID]
		if !seen {
			if user, err := h.userRepository.GetUserByID(ctx, n.ActorID); err == nil {
				actor = user.ToCompact()
			}
			actors[n.ActorID] = actor
		}
		out = append(out, notificationView{Notification: n, Actor: actor, Link: notificationLink(n)})
	}
	return out
}

func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxNotificationPageSize {
		limit = defaultNotificationPageSize
	}
	return page, limit
}

func notificationFailure(c echo.Context, err error, msg string) error {
	log.Ctx(c.Request().Context()).Error().Err(err).Uint("user_id", currentUserID(c)).Msg(msg)
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong")
}

// ListNotifications returns the caller's notifications, newest first
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)
	page, limit := pageParams(c)

	notifications, total, err := h.notificationRepository.GetByRecipientID(ctx, userID, page, limit)
	if err != nil {
		return notificationFailure(c, err, "failed to list notifications")
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"notifications": h.views(ctx, notifications, map[uint]models.UserCompact{}),
		},
		"meta": echo.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
			"has_next":    page < totalPages,
		},
	})
}

// GroupedNotifications buckets the caller's notifications by age
func (h *NotificationHandler) GroupedNotifications(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	groups, err := h.notificationRepository.GetGrouped(ctx, userID, time.Now())
	if err != nil {
		return notificationFailure(c, err, "failed to group notifications")
	}
	unread, err := h.notificationRepository.GetUnreadCount(ctx, userID)
	if err != nil {
		return notificationFailure(c, err, "failed to count unread notifications")
	}

	actors := map[uint]models.UserCompact{}
	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"today":        h.views(ctx, groups.Today, actors),
			"yesterday":    h.views(ctx, groups.Yesterday, actors),
			"this_week":    h.views(ctx, groups.ThisWeek, actors),
			"older":        h.views(ctx, groups.Older, actors),
			"unread_count": unread,
		},
	})
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	count, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), currentUserID(c))
	if err != nil {
		return notificationFailure(c, err, "failed to count unread notifications")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{"count": count}})
}

// MarkAsRead only touches notifications addressed to the caller; anything
// else looks missing.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	err = h.notificationRepository.MarkAsRead(c.Request().Context(), currentUserID(c), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
	}
	if err != nil {
		return notificationFailure(c, err, "failed to mark notification read")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	if err := h.notificationRepository.MarkAllAsRead(c.Request().Context(), currentUserID(c)); err != nil {
		return notificationFailure(c, err, "failed to mark notifications read")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "All notifications marked as read"})
}
