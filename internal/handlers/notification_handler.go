package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/medfeed/backend/internal/notifications"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests. All view
// filtering is delegated to the engine so listings, counts and read-state
// changes agree on which notifications are still valid.
type NotificationHandler struct {
	engine *notifications.Engine
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(engine *notifications.Engine) *NotificationHandler {
	return &NotificationHandler{engine: engine}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/mark-one-read/:id", h.MarkAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/mark-read", h.MarkAllRead)
}

// GetNotifications returns the user's valid notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	enriched, err := h.engine.ListValid(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, enriched)
}

// GetUnreadCount returns the number of unread, still-valid notifications
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.engine.UnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead marks a single notification as read and returns the new count
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.engine.MarkRead(c.Request().Context(), c.Param("id"), currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Marked as read",
		"count":   count,
	})
}

// MarkAllRead marks every notification of the user as read
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.engine.MarkAllRead(c.Request().Context(), currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "All notifications marked as read",
		"count":   0,
	})
}
