package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mentorlink/internal/middleware"
	"mentorlink/internal/services"
	"mentorlink/internal/utils"
)

// NotificationHandler serves the authenticated user's notifications.
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the user's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	limit := parseInt64(c.DefaultQuery("limit", "50"), 50)

	notifications, err := h.notifications.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load notifications")
		return
	}

	utils.SuccessResponse(c, notifications)
}

// MarkRead flips one notification to read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.UserID(c)
	notificationID := c.Param("id")

	if err := h.notifications.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Notification not found")
		return
	}

	utils.SuccessResponse(c, gin.H{"id": notificationID})
}

// UnreadCount returns the user's unread notification count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := middleware.UserID(c)

	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to count notifications")
		return
	}

	utils.SuccessResponse(c, gin.H{"unread": count})
}
