package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/services"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

func (nc *NotificationController) List(c *gin.Context) {
	unreadOnly := c.Query("unreadOnly") == "true"
	page, err := nc.notifications.List(c.Request.Context(), middleware.CurrentUserID(c), unreadOnly, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (nc *NotificationController) UnreadCount(c *gin.Context) {
	count, err := nc.notifications.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"count": count})
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	if err := nc.notifications.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Notification marked as read", nil)
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	count, err := nc.notifications.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"updated": count})
}

func (nc *NotificationController) Delete(c *gin.Context) {
	if err := nc.notifications.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Notification deleted", nil)
}
