package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cityfix-service/internal/http/middleware"
	"cityfix-service/internal/service"
)

func (h *Handler) listNotifications(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.notificationService.List(c.Request.Context(), principal, unreadOnly)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(notifications))
}

func (h *Handler) unreadCount(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"unread": count}))
}

func (h *Handler) markRead(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) markAllRead(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"updated": updated}))
}

func (h *Handler) deleteNotification(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) getPreferences(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	channels, err := h.notificationService.Preferences(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(channels))
}

func (h *Handler) updatePreferences(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req service.UpdatePreferencesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	channels, err := h.notificationService.UpdatePreferences(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(channels))
}
