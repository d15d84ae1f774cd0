package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/auth"
	"github.com/kestrelhq/kestrel/internal/realtime"
	"github.com/kestrelhq/kestrel/internal/services"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// NotificationHandler exposes the notification inbox and the realtime stream.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
	jwt     *auth.JWTService
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(service *services.NotificationService, hub *realtime.Hub, jwt *auth.JWTService) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub, jwt: jwt}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	notifications, err := h.service.ListForUser(requestContext(c), services.ListNotificationsInput{
		UserID:     viewer.UserID,
		UnreadOnly: c.Query("unread_only") == "true",
		Limit:      parseIntQuery(c, "limit", 25),
		Offset:     parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notifications)
}

// UnreadCount returns the caller's unread notification count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), viewer.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": count})
}

// MarkRead flags one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	notification, err := h.service.MarkRead(requestContext(c), viewer.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notification)
}

// MarkAllRead flags every unread notification visible to the caller.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	if err := h.service.MarkAllRead(requestContext(c), viewer.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Delete removes one notification visible to the caller.
func (h *NotificationHandler) Delete(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	if err := h.service.Delete(requestContext(c), viewer.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stream upgrades to a websocket subscribed to the requested streams. Browsers
// cannot set headers on websocket handshakes, so the token may also arrive as
// a query parameter.
func (h *NotificationHandler) Stream(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
	}
	if token == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized.WithInternal(err))
		return
	}

	streams := realtime.KnownStreams()
	if raw := strings.TrimSpace(c.Query("streams")); raw != "" {
		streams = strings.Split(raw, ",")
	}

	h.hub.Serve(claims.UserID, streams, c.Writer, c.Request)
}
