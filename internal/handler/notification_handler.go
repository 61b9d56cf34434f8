package handler

import (
	"net/http"

	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/logic"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationLogic *logic.NotificationLogic
	auth              auth.Provider
}

func NewNotificationHandler(notificationLogic *logic.NotificationLogic, provider auth.Provider) *NotificationHandler {
	return &NotificationHandler{notificationLogic: notificationLogic, auth: provider}
}

// ListNotifications 通知列表
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	list, err := h.notificationLogic.ListNotifications(c.Request.Context(), s)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", list)
}

// UnreadCount 未读数量
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	count, err := h.notificationLogic.UnreadCount(c.Request.Context(), s)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", CountResponse{Count: count})
}

// MarkRead 标记已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	if err := h.notificationLogic.MarkRead(c.Request.Context(), s, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "已标记为已读", nil)
}

// MarkAllRead 全部已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	count, err := h.notificationLogic.MarkAllRead(c.Request.Context(), s)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "已全部标记为已读", CountResponse{Count: count})
}
