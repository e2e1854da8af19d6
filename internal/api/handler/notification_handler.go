package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/response"
)

type markReadResponse struct {
	Detail       string                   `json:"detail"`
	Notification *service.NotificationView `json:"notification"`
}

// ListNotifications 当前用户的通知，新的在前
// @Summary 通知列表
// @Tags 通知
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.Page{list=[]service.NotificationView}}
// @Failure 401 {object} response.Response
// @Router /notifications/ [get]
// @Router /dashboard/notifications/ [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	page, size := pageParams(c)
	list, err := h.notifications.List(c.Request.Context(), caller(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.Page{Page: page, PageSize: size, List: list})
}

// MarkNotificationRead 标记已读（幂等）
// @Summary 标记通知已读
// @Tags 通知
// @Security BearerAuth
// @Produce json
// @Param id path int true "通知ID"
// @Success 200 {object} response.Response{data=markReadResponse}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id}/ [put]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, markReadResponse{Detail: "Marked as read", Notification: n})
}

// MarkAllNotificationsRead 全部标记已读
// @Summary 全部已读
// @Tags 通知
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /notifications/read-all/ [put]
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}

// UnreadNotificationCount 未读数量
// @Summary 未读通知数
// @Tags 通知
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /notifications/unread-count/ [get]
func (h *Handler) UnreadNotificationCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"unread": n})
}
