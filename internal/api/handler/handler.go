// Package handler HTTP 入口：绑定参数、解析身份、调用 service、写出统一响应
package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/service"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler groups every endpoint; services are injected by the router.
type Handler struct {
	auth          service.AuthService
	content       service.ContentService
	engagement    service.EngagementService
	notifications service.NotificationService
	feed          service.FeedService
	profiles      service.ProfileService
	media         service.MediaService
	checks        map[string]Pinger
}

type Services struct {
	Auth          service.AuthService
	Content       service.ContentService
	Engagement    service.EngagementService
	Notifications service.NotificationService
	Feed          service.FeedService
	Profiles      service.ProfileService
	Media         service.MediaService
	// Checks 按名称列出 /healthz 需要 ping 的依赖
	Checks map[string]Pinger
}

func New(s Services) *Handler {
	return &Handler{
		auth:          s.Auth,
		content:       s.Content,
		engagement:    s.Engagement,
		notifications: s.Notifications,
		feed:          s.Feed,
		profiles:      s.Profiles,
		media:         s.Media,
		checks:        s.Checks,
	}
}

func caller(c *gin.Context) identity.Identity {
	return identity.FromContext(c.Request.Context())
}

// pathID 解析路径中的正整数 id
func pathID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound("not found")
	}
	return id, nil
}

// pageParams 读取 page/page_size，非法值回落到默认
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

type detailResponse struct {
	Detail string `json:"detail"`
}
