package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/response"
)

// Trending 热门文章
// @Summary 热门文章
// @Tags 统计
// @Produce json
// @Param limit query int false "数量" default(10)
// @Success 200 {object} response.Response{data=[]service.PostView}
// @Router /posts/trending/ [get]
func (h *Handler) Trending(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultTrendingLimit)))
	if err != nil {
		limit = service.DefaultTrendingLimit
	}
	list, err := h.feed.Trending(c.Request.Context(), caller(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// Stats 全站统计
// @Summary 全站统计
// @Tags 统计
// @Produce json
// @Success 200 {object} response.Response{data=service.Stats}
// @Router /api/stats/posts/ [get]
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.feed.GlobalStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, st)
}

// Dashboard 个人面板
// @Summary 个人面板
// @Tags 面板
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=service.Dashboard}
// @Failure 401 {object} response.Response
// @Router /dashboard/ [get]
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.feed.Dashboard(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, d)
}

// DashboardPosts 我的文章
// @Summary 我的文章
// @Tags 面板
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=[]service.PostView}
// @Router /dashboard/posts/ [get]
func (h *Handler) DashboardPosts(c *gin.Context) {
	list, err := h.feed.MyPosts(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// DashboardComments 我的评论
// @Summary 我的评论
// @Tags 面板
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=[]service.CommentView}
// @Router /dashboard/comments/ [get]
func (h *Handler) DashboardComments(c *gin.Context) {
	list, err := h.feed.MyComments(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// DashboardLikes 我点赞过的文章与评论
// @Summary 我的点赞
// @Tags 面板
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=service.LikedContent}
// @Router /dashboard/likes/ [get]
func (h *Handler) DashboardLikes(c *gin.Context) {
	liked, err := h.feed.MyLikes(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, liked)
}
