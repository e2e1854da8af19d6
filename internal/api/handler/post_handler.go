package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/internal/repository"
	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/response"
)

// ListPosts 文章列表（支持与 search-filter 相同的筛选参数）
// @Summary 文章列表
// @Tags 文章
// @Produce json
// @Param search query string false "标题/正文/标签全文匹配"
// @Param category query string false "分类"
// @Param tags query string false "标签"
// @Param author query string false "作者用户名"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.Page{list=[]service.PostView}}
// @Router /posts/ [get]
func (h *Handler) ListPosts(c *gin.Context) {
	page, size := pageParams(c)
	f := repository.PostFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Tag:      c.Query("tags"),
		Author:   c.Query("author"),
	}
	if f.Author == "" {
		f.Author = c.Query("author__username")
	}
	list, err := h.content.ListPosts(c.Request.Context(), caller(c), f, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.Page{Page: page, PageSize: size, List: list})
}

// CreatePost 发文，作者固定为当前用户
// @Summary 创建文章
// @Tags 文章
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CreatePostInput true "文章"
// @Success 201 {object} response.Response{data=service.PostView}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /posts/ [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req service.CreatePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	p, err := h.content.CreatePost(c.Request.Context(), caller(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// GetPost 文章详情
// @Summary 文章详情
// @Tags 文章
// @Produce json
// @Param id path int true "文章ID"
// @Success 200 {object} response.Response{data=service.PostView}
// @Failure 404 {object} response.Response
// @Router /posts/{id}/ [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.content.GetPost(c.Request.Context(), caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// UpdatePost 部分更新，仅作者本人
// @Summary 更新文章
// @Tags 文章
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "文章ID"
// @Param request body service.UpdatePostInput true "需要修改的字段"
// @Success 200 {object} response.Response{data=service.PostView}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /posts/{id}/ [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdatePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	p, err := h.content.UpdatePost(c.Request.Context(), caller(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePost 删除文章及其评论、点赞、收藏
// @Summary 删除文章
// @Tags 文章
// @Security BearerAuth
// @Param id path int true "文章ID"
// @Success 204
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /posts/{id}/ [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.content.DeletePost(c.Request.Context(), caller(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
