package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/response"
)

// ListComments 某篇文章的评论
// @Summary 评论列表
// @Tags 评论
// @Produce json
// @Param id path int true "文章ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.Page{list=[]service.CommentView}}
// @Failure 404 {object} response.Response
// @Router /comments/{id}/ [get]
// @Router /posts/{id}/comments/ [get]
func (h *Handler) ListComments(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := pageParams(c)
	list, err := h.content.ListComments(c.Request.Context(), caller(c), postID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.Page{Page: page, PageSize: size, List: list})
}

// CreateComment 评论文章
// @Summary 发表评论
// @Tags 评论
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "文章ID"
// @Param request body service.CommentInput true "评论内容"
// @Success 201 {object} response.Response{data=service.CommentView}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /comments/{id}/ [post]
// @Router /posts/{id}/comments/ [post]
func (h *Handler) CreateComment(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	cm, err := h.content.CreateComment(c.Request.Context(), caller(c), postID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cm)
}

// GetComment 评论详情
// @Summary 评论详情
// @Tags 评论
// @Produce json
// @Param id path int true "评论ID"
// @Success 200 {object} response.Response{data=service.CommentView}
// @Failure 404 {object} response.Response
// @Router /comments/detail/{id}/ [get]
func (h *Handler) GetComment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	cm, err := h.content.GetComment(c.Request.Context(), caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cm)
}

// UpdateComment 仅评论作者可修改
// @Summary 修改评论
// @Tags 评论
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "评论ID"
// @Param request body service.CommentInput true "评论内容"
// @Success 200 {object} response.Response{data=service.CommentView}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /comments/{id}/ [put]
func (h *Handler) UpdateComment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	cm, err := h.content.UpdateComment(c.Request.Context(), caller(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cm)
}

// DeleteComment 仅评论作者可删除
// @Summary 删除评论
// @Tags 评论
// @Security BearerAuth
// @Param id path int true "评论ID"
// @Success 204
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /comments/{id}/ [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.content.DeleteComment(c.Request.Context(), caller(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
