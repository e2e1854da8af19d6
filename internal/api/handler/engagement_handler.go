package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/pkg/response"
)

type likeCountResponse struct {
	Likes       int64 `json:"likes"`
	LikedByUser bool  `json:"liked_by_user"`
}

// ToggleLike 点赞/取消点赞
// @Summary 切换文章点赞
// @Tags 互动
// @Security BearerAuth
// @Produce json
// @Param id path int true "文章ID"
// @Success 200 {object} response.Response{data=service.ToggleResult}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /likes/{id}/ [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.engagement.ToggleLike(c.Request.Context(), caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// PostLikeCount 文章点赞数
// @Summary 文章点赞数
// @Tags 互动
// @Produce json
// @Param id path int true "文章ID"
// @Success 200 {object} response.Response{data=likeCountResponse}
// @Failure 404 {object} response.Response
// @Router /likes/{id}/ [get]
func (h *Handler) PostLikeCount(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	n, err := h.engagement.CountLikes(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	liked, err := h.engagement.IsLikedBy(ctx, id, caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, likeCountResponse{Likes: n, LikedByUser: liked})
}

// ToggleCommentLike 评论点赞/取消点赞（不产生通知）
// @Summary 切换评论点赞
// @Tags 互动
// @Security BearerAuth
// @Produce json
// @Param id path int true "评论ID"
// @Success 200 {object} response.Response{data=service.ToggleResult}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /like/comment/{id}/ [post]
func (h *Handler) ToggleCommentLike(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.engagement.ToggleCommentLike(c.Request.Context(), caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// CommentLikeCount 评论点赞数
// @Summary 评论点赞数
// @Tags 互动
// @Produce json
// @Param id path int true "评论ID"
// @Success 200 {object} response.Response{data=likeCountResponse}
// @Failure 404 {object} response.Response
// @Router /like/comment/{id}/ [get]
// @Router /like/comment/{id}/count/ [get]
func (h *Handler) CommentLikeCount(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	n, err := h.engagement.CountCommentLikes(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, likeCountResponse{Likes: n})
}

// ToggleBookmark 收藏/取消收藏
// @Summary 切换收藏
// @Tags 互动
// @Security BearerAuth
// @Produce json
// @Param id path int true "文章ID"
// @Success 200 {object} response.Response{data=service.ToggleResult}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /bookmarks/{id}/ [post]
func (h *Handler) ToggleBookmark(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.engagement.ToggleBookmark(c.Request.Context(), caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ListBookmarks 当前用户收藏的文章
// @Summary 我的收藏
// @Tags 互动
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.Page{list=[]service.PostView}}
// @Failure 401 {object} response.Response
// @Router /bookmarks/ [get]
func (h *Handler) ListBookmarks(c *gin.Context) {
	page, size := pageParams(c)
	list, err := h.feed.MyBookmarks(c.Request.Context(), caller(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.Page{Page: page, PageSize: size, List: list})
}
