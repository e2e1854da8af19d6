package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/response"
)

type roleRequest struct {
	Role string `json:"role"`
}

// Me 当前用户资料
// @Summary 我的资料
// @Tags 用户
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=service.Profile}
// @Failure 401 {object} response.Response
// @Router /users/me/ [get]
func (h *Handler) Me(c *gin.Context) {
	p, err := h.profiles.Me(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// UpdateMe 修改用户名、简介、头像
// @Summary 修改我的资料
// @Tags 用户
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.UpdateProfileInput true "资料"
// @Success 200 {object} response.Response{data=service.Profile}
// @Failure 409 {object} response.Response
// @Router /users/me/ [put]
func (h *Handler) UpdateMe(c *gin.Context) {
	var req service.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	p, err := h.profiles.UpdateMe(c.Request.Context(), caller(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// SetOwnRole Author 自助退回 Guest；Author 角色只能由管理员授予
// @Summary 修改我的角色
// @Tags 用户
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body roleRequest true "Guest 或 Author"
// @Success 200 {object} response.Response{data=service.UserView}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users/role/ [put]
func (h *Handler) SetOwnRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	u, err := h.profiles.SetOwnRole(c.Request.Context(), caller(c), req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

// PublicProfile 公开资料（不含邮箱）
// @Summary 用户公开资料
// @Tags 用户
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} response.Response{data=service.Profile}
// @Failure 404 {object} response.Response
// @Router /profiles/{id}/ [get]
func (h *Handler) PublicProfile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.profiles.PublicProfile(c.Request.Context(), caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// ListUsers 管理员查看用户
// @Summary 用户列表
// @Tags 管理
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.Page{list=[]service.UserView}}
// @Failure 403 {object} response.Response
// @Router /admin/users/ [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, size := pageParams(c)
	list, err := h.profiles.ListUsers(c.Request.Context(), caller(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.Page{Page: page, PageSize: size, List: list})
}

// UpdateUserRole 管理员修改用户角色
// @Summary 修改用户角色
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "用户ID"
// @Param request body roleRequest true "Guest 或 Author"
// @Success 200 {object} response.Response{data=service.UserView}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/role/ [put]
func (h *Handler) UpdateUserRole(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	u, err := h.profiles.UpdateRole(c.Request.Context(), caller(c), id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}
