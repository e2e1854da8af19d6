package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/internal/api/middleware"
	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/response"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Register 注册
// @Summary 注册账号
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "注册信息"
// @Success 201 {object} response.Response{data=service.UserView}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/register/ [post]
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	u, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

// Login 用户名或邮箱登录
// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "username 字段可填用户名或邮箱"
// @Success 200 {object} response.Response{data=service.LoginResult}
// @Failure 401 {object} response.Response
// @Router /auth/login/ [post]
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Refresh 用 refresh token 换新的 access token
// @Summary 刷新 token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body refreshRequest true "refresh token"
// @Success 200 {object} response.Response{data=service.TokenPair}
// @Failure 401 {object} response.Response
// @Router /auth/refresh/ [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pair)
}

// Logout 注销 refresh token 与当前 access token
// @Summary 注销
// @Tags 认证
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "refresh token"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout/ [post]
func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), caller(c), req.Refresh, middleware.AccessToken(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detailResponse{Detail: "Successfully logged out"})
}
