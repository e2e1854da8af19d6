// Package middleware 请求级中间件：request id、身份解析、日志、指标、panic 恢复
package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/pkg/logger"
	"github.com/d60-Lab/blogapi/pkg/metrics"
	"github.com/d60-Lab/blogapi/pkg/response"
)

const (
	HeaderRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxAccessToken  = "access_token"
)

// Resolver turns a bearer token into an identity.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (identity.Identity, error)
}

// RequestID 透传或生成 X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Identity 解析 Authorization 头。没有凭证的请求以匿名身份继续；
// 凭证无效时直接返回 401
func Identity(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Error(c, apperr.Unauthorized("authorization header must be: Bearer <token>"))
			return
		}
		token = strings.TrimSpace(token)
		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(ctxAccessToken, token)
		c.Request = c.Request.WithContext(identity.WithContext(c.Request.Context(), id))
		c.Next()
	}
}

// AccessToken returns the bearer token presented with the request, if any.
func AccessToken(c *gin.Context) string { return c.GetString(ctxAccessToken) }

func RequestIDOf(c *gin.Context) string { return c.GetString(ctxRequestID) }

// Logger 每个请求一条结构化日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", RequestIDOf(c)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := identity.FromContext(c.Request.Context()); id.Authenticated() {
			fields = append(fields, zap.Uint64("user_id", id.UserID))
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// Metrics 以路由模板为 label 记录请求数与耗时
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// Recovery 捕获 panic，上报 sentry，并以 internal 错误响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		defer func() {
			if r := recover(); r != nil {
				hub.RecoverWithContext(c.Request.Context(), r)
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", RequestIDOf(c)),
				)
				response.Error(c, apperr.Internal("internal server error", fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
