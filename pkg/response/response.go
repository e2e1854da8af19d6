package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Fields  []FieldErr  `json:"fields,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// FieldErr describes one failed binding rule.
type FieldErr struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Page 分页列表
type Page struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	List     interface{} `json:"list"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindConflict:     http.StatusConflict,
	apperr.KindUnavailable:  http.StatusServiceUnavailable,
	apperr.KindInternal:     http.StatusInternalServerError,
}

// StatusOf returns the HTTP status for an error kind.
func StatusOf(kind apperr.Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 根据错误类型写出状态码；internal 错误记录日志并上报 sentry
func Error(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = &apperr.Error{Kind: apperr.KindInternal, Detail: "internal server error", Err: err}
	}
	status := StatusOf(ae.Kind)
	if ae.Kind == apperr.KindInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		sentry.CaptureException(err)
	}
	c.AbortWithStatusJSON(status, Response{
		Code:    status,
		Message: ae.Detail,
		Error:   string(ae.Kind),
	})
}

// BadRequest 参数错误；validator 的字段错误会逐条返回
func BadRequest(c *gin.Context, err error) {
	resp := Response{
		Code:    http.StatusBadRequest,
		Message: "invalid request",
		Error:   string(apperr.KindValidation),
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, FieldErr{Field: fe.Field(), Rule: fe.Tag()})
			fields = append(fields, fe.Field())
		}
		resp.Message = "invalid fields: " + strings.Join(fields, ", ")
	} else if err != nil {
		resp.Message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func InternalError(c *gin.Context, err error) {
	Error(c, apperr.Internal("internal server error", err))
}
