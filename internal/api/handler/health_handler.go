package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogapi/pkg/logger"
)

// Health 逐个 ping 依赖，任一失败返回 503
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	out := gin.H{"status": "ok"}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			out[name] = "down"
			status = http.StatusServiceUnavailable
			out["status"] = "degraded"
			continue
		}
		out[name] = "up"
	}
	c.JSON(status, out)
}
