package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BerniceZTT/crm_lifecycle/metrics"
	"github.com/BerniceZTT/crm_lifecycle/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// requestIDKey gin 上下文中的请求ID
const requestIDKey = "requestId"

// RequestID 从上下文获取请求ID
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger 日志中间件, 为每个请求分配请求ID并记录请求和响应
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		// 记录请求头
		headers := make(map[string]string)
		for k, v := range c.Request.Header {
			if len(v) > 0 {
				headers[k] = v[0]
			}
		}

		utils.LogApiRequest(requestID, method, path, c.Request.URL.Query(), headers)

		// 处理请求
		c.Next()

		statusCode := c.Writer.Status()
		utils.LogApiResponse(requestID, method, path, statusCode, time.Since(start))

		// 未匹配的路由统一记为 unmatched
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	}
}

// Recovery 恢复中间件
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		// 记录崩溃信息
		utils.Logger.Error().
			Interface("panic", recovered).
			Str("requestId", RequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("服务崩溃")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "服务器内部错误",
		})
	})
}
