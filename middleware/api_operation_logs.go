package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BerniceZTT/crm_lifecycle/utils"

	"github.com/gin-gonic/gin"
)

// 需要记录的HTTP方法
var loggedMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// 不需要记录的路径
var excludedPaths = map[string]bool{
	"/api/health": true,
}

// OperationLoggerMiddleware 记录写操作: 操作人、脱敏后的请求体、结果
func OperationLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !shouldLogOperation(c) {
			c.Next()
			return
		}

		startTime := time.Now()

		// 读取并重置请求体
		var requestBody interface{}
		if c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				utils.Logger.Error().Err(err).Msg("读取请求体失败")
			} else {
				c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
				if len(raw) > 0 && json.Unmarshal(raw, &requestBody) != nil {
					requestBody = string(raw)
				}
			}
		}

		c.Next()

		operatorID, operatorName, operatorType := extractUserInfo(c)
		event := utils.Logger.Info()
		if c.Writer.Status() >= http.StatusBadRequest {
			event = utils.Logger.Warn()
		}
		event.
			Str("requestId", RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("operatorId", operatorID).
			Str("operatorName", operatorName).
			Str("operatorType", operatorType).
			Interface("requestBody", sanitizeData(requestBody)).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Int64("responseTime", time.Since(startTime).Milliseconds()).
			Msg("操作日志")
	}
}

// shouldLogOperation 检查是否需要记录此操作
func shouldLogOperation(c *gin.Context) bool {
	if excludedPaths[c.Request.URL.Path] {
		return false
	}
	return loggedMethods[c.Request.Method]
}

// extractUserInfo 从上下文中提取操作人, 未认证时为匿名用户
func extractUserInfo(c *gin.Context) (string, string, string) {
	actor, err := utils.GetUser(c)
	if err != nil {
		return "anonymous", "匿名用户", "UNKNOWN"
	}
	return actor.ID, actor.Username, string(actor.Role)
}

// sanitizeData 清理数据中的敏感信息
func sanitizeData(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		sanitized := make(map[string]interface{}, len(v))
		for k, val := range v {
			switch strings.ToLower(k) {
			case "password", "token", "authorization", "secret", "key":
				sanitized[k] = "******"
			default:
				sanitized[k] = sanitizeData(val)
			}
		}
		return sanitized
	case []interface{}:
		sanitized := make([]interface{}, len(v))
		for i, val := range v {
			sanitized[i] = sanitizeData(val)
		}
		return sanitized
	}
	return data
}
