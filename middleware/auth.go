package middleware

import (
	"strings"

	"github.com/BerniceZTT/crm_lifecycle/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 认证中间件, 解析 Bearer token 并把操作人写入上下文
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从请求头获取token
		authHeader := c.GetHeader("Authorization")

		utils.Logger.Debug().
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("authorization", getShortAuthHeader(authHeader)).
			Msg("验证请求")

		// 检查Authorization头
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.Logger.Info().Msg("缺少Authorization头或格式错误")
			utils.HandleError(c, utils.CreateUnauthorizedError())
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			utils.HandleError(c, utils.CreateUnauthorizedError())
			return
		}

		// 解析token
		claims, err := utils.ParseToken(secret, token)
		if err != nil {
			utils.Logger.Warn().Err(err).Msg("Token验证失败")
			utils.HandleError(c, utils.CreateUnauthorizedError())
			return
		}

		actor, err := utils.ActorFromClaims(claims)
		if err != nil {
			utils.Logger.Warn().Err(err).Msg("Token负载缺少必要字段")
			utils.HandleError(c, utils.CreateUnauthorizedError())
			return
		}

		// 将操作人存储到上下文
		c.Set(utils.ActorContextKey, actor)

		utils.Logger.Debug().
			Str("username", actor.Username).
			Str("role", string(actor.Role)).
			Msg("验证成功")

		c.Next()
	}
}

// getShortAuthHeader 获取截断的授权头，保护敏感信息
func getShortAuthHeader(header string) string {
	if len(header) > 15 {
		return header[:15] + "..."
	}
	return header
}
