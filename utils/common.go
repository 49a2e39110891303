package utils

import (
	"github.com/BerniceZTT/crm_lifecycle/models"

	"github.com/gin-gonic/gin"
)

// ActorContextKey gin 上下文中保存操作人的键
const ActorContextKey = "actor"

// GetUser 获取当前操作人
func GetUser(c *gin.Context) (*models.Actor, error) {
	value, exists := c.Get(ActorContextKey)
	if !exists {
		return nil, CreateUnauthorizedError()
	}

	actor, ok := value.(*models.Actor)
	if !ok || actor == nil {
		return nil, CreateUnauthorizedError()
	}
	return actor, nil
}
