package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_lifecycle/controllers"
)

// RegisterPublicPoolRoutes 注册公海池相关路由
func RegisterPublicPoolRoutes(api *gin.RouterGroup, h *controllers.Handler) {
	api.GET("/public-pool", h.GetPublicPoolCustomers)
}
