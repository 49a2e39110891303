package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_lifecycle/controllers"
)

// RegisterCustomerProgressRoutes 注册客户进展相关路由
func RegisterCustomerProgressRoutes(api *gin.RouterGroup, h *controllers.Handler) {
	progressRoutes := api.Group("/customer-progress")

	// 获取指定客户的进展历史记录
	progressRoutes.GET("/:customerId", h.GetCustomerProgressHistory)
}
