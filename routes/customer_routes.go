package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_lifecycle/controllers"
)

// RegisterCustomerRoutes 注册客户相关路由
func RegisterCustomerRoutes(api *gin.RouterGroup, h *controllers.Handler) {
	customerRoutes := api.Group("/customers")

	customerRoutes.POST("", h.CreateCustomer)
	customerRoutes.GET("/:id", h.GetCustomer)
	customerRoutes.DELETE("/:id", h.DeleteCustomer)
	customerRoutes.POST("/:id/assign", h.AssignCustomer)
	customerRoutes.POST("/:id/move-to-public", h.MoveToPublicPool)
	customerRoutes.POST("/:id/progress", h.ChangeProgress)
	customerRoutes.POST("/:id/disable", h.DisableCustomer)
}
