package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_lifecycle/controllers"
)

// RegisterCustomerAssignmentRoutes 分配历史只读
func RegisterCustomerAssignmentRoutes(api *gin.RouterGroup, h *controllers.Handler) {
	assignmentRoutes := api.Group("/customer-assignments")

	// 获取指定客户的分配历史记录
	assignmentRoutes.GET("/:customerId", h.GetCustomerAssignmentHistory)

	// 公海时间线
	assignmentRoutes.GET("/:customerId/public-pool", h.GetPublicPoolHistory)
}
