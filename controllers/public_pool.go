package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// GetPublicPoolCustomers 获取公海客户列表
func (h *Handler) GetPublicPoolCustomers(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	filter := models.CustomerFilter{
		Keyword:          c.Query("keyword"),
		Nature:           models.CustomerNature(c.Query("nature")),
		Importance:       models.CustomerImportance(c.Query("importance")),
		ApplicationField: c.Query("applicationField"),
	}

	customers, err := h.publicPool.ListPublicPoolCustomers(c.Request.Context(), filter, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"customers": customers, "total": len(customers)}, "")
}
