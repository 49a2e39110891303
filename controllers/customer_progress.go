package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// GetCustomerProgressHistory 获取客户进展历史
func (h *Handler) GetCustomerProgressHistory(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	history, err := h.history.GetProgressHistory(c.Request.Context(), c.Param("customerId"), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"history": history}, "")
}
