package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/service"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// IdempotencyKeyHeader 分配请求的幂等键
const IdempotencyKeyHeader = "Idempotency-Key"

// AssignCustomer 分配客户, 客户在公海中时为认领
func (h *Handler) AssignCustomer(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.AssignCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	in := service.AssignInput{
		CustomerID:      c.Param("id"),
		TargetSalesID:   req.SalesID,
		TargetAgentID:   req.AgentID,
		ExpectedSalesID: req.ExpectedSalesID,
		IdempotencyKey:  c.GetHeader(IdempotencyKeyHeader),
		Remark:          req.Remark,
	}
	result, err := h.customers.AssignCustomer(c.Request.Context(), in, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	message := "客户分配成功"
	if result.Assignment != nil && result.Assignment.OperationType == models.OperationTypeClaim {
		message = "客户认领成功"
	}
	utils.SuccessResponse(c, result, message)
}

// GetCustomerAssignmentHistory 获取指定客户的分配历史记录
func (h *Handler) GetCustomerAssignmentHistory(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	customerID := c.Param("customerId")
	history, err := h.history.GetAssignmentHistory(c.Request.Context(), customerID, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo(map[string]interface{}{
		"customerId": customerID,
		"count":      len(history),
	}, "成功获取客户分配历史记录")
	utils.SuccessResponse(c, gin.H{"history": history}, "")
}

// GetPublicPoolHistory 客户的公海时间线
func (h *Handler) GetPublicPoolHistory(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	customerID := c.Param("customerId")
	history, err := h.history.GetPublicPoolHistory(c.Request.Context(), customerID, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	latestClaim, err := h.history.LatestClaim(c.Request.Context(), customerID, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"history": history, "latestClaim": latestClaim}, "")
}
