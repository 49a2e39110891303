package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/service"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// Handler 客户归属相关接口
type Handler struct {
	customers  *service.CustomerService
	history    *service.HistoryService
	publicPool *service.PublicPoolService
}

// NewHandler 创建接口处理器
func NewHandler(customers *service.CustomerService, history *service.HistoryService, publicPool *service.PublicPoolService) *Handler {
	return &Handler{customers: customers, history: history, publicPool: publicPool}
}

// bindJSON 绑定请求体, 失败时返回校验错误
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.HandleError(c, utils.CreateValidationError("无效的请求数据: "+err.Error()))
		return false
	}
	return true
}

// bindOptionalJSON 请求体可以为空, 分块传输的空请求体读到 EOF
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		utils.HandleError(c, utils.CreateValidationError("无效的请求数据: "+err.Error()))
		return false
	}
	return true
}

// currentUser 获取当前操作人, 未认证时直接写出响应
func currentUser(c *gin.Context) (*models.Actor, bool) {
	actor, err := utils.GetUser(c)
	if err != nil {
		utils.HandleError(c, err)
		return nil, false
	}
	return actor, true
}

// CreateCustomer 新建客户
func (h *Handler) CreateCustomer(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req service.CreateCustomerInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.customers.CreateCustomer(c.Request.Context(), req, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, result, "客户创建成功", http.StatusCreated)
}

// GetCustomer 客户详情及当前用户可执行的操作
func (h *Handler) GetCustomer(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.customers.GetCustomer(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, view, "")
}

// DeleteCustomer 删除客户
func (h *Handler) DeleteCustomer(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.customers.DeleteCustomer(c.Request.Context(), c.Param("id"), actor); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, nil, "客户删除成功")
}

// MoveToPublicPool 移入公海
func (h *Handler) MoveToPublicPool(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.RemarkRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.customers.MoveToPublicPool(c.Request.Context(), c.Param("id"), actor, req.Remark)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, result, "客户已移入公海")
}

// ChangeProgress 修改客户进展
func (h *Handler) ChangeProgress(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.ChangeProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.customers.ChangeProgress(c.Request.Context(), c.Param("id"), req.Progress, actor, req.Remark)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, result, "客户进展已更新")
}

// DisableCustomer 禁用客户
func (h *Handler) DisableCustomer(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.RemarkRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.customers.DisableCustomer(c.Request.Context(), c.Param("id"), actor, req.Remark)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, result, "客户已禁用")
}
