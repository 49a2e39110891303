package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码
const (
	ErrorCodeNotFound             = "RESOURCE_NOT_FOUND"
	ErrorCodeUnauthorized         = "UNAUTHORIZED"
	ErrorCodeForbidden            = "FORBIDDEN"
	ErrorCodeValidation           = "VALIDATION_ERROR"
	ErrorCodeInvalidLinkage       = "INVALID_LINKAGE"
	ErrorCodeInvalidProgressValue = "INVALID_PROGRESS_VALUE"
	ErrorCodeAlreadyPooled        = "ALREADY_POOLED"
	ErrorCodeConcurrencyConflict  = "CONCURRENCY_CONFLICT"
)

// ApiError 自定义API错误
type ApiError struct {
	StatusCode int
	Message    string
	ErrorCode  string
	Details    map[string]interface{}
}

// Error 实现error接口
func (e *ApiError) Error() string {
	return e.Message
}

// Is 按错误码比较, 使 errors.Is 可以匹配带详情的错误
func (e *ApiError) Is(target error) bool {
	t, ok := target.(*ApiError)
	if !ok {
		return false
	}
	return t.ErrorCode == e.ErrorCode
}

// NewApiError 创建API错误
func NewApiError(message string, statusCode int, errorCode string) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    message,
		ErrorCode:  errorCode,
	}
}

// 哨兵错误, 用于 errors.Is
var (
	ErrNotFound             = NewApiError("资源不存在", http.StatusNotFound, ErrorCodeNotFound)
	ErrUnauthorized         = NewApiError("未授权访问", http.StatusUnauthorized, ErrorCodeUnauthorized)
	ErrForbidden            = NewApiError("权限不足", http.StatusForbidden, ErrorCodeForbidden)
	ErrValidation           = NewApiError("请求数据无效", http.StatusBadRequest, ErrorCodeValidation)
	ErrInvalidLinkage       = NewApiError("代理商与销售不匹配", http.StatusUnprocessableEntity, ErrorCodeInvalidLinkage)
	ErrInvalidProgressValue = NewApiError("无效的客户进展状态", http.StatusBadRequest, ErrorCodeInvalidProgressValue)
	ErrAlreadyPooled        = NewApiError("客户已在公海中", http.StatusConflict, ErrorCodeAlreadyPooled)
	ErrConcurrencyConflict  = NewApiError("客户已被其他操作修改，请刷新后重试", http.StatusConflict, ErrorCodeConcurrencyConflict)
)

// CreateNotFoundError 创建资源不存在错误
func CreateNotFoundError(resource string) *ApiError {
	return NewApiError(resource+"不存在", http.StatusNotFound, ErrorCodeNotFound)
}

// CreateUnauthorizedError 创建未授权错误
func CreateUnauthorizedError() *ApiError {
	return NewApiError("未授权访问", http.StatusUnauthorized, ErrorCodeUnauthorized)
}

// CreateForbiddenError 创建权限不足错误. 不返回具体规则
func CreateForbiddenError() *ApiError {
	return NewApiError("权限不足", http.StatusForbidden, ErrorCodeForbidden)
}

// CreateValidationError 创建数据校验错误
func CreateValidationError(message string) *ApiError {
	return NewApiError(message, http.StatusBadRequest, ErrorCodeValidation)
}

// CreateInvalidLinkageError 代理商不属于目标销售
func CreateInvalidLinkageError(agentID, agentSalesID, targetSalesID string) *ApiError {
	err := NewApiError(
		fmt.Sprintf("代理商 %s 关联的销售为 %s，与目标销售 %s 不一致", agentID, agentSalesID, targetSalesID),
		http.StatusUnprocessableEntity,
		ErrorCodeInvalidLinkage,
	)
	err.Details = map[string]interface{}{
		"agentId":       agentID,
		"agentSalesId":  agentSalesID,
		"targetSalesId": targetSalesID,
	}
	return err
}

// CreateInvalidProgressError 无效或保留的进展状态
func CreateInvalidProgressError(progress string) *ApiError {
	err := NewApiError("无效的客户进展状态: "+progress, http.StatusBadRequest, ErrorCodeInvalidProgressValue)
	err.Details = map[string]interface{}{"progress": progress}
	return err
}

// CreateAlreadyPooledError 客户已在公海
func CreateAlreadyPooledError() *ApiError {
	return NewApiError("客户已在公海中", http.StatusConflict, ErrorCodeAlreadyPooled)
}

// CreateConcurrencyConflictError 并发修改冲突
func CreateConcurrencyConflictError() *ApiError {
	return NewApiError("客户已被其他操作修改，请刷新后重试", http.StatusConflict, ErrorCodeConcurrencyConflict)
}

// HandleError 处理错误并返回适当的响应
func HandleError(c *gin.Context, err error) {
	if c == nil {
		return
	}
	// 记录错误
	LogError(err, map[string]interface{}{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}, "API错误")

	// 处理API错误
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		response := gin.H{"success": false, "error": apiErr.Message}
		if apiErr.ErrorCode != "" {
			response["code"] = apiErr.ErrorCode
		}
		if len(apiErr.Details) > 0 {
			response["details"] = apiErr.Details
		}
		c.AbortWithStatusJSON(apiErr.StatusCode, response)
		return
	}

	// 其他未预期的错误不向调用方暴露细节
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "服务器内部错误",
	})
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, data interface{}, message string, statusCode ...int) {
	code := http.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	response := gin.H{"success": true}
	if data != nil {
		response["data"] = data
	}
	if message != "" {
		response["message"] = message
	}

	c.JSON(code, response)
}
