package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicPoolCustomer 公海客户响应类型
type PublicPoolCustomer struct {
	ID                       primitive.ObjectID `json:"_id"`
	Name                     string             `json:"name"`
	Nature                   CustomerNature     `json:"nature"`
	Importance               CustomerImportance `json:"importance"`
	ApplicationField         string             `json:"applicationField"`
	Progress                 CustomerProgress   `json:"progress"`
	Address                  string             `json:"address"`
	ProductNeeds             []string           `json:"productNeeds"`
	EnterPoolTime            time.Time          `json:"enterPoolTime"`
	PreviousOwnerName        string             `json:"previousOwnerName,omitempty"`
	PreviousOwnerType        UserRole           `json:"previousOwnerType,omitempty"`
	PreviousRelatedAgentName string             `json:"previousRelatedAgentName,omitempty"`
	CreatorID                string             `json:"creatorId"`
	CreatorName              string             `json:"creatorName"`
	CreatorType              UserRole           `json:"creatorType"`
	CreatedAt                time.Time          `json:"createdAt"`
}

// NewPublicPoolCustomer 转换为公海客户响应格式
func NewPublicPoolCustomer(customer Customer) PublicPoolCustomer {
	// 确定进入公海时间
	enterPoolTime := customer.EnterPublicPoolTime
	if enterPoolTime.IsZero() {
		enterPoolTime = customer.LastUpdateTime
	}

	return PublicPoolCustomer{
		ID:                       customer.ID,
		Name:                     customer.Name,
		Nature:                   customer.Nature,
		Importance:               customer.Importance,
		ApplicationField:         customer.ApplicationField,
		Progress:                 customer.Progress,
		Address:                  customer.Address,
		ProductNeeds:             customer.ProductNeeds,
		EnterPoolTime:            enterPoolTime,
		PreviousOwnerName:        customer.PreviousOwnerName,
		PreviousOwnerType:        customer.PreviousOwnerType,
		PreviousRelatedAgentName: customer.PreviousAgentName,
		CreatorID:                customer.OwnerID,
		CreatorName:              customer.OwnerName,
		CreatorType:              customer.OwnerType,
		CreatedAt:                customer.CreatedAt,
	}
}

// AssignCustomerRequest 客户分配/认领请求
type AssignCustomerRequest struct {
	SalesID string `json:"salesId" binding:"required"`
	AgentID string `json:"agentId"`
	// ExpectedSalesID 调用方看到的当前销售, 不一致时拒绝
	ExpectedSalesID *string `json:"expectedSalesId,omitempty"`
	Remark          string  `json:"remark"`
}

// ChangeProgressRequest 客户进展变更请求
type ChangeProgressRequest struct {
	Progress CustomerProgress `json:"progress" binding:"required"`
	Remark   string           `json:"remark"`
}

// RemarkRequest 仅包含备注的请求
type RemarkRequest struct {
	Remark string `json:"remark"`
}
