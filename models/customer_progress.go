package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomerProgress 客户进展状态
type CustomerProgress string

// 客户进展状态常量
const (
	CustomerProgressInitialContact CustomerProgress = "初步接触"
	CustomerProgressNormal         CustomerProgress = "正常"
	// CustomerProgressDisabled 其他客户的推进已覆盖该客户, 等待转移
	CustomerProgressDisabled CustomerProgress = "禁用"
	// CustomerProgressPublicPool 只能由移入公海池操作写入
	CustomerProgressPublicPool CustomerProgress = "进入公海"
)

// IsValidCustomerProgress 验证进展状态是否有效
func IsValidCustomerProgress(progress CustomerProgress) bool {
	validProgress := []CustomerProgress{
		CustomerProgressInitialContact,
		CustomerProgressNormal,
		CustomerProgressDisabled,
		CustomerProgressPublicPool,
	}

	for _, p := range validProgress {
		if p == progress {
			return true
		}
	}
	return false
}

// IsSettableCustomerProgress 是否可以通过编辑直接设置
func IsSettableCustomerProgress(progress CustomerProgress) bool {
	return progress == CustomerProgressInitialContact || progress == CustomerProgressNormal
}

// CustomerProgressHistory 客户进展历史记录
type CustomerProgressHistory struct {
	ID           primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	CustomerID   string             `json:"customerId" bson:"customerid"`
	CustomerName string             `json:"customerName" bson:"customername"`
	FromProgress CustomerProgress   `json:"fromProgress" bson:"fromprogress"`
	ToProgress   CustomerProgress   `json:"toProgress" bson:"toprogress"`
	OperatorID   string             `json:"operatorId" bson:"operatorid"`
	OperatorName string             `json:"operatorName" bson:"operatorname"`
	Remark       string             `json:"remark,omitempty" bson:"remark,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdat"`
}
