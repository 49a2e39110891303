package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConfigType 配置类型枚举
type ConfigType string

const (
	// ConfigTypeCustomerAutoTransfer 客户自动转移配置
	ConfigTypeCustomerAutoTransfer ConfigType = "customer_auto_transfer"
)

// AutoTransferConfig 无进展客户自动转移规则
type AutoTransferConfig struct {
	TargetSalesID       string `json:"targetSalesId" bson:"targetSalesId"`
	TargetSalesName     string `json:"targetSalesName" bson:"targetSalesName"`
	DaysWithoutProgress int    `json:"daysWithoutProgress" bson:"daysWithoutProgress"`
}

// SystemConfig 系统配置模型 (MongoDB文档结构)
type SystemConfig struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ConfigType  ConfigType         `bson:"configType" json:"configType"`
	ConfigKey   string             `bson:"configKey" json:"configKey"`
	ConfigValue interface{}        `bson:"configValue" json:"configValue"` // 使用interface{}存储任意类型值
	Description string             `bson:"description" json:"description"`
	IsEnabled   bool               `bson:"isEnabled" json:"isEnabled"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt   time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
