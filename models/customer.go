package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomerNature 客户性质
type CustomerNature string

const (
	CustomerNatureEndUser  CustomerNature = "终端客户"
	CustomerNatureTrader   CustomerNature = "贸易商"
	CustomerNatureSolution CustomerNature = "方案商"
	CustomerNatureInstitut CustomerNature = "研究所"
)

// CustomerImportance 客户重要程度
type CustomerImportance string

const (
	CustomerImportanceA CustomerImportance = "A类客户"
	CustomerImportanceB CustomerImportance = "B类客户"
	CustomerImportanceC CustomerImportance = "C类客户"
)

// Customer 客户模型
type Customer struct {
	ID               primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name             string             `json:"name" bson:"name"`
	Nature           CustomerNature     `json:"nature" bson:"nature"`
	Importance       CustomerImportance `json:"importance" bson:"importance"`
	ApplicationField string             `json:"applicationField" bson:"applicationfield"`
	ProductNeeds     []string           `json:"productNeeds" bson:"productneeds"`
	ContactPerson    string             `json:"contactPerson" bson:"contactperson"`
	ContactPhone     string             `json:"contactPhone" bson:"contactphone"`
	Address          string             `json:"address" bson:"address"`
	Progress         CustomerProgress   `json:"progress" bson:"progress"`
	AnnualDemand     int64              `json:"annualDemand" bson:"annualdemand"`

	// 创建人信息, 创建后不再变化
	OwnerID   string   `json:"ownerId" bson:"ownerid"`
	OwnerName string   `json:"ownerName" bson:"ownername"`
	OwnerType UserRole `json:"ownerType" bson:"ownertype"`

	// 关联销售信息
	RelatedSalesID   string `json:"relatedSalesId" bson:"relatedsalesid"`
	RelatedSalesName string `json:"relatedSalesName" bson:"relatedsalesname"`

	// 关联代理商信息
	RelatedAgentID   string `json:"relatedAgentId" bson:"relatedagentid"`
	RelatedAgentName string `json:"relatedAgentName" bson:"relatedagentname"`

	// IsInPublicPool 由 RelatedSalesID 推导, 只通过 SyncDerived 写入
	IsInPublicPool     bool      `json:"isInPublicPool" bson:"isinpublicpool"`
	InitialContactTime time.Time `json:"initialContactTime,omitempty" bson:"initialcontacttime,omitempty"`
	LastUpdateTime     time.Time `json:"lastUpdateTime" bson:"lastupdatetime"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedat"`

	// 公海池恢复相关字段
	PreviousOwnerID     string    `json:"previousOwnerId,omitempty" bson:"previousownerid,omitempty"`
	PreviousOwnerName   string    `json:"previousOwnerName,omitempty" bson:"previousownername,omitempty"`
	PreviousOwnerType   UserRole  `json:"previousOwnerType,omitempty" bson:"previousownertype,omitempty"`
	PreviousAgentID     string    `json:"previousAgentId,omitempty" bson:"previousagentid,omitempty"`
	PreviousAgentName   string    `json:"previousAgentName,omitempty" bson:"previousagentname,omitempty"`
	EnterPublicPoolTime time.Time `json:"enterPoolTime,omitempty" bson:"enterpooltime,omitempty"`

	// Version 乐观锁版本号
	Version int64 `json:"version" bson:"version"`
}

// SyncDerived 重新计算派生字段
func (c *Customer) SyncDerived() {
	c.IsInPublicPool = c.RelatedSalesID == ""
}

// InPool 是否在公海中
func (c *Customer) InPool() bool {
	return c.RelatedSalesID == ""
}

var (
	errPoolFlagOutOfSync = errors.New("isInPublicPool 与 relatedSalesId 不一致")
	errAgentWithoutSales = errors.New("关联代理商时必须存在关联销售")
	errUnknownProgress   = errors.New("未知的客户进展状态")
)

// Validate 检查客户记录的不变量
func (c *Customer) Validate() error {
	if c.IsInPublicPool != (c.RelatedSalesID == "") {
		return errPoolFlagOutOfSync
	}
	if c.RelatedAgentID != "" && c.RelatedSalesID == "" {
		return errAgentWithoutSales
	}
	if !IsValidCustomerProgress(c.Progress) {
		return errUnknownProgress
	}
	return nil
}

// Clone 深拷贝
func (c *Customer) Clone() *Customer {
	cp := *c
	if c.ProductNeeds != nil {
		cp.ProductNeeds = append([]string(nil), c.ProductNeeds...)
	}
	return &cp
}

// CustomerCreateRequest 创建客户请求
type CustomerCreateRequest struct {
	Name             string             `json:"name" binding:"required" validate:"required"`
	Nature           CustomerNature     `json:"nature" binding:"required" validate:"required,oneof=终端客户 贸易商 方案商 研究所"`
	Importance       CustomerImportance `json:"importance" binding:"required" validate:"required,oneof=A类客户 B类客户 C类客户"`
	ApplicationField string             `json:"applicationField"`
	ProductNeeds     []string           `json:"productNeeds" validate:"dive,required"`
	ContactPerson    string             `json:"contactPerson"`
	ContactPhone     string             `json:"contactPhone"`
	Address          string             `json:"address"`
	Progress         CustomerProgress   `json:"progress"`
	AnnualDemand     int64              `json:"annualDemand" validate:"gte=0"`
	RelatedSalesID   string             `json:"relatedSalesId"`
	RelatedAgentID   string             `json:"relatedAgentId,omitempty"`
}

// CustomerFilter 客户查询条件
type CustomerFilter struct {
	Keyword          string
	ApplicationField string
	Nature           CustomerNature
	Importance       CustomerImportance
	Progress         CustomerProgress
	InPublicPool     *bool
}
