package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole 用户角色枚举
type UserRole string

const (
	UserRoleSUPER_ADMIN       UserRole = "SUPER_ADMIN"       // 超级管理员
	UserRoleFACTORY_SALES     UserRole = "FACTORY_SALES"     // 原厂销售
	UserRoleAGENT             UserRole = "AGENT"             // 代理商
	UserRoleINVENTORY_MANAGER UserRole = "INVENTORY_MANAGER" // 库存管理员
)

// IsValid 是否为已知角色
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleSUPER_ADMIN, UserRoleFACTORY_SALES, UserRoleAGENT, UserRoleINVENTORY_MANAGER:
		return true
	}
	return false
}

// UserStatus 用户状态枚举
type UserStatus string

const (
	UserStatusPENDING  UserStatus = "pending"
	UserStatusAPPROVED UserStatus = "approved"
	UserStatusREJECTED UserStatus = "rejected"
)

// User 用户类型 (原厂销售、管理员)
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Username  string             `bson:"username" json:"username"`
	Phone     string             `bson:"phone" json:"phone"`
	Role      UserRole           `bson:"role" json:"role"`
	Status    UserStatus         `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Agent 代理商类型
type Agent struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	CompanyName      string             `bson:"companyName" json:"companyName"`
	ContactPerson    string             `bson:"contactPerson" json:"contactPerson"`
	Phone            string             `bson:"phone" json:"phone"`
	RelatedSalesID   string             `bson:"relatedSalesId,omitempty" json:"relatedSalesId,omitempty"`
	RelatedSalesName string             `bson:"relatedSalesName,omitempty" json:"relatedSalesName,omitempty"`
	Status           UserStatus         `bson:"status" json:"status"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Actor 当前操作人
type Actor struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	// RelatedSalesID 代理商所属销售, 仅代理商有值
	RelatedSalesID string `json:"relatedSalesId,omitempty"`
	System         bool   `json:"-"`
}

const (
	SystemActorID   = "system"
	SystemActorName = "系统自动转移"
)

// SystemActor 定时任务使用的系统身份
func SystemActor() *Actor {
	return &Actor{
		ID:       SystemActorID,
		Username: SystemActorName,
		Role:     UserRoleSUPER_ADMIN,
		System:   true,
	}
}
