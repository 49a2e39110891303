// Package permission 客户操作权限判断. 所有函数无副作用
package permission

import (
	"github.com/BerniceZTT/crm_lifecycle/models"
)

// Action 客户操作
type Action string

const (
	ActionView             Action = "view"
	ActionEdit             Action = "edit"
	ActionAssign           Action = "assign"
	ActionMoveToPublicPool Action = "moveToPublicPool"
	ActionDelete           Action = "delete"
)

// ActionSet 允许的操作集合
type ActionSet map[Action]bool

// Has 是否允许
func (s ActionSet) Has(a Action) bool {
	return s[a]
}

// Policy 单个角色的权限规则
type Policy struct {
	View   func(actor *models.Actor, customer *models.Customer) bool
	Edit   func(actor *models.Actor, customer *models.Customer) bool
	Assign func(actor *models.Actor, customer *models.Customer) bool
	Delete func(actor *models.Actor, customer *models.Customer) bool
	// Claim 从公海领取到 targetSalesID 名下
	Claim func(actor *models.Actor, customer *models.Customer, targetSalesID string) bool
}

func always(*models.Actor, *models.Customer) bool { return true }
func never(*models.Actor, *models.Customer) bool  { return false }

func neverClaim(*models.Actor, *models.Customer, string) bool { return false }

func isRelatedSales(actor *models.Actor, customer *models.Customer) bool {
	return customer.RelatedSalesID != "" && customer.RelatedSalesID == actor.ID
}

func isRelatedAgent(actor *models.Actor, customer *models.Customer) bool {
	return customer.RelatedAgentID != "" && customer.RelatedAgentID == actor.ID
}

var denyAll = Policy{
	View:   never,
	Edit:   never,
	Assign: never,
	Delete: never,
	Claim:  neverClaim,
}

var policies = map[models.UserRole]Policy{
	models.UserRoleSUPER_ADMIN: {
		View:   always,
		Edit:   always,
		Assign: always,
		Delete: always,
		Claim: func(_ *models.Actor, customer *models.Customer, _ string) bool {
			return customer.InPool()
		},
	},
	models.UserRoleFACTORY_SALES: {
		View:   always,
		Edit:   isRelatedSales,
		Assign: isRelatedSales,
		Delete: never,
		// 原厂销售只能认领给自己
		Claim: func(actor *models.Actor, customer *models.Customer, targetSalesID string) bool {
			return customer.InPool() && targetSalesID == actor.ID
		},
	},
	models.UserRoleAGENT: {
		View:   always,
		Edit:   isRelatedAgent,
		Assign: never,
		Delete: never,
		Claim:  neverClaim,
	},
	models.UserRoleINVENTORY_MANAGER: {
		View:   always,
		Edit:   never,
		Assign: never,
		Delete: never,
		Claim:  neverClaim,
	},
}

func policyFor(actor *models.Actor) Policy {
	if actor == nil {
		return denyAll
	}
	if p, ok := policies[actor.Role]; ok {
		return p
	}
	return denyAll
}

// CanView 查看客户
func CanView(actor *models.Actor, customer *models.Customer) bool {
	return policyFor(actor).View(actor, customer)
}

// CanEdit 编辑客户 (包括修改进展)
func CanEdit(actor *models.Actor, customer *models.Customer) bool {
	return policyFor(actor).Edit(actor, customer)
}

// CanAssign 分配客户给其他销售
func CanAssign(actor *models.Actor, customer *models.Customer) bool {
	return policyFor(actor).Assign(actor, customer)
}

// CanMoveToPublicPool 移入公海
func CanMoveToPublicPool(actor *models.Actor, customer *models.Customer) bool {
	if customer.InPool() {
		return false
	}
	return CanAssign(actor, customer)
}

// CanDelete 删除客户
func CanDelete(actor *models.Actor, customer *models.Customer) bool {
	return policyFor(actor).Delete(actor, customer)
}

// CanClaim 从公海认领客户到 targetSalesID
func CanClaim(actor *models.Actor, customer *models.Customer, targetSalesID string) bool {
	return policyFor(actor).Claim(actor, customer, targetSalesID)
}

// CanCreate 新建客户, 库存管理员不参与客户管理
func CanCreate(actor *models.Actor) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.UserRoleSUPER_ADMIN, models.UserRoleFACTORY_SALES, models.UserRoleAGENT:
		return true
	}
	return false
}

// CanDisable 将客户置为禁用, 仅超级管理员和系统任务
func CanDisable(actor *models.Actor, customer *models.Customer) bool {
	if actor == nil {
		return false
	}
	return actor.System || actor.Role == models.UserRoleSUPER_ADMIN
}

// Allowed 返回操作人对该客户的全部权限, 供前端控制按钮
func Allowed(actor *models.Actor, customer *models.Customer) ActionSet {
	return ActionSet{
		ActionView:             CanView(actor, customer),
		ActionEdit:             CanEdit(actor, customer),
		ActionAssign:           CanAssign(actor, customer),
		ActionMoveToPublicPool: CanMoveToPublicPool(actor, customer),
		ActionDelete:           CanDelete(actor, customer),
	}
}
