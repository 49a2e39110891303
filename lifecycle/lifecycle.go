// Package lifecycle 客户归属与进展的状态机.
//
// 所有转换都是纯函数: 输入当前客户和操作人, 返回转换后的客户副本以及需要追加的历史记录.
// 输入的客户不会被修改, 持久化由调用方在同一事务内完成.
package lifecycle

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/permission"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// Party 已解析的销售或代理商
type Party struct {
	ID   string
	Name string
}

// Target 分配目标
type Target struct {
	Sales Party
	Agent Party
	// AgentSalesID 代理商自身关联的销售, 用于校验代理商归属
	AgentSalesID string
}

// Transition 一次状态转换的结果
type Transition struct {
	Customer   *models.Customer
	Assignment *models.CustomerAssignmentHistory
	Progress   *models.CustomerProgressHistory
}

// OperationTypeFor 计算分配记录的操作类型.
// 创建时负责人即创建人为创建并认领, 否则为创建并分配;
// 非创建时转换前无关联销售即为认领, 否则为分配
func OperationTypeFor(fromSalesID string, creating, selfOwned bool) models.AssignmentOperationType {
	if creating {
		if selfOwned {
			return models.OperationTypeCreateAndClaim
		}
		return models.OperationTypeCreateAndAssign
	}
	if fromSalesID == "" {
		return models.OperationTypeClaim
	}
	return models.OperationTypeAssign
}

// DefaultOwnership 按创建人角色确定新客户的关联销售和代理商
func DefaultOwnership(actor *models.Actor, salesID, agentID string) (string, string, error) {
	switch actor.Role {
	case models.UserRoleFACTORY_SALES:
		return actor.ID, agentID, nil
	case models.UserRoleAGENT:
		if actor.RelatedSalesID == "" {
			return "", "", utils.CreateValidationError("代理商未关联销售，无法创建客户")
		}
		return actor.RelatedSalesID, actor.ID, nil
	}
	if agentID != "" && salesID == "" {
		return "", "", utils.CreateValidationError("关联代理商时必须指定关联销售")
	}
	return salesID, agentID, nil
}

func checkLinkage(target Target) error {
	if target.Agent.ID == "" {
		return nil
	}
	if target.AgentSalesID != target.Sales.ID {
		return utils.CreateInvalidLinkageError(target.Agent.ID, target.AgentSalesID, target.Sales.ID)
	}
	return nil
}

func touch(c *models.Customer, now time.Time) {
	c.UpdatedAt = now
	c.LastUpdateTime = now
	c.SyncDerived()
}

func progressRow(c *models.Customer, from, to models.CustomerProgress, actor *models.Actor, remark string, now time.Time) *models.CustomerProgressHistory {
	return &models.CustomerProgressHistory{
		CustomerID:   c.ID.Hex(),
		CustomerName: c.Name,
		FromProgress: from,
		ToProgress:   to,
		OperatorID:   actor.ID,
		OperatorName: actor.Username,
		Remark:       remark,
		CreatedAt:    now,
	}
}

// Create 新建客户. target 为按 DefaultOwnership 解析后的归属, 可以为空 (进入公海)
func Create(req models.CustomerCreateRequest, target Target, actor *models.Actor, remark string, now time.Time) (*Transition, error) {
	if !permission.CanCreate(actor) {
		return nil, utils.CreateForbiddenError()
	}

	progress := req.Progress
	if progress == "" {
		progress = models.CustomerProgressInitialContact
	}
	if !models.IsSettableCustomerProgress(progress) {
		return nil, utils.CreateInvalidProgressError(string(progress))
	}
	if target.Agent.ID != "" && target.Sales.ID == "" {
		return nil, utils.CreateValidationError("关联代理商时必须指定关联销售")
	}
	if err := checkLinkage(target); err != nil {
		return nil, err
	}

	customer := &models.Customer{
		ID:               primitive.NewObjectID(),
		Name:             req.Name,
		Nature:           req.Nature,
		Importance:       req.Importance,
		ApplicationField: req.ApplicationField,
		ProductNeeds:     append([]string(nil), req.ProductNeeds...),
		ContactPerson:    req.ContactPerson,
		ContactPhone:     req.ContactPhone,
		Address:          req.Address,
		Progress:         progress,
		AnnualDemand:     req.AnnualDemand,
		OwnerID:          actor.ID,
		OwnerName:        actor.Username,
		OwnerType:        actor.Role,
		RelatedSalesID:   target.Sales.ID,
		RelatedSalesName: target.Sales.Name,
		RelatedAgentID:   target.Agent.ID,
		RelatedAgentName: target.Agent.Name,
		CreatedAt:        now,
		Version:          1,
	}
	if progress == models.CustomerProgressInitialContact {
		customer.InitialContactTime = now
	}
	touch(customer, now)

	t := &Transition{
		Customer: customer,
		Progress: progressRow(customer, "", progress, actor, remark, now),
	}

	if !customer.InPool() {
		selfOwned := target.Sales.ID == actor.ID || target.Agent.ID == actor.ID
		t.Assignment = &models.CustomerAssignmentHistory{
			CustomerID:         customer.ID.Hex(),
			CustomerName:       customer.Name,
			ToRelatedSalesID:   target.Sales.ID,
			ToRelatedSalesName: target.Sales.Name,
			ToRelatedAgentID:   target.Agent.ID,
			ToRelatedAgentName: target.Agent.Name,
			OperatorID:         actor.ID,
			OperatorName:       actor.Username,
			OperationType:      OperationTypeFor("", true, selfOwned),
			Remark:             remark,
			CreatedAt:          now,
		}
	}
	return t, nil
}

// privileged 可以处理禁用客户的身份
func privileged(actor *models.Actor) bool {
	return actor.System || actor.Role == models.UserRoleSUPER_ADMIN
}

// AuthorizeAssign 检查操作人能否把客户分配或认领给 targetSalesID
func AuthorizeAssign(c *models.Customer, targetSalesID string, actor *models.Actor) error {
	if c.InPool() {
		if !permission.CanClaim(actor, c, targetSalesID) {
			return utils.CreateForbiddenError()
		}
	} else if !permission.CanAssign(actor, c) {
		return utils.CreateForbiddenError()
	}
	// 禁用中的客户只能由管理员或系统处理
	if c.Progress == models.CustomerProgressDisabled && !privileged(actor) {
		return utils.CreateForbiddenError()
	}
	return nil
}

// Assign 分配或认领客户. 转换前无关联销售时记为认领
func Assign(c *models.Customer, target Target, actor *models.Actor, remark string, now time.Time) (*Transition, error) {
	if target.Sales.ID == "" {
		return nil, utils.CreateValidationError("目标销售不能为空")
	}

	if err := AuthorizeAssign(c, target.Sales.ID, actor); err != nil {
		return nil, err
	}
	pooled := c.InPool()

	if err := checkLinkage(target); err != nil {
		return nil, err
	}
	if !pooled && c.RelatedSalesID == target.Sales.ID && c.RelatedAgentID == target.Agent.ID {
		return nil, utils.CreateValidationError("客户已属于该销售和代理商")
	}

	after := c.Clone()
	after.RelatedSalesID = target.Sales.ID
	after.RelatedSalesName = target.Sales.Name
	after.RelatedAgentID = target.Agent.ID
	after.RelatedAgentName = target.Agent.Name
	touch(after, now)

	t := &Transition{
		Customer: after,
		Assignment: &models.CustomerAssignmentHistory{
			CustomerID:           c.ID.Hex(),
			CustomerName:         c.Name,
			FromRelatedSalesID:   c.RelatedSalesID,
			FromRelatedSalesName: c.RelatedSalesName,
			ToRelatedSalesID:     target.Sales.ID,
			ToRelatedSalesName:   target.Sales.Name,
			FromRelatedAgentID:   c.RelatedAgentID,
			FromRelatedAgentName: c.RelatedAgentName,
			ToRelatedAgentID:     target.Agent.ID,
			ToRelatedAgentName:   target.Agent.Name,
			OperatorID:           actor.ID,
			OperatorName:         actor.Username,
			OperationType:        OperationTypeFor(c.RelatedSalesID, false, false),
			Remark:               remark,
			CreatedAt:            now,
		},
	}

	// 离开公海或禁用状态时恢复为正常推进
	if pooled || c.Progress == models.CustomerProgressDisabled || c.Progress == models.CustomerProgressPublicPool {
		if c.Progress != models.CustomerProgressNormal {
			after.Progress = models.CustomerProgressNormal
			t.Progress = progressRow(after, c.Progress, after.Progress, actor, remark, now)
		}
	}
	return t, nil
}

// MoveToPublicPool 将客户移入公海, 记录移入前的负责人
func MoveToPublicPool(c *models.Customer, actor *models.Actor, remark string, now time.Time) (*Transition, error) {
	if c.InPool() {
		return nil, utils.CreateAlreadyPooledError()
	}
	if !permission.CanMoveToPublicPool(actor, c) {
		return nil, utils.CreateForbiddenError()
	}
	if c.Progress == models.CustomerProgressDisabled && !privileged(actor) {
		return nil, utils.CreateForbiddenError()
	}

	after := c.Clone()
	after.PreviousOwnerID = c.RelatedSalesID
	after.PreviousOwnerName = c.RelatedSalesName
	after.PreviousOwnerType = models.UserRoleFACTORY_SALES
	after.PreviousAgentID = c.RelatedAgentID
	after.PreviousAgentName = c.RelatedAgentName
	after.EnterPublicPoolTime = now

	after.RelatedSalesID = ""
	after.RelatedSalesName = ""
	after.RelatedAgentID = ""
	after.RelatedAgentName = ""
	after.Progress = models.CustomerProgressPublicPool
	touch(after, now)

	return &Transition{
		Customer: after,
		Assignment: &models.CustomerAssignmentHistory{
			CustomerID:           c.ID.Hex(),
			CustomerName:         c.Name,
			FromRelatedSalesID:   c.RelatedSalesID,
			FromRelatedSalesName: c.RelatedSalesName,
			FromRelatedAgentID:   c.RelatedAgentID,
			FromRelatedAgentName: c.RelatedAgentName,
			OperatorID:           actor.ID,
			OperatorName:         actor.Username,
			OperationType:        models.OperationTypeMoveToPublicPool,
			Remark:               remark,
			CreatedAt:            now,
		},
		Progress: progressRow(after, c.Progress, models.CustomerProgressPublicPool, actor, remark, now),
	}, nil
}

// ChangeProgress 修改客户进展. 公海和禁用状态不能通过此操作直接设置
func ChangeProgress(c *models.Customer, progress models.CustomerProgress, actor *models.Actor, remark string, now time.Time) (*Transition, error) {
	if !models.IsSettableCustomerProgress(progress) {
		return nil, utils.CreateInvalidProgressError(string(progress))
	}
	if c.Progress == models.CustomerProgressDisabled && (actor == nil || actor.Role != models.UserRoleSUPER_ADMIN) {
		return nil, utils.CreateForbiddenError()
	}
	if !permission.CanEdit(actor, c) {
		return nil, utils.CreateForbiddenError()
	}
	if c.Progress == progress {
		return nil, utils.CreateValidationError("客户进展未变化")
	}

	after := c.Clone()
	after.Progress = progress
	if progress == models.CustomerProgressInitialContact {
		after.InitialContactTime = now
	}
	touch(after, now)

	return &Transition{
		Customer: after,
		Progress: progressRow(after, c.Progress, progress, actor, remark, now),
	}, nil
}

// Disable 将客户置为禁用, 等待其他流程完成转移
func Disable(c *models.Customer, actor *models.Actor, remark string, now time.Time) (*Transition, error) {
	if !permission.CanDisable(actor, c) {
		return nil, utils.CreateForbiddenError()
	}
	if c.Progress == models.CustomerProgressDisabled {
		return nil, utils.CreateValidationError("客户已处于禁用状态")
	}

	after := c.Clone()
	after.Progress = models.CustomerProgressDisabled
	touch(after, now)

	return &Transition{
		Customer: after,
		Progress: progressRow(after, c.Progress, models.CustomerProgressDisabled, actor, remark, now),
	}, nil
}
