package service

import (
	"context"
	"errors"
	"time"

	"github.com/BerniceZTT/crm_lifecycle/lifecycle"
	"github.com/BerniceZTT/crm_lifecycle/metrics"
	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/permission"
	"github.com/BerniceZTT/crm_lifecycle/repository"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// 操作名, 用于日志和指标
const (
	opCreate         = "create"
	opAssign         = "assign"
	opMoveToPublic   = "move_to_public_pool"
	opChangeProgress = "change_progress"
	opDisable        = "disable"
	opDelete         = "delete"
)

// DefaultConflictRetries 并发冲突默认重试次数
const DefaultConflictRetries = 1

// CustomerService 客户归属和进展的写操作
type CustomerService struct {
	store              repository.Store
	maxConflictRetries int
	now                func() time.Time
}

// Option 服务配置项
type Option func(*CustomerService)

// WithConflictRetries 设置并发冲突重试次数
func WithConflictRetries(n int) Option {
	return func(s *CustomerService) {
		if n >= 0 {
			s.maxConflictRetries = n
		}
	}
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(s *CustomerService) {
		s.now = now
	}
}

// NewCustomerService 创建客户服务
func NewCustomerService(store repository.Store, opts ...Option) *CustomerService {
	s := &CustomerService{
		store:              store,
		maxConflictRetries: DefaultConflictRetries,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result 一次写操作的结果
type Result struct {
	Customer   *models.Customer                  `json:"customer"`
	Assignment *models.CustomerAssignmentHistory `json:"assignment,omitempty"`
	Progress   *models.CustomerProgressHistory   `json:"progress,omitempty"`
	// Replayed 为 true 表示命中幂等键, 返回的是之前的结果
	Replayed bool `json:"replayed,omitempty"`
}

// CreateCustomerInput 新建客户
type CreateCustomerInput struct {
	models.CustomerCreateRequest
	Remark string `json:"remark" validate:"max=500"`
}

// AssignInput 分配或认领客户
type AssignInput struct {
	CustomerID    string `json:"customerId" validate:"required"`
	TargetSalesID string `json:"salesId" validate:"required"`
	TargetAgentID string `json:"agentId"`
	// ExpectedSalesID 调用方看到的当前销售, 空字符串表示期望客户在公海中
	ExpectedSalesID *string `json:"expectedSalesId"`
	IdempotencyKey  string  `json:"idempotencyKey" validate:"max=128"`
	Remark          string  `json:"remark" validate:"max=500"`
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	var apiErr *utils.ApiError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode
	}
	return "internal"
}

func observe(op string, start time.Time, err error) {
	metrics.TransitionsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	metrics.TransitionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// retry 遇到并发冲突时重新读取并重试
func (s *CustomerService) retry(op string, fn func(attempt int) error) error {
	return utils.RetryOnConflict(s.maxConflictRetries, func(attempt int) error {
		if attempt > 0 {
			metrics.ConflictRetriesTotal.WithLabelValues(op).Inc()
		}
		return fn(attempt)
	})
}

// apply 持久化状态转换, 必须在事务内调用
func (s *CustomerService) apply(ctx context.Context, expectedVersion int64, t *lifecycle.Transition) error {
	if err := s.store.UpdateCustomer(ctx, t.Customer, expectedVersion); err != nil {
		return err
	}
	return s.appendHistory(ctx, t)
}

func (s *CustomerService) appendHistory(ctx context.Context, t *lifecycle.Transition) error {
	if t.Assignment != nil {
		if err := s.store.AppendAssignmentHistory(ctx, t.Assignment); err != nil {
			return err
		}
	}
	if t.Progress != nil {
		if err := s.store.AppendProgressHistory(ctx, t.Progress); err != nil {
			return err
		}
	}
	return nil
}

// resolveTarget 查询目标销售和代理商资料
func (s *CustomerService) resolveTarget(ctx context.Context, salesID, agentID string) (lifecycle.Target, error) {
	var target lifecycle.Target
	if salesID != "" {
		sales, err := s.store.FindSalesUser(ctx, salesID)
		if err != nil {
			return target, err
		}
		target.Sales = lifecycle.Party{ID: salesID, Name: sales.Username}
	}
	if agentID != "" {
		agent, err := s.store.FindAgent(ctx, agentID)
		if err != nil {
			return target, err
		}
		target.Agent = lifecycle.Party{ID: agentID, Name: agent.CompanyName}
		target.AgentSalesID = agent.RelatedSalesID
	}
	return target, nil
}

func logTransition(op string, actor *models.Actor, r *Result) {
	ctx := map[string]interface{}{
		"operation":  op,
		"customerId": r.Customer.ID.Hex(),
		"operatorId": actor.ID,
		"salesId":    r.Customer.RelatedSalesID,
		"agentId":    r.Customer.RelatedAgentID,
		"progress":   r.Customer.Progress,
		"version":    r.Customer.Version,
	}
	if r.Assignment != nil {
		ctx["operationType"] = r.Assignment.OperationType
	}
	utils.LogInfo(ctx, "客户状态已变更")
}

// CreateCustomer 新建客户, 按创建人角色确定归属
func (s *CustomerService) CreateCustomer(ctx context.Context, in CreateCustomerInput, actor *models.Actor) (r *Result, err error) {
	defer func(start time.Time) { observe(opCreate, start, err) }(time.Now())

	if !permission.CanCreate(actor) {
		return nil, utils.CreateForbiddenError()
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	salesID, agentID, err := lifecycle.DefaultOwnership(actor, in.RelatedSalesID, in.RelatedAgentID)
	if err != nil {
		return nil, err
	}

	// 同名客户并发创建时, 冲突重试后由名称检查返回校验错误
	err = s.retry(opCreate, func(attempt int) error {
		return s.store.WithTransaction(ctx, func(txCtx context.Context) error {
			exists, err := s.store.CustomerNameExists(txCtx, in.Name)
			if err != nil {
				return err
			}
			if exists {
				return utils.CreateValidationError("客户名称已存在")
			}

			target, err := s.resolveTarget(txCtx, salesID, agentID)
			if err != nil {
				return err
			}

			t, err := lifecycle.Create(in.CustomerCreateRequest, target, actor, in.Remark, s.now())
			if err != nil {
				return err
			}
			if err := s.store.InsertCustomer(txCtx, t.Customer); err != nil {
				return err
			}
			if err := s.appendHistory(txCtx, t); err != nil {
				return err
			}
			r = &Result{Customer: t.Customer, Assignment: t.Assignment, Progress: t.Progress}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logTransition(opCreate, actor, r)
	return r, nil
}

// AssignCustomer 分配客户, 客户在公海中时为认领.
// 重试前会比较第一次读到的负责人, 负责人已变化时直接返回并发冲突
func (s *CustomerService) AssignCustomer(ctx context.Context, in AssignInput, actor *models.Actor) (r *Result, err error) {
	defer func(start time.Time) { observe(opAssign, start, err) }(time.Now())

	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	var pinned *string
	if in.ExpectedSalesID != nil {
		v := *in.ExpectedSalesID
		pinned = &v
	}

	err = s.retry(opAssign, func(attempt int) error {
		return s.store.WithTransaction(ctx, func(txCtx context.Context) error {
			customer, err := s.store.FindCustomer(txCtx, in.CustomerID)
			if err != nil {
				return err
			}

			// 幂等键命中时负责人已是第一次请求的结果, 先于负责人比较
			if in.IdempotencyKey != "" {
				replay, err := s.replay(txCtx, in, customer, actor)
				if err != nil || replay != nil {
					r = replay
					return err
				}
			}

			if pinned == nil {
				v := customer.RelatedSalesID
				pinned = &v
			} else if *pinned != customer.RelatedSalesID {
				utils.LogWarn(map[string]interface{}{
					"customerId": in.CustomerID,
					"expected":   *pinned,
					"actual":     customer.RelatedSalesID,
					"attempt":    attempt,
				}, "客户负责人已被其他操作修改")
				return utils.CreateConcurrencyConflictError()
			}

			if err := lifecycle.AuthorizeAssign(customer, in.TargetSalesID, actor); err != nil {
				return err
			}
			target, err := s.resolveTarget(txCtx, in.TargetSalesID, in.TargetAgentID)
			if err != nil {
				return err
			}

			t, err := lifecycle.Assign(customer, target, actor, in.Remark, s.now())
			if err != nil {
				return err
			}
			t.Assignment.IdempotencyKey = in.IdempotencyKey

			if err := s.apply(txCtx, customer.Version, t); err != nil {
				return err
			}
			r = &Result{Customer: t.Customer, Assignment: t.Assignment, Progress: t.Progress}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if !r.Replayed {
		logTransition(opAssign, actor, r)
	}
	return r, nil
}

// replay 幂等键已产生过分配记录时返回之前的记录和当前客户.
// 只有原操作人以相同的目标重复请求才会命中
func (s *CustomerService) replay(ctx context.Context, in AssignInput, customer *models.Customer, actor *models.Actor) (*Result, error) {
	prev, err := s.store.FindAssignmentByIdempotencyKey(ctx, in.IdempotencyKey)
	if err != nil || prev == nil {
		return nil, err
	}
	if prev.CustomerID != in.CustomerID {
		return nil, utils.CreateValidationError("幂等键已用于其他客户")
	}
	if prev.OperatorID != actor.ID {
		if err := lifecycle.AuthorizeAssign(customer, in.TargetSalesID, actor); err != nil {
			return nil, err
		}
		return nil, utils.CreateValidationError("幂等键已被其他操作人使用")
	}
	if prev.ToRelatedSalesID != in.TargetSalesID || prev.ToRelatedAgentID != in.TargetAgentID {
		return nil, utils.CreateValidationError("幂等键对应的请求参数不一致")
	}

	utils.LogInfo(map[string]interface{}{
		"customerId":     in.CustomerID,
		"idempotencyKey": in.IdempotencyKey,
	}, "重复的分配请求，返回已有结果")
	return &Result{Customer: customer, Assignment: prev, Replayed: true}, nil
}

// mutate 读取客户, 计算状态转换并在同一事务内写入
func (s *CustomerService) mutate(ctx context.Context, op, customerID string, actor *models.Actor,
	transition func(c *models.Customer, now time.Time) (*lifecycle.Transition, error)) (r *Result, err error) {
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	err = s.retry(op, func(int) error {
		return s.store.WithTransaction(ctx, func(txCtx context.Context) error {
			customer, err := s.store.FindCustomer(txCtx, customerID)
			if err != nil {
				return err
			}
			t, err := transition(customer, s.now())
			if err != nil {
				return err
			}
			if err := s.apply(txCtx, customer.Version, t); err != nil {
				return err
			}
			r = &Result{Customer: t.Customer, Assignment: t.Assignment, Progress: t.Progress}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logTransition(op, actor, r)
	return r, nil
}

// MoveToPublicPool 将客户移入公海
func (s *CustomerService) MoveToPublicPool(ctx context.Context, customerID string, actor *models.Actor, remark string) (*Result, error) {
	return s.mutate(ctx, opMoveToPublic, customerID, actor, func(c *models.Customer, now time.Time) (*lifecycle.Transition, error) {
		return lifecycle.MoveToPublicPool(c, actor, remark, now)
	})
}

// ChangeProgress 修改客户进展
func (s *CustomerService) ChangeProgress(ctx context.Context, customerID string, progress models.CustomerProgress, actor *models.Actor, remark string) (*Result, error) {
	if !models.IsSettableCustomerProgress(progress) {
		observe(opChangeProgress, time.Now(), utils.ErrInvalidProgressValue)
		return nil, utils.CreateInvalidProgressError(string(progress))
	}
	return s.mutate(ctx, opChangeProgress, customerID, actor, func(c *models.Customer, now time.Time) (*lifecycle.Transition, error) {
		return lifecycle.ChangeProgress(c, progress, actor, remark, now)
	})
}

// DisableCustomer 将客户置为禁用
func (s *CustomerService) DisableCustomer(ctx context.Context, customerID string, actor *models.Actor, remark string) (*Result, error) {
	return s.mutate(ctx, opDisable, customerID, actor, func(c *models.Customer, now time.Time) (*lifecycle.Transition, error) {
		return lifecycle.Disable(c, actor, remark, now)
	})
}

// DeleteCustomer 删除客户, 历史记录保留
func (s *CustomerService) DeleteCustomer(ctx context.Context, customerID string, actor *models.Actor) (err error) {
	defer func(start time.Time) { observe(opDelete, start, err) }(time.Now())

	err = s.store.WithTransaction(ctx, func(txCtx context.Context) error {
		customer, err := s.store.FindCustomer(txCtx, customerID)
		if err != nil {
			return err
		}
		if !permission.CanDelete(actor, customer) {
			return utils.CreateForbiddenError()
		}
		return s.store.DeleteCustomer(txCtx, customerID)
	})
	if err != nil {
		return err
	}

	utils.LogInfo(map[string]interface{}{
		"customerId": customerID,
		"operatorId": actor.ID,
	}, "客户已删除")
	return nil
}

// CustomerView 客户详情及当前操作人可执行的操作
type CustomerView struct {
	Customer *models.Customer     `json:"customer"`
	Actions  permission.ActionSet `json:"actions"`
}

// GetCustomer 查询客户详情
func (s *CustomerService) GetCustomer(ctx context.Context, customerID string, actor *models.Actor) (*CustomerView, error) {
	customer, err := s.store.FindCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !permission.CanView(actor, customer) {
		return nil, utils.CreateForbiddenError()
	}
	return &CustomerView{Customer: customer, Actions: permission.Allowed(actor, customer)}, nil
}
