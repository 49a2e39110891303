package repository

import (
	"context"

	"github.com/BerniceZTT/crm_lifecycle/models"
)

// 集合名
const (
	UsersCollection            = "users"
	AgentsCollection           = "agents"
	CustomersCollection        = "customers"
	CustAssignCollection       = "customerAssignmentHistory"
	CustomerProgressCollection = "customer_progress"
	SystemConfigsCollection    = "systemConfigs"
)

// CustomerRepository 客户数据访问
type CustomerRepository interface {
	// FindCustomer 不存在时返回 utils.ErrNotFound
	FindCustomer(ctx context.Context, id string) (*models.Customer, error)
	InsertCustomer(ctx context.Context, customer *models.Customer) error
	// UpdateCustomer 仅当存储中的版本等于 expectedVersion 时写入, 成功后 customer.Version 为新版本.
	// 版本不一致返回 utils.ErrConcurrencyConflict
	UpdateCustomer(ctx context.Context, customer *models.Customer, expectedVersion int64) error
	// DeleteCustomer 只删除客户本身, 历史记录保留
	DeleteCustomer(ctx context.Context, id string) error
	ListCustomers(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error)
	CustomerNameExists(ctx context.Context, name string) (bool, error)
}

// HistoryRepository 审计记录, 只追加不修改
type HistoryRepository interface {
	AppendAssignmentHistory(ctx context.Context, history *models.CustomerAssignmentHistory) error
	AppendProgressHistory(ctx context.Context, history *models.CustomerProgressHistory) error
	// ListAssignmentHistory 按 createdAt 升序, 同一时间按写入顺序
	ListAssignmentHistory(ctx context.Context, customerID string) ([]models.CustomerAssignmentHistory, error)
	ListProgressHistory(ctx context.Context, customerID string) ([]models.CustomerProgressHistory, error)
	// FindAssignmentByIdempotencyKey 未找到时返回 nil, nil
	FindAssignmentByIdempotencyKey(ctx context.Context, key string) (*models.CustomerAssignmentHistory, error)
}

// DirectoryRepository 销售和代理商资料
type DirectoryRepository interface {
	// FindSalesUser 查找已审核的原厂销售
	FindSalesUser(ctx context.Context, id string) (*models.User, error)
	// FindAgent 查找已审核的代理商
	FindAgent(ctx context.Context, id string) (*models.Agent, error)
}

// ConfigRepository 系统配置
type ConfigRepository interface {
	// FindSystemConfig 返回启用中的配置, 没有时返回 nil, nil
	FindSystemConfig(ctx context.Context, configType models.ConfigType) (*models.SystemConfig, error)
}

// Store 客户生命周期需要的全部存储能力
type Store interface {
	CustomerRepository
	HistoryRepository
	DirectoryRepository
	ConfigRepository

	// WithTransaction 在一个事务中执行 fn, fn 内的读写必须使用传入的 ctx.
	// fn 返回错误时全部回滚. 已在事务中时直接复用当前事务
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
