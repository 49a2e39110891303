package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// MemoryStore 内存存储, 用于测试和本地开发.
// 事务采用乐观方式: 写入先缓存在事务中, 提交时检查版本
type MemoryStore struct {
	mu          sync.Mutex
	customers   map[string]*models.Customer
	assignments []models.CustomerAssignmentHistory
	progress    []models.CustomerProgressHistory
	users       map[string]models.User
	agents      map[string]models.Agent
	configs     []models.SystemConfig
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[string]*models.Customer),
		users:     make(map[string]models.User),
		agents:    make(map[string]models.Agent),
	}
}

type memTxKey struct{}

// memTx 未提交的写入
type memTx struct {
	customers   map[string]*models.Customer
	deleted     map[string]bool
	inserted    map[string]bool
	expected    map[string]int64
	assignments []models.CustomerAssignmentHistory
	progress    []models.CustomerProgressHistory
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

// WithTransaction 执行事务
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &memTx{
		customers: make(map[string]*models.Customer),
		deleted:   make(map[string]bool),
		inserted:  make(map[string]bool),
		expected:  make(map[string]int64),
	}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *MemoryStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.inserted {
		if _, exists := s.customers[id]; exists {
			return utils.CreateConcurrencyConflictError()
		}
		if c, ok := tx.customers[id]; ok && s.nameTakenLocked(c.Name) {
			return utils.CreateValidationError("客户名称已存在")
		}
	}
	for id, version := range tx.expected {
		current, ok := s.customers[id]
		if !ok || current.Version != version {
			return utils.CreateConcurrencyConflictError()
		}
	}
	for _, h := range tx.assignments {
		if h.IdempotencyKey != "" && s.findByKeyLocked(h.IdempotencyKey) != nil {
			return utils.CreateConcurrencyConflictError()
		}
	}

	for id, c := range tx.customers {
		s.customers[id] = c
	}
	for id := range tx.deleted {
		delete(s.customers, id)
	}
	s.assignments = append(s.assignments, tx.assignments...)
	s.progress = append(s.progress, tx.progress...)
	return nil
}

// FindCustomer 查找客户
func (s *MemoryStore) FindCustomer(ctx context.Context, id string) (*models.Customer, error) {
	if tx := txFrom(ctx); tx != nil {
		if tx.deleted[id] {
			return nil, utils.CreateNotFoundError("客户")
		}
		if c, ok := tx.customers[id]; ok {
			return c.Clone(), nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, utils.CreateNotFoundError("客户")
	}
	return c.Clone(), nil
}

// InsertCustomer 新增客户
func (s *MemoryStore) InsertCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	customer.SyncDerived()
	if err := customer.Validate(); err != nil {
		return utils.CreateValidationError(err.Error())
	}
	id := customer.ID.Hex()

	if tx := txFrom(ctx); tx != nil {
		tx.customers[id] = customer.Clone()
		tx.inserted[id] = true
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.customers[id]; exists {
		return utils.CreateConcurrencyConflictError()
	}
	if s.nameTakenLocked(customer.Name) {
		return utils.CreateValidationError("客户名称已存在")
	}
	s.customers[id] = customer.Clone()
	return nil
}

// UpdateCustomer 按版本更新客户
func (s *MemoryStore) UpdateCustomer(ctx context.Context, customer *models.Customer, expectedVersion int64) error {
	customer.SyncDerived()
	if err := customer.Validate(); err != nil {
		return utils.CreateValidationError(err.Error())
	}
	id := customer.ID.Hex()

	current, err := s.FindCustomer(ctx, id)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return utils.CreateConcurrencyConflictError()
	}
	customer.Version = expectedVersion + 1

	if tx := txFrom(ctx); tx != nil {
		if _, seen := tx.expected[id]; !seen && !tx.inserted[id] {
			tx.expected[id] = expectedVersion
		}
		tx.customers[id] = customer.Clone()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.customers[id]
	if !ok {
		return utils.CreateNotFoundError("客户")
	}
	if stored.Version != expectedVersion {
		return utils.CreateConcurrencyConflictError()
	}
	s.customers[id] = customer.Clone()
	return nil
}

// DeleteCustomer 删除客户, 不影响历史记录
func (s *MemoryStore) DeleteCustomer(ctx context.Context, id string) error {
	current, err := s.FindCustomer(ctx, id)
	if err != nil {
		return err
	}

	if tx := txFrom(ctx); tx != nil {
		if _, seen := tx.expected[id]; !seen && !tx.inserted[id] {
			tx.expected[id] = current.Version
		}
		delete(tx.customers, id)
		tx.deleted[id] = true
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, id)
	return nil
}

func matchesFilter(c *models.Customer, filter models.CustomerFilter) bool {
	if filter.Keyword != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Keyword)) {
		return false
	}
	if filter.ApplicationField != "" && !strings.Contains(strings.ToLower(c.ApplicationField), strings.ToLower(filter.ApplicationField)) {
		return false
	}
	if filter.Nature != "" && c.Nature != filter.Nature {
		return false
	}
	if filter.Importance != "" && c.Importance != filter.Importance {
		return false
	}
	if filter.Progress != "" && c.Progress != filter.Progress {
		return false
	}
	if filter.InPublicPool != nil && c.IsInPublicPool != *filter.InPublicPool {
		return false
	}
	return true
}

// ListCustomers 按条件查询客户, 按创建时间倒序
func (s *MemoryStore) ListCustomers(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Customer, 0)
	for _, c := range s.customers {
		if matchesFilter(c, filter) {
			result = append(result, *c.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.Hex() > result[j].ID.Hex()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// CustomerNameExists 客户名称是否已存在
func (s *MemoryStore) CustomerNameExists(ctx context.Context, name string) (bool, error) {
	if tx := txFrom(ctx); tx != nil {
		for _, c := range tx.customers {
			if c.Name == name {
				return true, nil
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nameTakenLocked(name), nil
}

func (s *MemoryStore) nameTakenLocked(name string) bool {
	for _, c := range s.customers {
		if c.Name == name {
			return true
		}
	}
	return false
}

// AppendAssignmentHistory 追加分配记录
func (s *MemoryStore) AppendAssignmentHistory(ctx context.Context, history *models.CustomerAssignmentHistory) error {
	if history.ID.IsZero() {
		history.ID = primitive.NewObjectID()
	}

	if tx := txFrom(ctx); tx != nil {
		tx.assignments = append(tx.assignments, *history)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if history.IdempotencyKey != "" && s.findByKeyLocked(history.IdempotencyKey) != nil {
		return utils.CreateConcurrencyConflictError()
	}
	s.assignments = append(s.assignments, *history)
	return nil
}

// AppendProgressHistory 追加进展记录
func (s *MemoryStore) AppendProgressHistory(ctx context.Context, history *models.CustomerProgressHistory) error {
	if history.ID.IsZero() {
		history.ID = primitive.NewObjectID()
	}

	if tx := txFrom(ctx); tx != nil {
		tx.progress = append(tx.progress, *history)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, *history)
	return nil
}

// ListAssignmentHistory 查询客户的分配记录
func (s *MemoryStore) ListAssignmentHistory(ctx context.Context, customerID string) ([]models.CustomerAssignmentHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.CustomerAssignmentHistory, 0)
	for _, h := range s.assignments {
		if h.CustomerID == customerID {
			result = append(result, h)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListProgressHistory 查询客户的进展记录
func (s *MemoryStore) ListProgressHistory(ctx context.Context, customerID string) ([]models.CustomerProgressHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.CustomerProgressHistory, 0)
	for _, h := range s.progress {
		if h.CustomerID == customerID {
			result = append(result, h)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) findByKeyLocked(key string) *models.CustomerAssignmentHistory {
	for i := range s.assignments {
		if s.assignments[i].IdempotencyKey == key {
			h := s.assignments[i]
			return &h
		}
	}
	return nil
}

// FindAssignmentByIdempotencyKey 按幂等键查找分配记录
func (s *MemoryStore) FindAssignmentByIdempotencyKey(ctx context.Context, key string) (*models.CustomerAssignmentHistory, error) {
	if key == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByKeyLocked(key), nil
}

// PutUser 写入用户资料
func (s *MemoryStore) PutUser(user models.User) models.User {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID.Hex()] = user
	return user
}

// PutAgent 写入代理商资料
func (s *MemoryStore) PutAgent(agent models.Agent) models.Agent {
	if agent.ID.IsZero() {
		agent.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.ID.Hex()] = agent
	return agent
}

// PutSystemConfig 写入系统配置, 同类型的旧配置被替换
func (s *MemoryStore) PutSystemConfig(cfg models.SystemConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.configs {
		if s.configs[i].ConfigType == cfg.ConfigType {
			s.configs[i] = cfg
			return
		}
	}
	s.configs = append(s.configs, cfg)
}

// FindSalesUser 查找已审核的原厂销售
func (s *MemoryStore) FindSalesUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.Role != models.UserRoleFACTORY_SALES || u.Status != models.UserStatusAPPROVED {
		return nil, utils.CreateNotFoundError("销售")
	}
	return &u, nil
}

// FindAgent 查找已审核的代理商
func (s *MemoryStore) FindAgent(ctx context.Context, id string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok || a.Status != models.UserStatusAPPROVED {
		return nil, utils.CreateNotFoundError("代理商")
	}
	return &a, nil
}

// FindSystemConfig 查找启用中的系统配置
func (s *MemoryStore) FindSystemConfig(ctx context.Context, configType models.ConfigType) (*models.SystemConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cfg := range s.configs {
		if cfg.ConfigType == configType && cfg.IsEnabled {
			c := cfg
			return &c, nil
		}
	}
	return nil, nil
}
