package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/crm_lifecycle/metrics"
	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/repository"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// DefaultAutoTransferCron 每天凌晨两点执行, 带秒字段
const DefaultAutoTransferCron = "0 0 2 * * *"

// Scheduler 定时任务调度
type Scheduler struct {
	cron *cron.Cron
	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// NewScheduler 创建调度器, 上一次未执行完时跳过本次
func NewScheduler() *Scheduler {
	logger := cron.PrintfLogger(&utils.Logger)
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(logger),
			cron.Recover(logger),
		)),
		jobs: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器
func (s *Scheduler) Start() {
	utils.Logger.Info().Msg("启动定时任务调度器")
	s.cron.Start()
}

// Stop 停止调度器, 返回的 context 在运行中的任务结束后关闭
func (s *Scheduler) Stop() context.Context {
	utils.Logger.Info().Msg("停止定时任务调度器")
	return s.cron.Stop()
}

// AddJob 按 cron 表达式注册任务, 名称不能重复
func (s *Scheduler) AddJob(name, cronExpr string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("任务 %s 已存在", name)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		utils.Logger.Info().Str("job", name).Msg("开始执行定时任务")
		job()
		utils.Logger.Info().Str("job", name).Msg("定时任务执行完成")
	})
	if err != nil {
		return fmt.Errorf("注册任务 %s 失败: %w", name, err)
	}

	s.jobs[name] = entryID
	utils.Logger.Info().Str("job", name).Str("cron", cronExpr).Msg("已注册定时任务")
	return nil
}

// JobNames 已注册的任务
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// AutoTransferReport 一次自动转移的统计
type AutoTransferReport struct {
	Checked     int
	Transferred int
	Skipped     int
	Failed      int
}

// AutoTransferJob 初步接触阶段超过配置天数没有进展的客户, 转给配置中的目标销售
type AutoTransferJob struct {
	store     repository.Store
	customers *CustomerService
	now       func() time.Time
}

// NewAutoTransferJob 创建自动转移任务
func NewAutoTransferJob(store repository.Store, customers *CustomerService) *AutoTransferJob {
	return &AutoTransferJob{store: store, customers: customers, now: time.Now}
}

// Run 执行一次自动转移. 单个客户失败只记录日志, 不中断整体任务
func (j *AutoTransferJob) Run(ctx context.Context) (*AutoTransferReport, error) {
	now := j.now()
	utils.Logger.Info().Time("time", now).Msg("开始执行每日初始联系客户检查任务")

	cfg, err := j.store.FindSystemConfig(ctx, models.ConfigTypeCustomerAutoTransfer)
	if err != nil {
		return nil, fmt.Errorf("查询系统配置失败: %w", err)
	}
	if cfg == nil {
		utils.Logger.Info().Msg("未找到有效的自动转移配置")
		return &AutoTransferReport{}, nil
	}

	rule, err := GetAutoTransferConfig(*cfg)
	if err != nil {
		return nil, fmt.Errorf("解析自动转移配置失败: %w", err)
	}
	utils.LogInfo(map[string]interface{}{
		"targetSalesId":       rule.TargetSalesID,
		"targetSalesName":     rule.TargetSalesName,
		"daysWithoutProgress": rule.DaysWithoutProgress,
	}, "自动转移配置")

	customers, err := j.store.ListCustomers(ctx, models.CustomerFilter{Progress: models.CustomerProgressInitialContact})
	if err != nil {
		return nil, fmt.Errorf("查询客户失败: %w", err)
	}

	report := &AutoTransferReport{Checked: len(customers)}
	for _, customer := range customers {
		// 参考时间: InitialContactTime 或 CreatedAt
		referenceTime := customer.InitialContactTime
		if referenceTime.IsZero() {
			referenceTime = customer.CreatedAt
		}
		days := int(now.Sub(referenceTime).Hours() / 24)
		if days < rule.DaysWithoutProgress {
			continue
		}
		if customer.RelatedAgentID == "" && customer.RelatedSalesID == rule.TargetSalesID {
			report.Skipped++
			metrics.AutoTransferTotal.WithLabelValues("skipped").Inc()
			continue
		}

		current := customer.RelatedSalesID
		_, err := j.customers.AssignCustomer(ctx, AssignInput{
			CustomerID:      customer.ID.Hex(),
			TargetSalesID:   rule.TargetSalesID,
			ExpectedSalesID: &current,
			Remark:          fmt.Sprintf("超过%d天无进展，系统自动转移", rule.DaysWithoutProgress),
		}, models.SystemActor())
		if err != nil {
			report.Failed++
			metrics.AutoTransferTotal.WithLabelValues("failed").Inc()
			utils.LogError(err, map[string]interface{}{
				"customerId":   customer.ID.Hex(),
				"customerName": customer.Name,
				"targetSales":  rule.TargetSalesID,
			}, "客户转移失败")
			continue
		}
		report.Transferred++
		metrics.AutoTransferTotal.WithLabelValues("transferred").Inc()
	}

	utils.LogInfo(map[string]interface{}{
		"checked":     report.Checked,
		"transferred": report.Transferred,
		"skipped":     report.Skipped,
		"failed":      report.Failed,
	}, "每日初始联系客户检查任务完成")
	return report, nil
}

// GetAutoTransferConfig 解析自动转移配置. ConfigValue 从 MongoDB 读出时可能是 bson.D 或 bson.M
func GetAutoTransferConfig(config models.SystemConfig) (*models.AutoTransferConfig, error) {
	switch v := config.ConfigValue.(type) {
	case models.AutoTransferConfig:
		return validateConfig(&v)
	case *models.AutoTransferConfig:
		if v == nil {
			return nil, fmt.Errorf("自动转移配置为空")
		}
		cp := *v
		return validateConfig(&cp)
	case primitive.D:
		return parseFromMap(v.Map())
	case primitive.M:
		return parseFromMap(v)
	case map[string]interface{}:
		return parseFromMap(v)
	}

	// 通过 BSON 序列化/反序列化兜底
	data, err := bson.Marshal(config.ConfigValue)
	if err != nil {
		return nil, fmt.Errorf("无法解析 ConfigValue，实际类型: %T", config.ConfigValue)
	}
	var resultMap map[string]interface{}
	if err := bson.Unmarshal(data, &resultMap); err != nil {
		return nil, fmt.Errorf("BSON 反序列化失败: %w", err)
	}
	return parseFromMap(resultMap)
}

// 从 map 解析
func parseFromMap(m map[string]interface{}) (*models.AutoTransferConfig, error) {
	result := &models.AutoTransferConfig{}

	if val, ok := m["targetSalesId"].(string); ok {
		result.TargetSalesID = val
	}
	if val, ok := m["targetSalesName"].(string); ok {
		result.TargetSalesName = val
	}
	switch v := m["daysWithoutProgress"].(type) {
	case int:
		result.DaysWithoutProgress = v
	case int32:
		result.DaysWithoutProgress = int(v)
	case int64:
		result.DaysWithoutProgress = int(v)
	case float64:
		result.DaysWithoutProgress = int(v)
	case nil:
	default:
		return nil, fmt.Errorf("无效的 daysWithoutProgress 类型: %T", v)
	}

	return validateConfig(result)
}

// 验证配置是否完整
func validateConfig(config *models.AutoTransferConfig) (*models.AutoTransferConfig, error) {
	if config.TargetSalesID == "" {
		return nil, fmt.Errorf("缺少 targetSalesId")
	}
	if config.DaysWithoutProgress <= 0 {
		return nil, fmt.Errorf("daysWithoutProgress 必须大于0")
	}
	return config, nil
}
