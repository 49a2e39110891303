package service

import (
	"context"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/repository"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// PublicPoolService 公海客户查询
type PublicPoolService struct {
	store repository.Store
}

// NewPublicPoolService 创建公海查询服务
func NewPublicPoolService(store repository.Store) *PublicPoolService {
	return &PublicPoolService{store: store}
}

// ListPublicPoolCustomers 查询公海客户, 只按名称、性质、重要程度和应用领域筛选
func (s *PublicPoolService) ListPublicPoolCustomers(ctx context.Context, filter models.CustomerFilter, actor *models.Actor) ([]models.PublicPoolCustomer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	inPool := true
	filter.InPublicPool = &inPool
	filter.Progress = ""

	utils.LogInfo(map[string]interface{}{
		"keyword":          filter.Keyword,
		"nature":           filter.Nature,
		"importance":       filter.Importance,
		"applicationField": filter.ApplicationField,
	}, "公海客户查询条件")

	customers, err := s.store.ListCustomers(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := make([]models.PublicPoolCustomer, 0, len(customers))
	for _, customer := range customers {
		result = append(result, models.NewPublicPoolCustomer(customer))
	}
	return result, nil
}
