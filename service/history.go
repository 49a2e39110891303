package service

import (
	"context"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/repository"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

// HistoryService 客户分配与进展历史查询
type HistoryService struct {
	store repository.Store
}

// NewHistoryService 创建历史查询服务
func NewHistoryService(store repository.Store) *HistoryService {
	return &HistoryService{store: store}
}

func requireActor(actor *models.Actor) error {
	if actor == nil || !actor.Role.IsValid() {
		return utils.CreateUnauthorizedError()
	}
	return nil
}

// ensureKnown 没有历史记录时确认客户存在. 已删除客户的历史仍可查询
func (s *HistoryService) ensureKnown(ctx context.Context, customerID string, rows int) error {
	if rows > 0 {
		return nil
	}
	_, err := s.store.FindCustomer(ctx, customerID)
	return err
}

// GetAssignmentHistory 客户分配历史, 按时间升序
func (s *HistoryService) GetAssignmentHistory(ctx context.Context, customerID string, actor *models.Actor) ([]models.CustomerAssignmentHistory, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	rows, err := s.store.ListAssignmentHistory(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureKnown(ctx, customerID, len(rows)); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetProgressHistory 客户进展历史, 按时间升序
func (s *HistoryService) GetProgressHistory(ctx context.Context, customerID string, actor *models.Actor) ([]models.CustomerProgressHistory, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	rows, err := s.store.ListProgressHistory(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureKnown(ctx, customerID, len(rows)); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetPublicPoolHistory 公海时间线: 移入公海、分配、认领
func (s *HistoryService) GetPublicPoolHistory(ctx context.Context, customerID string, actor *models.Actor) ([]models.CustomerAssignmentHistory, error) {
	rows, err := s.GetAssignmentHistory(ctx, customerID, actor)
	if err != nil {
		return nil, err
	}

	result := make([]models.CustomerAssignmentHistory, 0, len(rows))
	for _, row := range rows {
		if row.OperationType.IsPublicPoolOperation() {
			result = append(result, row)
		}
	}
	return result, nil
}

// LatestClaim 最近一次认领记录, 没有时返回 nil
func (s *HistoryService) LatestClaim(ctx context.Context, customerID string, actor *models.Actor) (*models.CustomerAssignmentHistory, error) {
	rows, err := s.GetPublicPoolHistory(ctx, customerID, actor)
	if err != nil {
		return nil, err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].OperationType == models.OperationTypeClaim {
			claim := rows[i]
			return &claim, nil
		}
	}
	return nil, nil
}
