package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentOperationType 分配操作类型
type AssignmentOperationType string

const (
	OperationTypeAssign           AssignmentOperationType = "分配"
	OperationTypeClaim            AssignmentOperationType = "认领"
	OperationTypeMoveToPublicPool AssignmentOperationType = "移入公海池"
	OperationTypeCreateAndAssign  AssignmentOperationType = "新建分配"
	OperationTypeCreateAndClaim   AssignmentOperationType = "新建认领"
)

// IsPublicPoolOperation 公海时间线关心的操作
func (t AssignmentOperationType) IsPublicPoolOperation() bool {
	return t == OperationTypeMoveToPublicPool || t == OperationTypeAssign || t == OperationTypeClaim
}

// CustomerAssignmentHistory 客户分配历史记录
type CustomerAssignmentHistory struct {
	ID                   primitive.ObjectID      `json:"_id,omitempty" bson:"_id,omitempty"`
	CustomerID           string                  `json:"customerId" bson:"customerid"`
	CustomerName         string                  `json:"customerName" bson:"customername"`
	FromRelatedSalesID   string                  `json:"fromRelatedSalesId,omitempty" bson:"fromrelatedsalesid,omitempty"`
	FromRelatedSalesName string                  `json:"fromRelatedSalesName,omitempty" bson:"fromrelatedsalesname,omitempty"`
	ToRelatedSalesID     string                  `json:"toRelatedSalesId,omitempty" bson:"torelatedsalesid,omitempty"`
	ToRelatedSalesName   string                  `json:"toRelatedSalesName,omitempty" bson:"torelatedsalesname,omitempty"`
	FromRelatedAgentID   string                  `json:"fromRelatedAgentId,omitempty" bson:"fromrelatedagentid,omitempty"`
	FromRelatedAgentName string                  `json:"fromRelatedAgentName,omitempty" bson:"fromrelatedagentname,omitempty"`
	ToRelatedAgentID     string                  `json:"toRelatedAgentId,omitempty" bson:"torelatedagentid,omitempty"`
	ToRelatedAgentName   string                  `json:"toRelatedAgentName,omitempty" bson:"torelatedagentname,omitempty"`
	OperatorID           string                  `json:"operatorId" bson:"operatorid"`
	OperatorName         string                  `json:"operatorName" bson:"operatorname"`
	OperationType        AssignmentOperationType `json:"operationType" bson:"operationtype"`
	Remark               string                  `json:"remark,omitempty" bson:"remark,omitempty"`
	IdempotencyKey       string                  `json:"-" bson:"idempotencykey,omitempty"`
	CreatedAt            time.Time               `json:"createdAt" bson:"createdat"`
}
