package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

var (
	admin  = &models.Actor{ID: "admin", Username: "管理员", Role: models.UserRoleSUPER_ADMIN}
	salesA = &models.Actor{ID: "sales-a", Username: "销售A", Role: models.UserRoleFACTORY_SALES}
	salesB = &models.Actor{ID: "sales-b", Username: "销售B", Role: models.UserRoleFACTORY_SALES}
	agentA = &models.Actor{ID: "agent-a", Username: "代理商A", Role: models.UserRoleAGENT, RelatedSalesID: "sales-a"}
)

func ownedCustomer() *models.Customer {
	c := &models.Customer{
		ID:               primitive.NewObjectID(),
		Name:             "客户一",
		Progress:         models.CustomerProgressNormal,
		RelatedSalesID:   "sales-a",
		RelatedSalesName: "销售A",
		RelatedAgentID:   "agent-a",
		RelatedAgentName: "代理商A",
		OwnerID:          "sales-a",
		OwnerType:        models.UserRoleFACTORY_SALES,
		Version:          3,
	}
	c.SyncDerived()
	return c
}

func pooledCustomer() *models.Customer {
	c := &models.Customer{
		ID:       primitive.NewObjectID(),
		Name:     "公海客户",
		Progress: models.CustomerProgressInitialContact,
		Version:  1,
	}
	c.SyncDerived()
	return c
}

func toSalesB() Target {
	return Target{Sales: Party{ID: "sales-b", Name: "销售B"}}
}

func assertInvariants(t *testing.T, c *models.Customer) {
	t.Helper()
	require.NoError(t, c.Validate())
}

func TestOperationTypeFor(t *testing.T) {
	assert.Equal(t, models.OperationTypeClaim, OperationTypeFor("", false, false))
	assert.Equal(t, models.OperationTypeAssign, OperationTypeFor("sales-a", false, false))
	assert.Equal(t, models.OperationTypeCreateAndClaim, OperationTypeFor("", true, true))
	assert.Equal(t, models.OperationTypeCreateAndAssign, OperationTypeFor("", true, false))
	// 创建时只看负责人是否为创建人
	assert.Equal(t, models.OperationTypeCreateAndClaim, OperationTypeFor("sales-a", true, true))
	assert.Equal(t, models.OperationTypeCreateAndAssign, OperationTypeFor("sales-a", true, false))
}

func TestDefaultOwnership(t *testing.T) {
	sales, agent, err := DefaultOwnership(salesA, "sales-b", "")
	require.NoError(t, err)
	assert.Equal(t, "sales-a", sales)
	assert.Empty(t, agent)

	sales, agent, err = DefaultOwnership(agentA, "", "")
	require.NoError(t, err)
	assert.Equal(t, "sales-a", sales)
	assert.Equal(t, "agent-a", agent)

	sales, agent, err = DefaultOwnership(admin, "", "")
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Empty(t, agent)

	_, _, err = DefaultOwnership(admin, "", "agent-a")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, _, err = DefaultOwnership(&models.Actor{ID: "lonely", Role: models.UserRoleAGENT}, "", "")
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestCreate(t *testing.T) {
	req := models.CustomerCreateRequest{
		Name:       "新客户",
		Nature:     models.CustomerNatureEndUser,
		Importance: models.CustomerImportanceA,
	}

	t.Run("sales owns what it creates", func(t *testing.T) {
		tr, err := Create(req, Target{Sales: Party{ID: "sales-a", Name: "销售A"}}, salesA, "", now)
		require.NoError(t, err)
		assertInvariants(t, tr.Customer)
		assert.Equal(t, models.CustomerProgressInitialContact, tr.Customer.Progress)
		assert.Equal(t, now, tr.Customer.InitialContactTime)
		assert.Equal(t, int64(1), tr.Customer.Version)
		assert.Equal(t, "sales-a", tr.Customer.OwnerID)
		require.NotNil(t, tr.Assignment)
		assert.Equal(t, models.OperationTypeCreateAndClaim, tr.Assignment.OperationType)
		require.NotNil(t, tr.Progress)
		assert.Empty(t, tr.Progress.FromProgress)
		assert.Equal(t, models.CustomerProgressInitialContact, tr.Progress.ToProgress)
	})

	t.Run("agent creation is a claim", func(t *testing.T) {
		target := Target{
			Sales:        Party{ID: "sales-a", Name: "销售A"},
			Agent:        Party{ID: "agent-a", Name: "代理商A"},
			AgentSalesID: "sales-a",
		}
		tr, err := Create(req, target, agentA, "", now)
		require.NoError(t, err)
		assertInvariants(t, tr.Customer)
		assert.Equal(t, models.OperationTypeCreateAndClaim, tr.Assignment.OperationType)
		assert.Equal(t, "agent-a", tr.Customer.RelatedAgentID)
	})

	t.Run("admin assigns on creation", func(t *testing.T) {
		tr, err := Create(req, toSalesB(), admin, "", now)
		require.NoError(t, err)
		assertInvariants(t, tr.Customer)
		assert.Equal(t, models.OperationTypeCreateAndAssign, tr.Assignment.OperationType)
		assert.Equal(t, "sales-b", tr.Assignment.ToRelatedSalesID)
	})

	t.Run("pooled creation writes no assignment", func(t *testing.T) {
		tr, err := Create(req, Target{}, admin, "", now)
		require.NoError(t, err)
		assertInvariants(t, tr.Customer)
		assert.True(t, tr.Customer.IsInPublicPool)
		assert.Nil(t, tr.Assignment)
		assert.NotNil(t, tr.Progress)
	})

	t.Run("reserved progress rejected", func(t *testing.T) {
		for _, p := range []models.CustomerProgress{models.CustomerProgressPublicPool, models.CustomerProgressDisabled, "未知"} {
			r := req
			r.Progress = p
			_, err := Create(r, Target{}, admin, "", now)
			assert.ErrorIs(t, err, utils.ErrInvalidProgressValue)
		}
	})

	t.Run("agent linkage checked", func(t *testing.T) {
		target := Target{
			Sales:        Party{ID: "sales-b"},
			Agent:        Party{ID: "agent-a"},
			AgentSalesID: "sales-a",
		}
		_, err := Create(req, target, admin, "", now)
		assert.ErrorIs(t, err, utils.ErrInvalidLinkage)
	})

	t.Run("inventory manager cannot create", func(t *testing.T) {
		_, err := Create(req, Target{}, &models.Actor{ID: "inv", Role: models.UserRoleINVENTORY_MANAGER}, "", now)
		assert.ErrorIs(t, err, utils.ErrForbidden)
	})
}

func TestAssignClaimFromPool(t *testing.T) {
	c := pooledCustomer()
	before := c.Clone()

	tr, err := Assign(c, Target{Sales: Party{ID: "sales-a", Name: "销售A"}}, salesA, "认领", now)
	require.NoError(t, err)

	assert.Equal(t, before, c, "input must not be mutated")
	assertInvariants(t, tr.Customer)
	assert.Equal(t, "sales-a", tr.Customer.RelatedSalesID)
	assert.False(t, tr.Customer.IsInPublicPool)
	assert.Equal(t, models.CustomerProgressNormal, tr.Customer.Progress)

	require.NotNil(t, tr.Assignment)
	assert.Equal(t, models.OperationTypeClaim, tr.Assignment.OperationType)
	assert.Empty(t, tr.Assignment.FromRelatedSalesID)
	assert.Equal(t, "sales-a", tr.Assignment.ToRelatedSalesID)
	require.NotNil(t, tr.Progress)
	assert.Equal(t, models.CustomerProgressInitialContact, tr.Progress.FromProgress)
}

func TestAssignBetweenOwners(t *testing.T) {
	c := ownedCustomer()

	tr, err := Assign(c, toSalesB(), salesA, "", now)
	require.NoError(t, err)
	assertInvariants(t, tr.Customer)
	assert.Equal(t, models.OperationTypeAssign, tr.Assignment.OperationType)
	assert.Equal(t, "sales-a", tr.Assignment.FromRelatedSalesID)
	assert.Equal(t, "agent-a", tr.Assignment.FromRelatedAgentID)
	assert.Empty(t, tr.Customer.RelatedAgentID, "clearing the agent needs no linkage check")
	assert.Nil(t, tr.Progress, "normal progress is left untouched")
}

func TestAssignRejections(t *testing.T) {
	t.Run("invalid linkage", func(t *testing.T) {
		target := toSalesB()
		target.Agent = Party{ID: "agent-a"}
		target.AgentSalesID = "sales-a"

		_, err := Assign(ownedCustomer(), target, admin, "", now)
		require.ErrorIs(t, err, utils.ErrInvalidLinkage)

		var apiErr *utils.ApiError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "agent-a", apiErr.Details["agentId"])
		assert.Equal(t, "sales-a", apiErr.Details["agentSalesId"])
		assert.Equal(t, "sales-b", apiErr.Details["targetSalesId"])
	})

	t.Run("agent swap must stay with same sales", func(t *testing.T) {
		target := Target{
			Sales:        Party{ID: "sales-a"},
			Agent:        Party{ID: "agent-z"},
			AgentSalesID: "sales-z",
		}
		_, err := Assign(ownedCustomer(), target, salesA, "", now)
		assert.ErrorIs(t, err, utils.ErrInvalidLinkage)
	})

	t.Run("non owner forbidden", func(t *testing.T) {
		_, err := Assign(ownedCustomer(), toSalesB(), salesB, "", now)
		assert.ErrorIs(t, err, utils.ErrForbidden)
	})

	t.Run("agent cannot assign or claim", func(t *testing.T) {
		_, err := Assign(ownedCustomer(), toSalesB(), agentA, "", now)
		assert.ErrorIs(t, err, utils.ErrForbidden)
		_, err = Assign(pooledCustomer(), Target{Sales: Party{ID: "sales-a"}}, agentA, "", now)
		assert.ErrorIs(t, err, utils.ErrForbidden)
	})

	t.Run("sales claims only for itself", func(t *testing.T) {
		_, err := Assign(pooledCustomer(), toSalesB(), salesA, "", now)
		assert.ErrorIs(t, err, utils.ErrForbidden)
	})

	t.Run("no-op rejected", func(t *testing.T) {
		c := ownedCustomer()
		target := Target{
			Sales:        Party{ID: c.RelatedSalesID},
			Agent:        Party{ID: c.RelatedAgentID},
			AgentSalesID: c.RelatedSalesID,
		}
		_, err := Assign(c, target, admin, "", now)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("disabled blocks previous owner", func(t *testing.T) {
		c := ownedCustomer()
		c.Progress = models.CustomerProgressDisabled
		_, err := Assign(c, toSalesB(), salesA, "", now)
		assert.ErrorIs(t, err, utils.ErrForbidden)

		tr, err := Assign(c, toSalesB(), models.SystemActor(), "", now)
		require.NoError(t, err)
		assert.Equal(t, models.CustomerProgressNormal, tr.Customer.Progress)
		require.NotNil(t, tr.Progress)
		assert.Equal(t, models.CustomerProgressDisabled, tr.Progress.FromProgress)
	})

	t.Run("empty target", func(t *testing.T) {
		_, err := Assign(ownedCustomer(), Target{}, admin, "", now)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})
}

func TestMoveToPublicPool(t *testing.T) {
	c := ownedCustomer()

	tr, err := MoveToPublicPool(c, admin, "长期无进展", now)
	require.NoError(t, err)
	after := tr.Customer
	assertInvariants(t, after)

	assert.True(t, after.IsInPublicPool)
	assert.Empty(t, after.RelatedSalesID)
	assert.Empty(t, after.RelatedAgentID)
	assert.Equal(t, models.CustomerProgressPublicPool, after.Progress)
	assert.Equal(t, "销售A", after.PreviousOwnerName)
	assert.Equal(t, "sales-a", after.PreviousOwnerID)
	assert.Equal(t, models.UserRoleFACTORY_SALES, after.PreviousOwnerType)
	assert.Equal(t, "代理商A", after.PreviousAgentName)
	assert.Equal(t, now, after.EnterPublicPoolTime)

	require.NotNil(t, tr.Assignment)
	assert.Equal(t, models.OperationTypeMoveToPublicPool, tr.Assignment.OperationType)
	assert.Equal(t, "sales-a", tr.Assignment.FromRelatedSalesID)
	require.NotNil(t, tr.Progress)
	assert.Equal(t, models.CustomerProgressNormal, tr.Progress.FromProgress)

	_, err = MoveToPublicPool(after, admin, "", now)
	assert.ErrorIs(t, err, utils.ErrAlreadyPooled)

	_, err = MoveToPublicPool(ownedCustomer(), salesB, "", now)
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestChangeProgress(t *testing.T) {
	t.Run("owner changes progress", func(t *testing.T) {
		tr, err := ChangeProgress(ownedCustomer(), models.CustomerProgressInitialContact, salesA, "回访", now)
		require.NoError(t, err)
		assert.Equal(t, models.CustomerProgressInitialContact, tr.Customer.Progress)
		assert.Equal(t, now, tr.Customer.InitialContactTime)
		assert.Nil(t, tr.Assignment)
		assert.Equal(t, "回访", tr.Progress.Remark)
	})

	t.Run("public pool can never be set directly", func(t *testing.T) {
		for _, actor := range []*models.Actor{admin, salesA, salesB, agentA, {ID: "inv", Role: models.UserRoleINVENTORY_MANAGER}} {
			_, err := ChangeProgress(ownedCustomer(), models.CustomerProgressPublicPool, actor, "", now)
			assert.ErrorIs(t, err, utils.ErrInvalidProgressValue, actor.Role)
		}
	})

	t.Run("same value rejected", func(t *testing.T) {
		_, err := ChangeProgress(ownedCustomer(), models.CustomerProgressNormal, salesA, "", now)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("disabled only by admin", func(t *testing.T) {
		c := ownedCustomer()
		c.Progress = models.CustomerProgressDisabled
		_, err := ChangeProgress(c, models.CustomerProgressNormal, salesA, "", now)
		assert.ErrorIs(t, err, utils.ErrForbidden)

		tr, err := ChangeProgress(c, models.CustomerProgressNormal, admin, "", now)
		require.NoError(t, err)
		assert.Equal(t, models.CustomerProgressDisabled, tr.Progress.FromProgress)
	})

	t.Run("unrelated agent forbidden", func(t *testing.T) {
		c := ownedCustomer()
		c.RelatedAgentID = "agent-other"
		_, err := ChangeProgress(c, models.CustomerProgressInitialContact, agentA, "", now)
		assert.ErrorIs(t, err, utils.ErrForbidden)
	})
}

func TestDisable(t *testing.T) {
	c := ownedCustomer()

	_, err := Disable(c, salesA, "", now)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	tr, err := Disable(c, models.SystemActor(), "自动转移", now)
	require.NoError(t, err)
	assertInvariants(t, tr.Customer)
	assert.Equal(t, models.CustomerProgressDisabled, tr.Customer.Progress)
	assert.Equal(t, models.SystemActorID, tr.Progress.OperatorID)

	_, err = Disable(tr.Customer, admin, "", now)
	assert.ErrorIs(t, err, utils.ErrValidation)
}
