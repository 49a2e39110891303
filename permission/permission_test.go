package permission

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BerniceZTT/crm_lifecycle/models"
)

const (
	actorID = "actor-1"
	otherID = "someone-else"
)

// relation 操作人与客户的关系
type relation string

const (
	relOwningSales relation = "owningSales"
	relOwningAgent relation = "owningAgent"
	relUnrelated   relation = "unrelated"
	relPooled      relation = "pooled"
)

func customerFor(rel relation) *models.Customer {
	c := &models.Customer{Progress: models.CustomerProgressNormal}
	switch rel {
	case relOwningSales:
		c.RelatedSalesID = actorID
	case relOwningAgent:
		c.RelatedSalesID = otherID
		c.RelatedAgentID = actorID
	case relUnrelated:
		c.RelatedSalesID = otherID
		c.RelatedAgentID = "agent-x"
	case relPooled:
		c.Progress = models.CustomerProgressPublicPool
	}
	c.SyncDerived()
	return c
}

type expectation struct {
	view, edit, assign, move, del bool
}

func TestPredicateMatrix(t *testing.T) {
	matrix := map[models.UserRole]map[relation]expectation{
		models.UserRoleSUPER_ADMIN: {
			relOwningSales: {true, true, true, true, true},
			relOwningAgent: {true, true, true, true, true},
			relUnrelated:   {true, true, true, true, true},
			relPooled:      {true, true, true, false, true},
		},
		models.UserRoleFACTORY_SALES: {
			relOwningSales: {true, true, true, true, false},
			relOwningAgent: {true, false, false, false, false},
			relUnrelated:   {true, false, false, false, false},
			relPooled:      {true, false, false, false, false},
		},
		models.UserRoleAGENT: {
			relOwningSales: {true, false, false, false, false},
			relOwningAgent: {true, true, false, false, false},
			relUnrelated:   {true, false, false, false, false},
			relPooled:      {true, false, false, false, false},
		},
		models.UserRoleINVENTORY_MANAGER: {
			relOwningSales: {true, false, false, false, false},
			relOwningAgent: {true, false, false, false, false},
			relUnrelated:   {true, false, false, false, false},
			relPooled:      {true, false, false, false, false},
		},
	}

	for role, rows := range matrix {
		for rel, want := range rows {
			t.Run(fmt.Sprintf("%s/%s", role, rel), func(t *testing.T) {
				actor := &models.Actor{ID: actorID, Role: role}
				c := customerFor(rel)

				assert.Equal(t, want.view, CanView(actor, c), "view")
				assert.Equal(t, want.edit, CanEdit(actor, c), "edit")
				assert.Equal(t, want.assign, CanAssign(actor, c), "assign")
				assert.Equal(t, want.move, CanMoveToPublicPool(actor, c), "moveToPublicPool")
				assert.Equal(t, want.del, CanDelete(actor, c), "delete")

				set := Allowed(actor, c)
				assert.Equal(t, want.edit, set.Has(ActionEdit))
				assert.Equal(t, want.move, set.Has(ActionMoveToPublicPool))
			})
		}
	}
}

func TestUnknownRoleDeniesEverything(t *testing.T) {
	actor := &models.Actor{ID: actorID, Role: models.UserRole("GUEST")}
	c := customerFor(relOwningSales)

	for action, ok := range Allowed(actor, c) {
		assert.False(t, ok, action)
	}
	assert.False(t, CanClaim(actor, customerFor(relPooled), actorID))
	assert.False(t, CanDisable(actor, c))
	assert.False(t, CanView(nil, c))
}

func TestCanClaim(t *testing.T) {
	pooled := customerFor(relPooled)
	owned := customerFor(relUnrelated)

	admin := &models.Actor{ID: actorID, Role: models.UserRoleSUPER_ADMIN}
	sales := &models.Actor{ID: actorID, Role: models.UserRoleFACTORY_SALES}
	agent := &models.Actor{ID: actorID, Role: models.UserRoleAGENT}
	inventory := &models.Actor{ID: actorID, Role: models.UserRoleINVENTORY_MANAGER}

	assert.True(t, CanClaim(admin, pooled, otherID))
	assert.False(t, CanClaim(admin, owned, otherID))

	assert.True(t, CanClaim(sales, pooled, actorID))
	assert.False(t, CanClaim(sales, pooled, otherID))
	assert.False(t, CanClaim(sales, owned, actorID))

	assert.False(t, CanClaim(agent, pooled, actorID))
	assert.False(t, CanClaim(inventory, pooled, actorID))
}

func TestCanDisable(t *testing.T) {
	c := customerFor(relOwningSales)

	assert.True(t, CanDisable(&models.Actor{Role: models.UserRoleSUPER_ADMIN}, c))
	assert.True(t, CanDisable(models.SystemActor(), c))
	assert.False(t, CanDisable(&models.Actor{ID: actorID, Role: models.UserRoleFACTORY_SALES}, c))
	assert.False(t, CanDisable(nil, c))
}

func TestCanCreate(t *testing.T) {
	assert.True(t, CanCreate(&models.Actor{Role: models.UserRoleSUPER_ADMIN}))
	assert.True(t, CanCreate(&models.Actor{Role: models.UserRoleFACTORY_SALES}))
	assert.True(t, CanCreate(&models.Actor{Role: models.UserRoleAGENT}))
	assert.False(t, CanCreate(&models.Actor{Role: models.UserRoleINVENTORY_MANAGER}))
	assert.False(t, CanCreate(nil))
}
