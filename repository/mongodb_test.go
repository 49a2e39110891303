package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/utils"
)

func TestBuildCustomerFilter(t *testing.T) {
	inPool := true
	query := buildCustomerFilter(models.CustomerFilter{
		Keyword:      "a.b",
		Nature:       models.CustomerNatureTrader,
		Importance:   models.CustomerImportanceB,
		InPublicPool: &inPool,
	})

	assert.Equal(t, bson.M{"$regex": `a\.b`, "$options": "i"}, query["name"])
	assert.Equal(t, models.CustomerNatureTrader, query["nature"])
	assert.Equal(t, models.CustomerImportanceB, query["importance"])
	assert.Equal(t, true, query["isinpublicpool"])
	assert.NotContains(t, query, "progress")

	assert.Empty(t, buildCustomerFilter(models.CustomerFilter{}))
}

func TestMapWriteError(t *testing.T) {
	writeConflict := mongo.CommandError{Code: 112, Message: "WriteConflict"}
	assert.ErrorIs(t, mapWriteError(writeConflict), utils.ErrConcurrencyConflict)

	transient := mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}
	assert.ErrorIs(t, mapWriteError(transient), utils.ErrConcurrencyConflict)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, mapWriteError(dup), utils.ErrConcurrencyConflict)

	notFound := fmt.Errorf("wrapped: %w", utils.CreateNotFoundError("客户"))
	assert.ErrorIs(t, mapWriteError(notFound), utils.ErrNotFound)

	other := errors.New("disk full")
	assert.Equal(t, other, mapWriteError(other))
}

func TestMapInsertCustomerError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error index: name_1"}}}
	err := mapInsertCustomerError(dup)
	assert.ErrorIs(t, err, utils.ErrValidation)
	assert.NotErrorIs(t, err, utils.ErrConcurrencyConflict)

	writeConflict := mongo.CommandError{Code: 112, Message: "WriteConflict"}
	assert.ErrorIs(t, mapInsertCustomerError(writeConflict), utils.ErrConcurrencyConflict)

	other := errors.New("disk full")
	assert.ErrorIs(t, mapInsertCustomerError(other), other)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(mongo.CommandError{Code: 189}))
	assert.False(t, isRetryableError(mongo.CommandError{Code: 112}))
	assert.True(t, isRetryableError(errors.New("server selection error: no reachable servers")))
	assert.False(t, isRetryableError(errors.New("document failed validation")))
}
