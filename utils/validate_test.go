package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level" validate:"omitempty,oneof=A B"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(sample{Name: "x", Level: "A"}))

	err := ValidateStruct(sample{Level: "C", Count: -1})
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Details, "name")
	assert.Contains(t, apiErr.Details, "level")
	assert.Contains(t, apiErr.Details, "count")
}

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	err := RetryOnConflict(1, func(attempt int) error {
		calls++
		return CreateConcurrencyConflictError()
	})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 2, calls)

	calls = 0
	err = RetryOnConflict(3, func(attempt int) error {
		calls++
		return CreateForbiddenError()
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 1, calls)

	calls = 0
	err = RetryOnConflict(1, func(attempt int) error {
		calls++
		if attempt == 0 {
			return CreateConcurrencyConflictError()
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryOnConflictLogsOnlyBeforeRetry(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()
	var buf bytes.Buffer
	initLogger(&buf, false)

	err := RetryOnConflict(2, func(attempt int) error {
		return CreateConcurrencyConflictError()
	})
	require.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 2, strings.Count(buf.String(), "准备重试"))

	buf.Reset()
	err = RetryOnConflict(0, func(attempt int) error {
		return CreateConcurrencyConflictError()
	})
	require.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.NotContains(t, buf.String(), "准备重试")
}
