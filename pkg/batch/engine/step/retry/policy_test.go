package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/engine/step/retry"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

func TestDefaultRetryPolicy_FromConfigDefaults(t *testing.T) {
	policy := retry.NewDefaultRetryPolicyFactory().FromConfig(config.NewConfig().Surfin.Batch.Retry)

	assert.Equal(t, 2, policy.GetMaxAttempts())
	assert.Equal(t, 5*time.Minute, policy.GetBackoffInterval(1))
	assert.Equal(t, 5*time.Minute, policy.GetBackoffInterval(2))
}

func TestDefaultRetryPolicy_ShouldRetry(t *testing.T) {
	policy := retry.NewDefaultRetryPolicyFactory().Create(2, time.Second,
		[]string{exception.NetworkError, exception.DatabaseError})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network 5xx", exception.NewNetworkError("fetcher", "api", &exception.NetworkFailure{StatusCode: 502}), true},
		{"network 4xx despite listed name", exception.NewNetworkError("fetcher", "api", &exception.NetworkFailure{StatusCode: 401}), false},
		{"network transport", exception.NewNetworkError("fetcher", "api", &exception.NetworkFailure{Err: errors.New("refused")}), true},
		{"listed name without flag", exception.NewBatchError("loader", "x", exception.ErrDatabase, false, false), true},
		{"database", exception.NewDatabaseError("loader", "insert", errors.New("conn reset")), true},
		{"wrapped database", fmt.Errorf("step: %w", exception.NewDatabaseError("loader", "insert", nil)), true},
		{"parse", exception.NewParseError("transformer", "json", errors.New("bad")), false},
		{"missing field", exception.NewMissingFieldError("transformer", "main.temp"), false},
		{"not found", exception.NewNotFoundError("loader", "missing file", nil), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldRetry(tt.err))
		})
	}
}

func TestDefaultRetryPolicy_EmptyListUsesFlagOnly(t *testing.T) {
	policy := retry.NewDefaultRetryPolicyFactory().Create(0, 0, nil)

	assert.Equal(t, 1, policy.GetMaxAttempts())
	assert.False(t, policy.ShouldRetry(exception.NewNetworkError("fetcher", "api", &exception.NetworkFailure{StatusCode: 404})))
	assert.True(t, policy.ShouldRetry(exception.NewNetworkError("fetcher", "api", &exception.NetworkFailure{StatusCode: 500})))
}
