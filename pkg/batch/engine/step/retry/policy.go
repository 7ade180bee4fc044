// Package retry decides whether a failed step attempt is run again, and after how long.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// RetryPolicy decides whether a failed attempt is retried.
type RetryPolicy interface {
	// ShouldRetry reports whether err allows another attempt.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the wait before attempt+1.
	GetBackoffInterval(attempt int) time.Duration
	// GetMaxAttempts returns the total number of attempts, including the first.
	GetMaxAttempts() int
}

// DefaultRetryPolicyFactory creates fixed-interval policies.
type DefaultRetryPolicyFactory struct{}

// NewDefaultRetryPolicyFactory creates a new DefaultRetryPolicyFactory.
func NewDefaultRetryPolicyFactory() *DefaultRetryPolicyFactory {
	return &DefaultRetryPolicyFactory{}
}

// Create builds a policy allowing maxAttempts attempts separated by interval.
// An error is retryable when it is a retryable BatchError or matches one of retryableExceptions
// (see exception.IsErrorOfType).
func (f *DefaultRetryPolicyFactory) Create(maxAttempts int, interval time.Duration, retryableExceptions []string) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &defaultRetryPolicy{
		maxAttempts:         maxAttempts,
		interval:            interval,
		retryableExceptions: retryableExceptions,
	}
}

// FromConfig builds a policy from batch.retry.
func (f *DefaultRetryPolicyFactory) FromConfig(cfg config.RetryConfig) RetryPolicy {
	return f.Create(cfg.MaxAttempts, cfg.Interval(), cfg.RetryableExceptions)
}

type defaultRetryPolicy struct {
	maxAttempts         int
	interval            time.Duration
	retryableExceptions []string
}

func (p *defaultRetryPolicy) GetMaxAttempts() int {
	return p.maxAttempts
}

func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	// Cancellation and client errors are never retried, whatever the configured names say.
	if errors.Is(err, context.Canceled) || exception.IsClientError(err) {
		return false
	}

	var be *exception.BatchError
	if errors.As(err, &be) && be.IsRetryable() {
		return true
	}
	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// GetBackoffInterval is fixed: the attempt number is ignored.
func (p *defaultRetryPolicy) GetBackoffInterval(attempt int) time.Duration {
	return p.interval
}

var _ RetryPolicy = (*defaultRetryPolicy)(nil)
