// Package metrics defines the metric and tracing abstractions used by the batch engine.
package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// MetricRecorder records metrics about job and step executions.
// Implementations must be safe for concurrent use.
type MetricRecorder interface {
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordItemWrite records count items (rows, files) written by stepName.
	RecordItemWrite(ctx context.Context, stepName string, count int)

	// RecordStepRetry records that stepName is about to be attempted again. reason is usually the error kind.
	RecordStepRetry(ctx context.Context, stepName string, reason string)

	// RecordDuration records the duration of a named operation, e.g. "weather_api_call".
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
