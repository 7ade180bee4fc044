package metrics

import (
	"context"

	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// Tracer abstracts distributed tracing of job and step executions.
type Tracer interface {
	// StartJobSpan returns a context carrying the job span and a func that ends it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan returns a context carrying the step span and a func that ends it.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	RecordError(ctx context.Context, module string, err error)
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
