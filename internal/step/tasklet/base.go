// Package tasklet adapts the pipeline stages to batch tasklets. Each tasklet reads the previous
// stage's artifact from the step ExecutionContext and publishes its own.
package tasklet

import (
	"context"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

// Job parameters that override step properties for a single run.
const (
	ParamCity  = "city"
	ParamTable = "table"
)

// contextHolder implements the ExecutionContext half of port.Tasklet.
type contextHolder struct {
	executionContext model.ExecutionContext
}

func (h *contextHolder) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	h.executionContext = ec
	return nil
}

func (h *contextHolder) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return h.executionContext, nil
}

func (h *contextHolder) Close(ctx context.Context) error {
	return nil
}

// jobParameter returns the string job parameter key of stepExecution's job, if set.
func jobParameter(stepExecution *model.StepExecution, key string) (string, bool) {
	if stepExecution == nil || stepExecution.JobExecution == nil {
		return "", false
	}
	v, ok := stepExecution.JobExecution.Parameters.GetString(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
