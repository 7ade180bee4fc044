// Package port defines the contracts between the batch engine and the components it runs.
package port

import (
	"context"

	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
)

// JobRunner drives a Job through its lifecycle for one JobExecution.
type JobRunner interface {
	Run(ctx context.Context, job Job, jobExecution *model.JobExecution) error
}

// Job is an ordered flow of steps.
type Job interface {
	// Run executes the job. The returned error is the first unrecovered step failure.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error
	JobName() string
	ID() string
	Steps() []Step
}

// Step is a single unit of work within a Job.
type Step interface {
	// Execute runs one attempt of the step against stepExecution.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	StepName() string
	ID() string
	SetMetricRecorder(recorder metrics.MetricRecorder)
	SetTracer(tracer metrics.Tracer)
	// GetExecutionContextPromotion lists the step keys copied to the job context on success.
	GetExecutionContextPromotion() *model.ExecutionContextPromotion
}

// Tasklet is the body of a TaskletStep. Execute is called once per step attempt.
type Tasklet interface {
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	Close(ctx context.Context) error
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// StepExecutionListener is notified around every step attempt.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is notified around a job execution.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// NotificationListener is told when a job reaches a terminal state.
type NotificationListener interface {
	OnJobCompletion(ctx context.Context, jobExecution *model.JobExecution)
}

type contextKey string

// StepExecutionKey is the context key under which the running StepExecution is stored.
const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution stores se in ctx.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext returns the StepExecution stored in ctx, or nil.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	if se, ok := ctx.Value(StepExecutionKey).(*model.StepExecution); ok {
		return se
	}
	return nil
}
