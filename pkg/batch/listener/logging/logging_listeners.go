// Package logging provides listeners that log job and step lifecycle events.
package logging

import (
	"context"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// LoggingJobListener logs the start and the outcome of every job execution.
type LoggingJobListener struct{}

// NewLoggingJobListener creates a LoggingJobListener.
func NewLoggingJobListener() *LoggingJobListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.WithFields(logger.Fields{
		"job":          jobExecution.JobName,
		"execution_id": jobExecution.ID,
	}).Infof("Job starting. Params: %s", jobExecution.Parameters.String())
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	entry := logger.WithFields(logger.Fields{
		"job":          jobExecution.JobName,
		"execution_id": jobExecution.ID,
		"status":       jobExecution.Status,
		"exit_status":  jobExecution.ExitStatus,
	})
	if jobExecution.Status == model.BatchStatusCompleted {
		entry.Info("Job finished.")
		return
	}
	entry.Warnf("Job finished with failures: %v", jobExecution.Failures)
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// LoggingStepListener logs the start and the outcome of every step attempt.
type LoggingStepListener struct{}

// NewLoggingStepListener creates a LoggingStepListener.
func NewLoggingStepListener() *LoggingStepListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Debugf("StepExecutionListener: BeforeStep - StepName: %s, ID: %s, Attempt: %d",
		stepExecution.StepName, stepExecution.ID, stepExecution.Attempt)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	entry := logger.WithFields(logger.Fields{
		"step":        stepExecution.StepName,
		"attempt":     stepExecution.Attempt,
		"status":      stepExecution.Status,
		"exit_status": stepExecution.ExitStatus,
		"writes":      stepExecution.WriteCount,
	})
	if stepExecution.Status == model.BatchStatusFailed {
		entry.Errorf("Step failed: %v", stepExecution.Failures)
		return
	}
	entry.Info("Step finished.")
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)
