// Package runner executes jobs: FlowJob runs steps in order, SimpleJobRunner drives the job lifecycle.
package runner

import (
	"context"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// SimpleJobRunner creates the execution metadata of a job, runs it and persists the outcome.
type SimpleJobRunner struct {
	jobRepository repository.JobRepository
	notifiers     []port.NotificationListener
}

// NewSimpleJobRunner creates a SimpleJobRunner. Notifiers are told about every finished execution.
func NewSimpleJobRunner(repo repository.JobRepository, notifiers ...port.NotificationListener) *SimpleJobRunner {
	return &SimpleJobRunner{jobRepository: repo, notifiers: notifiers}
}

// Launch creates a JobInstance and JobExecution for job, runs it, and returns the finished execution.
// The returned error is the job's failure, if any.
func (r *SimpleJobRunner) Launch(ctx context.Context, job port.Job, params model.JobParameters) (*model.JobExecution, error) {
	instance := model.NewJobInstance(job.JobName(), params)
	if err := r.jobRepository.SaveJobInstance(ctx, instance); err != nil {
		return nil, exception.NewBatchError("job_runner", "failed to save JobInstance", err, false, false)
	}
	jobExecution := model.NewJobExecution(instance.ID, job.JobName(), params)
	if err := r.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return nil, exception.NewBatchError("job_runner", "failed to save JobExecution", err, false, false)
	}
	err := r.Run(ctx, job, jobExecution)
	return jobExecution, err
}

// Run executes job against an already persisted jobExecution.
func (r *SimpleJobRunner) Run(ctx context.Context, job port.Job, jobExecution *model.JobExecution) error {
	if jobExecution.Status == model.BatchStatusStarting {
		jobExecution.MarkAsStarted()
		if err := r.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
			logger.Errorf("JobRunner: Failed to update JobExecution (ID: %s) status to STARTED: %v", jobExecution.ID, err)
		}
	}

	err := job.Run(ctx, jobExecution, jobExecution.Parameters)

	if err != nil && !jobExecution.Status.IsFinished() {
		jobExecution.MarkAsFailed(err)
	} else if err == nil && !jobExecution.Status.IsFinished() {
		jobExecution.MarkAsCompleted()
	}
	if jobExecution.EndTime == nil {
		now := time.Now()
		jobExecution.EndTime = &now
	}

	// Metadata persistence is best-effort; it never changes the job outcome.
	if updateErr := r.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); updateErr != nil {
		logger.Errorf("JobRunner: Failed to update final JobExecution (ID: %s) state: %v", jobExecution.ID, updateErr)
	}

	for _, n := range r.notifiers {
		n.OnJobCompletion(context.WithoutCancel(ctx), jobExecution)
	}
	return err
}

var _ port.JobRunner = (*SimpleJobRunner)(nil)
