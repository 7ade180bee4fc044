package runner

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/engine/step/retry"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// FlowJob runs its steps in order. Each step attempt gets a fresh StepExecution; a failed attempt is
// retried while the retry policy allows it, and the first failure that is not recovered fails the job
// and stops the flow.
type FlowJob struct {
	id             string
	name           string
	steps          []port.Step
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	retryPolicy    retry.RetryPolicy
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
	sleep          func(ctx context.Context, d time.Duration) error
}

var _ port.Job = (*FlowJob)(nil)

// FlowJobOption customises a FlowJob.
type FlowJobOption func(*FlowJob)

// WithSleeper replaces the wait between attempts. Mainly used by tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) FlowJobOption {
	return func(j *FlowJob) { j.sleep = sleep }
}

// NewFlowJob creates a FlowJob. A nil retryPolicy means a single attempt per step.
func NewFlowJob(
	id string,
	name string,
	steps []port.Step,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	retryPolicy retry.RetryPolicy,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	opts ...FlowJobOption,
) *FlowJob {
	if retryPolicy == nil {
		retryPolicy = retry.NewDefaultRetryPolicyFactory().Create(1, 0, nil)
	}
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	j := &FlowJob{
		id:             id,
		name:           name,
		steps:          steps,
		jobRepository:  jobRepository,
		jobListeners:   jobListeners,
		retryPolicy:    retryPolicy,
		metricRecorder: metricRecorder,
		tracer:         tracer,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *FlowJob) ID() string        { return j.id }
func (j *FlowJob) JobName() string   { return j.name }
func (j *FlowJob) Steps() []port.Step { return j.steps }

// Run executes the steps in order and leaves jobExecution in a terminal state.
func (j *FlowJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) (runErr error) {
	logger.Infof("Starting Job '%s' (Execution ID: %s). Parameters: %s", j.name, jobExecution.ID, jobParameters.String())

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}

	defer func() {
		if jobExecution.EndTime == nil {
			now := time.Now()
			jobExecution.EndTime = &now
		}
		for _, l := range j.jobListeners {
			l.AfterJob(ctx, jobExecution)
		}
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)
		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	}()

	for _, step := range j.steps {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, err)
			jobExecution.AddFailureException(err)
			jobExecution.MarkAsStopped()
			j.tracer.RecordError(ctx, "job_runner", err)
			return err
		}

		jobExecution.CurrentStepName = step.StepName()
		if err := j.runStep(ctx, step, jobExecution); err != nil {
			logger.Errorf("Job '%s': Step '%s' failed: %v", j.name, step.StepName(), err)
			j.tracer.RecordError(ctx, "job_runner", err)
			if errors.Is(err, context.Canceled) {
				jobExecution.AddFailureException(err)
				jobExecution.MarkAsStopped()
			} else {
				jobExecution.MarkAsFailed(err)
			}
			return err
		}
	}

	jobExecution.MarkAsCompleted()
	return nil
}

// runStep executes step until it succeeds, the retry policy gives up, or ctx is cancelled.
func (j *FlowJob) runStep(ctx context.Context, step port.Step, jobExecution *model.JobExecution) error {
	stepName := step.StepName()
	maxAttempts := j.retryPolicy.GetMaxAttempts()

	for attempt := 1; ; attempt++ {
		stepExecution := model.NewStepExecution(model.NewID(), jobExecution, stepName)
		stepExecution.Attempt = attempt
		stepExecution.ExecutionContext = jobExecution.ExecutionContext.Copy()
		jobExecution.AddStepExecution(stepExecution)
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			return exception.NewBatchError(j.name, "Error saving new StepExecution", err, false, false)
		}

		err := step.Execute(port.GetContextWithStepExecution(ctx, stepExecution), jobExecution, stepExecution)
		if err == nil {
			j.promote(ctx, step, stepExecution, jobExecution)
			logger.Infof("Job '%s': Step '%s' completed successfully. ExitStatus: %s", j.name, stepName, stepExecution.ExitStatus)
			return nil
		}

		if attempt >= maxAttempts || !j.retryPolicy.ShouldRetry(err) {
			return err
		}

		wait := j.retryPolicy.GetBackoffInterval(attempt)
		logger.WithFields(logger.Fields{
			"job":      j.name,
			"step":     stepName,
			"attempt":  attempt,
			"retry_in": wait.String(),
		}).Warnf("Step failed, retrying: %v", err)
		j.metricRecorder.RecordStepRetry(ctx, stepName, exception.ExtractErrorMessage(err))

		if sleepErr := j.sleep(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}
}

// promote copies the step's promoted keys into the job ExecutionContext and persists the job.
func (j *FlowJob) promote(ctx context.Context, step port.Step, stepExecution *model.StepExecution, jobExecution *model.JobExecution) {
	promotion := step.GetExecutionContextPromotion()
	if promotion == nil {
		return
	}
	promotion.Promote(stepExecution.ExecutionContext, jobExecution.ExecutionContext)
	if err := j.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("FlowJob: Failed to update JobExecution after context promotion for step '%s': %v", step.StepName(), err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
