package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// A batch run is short-lived, so metrics are delivered by pushing the registry to a Pushgateway.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	cfg      config.MetricsConfig

	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepWriteCount      *prometheus.CounterVec
	stepRetryCount      *prometheus.CounterVec

	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder with its own registry.
func NewPrometheusRecorder(cfg config.MetricsConfig) *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		cfg:      cfg,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Duration of batch job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_job_status_total",
			Help: "Total number of batch job executions by status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_step_duration_seconds",
			Help:    "Duration of batch step attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_status_total",
			Help: "Total number of batch step attempts by final status.",
		}, []string{"job_name", "step_name", "status"}),
		stepWriteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_write_total",
			Help: "Total items (rows or files) written by step.",
		}, []string{"job_name", "step_name"}),
		stepRetryCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_retry_total",
			Help: "Total step retries by reason.",
		}, []string{"job_name", "step_name", "reason"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_operation_duration_seconds",
			Help:    "Duration of named operations such as external API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.jobStatusCounter,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.stepWriteCount,
		r.stepRetryCount,
		r.operationDurationSeconds,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

// RecordJobEnd observes the job duration and counts the final status.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	logger.Debugf("Metrics: Step '%s' attempt %d started.", execution.StepName, execution.Attempt)
}

func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	jobName := jobNameOf(execution)
	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.stepDurationSeconds.WithLabelValues(
		jobName,
		execution.StepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

// RecordItemWrite adds count to the write counter of the step running in ctx.
func (r *PrometheusRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.stepWriteCount.WithLabelValues(jobNameFromContext(ctx), stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordStepRetry(ctx context.Context, stepName string, reason string) {
	r.stepRetryCount.WithLabelValues(jobNameFromContext(ctx), stepName, reason).Inc()
}

// RecordDuration observes a named operation. The "outcome" tag defaults to "success".
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	outcome := tags["outcome"]
	if outcome == "" {
		outcome = "success"
	}
	r.operationDurationSeconds.WithLabelValues(name, outcome).Observe(duration.Seconds())
}

// Push sends the registry to the configured Pushgateway. Without a URL it does nothing.
func (r *PrometheusRecorder) Push(ctx context.Context) error {
	if r.cfg.PushgatewayURL == "" {
		return nil
	}
	jobLabel := r.cfg.JobLabel
	if jobLabel == "" {
		jobLabel = "weather_etl"
	}
	if err := push.New(r.cfg.PushgatewayURL, jobLabel).Gatherer(r.registry).PushContext(ctx); err != nil {
		return err
	}
	logger.Infof("Metrics pushed to %s (job=%s).", r.cfg.PushgatewayURL, jobLabel)
	return nil
}

func jobNameOf(execution *model.StepExecution) string {
	if execution.JobExecution != nil {
		return execution.JobExecution.JobName
	}
	return ""
}

func jobNameFromContext(ctx context.Context) string {
	if se := port.GetStepExecutionFromContext(ctx); se != nil {
		return jobNameOf(se)
	}
	return ""
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
