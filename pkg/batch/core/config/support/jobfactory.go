// Package support provides the JobFactory, which builds registered jobs by name.
package support

import (
	"fmt"
	"sort"

	"go.uber.org/fx"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	repository "github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	exception "github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// JobBuilder is a function type for creating a specific Job.
// Builders are invoked lazily by CreateJob, so a job that is never run never opens its resources.
type JobBuilder func(
	jobRepository repository.JobRepository,
	cfg *config.Config,
	listeners []port.JobExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) (port.Job, error)

// JobFactory holds the registered JobBuilders and the dependencies shared by every job.
type JobFactory struct {
	config         *config.Config
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
	jobBuilders    map[string]JobBuilder
}

// JobFactoryParams defines the parameters that NewJobFactory receives via Fx.
type JobFactoryParams struct {
	fx.In
	Repo           repository.JobRepository
	Cfg            *config.Config
	JobListeners   []port.JobExecutionListener `group:"jobListeners"`
	MetricRecorder metrics.MetricRecorder      `optional:"true"`
	Tracer         metrics.Tracer              `optional:"true"`
}

// NewJobFactory creates a new instance of JobFactory.
func NewJobFactory(p JobFactoryParams) *JobFactory {
	recorder := p.MetricRecorder
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	tracer := p.Tracer
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &JobFactory{
		config:         p.Cfg,
		jobRepository:  p.Repo,
		jobListeners:   p.JobListeners,
		metricRecorder: recorder,
		tracer:         tracer,
		jobBuilders:    make(map[string]JobBuilder),
	}
}

// GetConfig returns a reference to the Config held by the JobFactory.
func (f *JobFactory) GetConfig() *config.Config {
	return f.config
}

// RegisterJobBuilder registers a job builder function with the given name.
func (f *JobFactory) RegisterJobBuilder(name string, builder JobBuilder) {
	if _, exists := f.jobBuilders[name]; exists {
		logger.Warnf("JobBuilder for '%s' already registered. Overwriting.", name)
	}
	f.jobBuilders[name] = builder
}

// JobNames returns the registered job names in sorted order.
func (f *JobFactory) JobNames() []string {
	names := make([]string, 0, len(f.jobBuilders))
	for name := range f.jobBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateJob builds the job registered under name.
func (f *JobFactory) CreateJob(name string) (port.Job, error) {
	builder, ok := f.jobBuilders[name]
	if !ok {
		return nil, exception.NewConfigurationError("job_factory",
			fmt.Sprintf("no job registered under '%s' (known: %v)", name, f.JobNames()), nil)
	}
	job, err := builder(f.jobRepository, f.config, f.jobListeners, f.metricRecorder, f.tracer)
	if err != nil {
		return nil, fmt.Errorf("failed to build job '%s': %w", name, err)
	}
	logger.Debugf("Job '%s' built with %d step(s).", name, len(job.Steps()))
	return job, nil
}
