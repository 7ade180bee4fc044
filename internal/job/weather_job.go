// Package job assembles the weather pipelines from their tasklets and registers them with the JobFactory.
package job

import (
	"go.uber.org/fx"

	weathermodel "github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/step/fetcher"
	weathertasklet "github.com/tigerroll/weather-etl/internal/step/tasklet"
	"github.com/tigerroll/weather-etl/internal/step/transformer"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/core/config/support"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	jobRunner "github.com/tigerroll/weather-etl/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/engine/step/retry"
	steptasklet "github.com/tigerroll/weather-etl/pkg/batch/engine/step/tasklet"
)

// Step names of weatherJob.
const (
	FetchStepName     = "fetchStep"
	TransformStepName = "transformStep"
	LoadStepName      = "loadStep"
)

// WeatherJobParams defines the dependencies of NewWeatherJobBuilder.
type WeatherJobParams struct {
	fx.In
	DBResolver     database.DBConnectionResolver
	StepListeners  []port.StepExecutionListener `group:"stepListeners"`
	FetcherOptions []fetcher.Option             `optional:"true"`
}

// NewWeatherJobBuilder returns the builder of weatherJob: fetch, transform and load, each retried
// according to batch.retry. The artifact paths travel between the steps through the job ExecutionContext.
func NewWeatherJobBuilder(p WeatherJobParams) support.JobBuilder {
	return func(
		jobRepository repository.JobRepository,
		cfg *config.Config,
		listeners []port.JobExecutionListener,
		metricRecorder metrics.MetricRecorder,
		tracer metrics.Tracer,
	) (port.Job, error) {
		opts := append([]fetcher.Option{fetcher.WithMetricRecorder(metricRecorder)}, p.FetcherOptions...)
		f, err := fetcher.NewFetcher(cfg.Surfin.Weather, opts...)
		if err != nil {
			return nil, err
		}
		fetch, err := weathertasklet.NewFetchTasklet(cfg, f, nil)
		if err != nil {
			return nil, err
		}
		transform, err := weathertasklet.NewTransformTasklet(cfg, transformer.NewTransformer(), nil)
		if err != nil {
			return nil, err
		}
		load, err := weathertasklet.NewLoadTasklet(cfg, p.DBResolver, nil)
		if err != nil {
			return nil, err
		}

		steps := []port.Step{
			steptasklet.NewTaskletStep(FetchStepName, fetch, jobRepository, p.StepListeners,
				promote(weathermodel.RawArtifactKey), metricRecorder, tracer),
			steptasklet.NewTaskletStep(TransformStepName, transform, jobRepository, p.StepListeners,
				promote(weathermodel.ProcessedArtifactKey), metricRecorder, tracer),
			steptasklet.NewTaskletStep(LoadStepName, load, jobRepository, p.StepListeners,
				promote(weathermodel.LoadedRowsKey), metricRecorder, tracer),
		}
		return jobRunner.NewFlowJob(
			config.WeatherJobName,
			config.WeatherJobName,
			steps,
			jobRepository,
			listeners,
			retry.NewDefaultRetryPolicyFactory().FromConfig(cfg.Surfin.Batch.Retry),
			metricRecorder,
			tracer,
		), nil
	}
}

func promote(keys ...string) *model.ExecutionContextPromotion {
	return &model.ExecutionContextPromotion{Keys: keys}
}
