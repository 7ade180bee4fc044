package job

import (
	"go.uber.org/fx"

	weathertasklet "github.com/tigerroll/weather-etl/internal/step/tasklet"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/core/config/support"
	repository "github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	jobRunner "github.com/tigerroll/weather-etl/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/engine/step/retry"
	steptasklet "github.com/tigerroll/weather-etl/pkg/batch/engine/step/tasklet"
)

// ExportStepName is the single step of weatherExportJob.
const ExportStepName = "exportStep"

// WeatherExportJobParams defines the dependencies of NewWeatherExportJobBuilder.
type WeatherExportJobParams struct {
	fx.In
	DBResolver      database.DBConnectionResolver
	StorageResolver storage.StorageConnectionResolver
	StepListeners   []port.StepExecutionListener `group:"stepListeners"`
}

// NewWeatherExportJobBuilder returns the builder of weatherExportJob, which copies loaded rows to
// object storage as parquet.
func NewWeatherExportJobBuilder(p WeatherExportJobParams) support.JobBuilder {
	return func(
		jobRepository repository.JobRepository,
		cfg *config.Config,
		listeners []port.JobExecutionListener,
		metricRecorder metrics.MetricRecorder,
		tracer metrics.Tracer,
	) (port.Job, error) {
		export, err := weathertasklet.NewWeatherExportTasklet(cfg, p.DBResolver, p.StorageResolver, nil)
		if err != nil {
			return nil, err
		}
		steps := []port.Step{
			steptasklet.NewTaskletStep(ExportStepName, export, jobRepository, p.StepListeners,
				promote(weathertasklet.ExportedObjectsKey), metricRecorder, tracer),
		}
		return jobRunner.NewFlowJob(
			config.WeatherExportJobName,
			config.WeatherExportJobName,
			steps,
			jobRepository,
			listeners,
			retry.NewDefaultRetryPolicyFactory().FromConfig(cfg.Surfin.Batch.Retry),
			metricRecorder,
			tracer,
		), nil
	}
}
