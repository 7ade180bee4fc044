package tasklet

import (
	"context"

	weathermodel "github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/step/fetcher"
	"github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/weather-etl/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// ModuleFetchTasklet is the module name on errors raised by FetchTasklet.
const ModuleFetchTasklet = "FetchTasklet"

// FetchTaskletConfig holds the step properties of FetchTasklet.
type FetchTaskletConfig struct {
	City      string `yaml:"city"`
	OutputDir string `yaml:"outputDir"`
}

// FetchTasklet downloads the current weather and publishes the raw artifact.
type FetchTasklet struct {
	contextHolder
	config  *FetchTaskletConfig
	fetcher *fetcher.Fetcher
}

// NewFetchTasklet creates a FetchTasklet. Properties default to weather.city and pipeline.raw_dir.
func NewFetchTasklet(cfg *config.Config, f *fetcher.Fetcher, properties map[string]interface{}) (*FetchTasklet, error) {
	taskletCfg := &FetchTaskletConfig{
		City:      cfg.Surfin.Weather.City,
		OutputDir: cfg.Surfin.Pipeline.RawDir,
	}
	if err := configbinder.BindProperties(properties, taskletCfg); err != nil {
		return nil, exception.NewBatchError(ModuleFetchTasklet, "Failed to bind properties", err, false, false)
	}
	if taskletCfg.OutputDir == "" {
		return nil, exception.NewConfigurationError(ModuleFetchTasklet, "outputDir is required", nil)
	}
	return &FetchTasklet{
		contextHolder: contextHolder{executionContext: model.NewExecutionContext()},
		config:        taskletCfg,
		fetcher:       f,
	}, nil
}

// Execute fetches the city given by the "city" job parameter, or the configured one.
func (t *FetchTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	city := t.config.City
	if v, ok := jobParameter(stepExecution, ParamCity); ok {
		city = v
	}
	if city == "" {
		return model.ExitStatusFailed, exception.NewConfigurationError(ModuleFetchTasklet, "no city configured", nil)
	}

	artifact, err := t.fetcher.Fetch(ctx, city, t.config.OutputDir)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	weathermodel.PutArtifact(t.executionContext, weathermodel.RawArtifactKey, artifact)
	stepExecution.WriteCount++
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*FetchTasklet)(nil)
