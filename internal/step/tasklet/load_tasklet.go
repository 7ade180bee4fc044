package tasklet

import (
	"context"

	weathermodel "github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/step/loader"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/weather-etl/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// ModuleLoadTasklet is the module name on errors raised by LoadTasklet.
const ModuleLoadTasklet = "LoadTasklet"

// LoadTaskletConfig holds the step properties of LoadTasklet.
type LoadTaskletConfig struct {
	TableName string `yaml:"tableName"`
	DBRef     string `yaml:"dbRef"`
}

// LoadTasklet appends the processed artifact to the weather table.
type LoadTasklet struct {
	contextHolder
	config *LoadTaskletConfig
	loader *loader.Loader
}

// NewLoadTasklet creates a LoadTasklet. Properties default to pipeline.table_name and pipeline.db_ref.
func NewLoadTasklet(cfg *config.Config, resolver database.DBConnectionResolver, properties map[string]interface{}) (*LoadTasklet, error) {
	taskletCfg := &LoadTaskletConfig{
		TableName: cfg.Surfin.Pipeline.TableName,
		DBRef:     cfg.Surfin.Pipeline.DBRef,
	}
	if err := configbinder.BindProperties(properties, taskletCfg); err != nil {
		return nil, exception.NewBatchError(ModuleLoadTasklet, "Failed to bind properties", err, false, false)
	}
	return &LoadTasklet{
		contextHolder: contextHolder{executionContext: model.NewExecutionContext()},
		config:        taskletCfg,
		loader:        loader.NewLoader(resolver, taskletCfg.DBRef),
	}, nil
}

// Execute loads into the table given by the "table" job parameter, or the configured one.
func (t *LoadTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	processed, err := weathermodel.GetArtifact(t.executionContext, weathermodel.ProcessedArtifactKey)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(ModuleLoadTasklet, "processed artifact not available", err, false, false)
	}
	table := t.config.TableName
	if v, ok := jobParameter(stepExecution, ParamTable); ok {
		table = v
	}

	appended, err := t.loader.Load(ctx, processed.Path, table)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	t.executionContext.Put(weathermodel.LoadedRowsKey, appended)
	stepExecution.WriteCount += int(appended)
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*LoadTasklet)(nil)
