package tasklet

import (
	"context"

	weathermodel "github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/step/transformer"
	"github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/weather-etl/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// ModuleTransformTasklet is the module name on errors raised by TransformTasklet.
const ModuleTransformTasklet = "TransformTasklet"

// TransformTaskletConfig holds the step properties of TransformTasklet.
type TransformTaskletConfig struct {
	OutputDir string `yaml:"outputDir"`
}

// TransformTasklet turns the raw artifact into the processed artifact.
type TransformTasklet struct {
	contextHolder
	config      *TransformTaskletConfig
	transformer *transformer.Transformer
}

// NewTransformTasklet creates a TransformTasklet. outputDir defaults to pipeline.processed_dir.
func NewTransformTasklet(cfg *config.Config, tr *transformer.Transformer, properties map[string]interface{}) (*TransformTasklet, error) {
	taskletCfg := &TransformTaskletConfig{OutputDir: cfg.Surfin.Pipeline.ProcessedDir}
	if err := configbinder.BindProperties(properties, taskletCfg); err != nil {
		return nil, exception.NewBatchError(ModuleTransformTasklet, "Failed to bind properties", err, false, false)
	}
	if taskletCfg.OutputDir == "" {
		return nil, exception.NewConfigurationError(ModuleTransformTasklet, "outputDir is required", nil)
	}
	return &TransformTasklet{
		contextHolder: contextHolder{executionContext: model.NewExecutionContext()},
		config:        taskletCfg,
		transformer:   tr,
	}, nil
}

// Execute transforms the raw artifact found in the step context and stores the processed one.
func (t *TransformTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	raw, err := weathermodel.GetArtifact(t.executionContext, weathermodel.RawArtifactKey)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(ModuleTransformTasklet, "raw artifact not available", err, false, false)
	}

	processed, err := t.transformer.Transform(ctx, raw.Path, t.config.OutputDir)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	weathermodel.PutArtifact(t.executionContext, weathermodel.ProcessedArtifactKey, processed)
	stepExecution.ReadCount++
	stepExecution.WriteCount++
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*TransformTasklet)(nil)
