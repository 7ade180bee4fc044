package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
)

// Module provides the logging listeners into the jobListeners and stepListeners groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLoggingJobListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"jobListeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewLoggingStepListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"stepListeners"`),
	)),
)
