package job

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/core/config/support"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// RegisterJobBuilders registers the weather jobs with the JobFactory under their job names.
func RegisterJobBuilders(jf *support.JobFactory, weather support.JobBuilder, export support.JobBuilder) {
	jf.RegisterJobBuilder(config.WeatherJobName, weather)
	jf.RegisterJobBuilder(config.WeatherExportJobName, export)
	logger.Debugf("JobBuilders registered with JobFactory: %v", jf.JobNames())
}

// Module provides the JobBuilders of the weather jobs and registers them.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewWeatherJobBuilder,
		fx.ResultTags(`name:"`+config.WeatherJobName+`"`),
	)),
	fx.Provide(fx.Annotate(
		NewWeatherExportJobBuilder,
		fx.ResultTags(`name:"`+config.WeatherExportJobName+`"`),
	)),
	fx.Invoke(fx.Annotate(
		RegisterJobBuilders,
		fx.ParamTags(``, `name:"`+config.WeatherJobName+`"`, `name:"`+config.WeatherExportJobName+`"`),
	)),
)
