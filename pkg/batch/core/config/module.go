package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Surfin.System.Logging
}

// NewWeatherAPIConfigProvider extracts the weather API section for the fetcher.
func NewWeatherAPIConfigProvider(cfg *Config) WeatherAPIConfig {
	return cfg.Surfin.Weather
}

// NewPipelineConfigProvider extracts the pipeline section for the stage tasklets.
func NewPipelineConfigProvider(cfg *Config) PipelineConfig {
	return cfg.Surfin.Pipeline
}

// Module provides *Config and its sections to Fx.
var Module = fx.Options(
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewWeatherAPIConfigProvider),
	fx.Provide(NewPipelineConfigProvider),
)
