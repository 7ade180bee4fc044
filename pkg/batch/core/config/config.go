// Package config provides the application configuration structure, its defaults and its loader.
package config

import (
	"fmt"
	"strings"
	"time"

	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	storageconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelTrace  LogLevel = "TRACE"
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// Well-known job names.
const (
	WeatherJobName       = "weatherJob"
	WeatherExportJobName = "weatherExportJob"
)

// RetryConfig holds the step retry settings. Failed steps are re-run after a fixed interval.
type RetryConfig struct {
	MaxAttempts         int      `yaml:"max_attempts"`         // Total attempts per step, including the first one.
	IntervalSeconds     int      `yaml:"interval_seconds"`     // Fixed wait between attempts.
	RetryableExceptions []string `yaml:"retryable_exceptions"` // Registered exception names that allow a retry.
}

// Interval returns IntervalSeconds as a time.Duration.
func (r RetryConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// BatchConfig holds configuration specific to the batch engine.
type BatchConfig struct {
	// JobName is the job run when none is given on the command line.
	JobName string      `yaml:"job_name"`
	Retry   RetryConfig `yaml:"retry"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// WeatherAPIConfig holds the settings of the current-weather API client.
type WeatherAPIConfig struct {
	APIEndpoint    string `yaml:"api_endpoint"`
	APIKey         string `yaml:"api_key"`
	Units          string `yaml:"units"`
	City           string `yaml:"city"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns TimeoutSeconds as a time.Duration.
func (w WeatherAPIConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// PipelineConfig holds where the stages put their artifacts and where rows are loaded.
type PipelineConfig struct {
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	TableName    string `yaml:"table_name"`
	DBRef        string `yaml:"db_ref"`
}

// ExportConfig holds the settings of the parquet export job.
type ExportConfig struct {
	StorageRef string `yaml:"storage_ref"`
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
	// LookbackHours bounds the exported rows by data_time. Zero exports the whole table.
	LookbackHours int `yaml:"lookback_hours"`
}

// NotificationConfig holds the AMQP notifier settings. An empty AMQPURL disables notifications.
type NotificationConfig struct {
	AMQPURL    string `yaml:"amqp_url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// MetricsConfig holds the Prometheus settings.
type MetricsConfig struct {
	// PushgatewayURL, when set, receives the collected metrics once the job finishes.
	PushgatewayURL string `yaml:"pushgateway_url"`
	JobLabel       string `yaml:"job_label"`
}

// TracingConfig holds the OpenTelemetry exporter settings. An empty endpoint disables export.
type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Protocol is "http" or "grpc".
	Protocol    string `yaml:"protocol"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// AdapterConfig holds the named connections used by the adapters.
type AdapterConfig struct {
	Database map[string]dbconfig.DatabaseConfig      `yaml:"database"`
	Storage  map[string]storageconfig.StorageConfig `yaml:"storage"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	System       SystemConfig       `yaml:"system"`
	Batch        BatchConfig        `yaml:"batch"`
	Weather      WeatherAPIConfig   `yaml:"weather"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Export       ExportConfig       `yaml:"export"`
	Notification NotificationConfig `yaml:"notification"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Adapter      AdapterConfig      `yaml:"adapter"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfin         SurfinConfig   `yaml:"surfin"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO", Format: "text"},
			},
			Batch: BatchConfig{
				JobName: WeatherJobName,
				Retry: RetryConfig{
					MaxAttempts:         2,
					IntervalSeconds:     300,
					RetryableExceptions: []string{exception.NetworkError, exception.DatabaseError},
				},
			},
			Weather: WeatherAPIConfig{
				APIEndpoint:    "http://api.openweathermap.org/data/2.5/weather",
				Units:          "metric",
				City:           "Hanoi",
				TimeoutSeconds: 30,
			},
			Pipeline: PipelineConfig{
				RawDir:       "/opt/airflow/data/raw",
				ProcessedDir: "/opt/airflow/data/processed",
				TableName:    "weather_data",
				DBRef:        "workload",
			},
			Export: ExportConfig{
				StorageRef: "export",
				Prefix:     "weather_data",
			},
			Notification: NotificationConfig{
				Exchange:   "weather.events",
				RoutingKey: "weather.job",
			},
			Metrics: MetricsConfig{JobLabel: "weather_etl"},
			Tracing: TracingConfig{Protocol: "http", ServiceName: "weather-etl"},
			Adapter: AdapterConfig{
				Database: map[string]dbconfig.DatabaseConfig{
					"workload": {
						Type:     "postgres",
						Host:     "postgres",
						Port:     5432,
						Database: "airflow",
						User:     "admin",
						Password: "admin",
						Sslmode:  "disable",
					},
				},
				Storage: map[string]storageconfig.StorageConfig{
					"export": {Type: "local", BaseDir: "/opt/airflow/data/export"},
				},
			},
		},
	}
}

// Validate checks the settings required by jobName once, at startup.
// Every failure is a ConfigurationError.
func (c *Config) Validate(jobName string) error {
	s := c.Surfin
	var problems []string

	if s.Batch.Retry.MaxAttempts < 1 {
		problems = append(problems, "batch.retry.max_attempts must be at least 1")
	}
	if s.Batch.Retry.IntervalSeconds < 0 {
		problems = append(problems, "batch.retry.interval_seconds must not be negative")
	}
	for _, name := range s.Batch.Retry.RetryableExceptions {
		if !exception.IsErrorTypeRegistered(name) {
			problems = append(problems, fmt.Sprintf("batch.retry.retryable_exceptions references unknown exception '%s'", name))
		}
	}

	switch jobName {
	case WeatherJobName:
		if strings.TrimSpace(s.Weather.APIKey) == "" {
			problems = append(problems, "weather.api_key is required (set OPENWEATHER_API_KEY)")
		}
		if s.Weather.APIEndpoint == "" {
			problems = append(problems, "weather.api_endpoint is required")
		}
		if s.Weather.TimeoutSeconds <= 0 {
			problems = append(problems, "weather.timeout_seconds must be positive")
		}
		if s.Pipeline.RawDir == "" || s.Pipeline.ProcessedDir == "" {
			problems = append(problems, "pipeline.raw_dir and pipeline.processed_dir are required")
		}
		if s.Pipeline.TableName == "" {
			problems = append(problems, "pipeline.table_name is required")
		}
		if _, ok := s.Adapter.Database[s.Pipeline.DBRef]; !ok {
			problems = append(problems, fmt.Sprintf("adapter.database has no connection named '%s'", s.Pipeline.DBRef))
		}
	case WeatherExportJobName:
		if _, ok := s.Adapter.Database[s.Pipeline.DBRef]; !ok {
			problems = append(problems, fmt.Sprintf("adapter.database has no connection named '%s'", s.Pipeline.DBRef))
		}
		if _, ok := s.Adapter.Storage[s.Export.StorageRef]; !ok {
			problems = append(problems, fmt.Sprintf("adapter.storage has no connection named '%s'", s.Export.StorageRef))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown job '%s'", jobName))
	}

	if len(problems) > 0 {
		return exception.NewConfigurationError(moduleName, "invalid configuration", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}
