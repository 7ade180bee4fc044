package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := coreconfig.NewConfig()

	assert.Equal(t, "UTC", cfg.Surfin.System.Timezone)
	assert.Equal(t, "INFO", cfg.Surfin.System.Logging.Level)
	assert.Equal(t, coreconfig.WeatherJobName, cfg.Surfin.Batch.JobName)
	assert.Equal(t, 2, cfg.Surfin.Batch.Retry.MaxAttempts)
	assert.Equal(t, 300, cfg.Surfin.Batch.Retry.IntervalSeconds)
	assert.ElementsMatch(t, []string{exception.NetworkError, exception.DatabaseError}, cfg.Surfin.Batch.Retry.RetryableExceptions)

	assert.Equal(t, "http://api.openweathermap.org/data/2.5/weather", cfg.Surfin.Weather.APIEndpoint)
	assert.Equal(t, "metric", cfg.Surfin.Weather.Units)
	assert.Equal(t, "Hanoi", cfg.Surfin.Weather.City)
	assert.Equal(t, 30, cfg.Surfin.Weather.TimeoutSeconds)

	assert.Equal(t, "/opt/airflow/data/raw", cfg.Surfin.Pipeline.RawDir)
	assert.Equal(t, "/opt/airflow/data/processed", cfg.Surfin.Pipeline.ProcessedDir)
	assert.Equal(t, "weather_data", cfg.Surfin.Pipeline.TableName)

	db := cfg.Surfin.Adapter.Database["workload"]
	assert.Equal(t, "postgres", db.Type)
	assert.Equal(t, "postgres", db.Host)
	assert.Equal(t, 5432, db.Port)
	assert.Equal(t, "airflow", db.Database)
	assert.Equal(t, "admin", db.User)
	assert.Equal(t, "admin", db.Password)
	assert.Equal(t, "disable", db.Sslmode)
}

const testYAML = `
surfin:
  system:
    logging:
      level: DEBUG
  weather:
    city: ${TEST_WEATHER_CITY}
    units: imperial
  pipeline:
    raw_dir: /tmp/raw
  adapter:
    database:
      local:
        type: sqlite
        database: /tmp/weather.db
`

func TestLoadConfig_YAMLAndEnvironment(t *testing.T) {
	t.Setenv("TEST_WEATHER_CITY", "Da Nang")
	t.Setenv("OPENWEATHER_API_KEY", "secret-key")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("SURFIN_PIPELINE_TABLE_NAME", "weather_hourly")
	t.Setenv("SURFIN_BATCH_RETRY_RETRYABLE_EXCEPTIONS", "NetworkError, DatabaseError,ParseError")
	t.Setenv("SURFIN_ADAPTER_DATABASE_LOCAL_SSLMODE", "require")

	cfg, err := coreconfig.LoadConfig("", coreconfig.EmbeddedConfig(testYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Surfin.System.Logging.Level)
	assert.Equal(t, "Da Nang", cfg.Surfin.Weather.City)
	assert.Equal(t, "imperial", cfg.Surfin.Weather.Units)
	assert.Equal(t, "secret-key", cfg.Surfin.Weather.APIKey)
	assert.Equal(t, "/tmp/raw", cfg.Surfin.Pipeline.RawDir)
	assert.Equal(t, "/opt/airflow/data/processed", cfg.Surfin.Pipeline.ProcessedDir)
	assert.Equal(t, "weather_hourly", cfg.Surfin.Pipeline.TableName)
	assert.Equal(t, []string{"NetworkError", "DatabaseError", "ParseError"}, cfg.Surfin.Batch.Retry.RetryableExceptions)

	workload := cfg.Surfin.Adapter.Database["workload"]
	assert.Equal(t, "db.internal", workload.Host)
	assert.Equal(t, 6543, workload.Port)
	assert.Equal(t, "airflow", workload.Database)

	local := cfg.Surfin.Adapter.Database["local"]
	assert.Equal(t, "sqlite", local.Type)
	assert.Equal(t, "/tmp/weather.db", local.Database)
	assert.Equal(t, "require", local.Sslmode)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SURFIN_WEATHER_CITY=Hue\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SURFIN_WEATHER_CITY") })

	cfg, err := coreconfig.LoadConfig(envFile, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hue", cfg.Surfin.Weather.City)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := coreconfig.LoadConfig("", coreconfig.EmbeddedConfig("surfin: [unterminated"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrConfiguration))
}

func TestLoadConfig_InvalidPostgresPort(t *testing.T) {
	t.Setenv("POSTGRES_PORT", "not-a-port")
	_, err := coreconfig.LoadConfig("", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		cfg := coreconfig.NewConfig()
		err := cfg.Validate(coreconfig.WeatherJobName)
		require.Error(t, err)
		assert.ErrorIs(t, err, exception.ErrConfiguration)
		assert.Contains(t, err.Error(), "weather.api_key")
	})

	t.Run("valid weather job", func(t *testing.T) {
		cfg := coreconfig.NewConfig()
		cfg.Surfin.Weather.APIKey = "k"
		assert.NoError(t, cfg.Validate(coreconfig.WeatherJobName))
	})

	t.Run("export job does not need api key", func(t *testing.T) {
		cfg := coreconfig.NewConfig()
		assert.NoError(t, cfg.Validate(coreconfig.WeatherExportJobName))
	})

	t.Run("unknown retryable exception", func(t *testing.T) {
		cfg := coreconfig.NewConfig()
		cfg.Surfin.Weather.APIKey = "k"
		cfg.Surfin.Batch.Retry.RetryableExceptions = []string{"NoSuchError"}
		err := cfg.Validate(coreconfig.WeatherJobName)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NoSuchError")
	})

	t.Run("unknown db ref", func(t *testing.T) {
		cfg := coreconfig.NewConfig()
		cfg.Surfin.Weather.APIKey = "k"
		cfg.Surfin.Pipeline.DBRef = "missing"
		assert.Error(t, cfg.Validate(coreconfig.WeatherJobName))
	})

	t.Run("unknown job", func(t *testing.T) {
		assert.Error(t, coreconfig.NewConfig().Validate("nope"))
	})
}
