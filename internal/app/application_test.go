package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/weather-etl/internal/domain/entity"
	weathertasklet "github.com/tigerroll/weather-etl/internal/step/tasklet"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
)

const applicationYAML = `
surfin:
  batch:
    job_name: weatherJob
  weather:
    api_endpoint: %s
    city: Hanoi
  pipeline:
    raw_dir: %s
    processed_dir: %s
  adapter:
    database:
      workload:
        type: sqlite
        database: %s
    storage:
      export:
        type: local
        base_dir: %s
`

const hanoiResponse = `{"coord":{"lon":105.84,"lat":21.02},"weather":[{"main":"Clear","description":"clear sky"}],` +
	`"main":{"temp":30.1,"feels_like":34.2,"temp_min":29.0,"temp_max":31.0,"pressure":1005,"humidity":70},` +
	`"wind":{"speed":2.1,"deg":140},"clouds":{"all":0},"dt":1718000000,` +
	`"sys":{"sunrise":1717971000,"sunset":1718019000},"name":"Hanoi"}`

func newRunOptions(t *testing.T, apiURL string) (RunOptions, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "airflow.db")
	yaml := fmt.Sprintf(applicationYAML, apiURL,
		filepath.Join(dir, "raw"), filepath.Join(dir, "processed"), dbPath, filepath.Join(dir, "export"))
	return RunOptions{
		EmbeddedConfig: config.EmbeddedConfig(yaml),
		Params:         model.NewJobParameters(),
		DBAdapters:     "sqlite",
	}, dbPath
}

func TestRunApplication_WeatherJob(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "test-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		fmt.Fprint(w, hanoiResponse)
	}))
	defer server.Close()
	opts, dbPath := newRunOptions(t, server.URL)
	opts.Params.Put(weathertasklet.ParamTable, "weather_cli")

	code := RunApplication(context.Background(), opts)

	require.Equal(t, ExitCodeSuccess, code)
	db, err := gorm.Open(gormsqlite.Open(dbPath), &gorm.Config{})
	require.NoError(t, err)
	var records []entity.FlatWeatherRecord
	require.NoError(t, db.Table("weather_cli").Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, "Hanoi", records[0].City)
	assert.Equal(t, 30.1, records[0].Temp)
}

func TestRunApplication_MissingAPIKeyFailsStartup(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "")
	opts, _ := newRunOptions(t, "http://127.0.0.1:0")

	assert.Equal(t, ExitCodeFailure, RunApplication(context.Background(), opts))
}

func TestRunApplication_UnknownJob(t *testing.T) {
	opts, _ := newRunOptions(t, "http://127.0.0.1:0")
	opts.JobName = "nope"

	assert.Equal(t, ExitCodeFailure, RunApplication(context.Background(), opts))
}

func TestRunApplication_CancelledContext(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "test-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, hanoiResponse)
	}))
	defer server.Close()
	opts, _ := newRunOptions(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, ExitCodeFailure, RunApplication(ctx, opts))
}

func TestGetApplicationOptions_GraphIsComplete(t *testing.T) {
	opts, _ := newRunOptions(t, "http://127.0.0.1:0")

	assert.NoError(t, fx.ValidateApp(GetApplicationOptions(context.Background(), RunOptions{
		EmbeddedConfig: opts.EmbeddedConfig,
		DBAdapters:     DefaultDBAdapters,
	})...))
}

func TestDBProviderOptions(t *testing.T) {
	assert.Len(t, DBProviderOptions(""), 3)
	assert.Len(t, DBProviderOptions("sqlite, SQLITE ,oracle"), 1)
}
