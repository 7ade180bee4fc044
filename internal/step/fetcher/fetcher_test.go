package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/step/fetcher"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

var fixedNow = time.Date(2024, 6, 10, 6, 15, 42, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type durationRecorder struct {
	metrics.NoOpMetricRecorder
	mu    sync.Mutex
	names []string
	tags  []map[string]string
}

func (r *durationRecorder) RecordDuration(ctx context.Context, name string, d time.Duration, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.tags = append(r.tags, tags)
}

func newConfig(endpoint string) config.WeatherAPIConfig {
	return config.WeatherAPIConfig{
		APIEndpoint:    endpoint,
		APIKey:         "test-key",
		Units:          "metric",
		TimeoutSeconds: 5,
	}
}

func TestNewFetcher_MissingAPIKey(t *testing.T) {
	cfg := newConfig("http://localhost")
	cfg.APIKey = "  "

	_, err := fetcher.NewFetcher(cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestFetch_WritesIndentedRawArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Hanoi", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"Hà Nội","main":{"temp":30.1}}`)
	}))
	defer server.Close()

	recorder := &durationRecorder{}
	f, err := fetcher.NewFetcher(newConfig(server.URL), fetcher.WithClock(fixedClock), fetcher.WithMetricRecorder(recorder))
	require.NoError(t, err)
	outputDir := filepath.Join(t.TempDir(), "raw")

	artifact, err := f.Fetch(context.Background(), "Hanoi", outputDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "weather_raw_Hanoi_20240610_061542.json"), artifact.Path)
	assert.Equal(t, model.StageRaw, artifact.Stage)
	assert.Equal(t, "Hanoi", artifact.City)
	assert.Equal(t, fixedNow, artifact.CreatedAt)

	content, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"name\": \"Hà Nội\",\n    \"main\": {\n        \"temp\": 30.1\n    }\n}", string(content))

	assert.Equal(t, []string{"weather_api_call"}, recorder.names)
	assert.Equal(t, "success", recorder.tags[0]["outcome"])
}

func TestFetch_SameSecondOverwrites(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"call":%d}`, calls)
	}))
	defer server.Close()

	f, err := fetcher.NewFetcher(newConfig(server.URL), fetcher.WithClock(fixedClock))
	require.NoError(t, err)
	outputDir := t.TempDir()

	first, err := f.Fetch(context.Background(), "Hanoi", outputDir)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), "Hanoi", outputDir)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	content, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"call\": 2\n}", string(content))

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetch_ServerErrorIsRetryableNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	recorder := &durationRecorder{}
	f, err := fetcher.NewFetcher(newConfig(server.URL), fetcher.WithMetricRecorder(recorder))
	require.NoError(t, err)
	outputDir := t.TempDir()

	_, err = f.Fetch(context.Background(), "Hanoi", outputDir)

	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrNetwork)
	assert.True(t, exception.IsTemporary(err))
	var failure *exception.NetworkFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, http.StatusServiceUnavailable, failure.StatusCode)
	assert.Equal(t, "upstream unavailable", failure.Body)
	assert.NotContains(t, err.Error(), "test-key")
	assert.Equal(t, "error", recorder.tags[0]["outcome"])

	entries, _ := os.ReadDir(outputDir)
	assert.Empty(t, entries)
}

func TestFetch_ClientErrorIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"cod":401,"message":"Invalid API key"}`)
	}))
	defer server.Close()

	f, err := fetcher.NewFetcher(newConfig(server.URL))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "Hanoi", t.TempDir())

	assert.ErrorIs(t, err, exception.ErrNetwork)
	assert.False(t, exception.IsTemporary(err))
}

func TestFetch_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	f, err := fetcher.NewFetcher(newConfig(endpoint))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "Hanoi", t.TempDir())

	assert.ErrorIs(t, err, exception.ErrNetwork)
	assert.True(t, exception.IsTemporary(err))
}

func TestFetch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	}))
	defer server.Close()

	f, err := fetcher.NewFetcher(newConfig(server.URL))
	require.NoError(t, err)
	outputDir := t.TempDir()

	_, err = f.Fetch(context.Background(), "Hanoi", outputDir)

	assert.ErrorIs(t, err, exception.ErrParse)
	entries, _ := os.ReadDir(outputDir)
	assert.Empty(t, entries)
}
