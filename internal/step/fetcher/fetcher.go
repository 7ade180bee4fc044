// Package fetcher downloads the current weather for a city and stores the response as a raw artifact.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const (
	ModuleFetcher = "Fetcher"

	maxErrorBodyLength = 512
)

// Fetcher calls the current-weather API.
type Fetcher struct {
	cfg            config.WeatherAPIConfig
	client         *http.Client
	now            func() time.Time
	metricRecorder metrics.MetricRecorder
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. Its Timeout is used as is.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithClock replaces the clock used for file names.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithMetricRecorder sets the recorder that receives the API call duration.
func WithMetricRecorder(recorder metrics.MetricRecorder) Option {
	return func(f *Fetcher) { f.metricRecorder = recorder }
}

// NewFetcher creates a Fetcher. A missing API key is a ConfigurationError.
func NewFetcher(cfg config.WeatherAPIConfig, opts ...Option) (*Fetcher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, exception.NewConfigurationError(ModuleFetcher, "weather API key is not set (OPENWEATHER_API_KEY)", nil)
	}
	if cfg.APIEndpoint == "" {
		return nil, exception.NewConfigurationError(ModuleFetcher, "weather API endpoint is not set", nil)
	}
	if _, err := url.Parse(cfg.APIEndpoint); err != nil {
		return nil, exception.NewConfigurationError(ModuleFetcher, "invalid weather API endpoint", err)
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	f := &Fetcher{
		cfg:            cfg,
		client:         &http.Client{Timeout: timeout},
		now:            time.Now,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch requests the current weather for city and writes the response, re-indented, to
// <outputDir>/weather_raw_<city>_<YYYYMMDD_HHMMSS>.json. A second fetch for the same city within
// the same second overwrites the first file.
func (f *Fetcher) Fetch(ctx context.Context, city, outputDir string) (model.Artifact, error) {
	logger.Infof("Fetching weather data for %s...", city)

	body, err := f.get(ctx, city)
	if err != nil {
		logger.Errorf("Error fetching data from weather API for %s: %v", city, err)
		return model.Artifact{}, err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, body, "", "    "); err != nil {
		parseErr := exception.NewParseError(ModuleFetcher, fmt.Sprintf("weather API response for %s is not valid JSON", city), err)
		logger.Errorf("%v", parseErr)
		return model.Artifact{}, parseErr
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return model.Artifact{}, exception.NewBatchError(ModuleFetcher, fmt.Sprintf("failed to create output directory %s", outputDir), err, false, false)
	}

	createdAt := f.now().UTC()
	path := filepath.Join(outputDir, model.RawFileName(city, createdAt))
	if err := os.WriteFile(path, indented.Bytes(), 0o644); err != nil {
		return model.Artifact{}, exception.NewBatchError(ModuleFetcher, fmt.Sprintf("failed to write raw data to %s", path), err, false, false)
	}

	logger.WithFields(logger.Fields{"city": city, "path": path, "bytes": indented.Len()}).Info("Raw data saved.")
	return model.NewArtifact(model.StageRaw, city, path, createdAt), nil
}

func (f *Fetcher) get(ctx context.Context, city string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		f.metricRecorder.RecordDuration(ctx, "weather_api_call", time.Since(start), map[string]string{"city": city, "outcome": outcome})
	}()

	u, _ := url.Parse(f.cfg.APIEndpoint)
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", f.cfg.APIKey)
	q.Set("units", f.cfg.Units)
	u.RawQuery = q.Encode()
	// The key never appears in errors or logs.
	display := fmt.Sprintf("%s?q=%s", f.cfg.APIEndpoint, url.QueryEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, exception.NewBatchError(ModuleFetcher, "failed to create API request", err, false, false)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, exception.NewNetworkError(ModuleFetcher, "weather API call failed", &exception.NetworkFailure{URL: display, Err: err})
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, exception.NewNetworkError(ModuleFetcher, "failed to read weather API response", &exception.NetworkFailure{URL: display, StatusCode: 0, Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, exception.NewNetworkError(ModuleFetcher,
			fmt.Sprintf("weather API returned status %d", resp.StatusCode),
			&exception.NetworkFailure{URL: display, StatusCode: resp.StatusCode, Body: trimBody(body)})
	}
	return body, nil
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyLength {
		return s[:maxErrorBodyLength] + "..."
	}
	return s
}
