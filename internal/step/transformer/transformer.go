// Package transformer flattens a raw weather document into a single-row CSV artifact.
package transformer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tigerroll/weather-etl/internal/domain/entity"
	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const (
	ModuleTransformer = "Transformer"

	// UnknownCity is used when the document has no "name".
	UnknownCity = "Unknown"
)

// Transformer flattens a raw weather document into a one-row CSV file.
type Transformer struct {
	now func() time.Time
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithClock replaces the clock used for the ingestion time and the file name.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) { t.now = now }
}

// NewTransformer creates a Transformer using the wall clock unless WithClock is given.
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform reads the raw document at inputPath and writes the flattened record to
// <outputDir>/weather_processed_<city>_<YYYYMMDD_HHMMSS>.csv. Nothing is written when a
// required field is missing.
func (t *Transformer) Transform(ctx context.Context, inputPath, outputDir string) (model.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return model.Artifact{}, err
	}
	logger.Infof("Transforming data from %s...", inputPath)

	content, err := os.ReadFile(inputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			notFound := exception.NewNotFoundError(ModuleTransformer, fmt.Sprintf("input file not found at %s", inputPath), err)
			logger.Errorf("%v", notFound)
			return model.Artifact{}, notFound
		}
		return model.Artifact{}, exception.NewBatchError(ModuleTransformer, fmt.Sprintf("failed to read %s", inputPath), err, false, false)
	}

	var raw entity.RawWeatherRecord
	if err := json.Unmarshal(content, &raw); err != nil {
		parseErr := exception.NewParseError(ModuleTransformer, fmt.Sprintf("could not decode JSON from %s", inputPath), err)
		logger.Errorf("%v", parseErr)
		return model.Artifact{}, parseErr
	}

	now := t.now().UTC()
	record, err := Flatten(&raw, now)
	if err != nil {
		logger.WithFields(logger.Fields{"input": inputPath, "field": exception.MissingFieldName(err)}).
			Errorf("Error during data transformation: %v", err)
		return model.Artifact{}, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(entity.Columns()); err != nil {
		return model.Artifact{}, exception.NewBatchError(ModuleTransformer, "failed to encode CSV header", err, false, false)
	}
	if err := w.Write(record.Values()); err != nil {
		return model.Artifact{}, exception.NewBatchError(ModuleTransformer, "failed to encode CSV row", err, false, false)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return model.Artifact{}, exception.NewBatchError(ModuleTransformer, "failed to encode CSV", err, false, false)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return model.Artifact{}, exception.NewBatchError(ModuleTransformer, fmt.Sprintf("failed to create output directory %s", outputDir), err, false, false)
	}
	path := filepath.Join(outputDir, model.ProcessedFileName(record.City, now))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return model.Artifact{}, exception.NewBatchError(ModuleTransformer, fmt.Sprintf("failed to write processed data to %s", path), err, false, false)
	}

	logger.WithFields(logger.Fields{"city": record.City, "path": path}).Info("Processed data saved.")
	return model.NewArtifact(model.StageProcessed, record.City, path, now), nil
}

// Flatten maps raw onto a FlatWeatherRecord. The first missing required field is reported as a
// MissingFieldError carrying its dotted path.
func Flatten(raw *entity.RawWeatherRecord, ingestedAt time.Time) (*entity.FlatWeatherRecord, error) {
	r := &entity.FlatWeatherRecord{
		City:                UnknownCity,
		RecordIngestionTime: ingestedAt.UTC(),
		Visibility:          raw.Visibility,
	}
	if raw.Name != nil {
		r.City = *raw.Name
	}

	var coord entity.Coord
	if raw.Coord != nil {
		coord = *raw.Coord
	}
	var condition entity.Condition
	if len(raw.Weather) > 0 {
		condition = raw.Weather[0]
	}
	var readings entity.MainBlock
	if raw.Main != nil {
		readings = *raw.Main
	}
	var wind entity.Wind
	if raw.Wind != nil {
		wind = *raw.Wind
	}
	var clouds entity.Clouds
	if raw.Clouds != nil {
		clouds = *raw.Clouds
	}
	var sys entity.Sys
	if raw.Sys != nil {
		sys = *raw.Sys
	}

	f := &fields{}
	r.Latitude = f.requireFloat("coord.lat", coord.Lat)
	r.Longitude = f.requireFloat("coord.lon", coord.Lon)
	r.MainWeather = f.requireString("weather[0].main", condition.Main)
	r.Description = f.requireString("weather[0].description", condition.Description)
	r.Temp = f.requireFloat("main.temp", readings.Temp)
	r.FeelsLike = f.requireFloat("main.feels_like", readings.FeelsLike)
	r.TempMin = f.requireFloat("main.temp_min", readings.TempMin)
	r.TempMax = f.requireFloat("main.temp_max", readings.TempMax)
	r.Pressure = f.requireInt("main.pressure", readings.Pressure)
	r.Humidity = f.requireInt("main.humidity", readings.Humidity)
	r.WindSpeed = f.requireFloat("wind.speed", wind.Speed)
	r.WindDeg = f.requireInt("wind.deg", wind.Deg)
	r.CloudsAll = f.requireInt("clouds.all", clouds.All)
	r.DataTime = f.requireEpoch("dt", raw.Dt)
	r.Sunrise = f.requireEpoch("sys.sunrise", sys.Sunrise)
	r.Sunset = f.requireEpoch("sys.sunset", sys.Sunset)
	if f.missing != "" {
		return nil, exception.NewMissingFieldError(ModuleTransformer, f.missing)
	}

	if raw.Rain != nil {
		r.Rain1h = raw.Rain.OneHour
	}
	if raw.Snow != nil {
		r.Snow1h = raw.Snow.OneHour
	}
	return r, nil
}

// fields remembers the first absent required field.
type fields struct {
	missing string
}

func (f *fields) absent(path string) {
	if f.missing == "" {
		f.missing = path
	}
}

func (f *fields) requireFloat(path string, v *float64) float64 {
	if v == nil {
		f.absent(path)
		return 0
	}
	return *v
}

func (f *fields) requireInt(path string, v *int) int {
	if v == nil {
		f.absent(path)
		return 0
	}
	return *v
}

func (f *fields) requireString(path string, v *string) string {
	if v == nil {
		f.absent(path)
		return ""
	}
	return *v
}

func (f *fields) requireEpoch(path string, v *int64) time.Time {
	if v == nil {
		f.absent(path)
		return time.Time{}
	}
	return time.Unix(*v, 0).UTC()
}
