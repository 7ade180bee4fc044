package transformer_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/domain/entity"
	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/internal/step/transformer"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

const hanoiJSON = `{"name":"Hanoi","coord":{"lat":21.0,"lon":105.8},"weather":[{"main":"Clear","description":"clear sky"}],"main":{"temp":30.1,"feels_like":33.0,"temp_min":28.0,"temp_max":32.0,"pressure":1008,"humidity":70},"wind":{"speed":2.1,"deg":90},"clouds":{"all":10},"dt":1718000000,"sys":{"sunrise":1717977600,"sunset":1718020800}}`

var ingestedAt = time.Date(2024, 6, 10, 6, 20, 5, 0, time.UTC)

func clock() time.Time { return ingestedAt }

func writeRaw(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather_raw_Hanoi_20240610_062000.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decode(t *testing.T, content string) *entity.RawWeatherRecord {
	t.Helper()
	var raw entity.RawWeatherRecord
	require.NoError(t, json.Unmarshal([]byte(content), &raw))
	return &raw
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestFlatten_WellFormedDocument(t *testing.T) {
	record, err := transformer.Flatten(decode(t, hanoiJSON), ingestedAt)

	require.NoError(t, err)
	assert.Equal(t, "Hanoi", record.City)
	assert.Equal(t, 21.0, record.Latitude)
	assert.Equal(t, 105.8, record.Longitude)
	assert.Equal(t, "Clear", record.MainWeather)
	assert.Equal(t, "clear sky", record.Description)
	assert.Equal(t, 30.1, record.Temp)
	assert.Equal(t, 33.0, record.FeelsLike)
	assert.Equal(t, 28.0, record.TempMin)
	assert.Equal(t, 32.0, record.TempMax)
	assert.Equal(t, 1008, record.Pressure)
	assert.Equal(t, 70, record.Humidity)
	assert.Nil(t, record.Visibility)
	assert.Equal(t, 2.1, record.WindSpeed)
	assert.Equal(t, 90, record.WindDeg)
	assert.Equal(t, 10, record.CloudsAll)
	assert.Equal(t, time.Date(2024, 6, 10, 6, 13, 20, 0, time.UTC), record.DataTime)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), record.Sunrise)
	assert.Equal(t, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC), record.Sunset)
	assert.Equal(t, ingestedAt, record.RecordIngestionTime)
	assert.Nil(t, record.Rain1h)
	assert.Nil(t, record.Snow1h)
}

func TestFlatten_OptionalFields(t *testing.T) {
	doc := strings.Replace(hanoiJSON, `"clouds":{"all":10}`, `"clouds":{"all":10},"visibility":9000,"rain":{"1h":0.42},"snow":{"3h":1.5}`, 1)

	record, err := transformer.Flatten(decode(t, doc), ingestedAt)

	require.NoError(t, err)
	require.NotNil(t, record.Visibility)
	assert.Equal(t, 9000, *record.Visibility)
	require.NotNil(t, record.Rain1h)
	assert.Equal(t, 0.42, *record.Rain1h)
	assert.Nil(t, record.Snow1h)
}

func TestFlatten_MissingNameFallsBackToUnknown(t *testing.T) {
	doc := strings.Replace(hanoiJSON, `"name":"Hanoi",`, ``, 1)

	record, err := transformer.Flatten(decode(t, doc), ingestedAt)

	require.NoError(t, err)
	assert.Equal(t, transformer.UnknownCity, record.City)
}

func TestFlatten_MissingRequiredFields(t *testing.T) {
	cases := map[string]struct {
		from, to string
		field    string
	}{
		"temp":        {`"temp":30.1,`, ``, "main.temp"},
		"main block":  {`"main":{"temp":30.1,"feels_like":33.0,"temp_min":28.0,"temp_max":32.0,"pressure":1008,"humidity":70},`, ``, "main.temp"},
		"weather":     {`"weather":[{"main":"Clear","description":"clear sky"}],`, `"weather":[],`, "weather[0].main"},
		"coordinates": {`"coord":{"lat":21.0,"lon":105.8},`, `"coord":{"lat":21.0},`, "coord.lon"},
		"sunset":      {`,"sunset":1718020800`, ``, "sys.sunset"},
		"dt":          {`"dt":1718000000,`, ``, "dt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			doc := strings.Replace(hanoiJSON, tc.from, tc.to, 1)
			require.NotEqual(t, hanoiJSON, doc)

			_, err := transformer.Flatten(decode(t, doc), ingestedAt)

			require.Error(t, err)
			assert.ErrorIs(t, err, exception.ErrMissingField)
			assert.Equal(t, tc.field, exception.MissingFieldName(err))
		})
	}
}

func TestTransform_WritesSingleRowCSV(t *testing.T) {
	tr := transformer.NewTransformer(transformer.WithClock(clock))
	outputDir := filepath.Join(t.TempDir(), "processed")

	artifact, err := tr.Transform(context.Background(), writeRaw(t, hanoiJSON), outputDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "weather_processed_Hanoi_20240610_062005.csv"), artifact.Path)
	assert.Equal(t, model.StageProcessed, artifact.Stage)
	assert.Equal(t, "Hanoi", artifact.City)

	rows := readCSV(t, artifact.Path)
	require.Len(t, rows, 2)
	assert.Equal(t, entity.Columns(), rows[0])
	assert.Equal(t, []string{
		"Hanoi", "21", "105.8", "Clear", "clear sky", "30.1", "33", "28", "32", "1008", "70", "",
		"2.1", "90", "10",
		"2024-06-10T06:13:20Z", "2024-06-10T00:00:00Z", "2024-06-10T12:00:00Z", "2024-06-10T06:20:05Z",
		"", "",
	}, rows[1])
}

func TestTransform_MissingFieldWritesNothing(t *testing.T) {
	tr := transformer.NewTransformer(transformer.WithClock(clock))
	outputDir := t.TempDir()
	doc := strings.Replace(hanoiJSON, `"temp":30.1,`, ``, 1)

	_, err := tr.Transform(context.Background(), writeRaw(t, doc), outputDir)

	require.Error(t, err)
	assert.Equal(t, "main.temp", exception.MissingFieldName(err))
	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransform_InputNotFound(t *testing.T) {
	tr := transformer.NewTransformer()

	_, err := tr.Transform(context.Background(), filepath.Join(t.TempDir(), "missing.json"), t.TempDir())

	assert.ErrorIs(t, err, exception.ErrNotFound)
}

func TestTransform_InvalidJSON(t *testing.T) {
	tr := transformer.NewTransformer()

	_, err := tr.Transform(context.Background(), writeRaw(t, `{"name":`), t.TempDir())

	assert.ErrorIs(t, err, exception.ErrParse)
}
