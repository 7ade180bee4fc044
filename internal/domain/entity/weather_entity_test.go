package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/domain/entity"
)

func sampleRecord() entity.FlatWeatherRecord {
	visibility := 10000
	rain := 0.25
	return entity.FlatWeatherRecord{
		City:                "Hanoi",
		Latitude:            21.0285,
		Longitude:           105.8542,
		MainWeather:         "Rain",
		Description:         "light rain",
		Temp:                30.1,
		FeelsLike:           33,
		TempMin:             28,
		TempMax:             32,
		Pressure:            1008,
		Humidity:            70,
		Visibility:          &visibility,
		WindSpeed:           2.1,
		WindDeg:             90,
		CloudsAll:           10,
		DataTime:            time.Unix(1718000000, 0).UTC(),
		Sunrise:             time.Unix(1717977600, 0).UTC(),
		Sunset:              time.Unix(1718020800, 0).UTC(),
		RecordIngestionTime: time.Date(2024, 6, 10, 6, 15, 0, 123456000, time.UTC),
		Rain1h:              &rain,
	}
}

func TestValues_FollowColumnOrder(t *testing.T) {
	r := sampleRecord()
	values := r.Values()

	require.Len(t, values, len(entity.Columns()))
	assert.Equal(t, "Hanoi", values[0])
	assert.Equal(t, "30.1", values[5])
	assert.Equal(t, "1008", values[9])
	assert.Equal(t, "10000", values[11])
	assert.Equal(t, "2024-06-10T06:13:20Z", values[15])
	assert.Equal(t, "2024-06-10T06:15:00.123456Z", values[18])
	assert.Equal(t, "0.25", values[19])
	assert.Equal(t, "", values[20])
}

func TestParseFlatWeatherRecord_RoundTrip(t *testing.T) {
	r := sampleRecord()

	parsed, err := entity.ParseFlatWeatherRecord(entity.Columns(), r.Values())

	require.NoError(t, err)
	assert.Equal(t, r, parsed)
	assert.Nil(t, parsed.Snow1h)
}

func TestParseFlatWeatherRecord_HeaderDriven(t *testing.T) {
	parsed, err := entity.ParseFlatWeatherRecord(
		[]string{"temp", "city", "visibility", "extra"},
		[]string{"12.5", "Oslo", "", "ignored"},
	)

	require.NoError(t, err)
	assert.Equal(t, "Oslo", parsed.City)
	assert.Equal(t, 12.5, parsed.Temp)
	assert.Nil(t, parsed.Visibility)
}

func TestParseFlatWeatherRecord_Invalid(t *testing.T) {
	_, err := entity.ParseFlatWeatherRecord([]string{"data_time"}, []string{"yesterday"})
	assert.ErrorContains(t, err, "column data_time")

	_, err = entity.ParseFlatWeatherRecord([]string{"pressure"}, []string{"10.5"})
	assert.ErrorContains(t, err, "column pressure")

	_, err = entity.ParseFlatWeatherRecord([]string{"city", "temp"}, []string{"Hanoi"})
	assert.Error(t, err)
}

func TestMissingColumn(t *testing.T) {
	assert.Equal(t, "", entity.MissingColumn(entity.Columns()))
	assert.Equal(t, "", entity.MissingColumn(append([]string{"extra"}, entity.Columns()...)))
	assert.Equal(t, "latitude", entity.MissingColumn([]string{"city", "temp"}))

	withoutIngestion := make([]string, 0, len(entity.Columns()))
	for _, c := range entity.Columns() {
		if c != "record_ingestion_time" {
			withoutIngestion = append(withoutIngestion, c)
		}
	}
	assert.Equal(t, "record_ingestion_time", entity.MissingColumn(withoutIngestion))
}

func TestFlatWeatherRecord_TableName(t *testing.T) {
	assert.Equal(t, "weather_data", entity.FlatWeatherRecord{}.TableName())
}
