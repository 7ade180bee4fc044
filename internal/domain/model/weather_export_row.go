package model

import (
	"github.com/tigerroll/weather-etl/internal/domain/entity"
)

// WeatherExportRow is a weather row as written to parquet. Timestamps are epoch milliseconds.
type WeatherExportRow struct {
	City                string   `parquet:"name=city, type=BYTE_ARRAY, convertedtype=UTF8"`
	Latitude            float64  `parquet:"name=latitude, type=DOUBLE"`
	Longitude           float64  `parquet:"name=longitude, type=DOUBLE"`
	MainWeather         string   `parquet:"name=main_weather, type=BYTE_ARRAY, convertedtype=UTF8"`
	Description         string   `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
	Temp                float64  `parquet:"name=temp, type=DOUBLE"`
	FeelsLike           float64  `parquet:"name=feels_like, type=DOUBLE"`
	TempMin             float64  `parquet:"name=temp_min, type=DOUBLE"`
	TempMax             float64  `parquet:"name=temp_max, type=DOUBLE"`
	Pressure            int32    `parquet:"name=pressure, type=INT32"`
	Humidity            int32    `parquet:"name=humidity, type=INT32"`
	Visibility          *int32   `parquet:"name=visibility, type=INT32, repetitiontype=OPTIONAL"`
	WindSpeed           float64  `parquet:"name=wind_speed, type=DOUBLE"`
	WindDeg             int32    `parquet:"name=wind_deg, type=INT32"`
	CloudsAll           int32    `parquet:"name=clouds_all, type=INT32"`
	DataTime            int64    `parquet:"name=data_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Sunrise             int64    `parquet:"name=sunrise, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Sunset              int64    `parquet:"name=sunset, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	RecordIngestionTime int64    `parquet:"name=record_ingestion_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Rain1h              *float64 `parquet:"name=rain_1h, type=DOUBLE, repetitiontype=OPTIONAL"`
	Snow1h              *float64 `parquet:"name=snow_1h, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// NewWeatherExportRow converts a loaded row.
func NewWeatherExportRow(r entity.FlatWeatherRecord) WeatherExportRow {
	row := WeatherExportRow{
		City:                r.City,
		Latitude:            r.Latitude,
		Longitude:           r.Longitude,
		MainWeather:         r.MainWeather,
		Description:         r.Description,
		Temp:                r.Temp,
		FeelsLike:           r.FeelsLike,
		TempMin:             r.TempMin,
		TempMax:             r.TempMax,
		Pressure:            int32(r.Pressure),
		Humidity:            int32(r.Humidity),
		WindSpeed:           r.WindSpeed,
		WindDeg:             int32(r.WindDeg),
		CloudsAll:           int32(r.CloudsAll),
		DataTime:            r.DataTime.UnixMilli(),
		Sunrise:             r.Sunrise.UnixMilli(),
		Sunset:              r.Sunset.UnixMilli(),
		RecordIngestionTime: r.RecordIngestionTime.UnixMilli(),
		Rain1h:              r.Rain1h,
		Snow1h:              r.Snow1h,
	}
	if r.Visibility != nil {
		v := int32(*r.Visibility)
		row.Visibility = &v
	}
	return row
}
