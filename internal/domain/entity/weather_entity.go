// Package entity holds the records read from the weather API and written to the database.
package entity

import "time"

// DefaultTableName is the table weather rows are appended to.
const DefaultTableName = "weather_data"

// Coord is the location block of a current-weather response.
type Coord struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Condition is one entry of the "weather" array.
type Condition struct {
	Main        *string `json:"main"`
	Description *string `json:"description"`
}

// MainBlock holds the temperature, pressure and humidity readings.
type MainBlock struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	TempMin   *float64 `json:"temp_min"`
	TempMax   *float64 `json:"temp_max"`
	Pressure  *int     `json:"pressure"`
	Humidity  *int     `json:"humidity"`
}

// Wind is the "wind" block. Speed is in the requested units.
type Wind struct {
	Speed *float64 `json:"speed"`
	Deg   *int     `json:"deg"`
}

// Clouds is the "clouds" block; All is cloudiness in percent.
type Clouds struct {
	All *int `json:"all"`
}

// Sys carries sunrise and sunset as epoch seconds.
type Sys struct {
	Sunrise *int64 `json:"sunrise"`
	Sunset  *int64 `json:"sunset"`
}

// Precipitation is the "rain" or "snow" block.
type Precipitation struct {
	OneHour *float64 `json:"1h"`
}

// RawWeatherRecord is the decoded current-weather document. Every field is optional so that
// absence can be told apart from a zero value.
type RawWeatherRecord struct {
	Name       *string        `json:"name"`
	Coord      *Coord         `json:"coord"`
	Weather    []Condition    `json:"weather"`
	Main       *MainBlock     `json:"main"`
	Visibility *int           `json:"visibility"`
	Wind       *Wind          `json:"wind"`
	Clouds     *Clouds        `json:"clouds"`
	Dt         *int64         `json:"dt"`
	Sys        *Sys           `json:"sys"`
	Rain       *Precipitation `json:"rain"`
	Snow       *Precipitation `json:"snow"`
}

// FlatWeatherRecord is one row of the weather table. Timestamps are UTC.
type FlatWeatherRecord struct {
	City                string    `gorm:"column:city"`
	Latitude            float64   `gorm:"column:latitude"`
	Longitude           float64   `gorm:"column:longitude"`
	MainWeather         string    `gorm:"column:main_weather"`
	Description         string    `gorm:"column:description"`
	Temp                float64   `gorm:"column:temp"`
	FeelsLike           float64   `gorm:"column:feels_like"`
	TempMin             float64   `gorm:"column:temp_min"`
	TempMax             float64   `gorm:"column:temp_max"`
	Pressure            int       `gorm:"column:pressure"`
	Humidity            int       `gorm:"column:humidity"`
	Visibility          *int      `gorm:"column:visibility"`
	WindSpeed           float64   `gorm:"column:wind_speed"`
	WindDeg             int       `gorm:"column:wind_deg"`
	CloudsAll           int       `gorm:"column:clouds_all"`
	DataTime            time.Time `gorm:"column:data_time"`
	Sunrise             time.Time `gorm:"column:sunrise"`
	Sunset              time.Time `gorm:"column:sunset"`
	RecordIngestionTime time.Time `gorm:"column:record_ingestion_time"`
	Rain1h              *float64  `gorm:"column:rain_1h"`
	Snow1h              *float64  `gorm:"column:snow_1h"`
}

// TableName specifies the default table name for FlatWeatherRecord.
func (FlatWeatherRecord) TableName() string {
	return DefaultTableName
}

// Columns returns the column names in file order.
func Columns() []string {
	return []string{
		"city", "latitude", "longitude", "main_weather", "description",
		"temp", "feels_like", "temp_min", "temp_max", "pressure", "humidity", "visibility",
		"wind_speed", "wind_deg", "clouds_all",
		"data_time", "sunrise", "sunset", "record_ingestion_time",
		"rain_1h", "snow_1h",
	}
}
