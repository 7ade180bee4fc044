package entity

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the text form of the timestamp columns.
const TimestampLayout = time.RFC3339Nano

// Values returns the row in Columns order. Absent optional values are empty strings.
func (r *FlatWeatherRecord) Values() []string {
	return []string{
		r.City,
		formatFloat(r.Latitude),
		formatFloat(r.Longitude),
		r.MainWeather,
		r.Description,
		formatFloat(r.Temp),
		formatFloat(r.FeelsLike),
		formatFloat(r.TempMin),
		formatFloat(r.TempMax),
		strconv.Itoa(r.Pressure),
		strconv.Itoa(r.Humidity),
		formatOptionalInt(r.Visibility),
		formatFloat(r.WindSpeed),
		strconv.Itoa(r.WindDeg),
		strconv.Itoa(r.CloudsAll),
		r.DataTime.UTC().Format(TimestampLayout),
		r.Sunrise.UTC().Format(TimestampLayout),
		r.Sunset.UTC().Format(TimestampLayout),
		r.RecordIngestionTime.UTC().Format(TimestampLayout),
		formatOptionalFloat(r.Rain1h),
		formatOptionalFloat(r.Snow1h),
	}
}

// MissingColumn returns the first of Columns() absent from header, or "" if header is complete.
func MissingColumn(header []string) string {
	present := make(map[string]struct{}, len(header))
	for _, column := range header {
		present[column] = struct{}{}
	}
	for _, column := range Columns() {
		if _, ok := present[column]; !ok {
			return column
		}
	}
	return ""
}

// ParseFlatWeatherRecord builds a record from one row, mapping values by header name.
// Unknown columns are ignored. A missing column leaves the field at its zero value, so callers
// check the header with MissingColumn first.
func ParseFlatWeatherRecord(header, row []string) (FlatWeatherRecord, error) {
	var r FlatWeatherRecord
	if len(row) != len(header) {
		return r, fmt.Errorf("row has %d values, header has %d", len(row), len(header))
	}

	var err error
	for i, column := range header {
		v := row[i]
		switch column {
		case "city":
			r.City = v
		case "latitude":
			r.Latitude, err = parseFloat(column, v)
		case "longitude":
			r.Longitude, err = parseFloat(column, v)
		case "main_weather":
			r.MainWeather = v
		case "description":
			r.Description = v
		case "temp":
			r.Temp, err = parseFloat(column, v)
		case "feels_like":
			r.FeelsLike, err = parseFloat(column, v)
		case "temp_min":
			r.TempMin, err = parseFloat(column, v)
		case "temp_max":
			r.TempMax, err = parseFloat(column, v)
		case "pressure":
			r.Pressure, err = parseInt(column, v)
		case "humidity":
			r.Humidity, err = parseInt(column, v)
		case "visibility":
			r.Visibility, err = parseOptionalInt(column, v)
		case "wind_speed":
			r.WindSpeed, err = parseFloat(column, v)
		case "wind_deg":
			r.WindDeg, err = parseInt(column, v)
		case "clouds_all":
			r.CloudsAll, err = parseInt(column, v)
		case "data_time":
			r.DataTime, err = parseTime(column, v)
		case "sunrise":
			r.Sunrise, err = parseTime(column, v)
		case "sunset":
			r.Sunset, err = parseTime(column, v)
		case "record_ingestion_time":
			r.RecordIngestionTime, err = parseTime(column, v)
		case "rain_1h":
			r.Rain1h, err = parseOptionalFloat(column, v)
		case "snow_1h":
			r.Snow1h, err = parseOptionalFloat(column, v)
		}
		if err != nil {
			return r, err
		}
	}
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseFloat(column, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid number %q", column, v)
	}
	return f, nil
}

func parseInt(column, v string) (int, error) {
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid integer %q", column, v)
	}
	return i, nil
}

func parseOptionalFloat(column, v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := parseFloat(column, v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseOptionalInt(column, v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	i, err := parseInt(column, v)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func parseTime(column, v string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("column %s: invalid timestamp %q", column, v)
	}
	return t.UTC(), nil
}
