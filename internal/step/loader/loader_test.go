package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/weather-etl/internal/domain/entity"
	"github.com/tigerroll/weather-etl/internal/step/loader"
	"github.com/tigerroll/weather-etl/internal/step/transformer"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	batchtest "github.com/tigerroll/weather-etl/pkg/batch/test"
)

const hanoiJSON = `{"name":"Hanoi","coord":{"lat":21.0,"lon":105.8},"weather":[{"main":"Clear","description":"clear sky"}],"main":{"temp":30.1,"feels_like":33.0,"temp_min":28.0,"temp_max":32.0,"pressure":1008,"humidity":70},"wind":{"speed":2.1,"deg":90},"clouds":{"all":10},"dt":1718000000,"sys":{"sunrise":1717977600,"sunset":1718020800}}`

func resolverFor(conn database.DBConnection, name string) *batchtest.MockDBConnectionResolver {
	resolver := &batchtest.MockDBConnectionResolver{}
	resolver.On("ResolveDBConnection", testifymock.Anything, name).Return(conn, nil)
	return resolver
}

func newMockConnection(t *testing.T) (database.DBConnection, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "postgres"}, "workload")
	require.NoError(t, err)
	return conn, mock
}

func writeProcessed(t *testing.T) string {
	t.Helper()
	raw := filepath.Join(t.TempDir(), "raw.json")
	require.NoError(t, os.WriteFile(raw, []byte(hanoiJSON), 0o644))
	tr := transformer.NewTransformer(transformer.WithClock(func() time.Time {
		return time.Date(2024, 6, 10, 6, 20, 5, 0, time.UTC)
	}))
	artifact, err := tr.Transform(context.Background(), raw, t.TempDir())
	require.NoError(t, err)
	return artifact.Path
}

func TestLoad_MissingFileNeverTouchesDatabase(t *testing.T) {
	conn, mock := newMockConnection(t)
	resolver := resolverFor(conn, "workload")

	_, err := loader.NewLoader(resolver, "workload").Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "weather_data")

	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrNotFound)
	resolver.AssertNotCalled(t, "ResolveDBConnection", testifymock.Anything, testifymock.Anything)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_AppendsWithSingleInsert(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(`information_schema`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO "weather_data"`).WillReturnResult(sqlmock.NewResult(0, 1))

	resolver := resolverFor(conn, loader.DefaultDBRef)

	appended, err := loader.NewLoader(resolver, "").Load(context.Background(), writeProcessed(t), "weather_data")

	require.NoError(t, err)
	assert.Equal(t, int64(1), appended)
	resolver.AssertExpectations(t)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_DatabaseFailureIsRetryable(t *testing.T) {
	conn, mock := newMockConnection(t)
	mock.ExpectQuery(`information_schema`).WillReturnError(errors.New("connection reset by peer"))

	_, err := loader.NewLoader(resolverFor(conn, "workload"), "workload").Load(context.Background(), writeProcessed(t), "weather_data")

	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrDatabase)
	assert.True(t, exception.IsTemporary(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// csvWith writes a processed file with the full header and the values of a valid row,
// after edit has been applied to the column -> value map.
func csvWith(t *testing.T, dir, name string, columns []string, edit func(values map[string]string)) string {
	t.Helper()
	records, err := loader.ReadRecords(writeProcessed(t))
	require.NoError(t, err)
	require.Len(t, records, 1)

	values := make(map[string]string, len(entity.Columns()))
	for i, v := range records[0].Values() {
		values[entity.Columns()[i]] = v
	}
	if edit != nil {
		edit(values)
	}
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = values[c]
	}
	path := filepath.Join(dir, name)
	content := strings.Join(columns, ",") + "\n" + strings.Join(row, ",") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func withoutColumn(column string) []string {
	var columns []string
	for _, c := range entity.Columns() {
		if c != column {
			columns = append(columns, c)
		}
	}
	return columns
}

func TestReadRecords_Malformed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := loader.ReadRecords(empty)
	assert.ErrorIs(t, err, exception.ErrParse)

	badTime := csvWith(t, dir, "bad.csv", entity.Columns(), func(v map[string]string) { v["data_time"] = "yesterday" })
	_, err = loader.ReadRecords(badTime)
	assert.ErrorIs(t, err, exception.ErrParse)
	assert.ErrorContains(t, err, "line 2")

	ragged := filepath.Join(dir, "ragged.csv")
	require.NoError(t, os.WriteFile(ragged, []byte(strings.Join(entity.Columns(), ",")+"\nHanoi\n"), 0o644))
	_, err = loader.ReadRecords(ragged)
	assert.ErrorIs(t, err, exception.ErrParse)
}

func TestReadRecords_MissingColumn(t *testing.T) {
	dir := t.TempDir()

	partial := filepath.Join(dir, "partial.csv")
	require.NoError(t, os.WriteFile(partial, []byte("city,temp\nHanoi,30.1\n"), 0o644))
	records, err := loader.ReadRecords(partial)
	assert.ErrorIs(t, err, exception.ErrParse)
	assert.ErrorContains(t, err, "latitude")
	assert.Nil(t, records)

	for _, column := range []string{"data_time", "sunrise", "sunset", "record_ingestion_time"} {
		t.Run(column, func(t *testing.T) {
			path := csvWith(t, t.TempDir(), "no_"+column+".csv", withoutColumn(column), nil)
			_, err := loader.ReadRecords(path)
			assert.ErrorIs(t, err, exception.ErrParse)
			assert.ErrorContains(t, err, "'"+column+"'")
		})
	}
}

func TestLoad_MissingColumnNeverTouchesDatabase(t *testing.T) {
	conn, mock := newMockConnection(t)
	resolver := resolverFor(conn, "workload")
	path := csvWith(t, t.TempDir(), "no_data_time.csv", withoutColumn("data_time"), nil)

	rows, err := loader.NewLoader(resolver, "workload").Load(context.Background(), path, "weather_data")

	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrParse)
	assert.False(t, exception.IsTemporary(err))
	assert.Zero(t, rows)
	resolver.AssertNotCalled(t, "ResolveDBConnection", testifymock.Anything, testifymock.Anything)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewConfig()
	cfg.Surfin.Adapter.Database["local"] = dbconfig.DatabaseConfig{
		Type:     sqlite.ProviderType,
		Database: filepath.Join(t.TempDir(), "weather.db"),
	}
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })

	path := writeProcessed(t)
	want, err := loader.ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, want, 1)

	l := loader.NewLoader(resolver, "local")
	appended, err := l.Load(ctx, path, "weather_data")
	require.NoError(t, err)
	assert.Equal(t, int64(1), appended)

	// Append-only: loading the same file again adds a second identical row.
	_, err = l.Load(ctx, path, "weather_data")
	require.NoError(t, err)

	conn, err := resolver.ResolveDBConnection(ctx, "local")
	require.NoError(t, err)
	var rows []entity.FlatWeatherRecord
	require.NoError(t, conn.ExecuteQueryAdvanced(ctx, &rows, "weather_data", nil, "", 0))
	require.Len(t, rows, 2)

	got := rows[0]
	assert.Equal(t, want[0].City, got.City)
	assert.Equal(t, "Hanoi", got.City)
	assert.Equal(t, 30.1, got.Temp)
	assert.Equal(t, 2.1, got.WindSpeed)
	assert.Equal(t, 1008, got.Pressure)
	assert.Nil(t, got.Visibility)
	assert.Nil(t, got.Rain1h)
	assert.Nil(t, got.Snow1h)
	assert.True(t, want[0].DataTime.Equal(got.DataTime), "data_time %v != %v", want[0].DataTime, got.DataTime)
	assert.True(t, want[0].RecordIngestionTime.Equal(got.RecordIngestionTime))
}
