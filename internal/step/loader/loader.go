// Package loader appends processed weather rows to a database table.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/tigerroll/weather-etl/internal/domain/entity"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const (
	ModuleLoader = "Loader"

	// DefaultDBRef is the adapter.database connection used when none is configured.
	DefaultDBRef = "workload"
)

// Loader appends the rows of a processed file to a table. Rows are never updated or deduplicated.
type Loader struct {
	resolver database.DBConnectionResolver
	dbRef    string
}

// NewLoader creates a Loader writing through the connection named dbRef (DefaultDBRef when empty).
func NewLoader(resolver database.DBConnectionResolver, dbRef string) *Loader {
	if dbRef == "" {
		dbRef = DefaultDBRef
	}
	return &Loader{resolver: resolver, dbRef: dbRef}
}

// Load reads inputPath and appends its rows to tableName, creating the table from the row
// mapping if it does not exist. The file is read before any database interaction.
func (l *Loader) Load(ctx context.Context, inputPath, tableName string) (int64, error) {
	if tableName == "" {
		tableName = entity.DefaultTableName
	}
	logger.Infof("Loading data from %s into table '%s'...", inputPath, tableName)

	records, err := ReadRecords(inputPath)
	if err != nil {
		logger.Errorf("%v", err)
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	conn, err := l.resolver.ResolveDBConnection(ctx, l.dbRef)
	if err != nil {
		return 0, l.fail(ctx, fmt.Sprintf("failed to connect to database '%s'", l.dbRef), err)
	}

	exists, err := conn.HasTable(ctx, tableName)
	if err != nil {
		return 0, l.fail(ctx, fmt.Sprintf("failed to check table '%s'", tableName), err)
	}
	if !exists {
		logger.Infof("Table '%s' does not exist. Creating it.", tableName)
		if err := conn.AutoMigrate(ctx, tableName, &entity.FlatWeatherRecord{}); err != nil {
			return 0, l.fail(ctx, fmt.Sprintf("failed to create table '%s'", tableName), err)
		}
	}

	if len(records) == 0 {
		logger.Warnf("No rows in %s. Nothing to load.", inputPath)
		return 0, nil
	}
	appended, err := conn.ExecuteInsert(ctx, tableName, &records)
	if err != nil {
		return 0, l.fail(ctx, fmt.Sprintf("failed to append rows to '%s'", tableName), err)
	}

	logger.WithFields(logger.Fields{"table": tableName, "rows": appended, "input": inputPath}).
		Info("Data loaded successfully.")
	return appended, nil
}

func (l *Loader) fail(ctx context.Context, message string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	dbErr := exception.NewDatabaseError(ModuleLoader, message, err)
	logger.Errorf("Error loading data into database: %v", dbErr)
	return dbErr
}

// ReadRecords parses a processed file. Columns are mapped by header name.
func ReadRecords(path string) ([]entity.FlatWeatherRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.NewNotFoundError(ModuleLoader, fmt.Sprintf("input file not found at %s", path), err)
		}
		return nil, exception.NewBatchError(ModuleLoader, fmt.Sprintf("failed to open %s", path), err, false, false)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, exception.NewParseError(ModuleLoader, fmt.Sprintf("%s has no header", path), err)
		}
		return nil, exception.NewParseError(ModuleLoader, fmt.Sprintf("malformed CSV in %s", path), err)
	}
	if missing := entity.MissingColumn(header); missing != "" {
		return nil, exception.NewParseError(ModuleLoader, fmt.Sprintf("%s has no '%s' column", path, missing), nil)
	}

	var records []entity.FlatWeatherRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, exception.NewParseError(ModuleLoader, fmt.Sprintf("malformed CSV in %s", path), err)
		}
		record, err := entity.ParseFlatWeatherRecord(header, row)
		if err != nil {
			return nil, exception.NewParseError(ModuleLoader, fmt.Sprintf("%s line %d", path, line), err)
		}
		records = append(records, record)
	}
	return records, nil
}
