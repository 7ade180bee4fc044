package tasklet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/weather-etl/internal/domain/entity"
	weathermodel "github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/weather-etl/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const (
	ModuleExportTasklet = "WeatherExportTasklet"

	// ExportedObjectsKey holds the object names written by the export step.
	ExportedObjectsKey = "weather.exported_objects"

	partitionLayout = "2006-01-02"
)

// WeatherExportTaskletConfig holds the step properties of WeatherExportTasklet.
type WeatherExportTaskletConfig struct {
	DBRef           string `yaml:"dbRef"`
	TableName       string `yaml:"tableName"`
	StorageRef      string `yaml:"storageRef"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	LookbackHours   int    `yaml:"lookbackHours"`
	CompressionType string `yaml:"compressionType"`
}

// WeatherExportTasklet copies loaded weather rows to object storage as parquet, one file per
// dt=YYYY-MM-DD partition of data_time.
type WeatherExportTasklet struct {
	contextHolder
	config           *WeatherExportTaskletConfig
	dbResolver       database.DBConnectionResolver
	storageResolver  storage.StorageConnectionResolver
	now              func() time.Time
	compressionCodec parquet.CompressionCodec
}

// NewWeatherExportTasklet creates the tasklet. Properties default to the export and pipeline sections.
func NewWeatherExportTasklet(
	cfg *config.Config,
	dbResolver database.DBConnectionResolver,
	storageResolver storage.StorageConnectionResolver,
	properties map[string]interface{},
) (*WeatherExportTasklet, error) {
	taskletCfg := &WeatherExportTaskletConfig{
		DBRef:           cfg.Surfin.Pipeline.DBRef,
		TableName:       cfg.Surfin.Pipeline.TableName,
		StorageRef:      cfg.Surfin.Export.StorageRef,
		Bucket:          cfg.Surfin.Export.Bucket,
		Prefix:          cfg.Surfin.Export.Prefix,
		LookbackHours:   cfg.Surfin.Export.LookbackHours,
		CompressionType: "SNAPPY",
	}
	if err := configbinder.BindProperties(properties, taskletCfg); err != nil {
		return nil, exception.NewBatchError(ModuleExportTasklet, "Failed to bind properties", err, false, false)
	}
	if taskletCfg.StorageRef == "" {
		return nil, exception.NewConfigurationError(ModuleExportTasklet, "storageRef is required", nil)
	}
	if taskletCfg.TableName == "" {
		taskletCfg.TableName = entity.DefaultTableName
	}
	codec, err := compressionCodec(taskletCfg.CompressionType)
	if err != nil {
		return nil, exception.NewConfigurationError(ModuleExportTasklet, "invalid compressionType", err)
	}

	return &WeatherExportTasklet{
		contextHolder:    contextHolder{executionContext: model.NewExecutionContext()},
		config:           taskletCfg,
		dbResolver:       dbResolver,
		storageResolver:  storageResolver,
		now:              time.Now,
		compressionCodec: codec,
	}, nil
}

// WithClock replaces the clock used for the lookback window and object names.
func (t *WeatherExportTasklet) WithClock(now func() time.Time) *WeatherExportTasklet {
	t.now = now
	return t
}

func (t *WeatherExportTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	now := t.now().UTC()

	conn, err := t.dbResolver.ResolveDBConnection(ctx, t.config.DBRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewDatabaseError(ModuleExportTasklet, fmt.Sprintf("failed to connect to database '%s'", t.config.DBRef), err)
	}

	query := map[string]interface{}{}
	if t.config.LookbackHours > 0 {
		query["data_time >= ?"] = now.Add(-time.Duration(t.config.LookbackHours) * time.Hour)
	}
	var records []entity.FlatWeatherRecord
	if err := conn.ExecuteQueryAdvanced(ctx, &records, t.config.TableName, query, "data_time", 0); err != nil {
		if conn.IsTableNotExistError(err) {
			logger.Warnf("WeatherExportTasklet: table '%s' does not exist yet. Nothing to export.", t.config.TableName)
			return model.ExitStatusNoOp, nil
		}
		return model.ExitStatusFailed, exception.NewDatabaseError(ModuleExportTasklet, fmt.Sprintf("failed to read '%s'", t.config.TableName), err)
	}
	stepExecution.ReadCount += len(records)
	if len(records) == 0 {
		logger.Infof("WeatherExportTasklet: no rows to export from '%s'.", t.config.TableName)
		return model.ExitStatusNoOp, nil
	}

	partitions := make(map[string][]weathermodel.WeatherExportRow)
	for _, r := range records {
		key := "dt=" + r.DataTime.UTC().Format(partitionLayout)
		partitions[key] = append(partitions[key], weathermodel.NewWeatherExportRow(r))
	}

	storageConn, err := t.storageResolver.ResolveStorageConnection(ctx, t.config.StorageRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(ModuleExportTasklet, fmt.Sprintf("failed to resolve storage '%s'", t.config.StorageRef), err, false, true)
	}

	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result *multierror.Error
	var written []string
	for _, key := range keys {
		rows := partitions[key]
		objectName := path.Join(t.config.Prefix, key, fmt.Sprintf("weather_%s.parquet", now.Format("20060102T150405Z")))
		if err := t.upload(ctx, storageConn, objectName, rows); err != nil {
			result = multierror.Append(result, fmt.Errorf("partition %s: %w", key, err))
			continue
		}
		written = append(written, objectName)
		stepExecution.WriteCount += len(rows)
		logger.WithFields(logger.Fields{"object": objectName, "rows": len(rows)}).Info("WeatherExportTasklet: partition exported.")
	}
	t.executionContext.Put(ExportedObjectsKey, strings.Join(written, ","))

	if err := result.ErrorOrNil(); err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(ModuleExportTasklet, "failed to export partitions", err, false, true)
	}
	return model.ExitStatusCompleted, nil
}

// parquetRowWriter is the part of *writer.ParquetWriter used by upload.
type parquetRowWriter interface {
	Write(src interface{}) error
	WriteStop() error
}

// newParquetWriter opens a parquet writer for WeatherExportRow over w.
var newParquetWriter = func(w io.Writer, codec parquet.CompressionCodec) (parquetRowWriter, error) {
	pw, err := writer.NewParquetWriterFromWriter(w, new(weathermodel.WeatherExportRow), 1)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = codec
	return pw, nil
}

func (t *WeatherExportTasklet) upload(ctx context.Context, conn storage.StorageConnection, objectName string, rows []weathermodel.WeatherExportRow) (err error) {
	// parquet-go panics on marshal failures, both when Write flushes a row group and in WriteStop.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()

	buf := new(bytes.Buffer)
	pw, err := newParquetWriter(buf, t.compressionCodec)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}

	return conn.Upload(ctx, t.config.Bucket, objectName, buf, "application/octet-stream")
}

func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

var _ port.Tasklet = (*WeatherExportTasklet)(nil)
