package tasklet

import (
	"io"

	"github.com/xitongsys/parquet-go/parquet"
)

// ParquetRowWriter exposes the writer seam of WeatherExportTasklet to tests.
type ParquetRowWriter = parquetRowWriter

// SetParquetWriterFactory replaces the parquet writer constructor and returns a restore func.
func SetParquetWriterFactory(f func(w io.Writer, codec parquet.CompressionCodec) (ParquetRowWriter, error)) func() {
	previous := newParquetWriter
	newParquetWriter = f
	return func() { newParquetWriter = previous }
}
