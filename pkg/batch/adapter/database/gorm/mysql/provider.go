// Package mysql provides the GORM DBProvider for MySQL.
package mysql

import (
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weather-etl/pkg/batch/core/config"
)

// ProviderType is the adapter.database type handled by this package.
const ProviderType = "mysql"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a go-sql-driver DSN. Timestamps are parsed into time.Time in UTC.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dsn := driver.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	dsn.Addr = c.Host
	if c.Port > 0 {
		dsn.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	dsn.DBName = c.Database
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	return dsn.FormatDSN()
}

// MySQLDBProvider implements database.DBProvider for MySQL connections.
type MySQLDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the MySQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &MySQLDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, ProviderType)}
}
