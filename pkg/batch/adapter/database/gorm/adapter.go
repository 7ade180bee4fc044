package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// NewGormLogger creates a gorm logger writing through the logger facade at the given level.
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch config.LogLevel(strings.ToUpper(level)) {
	case config.LogLevelError:
		gormLevel = gormlogger.Error
	case config.LogLevelWarn:
		gormLevel = gormlogger.Warn
	case config.LogLevelInfo, config.LogLevelDebug, config.LogLevelTrace:
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}

	return gormlogger.New(
		NewGormWriter(),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects gorm output to the logger facade. SQL statements are logged at DEBUG.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gormlogger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatement(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}

func isStatement(msg string) bool {
	for _, kw := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// GormDBAdapter implements database.DBConnection on top of *gorm.DB.
type GormDBAdapter struct {
	db    *gorm.DB
	sqlDB *sql.DB
	cfg   dbconfig.DatabaseConfig
	name  string
}

// NewGormDBAdapter wraps an opened *gorm.DB.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB for '%s': %w", name, err)
	}
	return &GormDBAdapter{db: db, sqlDB: sqlDB, cfg: cfg, name: name}, nil
}

func (a *GormDBAdapter) Close() error {
	logger.Infof("Closing database connection '%s'...", a.name)
	return a.sqlDB.Close()
}

func (a *GormDBAdapter) Type() string {
	return a.cfg.Type
}

func (a *GormDBAdapter) Name() string {
	return a.name
}

func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}

// RefreshConnection pings the pool so dead connections are replaced.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	return a.sqlDB.PingContext(ctx)
}

// IsTableNotExistError matches the "missing table" messages of postgres, mysql and sqlite.
func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "doesn't exist")
}

// HasTable checks reachability first, since gorm's migrator reports query failures as "no table".
func (a *GormDBAdapter) HasTable(ctx context.Context, tableName string) (bool, error) {
	if err := a.sqlDB.PingContext(ctx); err != nil {
		return false, err
	}
	return a.db.WithContext(ctx).Migrator().HasTable(tableName), nil
}

func (a *GormDBAdapter) AutoMigrate(ctx context.Context, tableName string, model interface{}) error {
	return a.db.WithContext(ctx).Table(tableName).AutoMigrate(model)
}

// ExecuteInsert appends rows without gorm's implicit transaction.
// gorm emits one multi-row INSERT for a slice when CreateBatchSize is unset.
func (a *GormDBAdapter) ExecuteInsert(ctx context.Context, tableName string, rows interface{}) (int64, error) {
	db := a.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})
	result := db.Table(tableName).Create(rows)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (a *GormDBAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, tableName string, query map[string]interface{}, orderBy string, limit int) error {
	db := applyQuery(a.db.WithContext(ctx).Table(tableName), query)
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db.Find(target).Error
}

func (a *GormDBAdapter) Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error) {
	var count int64
	if err := applyQuery(a.db.WithContext(ctx).Table(tableName), query).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyQuery(db *gorm.DB, query map[string]interface{}) *gorm.DB {
	equality := make(map[string]interface{})
	for k, v := range query {
		if strings.Contains(k, "?") {
			db = db.Where(k, v)
			continue
		}
		equality[k] = v
	}
	if len(equality) > 0 {
		db = db.Where(equality)
	}
	return db
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
