package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/weather-etl/pkg/batch/core/adapter"
)

// DBExecutor defines the read and write operations a step may run against a table.
type DBExecutor interface {
	// ExecuteInsert appends rows (a pointer to a slice of entities) to tableName in a single INSERT statement.
	ExecuteInsert(ctx context.Context, tableName string, rows interface{}) (rowsAffected int64, err error)

	// ExecuteQueryAdvanced reads rows from tableName into target.
	// Keys of query containing a '?' are used as SQL conditions, other keys as column equality.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, tableName string, query map[string]interface{}, orderBy string, limit int) error

	// Count counts the rows of tableName matching query.
	Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error)
}

// DBMigrator manages table existence.
type DBMigrator interface {
	// HasTable reports whether tableName exists. The error is non-nil when the database cannot be reached.
	HasTable(ctx context.Context, tableName string) (bool, error)
	// AutoMigrate creates tableName from the column mapping of model, or adds missing columns.
	AutoMigrate(ctx context.Context, tableName string, model interface{}) error
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection
	DBExecutor
	DBMigrator

	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the database.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves the database connection a step should use.
type DBConnectionResolver interface {
	// ResolveDBConnection returns a live connection for name, reconnecting if the pooled one is dead.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider opens and caches connections for one database type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "postgres").
	Type() string
	// ForceReconnect closes and re-opens the connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx value group collecting every DBProvider.
const DBProviderGroup = "db_providers"
