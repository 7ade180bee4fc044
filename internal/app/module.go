package app

import (
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// DefaultDBAdapters is used when DB_ADAPTORS is not set.
const DefaultDBAdapters = "postgres,mysql,sqlite"

// DBProviderModules maps an adapter name to the module registering its DBProvider.
var DBProviderModules = map[string]fx.Option{
	"postgres": postgres.Module,
	"mysql":    mysql.Module,
	"sqlite":   sqlite.Module,
}

// StorageProviderModules registers every storage backend.
var StorageProviderModules = fx.Options(
	local.Module,
	gcs.Module,
)

// DBProviderOptions selects the DB providers named in the comma-separated adapters list.
// Unknown or repeated names are logged and skipped.
func DBProviderOptions(adapters string) []fx.Option {
	if strings.TrimSpace(adapters) == "" {
		adapters = DefaultDBAdapters
	}

	options := make([]fx.Option, 0)
	seen := make(map[string]bool)
	for _, name := range strings.Split(adapters, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		module, ok := DBProviderModules[name]
		if !ok {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
			continue
		}
		seen[name] = true
		options = append(options, module)
		logger.Debugf("DB Provider '%s' selected and registered.", name)
	}
	return options
}
