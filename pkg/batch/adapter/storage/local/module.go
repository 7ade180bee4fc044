package local

import (
	"go.uber.org/fx"

	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
)

// NewProvider creates the StorageProvider for local connections.
func NewProvider(cfg *config.Config) storage.StorageProvider {
	return storage.NewBaseProvider(cfg, ProviderType, NewLocalAdapter)
}

// Module exports the local StorageProvider into the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+storage.StorageProviderGroup+`"`),
	)),
)
