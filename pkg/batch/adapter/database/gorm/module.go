package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/weather-etl/pkg/batch/core/adapter"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// Module provides the connection resolver. Concrete providers come from the dialect packages.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
		fx.As(new(coreAdapter.ResourceConnectionResolver)),
		fx.As(new(coreAdapter.Closer)),
	)),
	fx.Invoke(registerCloseHook),
)

func registerCloseHook(lc fx.Lifecycle, closer coreAdapter.Closer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debugf("Closing all database connections.")
			return closer.CloseAll()
		},
	})
}
