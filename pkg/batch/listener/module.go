package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/weather-etl/pkg/batch/listener/logging"
	"github.com/tigerroll/weather-etl/pkg/batch/listener/notification"
)

// Module aggregates all listener modules of the batch framework.
var Module = fx.Options(
	logging.Module,
	notification.Module,
)
