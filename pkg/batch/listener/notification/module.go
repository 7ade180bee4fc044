package notification

import (
	"context"

	"go.uber.org/fx"

	port "github.com/tigerroll/weather-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// NewNotifiers returns the logging notifier, plus the AMQP notifier when notification.amqp_url is set.
// An unreachable broker is logged and skipped.
func NewNotifiers(lc fx.Lifecycle, cfg *config.Config) []port.NotificationListener {
	notifiers := []port.NotificationListener{NewLoggingNotifier()}

	nc := cfg.Surfin.Notification
	if nc.AMQPURL == "" {
		return notifiers
	}
	amqpNotifier, err := NewAMQPNotifier(nc)
	if err != nil {
		logger.Warnf("AMQP notifications disabled: %v", err)
		return notifiers
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return amqpNotifier.Close() }})
	return append(notifiers, amqpNotifier)
}

// Module provides the notifiers into the "notifiers" group consumed by the job runner.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewNotifiers, fx.ResultTags(`group:"notifiers,flatten"`))),
)
