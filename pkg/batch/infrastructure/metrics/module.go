package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	metrics "github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

func newMetricsConfig(cfg *config.Config) config.MetricsConfig {
	return cfg.Surfin.Metrics
}

func newTracerProvider(lc fx.Lifecycle, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	tp, err := NewTracerProvider(context.Background(), cfg.Surfin.Tracing)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

func newTracer(tp *sdktrace.TracerProvider) *OpenTelemetryTracer {
	return NewOpenTelemetryTracer(tp)
}

// pushOnStop pushes the collected metrics when the application stops. A failed push is logged only.
func pushOnStop(lc fx.Lifecycle, r *PrometheusRecorder) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := r.Push(ctx); err != nil {
				logger.Warnf("Failed to push metrics: %v", err)
			}
			return nil
		},
	})
}

// Module provides PrometheusRecorder as metrics.MetricRecorder and OpenTelemetryTracer as metrics.Tracer.
var Module = fx.Options(
	fx.Provide(newMetricsConfig),
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(func(r *PrometheusRecorder) metrics.MetricRecorder { return r }),
	fx.Provide(newTracerProvider),
	fx.Provide(newTracer),
	fx.Provide(func(t *OpenTelemetryTracer) metrics.Tracer { return t }),
	fx.Invoke(pushOnStop),
)
