package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/dumpshift/pkg/batch/core/config"
	metrics "github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	logger "github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// Module provides the metric recorder and tracer of the application.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(newTelemetry),
	fx.Provide(newMetricRecorder),
	fx.Provide(newTracer),
	fx.Invoke(registerTextfileHook),
)

func newTelemetry(lc fx.Lifecycle, cfg *config.Config) (*Telemetry, error) {
	t, err := NewTelemetry(context.Background(), cfg.Dumpshift.Tracing, cfg.Dumpshift.Metrics)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return t.Shutdown(ctx)
		},
	})
	return t, nil
}

func newMetricRecorder(prom *PrometheusRecorder, t *Telemetry) (metrics.MetricRecorder, error) {
	otelRecorder, err := t.Recorder()
	if err != nil {
		return nil, err
	}
	return metrics.NewMultiRecorder(prom, otelRecorder), nil
}

func newTracer(t *Telemetry) metrics.Tracer {
	return t.Tracer()
}

func registerTextfileHook(lc fx.Lifecycle, cfg *config.Config, prom *PrometheusRecorder) {
	path := cfg.Dumpshift.Metrics.Textfile
	if path == "" {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := prom.WriteTextfile(path); err != nil {
				logger.Warnf("Failed to write metrics textfile %s: %v", path, err)
				return err
			}
			logger.Debugf("Metrics written to %s", path)
			return nil
		},
	})
}
