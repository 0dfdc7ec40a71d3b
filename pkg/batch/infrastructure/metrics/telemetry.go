package metrics

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	config "github.com/tigerroll/dumpshift/pkg/batch/core/config"
	metrics "github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	logger "github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// Exporter names accepted in tracing.exporter.
const (
	ExporterOTLPHTTP = "otlphttp"
	ExporterOTLPGRPC = "otlpgrpc"
)

const instrumentationName = "github.com/tigerroll/dumpshift"

// Telemetry owns the OpenTelemetry providers of the process. Both providers are nil
// when the corresponding export is disabled.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// NewTelemetry builds the providers selected by the configuration.
func NewTelemetry(ctx context.Context, tracing config.TracingConfig, metricsCfg config.MetricsConfig) (*Telemetry, error) {
	t := &Telemetry{}
	if !tracing.Enabled && !metricsCfg.OTLP {
		return t, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", tracing.ServiceName))

	if tracing.Enabled {
		exp, err := newSpanExporter(ctx, tracing)
		if err != nil {
			return nil, err
		}
		t.TracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
		// The GCS client reports its spans through the global provider.
		otel.SetTracerProvider(t.TracerProvider)
		logger.Infof("Tracing enabled: exporter=%s endpoint=%s", tracing.Exporter, tracing.Endpoint)
	}

	if metricsCfg.OTLP {
		exp, err := newMetricExporter(ctx, tracing)
		if err != nil {
			return nil, err
		}
		t.MeterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(t.MeterProvider)
		logger.Infof("OTLP metric export enabled: exporter=%s", tracing.Exporter)
	}
	return t, nil
}

func newSpanExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterOTLPHTTP, "":
		var opts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case ExporterOTLPGRPC:
		var opts []otlptracegrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}
}

func newMetricExporter(ctx context.Context, cfg config.TracingConfig) (sdkmetric.Exporter, error) {
	switch cfg.Exporter {
	case ExporterOTLPHTTP, "":
		var opts []otlpmetrichttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case ExporterOTLPGRPC:
		var opts []otlpmetricgrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown metric exporter %q", cfg.Exporter)
	}
}

// Tracer returns an OpenTelemetryTracer, or a NoOpTracer when tracing is disabled.
func (t *Telemetry) Tracer() metrics.Tracer {
	if t.TracerProvider == nil {
		return metrics.NewNoOpTracer()
	}
	return NewOpenTelemetryTracer(t.TracerProvider.Tracer(instrumentationName))
}

// Recorder returns an OTelRecorder, or nil when metric export is disabled.
func (t *Telemetry) Recorder() (metrics.MetricRecorder, error) {
	if t.MeterProvider == nil {
		return nil, nil
	}
	return NewOTelRecorder(t.MeterProvider.Meter(instrumentationName))
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("meter provider: %w", err))
		}
	}
	return result.ErrorOrNil()
}
