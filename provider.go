package remotesim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var (
	// ErrDisabled is returned when telemetry, or the trace signal, is disabled.
	ErrDisabled = errors.New("remotesim: telemetry is disabled")
	// ErrLogsDisabled is returned when log export is disabled.
	ErrLogsDisabled = errors.New("remotesim: logs export is disabled")
	// ErrMetricsDisabled is returned when metrics export is disabled.
	ErrMetricsDisabled = errors.New("remotesim: metrics export is disabled")
	// ErrServiceNameRequired is returned when ServiceName is empty but telemetry is enabled.
	ErrServiceNameRequired = errors.New("remotesim: service name is required")
)

const defaultMetricInterval = 60 * time.Second

// signal is one of the three exported telemetry streams.
type signal int

const (
	signalTraces signal = iota
	signalLogs
	signalMetrics
)

// enabled reports the sentinel explaining why sig is not exported, or nil.
// Traces are on unless switched off; logs and metrics are opt-in.
func (sig signal) enabled(cfg *TelemetryConfig) error {
	if !cfg.IsEnabled() {
		return ErrDisabled
	}

	switch sig {
	case signalTraces:
		if !cfg.Traces.IsEnabled() {
			return ErrDisabled
		}
	case signalLogs:
		if !cfg.Logs.IsEnabled() {
			return ErrLogsDisabled
		}
	case signalMetrics:
		if !cfg.Metrics.IsEnabled() {
			return ErrMetricsDisabled
		}
	}

	return nil
}

// prepare checks that sig is enabled and builds the shared resource.
func prepare(ctx context.Context, cfg *TelemetryConfig, sig signal) (*resource.Resource, error) {
	if err := sig.enabled(cfg); err != nil {
		return nil, err
	}

	return buildResource(ctx, cfg)
}

// NewTracerProvider builds the provider the simulated sessions are exported
// through and installs it, with the configured propagator, as the global.
func NewTracerProvider(ctx context.Context, cfg *TelemetryConfig) (*sdktrace.TracerProvider, error) {
	res, err := prepare(ctx, cfg, signalTraces)
	if err != nil {
		return nil, err
	}

	exporter, err := buildTraceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("traces exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(buildSampler(cfg.GetSamplingConfig())),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(buildPropagator(cfg.Propagation))

	return tp, nil
}

// NewLoggerProvider builds the provider receiving captured errors and
// breadcrumbs as log records.
func NewLoggerProvider(ctx context.Context, cfg *TelemetryConfig) (*sdklog.LoggerProvider, error) {
	res, err := prepare(ctx, cfg, signalLogs)
	if err != nil {
		return nil, err
	}

	exporter, err := buildLogExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("logs exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp)

	return lp, nil
}

// NewMeterProvider builds the provider for the batch counters and histograms.
func NewMeterProvider(ctx context.Context, cfg *TelemetryConfig) (*sdkmetric.MeterProvider, error) {
	res, err := prepare(ctx, cfg, signalMetrics)
	if err != nil {
		return nil, err
	}

	exporter, err := buildMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(normalizeMetricInterval(cfg.Metrics.Interval, defaultMetricInterval)),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	return mp, nil
}

// buildResource describes the simulated app. Extra attributes are added in
// key order so the resource is stable across runs.
func buildResource(ctx context.Context, cfg *TelemetryConfig) (*resource.Resource, error) {
	if cfg.ServiceName == "" {
		return nil, ErrServiceNameRequired
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.DeploymentEnvironment(cfg.Environment),
	}
	for _, key := range slices.Sorted(maps.Keys(cfg.ResourceAttributes)) {
		if key != "" {
			attrs = append(attrs, attribute.String(key, cfg.ResourceAttributes[key]))
		}
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("resource: %w", err)
	}

	return res, nil
}

// normalizeMetricInterval falls back to def for unset intervals and reads
// bare numbers from OTEL_METRIC_EXPORT_INTERVAL as milliseconds.
func normalizeMetricInterval(value, def time.Duration) time.Duration {
	if value <= 0 {
		return def
	}

	return normalizeDuration(value)
}

// buildSampler maps an OTEL_TRACES_SAMPLER name onto an SDK sampler.
// Unknown names fall back to parentbased_always_on.
func buildSampler(cfg *SamplingConfig) sdktrace.Sampler {
	if cfg == nil {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	name, parentBased := strings.CutPrefix(cfg.Sampler, "parentbased_")

	var root sdktrace.Sampler
	switch name {
	case "always_on":
		root = sdktrace.AlwaysSample()
	case "always_off":
		root = sdktrace.NeverSample()
	case "traceidratio":
		root = sdktrace.TraceIDRatioBased(cfg.SamplerArg)
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	if parentBased {
		return sdktrace.ParentBased(root)
	}

	return root
}
