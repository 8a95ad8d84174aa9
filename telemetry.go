package remotesim

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Telemetry bundles the providers the simulated sessions report through.
// Disabled signals are backed by no-op providers, so callers never nil-check.
type Telemetry struct {
	TracerProvider trace.TracerProvider
	LoggerProvider otellog.LoggerProvider
	MeterProvider  metric.MeterProvider
	Propagator     propagation.TextMapPropagator

	shutdowns []func(context.Context) error
}

// SetupTelemetry builds the tracer, logger and meter providers from cfg and
// installs them as the otel globals. Exporter errors raised later are
// reported through logger.
func SetupTelemetry(ctx context.Context, cfg *TelemetryConfig, logger *zap.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warn("opentelemetry error", zap.Error(err))
	}))

	t := &Telemetry{
		TracerProvider: tracenoop.NewTracerProvider(),
		LoggerProvider: lognoop.NewLoggerProvider(),
		MeterProvider:  metricnoop.NewMeterProvider(),
	}
	if cfg != nil {
		t.Propagator = buildPropagator(cfg.Propagation)
	} else {
		t.Propagator = buildPropagator(nil)
	}
	otel.SetTextMapPropagator(t.Propagator)

	tp, err := NewTracerProvider(ctx, cfg)
	switch {
	case errors.Is(err, ErrDisabled):
		logger.Info("trace export disabled")
	case err != nil:
		return nil, fmt.Errorf("setup traces: %w", err)
	default:
		t.TracerProvider = tp
		t.shutdowns = append(t.shutdowns, tp.Shutdown)
	}

	lp, err := NewLoggerProvider(ctx, cfg)
	switch {
	case errors.Is(err, ErrDisabled), errors.Is(err, ErrLogsDisabled):
	case err != nil:
		return nil, errors.Join(fmt.Errorf("setup logs: %w", err), t.Shutdown(ctx))
	default:
		t.LoggerProvider = lp
		t.shutdowns = append(t.shutdowns, lp.Shutdown)
	}

	mp, err := NewMeterProvider(ctx, cfg)
	switch {
	case errors.Is(err, ErrDisabled), errors.Is(err, ErrMetricsDisabled):
	case err != nil:
		return nil, errors.Join(fmt.Errorf("setup metrics: %w", err), t.Shutdown(ctx))
	default:
		t.MeterProvider = mp
		t.shutdowns = append(t.shutdowns, mp.Shutdown)
	}

	return t, nil
}

// Shutdown flushes and stops every SDK provider, newest first.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		if err := t.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdowns = nil

	return errors.Join(errs...)
}
