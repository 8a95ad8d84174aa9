package control

import (
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Providers selects the OTel providers used to instrument the control
// server and the webhook client. Nil fields fall back to the globals.
type Providers struct {
	Tracer     trace.TracerProvider
	Meter      metric.MeterProvider
	Propagator propagation.TextMapPropagator
}

func (p Providers) options(extra ...otelhttp.Option) []otelhttp.Option {
	tp := p.Tracer
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := p.Meter
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	prop := p.Propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	opts := []otelhttp.Option{
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithMeterProvider(mp),
		otelhttp.WithPropagators(prop),
	}

	return append(opts, extra...)
}
