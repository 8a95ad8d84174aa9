package remotesim

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// buildPropagator composes the OTEL_PROPAGATORS list in the given order.
// tracecontext carries the session trace and baggage carries the simulated
// user id into NATS records and webhook calls. Names that need contrib
// packages are skipped quietly; anything else is reported via otel.Handle.
func buildPropagator(cfg *PropConfig) propagation.TextMapPropagator {
	var (
		props []propagation.TextMapPropagator
		seen  = make(map[string]bool)
	)

	for _, name := range cfg.Names() {
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "tracecontext":
			props = append(props, propagation.TraceContext{})
		case "baggage":
			props = append(props, propagation.Baggage{})
		case "b3", "b3multi", "jaeger", "xray", "ottrace", "none":
		default:
			otel.Handle(fmt.Errorf("remotesim: unknown propagator %q in OTEL_PROPAGATORS, ignoring", name))
		}
	}

	return propagation.NewCompositeTextMapPropagator(props...)
}
