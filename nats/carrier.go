package nats

import (
	"context"
	"maps"
	"slices"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/propagation"
)

// headerCarrier lets a propagator read and write message headers.
type headerCarrier nats.Header

var _ propagation.TextMapCarrier = headerCarrier(nil)

func (c headerCarrier) Get(key string) string { return nats.Header(c).Get(key) }

func (c headerCarrier) Set(key, value string) { nats.Header(c).Set(key, value) }

func (c headerCarrier) Keys() []string { return slices.Collect(maps.Keys(c)) }

// inject stamps the session trace context and user baggage carried by ctx
// onto msg.
func inject(ctx context.Context, msg *nats.Msg, prop propagation.TextMapPropagator) {
	if msg.Header == nil {
		msg.Header = nats.Header{}
	}
	prop.Inject(ctx, headerCarrier(msg.Header))
}

// Extract rejoins the session a record was published from. A message
// without headers leaves ctx untouched.
func Extract(ctx context.Context, header nats.Header, prop propagation.TextMapPropagator) context.Context {
	if len(header) == 0 {
		return ctx
	}

	return prop.Extract(ctx, headerCarrier(header))
}
