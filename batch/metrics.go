package batch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/arloliu/remotesim/session"
)

// Metrics holds the OTel instruments the runner records per session.
type Metrics struct {
	sessions        metric.Int64Counter
	spans           metric.Int64Counter
	connectFailures metric.Int64Counter
	commands        metric.Int64Counter
	commandFailures metric.Int64Counter
	sessionDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	m.sessions, err = meter.Int64Counter("remotesim.sessions",
		metric.WithDescription("Simulated sessions completed"))
	if err != nil {
		return nil, err
	}

	m.spans, err = meter.Int64Counter("remotesim.spans",
		metric.WithDescription("Spans emitted to the tracing client"))
	if err != nil {
		return nil, err
	}

	m.connectFailures, err = meter.Int64Counter("remotesim.connect.failures",
		metric.WithDescription("Simulated connection failures"))
	if err != nil {
		return nil, err
	}

	m.commands, err = meter.Int64Counter("remotesim.commands",
		metric.WithDescription("Simulated remote commands"))
	if err != nil {
		return nil, err
	}

	m.commandFailures, err = meter.Int64Counter("remotesim.command.failures",
		metric.WithDescription("Simulated command write failures"))
	if err != nil {
		return nil, err
	}

	m.sessionDuration, err = meter.Float64Histogram("remotesim.session.duration",
		metric.WithDescription("Simulated session duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// Record adds one session result.
func (m *Metrics) Record(ctx context.Context, res session.Result) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("persona", res.Persona),
		attribute.String("device", res.Device),
		attribute.String("scenario", res.Scenario),
	)

	m.sessions.Add(ctx, 1, attrs)
	m.spans.Add(ctx, int64(res.Spans), attrs)
	if !res.Connected {
		m.connectFailures.Add(ctx, 1, attrs)
	}
	m.commands.Add(ctx, int64(res.Commands), attrs)
	m.commandFailures.Add(ctx, int64(res.CommandFailures), attrs)
	m.sessionDuration.Record(ctx, res.Duration.Seconds(), attrs)
}
