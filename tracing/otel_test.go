package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	lognoop "go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestOTelClient(t *testing.T, opts ...OTelOption) (*OTelClient, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	opts = append([]OTelOption{
		WithTracerProvider(tp),
		WithLoggerProvider(lognoop.NewLoggerProvider()),
	}, opts...)

	return NewOTelClient(opts...), exporter
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}

	return m
}

func TestOTelClient_SpanTree(t *testing.T) {
	client, exporter := newTestOTelClient(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	root := client.StartSpan(context.Background(), nil, "session", "Bluetooth remote session", start)
	client.SetUserContext(root, "user-1")
	child := client.StartSpan(context.Background(), root, "bt.connection", "Connect to Car Stereo", start.Add(time.Second))
	client.SetTag(child, "device_name", "Car Stereo")
	client.SetNumericField(child, "connection_time_ms", 420)
	client.FinishSpan(child, start.Add(2*time.Second))
	client.FinishSpan(root, start.Add(3*time.Second))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	conn, sess := spans[0], spans[1]
	assert.Equal(t, "bt.connection", conn.Name)
	assert.Equal(t, "session", sess.Name)
	assert.Equal(t, sess.SpanContext.SpanID(), conn.Parent.SpanID())
	assert.Equal(t, sess.SpanContext.TraceID(), conn.SpanContext.TraceID())

	assert.Equal(t, start.Add(time.Second), conn.StartTime)
	assert.Equal(t, start.Add(2*time.Second), conn.EndTime)

	attrs := attrMap(conn.Attributes)
	assert.Equal(t, "Car Stereo", attrs["device_name"].AsString())
	assert.InDelta(t, 420.0, attrs["connection_time_ms"].AsFloat64(), 1e-9)
	assert.Equal(t, "user-1", attrs[BaggageUserID].AsString())

	assert.Equal(t, "user-1", attrMap(sess.Attributes)[BaggageUserID].AsString())
}

func TestOTelClient_CaptureError(t *testing.T) {
	client, exporter := newTestOTelClient(t)
	now := time.Now()

	h := client.StartSpan(context.Background(), nil, "bt.connection", "", now)
	client.CaptureError(h, errors.New("connection timeout"), map[string]string{"failure_reason": "timeout"}, now)
	client.CaptureError(h, nil, nil, now)
	client.FinishSpan(h, now.Add(time.Millisecond))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestOTelClient_Breadcrumb(t *testing.T) {
	client, exporter := newTestOTelClient(t)
	now := time.Now()

	h := client.StartSpan(context.Background(), nil, "session", "", now)
	client.AddBreadcrumb(h, Breadcrumb{Level: LevelInfo, Category: "bluetooth", Message: "scan started", Time: now})
	client.FinishSpan(h, now)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)

	ev := spans[0].Events[0]
	assert.Equal(t, "breadcrumb", ev.Name)
	assert.Equal(t, "scan started", attrMap(ev.Attributes)["message"].AsString())
}

func TestOTelClient_DescriptionNamer(t *testing.T) {
	client, exporter := newTestOTelClient(t, WithNamer(DescriptionNamer{}))
	now := time.Now()

	h := client.StartSpan(context.Background(), nil, "ui.screen.load", "Load now_playing", now)
	client.FinishSpan(h, now)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "Load now_playing", spans[0].Name)
}

func TestOTelClient_ForeignHandleIgnored(t *testing.T) {
	client, exporter := newTestOTelClient(t)

	assert.NotPanics(t, func() {
		client.SetTag("bogus", "k", "v")
		client.SetNumericField(nil, "k", 1)
		client.FinishSpan(42, time.Now())
		client.SetUserContext(nil, "u")
	})
	assert.Empty(t, exporter.GetSpans())
}

func TestToLogSeverity(t *testing.T) {
	tests := []struct {
		level Level
		want  otellog.Severity
	}{
		{LevelDebug, otellog.SeverityDebug},
		{LevelInfo, otellog.SeverityInfo},
		{LevelWarning, otellog.SeverityWarn},
		{LevelError, otellog.SeverityError},
		{Level("other"), otellog.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, toLogSeverity(tt.level))
		})
	}
}
