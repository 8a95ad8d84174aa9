package remotesim

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opt struct {
	kind string
	val  string
}

func recordingSet(withURL bool) optionSet[opt] {
	s := optionSet[opt]{
		endpoint: func(v string) opt { return opt{kind: "endpoint", val: v} },
		headers:  func(map[string]string) opt { return opt{kind: "headers"} },
		timeout:  func(d time.Duration) opt { return opt{kind: "timeout", val: d.String()} },
		insecure: func() opt { return opt{kind: "insecure"} },
		tls:      func(*tls.Config) opt { return opt{kind: "tls"} },
		gzip:     func() opt { return opt{kind: "gzip"} },
	}
	if withURL {
		s.endpointURL = func(v string) opt { return opt{kind: "endpointURL", val: v} }
	}

	return s
}

func kinds(opts []opt) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.kind)
	}

	return out
}

func TestNormalizeExporterType(t *testing.T) {
	cases := map[string]string{
		"":        "otlp",
		"stdout":  "console",
		"noop":    "nop",
		"none":    "nop",
		" OTLP ":  "otlp",
		"console": "console",
	}

	for in, want := range cases {
		assert.Equal(t, want, normalizeExporterType(in), "input %q", in)
	}
}

func TestOptionSet_HTTP(t *testing.T) {
	e := endpoint{
		address:     "http://collector:4318/v1/logs",
		headers:     map[string]string{"k": "v"},
		timeout:     5 * time.Second,
		insecure:    true,
		compression: "gzip",
	}

	opts := recordingSet(true).build(e)
	assert.Equal(t, []string{"endpointURL", "headers", "timeout", "insecure", "gzip"}, kinds(opts))
	assert.Equal(t, "http://collector:4318/v1/logs", opts[0].val)
	assert.Equal(t, "5s", opts[2].val)

	e.address = "localhost:4318"
	opts = recordingSet(true).build(e)
	assert.Equal(t, "endpoint", opts[0].kind)
}

func TestOptionSet_GRPC(t *testing.T) {
	e := endpoint{address: "http://collector:4317", timeout: time.Second, skipVerify: true}

	// Without an endpointURL constructor a URL is passed through as-is.
	opts := recordingSet(false).build(e)
	assert.Equal(t, []string{"endpoint", "timeout", "tls"}, kinds(opts))
	assert.Equal(t, "http://collector:4317", opts[0].val)

	// Insecure wins over skipVerify.
	e.insecure = true
	opts = recordingSet(false).build(e)
	assert.Equal(t, []string{"endpoint", "timeout", "insecure"}, kinds(opts))

	assert.True(t, skipVerifyTLS().InsecureSkipVerify)
}

func TestResolveEndpoint(t *testing.T) {
	e := resolveEndpoint(nil, signalTraces)
	assert.Equal(t, "localhost:4317", e.address)
	assert.Equal(t, "otlp", e.exporter)
	assert.True(t, e.insecure)
	assert.False(t, e.http())

	cfg := &TelemetryConfig{
		OTLP: &OTLPConfig{
			Endpoint:   "https://collector:4318",
			Protocol:   "http/protobuf",
			Insecure:   boolPtr(false),
			SkipVerify: true,
			Timeout:    3 * time.Second,
		},
		Logs:    &LogsConfig{Exporter: "stdout", Endpoint: "https://logs:4318"},
		Metrics: &MetricsConfig{Exporter: "none"},
	}

	e = resolveEndpoint(cfg, signalTraces)
	assert.Equal(t, "otlp", e.exporter)
	assert.Equal(t, "https://collector:4318", e.address)
	assert.True(t, e.http())
	assert.False(t, e.insecure)
	assert.True(t, e.skipVerify)
	assert.Equal(t, 3*time.Second, e.timeout)

	e = resolveEndpoint(cfg, signalLogs)
	assert.Equal(t, "console", e.exporter)
	assert.Equal(t, "https://logs:4318", e.address)

	e = resolveEndpoint(cfg, signalMetrics)
	assert.Equal(t, "nop", e.exporter)
	assert.Equal(t, "https://collector:4318", e.address)
}

func TestNormalizeDuration(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, normalizeDuration(250))
	assert.Equal(t, 2*time.Second, normalizeDuration(2*time.Second))
	assert.Zero(t, normalizeDuration(0))
}

func TestBuildExporters_Discard(t *testing.T) {
	ctx := context.Background()
	cfg := &TelemetryConfig{
		Traces:  &TracesConfig{Exporter: "none"},
		Logs:    &LogsConfig{Exporter: "noop"},
		Metrics: &MetricsConfig{Exporter: "nop"},
	}

	se, err := buildTraceExporter(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, discard{}, se)
	require.NoError(t, se.ExportSpans(ctx, nil))

	le, err := buildLogExporter(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, discard{}, le)

	me, err := buildMetricExporter(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, discardMetrics{}, me)
	require.NoError(t, me.Shutdown(ctx))
}
