package remotesim

import (
	"context"
	"crypto/tls"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

// endpoint is the resolved export target of one signal.
type endpoint struct {
	exporter    string // otlp, console or nop
	protocol    string
	address     string // host:port or URL
	headers     map[string]string
	timeout     time.Duration
	compression string
	insecure    bool
	skipVerify  bool
}

func (e endpoint) http() bool {
	return e.protocol == "http/protobuf" || e.protocol == "http"
}

// resolveEndpoint layers the signal's own exporter and endpoint over the
// shared OTLP block.
func resolveEndpoint(cfg *TelemetryConfig, sig signal) endpoint {
	e := endpoint{
		exporter: "otlp",
		protocol: "grpc",
		address:  "localhost:4317",
		timeout:  10 * time.Second,
		insecure: true,
	}
	if cfg == nil {
		return e
	}

	otlp := cfg.GetOTLPConfig()
	e.address = orDefault(otlp.Endpoint, e.address)
	e.protocol = orDefault(otlp.Protocol, e.protocol)
	if otlp.Timeout > 0 {
		e.timeout = normalizeDuration(otlp.Timeout)
	}
	e.headers = otlp.Headers
	e.compression = otlp.Compression
	e.insecure = otlp.IsInsecure()
	e.skipVerify = otlp.SkipVerify

	var exporter, address string
	switch sig {
	case signalTraces:
		exporter = cfg.GetTracesExporter()
		if cfg.Traces != nil {
			address = cfg.Traces.Endpoint
		}
	case signalLogs:
		if cfg.Logs != nil {
			exporter, address = cfg.Logs.Exporter, cfg.Logs.Endpoint
		}
	case signalMetrics:
		if cfg.Metrics != nil {
			exporter, address = cfg.Metrics.Exporter, cfg.Metrics.Endpoint
		}
	}
	e.exporter = normalizeExporterType(orDefault(exporter, e.exporter))
	e.address = orDefault(address, e.address)

	return e
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

// optionSet holds the constructors one OTLP client package offers. The
// gRPC clients have no endpointURL.
type optionSet[T any] struct {
	endpoint    func(string) T
	endpointURL func(string) T
	headers     func(map[string]string) T
	timeout     func(time.Duration) T
	insecure    func() T
	tls         func(*tls.Config) T
	gzip        func() T
}

func (s optionSet[T]) build(e endpoint) []T {
	var opts []T
	if s.endpointURL != nil && hasHTTPScheme(e.address) {
		opts = append(opts, s.endpointURL(e.address))
	} else {
		opts = append(opts, s.endpoint(e.address))
	}

	if len(e.headers) > 0 {
		opts = append(opts, s.headers(e.headers))
	}
	if e.timeout > 0 {
		opts = append(opts, s.timeout(e.timeout))
	}

	switch {
	case e.insecure:
		opts = append(opts, s.insecure())
	case e.skipVerify:
		opts = append(opts, s.tls(skipVerifyTLS()))
	}

	if e.compression == "gzip" {
		opts = append(opts, s.gzip())
	}

	return opts
}

var (
	traceHTTP = optionSet[otlptracehttp.Option]{
		endpoint:    otlptracehttp.WithEndpoint,
		endpointURL: otlptracehttp.WithEndpointURL,
		headers:     otlptracehttp.WithHeaders,
		timeout:     otlptracehttp.WithTimeout,
		insecure:    otlptracehttp.WithInsecure,
		tls:         otlptracehttp.WithTLSClientConfig,
		gzip:        func() otlptracehttp.Option { return otlptracehttp.WithCompression(otlptracehttp.GzipCompression) },
	}
	traceGRPC = optionSet[otlptracegrpc.Option]{
		endpoint: otlptracegrpc.WithEndpoint,
		headers:  otlptracegrpc.WithHeaders,
		timeout:  otlptracegrpc.WithTimeout,
		insecure: otlptracegrpc.WithInsecure,
		tls:      func(c *tls.Config) otlptracegrpc.Option { return otlptracegrpc.WithTLSCredentials(credentials.NewTLS(c)) },
		gzip:     func() otlptracegrpc.Option { return otlptracegrpc.WithCompressor("gzip") },
	}

	logHTTP = optionSet[otlploghttp.Option]{
		endpoint:    otlploghttp.WithEndpoint,
		endpointURL: otlploghttp.WithEndpointURL,
		headers:     otlploghttp.WithHeaders,
		timeout:     otlploghttp.WithTimeout,
		insecure:    otlploghttp.WithInsecure,
		tls:         otlploghttp.WithTLSClientConfig,
		gzip:        func() otlploghttp.Option { return otlploghttp.WithCompression(otlploghttp.GzipCompression) },
	}
	logGRPC = optionSet[otlploggrpc.Option]{
		endpoint: otlploggrpc.WithEndpoint,
		headers:  otlploggrpc.WithHeaders,
		timeout:  otlploggrpc.WithTimeout,
		insecure: otlploggrpc.WithInsecure,
		tls:      func(c *tls.Config) otlploggrpc.Option { return otlploggrpc.WithTLSCredentials(credentials.NewTLS(c)) },
		gzip:     func() otlploggrpc.Option { return otlploggrpc.WithCompressor("gzip") },
	}

	metricHTTP = optionSet[otlpmetrichttp.Option]{
		endpoint:    otlpmetrichttp.WithEndpoint,
		endpointURL: otlpmetrichttp.WithEndpointURL,
		headers:     otlpmetrichttp.WithHeaders,
		timeout:     otlpmetrichttp.WithTimeout,
		insecure:    otlpmetrichttp.WithInsecure,
		tls:         otlpmetrichttp.WithTLSClientConfig,
		gzip:        func() otlpmetrichttp.Option { return otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression) },
	}
	metricGRPC = optionSet[otlpmetricgrpc.Option]{
		endpoint: otlpmetricgrpc.WithEndpoint,
		headers:  otlpmetricgrpc.WithHeaders,
		timeout:  otlpmetricgrpc.WithTimeout,
		insecure: otlpmetricgrpc.WithInsecure,
		tls:      func(c *tls.Config) otlpmetricgrpc.Option { return otlpmetricgrpc.WithTLSCredentials(credentials.NewTLS(c)) },
		gzip:     func() otlpmetricgrpc.Option { return otlpmetricgrpc.WithCompressor("gzip") },
	}
)

func buildTraceExporter(ctx context.Context, cfg *TelemetryConfig) (sdktrace.SpanExporter, error) {
	e := resolveEndpoint(cfg, signalTraces)
	switch {
	case e.exporter == "console":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case e.exporter == "nop":
		return discard{}, nil
	case e.http():
		return otlptracehttp.New(ctx, traceHTTP.build(e)...)
	default:
		return otlptracegrpc.New(ctx, traceGRPC.build(e)...)
	}
}

func buildLogExporter(ctx context.Context, cfg *TelemetryConfig) (sdklog.Exporter, error) {
	e := resolveEndpoint(cfg, signalLogs)
	switch {
	case e.exporter == "console":
		return stdoutlog.New(stdoutlog.WithPrettyPrint())
	case e.exporter == "nop":
		return discard{}, nil
	case e.http():
		return otlploghttp.New(ctx, logHTTP.build(e)...)
	default:
		return otlploggrpc.New(ctx, logGRPC.build(e)...)
	}
}

func buildMetricExporter(ctx context.Context, cfg *TelemetryConfig) (sdkmetric.Exporter, error) {
	e := resolveEndpoint(cfg, signalMetrics)
	switch {
	case e.exporter == "console":
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	case e.exporter == "nop":
		return discardMetrics{}, nil
	case e.http():
		return otlpmetrichttp.New(ctx, metricHTTP.build(e)...)
	default:
		return otlpmetricgrpc.New(ctx, metricGRPC.build(e)...)
	}
}

// discard drops spans and log records.
type discard struct{}

func (discard) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (discard) Export(context.Context, []sdklog.Record) error              { return nil }
func (discard) ForceFlush(context.Context) error                           { return nil }
func (discard) Shutdown(context.Context) error                             { return nil }

// discardMetrics drops metric collections.
type discardMetrics struct{}

func (discardMetrics) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (discardMetrics) ForceFlush(context.Context) error                          { return nil }
func (discardMetrics) Shutdown(context.Context) error                            { return nil }

func (discardMetrics) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (discardMetrics) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

var exporterAliases = map[string]string{
	"":       "otlp",
	"stdout": "console",
	"noop":   "nop",
	"none":   "nop",
}

func normalizeExporterType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := exporterAliases[v]; ok {
		return alias
	}

	return v
}

// normalizeDuration reads sub-millisecond values as a bare millisecond count,
// which is how numeric OTEL_* durations arrive from the environment.
func normalizeDuration(value time.Duration) time.Duration {
	if value > 0 && value < time.Millisecond {
		return value * time.Millisecond //nolint:durationcheck // numeric env value
	}

	return value
}

func hasHTTPScheme(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)

	return scheme == "http" || scheme == "https"
}

func skipVerifyTLS() *tls.Config {
	//nolint:gosec // opt-in for lab collectors with self-signed certificates
	return &tls.Config{InsecureSkipVerify: true}
}
