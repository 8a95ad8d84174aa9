//revive:disable:line-length-limit
package remotesim

import (
	"strings"
	"time"

	"github.com/arloliu/fuda"

	"github.com/arloliu/remotesim/batch"
	"github.com/arloliu/remotesim/sampler"
	"github.com/arloliu/remotesim/session"
)

// Config is the complete remotesim configuration.
type Config struct {
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Log        LogConfig        `yaml:"log"`
	Batch      BatchConfig      `yaml:"batch"`
	Simulation SimulationConfig `yaml:"simulation"`
	NATS       NATSConfig       `yaml:"nats"`
	Control    ControlConfig    `yaml:"control"`
}

// TelemetryConfig configures the OpenTelemetry pipeline the simulated
// sessions are exported through.
// Environment variable names follow the OTel specification:
// https://opentelemetry.io/docs/specs/otel/configuration/sdk-environment-variables/
type TelemetryConfig struct {
	// Enabled controls whether spans, logs and metrics leave the process.
	Enabled *bool `yaml:"enabled" default:"true" env:"REMOTESIM_TELEMETRY_ENABLED"`

	// ServiceName is the service the simulated app reports as.
	// Maps to OTEL_SERVICE_NAME.
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME" default:"bluetooth-remote-app" validate:"required_if=Enabled true"`

	// Version is reported as service.version.
	Version string `yaml:"version" env:"OTEL_SERVICE_VERSION" default:"1.0.0"`

	// Environment is reported as deployment.environment.
	Environment string `yaml:"environment" env:"OTEL_DEPLOYMENT_ENVIRONMENT" default:"development"`

	// ResourceAttributes contains additional resource attributes as key=value pairs.
	// Maps to OTEL_RESOURCE_ATTRIBUTES (comma-separated key=value pairs).
	ResourceAttributes map[string]string `yaml:"resourceAttributes,omitempty" env:"OTEL_RESOURCE_ATTRIBUTES"`

	// OTLP contains OTLP exporter settings shared by traces, logs and metrics.
	OTLP *OTLPConfig `yaml:"otlp,omitempty"`

	Traces      *TracesConfig  `yaml:"traces,omitempty"`
	Logs        *LogsConfig    `yaml:"logs,omitempty"`
	Metrics     *MetricsConfig `yaml:"metrics,omitempty"`
	Propagation *PropConfig    `yaml:"propagation,omitempty"`
}

// OTLPConfig contains shared OTLP exporter settings.
type OTLPConfig struct {
	// Endpoint is the OTLP collector endpoint.
	// Maps to OTEL_EXPORTER_OTLP_ENDPOINT.
	//
	// Format depends on protocol:
	//   - gRPC: "host:port" (e.g., "localhost:4317"). Do NOT include scheme.
	//   - HTTP: Full URL with scheme (e.g., "http://localhost:4318/v1/traces").
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`

	// Insecure disables TLS for the OTLP connection.
	// Maps to OTEL_EXPORTER_OTLP_INSECURE.
	Insecure *bool `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	// SkipVerify keeps TLS but skips certificate verification. Only used when
	// Insecure is false. gRPC only.
	SkipVerify bool `yaml:"skipVerify" env:"REMOTESIM_OTLP_SKIP_VERIFY" default:"false"`

	// Headers adds custom headers to OTLP requests.
	// Avoid logging this value, as it may contain sensitive credentials.
	Headers map[string]string `yaml:"headers,omitempty" env:"OTEL_EXPORTER_OTLP_HEADERS"`

	// Protocol determines the OTLP transport protocol.
	// Options: "grpc", "http/protobuf", "http".
	Protocol string `yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc" validate:"oneof=grpc http/protobuf http"`

	// Timeout is the timeout for exporter operations.
	Timeout time.Duration `yaml:"timeout" env:"OTEL_EXPORTER_OTLP_TIMEOUT" default:"10s" validate:"gte=0"`

	// Compression sets the compression algorithm for OTLP.
	Compression string `yaml:"compression,omitempty" env:"OTEL_EXPORTER_OTLP_COMPRESSION" validate:"omitempty,oneof=gzip none"`
}

// IsInsecure returns true if insecure connection is enabled.
func (c *OTLPConfig) IsInsecure() bool {
	return c == nil || c.Insecure == nil || *c.Insecure
}

// TracesConfig configures span export.
type TracesConfig struct {
	Enabled *bool `yaml:"enabled" default:"true"`

	// Exporter determines the trace exporter type.
	// Options: "otlp", "console", "stdout", "none".
	Exporter string `yaml:"exporter" env:"OTEL_TRACES_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	// Endpoint overrides OTLP.Endpoint for traces.
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`

	Sampling *SamplingConfig `yaml:"sampling,omitempty"`
}

// IsEnabled returns true if tracing is enabled.
func (c *TracesConfig) IsEnabled() bool {
	return c == nil || c.Enabled == nil || *c.Enabled
}

// LogsConfig configures export of captured errors and breadcrumbs as OTel
// log records.
type LogsConfig struct {
	// Enabled defaults to false (opt-in for logs).
	Enabled *bool `yaml:"enabled" default:"false"`

	// Exporter determines the log exporter type.
	// Options: "otlp", "console", "stdout", "none".
	Exporter string `yaml:"exporter" env:"OTEL_LOGS_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"`
}

// IsEnabled returns true if OTel log export is enabled.
func (c *LogsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// MetricsConfig configures export of the batch metrics.
type MetricsConfig struct {
	// Enabled defaults to false (opt-in for metrics).
	Enabled *bool `yaml:"enabled" default:"false"`

	// Exporter determines the metrics exporter type.
	// Options: "otlp", "console", "stdout", "none".
	Exporter string `yaml:"exporter" env:"OTEL_METRICS_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"`

	// Interval is the export interval for periodic metric reader.
	// Maps to OTEL_METRIC_EXPORT_INTERVAL (milliseconds if numeric).
	Interval time.Duration `yaml:"interval,omitempty" env:"OTEL_METRIC_EXPORT_INTERVAL" default:"60s" validate:"omitempty,gt=0"`
}

// IsEnabled returns true if metrics collection is enabled.
func (c *MetricsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// SamplingConfig configures the trace sampling strategy.
// Maps to OTEL_TRACES_SAMPLER and OTEL_TRACES_SAMPLER_ARG.
type SamplingConfig struct {
	// Options: "always_on", "always_off", "traceidratio",
	// "parentbased_always_on", "parentbased_always_off", "parentbased_traceidratio".
	Sampler string `yaml:"sampler" env:"OTEL_TRACES_SAMPLER" default:"parentbased_always_on" validate:"oneof=always_on always_off traceidratio parentbased_always_on parentbased_always_off parentbased_traceidratio"`

	// SamplerArg is the ratio for ratio-based samplers, 0.0 to 1.0.
	SamplerArg float64 `yaml:"samplerArg" env:"OTEL_TRACES_SAMPLER_ARG" default:"1.0" validate:"gte=0,lte=1"`
}

// PropConfig configures context propagation.
type PropConfig struct {
	// Propagators is a comma-separated list. Maps to OTEL_PROPAGATORS.
	// Known values: "tracecontext", "baggage", "b3", "b3multi", "jaeger", "xray", "none".
	Propagators string `yaml:"propagators" env:"OTEL_PROPAGATORS" default:"tracecontext,baggage"`
}

// Names returns the configured propagator names in order, trimmed and
// lowercased. An unset list means tracecontext and baggage.
func (c *PropConfig) Names() []string {
	if c == nil || strings.TrimSpace(c.Propagators) == "" {
		return []string{"tracecontext", "baggage"}
	}

	var names []string
	for p := range strings.SplitSeq(c.Propagators, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			names = append(names, p)
		}
	}

	return names
}

// IsEnabled returns true if telemetry is enabled.
func (c *TelemetryConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// GetSamplingConfig returns the trace sampling config, or nil.
func (c *TelemetryConfig) GetSamplingConfig() *SamplingConfig {
	if c == nil || c.Traces == nil {
		return nil
	}

	return c.Traces.Sampling
}

// GetTracesExporter returns the effective traces exporter type.
func (c *TelemetryConfig) GetTracesExporter() string {
	if c == nil || c.Traces == nil || c.Traces.Exporter == "" {
		return "otlp"
	}

	return c.Traces.Exporter
}

// GetOTLPConfig returns the OTLP config, never nil.
func (c *TelemetryConfig) GetOTLPConfig() *OTLPConfig {
	if c == nil || c.OTLP == nil {
		return &OTLPConfig{}
	}

	return c.OTLP
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"REMOTESIM_LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	// Format is json (production encoder) or console (development encoder).
	Format string `yaml:"format" env:"REMOTESIM_LOG_FORMAT" default:"console" validate:"oneof=json console"`
	// Output is stderr, stdout, a file path, or nop to discard.
	Output string `yaml:"output" env:"REMOTESIM_LOG_OUTPUT" default:"stderr"`
}

// BatchConfig configures the batch runner.
//
// Count, pause and probability fields are pointers so an explicit 0 in a
// file or the environment survives default processing and reaches validation.
type BatchConfig struct {
	Sessions *int `yaml:"sessions" env:"REMOTESIM_SESSIONS" default:"10" validate:"omitempty,gte=1"`
	Workers  *int `yaml:"workers" env:"REMOTESIM_WORKERS" default:"1" validate:"omitempty,gte=1"`

	// PauseMinMs and PauseMaxMs bound the pause between sessions of a worker.
	PauseMinMs *float64 `yaml:"pauseMinMs" env:"REMOTESIM_PAUSE_MIN_MS" default:"500" validate:"omitempty,gte=0"`
	PauseMaxMs *float64 `yaml:"pauseMaxMs" env:"REMOTESIM_PAUSE_MAX_MS" default:"1500" validate:"omitempty,gtefield=PauseMinMs"`

	// Seed makes a batch reproducible. Zero picks a random seed.
	Seed uint64 `yaml:"seed" env:"REMOTESIM_SEED" default:"0"`

	// Realtime paces sessions on the wall clock instead of a virtual clock.
	Realtime bool `yaml:"realtime" env:"REMOTESIM_REALTIME" default:"false"`

	// StartOffset shifts virtual timestamps, e.g. -24h backfills a day.
	StartOffset time.Duration `yaml:"startOffset" env:"REMOTESIM_START_OFFSET" default:"0s"`
}

// GetSessions returns the session count, 10 when unset.
func (c BatchConfig) GetSessions() int { return valueOr(c.Sessions, 10) }

// GetWorkers returns the worker count, 1 when unset.
func (c BatchConfig) GetWorkers() int { return valueOr(c.Workers, 1) }

// GetPause returns the inter-session pause range in milliseconds.
func (c BatchConfig) GetPause() sampler.Range {
	return sampler.R(valueOr(c.PauseMinMs, 500), valueOr(c.PauseMaxMs, 1500))
}

// Runner converts the section into a batch.Config.
func (c BatchConfig) Runner() batch.Config {
	return batch.Config{
		Sessions:    c.GetSessions(),
		Workers:     c.GetWorkers(),
		Pause:       c.GetPause(),
		Seed:        c.Seed,
		Realtime:    c.Realtime,
		StartOffset: c.StartOffset,
	}
}

// SimulationConfig configures the session orchestrator.
type SimulationConfig struct {
	// CatalogFile is a YAML catalog overriding the built-in tables.
	CatalogFile string `yaml:"catalogFile" env:"REMOTESIM_CATALOG_FILE"`

	// Persona, Device and Scenario pin every session. Empty draws per session.
	Persona  string `yaml:"persona" env:"REMOTESIM_PERSONA"`
	Device   string `yaml:"device" env:"REMOTESIM_DEVICE"`
	Scenario string `yaml:"scenario" env:"REMOTESIM_SCENARIO"`

	// ScanProbability 0 never scans; NavigateProbability 0 stays on the
	// primary screens.
	ScanProbability     *float64 `yaml:"scanProbability" env:"REMOTESIM_SCAN_PROBABILITY" default:"0.8" validate:"omitempty,gte=0,lte=1"`
	NavigateProbability *float64 `yaml:"navigateProbability" env:"REMOTESIM_NAVIGATE_PROBABILITY" default:"0.5" validate:"omitempty,gte=0,lte=1"`

	// Strict rejects finishing a span with open children instead of
	// closing them.
	Strict bool `yaml:"strict" env:"REMOTESIM_STRICT" default:"false"`

	// SpanNamer is "op" or "description".
	SpanNamer string `yaml:"spanNamer" env:"REMOTESIM_SPAN_NAMER" default:"description" validate:"oneof=op description"`
}

// GetScanProbability returns the chance a session scans before connecting,
// 0.8 when unset.
func (c SimulationConfig) GetScanProbability() float64 { return valueOr(c.ScanProbability, 0.8) }

// GetNavigateProbability returns the chance a session visits a secondary
// screen, 0.5 when unset.
func (c SimulationConfig) GetNavigateProbability() float64 {
	return valueOr(c.NavigateProbability, 0.5)
}

// Session converts the section into a session.Config.
func (c SimulationConfig) Session() session.Config {
	return session.Config{
		Persona:             c.Persona,
		Device:              c.Device,
		Scenario:            c.Scenario,
		ScanProbability:     c.GetScanProbability(),
		NavigateProbability: c.GetNavigateProbability(),
		Strict:              c.Strict,
	}
}

// NATSConfig configures the JetStream span record sink.
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled" env:"REMOTESIM_NATS_ENABLED" default:"false"`
	URL           string        `yaml:"url" env:"NATS_URL" default:"nats://127.0.0.1:4222"`
	SubjectPrefix string        `yaml:"subjectPrefix" env:"REMOTESIM_NATS_SUBJECT_PREFIX" default:"remotesim.spans"`
	Stream        string        `yaml:"stream" env:"REMOTESIM_NATS_STREAM" default:"REMOTESIM"`
	QueueSize     int           `yaml:"queueSize" env:"REMOTESIM_NATS_QUEUE_SIZE" default:"1024" validate:"gte=1"`
	Timeout       time.Duration `yaml:"timeout" env:"REMOTESIM_NATS_TIMEOUT" default:"5s" validate:"gt=0"`
}

// ControlConfig configures the HTTP control surface and completion webhook.
type ControlConfig struct {
	Listen         string        `yaml:"listen" env:"REMOTESIM_CONTROL_LISTEN" default:":8089"`
	WebhookURL     string        `yaml:"webhookUrl" env:"REMOTESIM_WEBHOOK_URL"`
	WebhookTimeout time.Duration `yaml:"webhookTimeout" env:"REMOTESIM_WEBHOOK_TIMEOUT" default:"5s" validate:"gt=0"`
}

// DefaultConfig returns a Config populated from struct tag defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	_ = fuda.SetDefaults(cfg)

	return cfg
}

// boolPtr returns a pointer to the given boolean value.
func boolPtr(v bool) *bool { return &v }

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}

	return *p
}
