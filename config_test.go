package remotesim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsEnabled(t *testing.T) {
	assert.False(t, (*TelemetryConfig)(nil).IsEnabled())
	assert.False(t, (&TelemetryConfig{}).IsEnabled())
	assert.True(t, (&TelemetryConfig{Enabled: boolPtr(true)}).IsEnabled())
}

func TestTelemetryAccessors(t *testing.T) {
	var nilCfg *TelemetryConfig
	assert.Equal(t, "otlp", nilCfg.GetTracesExporter())
	assert.Nil(t, nilCfg.GetSamplingConfig())
	assert.NotNil(t, nilCfg.GetOTLPConfig())

	cfg := &TelemetryConfig{
		OTLP:   &OTLPConfig{Endpoint: "collector:4317"},
		Traces: &TracesConfig{Exporter: "console", Sampling: &SamplingConfig{Sampler: "always_on"}},
	}
	assert.Equal(t, "console", cfg.GetTracesExporter())
	assert.Equal(t, "collector:4317", cfg.GetOTLPConfig().Endpoint)
	assert.Equal(t, "always_on", cfg.GetSamplingConfig().Sampler)
}

func TestPropConfig_Names(t *testing.T) {
	assert.Equal(t, []string{"tracecontext", "baggage"}, (*PropConfig)(nil).Names())
	assert.Equal(t, []string{"tracecontext", "baggage"}, (&PropConfig{Propagators: "  "}).Names())
	assert.Equal(t, []string{"tracecontext"}, (&PropConfig{Propagators: " TraceContext "}).Names())
	assert.Equal(t, []string{"b3", "baggage"}, (&PropConfig{Propagators: "b3,, baggage"}).Names())
}

func TestBatchConfig_Runner(t *testing.T) {
	c := BatchConfig{
		Sessions:    ptr(5),
		Workers:     ptr(2),
		PauseMinMs:  ptr(100.0),
		PauseMaxMs:  ptr(200.0),
		Seed:        9,
		StartOffset: -24 * time.Hour,
	}

	rc := c.Runner()
	assert.Equal(t, 5, rc.Sessions)
	assert.Equal(t, 2, rc.Workers)
	assert.InDelta(t, 100.0, rc.Pause.Min, 1e-9)
	assert.InDelta(t, 200.0, rc.Pause.Max, 1e-9)
	assert.Equal(t, uint64(9), rc.Seed)
	assert.Equal(t, -24*time.Hour, rc.StartOffset)
	assert.False(t, rc.Realtime)
}

func TestSimulationConfig_Session(t *testing.T) {
	c := SimulationConfig{
		Persona:             "casual_listener",
		Device:              "Office Headphones",
		ScanProbability:     ptr(0.3),
		NavigateProbability: ptr(0.7),
		Strict:              true,
	}

	sc := c.Session()
	assert.Equal(t, "casual_listener", sc.Persona)
	assert.Equal(t, "Office Headphones", sc.Device)
	assert.Empty(t, sc.Scenario)
	assert.InDelta(t, 0.3, sc.ScanProbability, 1e-9)
	assert.InDelta(t, 0.7, sc.NavigateProbability, 1e-9)
	assert.True(t, sc.Strict)
}

func TestConfig_UnsetPointersFallBack(t *testing.T) {
	rc := BatchConfig{}.Runner()
	assert.Equal(t, 10, rc.Sessions)
	assert.Equal(t, 1, rc.Workers)
	assert.InDelta(t, 500.0, rc.Pause.Min, 1e-9)
	assert.InDelta(t, 1500.0, rc.Pause.Max, 1e-9)

	sc := SimulationConfig{ScanProbability: ptr(0.0)}.Session()
	assert.Zero(t, sc.ScanProbability)
	assert.InDelta(t, 0.5, sc.NavigateProbability, 1e-9)
}

func ptr[T any](v T) *T { return &v }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.Batch.GetSessions())
	assert.Equal(t, "REMOTESIM", cfg.NATS.Stream)
	assert.Equal(t, "remotesim.spans", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.Control.WebhookTimeout)
}
