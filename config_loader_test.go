package remotesim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	content := []byte(`
telemetry:
  enabled: true
  serviceName: "lab-remote-app"
  traces:
    enabled: true
    exporter: "console"
batch:
  sessions: 25
  workers: 4
  seed: 42
simulation:
  persona: power_user
  scenario: congested_2_4ghz
`)
	tmpFile := filepath.Join(t.TempDir(), "remotesim.yaml")
	require.NoError(t, os.WriteFile(tmpFile, content, 0o644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, cfg.Telemetry.IsEnabled())
	assert.Equal(t, "lab-remote-app", cfg.Telemetry.ServiceName)
	assert.Equal(t, "console", cfg.Telemetry.GetTracesExporter())
	assert.Equal(t, 25, cfg.Batch.GetSessions())
	assert.Equal(t, 4, cfg.Batch.GetWorkers())
	assert.Equal(t, uint64(42), cfg.Batch.Seed)
	assert.Equal(t, "power_user", cfg.Simulation.Persona)
	assert.Equal(t, "congested_2_4ghz", cfg.Simulation.Scenario)

	t.Setenv("OTEL_SERVICE_NAME", "override-service")
	t.Setenv("REMOTESIM_SESSIONS", "3")
	cfg, err = LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "override-service", cfg.Telemetry.ServiceName)
	assert.Equal(t, 3, cfg.Batch.GetSessions())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestParseConfig(t *testing.T) {
	yamlData := []byte(`
telemetry:
  enabled: true
  serviceName: "test-service-bytes"
  metrics:
    enabled: true
    interval: 5s
nats:
  enabled: true
  stream: LAB
control:
  webhookUrl: http://hooks.local/done
`)
	cfg, err := ParseConfig(yamlData)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.NotNil(t, cfg.Telemetry.Metrics)
	assert.True(t, cfg.Telemetry.Metrics.IsEnabled())
	assert.Equal(t, 5*time.Second, cfg.Telemetry.Metrics.Interval)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "LAB", cfg.NATS.Stream)
	assert.Equal(t, "http://hooks.local/done", cfg.Control.WebhookURL)
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "zero sessions", data: "batch:\n  sessions: 0\n"},
		{name: "probability above one", data: "simulation:\n  scanProbability: 1.5\n"},
		{name: "unknown namer", data: "simulation:\n  spanNamer: fancy\n"},
		{name: "inverted pause", data: "batch:\n  pauseMinMs: 900\n  pauseMaxMs: 100\n"},
		{name: "unknown log format", data: "log:\n  format: xml\n"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestParseConfig_ExplicitZeros(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
batch:
  pauseMinMs: 0
  pauseMaxMs: 0
simulation:
  scanProbability: 0
  navigateProbability: 0
`))
	require.NoError(t, err)

	rc := cfg.Batch.Runner()
	assert.Zero(t, rc.Pause.Min)
	assert.Zero(t, rc.Pause.Max)

	sc := cfg.Simulation.Session()
	assert.Zero(t, sc.ScanProbability)
	assert.Zero(t, sc.NavigateProbability)

	t.Setenv("REMOTESIM_SCAN_PROBABILITY", "0")
	cfg, err = ParseConfig([]byte("{}"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Simulation.GetScanProbability())
	assert.InDelta(t, 0.5, cfg.Simulation.GetNavigateProbability(), 1e-9)
}

func TestParseConfig_ZeroCountsRejected(t *testing.T) {
	_, err := ParseConfig([]byte("batch:\n  workers: 0\n"))
	require.Error(t, err)

	t.Setenv("REMOTESIM_SESSIONS", "0")
	_, err = ParseConfig([]byte("{}"))
	require.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}"))
	require.NoError(t, err)

	assert.True(t, cfg.Telemetry.IsEnabled())
	assert.Equal(t, "bluetooth-remote-app", cfg.Telemetry.ServiceName)
	assert.Equal(t, "development", cfg.Telemetry.Environment)
	assert.Equal(t, 10, cfg.Batch.GetSessions())
	assert.Equal(t, 1, cfg.Batch.GetWorkers())
	assert.InDelta(t, 0.8, cfg.Simulation.GetScanProbability(), 1e-9)
	assert.InDelta(t, 0.5, cfg.Simulation.GetNavigateProbability(), 1e-9)
	assert.Equal(t, "description", cfg.Simulation.SpanNamer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, ":8089", cfg.Control.Listen)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("REMOTESIM_WORKERS", "8")
	t.Setenv("REMOTESIM_REALTIME", "true")
	t.Setenv("REMOTESIM_DEVICE", "Car Stereo")

	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, 8, cfg.Batch.GetWorkers())
	assert.True(t, cfg.Batch.Realtime)
	assert.Equal(t, "Car Stereo", cfg.Simulation.Device)
}
