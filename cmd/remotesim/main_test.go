package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/remotesim/batch"
	"github.com/arloliu/remotesim/internal/tracker"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig(&globalFlags{})
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Batch.GetSessions())
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("env without file", func(t *testing.T) {
		t.Setenv("REMOTESIM_SESSIONS", "12")
		cfg, err := loadConfig(&globalFlags{})
		require.NoError(t, err)
		assert.Equal(t, 12, cfg.Batch.GetSessions())
	})

	t.Run("file and flags", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "remotesim.yaml")
		require.NoError(t, os.WriteFile(path, []byte("batch:\n  sessions: 40\nlog:\n  level: warn\n"), 0o644))

		cfg, err := loadConfig(&globalFlags{configPath: path, logLevel: "debug", logFormat: "json"})
		require.NoError(t, err)
		assert.Equal(t, 40, cfg.Batch.GetSessions())
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(&globalFlags{configPath: filepath.Join(t.TempDir(), "nope.yaml")})
		require.Error(t, err)
	})
}

func TestRunFlags_ApplyOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	f := &runFlags{}
	f.bind(cmd.Flags())
	require.NoError(t, cmd.Flags().Set("workers", "6"))
	require.NoError(t, cmd.Flags().Set("device", "Car Stereo"))
	require.NoError(t, cmd.Flags().Set("start-offset", "-24h"))

	cfg, err := loadConfig(&globalFlags{})
	require.NoError(t, err)
	n := 99
	cfg.Batch.Sessions = &n
	f.apply(cmd, cfg)

	assert.Equal(t, 99, cfg.Batch.GetSessions())
	assert.Equal(t, 6, cfg.Batch.GetWorkers())
	assert.Equal(t, "Car Stereo", cfg.Simulation.Device)
	assert.Equal(t, -24*time.Hour, cfg.Batch.StartOffset)
	assert.Empty(t, cfg.Simulation.Persona)
}

func TestRunFlags_TUIMutesTerminalLogging(t *testing.T) {
	g := &globalFlags{}
	cmd := newRunCmd(g)
	cfg, err := loadConfig(g)
	require.NoError(t, err)

	(&runFlags{tui: true}).apply(cmd, cfg)
	assert.Equal(t, "nop", cfg.Log.Output)

	cfg.Log.Output = "/var/log/remotesim.log"
	(&runFlags{tui: true}).apply(cmd, cfg)
	assert.Equal(t, "/var/log/remotesim.log", cfg.Log.Output)
}

func TestRunCommand(t *testing.T) {
	t.Setenv("REMOTESIM_TELEMETRY_ENABLED", "false")

	stdout, stderr, err := execute(t, "run", "--sessions", "3", "--seed", "7", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Batch complete")
	assert.Contains(t, stdout, "3/3")
	assert.Contains(t, stdout, "7")
	assert.Contains(t, stderr, "3/3 sessions")
}

func TestRunCommand_UnknownPin(t *testing.T) {
	t.Setenv("REMOTESIM_TELEMETRY_ENABLED", "false")

	_, _, err := execute(t, "run", "--persona", "nobody", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")
}

func TestRunCommand_Webhook(t *testing.T) {
	var (
		mu       sync.Mutex
		received []batch.Summary
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var s batch.Summary
		if json.Unmarshal(body, &s) == nil {
			mu.Lock()
			received = append(received, s)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	t.Setenv("REMOTESIM_TELEMETRY_ENABLED", "false")
	t.Setenv("REMOTESIM_WEBHOOK_URL", hook.URL)

	_, _, err := execute(t, "run", "--sessions", "2", "--seed", "3", "--log-level", "error")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, 2, received[0].Completed)
	assert.Equal(t, uint64(3), received[0].Seed)
}

func TestListCommand(t *testing.T) {
	stdout, _, err := execute(t, "list")
	require.NoError(t, err)

	for _, want := range []string{"Personas", "Devices", "Scenarios", "casual_listener", "Bedroom Move", "pinned", "skip 6x", "congested_2_4ghz"} {
		assert.Contains(t, stdout, want)
	}
}

func TestListCommand_JSON(t *testing.T) {
	stdout, _, err := execute(t, "list", "--json")
	require.NoError(t, err)

	var decoded struct {
		Personas []struct {
			ID string `json:"id"`
		} `json:"personas"`
		Devices []struct {
			Name string `json:"name"`
		} `json:"devices"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Len(t, decoded.Personas, 4)
	assert.Len(t, decoded.Devices, 6)
}

func TestProgressModel(t *testing.T) {
	canceled := 0
	m := newProgressModel(10, func() { canceled++ })

	next, cmd := m.Update(progressMsg{done: 4, total: 10})
	m = next.(progressModel)
	assert.Nil(t, cmd)
	assert.InDelta(t, 0.4, m.percent(), 1e-9)
	assert.Contains(t, m.View(), "4/10 sessions")

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(progressModel)
	require.NotNil(t, cmd)
	assert.Equal(t, 1, canceled)
	assert.Contains(t, m.View(), "canceling")

	// A second quit does not cancel twice.
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, canceled)
}

func TestProgressModel_Done(t *testing.T) {
	m := newProgressModel(5, func() {})

	next, cmd := m.Update(doneMsg{summary: batch.Summary{Completed: 5, Requested: 5}})
	m = next.(progressModel)
	require.NotNil(t, cmd)
	assert.True(t, m.finished)
	assert.InDelta(t, 1.0, m.percent(), 1e-9)
	assert.Contains(t, m.View(), "5/5 sessions done")

	next, _ = m.Update(tea.WindowSizeMsg{Width: 12, Height: 40})
	assert.Equal(t, 10, next.(progressModel).bar.Width)
}

func TestRenderSummary(t *testing.T) {
	s := batch.Summary{
		Snapshot: tracker.Snapshot{
			Sessions:        4,
			Spans:           52,
			Connected:       3,
			ConnectFailures: 1,
			Commands:        20,
			CommandFailures: 2,
			Scenarios:       map[string]int64{"weak_signal": 1, "normal": 3},
		},
		Requested: 5,
		Completed: 4,
		Canceled:  true,
		Seed:      11,
		Workers:   2,
	}

	out := renderSummary(s)
	assert.Contains(t, out, "Batch canceled")
	assert.Contains(t, out, "4/5")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "10.0% failed")
	assert.Contains(t, out, "normal=3 weak_signal=1")
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "a=2 b=1 c=5", formatCounts(map[string]int64{"c": 5, "a": 2, "b": 1}))
	assert.Empty(t, formatCounts(nil))
}
