package remotesim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	cases := []struct {
		name    string
		cfg     LogConfig
		level   zapcore.Level
		wantErr bool
	}{
		{name: "console default", cfg: LogConfig{Format: "console", Output: "stderr"}, level: zapcore.InfoLevel},
		{name: "json debug", cfg: LogConfig{Level: "debug", Format: "json", Output: "stdout"}, level: zapcore.DebugLevel},
		{name: "warn", cfg: LogConfig{Level: "warn"}, level: zapcore.WarnLevel},
		{name: "bad level", cfg: LogConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: LogConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.level))
			assert.False(t, logger.Core().Enabled(tt.level-1))
		})
	}
}

func TestNewLogger_Nop(t *testing.T) {
	logger, err := NewLogger(LogConfig{Output: "nop"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.FatalLevel))
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remotesim.log")

	logger, err := NewLogger(LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Info("batch finished")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"batch finished"`)
	assert.Contains(t, string(data), `"logger":"remotesim"`)
}
