package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shipflow/backend/internal/infrastructure/config"
)

func TestFromAppConfig(t *testing.T) {
	dev := FromAppConfig(config.LogConfig{}, "development")
	assert.Equal(t, "debug", dev.Level)
	assert.Equal(t, "console", dev.Format)

	prod := FromAppConfig(config.LogConfig{}, "production")
	assert.Equal(t, "info", prod.Level)
	assert.Equal(t, "json", prod.Format)

	custom := FromAppConfig(config.LogConfig{Level: "warn", Format: "json", Output: "stderr"}, "development")
	assert.Equal(t, &Config{Level: "warn", Format: "json", Output: "stderr", TimeFormat: defaultTimeFormat}, custom)
}

func TestNew(t *testing.T) {
	for _, cfg := range []*Config{DefaultConfig(), ProductionConfig(), {Level: "warning", Format: "json"}} {
		l, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}

	_, err := New(&Config{Level: "loud"})
	assert.ErrorContains(t, err, "unknown log level")

	_, err = New(&Config{Level: "info", Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.ErrorContains(t, err, "open log file")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLevel(tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipflow.log")

	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("label purchased", zap.String("tracking_number", "TRK1"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "label purchased", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "TRK1", entry["tracking_number"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "caller")
}
