package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lha.yaml")
	data := []byte("trace: true\nlogging:\n  level: debug\n  format: json\nemit:\n  precision: 5\nframe:\n  compress: true\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Trace)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5, cfg.Emit.Precision)
	assert.True(t, cfg.Frame.Compress)
	// Unset keys keep their defaults.
	assert.True(t, cfg.Frame.CRC)
	assert.Equal(t, 5, cfg.EmitOptions().Precision)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "emit: [",
		"bad level":     "logging:\n  level: loud\n",
		"bad format":    "logging:\n  format: xml\n",
		"bad precision": "emit:\n  precision: 40\n",
		"bad payload":   "frame:\n  max_payload: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lha.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidate_ErrInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Emit.Precision = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LHA_TRACE", "true")
	t.Setenv("LHA_LOG_LEVEL", "WARN")
	t.Setenv("LHA_LOG_FORMAT", "")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.True(t, cfg.Trace)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.ParseOptions(nil).Trace)
}

func TestEnvOverrides_IgnoresBadBool(t *testing.T) {
	t.Setenv("LHA_TRACE", "maybe")
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	assert.False(t, cfg.Trace)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "lha.yaml")
	cfg := DefaultConfig()
	cfg.Trace = true
	cfg.Emit.Precision = 12
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trace = true
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	cfg.Logging.Level = "nope"
	_, err = cfg.NewLogger()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
