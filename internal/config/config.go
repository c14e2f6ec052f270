// Package config holds the lha command configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/lha/lha"
	"github.com/Neumenon/lha/stream"
)

// DefaultFileName is looked up in the working directory when no
// --config flag is given.
const DefaultFileName = ".lha.yaml"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all lha command configuration.
type Config struct {
	// Trace logs every classified line while parsing.
	Trace bool `yaml:"trace"`

	Logging LoggingConfig `yaml:"logging"`
	Emit    EmitConfig    `yaml:"emit"`
	Frame   FrameConfig   `yaml:"frame"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// EmitConfig configures the writer.
type EmitConfig struct {
	Precision int `yaml:"precision"` // digits after the point, 1..17
}

// FrameConfig configures the frame and unframe commands.
type FrameConfig struct {
	CRC        bool `yaml:"crc"`
	Compress   bool `yaml:"compress"`
	MaxPayload int  `yaml:"max_payload"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Emit: EmitConfig{
			Precision: 8,
		},
		Frame: FrameConfig{
			CRC:        true,
			MaxPayload: stream.MaxPayloadSize,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Emit.Precision < 1 || c.Emit.Precision > 17 {
		return fmt.Errorf("%w: emit precision must be in 1..17, got %d", ErrInvalidConfig, c.Emit.Precision)
	}
	if c.Frame.MaxPayload <= 0 {
		return fmt.Errorf("%w: frame max_payload must be positive", ErrInvalidConfig)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LHA_TRACE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trace = b
		}
	}
	if v := os.Getenv("LHA_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LHA_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}

// ParseOptions returns the core parse options for this configuration.
func (c *Config) ParseOptions(logger *zap.Logger) lha.ParseOptions {
	return lha.ParseOptions{Trace: c.Trace, Logger: logger}
}

// EmitOptions returns the core emit options for this configuration.
func (c *Config) EmitOptions() lha.EmitOptions {
	return lha.EmitOptions{Precision: c.Emit.Precision}
}

// NewLogger builds a zap logger writing to stderr. Trace forces the
// debug level so parse records are visible.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Trace {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	if c.Logging.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
