// Package config reads redline.yaml, the optional settings file shared by the
// CLI and the HTTP server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/coolbeans/redline/pkg/normalize"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "redline.yaml"

// Config is the YAML-serializable settings file.
type Config struct {
	// Dataset is the default records file for groups, report and serve.
	Dataset string `yaml:"dataset,omitempty"`

	Labels    LabelConfig     `yaml:"labels"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Output    OutputConfig    `yaml:"output"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// LabelConfig names comparison panels.
type LabelConfig struct {
	// Sources maps a source bill type such as HOUSE_RDS to a panel label.
	Sources map[string]string `yaml:"sources,omitempty"`

	// Final overrides the final panel label. Empty keeps the builder default.
	Final string `yaml:"final,omitempty"`
}

// NormalizeConfig toggles optional normalization steps.
type NormalizeConfig struct {
	UnicodeNFC bool `yaml:"unicode_nfc"`
}

// OutputConfig sets rendering defaults.
type OutputConfig struct {
	Format            string `yaml:"format"`
	Title             string `yaml:"title,omitempty"`
	IncludeCommentary bool   `yaml:"include_commentary"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Labels: LabelConfig{
			Sources: map[string]string{},
		},
		Output: OutputConfig{
			Format: "html",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// FromYAML parses settings over the defaults, so omitted keys keep their
// default values.
func FromYAML(yamlData []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(yamlData, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if cfg.Labels.Sources == nil {
		cfg.Labels.Sources = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file from disk.
func LoadFile(filePath string) (*Config, error) {
	yamlData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}
	cfg, err := FromYAML(yamlData)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", filePath, err)
	}
	return cfg, nil
}

// Load reads filePath, or DefaultFileName when filePath is empty. A missing
// DefaultFileName yields Default(); a missing explicit path is an error.
func Load(filePath string) (*Config, error) {
	if filePath != "" {
		return LoadFile(filePath)
	}
	cfg, err := LoadFile(DefaultFileName)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the config as YAML.
func (cfg *Config) Save(filePath string) error {
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config to YAML: %w", err)
	}
	if err := os.WriteFile(filePath, yamlData, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filePath, err)
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (cfg *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(cfg.Output.Format)) {
	case "", "html", "htm", "markdown", "md", "json", "yaml", "yml":
	default:
		return fmt.Errorf("invalid output.format %q", cfg.Output.Format)
	}
	if _, err := cfg.ZapLevel(); err != nil {
		return err
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid server.max_body_bytes %d", cfg.Server.MaxBodyBytes)
	}
	for _, timeout := range []time.Duration{cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout} {
		if timeout < 0 {
			return fmt.Errorf("invalid negative server timeout %s", timeout)
		}
	}
	return nil
}

// ZapLevel parses the configured log level. An empty level means info.
func (cfg *Config) ZapLevel() (zapcore.Level, error) {
	if strings.TrimSpace(cfg.Log.Level) == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log.level %q: %w", cfg.Log.Level, err)
	}
	return level, nil
}

// NormalizeOptions converts the normalize section for normalize.New.
func (cfg *Config) NormalizeOptions() normalize.Options {
	return normalize.Options{UnicodeNFC: cfg.Normalize.UnicodeNFC}
}
