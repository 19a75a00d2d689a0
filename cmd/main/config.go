package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// GeneratorConfig holds the defaults of the generate and stats commands.
type GeneratorConfig struct {
	Order     int    `json:"order" yaml:"order"`
	Sentences int    `json:"sentences" yaml:"sentences"`
	Workers   int    `json:"workers" yaml:"workers"`
	Backend   string `json:"backend" yaml:"backend"`
	Seed      uint64 `json:"seed" yaml:"seed"`
	MaxSteps  int    `json:"max_steps" yaml:"max_steps"`
	// SQLiteDSNTemplate is the data source of the private database each
	// sqlite pipeline opens. "{id}" is replaced with a fresh UUID.
	SQLiteDSNTemplate string `json:"sqlite_dsn_template" yaml:"sqlite_dsn_template"`
}

// ServerConfig holds the configuration for the HTTP API.
type ServerConfig struct {
	Addr           string `json:"addr" yaml:"addr"`
	MaxTextBytes   int64  `json:"max_text_bytes" yaml:"max_text_bytes"`
	MaxSentences   int    `json:"max_sentences" yaml:"max_sentences"`
	MaxSteps       int    `json:"max_steps" yaml:"max_steps"`
	MaxOrder       int    `json:"max_order" yaml:"max_order"`
	ReadTimeoutSec int    `json:"read_timeout_sec" yaml:"read_timeout_sec"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Generator *GeneratorConfig `json:"generator_config" yaml:"generator_config"`
	Server    *ServerConfig    `json:"server_config" yaml:"server_config"`
	Log       *LogConfig       `json:"log_config" yaml:"log_config"`
}

const (
	backendMemory = "memory"
	backendSQLite = "sqlite"
)

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Generator: &GeneratorConfig{
			Order:             3,
			Sentences:         10,
			Workers:           1,
			Backend:           backendMemory,
			Seed:              0,
			MaxSteps:          0,
			SQLiteDSNTemplate: "file:ngram-{id}?mode=memory&cache=shared",
		},
		Server: &ServerConfig{
			Addr:           "127.0.0.1:7280",
			MaxTextBytes:   1 << 20,
			MaxSentences:   100,
			MaxSteps:       1000,
			MaxOrder:       8,
			ReadTimeoutSec: 30,
		},
		Log: &LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

// LoadConfig reads the configuration from path. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON. If the file doesn't exist, it
// creates one with default values. Sections missing from the file keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(file, config)
	} else {
		err = json.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	defaults := DefaultConfig()
	if config.Generator == nil {
		config.Generator = defaults.Generator
	}
	if config.Server == nil {
		config.Server = defaults.Server
	}
	if config.Log == nil {
		config.Log = defaults.Log
	}

	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// Validate reports the first setting that can never work.
func (c *Config) Validate() error {
	g := c.Generator
	if g.Order < 1 {
		return fmt.Errorf("generator_config.order must be at least 1, got %d", g.Order)
	}
	if g.Sentences < 0 {
		return fmt.Errorf("generator_config.sentences must not be negative, got %d", g.Sentences)
	}
	if g.MaxSteps < 0 {
		return fmt.Errorf("generator_config.max_steps must not be negative, got %d", g.MaxSteps)
	}
	switch g.Backend {
	case backendMemory:
	case backendSQLite:
		if !strings.Contains(g.SQLiteDSNTemplate, "{id}") {
			return fmt.Errorf("generator_config.sqlite_dsn_template must contain {id}")
		}
	default:
		return fmt.Errorf("generator_config.backend must be %q or %q, got %q", backendMemory, backendSQLite, g.Backend)
	}

	s := c.Server
	if s.MaxTextBytes <= 0 || s.MaxSentences <= 0 || s.MaxSteps <= 0 || s.MaxOrder <= 0 {
		return fmt.Errorf("server_config limits must be positive")
	}
	return nil
}
