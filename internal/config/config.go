// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Relay RelayConfig `yaml:"relay"`
}

type RelayConfig struct {
	StatusAPI StatusAPIConfig `yaml:"status_api"`

	// Inbound queue capacity (pending pings).
	QueueSize int `yaml:"queue_size"`
	// Per-subscriber broadcast buffer.
	SubscriberBuffer int `yaml:"subscriber_buffer"`

	Gateway GatewayConfig `yaml:"gateway"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ---- UPSTREAM ----

type StatusAPIConfig struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
	TimeoutMs int    `yaml:"timeout_ms"` // 0 = transport default
}

// ---- WIDGETS ----

type GatewayConfig struct {
	Listen         string  `yaml:"listen"`
	PingsPerSecond float64 `yaml:"pings_per_second"` // per connection, 0 = unlimited
	Burst          int     `yaml:"burst"`
}

// ---- OBSERVABILITY ----

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the metrics endpoint
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load reads a YAML config file. It does not validate.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML config. Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
