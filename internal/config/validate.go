// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	r := cfg.Relay

	// ------------------------------------------------------------
	// STATUS API
	// ------------------------------------------------------------

	if r.StatusAPI.BaseURL != "" {
		u, err := url.Parse(r.StatusAPI.BaseURL)
		if err != nil {
			return fmt.Errorf("status_api.base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("status_api.base_url: scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("status_api.base_url: host missing in %q", r.StatusAPI.BaseURL)
		}
	}
	if r.StatusAPI.TimeoutMs < 0 {
		return fmt.Errorf("status_api.timeout_ms must be >= 0, got %d", r.StatusAPI.TimeoutMs)
	}

	// ------------------------------------------------------------
	// DISPATCH
	// ------------------------------------------------------------

	if r.QueueSize < 0 {
		return fmt.Errorf("queue_size must be >= 0, got %d", r.QueueSize)
	}
	if r.SubscriberBuffer < 0 {
		return fmt.Errorf("subscriber_buffer must be >= 0, got %d", r.SubscriberBuffer)
	}

	// ------------------------------------------------------------
	// LISTENERS
	// ------------------------------------------------------------

	if r.Gateway.Listen != "" {
		if _, _, err := net.SplitHostPort(r.Gateway.Listen); err != nil {
			return fmt.Errorf("gateway.listen: %w", err)
		}
	}
	if r.Gateway.PingsPerSecond < 0 {
		return fmt.Errorf("gateway.pings_per_second must be >= 0, got %v", r.Gateway.PingsPerSecond)
	}
	if r.Gateway.Burst < 0 {
		return fmt.Errorf("gateway.burst must be >= 0, got %d", r.Gateway.Burst)
	}
	if r.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(r.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics.listen: %w", err)
		}
		gw := r.Gateway.Listen
		if gw == "" {
			gw = DefaultGatewayListen
		}
		if r.Metrics.Listen == gw {
			return fmt.Errorf("metrics.listen and gateway.listen collide on %s", r.Metrics.Listen)
		}
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	switch strings.ToLower(r.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be one of debug, info, warn, error", r.Log.Level)
	}
	if r.Log.MaxSizeMB < 0 || r.Log.MaxBackups < 0 {
		return errors.New("log.max_size_mb and log.max_backups must be >= 0")
	}

	return nil
}
