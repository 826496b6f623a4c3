// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/mcstatus-relay/internal/statusapi"
)

const (
	DefaultUserAgent        = "mcstatus-relay/1.0"
	DefaultQueueSize        = 64
	DefaultSubscriberBuffer = 64
	DefaultGatewayListen    = ":8080"
	DefaultBurst            = 5
	DefaultLogLevel         = "info"
	DefaultLogMaxSizeMB     = 50
	DefaultLogMaxBackups    = 3
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	r := &cfg.Relay

	r.StatusAPI.BaseURL = strings.TrimRight(strings.TrimSpace(r.StatusAPI.BaseURL), "/")
	if r.StatusAPI.BaseURL == "" {
		r.StatusAPI.BaseURL = statusapi.DefaultBaseURL
	}
	if strings.TrimSpace(r.StatusAPI.UserAgent) == "" {
		r.StatusAPI.UserAgent = DefaultUserAgent
	}

	if r.QueueSize == 0 {
		r.QueueSize = DefaultQueueSize
	}
	if r.SubscriberBuffer == 0 {
		r.SubscriberBuffer = DefaultSubscriberBuffer
	}

	if r.Gateway.Listen == "" {
		r.Gateway.Listen = DefaultGatewayListen
	}
	// Burst only matters when a rate is set.
	if r.Gateway.PingsPerSecond > 0 && r.Gateway.Burst == 0 {
		r.Gateway.Burst = DefaultBurst
	}

	r.Log.Level = strings.ToLower(r.Log.Level)
	if r.Log.Level == "" {
		r.Log.Level = DefaultLogLevel
	}
	if r.Log.File != "" {
		if r.Log.MaxSizeMB == 0 {
			r.Log.MaxSizeMB = DefaultLogMaxSizeMB
		}
		if r.Log.MaxBackups == 0 {
			r.Log.MaxBackups = DefaultLogMaxBackups
		}
	}
}
