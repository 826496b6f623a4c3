// internal/logging/logging_test.go
package logging

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/mcstatus-relay/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}
	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestSetupWritesToRotatedFile(t *testing.T) {
	defer func() {
		log.SetOutput(os.Stderr)
		slog.SetLogLoggerLevel(slog.LevelInfo)
	}()
	fn := filepath.Join(t.TempDir(), "relay.log")

	c, err := Setup(config.LogConfig{Level: "debug", File: fn, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)

	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
	slog.Info("Relay ready", "listen", ":8080")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Relay ready")
}

func TestSetupRejectsBadLevel(t *testing.T) {
	_, err := Setup(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
