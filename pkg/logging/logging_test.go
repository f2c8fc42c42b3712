package logging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gatelink/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf).Level(zerolog.InfoLevel))

	logging.Debug().Msg("debug message")
	logging.Info().Msg("info message")

	assert.Contains(t, buf.String(), "info message")
	assert.NotContains(t, buf.String(), "debug message")
}

func TestContextFields(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithSession(ctx, "http://gw.local/api")
	ctx = logging.WithSubscription(ctx, "sub-42")

	logging.FromContext(ctx).Info().Msg("dispatched")

	testLogger.AssertContains(t, `"session":"http://gw.local/api"`)
	testLogger.AssertContains(t, `"subscription_id":"sub-42"`)
	assert.Len(t, testLogger.Lines(), 1)
}

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
	assert.Same(t, logging.Default(), logging.OrDefault(nil))
}

func TestNewLoggerFromConfig(t *testing.T) {
	t.Run("file output as json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gatelink.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:  "warn",
			Format: "auto",
			Output: path,
			Fields: map[string]any{"app": "gatelink"},
		})
		logger.Info().Msg("hidden")
		logger.Warn().Msg("shown")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"shown"`)
		assert.Contains(t, string(data), `"app":"gatelink"`)
		assert.NotContains(t, string(data), "hidden")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger := logging.NewLoggerFromConfig(&logging.Config{Level: "loud", Output: "discard"})
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("nil config", func(t *testing.T) {
		logger := logging.NewLoggerFromConfig(nil)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", "stdout")

	cfg := logging.ConfigFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.Equal(t, "kitchen", cfg.TimeFormat)
}
