package config_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/submission/config"
)

func TestNewLoggerUsesLogLevel(t *testing.T) {
	var output bytes.Buffer
	options := config.DefaultOptions()
	options.LogLevel = "warn"

	logger, err := config.NewLogger(options, &output)
	require.NoError(t, err)
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger.Info("dropped")
	require.Zero(t, output.Len())
	logger.Warn("kept")
	require.Contains(t, output.String(), `"msg":"kept"`)

	options.LogLevel = "verbose"
	_, err = config.NewLogger(options, &output)
	require.Error(t, err)
}
