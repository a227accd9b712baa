package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureLogger(t *testing.T) {
	logger, logs := NewCaptureLogger()

	logger.With("session", "default").Warn("stale update applied", "base", 1)
	logger.Error("apply failed")
	logger.Debug("closing panel")

	entries := logs.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "default", entries[0].Attrs["session"])
	assert.Equal(t, int64(1), entries[0].Attrs["base"])

	assert.True(t, logs.Has(slog.LevelWarn, "stale"))
	assert.False(t, logs.Has(slog.LevelError, "stale"))
	assert.Equal(t, 1, logs.Count(slog.LevelDebug, "closing"))
}

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)
	require.NotNil(t, logger)
	logger.Info("hello", "k", "v")
}
