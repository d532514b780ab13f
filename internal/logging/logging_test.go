package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, sync, err := New("debug", format)
		require.NoError(t, err, format)
		require.NotNil(t, logger)
		require.NotNil(t, sync)
	}
}

func TestNew_InvalidInput(t *testing.T) {
	_, _, err := New("info", "xml")
	assert.Error(t, err)

	_, _, err = New("loud", "json")
	assert.Error(t, err)
}

func TestFromCore_LevelsAndAttrs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := FromCore(core)

	logger.Debug("hidden")
	logger.Info("order settled", slog.String("instrument", "AAA"), slog.Int64("amount", 5))
	logger.Warn("tick failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "order settled", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "AAA", entries[0].ContextMap()["instrument"])
	assert.Equal(t, int64(5), entries[0].ContextMap()["amount"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
