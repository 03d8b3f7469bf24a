package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ryogrid/blockbufferpool/internal/logger"
)

func TestNew_DefaultsToInfoOnInvalidLevel(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "not-a-level"})
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_DevelopmentProducesUsableLogger(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "debug", Development: true})
	require.NoError(t, err)
	require.NotNil(t, l)
	l.Sync()
}

func TestNop_DiscardsWithoutPanicking(t *testing.T) {
	l := logger.Nop()
	require.NotNil(t, l)
	l.Info("discarded")
}
