//go:build unit

package zap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsInvalidEnvironment(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Environment: "moon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestNewAppliesEnvironmentDefaultLevel(t *testing.T) {
	t.Parallel()

	_, level, err := New(Config{Environment: EnvironmentLocal, DisableOTelBridge: true})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	_, level, err = New(Config{Environment: EnvironmentProduction, DisableOTelBridge: true})
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestNewAppliesCustomLevel(t *testing.T) {
	t.Parallel()

	logger, level, err := New(Config{Environment: EnvironmentStaging, Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level.Level())
	assert.Equal(t, zapcore.WarnLevel, logger.Level().Level())
}

func TestNewRejectsInvalidCustomLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Environment: EnvironmentProduction, Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid level")
}

func TestBuildConfigByEnvironment(t *testing.T) {
	t.Parallel()

	dev := buildConfigByEnvironment(EnvironmentDevelopment)
	assert.True(t, dev.Development)
	assert.Equal(t, "json", dev.Encoding)

	prod := buildConfigByEnvironment(EnvironmentProduction)
	assert.False(t, prod.Development)
	assert.Equal(t, "json", prod.Encoding)
}
