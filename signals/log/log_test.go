//go:build unit

package log

import (
	"bytes"
	"context"
	"errors"
	stdlog "log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level Level) (*GoLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}

	return NewGoLoggerWithOutput(level, stdlog.New(buf, "", 0)), buf
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		expected    Level
		expectError bool
	}{
		{name: "debug", input: "debug", expected: LevelDebug},
		{name: "info", input: "info", expected: LevelInfo},
		{name: "warn", input: "warn", expected: LevelWarn},
		{name: "warning alias", input: "warning", expected: LevelWarn},
		{name: "error", input: "error", expected: LevelError},
		{name: "mixed case with spaces", input: "  WaRn ", expected: LevelWarn},
		{name: "invalid", input: "fatal", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			level, err := ParseLevel(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevel_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "unknown", Level(42).String())
}

func TestGoLogger_Enabled(t *testing.T) {
	t.Parallel()

	logger := NewGoLogger(LevelInfo)

	assert.True(t, logger.Enabled(LevelError))
	assert.True(t, logger.Enabled(LevelWarn))
	assert.True(t, logger.Enabled(LevelInfo))
	assert.False(t, logger.Enabled(LevelDebug))

	var nilLogger *GoLogger
	assert.False(t, nilLogger.Enabled(LevelError))
}

func TestGoLogger_LogWritesLevelFieldsAndMessage(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(LevelDebug)

	logger.Log(context.Background(), LevelWarn, "handler failed",
		String("signal", "after-save"),
		Int("depth", 1),
		Duration("elapsed", time.Second),
	)

	assert.Equal(t, "[warn] [signal=after-save, depth=1, elapsed=1s] handler failed\n", buf.String())
}

func TestGoLogger_LogSuppressedBelowLevel(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(LevelWarn)

	logger.Log(context.Background(), LevelDebug, "noise")

	assert.Empty(t, buf.String())
}

func TestGoLogger_SanitizesControlCharacters(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(LevelInfo)

	logger.Log(context.Background(), LevelInfo, "line1\nFAKE [error] entry", String("k\t", "v\r"))

	assert.Equal(t, "[info] [k\\t=v\\r] line1\\nFAKE [error] entry\n", buf.String())
}

func TestGoLogger_WithAndWithGroup(t *testing.T) {
	t.Parallel()

	base, buf := newBufferedLogger(LevelInfo)

	child := base.With(String("component", "dispatcher")).WithGroup("emit").WithGroup("handler")
	child.Log(context.Background(), LevelInfo, "done", Bool("ok", true))

	assert.Equal(t, "[info] [component=dispatcher, emit.handler.ok=true] done\n", buf.String())

	buf.Reset()
	base.Log(context.Background(), LevelInfo, "parent untouched")
	assert.Equal(t, "[info] parent untouched\n", buf.String())
}

func TestGoLogger_NilReceiverChildren(t *testing.T) {
	t.Parallel()

	var logger *GoLogger

	require.NotPanics(t, func() {
		logger.With(String("a", "b")).Log(context.Background(), LevelError, "dropped")
		logger.WithGroup("g").Log(context.Background(), LevelError, "dropped")
	})
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	logger := NewNop()

	assert.False(t, logger.Enabled(LevelError))
	assert.Same(t, logger, logger.With(String("a", "b")))
	assert.Same(t, logger, logger.WithGroup("g"))
	require.NoError(t, logger.Sync(context.Background()))
}

func TestSafeError(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(LevelDebug)
	err := errors.New("password=hunter2")

	SafeError(logger, context.Background(), "commit failed", err, true)
	assert.Contains(t, buf.String(), "error_type=*errors.errorString")
	assert.NotContains(t, buf.String(), "hunter2")

	buf.Reset()
	SafeError(logger, context.Background(), "commit failed", err, false)
	assert.Contains(t, buf.String(), "hunter2")

	buf.Reset()
	SafeError(logger, context.Background(), "commit failed", nil, false)
	SafeError(nil, context.Background(), "commit failed", err, false)
	assert.Empty(t, buf.String())
}
