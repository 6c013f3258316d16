//go:build unit

package zap

import (
	"context"
	"errors"
	"testing"
	"time"

	logpkg "github.com/LerianStudio/lib-signals/signals/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(level)

	return Wrap(zap.New(core)), observed
}

func TestLoggerNilReceiverFallsBackToNop(t *testing.T) {
	t.Parallel()

	var nilLogger *Logger

	assert.NotPanics(t, func() {
		nilLogger.Log(context.Background(), logpkg.LevelInfo, "message")
		_ = nilLogger.With(logpkg.String("a", "b"))
		_ = nilLogger.Enabled(logpkg.LevelError)
	})
}

func TestLogMapsLevels(t *testing.T) {
	t.Parallel()

	logger, observed := newObservedLogger(zapcore.DebugLevel)
	ctx := context.Background()

	logger.Log(ctx, logpkg.LevelDebug, "debug")
	logger.Log(ctx, logpkg.LevelInfo, "info")
	logger.Log(ctx, logpkg.LevelWarn, "warn")
	logger.Log(ctx, logpkg.LevelError, "error")
	logger.Log(ctx, logpkg.Level(99), "fallback")

	entries := observed.All()
	require.Len(t, entries, 5)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[4].Level)
}

func TestLogConvertsTypedFields(t *testing.T) {
	t.Parallel()

	logger, observed := newObservedLogger(zapcore.DebugLevel)

	logger.Log(context.Background(), logpkg.LevelWarn, "handler failed",
		logpkg.String("signal", "after-save"),
		logpkg.Int("depth", 2),
		logpkg.Duration("elapsed", 150*time.Millisecond),
		logpkg.Err(errors.New("boom")),
	)

	entries := observed.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "after-save", fields["signal"])
	assert.EqualValues(t, 2, fields["depth"])
	assert.Equal(t, 150*time.Millisecond, fields["elapsed"])
	assert.Equal(t, "boom", fields["error"])
}

func TestLogWithSpanInjectsTraceFields(t *testing.T) {
	t.Parallel()

	logger, observed := newObservedLogger(zapcore.DebugLevel)

	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := provider.Tracer("test").Start(context.Background(), "signals.emit")
	defer span.End()

	logger.Log(ctx, logpkg.LevelInfo, "inside span")

	fields := observed.All()[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}

func TestLogWithoutSpanOmitsTraceFields(t *testing.T) {
	t.Parallel()

	logger, observed := newObservedLogger(zapcore.DebugLevel)

	//nolint:staticcheck // nil context handling is part of the contract
	logger.Log(nil, logpkg.LevelInfo, "no ctx")
	logger.Log(context.Background(), logpkg.LevelInfo, "no span")

	for _, entry := range observed.All() {
		assert.NotContains(t, entry.ContextMap(), "trace_id")
	}
}

func TestWithAndWithGroup(t *testing.T) {
	t.Parallel()

	logger, observed := newObservedLogger(zapcore.DebugLevel)

	logger.With(logpkg.String("component", "txn")).Log(context.Background(), logpkg.LevelInfo, "child")
	logger.WithGroup("emit").Log(context.Background(), logpkg.LevelInfo, "grouped", logpkg.String("signal", "s"))
	logger.Log(context.Background(), logpkg.LevelInfo, "parent")

	entries := observed.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "txn", entries[0].ContextMap()["component"])
	assert.Equal(t, map[string]any{"signal": "s"}, entries[1].ContextMap()["emit"])
	assert.NotContains(t, entries[2].ContextMap(), "component")
}

func TestEnabledFollowsCoreLevel(t *testing.T) {
	t.Parallel()

	logger, _ := newObservedLogger(zapcore.WarnLevel)

	assert.True(t, logger.Enabled(logpkg.LevelError))
	assert.True(t, logger.Enabled(logpkg.LevelWarn))
	assert.False(t, logger.Enabled(logpkg.LevelInfo))
	assert.False(t, logger.Enabled(logpkg.LevelDebug))
}

func TestSyncWithCancelledContext(t *testing.T) {
	t.Parallel()

	logger, _ := newObservedLogger(zapcore.DebugLevel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, logger.Sync(ctx), context.Canceled)
	require.NoError(t, logger.Sync(context.Background()))
}
