//go:build unit

package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/LerianStudio/lib-signals/signals/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOriginalPanic = errors.New("original error")

type capturedLog struct {
	level  log.Level
	msg    string
	fields []log.Field
}

type testLogger struct {
	mu      sync.Mutex
	entries []capturedLog
}

func (l *testLogger) Log(_ context.Context, level log.Level, msg string, fields ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *testLogger) With(...log.Field) log.Logger { return l }
func (l *testLogger) WithGroup(string) log.Logger  { return l }
func (l *testLogger) Enabled(log.Level) bool       { return true }
func (l *testLogger) Sync(context.Context) error   { return nil }

type testReporter struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (r *testReporter) CaptureException(_ context.Context, err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func panicking(ctx context.Context, logger log.Logger, value any) (err error) {
	defer RecoverInto(ctx, logger, "signals", "handler", &err)

	panic(value)
}

func TestRecoverInto_NoPanicLeavesErrorUntouched(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("kept")

	run := func() (err error) {
		defer RecoverInto(context.Background(), nil, "signals", "handler", &err)

		return sentinel
	}

	require.ErrorIs(t, run(), sentinel)
}

func TestRecoverInto_StringPanic(t *testing.T) {
	logger := &testLogger{}

	err := panicking(context.Background(), logger, "something went wrong")

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	require.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, "panic: something went wrong", err.Error())
	assert.NotEmpty(t, panicErr.Stack)

	require.Len(t, logger.entries, 1)
	assert.Equal(t, log.LevelError, logger.entries[0].level)
	assert.Equal(t, "panic recovered", logger.entries[0].msg)
}

func TestRecoverInto_ErrorPanicPreservesIdentity(t *testing.T) {
	err := panicking(context.Background(), nil, errOriginalPanic)

	require.ErrorIs(t, err, ErrPanic)
	require.ErrorIs(t, err, errOriginalPanic)
}

func TestRecoverInto_ReportsToErrorReporter(t *testing.T) {
	reporter := &testReporter{}
	SetErrorReporter(reporter)
	t.Cleanup(func() { SetErrorReporter(nil) })

	//nolint:staticcheck // nil context is replaced internally
	_ = panicking(nil, nil, 42)

	require.Len(t, reporter.errs, 1)
	assert.Equal(t, "panic: 42", reporter.errs[0].Error())
	assert.Equal(t, "signals", reporter.tags[0]["component"])
	assert.Equal(t, "handler", reporter.tags[0]["operation"])
	assert.Contains(t, reporter.tags[0], "stack_trace")
}

func TestRecoverInto_ProductionModeRedacts(t *testing.T) {
	reporter := &testReporter{}
	SetErrorReporter(reporter)
	SetProductionMode(true)
	t.Cleanup(func() {
		SetErrorReporter(nil)
		SetProductionMode(false)
	})

	logger := &testLogger{}
	err := panicking(context.Background(), logger, "card=4111111111111111")

	assert.Equal(t, redactedPanicMsg, err.Error())
	require.Len(t, reporter.tags, 1)
	assert.NotContains(t, reporter.tags[0], "stack_trace")

	for _, f := range logger.entries[0].fields {
		assert.NotEqual(t, "stack", f.Key)
	}
}

func TestFormatPanicValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<nil>", formatPanicValue(nil))
	assert.Equal(t, "text", formatPanicValue("text"))
	assert.Equal(t, "original error", formatPanicValue(errOriginalPanic))
	assert.Equal(t, "{1 2}", formatPanicValue(struct{ A, B int }{1, 2}))
}
