package log

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"strings"
)

// logControlCharReplacer escapes control characters that can be used for log injection (CWE-117).
var logControlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func sanitizeLogString(s string) string {
	return logControlCharReplacer.Replace(s)
}

// GoLogger is a Logger backed by the standard library log package. It is the
// fallback when no structured backend is configured.
//
// Messages, field keys and string field values are sanitized to prevent log
// injection (CWE-117).
type GoLogger struct {
	Level  Level
	out    *stdlog.Logger
	fields []Field
	group  string
}

var _ Logger = (*GoLogger)(nil)

// NewGoLogger creates a GoLogger writing to stderr at the given level.
func NewGoLogger(level Level) *GoLogger {
	return &GoLogger{
		Level: level,
		out:   stdlog.New(os.Stderr, "", stdlog.LstdFlags),
	}
}

// NewGoLoggerWithOutput creates a GoLogger writing through out.
func NewGoLoggerWithOutput(level Level, out *stdlog.Logger) *GoLogger {
	if out == nil {
		out = stdlog.New(os.Stderr, "", stdlog.LstdFlags)
	}

	return &GoLogger{Level: level, out: out}
}

// Log writes one line when level is enabled.
func (l *GoLogger) Log(_ context.Context, level Level, msg string, fields ...Field) {
	if !l.Enabled(level) {
		return
	}

	l.output().Print(l.format(level, msg, fields))
}

// With returns a child logger carrying additional fields.
//
//nolint:ireturn
func (l *GoLogger) With(fields ...Field) Logger {
	if l == nil {
		return &GoLogger{}
	}

	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, l.prefixed(fields)...)

	return &GoLogger{Level: l.Level, out: l.out, fields: merged, group: l.group}
}

// WithGroup returns a child logger whose subsequent field keys are prefixed by name.
//
//nolint:ireturn
func (l *GoLogger) WithGroup(name string) Logger {
	if l == nil {
		return &GoLogger{}
	}

	group := strings.TrimSpace(name)
	if l.group != "" && group != "" {
		group = l.group + "." + group
	} else if group == "" {
		group = l.group
	}

	return &GoLogger{Level: l.Level, out: l.out, fields: l.fields, group: group}
}

// Enabled reports whether level is within the logger verbosity.
func (l *GoLogger) Enabled(level Level) bool {
	if l == nil {
		return false
	}

	return l.Level >= level
}

// Sync is a no-op; the standard logger is unbuffered.
func (l *GoLogger) Sync(_ context.Context) error { return nil }

func (l *GoLogger) output() *stdlog.Logger {
	if l.out == nil {
		return stdlog.Default()
	}

	return l.out
}

func (l *GoLogger) prefixed(fields []Field) []Field {
	if l.group == "" {
		return fields
	}

	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Key: l.group + "." + f.Key, Value: f.Value}
	}

	return out
}

func (l *GoLogger) format(level Level, msg string, fields []Field) string {
	parts := make([]string, 0, 3)
	parts = append(parts, fmt.Sprintf("[%s]", level.String()))

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, l.prefixed(fields)...)

	if len(all) > 0 {
		kv := make([]string, 0, len(all))
		for _, f := range all {
			kv = append(kv, sanitizeLogString(f.Key)+"="+sanitizeLogString(fmt.Sprint(f.Value)))
		}

		parts = append(parts, "["+strings.Join(kv, ", ")+"]")
	}

	parts = append(parts, sanitizeLogString(msg))

	return strings.Join(parts, " ")
}
