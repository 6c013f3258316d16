package signals

import (
	"time"

	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	libLog "github.com/LerianStudio/lib-signals/signals/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxReentrancyDepth = 8

// DispatcherConfig controls dispatcher reentrancy, panic and metric behavior.
type DispatcherConfig struct {
	// MaxReentrancyDepth caps how many emits may be active on one call chain.
	// An emit issued from a handler counts against the same chain.
	MaxReentrancyDepth int
	// RecoverPanics turns handler panics into *HandlerError values.
	RecoverPanics bool
	// MeterProvider overrides the default global meter provider when set.
	MeterProvider metric.MeterProvider
}

// DefaultDispatcherConfig returns the baseline dispatcher configuration.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxReentrancyDepth: defaultMaxReentrancyDepth,
		RecoverPanics:      false,
		MeterProvider:      nil,
	}
}

func (cfg *DispatcherConfig) normalize() {
	defaults := DefaultDispatcherConfig()

	if cfg.MaxReentrancyDepth <= 0 {
		cfg.MaxReentrancyDepth = defaults.MaxReentrancyDepth
	}
}

// DispatcherOption mutates dispatcher configuration at construction.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger libLog.Logger) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if nilcheck.Interface(logger) {
			return
		}

		dispatcher.logger = logger
	}
}

// WithTracer sets the tracer used for emit and handler spans.
func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if nilcheck.Interface(tracer) {
			return
		}

		dispatcher.tracer = tracer
	}
}

// WithMeterProvider sets a custom OpenTelemetry meter provider.
func WithMeterProvider(provider metric.MeterProvider) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if nilcheck.Interface(provider) {
			return
		}

		dispatcher.cfg.MeterProvider = provider
	}
}

// WithMaxReentrancyDepth sets how many emits may nest on one call chain.
// A depth of 1 forbids emitting from inside a handler.
//
// The depth travels in the ctx a handler receives. A handler that emits with
// a fresh context (context.Background, or one not derived from its ctx)
// starts again at depth 0 and leaves the ambient unit of work behind, so the
// limit cannot stop that recursion.
func WithMaxReentrancyDepth(depth int) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if depth > 0 {
			dispatcher.cfg.MaxReentrancyDepth = depth
		}
	}
}

// WithPanicRecovery controls whether handler panics are recovered.
func WithPanicRecovery(enabled bool) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		dispatcher.cfg.RecoverPanics = enabled
	}
}

// WithClock overrides the clock used for Metadata.EmittedAt.
func WithClock(now func() time.Time) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if now != nil {
			dispatcher.now = now
		}
	}
}
