package signals

import (
	"context"
	"fmt"
	"time"

	libLog "github.com/LerianStudio/lib-signals/signals/log"
	"github.com/LerianStudio/lib-signals/signals/runtime"
	"github.com/LerianStudio/lib-signals/signals/txn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type emitDepthKey struct{}

// EmitDepth returns how many emits are active on the call chain carried by
// ctx. It is 0 outside any handler and on any context not derived from a
// handler's ctx.
func EmitDepth(ctx context.Context) int {
	if ctx == nil {
		return 0
	}

	depth, _ := ctx.Value(emitDepthKey{}).(int)

	return depth
}

// Dispatcher runs the handlers of a HandlerRegistry synchronously.
type Dispatcher struct {
	registry *HandlerRegistry
	logger   libLog.Logger
	tracer   trace.Tracer
	cfg      DispatcherConfig
	now      func() time.Time
	metrics  dispatcherMetrics
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *HandlerRegistry, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrHandlerRegistryRequired
	}

	dispatcher := &Dispatcher{
		registry: registry,
		logger:   libLog.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("signals.noop"),
		cfg:      DefaultDispatcherConfig(),
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(dispatcher)
		}
	}

	dispatcher.cfg.normalize()

	metrics, err := newDispatcherMetrics(dispatcher.cfg.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("init signals metrics: %w", err)
	}

	dispatcher.metrics = metrics

	return dispatcher, nil
}

// Registry returns the registry the dispatcher resolves handlers from.
func (dispatcher *Dispatcher) Registry() *HandlerRegistry {
	if dispatcher == nil {
		return nil
	}

	return dispatcher.registry
}

// Emit delivers payload to every handler registered for signal that accepts
// sender. Handlers run one after another on the calling goroutine and receive
// ctx, so they take part in any txn unit it carries. Emit returns once the
// last handler has returned, or as soon as one fails.
//
// ctx is only checked for cancellation before handlers are resolved.
func (dispatcher *Dispatcher) Emit(ctx context.Context, signal Signal, sender Sender, payload any) ([]Result, error) {
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	if ctx == nil {
		ctx = context.Background()
	}

	signal = signal.normalize()
	sender = Sender(normalizeName(string(sender)))

	if err := signal.Validate(); err != nil {
		return nil, err
	}

	depth := EmitDepth(ctx)
	if depth >= dispatcher.cfg.MaxReentrancyDepth {
		return nil, fmt.Errorf("%w: signal %q at depth %d", ErrReentrancyLimit, signal, depth)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("emit signal %q: %w", signal, err)
	}

	handlers := dispatcher.registry.Resolve(signal, sender)
	emittedAt := dispatcher.now()
	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("signal", string(signal)))

	ctx, span := dispatcher.tracer.Start(ctx, "signals.emit", trace.WithAttributes(
		attribute.String("signals.signal", string(signal)),
		attribute.String("signals.sender", string(sender)),
		attribute.Int("signals.depth", depth+1),
	))
	defer span.End()

	dispatcher.metrics.emits.Add(ctx, 1, attrs)

	handlerCtx := context.WithValue(ctx, emitDepthKey{}, depth+1)
	transactional := txn.IsActive(ctx)

	var results []Result

	for reg := range handlers {
		meta := Metadata{
			Signal:            signal,
			Sender:            sender,
			HandlerID:         reg.ID,
			Depth:             depth + 1,
			EmittedAt:         emittedAt,
			TransactionActive: transactional,
		}

		dispatcher.metrics.handlerInvocations.Add(ctx, 1, attrs)

		value, err := dispatcher.invoke(handlerCtx, reg, sender, payload, meta)
		results = append(results, Result{HandlerID: reg.ID, Value: value, Err: err})

		if err != nil {
			handlerErr := &HandlerError{HandlerID: reg.ID, Signal: signal, Sender: sender, Err: err}

			dispatcher.metrics.handlerFailures.Add(ctx, 1, attrs)
			dispatcher.recordDuration(ctx, start, attrs)
			handleSpanError(span, "signal handler failed", handlerErr)

			dispatcher.logger.Log(ctx, libLog.LevelWarn, "signal handler failed",
				libLog.String("signal", string(signal)),
				libLog.String("sender", string(sender)),
				libLog.String("handler_id", reg.ID.String()),
				libLog.Err(err),
			)

			return results, handlerErr
		}
	}

	dispatcher.recordDuration(ctx, start, attrs)
	span.SetAttributes(attribute.Int("signals.handlers", len(results)))

	dispatcher.logger.Log(ctx, libLog.LevelDebug, "signal emitted",
		libLog.String("signal", string(signal)),
		libLog.String("sender", string(sender)),
		libLog.Int("handlers", len(results)),
		libLog.Bool("transactional", transactional),
		libLog.Duration("elapsed", time.Since(start)),
	)

	return results, nil
}

func (dispatcher *Dispatcher) invoke(
	ctx context.Context,
	reg Registration,
	sender Sender,
	payload any,
	meta Metadata,
) (any, error) {
	ctx, span := dispatcher.tracer.Start(ctx, "signals.handler", trace.WithAttributes(
		attribute.String("signals.signal", string(reg.Signal)),
		attribute.String("signals.handler_id", reg.ID.String()),
	))
	defer span.End()

	var (
		value any
		err   error
	)

	if dispatcher.cfg.RecoverPanics {
		value, err = dispatcher.invokeRecovering(ctx, reg, sender, payload, meta)
	} else {
		value, err = reg.Handler(ctx, sender, payload, meta)
	}

	if err != nil {
		handleSpanError(span, "signal handler returned error", err)
	}

	return value, err
}

func (dispatcher *Dispatcher) invokeRecovering(
	ctx context.Context,
	reg Registration,
	sender Sender,
	payload any,
	meta Metadata,
) (value any, err error) {
	panicked := true

	defer func() {
		if panicked && err != nil {
			err = fmt.Errorf("%w: %w", ErrHandlerPanicked, err)
		}
	}()
	defer runtime.RecoverInto(ctx, dispatcher.logger, "signals", string(reg.Signal), &err)

	value, err = reg.Handler(ctx, sender, payload, meta)
	panicked = false

	return value, err
}

func (dispatcher *Dispatcher) recordDuration(ctx context.Context, start time.Time, attrs metric.MeasurementOption) {
	dispatcher.metrics.emitDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func handleSpanError(span trace.Span, message string, err error) {
	span.SetStatus(codes.Error, message+": "+err.Error())
	span.RecordError(err)
}
