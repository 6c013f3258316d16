package signals

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type dispatcherMetrics struct {
	emits              metric.Int64Counter
	handlerInvocations metric.Int64Counter
	handlerFailures    metric.Int64Counter
	emitDuration       metric.Float64Histogram
}

func newDispatcherMetrics(provider metric.MeterProvider) (dispatcherMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter("signals.dispatcher")

	var (
		metrics dispatcherMetrics
		err     error
	)

	metrics.emits, err = meter.Int64Counter(
		"signals.emits",
		metric.WithDescription("Number of signals emitted"),
		metric.WithUnit("{emit}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create signals.emits counter: %w", err)
	}

	metrics.handlerInvocations, err = meter.Int64Counter(
		"signals.handler.invocations",
		metric.WithDescription("Number of signal handler invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create signals.handler.invocations counter: %w", err)
	}

	metrics.handlerFailures, err = meter.Int64Counter(
		"signals.handler.failures",
		metric.WithDescription("Number of signal handler invocations that aborted an emit"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create signals.handler.failures counter: %w", err)
	}

	metrics.emitDuration, err = meter.Float64Histogram(
		"signals.emit.duration",
		metric.WithDescription("Time taken to run every handler of one emit"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create signals.emit.duration histogram: %w", err)
	}

	return metrics, nil
}
