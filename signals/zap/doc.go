// Package zap adapts go.uber.org/zap to the lib-signals log.Logger interface.
//
// Log lines written while a span is active carry trace_id and span_id, so
// handler logs emitted during a signal dispatch correlate with the
// signals.emit span.
package zap
