// Package signals implements an in-process, synchronous signal dispatcher.
//
// Handlers are registered against a Signal, optionally filtered to one
// Sender, on a HandlerRegistry during application start-up. A Dispatcher then
// emits signals: every matching handler runs in registration order, on the
// emitting goroutine, before Emit returns. The emitter's context.Context is
// handed to every handler unchanged, so a unit of work opened with the txn
// package is shared by the emitter and all of its handlers.
//
//	registry := signals.NewHandlerRegistry()
//	registry.MustRegister(AfterSave, auditHandler)
//	registry.MustRegister(AfterSave, cacheHandler, signals.ForSender(signals.SenderOf(&Order{})))
//
//	dispatcher, err := signals.NewDispatcher(registry, signals.WithLogger(logger))
//	...
//	_, err = dispatcher.Emit(ctx, AfterSave, signals.SenderOf(order), payload.SaveEvent{Record: order, Created: true})
//
// The first handler that returns an error stops the emit. The error reaches
// the emitter as a *HandlerError naming the failing handler and unwrapping to
// the handler's own error; handlers after it are not called.
package signals
