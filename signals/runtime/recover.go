package runtime

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	"github.com/LerianStudio/lib-signals/signals/log"
)

// ErrPanic is matched by every *PanicError.
var ErrPanic = errors.New("panic recovered")

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
	Stack []byte
}

// Error returns the panic message, redacted in production mode.
func (e *PanicError) Error() string {
	if e == nil {
		return ErrPanic.Error()
	}

	if IsProductionMode() {
		return redactedPanicMsg
	}

	return "panic: " + formatPanicValue(e.Value)
}

// Unwrap exposes ErrPanic and, when the panic value was an error, that error.
func (e *PanicError) Unwrap() []error {
	if e == nil {
		return []error{ErrPanic}
	}

	if err, ok := e.Value.(error); ok {
		return []error{ErrPanic, err}
	}

	return []error{ErrPanic}
}

// RecoverInto must be deferred directly. On panic it logs the panic, reports it
// to the configured ErrorReporter and stores a *PanicError in *errp.
func RecoverInto(ctx context.Context, logger log.Logger, component, operation string, errp *error) {
	recovered := recover()
	if recovered == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	panicErr := &PanicError{Value: recovered, Stack: debug.Stack()}

	if !nilcheck.Interface(logger) {
		fields := []log.Field{
			log.String("component", component),
			log.String("operation", operation),
			log.String("panic", panicErr.Error()),
		}

		if !IsProductionMode() {
			fields = append(fields, log.String("stack", string(panicErr.Stack)))
		}

		logger.Log(ctx, log.LevelError, "panic recovered", fields...)
	}

	reportPanic(ctx, panicErr, panicErr.Stack, component, operation)

	if errp != nil {
		*errp = panicErr
	}
}
