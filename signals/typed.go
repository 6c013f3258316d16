package signals

import (
	"context"
	"fmt"
	"reflect"
)

// Typed binds a Signal to one payload type.
//
//	var AfterSave = signals.NewTyped[payload.SaveEvent]("after-save")
//
//	AfterSave.Connect(registry, func(ctx context.Context, sender signals.Sender, event payload.SaveEvent, meta signals.Metadata) error {
//		...
//	})
type Typed[T any] struct {
	signal Signal
}

// NewTyped returns a typed view of signal.
func NewTyped[T any](signal Signal) *Typed[T] {
	return &Typed[T]{signal: signal.normalize()}
}

// Signal returns the underlying signal identity.
func (s *Typed[T]) Signal() Signal {
	return s.signal
}

// Connect registers fn on registry. An emit whose payload is not a T fails
// with ErrPayloadType before fn is called.
func (s *Typed[T]) Connect(
	registry *HandlerRegistry,
	fn func(ctx context.Context, sender Sender, payload T, meta Metadata) error,
	opts ...RegisterOption,
) (HandlerID, error) {
	if fn == nil {
		return HandlerID{}, &RegistrationError{Signal: s.signal, Err: ErrHandlerRequired}
	}

	return registry.Register(s.signal, func(ctx context.Context, sender Sender, payload any, meta Metadata) (any, error) {
		typed, ok := payload.(T)
		if !ok {
			return nil, fmt.Errorf("%w: signal %q expects %s, got %T",
				ErrPayloadType, s.signal, reflect.TypeFor[T](), payload)
		}

		return nil, fn(ctx, sender, typed, meta)
	}, opts...)
}

// Emit emits payload through dispatcher.
func (s *Typed[T]) Emit(ctx context.Context, dispatcher *Dispatcher, sender Sender, payload T) ([]Result, error) {
	return dispatcher.Emit(ctx, s.signal, sender, payload)
}
