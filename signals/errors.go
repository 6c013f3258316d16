package signals

import (
	"errors"
	"fmt"
)

var (
	ErrHandlerRegistryRequired = errors.New("handler registry is required")
	ErrDispatcherRequired      = errors.New("signal dispatcher is required")
	ErrInvalidSignal           = errors.New("invalid signal identity")
	ErrInvalidSender           = errors.New("invalid sender identity")
	ErrHandlerRequired         = errors.New("signal handler is required")
	ErrHandlerNotRegistered    = errors.New("signal handler is not registered")
	ErrReentrancyLimit         = errors.New("signal reentrancy depth exceeded")
	ErrHandlerPanicked         = errors.New("signal handler panicked")
	ErrPayloadType             = errors.New("unexpected signal payload type")
)

// RegistrationError reports a rejected Register call.
type RegistrationError struct {
	Signal Signal
	Sender Sender
	Err    error
}

// Error returns the registration failure message.
func (e *RegistrationError) Error() string {
	if e == nil {
		return "signal registration failed"
	}

	if e.Sender != AnySender {
		return fmt.Sprintf("register handler for signal %q (sender %q): %v", e.Signal, e.Sender, e.Err)
	}

	return fmt.Sprintf("register handler for signal %q: %v", e.Signal, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RegistrationError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// HandlerError wraps the error a handler returned during Emit. Unwrap yields
// the handler's error untouched, so errors.Is and errors.As see through it.
type HandlerError struct {
	HandlerID HandlerID
	Signal    Signal
	Sender    Sender
	Err       error
}

// Error returns the handler failure message.
func (e *HandlerError) Error() string {
	if e == nil {
		return "signal handler failed"
	}

	return fmt.Sprintf("signal %q handler %s: %v", e.Signal, e.HandlerID, e.Err)
}

// Unwrap returns the handler's own error.
func (e *HandlerError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// FailedHandler returns the id of the handler that aborted an emit, if err
// carries one.
func FailedHandler(err error) (HandlerID, bool) {
	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) && handlerErr != nil {
		return handlerErr.HandlerID, true
	}

	return HandlerID{}, false
}
