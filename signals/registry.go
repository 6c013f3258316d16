package signals

import (
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// RegisterOption configures one Register call.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	sender    Sender
	senderSet bool
}

// ForSender restricts a handler to emits from sender.
func ForSender(sender Sender) RegisterOption {
	return func(o *registerOptions) {
		o.sender = sender
		o.senderSet = true
	}
}

// HandlerRegistry maps signals to their ordered handler lists.
//
// Writes replace the per-signal slice instead of mutating it, so a sequence
// returned by Resolve keeps iterating the list it was created from.
type HandlerRegistry struct {
	mu       sync.RWMutex
	bySignal map[Signal][]*Registration
	byID     map[HandlerID]Signal
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		bySignal: make(map[Signal][]*Registration),
		byID:     make(map[HandlerID]Signal),
	}
}

// Register adds handler for signal and returns its id. Handlers run in the
// order they were registered, regardless of sender filter.
func (r *HandlerRegistry) Register(signal Signal, handler Handler, opts ...RegisterOption) (HandlerID, error) {
	if r == nil {
		return HandlerID{}, ErrHandlerRegistryRequired
	}

	var options registerOptions

	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	signal = signal.normalize()
	sender := Sender("")

	if options.senderSet {
		sender = Sender(normalizeName(string(options.sender)))
	}

	regErr := func(err error) error {
		return &RegistrationError{Signal: signal, Sender: sender, Err: err}
	}

	if err := signal.Validate(); err != nil {
		return HandlerID{}, regErr(err)
	}

	if options.senderSet {
		if err := sender.Validate(); err != nil {
			return HandlerID{}, regErr(err)
		}
	}

	if handler == nil {
		return HandlerID{}, regErr(ErrHandlerRequired)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return HandlerID{}, regErr(fmt.Errorf("generate handler id: %w", err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.bySignal[signal]
	next := make([]*Registration, len(current), len(current)+1)
	copy(next, current)

	r.bySignal[signal] = append(next, &Registration{
		ID:      id,
		Signal:  signal,
		Sender:  sender,
		Handler: handler,
	})
	r.byID[id] = signal

	return id, nil
}

// MustRegister is Register for start-up code; it panics on error.
func (r *HandlerRegistry) MustRegister(signal Signal, handler Handler, opts ...RegisterOption) HandlerID {
	id, err := r.Register(signal, handler, opts...)
	if err != nil {
		panic(err)
	}

	return id
}

// Unregister removes a handler. Emits that already resolved it still call it.
func (r *HandlerRegistry) Unregister(id HandlerID) error {
	if r == nil {
		return ErrHandlerRegistryRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	signal, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrHandlerNotRegistered, id)
	}

	next := slices.DeleteFunc(slices.Clone(r.bySignal[signal]), func(reg *Registration) bool {
		return reg.ID == id
	})

	if len(next) == 0 {
		delete(r.bySignal, signal)
	} else {
		r.bySignal[signal] = next
	}

	delete(r.byID, id)

	return nil
}

// Resolve returns the handlers that accept an emit of signal by sender, in
// registration order. The list is fixed when Resolve is called and the
// sequence can be ranged once; later ranges yield nothing.
func (r *HandlerRegistry) Resolve(signal Signal, sender Sender) iter.Seq[Registration] {
	snapshot := r.snapshot(signal.normalize())
	sender = Sender(normalizeName(string(sender)))

	var consumed atomic.Bool

	return func(yield func(Registration) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}

		for _, reg := range snapshot {
			if !reg.Matches(sender) {
				continue
			}

			if !yield(*reg) {
				return
			}
		}
	}
}

func (r *HandlerRegistry) snapshot(signal Signal) []*Registration {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.bySignal[signal]
}

// Len returns the number of handlers registered for signal.
func (r *HandlerRegistry) Len(signal Signal) int {
	return len(r.snapshot(signal.normalize()))
}

// Signals returns every signal with at least one handler, sorted.
func (r *HandlerRegistry) Signals() []Signal {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Signal, 0, len(r.bySignal))
	for signal := range r.bySignal {
		out = append(out, signal)
	}

	slices.Sort(out)

	return out
}
