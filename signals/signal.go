package signals

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const maxIdentityLength = 255

// Signal identifies a class of event, such as "after-save".
type Signal string

// Validate reports whether the signal identity is well formed.
func (s Signal) Validate() error {
	return validateIdentity(string(s), ErrInvalidSignal)
}

func (s Signal) normalize() Signal {
	return Signal(normalizeName(string(s)))
}

func normalizeName(raw string) string {
	return strings.TrimSpace(raw)
}

// Sender identifies the kind of entity emitting a signal. It is only used to
// filter handlers.
type Sender string

// AnySender is the empty sender. Handlers registered without ForSender match
// every sender; emitting with AnySender reaches only those handlers.
const AnySender Sender = ""

// SenderOf derives a Sender from the dynamic type of v, e.g. "*orders.Order".
// A Sender value is returned unchanged and nil maps to AnySender.
func SenderOf(v any) Sender {
	switch s := v.(type) {
	case nil:
		return AnySender
	case Sender:
		return s
	default:
		return Sender(fmt.Sprintf("%T", v))
	}
}

// Validate reports whether the sender identity is well formed. AnySender is
// not a valid filter.
func (s Sender) Validate() error {
	return validateIdentity(string(s), ErrInvalidSender)
}

func validateIdentity(raw string, sentinel error) error {
	name := strings.TrimSpace(raw)
	if name == "" {
		return fmt.Errorf("%w: empty identity", sentinel)
	}

	if len(name) > maxIdentityLength {
		return fmt.Errorf("%w: identity exceeds %d bytes", sentinel, maxIdentityLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: identity contains control characters", sentinel)
		}
	}

	return nil
}

// HandlerID identifies one registration.
type HandlerID = uuid.UUID

// Metadata describes the emit a handler is being invoked for.
type Metadata struct {
	Signal    Signal
	Sender    Sender
	HandlerID HandlerID
	// Depth is 1 for a top-level emit and grows by one for each emit made
	// from inside a handler.
	Depth     int
	EmittedAt time.Time
	// TransactionActive reports whether ctx carried an open txn unit when the
	// emit started.
	TransactionActive bool
}

// Handler receives an emitted signal. The returned value is recorded in the
// emit Result and otherwise ignored; a non-nil error aborts the emit.
type Handler func(ctx context.Context, sender Sender, payload any, meta Metadata) (any, error)

// Registration is one handler bound to a signal.
type Registration struct {
	ID      HandlerID
	Signal  Signal
	Sender  Sender
	Handler Handler
}

// Matches reports whether the registration accepts sender.
func (r Registration) Matches(sender Sender) bool {
	return r.Sender == AnySender || r.Sender == sender
}

// Result is the outcome of one handler invocation.
type Result struct {
	HandlerID HandlerID
	Value     any
	Err       error
}
