package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LerianStudio/lib-signals/signals"
	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	libLog "github.com/LerianStudio/lib-signals/signals/log"
	"github.com/LerianStudio/lib-signals/signals/payload"
	"github.com/LerianStudio/lib-signals/signals/txn"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const (
	DefaultPublishTimeout      = 5 * time.Second
	defaultConsecutiveFailures = 5
	defaultOpenTimeout         = 30 * time.Second
)

var (
	ErrChannelRequired  = errors.New("rabbitmq channel is required")
	ErrExchangeRequired = errors.New("rabbitmq exchange is required")
	ErrRelayUnavailable = errors.New("rabbitmq relay circuit is open")
)

// Channel is the part of *amqp.Channel a Relay publishes through.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the relay logger.
func WithLogger(logger libLog.Logger) Option {
	return func(r *Relay) {
		if !nilcheck.Interface(logger) {
			r.logger = logger
		}
	}
}

// WithRoutingKeyPrefix prefixes the routing key, which is otherwise the signal.
func WithRoutingKeyPrefix(prefix string) Option {
	return func(r *Relay) {
		r.prefix = strings.TrimSpace(prefix)
	}
}

// WithPublishTimeout bounds each publish.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(r *Relay) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithBreaker sets how many consecutive publish failures open the circuit and
// how long it stays open before a trial publish is let through.
func WithBreaker(consecutiveFailures uint32, openTimeout time.Duration) Option {
	return func(r *Relay) {
		if consecutiveFailures > 0 {
			r.consecutiveFailures = consecutiveFailures
		}

		if openTimeout > 0 {
			r.openTimeout = openTimeout
		}
	}
}

// Relay is a signal handler that publishes emits to an exchange.
type Relay struct {
	ch       Channel
	exchange string
	prefix   string
	timeout  time.Duration
	logger   libLog.Logger
	breaker  *gobreaker.CircuitBreaker

	consecutiveFailures uint32
	openTimeout         time.Duration
}

// NewRelay returns a Relay publishing to exchange through ch.
func NewRelay(ch Channel, exchange string, opts ...Option) (*Relay, error) {
	if nilcheck.Interface(ch) {
		return nil, ErrChannelRequired
	}

	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return nil, ErrExchangeRequired
	}

	r := &Relay{
		ch:                  ch,
		exchange:            exchange,
		timeout:             DefaultPublishTimeout,
		logger:              libLog.NewNop(),
		consecutiveFailures: defaultConsecutiveFailures,
		openTimeout:         defaultOpenTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "signals.rabbitmq." + exchange,
		MaxRequests: 1,
		Timeout:     r.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Log(context.Background(), libLog.LevelWarn, "rabbitmq relay circuit changed state",
				libLog.String("breaker", name),
				libLog.String("from", from.String()),
				libLog.String("to", to.String()),
			)
		},
	})

	return r, nil
}

// RoutingKey returns the routing key used for signal.
func (r *Relay) RoutingKey(signal signals.Signal) string {
	return r.prefix + string(signal)
}

// State reports the circuit breaker state.
func (r *Relay) State() gobreaker.State {
	return r.breaker.State()
}

// Handle implements signals.Handler. The message is encoded immediately so an
// unencodable payload aborts the emit; the publish itself waits for the unit
// to commit when one is active.
func (r *Relay) Handle(ctx context.Context, sender signals.Sender, value any, meta signals.Metadata) (any, error) {
	if r == nil {
		return nil, ErrChannelRequired
	}

	msg, err := r.message(sender, value, meta)
	if err != nil {
		return nil, err
	}

	key := r.RoutingKey(meta.Signal)

	if txn.IsActive(ctx) {
		txn.OnCommit(ctx, func(ctx context.Context) {
			if err := r.publish(ctx, key, msg); err != nil {
				r.logger.Log(ctx, libLog.LevelError, "failed to relay committed signal",
					libLog.String("signal", string(meta.Signal)),
					libLog.String("message_id", msg.MessageId),
					libLog.Err(err),
				)
			}
		})

		return msg.MessageId, nil
	}

	if err := r.publish(ctx, key, msg); err != nil {
		return nil, err
	}

	return msg.MessageId, nil
}

func (r *Relay) message(sender signals.Sender, value any, meta signals.Metadata) (amqp.Publishing, error) {
	if fields, ok := value.(payload.Fields); ok {
		value = payload.Collect(fields)
	}

	body, err := json.Marshal(value)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode signal payload: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    meta.EmittedAt,
		Type:         string(meta.Signal),
		Headers: amqp.Table{
			"sender":     string(sender),
			"handler_id": meta.HandlerID.String(),
		},
		Body: body,
	}, nil
}

func (r *Relay) publish(ctx context.Context, key string, msg amqp.Publishing) error {
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := r.breaker.Execute(func() (any, error) {
		publishCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		return nil, r.ch.PublishWithContext(publishCtx, r.exchange, key, false, false, msg)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrRelayUnavailable, err)
	}

	if err != nil {
		return fmt.Errorf("publish signal %q: %w", msg.Type, err)
	}

	return nil
}
