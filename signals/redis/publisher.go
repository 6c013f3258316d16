package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LerianStudio/lib-signals/signals"
	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	"github.com/LerianStudio/lib-signals/signals/payload"
	"github.com/LerianStudio/lib-signals/signals/txn"
	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix prefixes the channel a Publisher publishes each signal to.
const DefaultChannelPrefix = "signals:"

// Message is the JSON document a Publisher sends.
type Message struct {
	Signal    string          `json:"signal"`
	Sender    string          `json:"sender,omitempty"`
	HandlerID string          `json:"handler_id"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher is a signal handler that relays emits to Redis pub/sub. Inside a
// unit backed by a Resource the PUBLISH is queued and only reaches
// subscribers if the unit commits.
type Publisher struct {
	client redis.Cmdable
	prefix string
}

// NewPublisher returns a Publisher. An empty prefix uses DefaultChannelPrefix.
func NewPublisher(client redis.Cmdable, prefix string) (*Publisher, error) {
	if nilcheck.Interface(client) {
		return nil, ErrNilClient
	}

	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultChannelPrefix
	}

	return &Publisher{client: client, prefix: prefix}, nil
}

// Channel returns the channel used for signal.
func (p *Publisher) Channel(signal signals.Signal) string {
	return p.prefix + string(signal)
}

// Handle implements signals.Handler.
func (p *Publisher) Handle(ctx context.Context, sender signals.Sender, value any, meta signals.Metadata) (any, error) {
	if p == nil {
		return nil, ErrNilClient
	}

	if txn.Finished(ctx) {
		return nil, txn.ErrUnitFinished
	}

	if fields, ok := value.(payload.Fields); ok {
		value = payload.Collect(fields)
	}

	body, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode signal payload: %w", err)
	}

	msg, err := json.Marshal(Message{
		Signal:    string(meta.Signal),
		Sender:    string(sender),
		HandlerID: meta.HandlerID.String(),
		Payload:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode signal message: %w", err)
	}

	cmd := Cmdable(ctx, p.client).Publish(ctx, p.Channel(meta.Signal), msg)
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("publish signal: %w", err)
	}

	return cmd, nil
}
