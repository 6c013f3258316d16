package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	libLog "github.com/LerianStudio/lib-signals/signals/log"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrAddressRequired = errors.New("redis address is required")
	ErrNilClient       = errors.New("redis client is nil")
	ErrInvalidDB       = errors.New("redis db index must not be negative")
)

// Config describes a standalone Redis server.
type Config struct {
	Address  string
	Password string
	DB       int
	Logger   libLog.Logger
}

// String redacts the password.
func (cfg Config) String() string {
	return fmt.Sprintf("Config{Address:%s, DB:%d, Password:REDACTED}", cfg.Address, cfg.DB)
}

func (cfg Config) validate() error {
	if strings.TrimSpace(cfg.Address) == "" {
		return ErrAddressRequired
	}

	if cfg.DB < 0 {
		return ErrInvalidDB
	}

	return nil
}

// Client wraps a connected redis.UniversalClient.
type Client struct {
	client redis.UniversalClient
	logger libLog.Logger
}

// New validates cfg, connects and pings.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if nilcheck.Interface(logger) {
		logger = libLog.NewNop()
	}

	ctx, span := otel.Tracer("signals.redis").Start(ctx, "redis.connect")
	defer span.End()

	span.SetAttributes(attribute.String("db.system", "redis"))

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{strings.TrimSpace(cfg.Address)},
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		span.SetStatus(codes.Error, "failed to connect to redis")
		span.RecordError(err)
		logger.Log(ctx, libLog.LevelError, "failed to connect to redis", libLog.Err(err))

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Log(ctx, libLog.LevelInfo, "connected to redis")

	return &Client{client: client, logger: logger}, nil
}

// Universal returns the underlying client.
//
//nolint:ireturn
func (c *Client) Universal() redis.UniversalClient {
	if c == nil {
		return nil
	}

	return c.client
}

// Resource returns a txn.Resource on this client.
func (c *Client) Resource() (*Resource, error) {
	if c == nil {
		return nil, ErrNilClient
	}

	return NewResource(c.client)
}

// Close closes the connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	return c.client.Close()
}
