package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	"github.com/LerianStudio/lib-signals/signals/txn"
	"github.com/redis/go-redis/v9"
)

// Resource opens MULTI/EXEC pipelines for txn units.
type Resource struct {
	client redis.UniversalClient
}

// NewResource returns a txn.Resource over client.
func NewResource(client redis.UniversalClient) (*Resource, error) {
	if nilcheck.Interface(client) {
		return nil, ErrNilClient
	}

	return &Resource{client: client}, nil
}

// Begin opens a transactional pipeline.
//
//nolint:ireturn
func (r *Resource) Begin(context.Context) (txn.Tx, error) {
	if r == nil || nilcheck.Interface(r.client) {
		return nil, ErrNilClient
	}

	return &Tx{pipe: r.client.TxPipeline()}, nil
}

// Tx adapts a transactional pipeline to txn.Tx.
type Tx struct {
	pipe redis.Pipeliner
}

// Pipeliner returns the queued pipeline.
//
//nolint:ireturn
func (t *Tx) Pipeliner() redis.Pipeliner {
	return t.pipe
}

// ErrPartialCommit reports that EXEC ran and some queued commands were
// applied while others failed. Redis does not undo the applied ones.
var ErrPartialCommit = errors.New("redis transaction partially applied")

// Commit runs every queued command in one MULTI/EXEC. A redis.Nil reply is
// not a failure. When a command fails at EXEC time after others succeeded the
// error wraps ErrPartialCommit.
func (t *Tx) Commit(ctx context.Context) error {
	cmds, err := t.pipe.Exec(ctx)
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}

	if applied, failed := execOutcome(cmds); applied > 0 && failed > 0 {
		return fmt.Errorf("exec redis transaction: %w: %d of %d commands failed: %w",
			ErrPartialCommit, failed, len(cmds), err)
	}

	return fmt.Errorf("exec redis transaction: %w", err)
}

// execOutcome counts commands that EXEC applied and commands that the server
// rejected while executing. EXECABORT replies mean nothing ran.
func execOutcome(cmds []redis.Cmder) (applied, failed int) {
	for _, cmd := range cmds {
		err := cmd.Err()

		var serverErr redis.Error

		switch {
		case err == nil || errors.Is(err, redis.Nil):
			applied++
		case redis.HasErrorPrefix(err, "EXECABORT"):
			return 0, 0
		case errors.As(err, &serverErr):
			failed++
		}
	}

	return applied, failed
}

// Rollback drops every queued command.
func (t *Tx) Rollback(context.Context) error {
	t.pipe.Discard()

	return nil
}

// PipelinerFrom returns the pipeline of the unit carried by ctx.
//
//nolint:ireturn
func PipelinerFrom(ctx context.Context) (redis.Pipeliner, bool) {
	tx, ok := txn.TxFrom(ctx)
	if !ok {
		return nil, false
	}

	redisTx, ok := tx.(*Tx)
	if !ok || redisTx.pipe == nil {
		return nil, false
	}

	return redisTx.pipe, true
}

// Cmdable returns the unit's pipeline when ctx carries one, fallback otherwise.
//
//nolint:ireturn
func Cmdable(ctx context.Context, fallback redis.Cmdable) redis.Cmdable {
	if pipe, ok := PipelinerFrom(ctx); ok {
		return pipe
	}

	return fallback
}
