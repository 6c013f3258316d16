package txn

import "context"

// Tx is one open transaction on a Resource.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Resource is a transactional store that a Manager can open units on.
type Resource interface {
	Begin(ctx context.Context) (Tx, error)
}

// ResourceFunc adapts a plain function to Resource.
type ResourceFunc func(ctx context.Context) (Tx, error)

// Begin calls fn.
func (fn ResourceFunc) Begin(ctx context.Context) (Tx, error) {
	return fn(ctx)
}
