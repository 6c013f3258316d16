package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	"github.com/LerianStudio/lib-signals/signals/txn"
)

type beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Querier is satisfied by *sql.DB, *sql.Tx and dbresolver.DB.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ResourceOption configures a Resource.
type ResourceOption func(*Resource)

// WithTxOptions sets the options passed to BeginTx.
func WithTxOptions(opts *sql.TxOptions) ResourceOption {
	return func(r *Resource) {
		r.txOptions = opts
	}
}

// Resource opens database transactions for txn units.
type Resource struct {
	db        beginner
	txOptions *sql.TxOptions
}

// NewResource returns a txn.Resource over db.
func NewResource(db beginner, opts ...ResourceOption) (*Resource, error) {
	if nilcheck.Interface(db) {
		return nil, ErrConnectionRequired
	}

	r := &Resource{db: db}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r, nil
}

// Begin starts a database transaction.
//
//nolint:ireturn
func (r *Resource) Begin(ctx context.Context) (txn.Tx, error) {
	if r == nil || nilcheck.Interface(r.db) {
		return nil, ErrConnectionRequired
	}

	tx, err := r.db.BeginTx(ctx, r.txOptions)
	if err != nil {
		return nil, err
	}

	return &Tx{tx: tx}, nil
}

// Tx adapts *sql.Tx to txn.Tx.
type Tx struct {
	tx *sql.Tx
}

// SQL returns the underlying transaction.
func (t *Tx) SQL() *sql.Tx {
	return t.tx
}

// Commit commits the database transaction.
func (t *Tx) Commit(context.Context) error {
	return t.tx.Commit()
}

// Rollback rolls the transaction back. A transaction already closed by its
// context is not an error.
func (t *Tx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

// Executor returns the database transaction of the unit carried by ctx, or
// fallback when ctx carries none.
//
//nolint:ireturn
func Executor(ctx context.Context, fallback Querier) Querier {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}

	return fallback
}

// TxFrom returns the *sql.Tx of the unit carried by ctx.
func TxFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := txn.TxFrom(ctx)
	if !ok {
		return nil, false
	}

	sqlTx, ok := tx.(*Tx)
	if !ok || sqlTx.tx == nil {
		return nil, false
	}

	return sqlTx.tx, true
}
