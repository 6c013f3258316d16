package txn

import (
	"context"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	libLog "github.com/LerianStudio/lib-signals/signals/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger libLog.Logger) Option {
	return func(m *Manager) {
		if nilcheck.Interface(logger) {
			return
		}

		m.logger = logger
	}
}

// WithTracer sets the tracer used for commit and rollback spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		if nilcheck.Interface(tracer) {
			return
		}

		m.tracer = tracer
	}
}

// Manager opens and joins units of work on one Resource.
type Manager struct {
	resource Resource
	logger   libLog.Logger
	tracer   trace.Tracer
}

// NewManager creates a Manager for resource.
func NewManager(resource Resource, opts ...Option) (*Manager, error) {
	if nilcheck.Interface(resource) {
		return nil, ErrResourceRequired
	}

	m := &Manager{
		resource: resource,
		logger:   libLog.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("signals.txn.noop"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

// Resource returns the resource this manager opens transactions on.
//
//nolint:ireturn
func (m *Manager) Resource() Resource {
	if m == nil {
		return nil
	}

	return m.resource
}

// Enter opens a unit of work, or joins the one already carried by ctx.
//
// The returned context carries the unit and must be passed to everything that
// should participate in it. Every Scope must be released exactly once with
// Commit, Rollback or End.
func (m *Manager) Enter(ctx context.Context) (context.Context, *Scope, error) {
	if m == nil || nilcheck.Interface(m.resource) {
		return ctx, nil, ErrManagerRequired
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if u, ok := unitFrom(ctx); ok {
		u.mu.Lock()

		if !u.finished {
			if u.manager != m {
				u.mu.Unlock()

				return ctx, nil, ErrForeignUnit
			}

			u.open++
			u.mu.Unlock()

			return ctx, &Scope{unit: u}, nil
		}

		u.mu.Unlock()
	}

	tx, err := m.resource.Begin(ctx)
	if err != nil {
		m.logger.Log(ctx, libLog.LevelError, "failed to begin unit of work", libLog.Err(err))

		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}

	if nilcheck.Interface(tx) {
		return ctx, nil, fmt.Errorf("begin transaction: %w", ErrResourceRequired)
	}

	u := &unit{manager: m, tx: tx, open: 1}

	return context.WithValue(ctx, unitKey{}, u), &Scope{unit: u, outermost: true}, nil
}

func (m *Manager) commit(ctx context.Context, u *unit) error {
	ctx, span := m.tracer.Start(ctx, "txn.commit")
	defer span.End()

	if err := u.tx.Commit(ctx); err != nil {
		span.SetStatus(codes.Error, "commit failed")
		span.RecordError(err)
		m.logger.Log(ctx, libLog.LevelError, "unit of work commit failed", libLog.Err(err))

		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (m *Manager) rollback(ctx context.Context, u *unit, reason string) error {
	ctx, span := m.tracer.Start(ctx, "txn.rollback")
	defer span.End()

	span.SetAttributes(attribute.String("txn.rollback.reason", reason))

	m.logger.Log(ctx, libLog.LevelWarn, "rolling back unit of work", libLog.String("reason", reason))

	if err := u.tx.Rollback(ctx); err != nil {
		span.SetStatus(codes.Error, "rollback failed")
		span.RecordError(err)

		return fmt.Errorf("rollback transaction: %w", err)
	}

	return nil
}

// Run executes fn inside a unit of work. The unit commits when fn returns nil
// and rolls back when fn returns an error or panics; a panic is re-raised after
// the rollback. When ctx already carries a unit, fn joins it and a failure
// marks the enclosing unit for rollback.
func Run(ctx context.Context, m *Manager, fn func(ctx context.Context) error) (err error) {
	if m == nil {
		return ErrManagerRequired
	}

	if fn == nil {
		return errors.New("txn.Run: fn is required")
	}

	unitCtx, scope, err := m.Enter(ctx)
	if err != nil {
		return err
	}

	defer scope.End(unitCtx, &err)

	return fn(unitCtx)
}
