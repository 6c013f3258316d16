package txn

import (
	"context"
	"errors"
	"fmt"
)

// Scope is the handle returned by Manager.Enter. The outermost scope owns the
// resource transaction; nested scopes only ever defer to it.
type Scope struct {
	unit      *unit
	outermost bool
	released  bool
}

// Outermost reports whether this scope opened the unit.
func (s *Scope) Outermost() bool {
	return s != nil && s.outermost
}

// releaseState is what a scope observed on the unit when it was released.
type releaseState struct {
	finish       bool
	rollbackOnly bool
	pending      int
}

// release marks the scope as released and reports whether the outermost scope
// now has to finish the unit, with the rollback flag and the number of nested
// scopes still open at that moment.
func (s *Scope) release() (releaseState, error) {
	if s == nil || s.unit == nil {
		return releaseState{}, ErrManagerRequired
	}

	u := s.unit

	u.mu.Lock()
	defer u.mu.Unlock()

	if s.released {
		return releaseState{}, ErrScopeReleased
	}

	s.released = true

	if u.finished {
		return releaseState{}, ErrUnitFinished
	}

	u.open--

	if !s.outermost {
		return releaseState{rollbackOnly: u.rollbackOnly}, nil
	}

	u.finished = true

	return releaseState{finish: true, rollbackOnly: u.rollbackOnly, pending: u.open}, nil
}

// Commit releases the scope. Nested scopes defer to the outermost one; the
// outermost scope commits the resource transaction and then runs OnCommit
// callbacks outside the finished unit. If the unit was marked for rollback, Commit returns
// ErrTransactionAborted and, at the outermost level, rolls back instead.
// Committing the outermost scope while nested scopes are still open rolls
// back and returns ErrNestedScopeOpen.
func (s *Scope) Commit(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	state, err := s.release()
	if err != nil {
		return err
	}

	if !state.finish {
		if state.rollbackOnly {
			return ErrTransactionAborted
		}

		return nil
	}

	u := s.unit

	if state.pending > 0 {
		u.onCommit = nil

		abortErr := fmt.Errorf("%w: %d still open", ErrNestedScopeOpen, state.pending)
		if rbErr := u.manager.rollback(ctx, u, "nested scope still open"); rbErr != nil {
			return errors.Join(abortErr, ErrTransactionAborted, rbErr)
		}

		return errors.Join(abortErr, ErrTransactionAborted)
	}

	if state.rollbackOnly {
		u.onCommit = nil

		if rbErr := u.manager.rollback(ctx, u, "marked for rollback"); rbErr != nil {
			return errors.Join(ErrTransactionAborted, rbErr)
		}

		return ErrTransactionAborted
	}

	if err := u.manager.commit(ctx, u); err != nil {
		u.onCommit = nil

		return err
	}

	callbacks := u.onCommit
	u.onCommit = nil

	callbackCtx := detach(ctx)
	for _, fn := range callbacks {
		fn(callbackCtx)
	}

	return nil
}

// Rollback releases the scope. A nested scope marks the whole unit for
// rollback; the outermost scope rolls the resource transaction back.
func (s *Scope) Rollback(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if s != nil && s.unit != nil && !s.outermost {
		s.unit.mu.Lock()
		if !s.unit.finished && !s.released {
			s.unit.rollbackOnly = true
		}
		s.unit.mu.Unlock()
	}

	state, err := s.release()
	if err != nil || !state.finish {
		return err
	}

	u := s.unit
	u.onCommit = nil

	return u.manager.rollback(ctx, u, "explicit rollback")
}

// End releases the scope according to *errp and is meant to be deferred:
//
//	ctx, scope, err := manager.Enter(ctx)
//	if err != nil {
//	    return err
//	}
//	defer scope.End(ctx, &err)
//
// A nil *errp commits; a failure from the commit is stored in *errp. A non-nil
// *errp rolls back and any rollback failure is joined into it. A panic in
// flight rolls back and is re-raised.
func (s *Scope) End(ctx context.Context, errp *error) {
	if recovered := recover(); recovered != nil {
		_ = s.Rollback(ctx)

		panic(recovered)
	}

	if errp == nil {
		_ = s.Commit(ctx)

		return
	}

	if *errp != nil {
		if rbErr := s.Rollback(ctx); rbErr != nil {
			*errp = errors.Join(*errp, fmt.Errorf("release scope: %w", rbErr))
		}

		return
	}

	*errp = s.Commit(ctx)
}
