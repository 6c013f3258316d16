package txn

import (
	"context"
	"sync"
)

type unitKey struct{}

// unit is the shared state behind every Scope of one outermost Enter.
type unit struct {
	mu           sync.Mutex
	manager      *Manager
	tx           Tx
	open         int
	rollbackOnly bool
	finished     bool
	onCommit     []func(context.Context)
}

func unitFrom(ctx context.Context) (*unit, bool) {
	if ctx == nil {
		return nil, false
	}

	u, ok := ctx.Value(unitKey{}).(*unit)
	if !ok || u == nil {
		return nil, false
	}

	return u, true
}

// detach hides the unit carried by ctx so work started from it autocommits.
func detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, unitKey{}, (*unit)(nil))
}

func activeUnit(ctx context.Context) (*unit, bool) {
	u, ok := unitFrom(ctx)
	if !ok {
		return nil, false
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.finished {
		return nil, false
	}

	return u, true
}

// IsActive reports whether ctx carries an open unit of work, i.e. whether
// writes made through the unit's resource right now are transactionally guarded.
func IsActive(ctx context.Context) bool {
	_, ok := activeUnit(ctx)

	return ok
}

// Finished reports whether ctx carries a unit of work that has already
// committed or rolled back. Resources must refuse writes on such a context
// instead of falling back to autocommit.
func Finished(ctx context.Context) bool {
	u, ok := unitFrom(ctx)
	if !ok {
		return false
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	return u.finished
}

// MarkForRollback poisons the active unit. No later commit at any depth takes
// effect; the outermost release rolls back.
func MarkForRollback(ctx context.Context) error {
	u, ok := unitFrom(ctx)
	if !ok {
		return ErrNoActiveUnit
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.finished {
		return ErrNoActiveUnit
	}

	u.rollbackOnly = true

	return nil
}

// IsMarkedForRollback reports whether the active unit has been poisoned.
func IsMarkedForRollback(ctx context.Context) bool {
	u, ok := unitFrom(ctx)
	if !ok {
		return false
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	return !u.finished && u.rollbackOnly
}

// Depth returns the number of open scopes on the active unit, 0 when none.
func Depth(ctx context.Context) int {
	u, ok := unitFrom(ctx)
	if !ok {
		return 0
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.finished {
		return 0
	}

	return u.open
}

// TxFrom returns the resource transaction of the active unit.
func TxFrom(ctx context.Context) (Tx, bool) {
	u, ok := activeUnit(ctx)
	if !ok {
		return nil, false
	}

	return u.tx, true
}

// ManagerFrom returns the manager that owns the active unit.
func ManagerFrom(ctx context.Context) (*Manager, bool) {
	u, ok := activeUnit(ctx)
	if !ok {
		return nil, false
	}

	return u.manager, true
}

// OnCommit schedules fn to run after the outermost scope commits. Callbacks
// are dropped when the unit rolls back and receive a context that no longer
// carries the unit. Without an active unit fn runs
// immediately, matching autocommit behaviour.
func OnCommit(ctx context.Context, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}

	if u, ok := unitFrom(ctx); ok {
		u.mu.Lock()
		if !u.finished {
			u.onCommit = append(u.onCommit, fn)
			u.mu.Unlock()

			return
		}
		u.mu.Unlock()
	}

	if ctx == nil {
		ctx = context.Background()
	}

	fn(ctx)
}
