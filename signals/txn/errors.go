package txn

import "errors"

var (
	ErrResourceRequired   = errors.New("transactional resource is required")
	ErrManagerRequired    = errors.New("transaction manager is required")
	ErrNoActiveUnit       = errors.New("no active unit of work in context")
	ErrForeignUnit        = errors.New("context carries a unit of work owned by another manager")
	ErrTransactionAborted = errors.New("transaction marked for rollback; commit aborted")
	ErrScopeReleased      = errors.New("transaction scope already released")
	ErrUnitFinished       = errors.New("unit of work already finished")
	ErrNestedScopeOpen    = errors.New("outermost scope released while nested scopes are still open")
)
