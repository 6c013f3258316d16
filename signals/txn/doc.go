// Package txn provides the ambient unit-of-work that signal emitters and
// handlers share.
//
// A unit is opened with Manager.Enter (or Run) and travels in the
// context.Context passed down the call chain. Entering again with a context
// that already carries a unit joins it: inner commits are deferred to the
// outermost scope, and a rollback at any depth poisons the whole chain so the
// outermost commit rolls back and reports ErrTransactionAborted.
//
//	err := txn.Run(ctx, manager, func(ctx context.Context) error {
//	    if err := store.Put(ctx, "order:1", data); err != nil {
//	        return err
//	    }
//
//	    _, err := dispatcher.Emit(ctx, AfterSave, signals.SenderOf(order), event)
//	    return err
//	})
//
// Handlers invoked by that Emit receive the same ctx, so their writes through
// the same resource commit or roll back together with the emitter's.
package txn
