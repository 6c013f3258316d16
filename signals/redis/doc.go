// Package redis provides a Redis transactional resource for the txn package.
//
// Commands issued through Cmdable while a unit is open are queued on a
// MULTI/EXEC pipeline. They run atomically when the outermost scope commits
// and are discarded on rollback. Queued commands have no result until then,
// so reads that must see current data should use the client directly.
//
// A Redis unit is only atomic for commands that cannot fail at EXEC time.
// MULTI/EXEC has no rollback: a command rejected while executing (for example
// WRONGTYPE) fails alone and the rest of the block is still applied. Commit
// reports that case as ErrPartialCommit so callers do not mistake it for a
// rolled-back unit.
package redis
