// Package memory provides an in-process journaled key/value store that
// implements txn.Resource.
//
// Writes made with a context carrying one of the store's transactions are
// buffered and applied atomically on commit; writes made without one are
// applied immediately.
package memory
