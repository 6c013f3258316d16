// Package postgres provides a PostgreSQL transactional resource for the txn
// package, plus an emission log handler that records emits in the same
// transaction as the caller's own writes.
package postgres
