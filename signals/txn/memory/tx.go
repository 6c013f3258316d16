package memory

import (
	"context"
	"sync"

	"github.com/LerianStudio/lib-signals/signals/txn"
)

type write struct {
	value   []byte
	deleted bool
}

// Tx buffers writes until Commit.
type Tx struct {
	mu     sync.Mutex
	store  *Store
	writes map[string]write
	done   bool
}

var _ txn.Tx = (*Tx)(nil)

// Pending returns the number of buffered writes.
func (tx *Tx) Pending() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return len(tx.writes)
}

// Commit applies every buffered write to the store atomically.
func (tx *Tx) Commit(_ context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTxFinished
	}

	tx.done = true

	if len(tx.writes) > 0 {
		tx.store.apply(tx.writes)
	}

	tx.writes = nil

	return nil
}

// Rollback discards every buffered write.
func (tx *Tx) Rollback(_ context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTxFinished
	}

	tx.done = true
	tx.writes = nil

	return nil
}

func (tx *Tx) stage(key string, w write) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTxFinished
	}

	tx.writes[key] = w

	return nil
}

func (tx *Tx) lookup(key string) (write, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	w, ok := tx.writes[key]

	return w, ok
}
