package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/LerianStudio/lib-signals/signals/txn"
)

var (
	ErrKeyRequired = errors.New("key is required")
	ErrTxFinished  = errors.New("memory transaction already finished")
)

// Store is a thread-safe key/value map with transactional writes.
type Store struct {
	mu      sync.RWMutex
	data    map[string][]byte
	version uint64
}

var _ txn.Resource = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Begin opens a transaction on the store.
//
//nolint:ireturn
func (s *Store) Begin(_ context.Context) (txn.Tx, error) {
	return &Tx{store: s, writes: make(map[string]write)}, nil
}

// Version returns the number of commits applied so far, autocommits included.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// Put stores value under key, inside the ambient transaction when ctx has one.
// A ctx whose unit already finished is refused with txn.ErrUnitFinished.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}

	if tx, ok := s.txFrom(ctx); ok {
		return tx.stage(key, write{value: slices.Clone(value)})
	}

	if txn.Finished(ctx) {
		return txn.ErrUnitFinished
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = slices.Clone(value)
	s.version++

	return nil
}

// Delete removes key, inside the ambient transaction when ctx has one.
func (s *Store) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}

	if tx, ok := s.txFrom(ctx); ok {
		return tx.stage(key, write{deleted: true})
	}

	if txn.Finished(ctx) {
		return txn.ErrUnitFinished
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		delete(s.data, key)
		s.version++
	}

	return nil
}

// Get returns the value for key as seen from ctx: a transaction sees its own
// uncommitted writes, everyone else sees committed data only.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	key = strings.TrimSpace(key)

	if tx, ok := s.txFrom(ctx); ok {
		if w, staged := tx.lookup(key); staged {
			if w.deleted {
				return nil, false
			}

			return slices.Clone(w.value), true
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, false
	}

	return slices.Clone(value), true
}

// Keys returns the sorted keys visible from ctx.
func (s *Store) Keys(ctx context.Context) []string {
	s.mu.RLock()
	visible := make(map[string]struct{}, len(s.data))
	for k := range s.data {
		visible[k] = struct{}{}
	}
	s.mu.RUnlock()

	if tx, ok := s.txFrom(ctx); ok {
		tx.mu.Lock()
		for k, w := range tx.writes {
			if w.deleted {
				delete(visible, k)
			} else {
				visible[k] = struct{}{}
			}
		}
		tx.mu.Unlock()
	}

	keys := make([]string, 0, len(visible))
	for k := range visible {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Len returns the number of keys visible from ctx.
func (s *Store) Len(ctx context.Context) int {
	return len(s.Keys(ctx))
}

func (s *Store) txFrom(ctx context.Context) (*Tx, bool) {
	tx, ok := txn.TxFrom(ctx)
	if !ok {
		return nil, false
	}

	memTx, ok := tx.(*Tx)
	if !ok || memTx.store != s {
		return nil, false
	}

	return memTx, true
}

func (s *Store) apply(writes map[string]write) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, w := range writes {
		if w.deleted {
			delete(s.data, k)
			continue
		}

		s.data[k] = w.value
	}

	s.version++
}
