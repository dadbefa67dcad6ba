package kv

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps everything in process memory. State is lost on exit.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Namespace]map[uint64][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Namespace]map[uint64][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, ns Namespace, key uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[ns][key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemoryStore) Has(ctx context.Context, ns Namespace, key uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[ns][key]
	return ok, nil
}

func (m *MemoryStore) Scan(ctx context.Context, ns Namespace, fn func(key uint64, val []byte) error) error {
	m.mu.RLock()
	bucket := m.data[ns]
	keys := sortedKeys(bucket)
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = slices.Clone(bucket[k])
	}
	m.mu.RUnlock()
	for i, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k, vals[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, fn func(Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTxn{base: m.data, pending: newWriteSet()}
	if err := fn(tx); err != nil {
		return err
	}
	for ns, bucket := range tx.pending.writes {
		if m.data[ns] == nil {
			m.data[ns] = make(map[uint64][]byte, len(bucket))
		}
		for k, v := range bucket {
			m.data[ns][k] = v
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// memTxn reads straight from the base maps; the store lock is held for the
// whole transaction.
type memTxn struct {
	base    map[Namespace]map[uint64][]byte
	pending *writeSet
}

func (t *memTxn) Get(ctx context.Context, ns Namespace, key uint64) ([]byte, error) {
	if v, ok := t.pending.get(ns, key); ok {
		return slices.Clone(v), nil
	}
	v, ok := t.base[ns][key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (t *memTxn) Has(ctx context.Context, ns Namespace, key uint64) (bool, error) {
	if _, ok := t.pending.get(ns, key); ok {
		return true, nil
	}
	_, ok := t.base[ns][key]
	return ok, nil
}

func (t *memTxn) Scan(ctx context.Context, ns Namespace, fn func(key uint64, val []byte) error) error {
	keys := t.pending.mergeKeys(ns, sortedKeys(t.base[ns]))
	for _, k := range keys {
		v, err := t.Get(ctx, ns, k)
		if err != nil {
			return err
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTxn) Put(ctx context.Context, ns Namespace, key uint64, val []byte) error {
	t.pending.put(ns, key, val)
	return nil
}

func sortedKeys(bucket map[uint64][]byte) []uint64 {
	keys := make([]uint64, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// writeSet buffers transaction writes for backends without native
// transactions of their own.
type writeSet struct {
	writes map[Namespace]map[uint64][]byte
}

func newWriteSet() *writeSet {
	return &writeSet{writes: make(map[Namespace]map[uint64][]byte)}
}

func (w *writeSet) put(ns Namespace, key uint64, val []byte) {
	if w.writes[ns] == nil {
		w.writes[ns] = make(map[uint64][]byte)
	}
	w.writes[ns][key] = slices.Clone(val)
}

func (w *writeSet) get(ns Namespace, key uint64) ([]byte, bool) {
	v, ok := w.writes[ns][key]
	return v, ok
}

// mergeKeys returns the sorted union of base and the pending keys of ns.
func (w *writeSet) mergeKeys(ns Namespace, base []uint64) []uint64 {
	if len(w.writes[ns]) == 0 {
		return base
	}
	out := slices.Clone(base)
	for k := range w.writes[ns] {
		if _, found := slices.BinarySearch(base, k); !found {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func (w *writeSet) empty() bool {
	for _, b := range w.writes {
		if len(b) > 0 {
			return false
		}
	}
	return true
}
