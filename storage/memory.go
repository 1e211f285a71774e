package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps store contents in process memory. Data survives
// Close/Open cycles on the same backend and is dropped by Erase. Useful
// for tests and ephemeral stores.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Open returns a handle over the backend's current contents.
func (b *MemoryBackend) Open(ctx context.Context) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &MemoryStore{backend: b}, nil
}

// Erase drops all contents.
func (b *MemoryBackend) Erase() error {
	b.mu.Lock()
	b.data = make(map[string][]byte)
	b.mu.Unlock()
	return nil
}

// Len reports the number of stored keys.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// MemoryStore is an open handle to a MemoryBackend.
type MemoryStore struct {
	backend *MemoryBackend

	mu     sync.Mutex
	closed bool
}

// Begin starts a new overlay transaction.
func (s *MemoryStore) Begin(writable bool) (Txn, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStoreClosed
	}
	return &memTxn{
		store:    s,
		writable: writable,
		pending:  make(map[string]pendingWrite),
	}, nil
}

// Close closes the handle. The backend keeps the data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// memTxn buffers writes in an overlay map until Commit. Reads consult the
// overlay first, so the transaction observes its own writes.
type memTxn struct {
	store    *MemoryStore
	writable bool
	pending  map[string]pendingWrite
	done     bool
}

func (t *memTxn) Get(key string) ([]byte, bool, error) {
	if w, ok := t.pending[key]; ok {
		if w.del {
			return nil, false, nil
		}
		return append([]byte(nil), w.value...), true, nil
	}

	b := t.store.backend
	b.mu.RLock()
	v, ok := b.data[key]
	b.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (t *memTxn) Put(key string, value []byte) error {
	if !t.writable {
		return ErrReadOnlyTxn
	}
	t.pending[key] = pendingWrite{value: append([]byte(nil), value...)}
	return nil
}

func (t *memTxn) Delete(key string) error {
	if !t.writable {
		return ErrReadOnlyTxn
	}
	t.pending[key] = pendingWrite{del: true}
	return nil
}

func (t *memTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	closed := t.store.closed
	t.store.mu.Unlock()
	if closed {
		return ErrStoreClosed
	}

	b := t.store.backend
	b.mu.Lock()
	for key, w := range t.pending {
		if w.del {
			delete(b.data, key)
			continue
		}
		b.data[key] = w.value
	}
	b.mu.Unlock()
	return nil
}

func (t *memTxn) Discard() {
	t.done = true
	t.pending = nil
}
