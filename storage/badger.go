package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto"
)

// BadgerBackend opens BadgerDB stores rooted at a data directory.
type BadgerBackend struct {
	dir string
}

// NewBadgerBackend creates a backend for the given data directory. The
// directory is created on first Open.
func NewBadgerBackend(dataDir string) *BadgerBackend {
	return &BadgerBackend{dir: dataDir}
}

// Open opens the store, creating the data directory if absent.
func (b *BadgerBackend) Open(ctx context.Context) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(b.dir).
		WithLogger(nil).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	// Initialize a small in-memory cache to accelerate hot key reads
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,      // number of keys to track frequency (~10x of items)
		MaxCost:     64 << 20, // 64 MiB cache budget
		BufferItems: 64,       // per-get buffers
	})
	if err != nil {
		// If cache fails to init, continue without cache
		rc = nil
	}

	store := &BadgerStore{db: db, cache: rc, stop: make(chan struct{})}

	// Start background tasks
	go store.runGC()

	return store, nil
}

// Erase removes the data directory and everything under it. The store
// must already be closed.
func (b *BadgerBackend) Erase() error {
	if err := os.RemoveAll(b.dir); err != nil {
		return fmt.Errorf("failed to erase store at %s: %w", b.dir, err)
	}
	return nil
}

// BadgerStore is an open BadgerDB handle with a hot-read cache.
type BadgerStore struct {
	db    *badger.DB
	cache *ristretto.Cache

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
}

// runGC runs the value log garbage collector periodically
func (s *BadgerStore) runGC() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.db.RunValueLogGC(0.7)
		}
	}
}

// Begin starts a new badger transaction.
func (s *BadgerStore) Begin(writable bool) (Txn, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStoreClosed
	}

	return &badgerTxn{
		txn:     s.db.NewTransaction(writable),
		cache:   s.cache,
		pending: make(map[string]pendingWrite),
	}, nil
}

// Close closes the database connection.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.Close()
	}
	return s.db.Close()
}

// pendingWrite records a write buffered in an open transaction, so cache
// lookups can be bypassed for keys the transaction itself touched.
type pendingWrite struct {
	value []byte
	del   bool
}

type badgerTxn struct {
	txn     *badger.Txn
	cache   *ristretto.Cache
	pending map[string]pendingWrite
}

// Get retrieves a value by key, observing the transaction's own writes.
func (t *badgerTxn) Get(key string) ([]byte, bool, error) {
	// Fast path: in-memory cache, unless this transaction wrote the key
	if _, dirty := t.pending[key]; !dirty && t.cache != nil {
		if v, ok := t.cache.Get(key); ok {
			if b, ok2 := v.([]byte); ok2 {
				return append([]byte(nil), b...), true, nil
			}
		}
	}

	item, err := t.txn.Get([]byte(key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte(nil), val...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put sets the value for key.
func (t *badgerTxn) Put(key string, value []byte) error {
	if err := t.txn.Set([]byte(key), value); err != nil {
		return err
	}
	t.pending[key] = pendingWrite{value: append([]byte(nil), value...)}
	return nil
}

// Delete removes key.
func (t *badgerTxn) Delete(key string) error {
	if err := t.txn.Delete([]byte(key)); err != nil {
		return err
	}
	t.pending[key] = pendingWrite{del: true}
	return nil
}

// Commit applies the transaction, then folds its writes into the cache.
func (t *badgerTxn) Commit() error {
	if err := t.txn.Commit(); err != nil {
		return err
	}
	if t.cache != nil {
		for key, w := range t.pending {
			if w.del {
				t.cache.Del(key)
				continue
			}
			v := append([]byte(nil), w.value...)
			t.cache.Set(key, v, int64(len(v)))
		}
	}
	return nil
}

// Discard drops the transaction without applying it.
func (t *badgerTxn) Discard() {
	t.txn.Discard()
}
