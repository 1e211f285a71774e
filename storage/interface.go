package storage

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned when a transaction is started on a closed store.
var ErrStoreClosed = errors.New("storage: store is closed")

// ErrReadOnlyTxn is returned when a write is attempted in a read-only
// transaction.
var ErrReadOnlyTxn = errors.New("storage: read-only transaction")

// Backend opens and erases a named store. Implementations create the
// backing store on first open.
type Backend interface {
	// Open opens the store, creating it if it does not exist.
	Open(ctx context.Context) (Store, error)

	// Erase irreversibly removes the store's data. The store must be
	// closed before Erase is called.
	Erase() error
}

// Store is an open handle to the underlying key-value engine.
type Store interface {
	// Begin starts a new transaction. A read-write transaction must be
	// finished with Commit or Discard.
	Begin(writable bool) (Txn, error)

	// Close closes the handle. Transactions started before Close must
	// not be used afterwards.
	Close() error
}

// Txn is a single transaction against the store. Reads observe the
// transaction's own pending writes; conflicting writes to the same key
// are resolved last-applied-wins.
type Txn interface {
	// Get retrieves the value for key. The second return value reports
	// whether the key exists.
	Get(key string) ([]byte, bool, error)

	// Put sets the value for key, overwriting any existing value.
	Put(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Commit atomically applies all writes. Either every write becomes
	// visible or none does.
	Commit() error

	// Discard drops the transaction. Safe to call after Commit.
	Discard()
}
