package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openBadger(t *testing.T) (*BadgerBackend, Store) {
	t.Helper()
	backend := NewBadgerBackend(filepath.Join(t.TempDir(), "db"))
	store, err := backend.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return backend, store
}

func TestBadgerRoundTrip(t *testing.T) {
	_, store := openBadger(t)

	txn, err := store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Put("a", []byte("1")))
	require.NoError(t, txn.Put("b", []byte("2")))
	require.NoError(t, txn.Delete("b"))
	require.NoError(t, txn.Commit())

	txn, err = store.Begin(false)
	require.NoError(t, err)
	defer txn.Discard()

	value, found, err := txn.Get("a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), value)

	_, found, err = txn.Get("b")
	require.NoError(t, err)
	require.False(t, found)
}

func TestBadgerTxnReadsOwnWrites(t *testing.T) {
	_, store := openBadger(t)

	txn, err := store.Begin(true)
	require.NoError(t, err)
	defer txn.Discard()

	require.NoError(t, txn.Put("k", []byte("v1")))
	require.NoError(t, txn.Put("k", []byte("v2")))

	value, found, err := txn.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v2"), value)
}

func TestBadgerDiscardDropsWrites(t *testing.T) {
	_, store := openBadger(t)

	txn, err := store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Put("a", []byte("1")))
	txn.Discard()

	txn, err = store.Begin(false)
	require.NoError(t, err)
	defer txn.Discard()
	_, found, err := txn.Get("a")
	require.NoError(t, err)
	require.False(t, found)
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	backend := NewBadgerBackend(dir)

	store, err := backend.Open(context.Background())
	require.NoError(t, err)

	txn, err := store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Put("a", []byte("1")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())

	store, err = backend.Open(context.Background())
	require.NoError(t, err)
	defer store.Close()

	txn, err = store.Begin(false)
	require.NoError(t, err)
	defer txn.Discard()
	value, found, err := txn.Get("a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), value)
}

func TestBadgerClosedStore(t *testing.T) {
	_, store := openBadger(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.Begin(true)
	require.ErrorIs(t, err, ErrStoreClosed)
}

func TestBadgerErase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	backend := NewBadgerBackend(dir)

	store, err := backend.Open(context.Background())
	require.NoError(t, err)

	txn, err := store.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Put("a", []byte("1")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())

	require.NoError(t, backend.Erase())
	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	// Reopening recreates an empty store.
	store, err = backend.Open(context.Background())
	require.NoError(t, err)
	defer store.Close()

	txn, err = store.Begin(false)
	require.NoError(t, err)
	defer txn.Discard()
	_, found, err := txn.Get("a")
	require.NoError(t, err)
	require.False(t, found)
}
