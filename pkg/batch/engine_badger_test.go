package batch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"batchkv/storage"
)

func TestEngineOverBadger(t *testing.T) {
	ctx := testContext(t)
	dir := filepath.Join(t.TempDir(), "db")
	backend := storage.NewBadgerBackend(dir)

	eng := Open(backend, Options{Interval: 10 * time.Millisecond})
	require.NoError(t, eng.WaitReady(ctx))

	require.NoError(t, eng.Set(ctx, "a", []byte("1")))

	value, found, err := eng.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), value)

	require.NoError(t, eng.Delete(ctx, "a"))
	_, found, err = eng.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, eng.Set(ctx, "b", []byte("2")))
	require.NoError(t, eng.Destroy(ctx))

	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}
