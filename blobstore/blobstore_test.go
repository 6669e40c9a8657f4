package blobstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pgmgo/resource"
)

func testStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "snapshots/a", []byte("alpha")))
	require.NoError(t, store.Put(ctx, "snapshots/b", []byte("beta")))
	require.NoError(t, store.Put(ctx, "other/c", []byte("gamma")))

	blob, err := store.Open(ctx, "snapshots/a")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(5), blob.Size())
	data, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), data)

	buf := make([]byte, 2)
	n, err := blob.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("ha"), buf)

	names, err := store.List(ctx, "snapshots/")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/a", "snapshots/b"}, names)

	require.NoError(t, store.Delete(ctx, "snapshots/a"))
	_, err = store.Open(ctx, "snapshots/a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine.
	require.NoError(t, store.Delete(ctx, "snapshots/a"))
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestLocalStoreAtomicPut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "blob", []byte("one")))
	require.NoError(t, store.Put(ctx, "blob", []byte("two")))

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()
	data, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCachingStore(t *testing.T) {
	ctx := context.Background()

	t.Run("FillOnMiss", func(t *testing.T) {
		remote := NewMemoryStore()
		require.NoError(t, remote.Put(ctx, "snap", []byte("payload")))

		cs, err := NewCachingStore(remote, t.TempDir())
		require.NoError(t, err)

		blob, err := cs.Open(ctx, "snap")
		require.NoError(t, err)
		data, err := ReadAll(blob)
		require.NoError(t, err)
		require.NoError(t, blob.Close())
		assert.Equal(t, []byte("payload"), data)

		// Second open is served from the cache even if the remote loses
		// the blob.
		require.NoError(t, remote.Delete(ctx, "snap"))
		blob, err = cs.Open(ctx, "snap")
		require.NoError(t, err)
		defer blob.Close()
		data, err = ReadAll(blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("WriteThrough", func(t *testing.T) {
		remote := NewMemoryStore()
		cs, err := NewCachingStore(remote, t.TempDir())
		require.NoError(t, err)

		require.NoError(t, cs.Put(ctx, "snap", []byte("data")))

		blob, err := remote.Open(ctx, "snap")
		require.NoError(t, err)
		defer blob.Close()
		data, err := ReadAll(blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), data)
	})

	t.Run("Prefetch", func(t *testing.T) {
		remote := NewMemoryStore()
		for _, name := range []string{"a", "b", "c"} {
			require.NoError(t, remote.Put(ctx, name, []byte(name)))
		}

		cs, err := NewCachingStore(remote, t.TempDir(), func(o *CachingStoreOptions) {
			o.Controller = resource.NewController(resource.Config{MaxConcurrentTransfers: 2})
		})
		require.NoError(t, err)

		require.NoError(t, cs.Prefetch(ctx, "a", "b", "c"))

		// All blobs now resolve without the remote.
		for _, name := range []string{"a", "b", "c"} {
			require.NoError(t, remote.Delete(ctx, name))
		}
		for _, name := range []string{"a", "b", "c"} {
			blob, err := cs.Open(ctx, name)
			require.NoError(t, err)
			require.NoError(t, blob.Close())
		}
	})

	t.Run("PrefetchMissing", func(t *testing.T) {
		cs, err := NewCachingStore(NewMemoryStore(), t.TempDir())
		require.NoError(t, err)
		err = cs.Prefetch(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}
