package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_OpenAndFetch(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "bundles"), 0o755))

	data := []byte("hello world, this is a test bundle")
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "bundles", "ui.bundle"), data, 0o600))

	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	blob, err := store.Open(ctx, "bundles/ui.bundle")
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	got, err := store.Fetch(ctx, "bundles/ui.bundle")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	viaReadAll, err := ReadAll(ctx, store, "bundles/ui.bundle")
	require.NoError(t, err)
	assert.Equal(t, data, viaReadAll)
}

func TestLocalStore_NotFound(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	_, err := store.Open(context.Background(), "missing.bundle")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Fetch(context.Background(), "missing.bundle")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_CannotEscapeRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret"), []byte("x"), 0o600))

	store := NewLocalStore(root)
	_, err := store.Fetch(context.Background(), "../secret")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_CancelledContext(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Fetch(ctx, "any")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	src := []byte("payload")
	require.NoError(t, store.Put(ctx, "a/one", src))
	require.NoError(t, store.Put(ctx, "a/two", []byte("2")))
	require.NoError(t, store.Put(ctx, "b/three", []byte("3")))
	src[0] = 'X' // stored copy is unaffected

	got, err := ReadAll(ctx, store, "a/one")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	got[0] = 'Y' // fetched copy is owned by the caller
	again, err := store.Fetch(ctx, "a/one")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(again))

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one", "a/two"}, names)

	blob, err := store.Open(ctx, "a/one")
	require.NoError(t, err)
	buf := make([]byte, 10)
	n, err := blob.ReadAt(ctx, buf, 3)
	assert.Equal(t, 4, n)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "load", string(buf[:n]))

	require.NoError(t, store.Delete(ctx, "a/one"))
	_, err = store.Open(ctx, "a/one")
	assert.ErrorIs(t, err, ErrNotFound)
}
