package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenetia/zap/pkg/storage"
)

func TestLocalStore_SaveOpenRemove(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "conv-1/output.pdf"

	n, err := store.Save(ctx, key, strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("pdf bytes")), n)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pdf bytes", string(body))

	require.NoError(t, store.Remove(ctx, key))

	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Removing an already-missing object is not an error
	assert.NoError(t, store.Remove(ctx, key))
}

func TestLocalStore_OpenMissing(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "nope/missing.bin")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalStore_RejectsBadKeys(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"", "/absolute/path", "../escape", "a/../../b", "back\\slash"} {
		_, err := store.Save(ctx, key, strings.NewReader("x"))
		assert.Error(t, err, "key %q must be rejected", key)

		_, err = store.Open(ctx, key)
		assert.Error(t, err, "key %q must be rejected", key)
	}
}
