package caching

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotFixture struct {
	BuildID string `json:"build_id"`
	Count   int    `json:"count"`
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	store := NewFileStore[*snapshotFixture](path)

	require.NoError(t, store.Store(ctx, &snapshotFixture{BuildID: "abc", Count: 3}))

	loaded, storedAt, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "abc", loaded.BuildID)
	assert.Equal(t, 3, loaded.Count)
	assert.WithinDuration(t, time.Now(), storedAt, 5*time.Second)
}

func TestFileStoreMissingFileIsCacheMiss(t *testing.T) {
	store := NewFileStore[*snapshotFixture](filepath.Join(t.TempDir(), "absent.json"))

	_, _, err := store.Load(context.Background())
	assert.True(t, errors.Is(err, cache.ErrCacheMiss))
}

func TestFileStoreCorruptFileIsCacheMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	store := NewFileStore[*snapshotFixture](path)

	_, _, err := store.Load(context.Background())
	assert.True(t, errors.Is(err, cache.ErrCacheMiss))
}

func TestFileStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store := NewFileStore[*snapshotFixture](path)

	require.NoError(t, store.Store(ctx, &snapshotFixture{BuildID: "first"}))
	require.NoError(t, store.Store(ctx, &snapshotFixture{BuildID: "second"}))

	loaded, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.BuildID)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store := NewFileStore[*snapshotFixture](path)

	require.NoError(t, store.Store(ctx, &snapshotFixture{BuildID: "gone"}))
	require.NoError(t, store.Invalidate(ctx))

	_, _, err := store.Load(ctx)
	assert.True(t, errors.Is(err, cache.ErrCacheMiss))

	// idempotent on an already-missing file
	assert.NoError(t, store.Invalidate(ctx))
}
