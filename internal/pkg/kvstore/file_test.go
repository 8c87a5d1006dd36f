package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	// Absent key
	_, ok, err := store.Get(ctx, "offline_location_data")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "offline_location_data", `[{"id":"r1"}]`))
	value, ok, err := store.Get(ctx, "offline_location_data")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"r1"}]`, value)

	// Overwrite
	require.NoError(t, store.Set(ctx, "offline_location_data", `[]`))
	value, _, _ = store.Get(ctx, "offline_location_data")
	assert.Equal(t, `[]`, value)

	require.NoError(t, store.Remove(ctx, "offline_location_data"))
	_, ok, err = store.Get(ctx, "offline_location_data")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing twice is fine
	assert.NoError(t, store.Remove(ctx, "offline_location_data"))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "active_tracking_session", `{"id":"s1"}`))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	value, ok, err := second.Get(ctx, "active_tracking_session")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"s1"}`, value)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "k", "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", entries[0].Name())
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "kv"))
	require.NoError(t, err)

	assert.Error(t, store.Set(ctx, "../escape", "v"))
	assert.Error(t, store.Set(ctx, "a/b", "v"))
	_, _, err = store.Get(ctx, "")
	assert.Error(t, err)
}

func TestMemoryStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", "v"))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	require.NoError(t, store.Remove(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}
