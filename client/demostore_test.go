package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	_, ok, err := store.Get(DemoStorageKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, saveDemoUsage(store, 2))

	usage := loadDemoUsage(store)
	require.Equal(t, 2, usage.Count)
	require.NotEmpty(t, usage.LastUsed)

	// A second store on the same path sees the persisted counter.
	reopened := NewFileStore(path)
	require.Equal(t, 2, loadDemoUsage(reopened).Count)

	require.NoError(t, store.Delete(DemoStorageKey))
	require.Equal(t, 0, loadDemoUsage(store).Count)
}

func TestFileStoreCorruptFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	require.NoError(t, store.Set(DemoStorageKey, "not json at all"))

	require.Equal(t, 0, loadDemoUsage(store).Count)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, saveDemoUsage(store, 1))
	require.Equal(t, 1, loadDemoUsage(store).Count)
}
