package sqlitestore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/internal/adapters/sqlitestore"
	"go.trai.ch/spark/internal/core/domain"
)

func openStore(t *testing.T) (*sqlitestore.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".spark", "cache.db")
	store, err := sqlitestore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func entry(code string) domain.CacheEntry {
	return domain.CacheEntry{
		Output:     domain.BuildOutput{".js": {Code: code}},
		SourceHash: "0011223344556677",
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := openStore(t)

	require.NoError(t, store.Put(t.Context(), "a", entry("one")))
	got, err := store.Get(t.Context(), "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry("one"), *got)

	require.NoError(t, store.Put(t.Context(), "a", entry("two")))
	got, err = store.Get(t.Context(), "a")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Output[".js"].Code)
}

func TestStore_Missing(t *testing.T) {
	store, _ := openStore(t)

	got, err := store.Get(t.Context(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	store, path := openStore(t)
	require.NoError(t, store.Put(t.Context(), "a", entry("one")))
	require.NoError(t, store.Close())

	reopened, err := sqlitestore.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(t.Context(), "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "one", got.Output[".js"].Code)
}

func TestStore_DeleteAndClear(t *testing.T) {
	store, _ := openStore(t)
	require.NoError(t, store.Put(t.Context(), "a", entry("a")))
	require.NoError(t, store.Put(t.Context(), "b", entry("b")))

	require.NoError(t, store.Delete(t.Context(), "a"))
	got, err := store.Get(t.Context(), "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Clear(t.Context()))
	got, err = store.Get(t.Context(), "b")
	require.NoError(t, err)
	assert.Nil(t, got)
}
