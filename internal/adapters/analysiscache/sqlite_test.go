package analysiscache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := NewSQLiteCache(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestSQLiteCache_MissThenHit(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "hash-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, "hash-1", "a summary"))

	summary, ok, err := cache.Get(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a summary", summary)
}

func TestSQLiteCache_PutReplaces(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "hash-1", "first"))
	require.NoError(t, cache.Put(ctx, "hash-1", "second"))

	summary, ok, err := cache.Get(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", summary)
}

func TestSQLiteCache_KeysAreIndependent(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "hash-1", "one"))
	require.NoError(t, cache.Put(ctx, "hash-2", "two"))

	summary, ok, err := cache.Get(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "one", summary)
}

func TestSQLiteCache_Purge(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "hash-1", "one"))
	require.NoError(t, cache.Purge(ctx))

	_, ok, err := cache.Get(ctx, "hash-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCache_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cache, err := NewSQLiteCache(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, "hash-1", "persistent"))
	require.NoError(t, cache.Close())

	reopened, err := NewSQLiteCache(dir)
	require.NoError(t, err)
	defer reopened.Close()

	summary, ok, err := reopened.Get(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persistent", summary)
}

func TestSQLiteCache_CreatesDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	cache, err := NewSQLiteCache(dir)
	require.NoError(t, err)
	cache.Close()

	assert.FileExists(t, filepath.Join(dir, "analysis.db"))
}
