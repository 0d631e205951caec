package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_RoundTrip(t *testing.T) {
	c := newTestCache(t)
	tr := testTree("a.py", "f", "g")
	require.NoError(t, c.Save(tr, false))

	got, ok, err := c.Load("a.py")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tr.Key, got.Key)
	assert.Equal(t, tr.Fingerprint, got.Fingerprint)
	require.NotNil(t, got.Root())
	assert.NotNil(t, got.Root().Child("f"))
	assert.NotNil(t, got.Root().Child("g"))
}

func TestCache_LoadMissing(t *testing.T) {
	c := newTestCache(t)
	_, ok, err := c.Load("nope.py")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_SaveReplaces(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Save(testTree("a.py", "old"), false))
	require.NoError(t, c.Save(testTree("a.py", "new"), false))

	got, ok, err := c.Load("a.py")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.Root().Child("old"))
	assert.NotNil(t, got.Root().Child("new"))
}

func TestCache_SchemaVersionGate(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Save(testTree("a.py", "f"), false))

	// A row from a different tree model must be invisible.
	_, err := c.db.Exec(`UPDATE trees SET schema_version = ? WHERE key = ?`, schemaVersion+1, "a.py")
	require.NoError(t, err)

	_, ok, err := c.Load("a.py")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Evict(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Save(testTree("a.py", "f"), false))
	require.NoError(t, c.Evict("a.py"))

	_, ok, err := c.Load("a.py")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWarmFromCache(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Save(testTree("a.py", "f"), false))
	require.NoError(t, c.Save(testTree("stdlib:os", "getcwd"), true))

	s := New()
	n, err := WarmFromCache(s, c)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := s.Get("a.py")
	assert.True(t, ok)
	assert.Equal(t, []string{"stdlib:os"}, s.CatalogKeys())
	assert.Len(t, s.Index().Lookup("getcwd"), 1)
}
