package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrier/spyglass/internal/tree"
)

// testTree builds a tree with one function blob per name, each carrying
// its own declaration symbol.
func testTree(key string, names ...string) *tree.SymbolTree {
	module := &tree.Blob{
		Name: "m",
		Kind: tree.KindModule,
		Span: tree.Span{EndByte: 10000, EndLine: 1000},
	}
	for i, n := range names {
		sp := tree.Span{
			StartByte: uint32(i * 10), EndByte: uint32(i*10 + 5),
			StartLine: i, EndLine: i, EndCol: 5,
		}
		module.Children = append(module.Children, &tree.Blob{
			Name: n, Kind: tree.KindFunction, Span: sp,
			Symbols: []tree.Symbol{{Name: n, Kind: tree.KindFunction, Span: sp, IsDecl: true}},
		})
	}
	return &tree.SymbolTree{
		Key:         key,
		Language:    "python",
		Fingerprint: tree.Fingerprint([]byte(key)),
		Blobs:       []*tree.Blob{module},
	}
}

func TestStore_PutGet(t *testing.T) {
	s := New()
	s.Put(testTree("a.py", "f"))

	got, ok := s.Get("a.py")
	require.True(t, ok)
	assert.Equal(t, "a.py", got.Key)

	_, ok = s.Get("missing.py")
	assert.False(t, ok)
}

func TestStore_ReplaceKeepsOrder(t *testing.T) {
	s := New()
	s.Put(testTree("a.py", "f"))
	s.Put(testTree("b.py", "g"))
	s.Put(testTree("a.py", "f2"))

	assert.Equal(t, []string{"a.py", "b.py"}, s.Keys(),
		"re-scan keeps the key's original position")

	got, ok := s.Get("a.py")
	require.True(t, ok)
	assert.NotNil(t, got.Root().Child("f2"), "replace is whole-tree")
	assert.Nil(t, got.Root().Child("f"))
}

func TestStore_CatalogsOrderAfterWorkspace(t *testing.T) {
	s := New()
	s.PutCatalog(testTree("stdlib:os", "getcwd"))
	s.Put(testTree("a.py", "f"))

	var order []string
	s.ForEach(func(tr *tree.SymbolTree, catalog bool) bool {
		order = append(order, tr.Key)
		return true
	})
	assert.Equal(t, []string{"a.py", "stdlib:os"}, order)
	assert.Equal(t, []string{"stdlib:os"}, s.CatalogKeys())
}

func TestStore_Delete(t *testing.T) {
	s := New()
	s.Put(testTree("a.py", "f"))
	s.Delete("a.py")

	_, ok := s.Get("a.py")
	assert.False(t, ok)
	assert.Empty(t, s.Index().Lookup("f"))
	assert.Zero(t, s.Len())
}

func TestStore_Fingerprint(t *testing.T) {
	s := New()
	tr := testTree("a.py", "f")
	s.Put(tr)

	fp, ok := s.Fingerprint("a.py")
	require.True(t, ok)
	assert.Equal(t, tr.Fingerprint, fp)

	_, ok = s.Fingerprint("missing.py")
	assert.False(t, ok)
}

func TestStore_Flush(t *testing.T) {
	s := New()
	s.Put(testTree("a.py", "f"))
	s.Put(testTree("b.py", "g"))
	s.PutCatalog(testTree("stdlib:os", "getcwd"))

	s.Flush(false)
	assert.Empty(t, s.Keys(), "workspace trees are cleared")
	assert.Equal(t, []string{"stdlib:os"}, s.CatalogKeys(), "catalogs survive a workspace flush")
	assert.Empty(t, s.Index().Lookup("f"))
	assert.NotEmpty(t, s.Index().Lookup("getcwd"))

	s.Flush(true)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Index().Lookup("getcwd"))
}

func TestStore_ConcurrentReplaceKeepsIndexConsistent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Put(testTree("a.py", fmt.Sprintf("f%02d", i)))
		}(i)
	}
	wg.Wait()

	// Whichever replace landed last, the index must describe exactly
	// the tree a Get returns, never a losing racer's entries.
	got, ok := s.Get("a.py")
	require.True(t, ok)
	name := got.Root().Children[0].Name
	entries := s.Index().Lookup(name)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.py", entries[0].Key)
	for i := 0; i < 32; i++ {
		other := fmt.Sprintf("f%02d", i)
		if other == name {
			continue
		}
		assert.Empty(t, s.Index().Lookup(other))
	}
}

func TestStore_ConcurrentPuts(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Put(testTree(fmt.Sprintf("f%02d.py", i), "f"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 64, s.Len())
	assert.Len(t, s.Index().Lookup("f"), 64)
}
