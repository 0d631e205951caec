package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrier/spyglass/internal/tree"
)

func TestIndex_LookupQualifiedNames(t *testing.T) {
	s := New()
	s.Put(testTree("a.py", "f", "g"))

	got := s.Index().Lookup("f")
	require.Len(t, got, 1)
	assert.Equal(t, "a.py", got[0].Key)
	assert.Equal(t, "m.f", got[0].Qualified)
	assert.Equal(t, tree.KindFunction, got[0].Kind)
}

func TestIndex_PrefixOrdering(t *testing.T) {
	s := New()
	s.PutCatalog(testTree("stdlib:os", "getcwd", "getenv"))
	s.Put(testTree("b.py", "getter"))
	s.Put(testTree("a.py", "getx", "gety"))

	got := s.Index().Prefix("get", 0)
	require.Len(t, got, 5)

	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	// Workspace trees first, by insertion order, declaration order
	// within each; catalog entries last.
	assert.Equal(t, []string{"getter", "getx", "gety", "getcwd", "getenv"}, names)
	assert.False(t, got[0].Catalog)
	assert.True(t, got[4].Catalog)
}

func TestIndex_PrefixLimit(t *testing.T) {
	s := New()
	s.Put(testTree("a.py", "aa", "ab", "ac"))

	got := s.Index().Prefix("a", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "aa", got[0].Name)
	assert.Equal(t, "ab", got[1].Name)
}

func TestIndex_UpdateReplacesEntries(t *testing.T) {
	s := New()
	s.Put(testTree("a.py", "old"))
	s.Put(testTree("a.py", "new"))

	assert.Empty(t, s.Index().Lookup("old"))
	assert.Len(t, s.Index().Lookup("new"), 1)
}

func TestIndex_NestedQualifiedName(t *testing.T) {
	method := &tree.Blob{
		Name: "greet", Kind: tree.KindFunction,
		Span:    tree.Span{StartByte: 10, EndByte: 20, StartLine: 2, EndLine: 3},
		Symbols: []tree.Symbol{{Name: "greet", Kind: tree.KindFunction, Span: tree.Span{StartByte: 10, EndByte: 15}, IsDecl: true}},
	}
	class := &tree.Blob{
		Name: "Greeter", Kind: tree.KindClass,
		Span:     tree.Span{StartByte: 0, EndByte: 30, EndLine: 4},
		Symbols:  []tree.Symbol{{Name: "Greeter", Kind: tree.KindClass, Span: tree.Span{EndByte: 7}, IsDecl: true}},
		Children: []*tree.Blob{method},
	}
	module := &tree.Blob{
		Name: "m", Kind: tree.KindModule,
		Span:     tree.Span{EndByte: 100, EndLine: 10},
		Children: []*tree.Blob{class},
	}
	s := New()
	s.Put(&tree.SymbolTree{Key: "a.py", Language: "python", Blobs: []*tree.Blob{module}})

	greet := s.Index().Lookup("greet")
	require.Len(t, greet, 1)
	assert.Equal(t, "m.Greeter.greet", greet[0].Qualified)

	greeter := s.Index().Lookup("Greeter")
	require.Len(t, greeter, 1)
	assert.Equal(t, "m.Greeter", greeter[0].Qualified)
}
