package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(startLine, startCol, endLine, endCol int, startByte, endByte uint32) Span {
	return Span{
		StartByte: startByte, EndByte: endByte,
		StartLine: startLine, StartCol: startCol,
		EndLine: endLine, EndCol: endCol,
	}
}

// buildTestTree constructs a small two-level tree:
//
//	module m [0..100)
//	  class C [10..60)
//	    function method [20..50)
//	  function f [60..90)
func buildTestTree() *SymbolTree {
	method := &Blob{
		Name: "method", Kind: KindFunction,
		Span:      span(2, 1, 5, 0, 20, 50),
		Signature: &Signature{Params: []Param{{Name: "self"}, {Name: "x"}}},
	}
	class := &Blob{
		Name: "C", Kind: KindClass,
		Span:     span(1, 0, 6, 0, 10, 60),
		Children: []*Blob{method},
		Symbols: []Symbol{
			{Name: "C", Kind: KindClass, Span: span(1, 6, 1, 7, 16, 17), IsDecl: true},
		},
	}
	fn := &Blob{
		Name: "f", Kind: KindFunction,
		Span: span(7, 0, 9, 0, 60, 90),
		Citations: []Citation{
			{Span: span(8, 4, 8, 5, 75, 76), Path: []string{"C"}, Kind: CiteCall, Status: CiteUnresolved},
		},
	}
	module := &Blob{
		Name: "m", Kind: KindModule,
		Span:     span(0, 0, 12, 0, 0, 100),
		Children: []*Blob{class, fn},
	}
	return &SymbolTree{Key: "m.py", Language: "python", Blobs: []*Blob{module}}
}

func TestSpanContainsPoint(t *testing.T) {
	s := span(2, 4, 4, 10, 0, 0)

	assert.True(t, s.ContainsPoint(3, 0))
	assert.True(t, s.ContainsPoint(2, 4))
	assert.True(t, s.ContainsPoint(4, 10))
	assert.False(t, s.ContainsPoint(2, 3))
	assert.False(t, s.ContainsPoint(4, 11))
	assert.False(t, s.ContainsPoint(1, 9))
	assert.False(t, s.ContainsPoint(5, 0))
}

func TestBlobChain_InnermostFirst(t *testing.T) {
	tr := buildTestTree()

	chain := tr.BlobChain(3, 2)
	require.Len(t, chain, 3)
	assert.Equal(t, "method", chain[0].Name)
	assert.Equal(t, "C", chain[1].Name)
	assert.Equal(t, "m", chain[2].Name)

	// Position inside the module but outside both children.
	chain = tr.BlobChain(10, 0)
	require.Len(t, chain, 1)
	assert.Equal(t, "m", chain[0].Name)

	// Position outside everything.
	assert.Empty(t, tr.BlobChain(50, 0))
}

func TestCitationAt(t *testing.T) {
	tr := buildTestTree()

	c := tr.CitationAt(8, 4)
	require.NotNil(t, c)
	assert.Equal(t, []string{"C"}, c.Path)
	assert.Equal(t, CiteCall, c.Kind)

	assert.Nil(t, tr.CitationAt(0, 0))
}

func TestSymbolAt(t *testing.T) {
	tr := buildTestTree()

	sym, owner := tr.SymbolAt(1, 6)
	require.NotNil(t, sym)
	assert.Equal(t, "C", sym.Name)
	assert.Equal(t, "C", owner.Name)

	sym, _ = tr.SymbolAt(9, 9)
	assert.Nil(t, sym)
}

func TestUnresolvedCitations(t *testing.T) {
	tr := buildTestTree()
	unresolved := tr.UnresolvedCitations()
	require.Len(t, unresolved, 1)

	unresolved[0].Status = CiteResolved
	assert.Empty(t, tr.UnresolvedCitations())
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, buildTestTree().Validate())
}

func TestValidate_ChildEscapesParent(t *testing.T) {
	tr := buildTestTree()
	// Stretch the method span past the class end.
	tr.Blobs[0].Children[0].Children[0].Span.EndByte = 80

	err := tr.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes parent")
}

func TestValidate_SiblingOverlap(t *testing.T) {
	tr := buildTestTree()
	// Make function f overlap class C.
	tr.Blobs[0].Children[1].Span.StartByte = 55

	err := tr.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestFingerprint_Deterministic(t *testing.T) {
	src := []byte("def foo(x, y):\n    return x\n")
	assert.Equal(t, Fingerprint(src), Fingerprint(src))
	assert.NotEqual(t, Fingerprint(src), Fingerprint([]byte("def bar():\n    pass\n")))
}

func TestSignatureString(t *testing.T) {
	sig := Signature{
		Params: []Param{
			{Name: "x"},
			{Name: "y", Type: "int"},
			{Name: "z", HasDefault: true, Default: "1"},
		},
		Returns: "str",
	}
	assert.Equal(t, "(x, y: int, z=1) -> str", sig.String())

	assert.Equal(t, "()", Signature{}.String())
}

func TestCitationNames(t *testing.T) {
	c := Citation{Path: []string{"os", "path", "join"}, Alias: "j"}
	assert.Equal(t, "join", c.Target())
	assert.Equal(t, "j", c.LocalName())

	c.Alias = ""
	assert.Equal(t, "os", c.LocalName())
}

func TestPathRoundTrip(t *testing.T) {
	assert.Equal(t, "a.b.c", JoinPath([]string{"a", "b", "c"}))
	assert.Equal(t, []string{"a", "b", "c"}, SplitPath("a.b.c"))
	assert.Nil(t, SplitPath(""))
}
