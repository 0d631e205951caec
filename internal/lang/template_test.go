package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrier/spyglass/internal/tree"
)

// templateParts builds a composite source with one JavaScript and one
// Python region, returning the text and the region table.
func templateParts() (string, []Region) {
	head := "<html>\n<script>\n"
	js := "function f() { g(); }\n"
	mid := "</script>\n<py>\n"
	py := "def h():\n    pass\n"
	tail := "</py>\n</html>\n"
	src := head + js + mid + py + tail

	jsStart := uint32(len(head))
	pyStart := uint32(len(head) + len(js) + len(mid))
	return src, []Region{
		{Language: "javascript", Start: jsStart, End: jsStart + uint32(len(js))},
		{Language: "python", Start: pyStart, End: pyStart + uint32(len(py))},
	}
}

func scanTemplate(t *testing.T, src string, regions []Region) *tree.SymbolTree {
	t.Helper()
	adapter := NewTemplateAdapter(NewDefaultRegistry())
	st, err := adapter.Scan(context.Background(), []byte(src), ScanContext{
		ModuleName: "page.tmpl",
		Regions:    regions,
	})
	require.NoError(t, err)
	return st
}

func TestTemplateScan_EmbeddedRegions(t *testing.T) {
	src, regions := templateParts()
	st := scanTemplate(t, src, regions)
	require.NoError(t, st.Validate())
	assert.Empty(t, st.Failures)

	module := st.Root()
	require.Len(t, module.Children, 2)

	jsNS := module.Children[0]
	assert.Equal(t, tree.KindNamespace, jsNS.Kind, "embedded module becomes a namespace")
	f := jsNS.Child("f")
	require.NotNil(t, f)
	assert.NotNil(t, findCitation(f, tree.CiteCall, "g"))

	pyNS := module.Children[1]
	assert.Equal(t, tree.KindNamespace, pyNS.Kind)
	require.NotNil(t, pyNS.Child("h"))
}

func TestTemplateScan_RebasedSpans(t *testing.T) {
	src, regions := templateParts()
	st := scanTemplate(t, src, regions)

	module := st.Root()
	f := module.Children[0].Child("f")
	require.NotNil(t, f)
	// The JS region starts after two newlines of outer text.
	assert.Equal(t, 2, f.Span.StartLine)
	assert.Equal(t, regions[0].Start, f.Span.StartByte)

	h := module.Children[1].Child("h")
	require.NotNil(t, h)
	assert.Equal(t, 5, h.Span.StartLine)
	assert.Equal(t, regions[1].Start, h.Span.StartByte)
}

func TestTemplateScan_UnknownEmbeddedLanguage(t *testing.T) {
	src, regions := templateParts()
	regions[1].Language = "ruby"
	st := scanTemplate(t, src, regions)

	require.Len(t, st.Failures, 1)
	assert.Contains(t, st.Failures[0].Reason, `"ruby"`)
	// The known region still produced blobs.
	require.Len(t, st.Root().Children, 1)
}

func TestTemplateScan_RegionOutOfBounds(t *testing.T) {
	src, regions := templateParts()
	regions[0].End = uint32(len(src)) + 100
	st := scanTemplate(t, src, regions)

	require.NotEmpty(t, st.Failures)
	assert.Contains(t, st.Failures[0].Reason, "out of bounds")
}
