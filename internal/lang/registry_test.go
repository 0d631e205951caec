package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Defaults(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []string{"go", "javascript", "python", "template"}, r.Languages())
}

func TestRegistry_ForFile(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		path string
		lang string
	}{
		{"main.go", "go"},
		{"pkg/util.GO", "go"},
		{"app.py", "python"},
		{"legacy.pyw", "python"},
		{"ui.jsx", "javascript"},
		{"mod.mjs", "javascript"},
		{"page.tmpl", "template"},
	}
	for _, tt := range tests {
		a, ok := r.ForFile(tt.path)
		require.True(t, ok, tt.path)
		assert.Equal(t, tt.lang, a.Language(), tt.path)
	}

	_, ok := r.ForFile("readme.txt")
	assert.False(t, ok)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	first := NewScriptedAdapter("toy", []string{".toy"}, "")
	second := NewScriptedAdapter("toy", []string{".toy", ".ty"}, "")
	r.Register(first)
	r.Register(second)

	a, ok := r.ForLanguage("toy")
	require.True(t, ok)
	assert.Same(t, Adapter(second), a)

	tag, ok := r.LanguageForFile("x.ty")
	require.True(t, ok)
	assert.Equal(t, "toy", tag)
}
