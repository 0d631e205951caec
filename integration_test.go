package spyglass_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spyglass "github.com/mgrier/spyglass"
	"github.com/mgrier/spyglass/internal/lang"
)

func TestWorkspaceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o644))
	}
	write("models.py", `class Account:
    def balance(self):
        return 0
`)
	write("views.py", `from models import Account

def render():
    acct = Account()
    return acct
`)

	e, err := spyglass.New()
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	n, err := e.IndexDir(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	viewsKey := filepath.Join(dir, "views.py")
	modelsKey := filepath.Join(dir, "models.py")

	// Jump from the Account() call in render to the class definition.
	loc, err := e.JumpToDefinition(ctx, viewsKey, spyglass.Position{Line: 3, Col: 12})
	require.NoError(t, err)
	assert.Equal(t, modelsKey, loc.Key)
	assert.Equal(t, "models.Account", loc.Qualified)

	// Member completion through the imported class.
	seq, err := e.Complete(ctx, viewsKey, spyglass.Position{Line: 3, Col: 12}, "Account.", 0)
	require.NoError(t, err)
	var names []string
	for c := range seq {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "balance")
}

func TestEditThenRequery(t *testing.T) {
	e, err := spyglass.New()
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	_, err = e.ScanFile(ctx, "m.py", []byte("def first():\n    pass\n"))
	require.NoError(t, err)

	locs, err := e.SymbolSearch(ctx, "first", 0)
	require.NoError(t, err)
	require.Len(t, locs, 1)

	// The edit renames the function; the old name must disappear in the
	// same atomic replace that introduces the new one.
	_, err = e.ScanFile(ctx, "m.py", []byte("def second():\n    pass\n"))
	require.NoError(t, err)

	locs, err = e.SymbolSearch(ctx, "first", 0)
	require.NoError(t, err)
	assert.Empty(t, locs)

	locs, err = e.SymbolSearch(ctx, "second", 0)
	require.NoError(t, err)
	assert.Len(t, locs, 1)
}

func TestTemplateFile(t *testing.T) {
	e, err := spyglass.New()
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	head := "<html>\n<script>\n"
	js := "function hydrate() {}\n"
	src := head + js + "</script>\n</html>\n"

	_, err = e.ScanTemplate(ctx, "page.tmpl", []byte(src), []lang.Region{{
		Language: "javascript",
		Start:    uint32(len(head)),
		End:      uint32(len(head) + len(js)),
	}})
	require.NoError(t, err)

	locs, err := e.SymbolSearch(ctx, "hydrate", 0)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "page.tmpl", locs[0].Key)
	assert.Equal(t, 2, locs[0].Span.StartLine, "span is in outer-file coordinates")
}

func TestScriptedLanguage(t *testing.T) {
	script := `
emit_blob({"parent": 0, "name": "handler", "kind": "function", "span": {"start_byte": 0, "end_byte": 7, "end_line": 1}})
emit_symbol({"blob": 1, "name": "handler", "kind": "function", "span": {"start_byte": 0, "end_byte": 7}, "is_decl": true})
`
	e, err := spyglass.New(spyglass.WithScript("toy", []string{".toy"}, script))
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	_, err = e.ScanFile(ctx, "routes.toy", []byte("handler stuff"))
	require.NoError(t, err)

	locs, err := e.SymbolSearch(ctx, "handler", 0)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "routes.toy", locs[0].Key)
}
