package lang

import (
	"context"
	"fmt"

	"github.com/risor-io/risor"

	"github.com/mgrier/spyglass/internal/tree"
)

// ScriptedAdapter runs a Risor script to scan a language that has no
// built-in adapter, so new languages can be added without recompiling.
// The script receives the source text plus tree-sitter host functions
// (parse_src, node_text, ts_query) and emits tree nodes through
// emit_blob / emit_symbol / emit_citation / fail_region. Scripts must
// stay pure over (src, module_name) for scans to be deterministic.
type ScriptedAdapter struct {
	language   string
	extensions []string
	source     string
}

// NewScriptedAdapter wraps a Risor script as an adapter for the given
// language tag and extensions.
func NewScriptedAdapter(language string, extensions []string, source string) *ScriptedAdapter {
	return &ScriptedAdapter{language: language, extensions: extensions, source: source}
}

func (a *ScriptedAdapter) Language() string     { return a.language }
func (a *ScriptedAdapter) Extensions() []string { return a.extensions }

func (a *ScriptedAdapter) Scan(ctx context.Context, src []byte, sc ScanContext) (*tree.SymbolTree, error) {
	col := newCollector(a.language, sc.ModuleName, len(src))
	sources := newSourceTable()

	globals := map[string]any{
		"src":           string(src),
		"module_name":   sc.ModuleName,
		"parse_src":     makeParseSrcFn(sources),
		"node_text":     makeNodeTextFn(sources),
		"ts_query":      makeQueryFn(sources),
		"emit_blob":     makeEmitBlobFn(col),
		"emit_symbol":   makeEmitSymbolFn(col),
		"emit_citation": makeEmitCitationFn(col),
		"fail_region":   makeFailRegionFn(col),
	}

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if _, err := risor.Eval(ctx, a.source, opts...); err != nil {
		return nil, fmt.Errorf("scripted adapter %s: %w", a.language, err)
	}
	return col.finish(), nil
}

// collector accumulates emitted nodes into a SymbolTree. Blob ids are
// handed out sequentially by emit_blob; id 0 is the implicit module
// blob every scripted tree starts with.
type collector struct {
	language string
	blobs    map[int64]*tree.Blob
	nextID   int64
	module   *tree.Blob
	failures []tree.ScanFailure
}

func newCollector(language, moduleName string, srcLen int) *collector {
	module := &tree.Blob{
		Name: moduleName,
		Kind: tree.KindModule,
		Span: tree.Span{EndByte: uint32(srcLen), EndLine: 1 << 30},
	}
	return &collector{
		language: language,
		blobs:    map[int64]*tree.Blob{0: module},
		nextID:   1,
		module:   module,
	}
}

func (c *collector) addBlob(parent int64, b *tree.Blob) (int64, error) {
	p, ok := c.blobs[parent]
	if !ok {
		return 0, fmt.Errorf("unknown parent blob id %d", parent)
	}
	id := c.nextID
	c.nextID++
	c.blobs[id] = b
	p.Children = append(p.Children, b)
	return id, nil
}

func (c *collector) addSymbol(owner int64, s tree.Symbol) error {
	b, ok := c.blobs[owner]
	if !ok {
		return fmt.Errorf("unknown blob id %d", owner)
	}
	b.Symbols = append(b.Symbols, s)
	return nil
}

func (c *collector) addCitation(owner int64, cit tree.Citation) error {
	b, ok := c.blobs[owner]
	if !ok {
		return fmt.Errorf("unknown blob id %d", owner)
	}
	cit.Status = tree.CiteUnresolved
	b.Citations = append(b.Citations, cit)
	return nil
}

func (c *collector) finish() *tree.SymbolTree {
	// The module span was a sentinel; tighten it to cover children.
	endLine := 0
	for _, b := range c.module.Children {
		if b.Span.EndLine > endLine {
			endLine = b.Span.EndLine
		}
	}
	c.module.Span.EndLine = endLine + 1
	return &tree.SymbolTree{
		Language: c.language,
		Blobs:    []*tree.Blob{c.module},
		Failures: c.failures,
	}
}
