package lang

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mgrier/spyglass/internal/tree"
)

// TemplateAdapter composes embedded languages: the scan context names
// the regions of the outer text that belong to other languages, and
// each region is delegated to that language's registered adapter. The
// resulting blobs are re-based onto outer-text coordinates and merged
// under one namespace blob per region. Multi-language files are a
// first-class capability, not a special case elsewhere in the core.
type TemplateAdapter struct {
	registry *Registry
}

func NewTemplateAdapter(r *Registry) *TemplateAdapter {
	return &TemplateAdapter{registry: r}
}

func (a *TemplateAdapter) Language() string     { return "template" }
func (a *TemplateAdapter) Extensions() []string { return []string{".tmpl", ".tpl"} }

func (a *TemplateAdapter) Scan(ctx context.Context, src []byte, sc ScanContext) (*tree.SymbolTree, error) {
	lastLine := bytes.Count(src, []byte{'\n'})
	module := &tree.Blob{
		Name: sc.ModuleName,
		Kind: tree.KindModule,
		Span: tree.Span{
			StartByte: 0, EndByte: uint32(len(src)),
			StartLine: 0, StartCol: 0,
			EndLine: lastLine, EndCol: len(src) - lastLineStart(src),
		},
	}
	out := &tree.SymbolTree{Language: a.Language(), Blobs: []*tree.Blob{module}}

	for i, region := range sc.Regions {
		if region.End > uint32(len(src)) || region.Start > region.End {
			out.Failures = append(out.Failures, tree.ScanFailure{
				Reason: fmt.Sprintf("region %d out of bounds [%d,%d)", i, region.Start, region.End),
			})
			continue
		}
		sub, ok := a.registry.ForLanguage(region.Language)
		if !ok {
			out.Failures = append(out.Failures, tree.ScanFailure{
				Span:   byteOnlySpan(region.Start, region.End),
				Reason: fmt.Sprintf("no adapter for embedded language %q", region.Language),
			})
			continue
		}

		slice := src[region.Start:region.End]
		subTree, err := sub.Scan(ctx, slice, ScanContext{
			ModuleName:      fmt.Sprintf("%s#%d", region.Language, i),
			IndentSensitive: sc.IndentSensitive,
		})
		if err != nil {
			return nil, fmt.Errorf("embedded %s region: %w", region.Language, err)
		}

		line, col := positionAt(src, region.Start)
		for _, b := range subTree.Blobs {
			rebase(b, region.Start, line, col)
			if b.Kind == tree.KindModule {
				b.Kind = tree.KindNamespace
			}
			module.Children = append(module.Children, b)
		}
		for _, f := range subTree.Failures {
			f.Span = rebaseSpan(f.Span, region.Start, line, col)
			out.Failures = append(out.Failures, f)
		}
	}
	return out, nil
}

// positionAt returns the zero-based line and column of a byte offset.
func positionAt(src []byte, off uint32) (line, col int) {
	for i := uint32(0); i < off && int(i) < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return line, col
}

func lastLineStart(src []byte) int {
	if i := bytes.LastIndexByte(src, '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

func byteOnlySpan(start, end uint32) tree.Span {
	return tree.Span{StartByte: start, EndByte: end}
}

// rebaseSpan shifts a span from region-local to outer-text coordinates.
// Columns shift only on the region's first line.
func rebaseSpan(s tree.Span, byteOff uint32, lineOff, colOff int) tree.Span {
	if s.StartLine == 0 {
		s.StartCol += colOff
	}
	if s.EndLine == 0 {
		s.EndCol += colOff
	}
	s.StartByte += byteOff
	s.EndByte += byteOff
	s.StartLine += lineOff
	s.EndLine += lineOff
	return s
}

func rebase(b *tree.Blob, byteOff uint32, lineOff, colOff int) {
	b.Span = rebaseSpan(b.Span, byteOff, lineOff, colOff)
	for i := range b.Symbols {
		b.Symbols[i].Span = rebaseSpan(b.Symbols[i].Span, byteOff, lineOff, colOff)
	}
	for i := range b.Citations {
		b.Citations[i].Span = rebaseSpan(b.Citations[i].Span, byteOff, lineOff, colOff)
	}
	for _, c := range b.Children {
		rebase(c, byteOff, lineOff, colOff)
	}
}
