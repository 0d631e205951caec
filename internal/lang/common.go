package lang

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mgrier/spyglass/internal/tree"
)

// nodeSpan converts a tree-sitter node's extent to a Span.
func nodeSpan(n *sitter.Node) tree.Span {
	start := n.StartPoint()
	end := n.EndPoint()
	return tree.Span{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartLine: int(start.Row),
		StartCol:  int(start.Column),
		EndLine:   int(end.Row),
		EndCol:    int(end.Column),
	}
}

// nodeText returns the source text a node covers.
func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

// parseSource runs tree-sitter over src. The returned tree may contain
// ERROR and MISSING nodes; callers harvest those via collectFailures
// rather than treating them as scan errors.
func parseSource(ctx context.Context, lang *sitter.Language, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	t, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	return t, nil
}

// collectFailures walks the syntax tree and records every ERROR and
// MISSING node as a ScanFailure. Nested errors inside an already
// recorded region are skipped so one broken block yields one failure.
func collectFailures(root *sitter.Node, src []byte) []tree.ScanFailure {
	var failures []tree.ScanFailure
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "ERROR" {
			failures = append(failures, tree.ScanFailure{
				Span:   nodeSpan(n),
				Reason: fmt.Sprintf("syntax error near %q", clip(nodeText(n, src), 40)),
			})
			return
		}
		if n.IsMissing() {
			failures = append(failures, tree.ScanFailure{
				Span:   nodeSpan(n),
				Reason: fmt.Sprintf("missing %s", n.Type()),
			})
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return failures
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// declSymbol builds the declaration symbol for a blob's own name node.
func declSymbol(name string, kind tree.Kind, nameNode *sitter.Node) tree.Symbol {
	return tree.Symbol{
		Name:   name,
		Kind:   kind,
		Span:   nodeSpan(nameNode),
		IsDecl: true,
	}
}

// dottedPath flattens a chain of member/selector accesses rooted at an
// identifier into a qualified name chain. Returns nil when the chain
// contains anything but plain names (calls, subscripts, literals).
func dottedPath(n *sitter.Node, src []byte, objectField, propertyField, leafType string) []string {
	switch n.Type() {
	case leafType:
		return []string{nodeText(n, src)}
	}
	obj := n.ChildByFieldName(objectField)
	prop := n.ChildByFieldName(propertyField)
	if obj == nil || prop == nil {
		return nil
	}
	base := dottedPath(obj, src, objectField, propertyField, leafType)
	if base == nil {
		return nil
	}
	return append(base, nodeText(prop, src))
}
