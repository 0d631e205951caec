package lang

import (
	"context"
	"sync"
	"unsafe"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/mgrier/spyglass/internal/tree"
)

// grammarFor maps a language tag to its tree-sitter grammar for use by
// scripted adapters. Only the built-in grammars are exposed.
func grammarFor(tag string) (*sitter.Language, bool) {
	switch tag {
	case "go":
		return golang.GetLanguage(), true
	case "python":
		return python.GetLanguage(), true
	case "javascript":
		return javascript.GetLanguage(), true
	}
	return nil, false
}

// sourceTable tracks source bytes and language per parsed tree so
// node_text and ts_query can recover them from a Node. Keyed by root
// node pointer since the binding does not expose Node.Tree().
type sourceTable struct {
	mu      sync.RWMutex
	sources map[uintptr][]byte
	langs   map[uintptr]*sitter.Language
}

func newSourceTable() *sourceTable {
	return &sourceTable{
		sources: make(map[uintptr][]byte),
		langs:   make(map[uintptr]*sitter.Language),
	}
}

func (s *sourceTable) store(t *sitter.Tree, src []byte, lang *sitter.Language) {
	key := uintptr(unsafe.Pointer(t.RootNode()))
	s.mu.Lock()
	s.sources[key] = src
	s.langs[key] = lang
	s.mu.Unlock()
}

func rootOf(node *sitter.Node) *sitter.Node {
	for node.Parent() != nil {
		node = node.Parent()
	}
	return node
}

func (s *sourceTable) sourceForNode(node *sitter.Node) ([]byte, bool) {
	key := uintptr(unsafe.Pointer(rootOf(node)))
	s.mu.RLock()
	src, ok := s.sources[key]
	s.mu.RUnlock()
	return src, ok
}

func (s *sourceTable) languageForNode(node *sitter.Node) (*sitter.Language, bool) {
	key := uintptr(unsafe.Pointer(rootOf(node)))
	s.mu.RLock()
	lang, ok := s.langs[key]
	s.mu.RUnlock()
	return lang, ok
}

// makeParseSrcFn creates "parse_src".
//
//	parse_src(source, language) → *sitter.Tree
func makeParseSrcFn(st *sourceTable) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		srcStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("parse_src: source must be a string, got %s", args[0].Type())
		}
		langStr, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("parse_src: language must be a string, got %s", args[1].Type())
		}
		lang, found := grammarFor(langStr.Value())
		if !found {
			return object.Errorf("parse_src: unsupported language %q", langStr.Value())
		}

		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(lang)

		t, err := parser.ParseCtx(ctx, nil, []byte(srcStr.Value()))
		if err != nil {
			return object.Errorf("parse_src: %v", err)
		}
		st.store(t, []byte(srcStr.Value()), lang)

		proxy, err := object.NewProxy(t)
		if err != nil {
			return object.Errorf("parse_src: proxy error: %v", err)
		}
		return proxy
	})
}

// makeNodeTextFn creates "node_text". Risor proxies cannot convert a
// string to the []byte that Node.Content wants, hence a host function.
func makeNodeTextFn(st *sourceTable) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := proxyNode("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		src, found := st.sourceForNode(node)
		if !found {
			return object.Errorf("node_text: no source found for node's tree")
		}
		return object.NewString(node.Content(src))
	})
}

// makeQueryFn creates "ts_query".
//
//	ts_query(pattern, node) → []map[captureName]Node
func makeQueryFn(st *sourceTable) *object.Builtin {
	return object.NewBuiltin("ts_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("ts_query", 2, len(args))
		}
		patternStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("ts_query: pattern must be a string, got %s", args[0].Type())
		}
		node, errObj := proxyNode("ts_query", args[1])
		if errObj != nil {
			return errObj
		}
		lang, found := st.languageForNode(node)
		if !found {
			return object.Errorf("ts_query: no language found for node's tree")
		}
		src, found := st.sourceForNode(node)
		if !found {
			return object.Errorf("ts_query: no source found for node's tree")
		}

		q, err := sitter.NewQuery([]byte(patternStr.Value()), lang)
		if err != nil {
			return object.Errorf("ts_query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		var results []object.Object
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)

			matchMap := make(map[string]object.Object)
			for _, capture := range match.Captures {
				name := q.CaptureNameForId(capture.Index)
				nodeP, err := object.NewProxy(capture.Node)
				if err != nil {
					return object.Errorf("ts_query: proxy error for capture %q: %v", name, err)
				}
				matchMap[name] = nodeP
			}
			results = append(results, object.NewMap(matchMap))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// makeEmitBlobFn creates "emit_blob".
//
//	emit_blob({parent, name, kind, span, doc?, type_ref?, signature?}) → blob id
func makeEmitBlobFn(col *collector) *object.Builtin {
	return object.NewBuiltin("emit_blob", func(ctx context.Context, args ...object.Object) object.Object {
		m, errObj := mapArg("emit_blob", args)
		if errObj != nil {
			return errObj
		}
		b := &tree.Blob{
			Name:    mapStr(m, "name"),
			Kind:    tree.Kind(mapStr(m, "kind")),
			Span:    mapSpan(m, "span"),
			Doc:     mapStr(m, "doc"),
			TypeRef: mapStr(m, "type_ref"),
		}
		if sigObj, ok := m["signature"]; ok {
			if sigMap, ok := sigObj.(*object.Map); ok {
				b.Signature = mapSignature(sigMap.Value())
			}
		}
		id, err := col.addBlob(mapInt(m, "parent"), b)
		if err != nil {
			return object.Errorf("emit_blob: %v", err)
		}
		return object.NewInt(id)
	})
}

// makeEmitSymbolFn creates "emit_symbol".
//
//	emit_symbol({blob, name, kind, span, type_ref?, is_decl?})
func makeEmitSymbolFn(col *collector) *object.Builtin {
	return object.NewBuiltin("emit_symbol", func(ctx context.Context, args ...object.Object) object.Object {
		m, errObj := mapArg("emit_symbol", args)
		if errObj != nil {
			return errObj
		}
		s := tree.Symbol{
			Name:    mapStr(m, "name"),
			Kind:    tree.Kind(mapStr(m, "kind")),
			Span:    mapSpan(m, "span"),
			TypeRef: mapStr(m, "type_ref"),
			IsDecl:  mapBool(m, "is_decl"),
		}
		if err := col.addSymbol(mapInt(m, "blob"), s); err != nil {
			return object.Errorf("emit_symbol: %v", err)
		}
		return object.Nil
	})
}

// makeEmitCitationFn creates "emit_citation".
//
//	emit_citation({blob, path, kind, span, alias?, wildcard?})
func makeEmitCitationFn(col *collector) *object.Builtin {
	return object.NewBuiltin("emit_citation", func(ctx context.Context, args ...object.Object) object.Object {
		m, errObj := mapArg("emit_citation", args)
		if errObj != nil {
			return errObj
		}
		cit := tree.Citation{
			Span:     mapSpan(m, "span"),
			Path:     mapStrList(m, "path"),
			Kind:     tree.CitationKind(mapStr(m, "kind")),
			Alias:    mapStr(m, "alias"),
			Wildcard: mapBool(m, "wildcard"),
		}
		if len(cit.Path) == 0 {
			return object.Errorf("emit_citation: path is required")
		}
		if err := col.addCitation(mapInt(m, "blob"), cit); err != nil {
			return object.Errorf("emit_citation: %v", err)
		}
		return object.Nil
	})
}

// makeFailRegionFn creates "fail_region".
//
//	fail_region({span, reason})
func makeFailRegionFn(col *collector) *object.Builtin {
	return object.NewBuiltin("fail_region", func(ctx context.Context, args ...object.Object) object.Object {
		m, errObj := mapArg("fail_region", args)
		if errObj != nil {
			return errObj
		}
		col.failures = append(col.failures, tree.ScanFailure{
			Span:   mapSpan(m, "span"),
			Reason: mapStr(m, "reason"),
		})
		return object.Nil
	})
}

// --- argument helpers ---

func proxyNode(fn string, arg object.Object) (*sitter.Node, object.Object) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

func mapArg(fn string, args []object.Object) (map[string]object.Object, object.Object) {
	if len(args) != 1 {
		return nil, object.NewArgsError(fn, 1, len(args))
	}
	m, ok := args[0].(*object.Map)
	if !ok {
		return nil, object.Errorf("%s: expected a map, got %s", fn, args[0].Type())
	}
	return m.Value(), nil
}

func mapStr(m map[string]object.Object, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(*object.String); ok {
			return s.Value()
		}
	}
	return ""
}

func mapInt(m map[string]object.Object, key string) int64 {
	if v, ok := m[key]; ok {
		if n, ok := v.(*object.Int); ok {
			return n.Value()
		}
	}
	return 0
}

func mapBool(m map[string]object.Object, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(*object.Bool); ok {
			return b.Value()
		}
	}
	return false
}

func mapStrList(m map[string]object.Object, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := v.(*object.List)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list.Value() {
		if s, ok := item.(*object.String); ok {
			out = append(out, s.Value())
		}
	}
	return out
}

func mapSpan(m map[string]object.Object, key string) tree.Span {
	v, ok := m[key]
	if !ok {
		return tree.Span{}
	}
	sm, ok := v.(*object.Map)
	if !ok {
		return tree.Span{}
	}
	inner := sm.Value()
	return tree.Span{
		StartByte: uint32(mapInt(inner, "start_byte")),
		EndByte:   uint32(mapInt(inner, "end_byte")),
		StartLine: int(mapInt(inner, "start_line")),
		StartCol:  int(mapInt(inner, "start_col")),
		EndLine:   int(mapInt(inner, "end_line")),
		EndCol:    int(mapInt(inner, "end_col")),
	}
}

func mapSignature(m map[string]object.Object) *tree.Signature {
	sig := &tree.Signature{Returns: mapStr(m, "returns")}
	v, ok := m["params"]
	if !ok {
		return sig
	}
	list, ok := v.(*object.List)
	if !ok {
		return sig
	}
	for _, item := range list.Value() {
		pm, ok := item.(*object.Map)
		if !ok {
			continue
		}
		inner := pm.Value()
		p := tree.Param{
			Name:    mapStr(inner, "name"),
			Type:    mapStr(inner, "type"),
			Default: mapStr(inner, "default"),
		}
		if p.Default != "" || mapBool(inner, "has_default") {
			p.HasDefault = true
		}
		sig.Params = append(sig.Params, p)
	}
	return sig
}
