package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/mgrier/spyglass/internal/tree"
)

// JavaScriptAdapter scans JavaScript (and JSX) source.
type JavaScriptAdapter struct{}

func NewJavaScriptAdapter() *JavaScriptAdapter { return &JavaScriptAdapter{} }

func (a *JavaScriptAdapter) Language() string     { return "javascript" }
func (a *JavaScriptAdapter) Extensions() []string { return []string{".js", ".jsx", ".mjs"} }

func (a *JavaScriptAdapter) Scan(ctx context.Context, src []byte, sc ScanContext) (*tree.SymbolTree, error) {
	parsed, err := parseSource(ctx, javascript.GetLanguage(), src)
	if err != nil {
		return nil, err
	}
	defer parsed.Close()
	root := parsed.RootNode()

	module := &tree.Blob{
		Name: sc.ModuleName,
		Kind: tree.KindModule,
		Span: nodeSpan(root),
	}
	a.scanStatements(root, src, module)

	out := &tree.SymbolTree{
		Language: a.Language(),
		Blobs:    []*tree.Blob{module},
		Failures: collectFailures(root, src),
	}
	return out, nil
}

func (a *JavaScriptAdapter) scanStatements(block *sitter.Node, src []byte, owner *tree.Blob) {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		n := block.NamedChild(i)
		switch n.Type() {
		case "function_declaration", "generator_function_declaration":
			if b := a.scanFunction(n, src); b != nil {
				owner.Children = append(owner.Children, b)
			}
		case "class_declaration":
			if b := a.scanClass(n, src); b != nil {
				owner.Children = append(owner.Children, b)
			}
		case "lexical_declaration", "variable_declaration":
			a.scanVariables(n, src, owner)
		case "import_statement":
			a.scanImport(n, src, owner)
		case "export_statement":
			// Recurse into the exported declaration.
			if decl := n.ChildByFieldName("declaration"); decl != nil {
				switch decl.Type() {
				case "function_declaration", "generator_function_declaration":
					if b := a.scanFunction(decl, src); b != nil {
						owner.Children = append(owner.Children, b)
					}
				case "class_declaration":
					if b := a.scanClass(decl, src); b != nil {
						owner.Children = append(owner.Children, b)
					}
				case "lexical_declaration", "variable_declaration":
					a.scanVariables(decl, src, owner)
				}
			}
		default:
			a.scanExpressions(n, src, owner)
		}
	}
}

func (a *JavaScriptAdapter) scanFunction(n *sitter.Node, src []byte) *tree.Blob {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	b := &tree.Blob{
		Name:      nodeText(nameNode, src),
		Kind:      tree.KindFunction,
		Span:      nodeSpan(n),
		Signature: a.scanSignature(n, src),
	}
	b.Symbols = append(b.Symbols, declSymbol(b.Name, tree.KindFunction, nameNode))
	if body := n.ChildByFieldName("body"); body != nil {
		a.scanStatements(body, src, b)
	}
	return b
}

func (a *JavaScriptAdapter) scanClass(n *sitter.Node, src []byte) *tree.Blob {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	b := &tree.Blob{
		Name: nodeText(nameNode, src),
		Kind: tree.KindClass,
		Span: nodeSpan(n),
	}
	b.Symbols = append(b.Symbols, declSymbol(b.Name, tree.KindClass, nameNode))

	// extends clause → inheritance citation.
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "class_heritage" {
			for j := 0; j < int(c.NamedChildCount()); j++ {
				s := c.NamedChild(j)
				if path := dottedPath(s, src, "object", "property", "identifier"); path != nil {
					b.Citations = append(b.Citations, tree.Citation{
						Span:   nodeSpan(s),
						Path:   path,
						Kind:   tree.CiteInherit,
						Status: tree.CiteUnresolved,
					})
				}
			}
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			m := body.NamedChild(i)
			switch m.Type() {
			case "method_definition":
				if mb := a.scanMethod(m, src); mb != nil {
					b.Children = append(b.Children, mb)
				}
			case "field_definition", "public_field_definition":
				if prop := m.ChildByFieldName("property"); prop != nil {
					b.Symbols = append(b.Symbols, tree.Symbol{
						Name: nodeText(prop, src), Kind: tree.KindVariable,
						Span: nodeSpan(prop), IsDecl: true,
					})
				}
			}
		}
	}
	return b
}

func (a *JavaScriptAdapter) scanMethod(n *sitter.Node, src []byte) *tree.Blob {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	b := &tree.Blob{
		Name:      nodeText(nameNode, src),
		Kind:      tree.KindFunction,
		Span:      nodeSpan(n),
		Signature: a.scanSignature(n, src),
	}
	b.Symbols = append(b.Symbols, declSymbol(b.Name, tree.KindFunction, nameNode))
	if body := n.ChildByFieldName("body"); body != nil {
		a.scanStatements(body, src, b)
	}
	return b
}

func (a *JavaScriptAdapter) scanSignature(n *sitter.Node, src []byte) *tree.Signature {
	sig := &tree.Signature{}
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return sig
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			sig.Params = append(sig.Params, tree.Param{Name: nodeText(p, src)})
		case "assignment_pattern":
			sig.Params = append(sig.Params, tree.Param{
				Name:       nodeText(p.ChildByFieldName("left"), src),
				HasDefault: true,
				Default:    nodeText(p.ChildByFieldName("right"), src),
			})
		case "rest_pattern":
			sig.Params = append(sig.Params, tree.Param{Name: nodeText(p, src)})
		}
	}
	return sig
}

func (a *JavaScriptAdapter) scanVariables(decl *sitter.Node, src []byte, owner *tree.Blob) {
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		d := decl.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		nameNode := d.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		owner.Symbols = append(owner.Symbols, tree.Symbol{
			Name: nodeText(nameNode, src), Kind: tree.KindVariable,
			Span: nodeSpan(nameNode), IsDecl: true,
		})
		if value := d.ChildByFieldName("value"); value != nil {
			a.scanExpressions(value, src, owner)
		}
	}
}

func (a *JavaScriptAdapter) scanImport(n *sitter.Node, src []byte, owner *tree.Blob) {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	source := strings.Trim(nodeText(sourceNode, src), "\"'`")
	segs := strings.Split(source, "/")
	moduleName := strings.TrimSuffix(segs[len(segs)-1], ".js")

	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			c := clause.NamedChild(j)
			switch c.Type() {
			case "identifier":
				// Default import binds the module under a local name.
				owner.Citations = append(owner.Citations, tree.Citation{
					Span:   nodeSpan(c),
					Path:   []string{moduleName},
					Kind:   tree.CiteImport,
					Status: tree.CiteUnresolved,
					Alias:  nodeText(c, src),
				})
			case "namespace_import":
				alias := ""
				for k := 0; k < int(c.NamedChildCount()); k++ {
					if id := c.NamedChild(k); id.Type() == "identifier" {
						alias = nodeText(id, src)
					}
				}
				owner.Citations = append(owner.Citations, tree.Citation{
					Span:     nodeSpan(c),
					Path:     []string{moduleName},
					Kind:     tree.CiteImport,
					Status:   tree.CiteUnresolved,
					Alias:    alias,
					Wildcard: true,
				})
			case "named_imports":
				for k := 0; k < int(c.NamedChildCount()); k++ {
					spec := c.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					alias := spec.ChildByFieldName("alias")
					cit := tree.Citation{
						Span:   nodeSpan(spec),
						Path:   []string{moduleName, nodeText(name, src)},
						Kind:   tree.CiteImport,
						Status: tree.CiteUnresolved,
						// Named imports bind the member name locally.
						Alias: nodeText(name, src),
					}
					if alias != nil {
						cit.Alias = nodeText(alias, src)
					}
					owner.Citations = append(owner.Citations, cit)
				}
			}
		}
	}
}

func (a *JavaScriptAdapter) scanExpressions(n *sitter.Node, src []byte, owner *tree.Blob) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "call_expression":
			if fn := n.ChildByFieldName("function"); fn != nil {
				if path := dottedPath(fn, src, "object", "property", "identifier"); path != nil {
					owner.Citations = append(owner.Citations, tree.Citation{
						Span:   nodeSpan(fn),
						Path:   path,
						Kind:   tree.CiteCall,
						Status: tree.CiteUnresolved,
					})
				}
			}
			if args := n.ChildByFieldName("arguments"); args != nil {
				walk(args)
			}
			return
		case "member_expression":
			if path := dottedPath(n, src, "object", "property", "identifier"); path != nil {
				owner.Citations = append(owner.Citations, tree.Citation{
					Span:   nodeSpan(n),
					Path:   path,
					Kind:   tree.CiteMember,
					Status: tree.CiteUnresolved,
				})
				return
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(n)
}
