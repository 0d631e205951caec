package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/mgrier/spyglass/internal/tree"
)

// GoAdapter scans Go source. Methods stay top-level function blobs (a
// method body is not lexically inside its receiver type) and carry the
// receiver type in TypeRef so member resolution can find them.
type GoAdapter struct{}

func NewGoAdapter() *GoAdapter { return &GoAdapter{} }

func (a *GoAdapter) Language() string     { return "go" }
func (a *GoAdapter) Extensions() []string { return []string{".go"} }

func (a *GoAdapter) Scan(ctx context.Context, src []byte, sc ScanContext) (*tree.SymbolTree, error) {
	parsed, err := parseSource(ctx, golang.GetLanguage(), src)
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

	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "package_clause":
			if name := n.NamedChild(0); name != nil {
				module.Name = nodeText(name, src)
			}
		case "import_declaration":
			a.scanImports(n, src, module)
		case "function_declaration":
			if b := a.scanFunction(n, src, ""); b != nil {
				module.Children = append(module.Children, b)
			}
		case "method_declaration":
			if b := a.scanMethod(n, src); b != nil {
				module.Children = append(module.Children, b)
			}
		case "type_declaration":
			a.scanTypeDecl(n, src, module)
		case "var_declaration", "const_declaration":
			a.scanValueDecl(n, src, module)
		}
	}

	out := &tree.SymbolTree{
		Language: a.Language(),
		Blobs:    []*tree.Blob{module},
		Failures: collectFailures(root, src),
	}
	return out, nil
}

func (a *GoAdapter) scanImports(decl *sitter.Node, src []byte, module *tree.Blob) {
	var specs []*sitter.Node
	var gather func(n *sitter.Node)
	gather = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "import_spec" {
				specs = append(specs, c)
			} else {
				gather(c)
			}
		}
	}
	gather(decl)

	for _, spec := range specs {
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		importPath := strings.Trim(nodeText(pathNode, src), `"`)
		segs := strings.Split(importPath, "/")
		name := segs[len(segs)-1]

		cit := tree.Citation{
			Span:   nodeSpan(spec),
			Path:   []string{name},
			Kind:   tree.CiteImport,
			Status: tree.CiteUnresolved,
		}
		if alias := spec.ChildByFieldName("name"); alias != nil {
			switch nodeText(alias, src) {
			case ".":
				cit.Wildcard = true
			case "_":
				// Blank imports bind no name; still recorded for
				// dependency queries.
				cit.Alias = "_"
			default:
				cit.Alias = nodeText(alias, src)
			}
		}
		module.Citations = append(module.Citations, cit)
	}
}

func (a *GoAdapter) scanFunction(n *sitter.Node, src []byte, receiver string) *tree.Blob {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	b := &tree.Blob{
		Name:      nodeText(nameNode, src),
		Kind:      tree.KindFunction,
		Span:      nodeSpan(n),
		Signature: a.scanSignature(n, src),
		TypeRef:   receiver,
	}
	b.Symbols = append(b.Symbols, declSymbol(b.Name, tree.KindFunction, nameNode))
	if body := n.ChildByFieldName("body"); body != nil {
		a.scanBody(body, src, b)
	}
	return b
}

func (a *GoAdapter) scanMethod(n *sitter.Node, src []byte) *tree.Blob {
	receiver := ""
	if recv := n.ChildByFieldName("receiver"); recv != nil {
		// parameter_list > parameter_declaration > type
		for i := 0; i < int(recv.NamedChildCount()); i++ {
			if decl := recv.NamedChild(i); decl.Type() == "parameter_declaration" {
				if typ := decl.ChildByFieldName("type"); typ != nil {
					receiver = strings.TrimPrefix(nodeText(typ, src), "*")
				}
			}
		}
	}
	return a.scanFunction(n, src, receiver)
}

func (a *GoAdapter) scanSignature(n *sitter.Node, src []byte) *tree.Signature {
	sig := &tree.Signature{}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			decl := params.NamedChild(i)
			if decl.Type() != "parameter_declaration" && decl.Type() != "variadic_parameter_declaration" {
				continue
			}
			typ := nodeText(decl.ChildByFieldName("type"), src)
			named := false
			for j := 0; j < int(decl.NamedChildCount()); j++ {
				c := decl.NamedChild(j)
				if c.Type() == "identifier" {
					sig.Params = append(sig.Params, tree.Param{Name: nodeText(c, src), Type: typ})
					named = true
				}
			}
			if !named {
				sig.Params = append(sig.Params, tree.Param{Name: typ})
			}
		}
	}
	if result := n.ChildByFieldName("result"); result != nil {
		sig.Returns = nodeText(result, src)
	}
	return sig
}

func (a *GoAdapter) scanTypeDecl(n *sitter.Node, src []byte, module *tree.Blob) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		spec := n.NamedChild(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		if nameNode == nil {
			continue
		}

		kind := tree.KindClass
		if typeNode != nil && typeNode.Type() == "interface_type" {
			kind = tree.KindInterface
		}
		b := &tree.Blob{
			Name: nodeText(nameNode, src),
			Kind: kind,
			Span: nodeSpan(spec),
		}
		b.Symbols = append(b.Symbols, declSymbol(b.Name, kind, nameNode))

		if typeNode != nil {
			switch typeNode.Type() {
			case "struct_type":
				a.scanStructFields(typeNode, src, b)
			case "interface_type":
				a.scanInterfaceMethods(typeNode, src, b)
			}
		}
		module.Children = append(module.Children, b)
	}
}

func (a *GoAdapter) scanStructFields(structType *sitter.Node, src []byte, b *tree.Blob) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() != "field_declaration" {
				walk(c)
				continue
			}
			typ := nodeText(c.ChildByFieldName("type"), src)
			named := false
			for j := 0; j < int(c.NamedChildCount()); j++ {
				f := c.NamedChild(j)
				if f.Type() == "field_identifier" {
					b.Symbols = append(b.Symbols, tree.Symbol{
						Name: nodeText(f, src), Kind: tree.KindVariable,
						Span: nodeSpan(f), TypeRef: typ, IsDecl: true,
					})
					named = true
				}
			}
			if !named && typ != "" {
				// Embedded field: record as an inheritance citation so
				// member resolution can chase the embedded type.
				b.Citations = append(b.Citations, tree.Citation{
					Span:   nodeSpan(c),
					Path:   tree.SplitPath(strings.TrimPrefix(typ, "*")),
					Kind:   tree.CiteInherit,
					Status: tree.CiteUnresolved,
				})
			}
		}
	}
	walk(structType)
}

func (a *GoAdapter) scanInterfaceMethods(ifaceType *sitter.Node, src []byte, b *tree.Blob) {
	for i := 0; i < int(ifaceType.NamedChildCount()); i++ {
		c := ifaceType.NamedChild(i)
		if c.Type() != "method_spec" && c.Type() != "method_elem" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		b.Symbols = append(b.Symbols, tree.Symbol{
			Name: nodeText(nameNode, src), Kind: tree.KindFunction,
			Span: nodeSpan(nameNode), IsDecl: true,
		})
	}
}

func (a *GoAdapter) scanValueDecl(n *sitter.Node, src []byte, module *tree.Blob) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "var_spec" || c.Type() == "const_spec" {
				typ := nodeText(c.ChildByFieldName("type"), src)
				for j := 0; j < int(c.NamedChildCount()); j++ {
					id := c.NamedChild(j)
					if id.Type() == "identifier" {
						module.Symbols = append(module.Symbols, tree.Symbol{
							Name: nodeText(id, src), Kind: tree.KindVariable,
							Span: nodeSpan(id), TypeRef: typ, IsDecl: true,
						})
					}
				}
			} else {
				walk(c)
			}
		}
	}
	walk(n)
}

// scanBody collects call and member-access citations inside a function
// body. Plain identifiers are only cited as part of those expressions;
// citing every identifier would bloat trees without helping navigation.
func (a *GoAdapter) scanBody(body *sitter.Node, src []byte, b *tree.Blob) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "call_expression":
			if fn := n.ChildByFieldName("function"); fn != nil {
				if path := dottedPath(fn, src, "operand", "field", "identifier"); path != nil {
					b.Citations = append(b.Citations, tree.Citation{
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
		case "selector_expression":
			if path := dottedPath(n, src, "operand", "field", "identifier"); path != nil {
				b.Citations = append(b.Citations, tree.Citation{
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
	walk(body)
}
