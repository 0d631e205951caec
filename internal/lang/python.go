package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/mgrier/spyglass/internal/tree"
)

// PythonAdapter scans Python source. Classes and nested functions are
// lexically scoped, so they become child blobs directly; docstrings are
// lifted from the first string expression of a body.
type PythonAdapter struct{}

func NewPythonAdapter() *PythonAdapter { return &PythonAdapter{} }

func (a *PythonAdapter) Language() string     { return "python" }
func (a *PythonAdapter) Extensions() []string { return []string{".py", ".pyw"} }

func (a *PythonAdapter) Scan(ctx context.Context, src []byte, sc ScanContext) (*tree.SymbolTree, error) {
	parsed, err := parseSource(ctx, python.GetLanguage(), src)
	if err != nil {
		return nil, err
	}
	defer parsed.Close()
	root := parsed.RootNode()

	module := &tree.Blob{
		Name: sc.ModuleName,
		Kind: tree.KindModule,
		Span: nodeSpan(root),
		Doc:  a.docstring(root, src),
	}
	a.scanBlock(root, src, module)

	out := &tree.SymbolTree{
		Language: a.Language(),
		Blobs:    []*tree.Blob{module},
		Failures: collectFailures(root, src),
	}
	return out, nil
}

// scanBlock walks the statements of a module, class body, or function
// body and fills the owning blob.
func (a *PythonAdapter) scanBlock(block *sitter.Node, src []byte, owner *tree.Blob) {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		n := block.NamedChild(i)
		switch n.Type() {
		case "function_definition":
			if b := a.scanFunction(n, src); b != nil {
				owner.Children = append(owner.Children, b)
			}
		case "class_definition":
			if b := a.scanClass(n, src); b != nil {
				owner.Children = append(owner.Children, b)
			}
		case "decorated_definition":
			if def := n.ChildByFieldName("definition"); def != nil {
				var b *tree.Blob
				switch def.Type() {
				case "function_definition":
					b = a.scanFunction(def, src)
				case "class_definition":
					b = a.scanClass(def, src)
				}
				if b != nil {
					// The decorated span covers the decorators too;
					// containment demands the wider span.
					b.Span = nodeSpan(n)
					owner.Children = append(owner.Children, b)
				}
			}
		case "import_statement", "import_from_statement":
			a.scanImport(n, src, owner)
		case "expression_statement":
			a.scanAssignment(n, src, owner)
		default:
			a.scanExpressions(n, src, owner)
		}
	}
}

func (a *PythonAdapter) scanFunction(n *sitter.Node, src []byte) *tree.Blob {
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
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		b.Signature.Returns = nodeText(ret, src)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.Doc = a.docstring(body, src)
		a.scanBlock(body, src, b)
	}
	return b
}

func (a *PythonAdapter) scanClass(n *sitter.Node, src []byte) *tree.Blob {
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

	// Superclasses become inheritance citations.
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			s := supers.NamedChild(i)
			if path := dottedPath(s, src, "object", "attribute", "identifier"); path != nil {
				b.Citations = append(b.Citations, tree.Citation{
					Span:   nodeSpan(s),
					Path:   path,
					Kind:   tree.CiteInherit,
					Status: tree.CiteUnresolved,
				})
			}
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		b.Doc = a.docstring(body, src)
		a.scanBlock(body, src, b)
	}
	return b
}

func (a *PythonAdapter) scanSignature(n *sitter.Node, src []byte) *tree.Signature {
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
		case "typed_parameter":
			sig.Params = append(sig.Params, tree.Param{
				Name: nodeText(p.NamedChild(0), src),
				Type: nodeText(p.ChildByFieldName("type"), src),
			})
		case "default_parameter":
			sig.Params = append(sig.Params, tree.Param{
				Name:       nodeText(p.ChildByFieldName("name"), src),
				HasDefault: true,
				Default:    nodeText(p.ChildByFieldName("value"), src),
			})
		case "typed_default_parameter":
			sig.Params = append(sig.Params, tree.Param{
				Name:       nodeText(p.ChildByFieldName("name"), src),
				Type:       nodeText(p.ChildByFieldName("type"), src),
				HasDefault: true,
				Default:    nodeText(p.ChildByFieldName("value"), src),
			})
		case "list_splat_pattern", "dictionary_splat_pattern":
			sig.Params = append(sig.Params, tree.Param{Name: nodeText(p, src)})
		}
	}
	return sig
}

func (a *PythonAdapter) scanImport(n *sitter.Node, src []byte, owner *tree.Blob) {
	switch n.Type() {
	case "import_statement":
		// import a.b [as c]
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "dotted_name":
				owner.Citations = append(owner.Citations, tree.Citation{
					Span:   nodeSpan(c),
					Path:   strings.Split(nodeText(c, src), "."),
					Kind:   tree.CiteImport,
					Status: tree.CiteUnresolved,
				})
			case "aliased_import":
				name := c.ChildByFieldName("name")
				alias := c.ChildByFieldName("alias")
				owner.Citations = append(owner.Citations, tree.Citation{
					Span:   nodeSpan(c),
					Path:   strings.Split(nodeText(name, src), "."),
					Kind:   tree.CiteImport,
					Status: tree.CiteUnresolved,
					Alias:  nodeText(alias, src),
				})
			}
		}
	case "import_from_statement":
		// from a.b import x [as y] | from a.b import *
		moduleNode := n.ChildByFieldName("module_name")
		if moduleNode == nil {
			return
		}
		base := strings.Split(nodeText(moduleNode, src), ".")

		wildcard := false
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "wildcard_import" {
				wildcard = true
			}
		}
		if wildcard {
			owner.Citations = append(owner.Citations, tree.Citation{
				Span:     nodeSpan(n),
				Path:     base,
				Kind:     tree.CiteImport,
				Status:   tree.CiteUnresolved,
				Wildcard: true,
			})
			return
		}

		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.StartByte() == moduleNode.StartByte() && c.EndByte() == moduleNode.EndByte() {
				continue
			}
			switch c.Type() {
			case "dotted_name", "identifier":
				// A from-import binds the member name, not the module, so
				// the alias must carry it for scope resolution.
				name := nodeText(c, src)
				if i := strings.LastIndex(name, "."); i >= 0 {
					name = name[i+1:]
				}
				owner.Citations = append(owner.Citations, tree.Citation{
					Span:   nodeSpan(c),
					Path:   append(append([]string{}, base...), nodeText(c, src)),
					Kind:   tree.CiteImport,
					Status: tree.CiteUnresolved,
					Alias:  name,
				})
			case "aliased_import":
				name := c.ChildByFieldName("name")
				alias := c.ChildByFieldName("alias")
				owner.Citations = append(owner.Citations, tree.Citation{
					Span:   nodeSpan(c),
					Path:   append(append([]string{}, base...), nodeText(name, src)),
					Kind:   tree.CiteImport,
					Status: tree.CiteUnresolved,
					Alias:  nodeText(alias, src),
				})
			}
		}
	}
}

// scanAssignment records module- and class-level variable declarations.
func (a *PythonAdapter) scanAssignment(stmt *sitter.Node, src []byte, owner *tree.Blob) {
	expr := stmt.NamedChild(0)
	if expr == nil {
		return
	}
	if expr.Type() != "assignment" {
		a.scanExpressions(stmt, src, owner)
		return
	}
	left := expr.ChildByFieldName("left")
	if left != nil && left.Type() == "identifier" {
		typ := nodeText(expr.ChildByFieldName("type"), src)
		owner.Symbols = append(owner.Symbols, tree.Symbol{
			Name: nodeText(left, src), Kind: tree.KindVariable,
			Span: nodeSpan(left), TypeRef: typ, IsDecl: true,
		})
	}
	if right := expr.ChildByFieldName("right"); right != nil {
		a.scanExpressions(right, src, owner)
	}
}

// scanExpressions collects call and attribute citations from an
// expression subtree.
func (a *PythonAdapter) scanExpressions(n *sitter.Node, src []byte, owner *tree.Blob) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "call":
			if fn := n.ChildByFieldName("function"); fn != nil {
				if path := dottedPath(fn, src, "object", "attribute", "identifier"); path != nil {
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
		case "attribute":
			if path := dottedPath(n, src, "object", "attribute", "identifier"); path != nil {
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

// docstring returns the text of a body's leading string expression.
func (a *PythonAdapter) docstring(body *sitter.Node, src []byte) string {
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Type() != "string" {
		return ""
	}
	return strings.Trim(nodeText(str, src), `"'`)
}
