// Package resolve walks scope chains and citation paths against the
// store: given a position or a qualified name chain, it finds the
// declaration being referenced, reporting ambiguity instead of guessing
// when several declarations tie.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mgrier/spyglass/internal/store"
	"github.com/mgrier/spyglass/internal/tree"
)

// ErrUnresolved is returned when a name matches no declaration in the
// scope chain, imports, or catalogs.
var ErrUnresolved = errors.New("unresolved name")

// Target is a resolved declaration: the tree it lives in, the blob that
// is (or declares) it, and the symbol when the declaration is a plain
// name rather than a scope.
type Target struct {
	Key    string
	Tree   *tree.SymbolTree
	Blob   *tree.Blob
	Symbol *tree.Symbol
	// Qualified is the dotted path of the declaration from its module root.
	Qualified string
}

// Span returns the declaration's source span: the symbol's when
// present, otherwise the blob's.
func (t Target) Span() tree.Span {
	if t.Symbol != nil {
		return t.Symbol.Span
	}
	if t.Blob != nil {
		return t.Blob.Span
	}
	return tree.Span{}
}

// Name returns the declared name.
func (t Target) Name() string {
	if t.Symbol != nil {
		return t.Symbol.Name
	}
	if t.Blob != nil {
		return t.Blob.Name
	}
	return ""
}

// Ambiguous reports a name that matched several declarations at the
// same scope level. Candidates are in store order so callers can show a
// stable pick list.
type Ambiguous struct {
	Name       string
	Candidates []Target
}

func (e *Ambiguous) Error() string {
	keys := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		keys[i] = c.Key + ":" + c.Qualified
	}
	return fmt.Sprintf("ambiguous name %q: %s", e.Name, strings.Join(keys, ", "))
}

// Resolver resolves names and citations against a store snapshot.
type Resolver struct {
	store *store.Store
}

func New(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// Chain returns the scope chain for a position, innermost blob first.
// Positions outside every blob fall back to the module blob so that
// top-of-file text still sees module scope.
func (r *Resolver) Chain(t *tree.SymbolTree, line, col int) []*tree.Blob {
	chain := t.BlobChain(line, col)
	if len(chain) == 0 && t.Root() != nil {
		chain = []*tree.Blob{t.Root()}
	}
	return chain
}

// ResolvePath resolves a qualified name chain as seen from a position:
// the head through the scope chain, the rest as member accesses.
func (r *Resolver) ResolvePath(t *tree.SymbolTree, line, col int, path []string) (Target, error) {
	if len(path) == 0 {
		return Target{}, ErrUnresolved
	}
	head, err := r.resolveName(t, r.Chain(t, line, col), path[0])
	if err != nil {
		return Target{}, err
	}
	return r.descend(head, path[1:])
}

// ResolveCitation resolves a citation in place: the citation's status
// flips to resolved or ambiguous, and stays unresolved on a miss.
func (r *Resolver) ResolveCitation(t *tree.SymbolTree, c *tree.Citation) (Target, error) {
	target, err := r.ResolvePath(t, c.Span.StartLine, c.Span.StartCol, c.Path)
	switch {
	case err == nil:
		c.Status = tree.CiteResolved
	case errors.As(err, new(*Ambiguous)):
		c.Status = tree.CiteAmbiguous
	default:
		c.Status = tree.CiteUnresolved
	}
	return target, err
}

// resolveName finds a single name: scope chain innermost-out, then the
// implicit catalog level. Within one level, local declarations beat
// imports and direct imports beat wildcard imports; a tie inside the
// winning class is an Ambiguous error.
func (r *Resolver) resolveName(t *tree.SymbolTree, chain []*tree.Blob, name string) (Target, error) {
	for _, b := range chain {
		if target, found, err := r.resolveInBlob(t, b, name); found {
			return target, err
		}
	}
	return r.resolveInCatalogs(name)
}

// resolveInBlob checks one scope level. found=false means the level has
// no binding for the name and the search should move outward.
func (r *Resolver) resolveInBlob(t *tree.SymbolTree, b *tree.Blob, name string) (Target, bool, error) {
	var locals []Target
	for _, c := range b.Children {
		if c.Name == name {
			locals = append(locals, r.blobTarget(t, c))
		}
	}
	for i := range b.Symbols {
		s := &b.Symbols[i]
		if s.IsDecl && s.Name == name {
			// Skip the blob's own decl symbol when the child blob was
			// already collected for the same declaration.
			if len(locals) > 0 && locals[len(locals)-1].Name() == name && s.Span == locals[len(locals)-1].Span() {
				continue
			}
			locals = append(locals, Target{
				Key: t.Key, Tree: t, Blob: b, Symbol: s,
				Qualified: r.qualify(t, b, s.Name),
			})
		}
	}
	if len(locals) > 0 {
		return r.pick(name, locals)
	}

	var direct, wild []Target
	for i := range b.Citations {
		c := &b.Citations[i]
		if c.Kind != tree.CiteImport {
			continue
		}
		if !c.Wildcard && c.LocalName() == name {
			if target, err := r.resolveImportTarget(c.Path); err == nil {
				direct = append(direct, target)
			}
			continue
		}
		if c.Wildcard {
			if mod, err := r.resolveImportTarget(c.Path); err == nil {
				for _, m := range r.Members(mod) {
					if m.Name == name {
						wild = append(wild, m.Target)
					}
				}
			}
		}
	}
	if len(direct) > 0 {
		return r.pick(name, direct)
	}
	if len(wild) > 0 {
		return r.pick(name, wild)
	}
	return Target{}, false, nil
}

func (r *Resolver) pick(name string, candidates []Target) (Target, bool, error) {
	if len(candidates) == 1 {
		return candidates[0], true, nil
	}
	return Target{}, true, &Ambiguous{Name: name, Candidates: candidates}
}

// Import resolves an import path independently of any scope chain: the
// head names a module in the store, the rest are members.
func (r *Resolver) Import(path []string) (Target, error) {
	return r.resolveImportTarget(path)
}

// resolveImportTarget chases an import path: the head names a module in
// the store (workspace shadows catalog), the rest are members.
func (r *Resolver) resolveImportTarget(path []string) (Target, error) {
	if len(path) == 0 {
		return Target{}, ErrUnresolved
	}
	mod, ok := r.moduleByName(path[0])
	if !ok {
		return Target{}, fmt.Errorf("module %q: %w", path[0], ErrUnresolved)
	}
	return r.descend(r.blobTarget(mod, mod.Root()), path[1:])
}

// moduleByName finds a stored tree whose root module carries the given
// name. Workspace trees win over catalogs; insertion order breaks ties.
func (r *Resolver) moduleByName(name string) (*tree.SymbolTree, bool) {
	var found *tree.SymbolTree
	r.store.ForEach(func(t *tree.SymbolTree, catalog bool) bool {
		if t.Root() != nil && t.Root().Name == name {
			found = t
			return false
		}
		return true
	})
	return found, found != nil
}

// resolveInCatalogs is the implicit outermost scope level: built-in and
// catalog declarations visible without an import. Every catalog tree is
// a peer at this level, so a name declared by more than one catalog is
// Ambiguous with the full candidate set, never a silent first pick.
func (r *Resolver) resolveInCatalogs(name string) (Target, error) {
	var candidates []Target
	r.store.ForEach(func(t *tree.SymbolTree, catalog bool) bool {
		if !catalog || t.Root() == nil {
			return true
		}
		if t.Root().Name == name {
			candidates = append(candidates, r.blobTarget(t, t.Root()))
			return true
		}
		target, found, err := r.resolveInBlob(t, t.Root(), name)
		if !found {
			return true
		}
		var amb *Ambiguous
		switch {
		case errors.As(err, &amb):
			candidates = append(candidates, amb.Candidates...)
		case err == nil:
			candidates = append(candidates, target)
		}
		return true
	})
	switch len(candidates) {
	case 0:
		return Target{}, ErrUnresolved
	case 1:
		return candidates[0], nil
	}
	return Target{}, &Ambiguous{Name: name, Candidates: candidates}
}

func (r *Resolver) blobTarget(t *tree.SymbolTree, b *tree.Blob) Target {
	return Target{Key: t.Key, Tree: t, Blob: b, Qualified: r.qualify(t, b, "")}
}

// qualify renders the dotted path of a blob (plus an optional symbol
// name) from its module root.
func (r *Resolver) qualify(t *tree.SymbolTree, b *tree.Blob, symbol string) string {
	var path []string
	var walk func(cur *tree.Blob, acc []string) []string
	walk = func(cur *tree.Blob, acc []string) []string {
		if cur.Name != "" {
			acc = append(acc, cur.Name)
		}
		if cur == b {
			return acc
		}
		for _, c := range cur.Children {
			if c.Span.Contains(b.Span) {
				return walk(c, acc)
			}
		}
		return nil
	}
	if t.Root() != nil {
		path = walk(t.Root(), nil)
	}
	if symbol != "" {
		path = append(path, symbol)
	}
	return tree.JoinPath(path)
}
