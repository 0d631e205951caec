package resolve

import (
	"fmt"

	"github.com/mgrier/spyglass/internal/tree"
)

// inheritDepth caps how far inheritance chains are chased; deeper
// chains are treated as exhausted rather than looping.
const inheritDepth = 8

// Member is one name reachable by member access on a target.
type Member struct {
	Name   string
	Kind   tree.Kind
	Target Target
}

// Members lists the names reachable by member access on a target, in
// declaration order: child scopes, declared symbols, receiver methods,
// then inherited members. Own members shadow inherited ones; the first
// declaration of a name wins.
func (r *Resolver) Members(t Target) []Member {
	return r.members(t, map[*tree.Blob]bool{}, 0)
}

func (r *Resolver) members(t Target, seen map[*tree.Blob]bool, depth int) []Member {
	if depth > inheritDepth {
		return nil
	}
	// A symbol target completes through its type.
	if t.Symbol != nil {
		typ, err := r.typeOf(t)
		if err != nil {
			return nil
		}
		return r.members(typ, seen, depth)
	}
	b := t.Blob
	if b == nil || seen[b] {
		return nil
	}
	seen[b] = true

	var out []Member
	have := map[string]bool{}
	add := func(m Member) {
		if m.Name == "" || have[m.Name] {
			return
		}
		have[m.Name] = true
		out = append(out, m)
	}

	for _, c := range b.Children {
		add(Member{Name: c.Name, Kind: c.Kind, Target: r.blobTarget(t.Tree, c)})
	}
	for i := range b.Symbols {
		s := &b.Symbols[i]
		if !s.IsDecl {
			continue
		}
		// The blob's own decl symbol names the blob, not a member of it.
		if s.Name == b.Name && s.Kind == b.Kind {
			continue
		}
		add(Member{Name: s.Name, Kind: s.Kind, Target: Target{
			Key: t.Key, Tree: t.Tree, Blob: b, Symbol: s,
			Qualified: r.qualify(t.Tree, b, s.Name),
		}})
	}

	// Methods declared at top level with a receiver type reference are
	// members of that type.
	if (b.Kind == tree.KindClass || b.Kind == tree.KindInterface) && t.Tree != nil && t.Tree.Root() != nil {
		for _, fn := range t.Tree.Root().Children {
			if fn.Kind == tree.KindFunction && fn.TypeRef == b.Name {
				add(Member{Name: fn.Name, Kind: fn.Kind, Target: r.blobTarget(t.Tree, fn)})
			}
		}
	}

	for i := range b.Citations {
		c := &b.Citations[i]
		if c.Kind != tree.CiteInherit {
			continue
		}
		base, err := r.ResolvePath(t.Tree, c.Span.StartLine, c.Span.StartCol, c.Path)
		if err != nil {
			continue
		}
		for _, m := range r.members(base, seen, depth+1) {
			add(m)
		}
	}
	return out
}

// typeOf resolves a symbol's type reference from the symbol's own
// position, so local type names win over catalog types.
func (r *Resolver) typeOf(t Target) (Target, error) {
	if t.Symbol == nil || t.Symbol.TypeRef == "" {
		return Target{}, ErrUnresolved
	}
	if t.Tree == nil {
		return Target{}, ErrUnresolved
	}
	return r.ResolvePath(t.Tree, t.Symbol.Span.StartLine, t.Symbol.Span.StartCol,
		tree.SplitPath(t.Symbol.TypeRef))
}

// descend follows member accesses from a resolved head.
func (r *Resolver) descend(cur Target, rest []string) (Target, error) {
	for _, name := range rest {
		next, ok := r.Member(cur, name)
		if !ok {
			return Target{}, fmt.Errorf("member %q of %s: %w", name, cur.Qualified, ErrUnresolved)
		}
		cur = next
	}
	return cur, nil
}

// Member finds one member by name, own members shadowing inherited.
func (r *Resolver) Member(t Target, name string) (Target, bool) {
	for _, m := range r.Members(t) {
		if m.Name == name {
			return m.Target, true
		}
	}
	return Target{}, false
}
