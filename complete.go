package spyglass

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/mgrier/spyglass/internal/tree"
)

// Candidate is one completion entry.
type Candidate struct {
	Name     string    `json:"name"`
	Kind     tree.Kind `json:"kind"`
	Location Location  `json:"location"`
}

// Complete returns completion candidates for a prefix typed at a
// position. A dotted prefix ("os.pa") completes members of the resolved
// base; a plain prefix completes names visible in the scope chain,
// then indexed workspace and catalog declarations. Candidate order is
// deterministic: innermost scope first, then store order. The returned
// sequence is a snapshot; iterating it does not touch the store.
func (e *Engine) Complete(ctx context.Context, key string, pos Position, prefix string, limit int) (iter.Seq[Candidate], error) {
	q := newQuery(ctx)
	t, ok := e.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotIndexed)
	}
	if err := q.advance(phaseScoped); err != nil {
		return nil, err
	}

	var candidates []Candidate
	var err error
	if i := strings.LastIndex(prefix, "."); i >= 0 {
		candidates, err = e.memberCandidates(t, pos, tree.SplitPath(prefix[:i]), prefix[i+1:])
	} else {
		candidates = e.scopeCandidates(t, pos, prefix)
	}
	if err != nil {
		return nil, err
	}
	if err := q.advance(phaseAnswered); err != nil {
		return nil, err
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return func(yield func(Candidate) bool) {
		for _, c := range candidates {
			if !yield(c) {
				return
			}
		}
	}, nil
}

func (e *Engine) memberCandidates(t *tree.SymbolTree, pos Position, base []string, partial string) ([]Candidate, error) {
	target, err := e.resolver.ResolvePath(t, pos.Line, pos.Col, base)
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for _, m := range e.resolver.Members(target) {
		if !strings.HasPrefix(m.Name, partial) {
			continue
		}
		out = append(out, Candidate{Name: m.Name, Kind: m.Kind, Location: targetLocation(m.Target)})
	}
	return out, nil
}

func (e *Engine) scopeCandidates(t *tree.SymbolTree, pos Position, prefix string) []Candidate {
	var out []Candidate
	have := map[string]bool{}
	add := func(c Candidate) {
		if c.Name == "" || have[c.Name] || !strings.HasPrefix(c.Name, prefix) {
			return
		}
		have[c.Name] = true
		out = append(out, c)
	}

	for _, b := range e.resolver.Chain(t, pos.Line, pos.Col) {
		for _, c := range b.Children {
			add(Candidate{Name: c.Name, Kind: c.Kind, Location: Location{
				Key: t.Key, Span: c.Span, Qualified: qualifiedIn(t, c, ""), Kind: c.Kind,
			}})
		}
		for i := range b.Symbols {
			s := &b.Symbols[i]
			if !s.IsDecl || (s.Name == b.Name && s.Kind == b.Kind) {
				continue
			}
			add(Candidate{Name: s.Name, Kind: s.Kind, Location: Location{
				Key: t.Key, Span: s.Span, Qualified: qualifiedIn(t, b, s.Name), Kind: s.Kind,
			}})
		}
		for i := range b.Citations {
			c := &b.Citations[i]
			if c.Kind != tree.CiteImport {
				continue
			}
			if c.Wildcard {
				// Names pulled in by a star import complete as if local.
				if mod, err := e.resolver.Import(c.Path); err == nil {
					for _, m := range e.resolver.Members(mod) {
						add(Candidate{Name: m.Name, Kind: m.Kind, Location: targetLocation(m.Target)})
					}
				}
				continue
			}
			cand := Candidate{Name: c.LocalName(), Kind: tree.KindNamespace}
			if target, err := e.resolver.Import(c.Path); err == nil {
				cand.Location = targetLocation(target)
				cand.Kind = cand.Location.Kind
			}
			add(cand)
		}
	}

	// Indexed declarations from the rest of the workspace and catalogs,
	// already in stable store order.
	for _, en := range e.store.Index().Prefix(prefix, 0) {
		add(Candidate{Name: en.Name, Kind: en.Kind, Location: Location{
			Key: en.Key, Span: en.Span, Qualified: en.Qualified, Kind: en.Kind,
		}})
	}
	return out
}
