package spyglass

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mgrier/spyglass/internal/resolve"
	"github.com/mgrier/spyglass/internal/tree"
)

// Position is a zero-based line and column in a file.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Location names a declaration site.
type Location struct {
	Key       string    `json:"key"`
	Span      tree.Span `json:"span"`
	Qualified string    `json:"qualified"`
	Kind      tree.Kind `json:"kind"`
}

// CallTip is the answer to a call tip query: a rendered signature plus
// the callable's doc text.
type CallTip struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Doc       string `json:"doc,omitempty"`
}

// queryPhase tracks a query through its lifecycle. Every phase change
// re-checks the context, so cancellation is observed between the scope
// walk, resolution, and answer assembly rather than only at the start.
type queryPhase string

const (
	phaseReceived queryPhase = "received"
	phaseScoped   queryPhase = "scoped"
	phaseResolved queryPhase = "resolved"
	phaseAnswered queryPhase = "answered"
)

type query struct {
	ctx   context.Context
	phase queryPhase
}

func newQuery(ctx context.Context) *query {
	return &query{ctx: ctx, phase: phaseReceived}
}

func (q *query) advance(next queryPhase) error {
	if err := q.ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", q.phase, ErrCancelled)
	}
	q.phase = next
	return nil
}

// JumpToDefinition finds the declaration referenced at a position. On a
// citation the citation path is resolved; on a declaration name the
// declaration itself is returned. Ambiguity surfaces as an
// *AmbiguousError rather than an arbitrary pick.
func (e *Engine) JumpToDefinition(ctx context.Context, key string, pos Position) (Location, error) {
	q := newQuery(ctx)
	t, ok := e.store.Get(key)
	if !ok {
		return Location{}, fmt.Errorf("%s: %w", key, ErrNotIndexed)
	}
	if err := q.advance(phaseScoped); err != nil {
		return Location{}, err
	}

	cit := t.CitationAt(pos.Line, pos.Col)
	if cit == nil {
		if sym, owner := t.SymbolAt(pos.Line, pos.Col); sym != nil {
			if err := q.advance(phaseAnswered); err != nil {
				return Location{}, err
			}
			return Location{
				Key: key, Span: sym.Span, Kind: sym.Kind,
				Qualified: qualifiedIn(t, owner, sym.Name),
			}, nil
		}
		return Location{}, fmt.Errorf("no reference at %d:%d: %w", pos.Line, pos.Col, ErrUnresolved)
	}
	if err := q.advance(phaseResolved); err != nil {
		return Location{}, err
	}

	target, err := e.resolver.ResolveCitation(t, cit)
	if err != nil {
		return Location{}, err
	}
	if err := q.advance(phaseAnswered); err != nil {
		return Location{}, err
	}
	return targetLocation(target), nil
}

// CallTip returns the signature of the callable referenced at a
// position. On a class target the constructor's signature is used when
// one exists.
func (e *Engine) CallTip(ctx context.Context, key string, pos Position) (CallTip, error) {
	q := newQuery(ctx)
	t, ok := e.store.Get(key)
	if !ok {
		return CallTip{}, fmt.Errorf("%s: %w", key, ErrNotIndexed)
	}
	if err := q.advance(phaseScoped); err != nil {
		return CallTip{}, err
	}

	cit := t.CitationAt(pos.Line, pos.Col)
	if cit == nil {
		return CallTip{}, fmt.Errorf("no call at %d:%d: %w", pos.Line, pos.Col, ErrUnresolved)
	}
	if err := q.advance(phaseResolved); err != nil {
		return CallTip{}, err
	}

	target, err := e.resolver.ResolveCitation(t, cit)
	if err != nil {
		return CallTip{}, err
	}
	if err := q.advance(phaseAnswered); err != nil {
		return CallTip{}, err
	}
	return e.callTipFor(target)
}

func (e *Engine) callTipFor(target resolve.Target) (CallTip, error) {
	b := target.Blob
	if b == nil {
		return CallTip{}, fmt.Errorf("%s is not callable: %w", target.Qualified, ErrUnresolved)
	}
	if b.Kind == tree.KindClass {
		for _, ctor := range []string{"__init__", "constructor"} {
			if m, ok := e.resolver.Member(target, ctor); ok && m.Blob != nil && m.Blob.Signature != nil {
				return CallTip{
					Name:      b.Name,
					Signature: b.Name + m.Blob.Signature.String(),
					Doc:       firstNonEmpty(m.Blob.Doc, b.Doc),
				}, nil
			}
		}
		return CallTip{Name: b.Name, Signature: b.Name + "()", Doc: b.Doc}, nil
	}
	if b.Signature == nil {
		return CallTip{}, fmt.Errorf("%s has no signature: %w", target.Qualified, ErrUnresolved)
	}
	return CallTip{Name: b.Name, Signature: b.Name + b.Signature.String(), Doc: b.Doc}, nil
}

// SymbolSearch finds declarations across the workspace and catalogs by
// name prefix, in stable store order.
func (e *Engine) SymbolSearch(ctx context.Context, prefix string, limit int) ([]Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("symbol search: %w", ErrCancelled)
	}
	entries := e.store.Index().Prefix(prefix, limit)
	out := make([]Location, len(entries))
	for i, en := range entries {
		out[i] = Location{Key: en.Key, Span: en.Span, Qualified: en.Qualified, Kind: en.Kind}
	}
	return out, nil
}

func targetLocation(t resolve.Target) Location {
	loc := Location{Key: t.Key, Span: t.Span(), Qualified: t.Qualified}
	switch {
	case t.Symbol != nil:
		loc.Kind = t.Symbol.Kind
	case t.Blob != nil:
		loc.Kind = t.Blob.Kind
	}
	return loc
}

// AmbiguousLocations extracts the candidate locations from an
// *AmbiguousError, for callers presenting a pick list.
func AmbiguousLocations(err error) ([]Location, bool) {
	var amb *AmbiguousError
	if !errors.As(err, &amb) {
		return nil, false
	}
	out := make([]Location, len(amb.Candidates))
	for i, c := range amb.Candidates {
		out[i] = targetLocation(c)
	}
	return out, true
}

// qualifiedIn renders owner-scope qualification for a symbol by walking
// the blob path from the module root.
func qualifiedIn(t *tree.SymbolTree, owner *tree.Blob, name string) string {
	if owner == nil || t.Root() == nil {
		return name
	}
	var parts []string
	cur := t.Root()
	for cur != nil {
		if cur.Name != "" {
			parts = append(parts, cur.Name)
		}
		if cur == owner {
			break
		}
		next := (*tree.Blob)(nil)
		for _, c := range cur.Children {
			if c.Span.Contains(owner.Span) {
				next = c
				break
			}
		}
		cur = next
	}
	if name != "" && (len(parts) == 0 || parts[len(parts)-1] != name) {
		parts = append(parts, name)
	}
	return strings.Join(parts, ".")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
