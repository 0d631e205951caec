package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/mgrier/spyglass/internal/tree"
)

// IndexEntry is one declared name in the index, addressed by the tree it
// came from and its position there.
type IndexEntry struct {
	// Key is the owning tree's source identity.
	Key string
	// Name is the declared name; Qualified is the dotted path from the
	// module root (module.Class.method).
	Name      string
	Qualified string
	Kind      tree.Kind
	Span      tree.Span
	Catalog   bool

	seq  uint64
	decl int
}

// NameIndex is the incremental name index over every stored tree: it is
// rebuilt per key on each Put, never globally. Results order by
// workspace-before-catalog, then tree insertion sequence, then
// declaration order within the tree, so the same store state always
// yields the same result list.
type NameIndex struct {
	mu      sync.RWMutex
	entries map[string][]IndexEntry
}

func (ix *NameIndex) init() {
	ix.entries = make(map[string][]IndexEntry)
}

// update replaces the entries for one tree.
func (ix *NameIndex) update(t *tree.SymbolTree, seq uint64, catalog bool) {
	var list []IndexEntry
	decl := 0
	var walk func(b *tree.Blob, prefix []string)
	walk = func(b *tree.Blob, prefix []string) {
		scope := prefix
		if b.Name != "" {
			scope = append(append([]string{}, prefix...), b.Name)
		}
		for _, sym := range b.Symbols {
			if !sym.IsDecl {
				continue
			}
			qual := sym.Name
			if len(scope) > 0 {
				qual = tree.JoinPath(scope) + "." + sym.Name
			}
			// A blob's own decl symbol repeats the blob name; qualify it
			// by the enclosing scope instead of by itself.
			if sym.Name == b.Name && sym.Kind == b.Kind {
				if len(prefix) > 0 {
					qual = tree.JoinPath(prefix) + "." + sym.Name
				} else {
					qual = sym.Name
				}
			}
			list = append(list, IndexEntry{
				Key:       t.Key,
				Name:      sym.Name,
				Qualified: qual,
				Kind:      sym.Kind,
				Span:      sym.Span,
				Catalog:   catalog,
				seq:       seq,
				decl:      decl,
			})
			decl++
		}
		for _, c := range b.Children {
			walk(c, scope)
		}
	}
	for _, b := range t.Blobs {
		walk(b, nil)
	}

	ix.mu.Lock()
	ix.entries[t.Key] = list
	ix.mu.Unlock()
}

func (ix *NameIndex) remove(key string) {
	ix.mu.Lock()
	delete(ix.entries, key)
	ix.mu.Unlock()
}

// Lookup returns every declaration with exactly the given name.
func (ix *NameIndex) Lookup(name string) []IndexEntry {
	return ix.collect(func(e *IndexEntry) bool { return e.Name == name }, 0)
}

// Prefix returns declarations whose name starts with prefix, up to
// limit (0 = unlimited).
func (ix *NameIndex) Prefix(prefix string, limit int) []IndexEntry {
	return ix.collect(func(e *IndexEntry) bool {
		return strings.HasPrefix(e.Name, prefix)
	}, limit)
}

func (ix *NameIndex) collect(match func(*IndexEntry) bool, limit int) []IndexEntry {
	ix.mu.RLock()
	var out []IndexEntry
	for _, list := range ix.entries {
		for i := range list {
			if match(&list[i]) {
				out = append(out, list[i])
			}
		}
	}
	ix.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.Catalog != b.Catalog {
			return !a.Catalog
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return a.decl < b.decl
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
