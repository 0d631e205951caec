// Package store is the citation tree store: the in-memory home of every
// scanned SymbolTree plus the incremental name index built over them.
// Workspace trees and catalog trees live side by side; lookups see the
// workspace first. All operations are safe for concurrent use and a
// replace is atomic: readers see the old tree or the new one, never a
// partial state.
package store

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/mgrier/spyglass/internal/tree"
)

const shardCount = 16

// Store holds symbol trees keyed by source identity (file path or
// catalog unit name), sharded by key hash to keep scan-heavy workloads
// from serializing on one lock.
type Store struct {
	shards [shardCount]shard
	seq    atomic.Uint64
	index  NameIndex
}

type shard struct {
	mu    sync.RWMutex
	trees map[string]*entry
}

type entry struct {
	tree    *tree.SymbolTree
	seq     uint64
	catalog bool
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].trees = make(map[string]*entry)
	}
	s.index.init()
	return s
}

func (s *Store) shardFor(key string) *shard {
	return &s.shards[xxhash.Sum64String(key)%shardCount]
}

// Put stores a workspace tree under its key, replacing any previous
// tree atomically. A replaced key keeps its original insertion sequence
// so result ordering stays stable across re-scans.
func (s *Store) Put(t *tree.SymbolTree) {
	s.put(t, false)
}

// PutCatalog stores a catalog tree. Catalog trees rank after every
// workspace tree in ordered iteration and are shadowed by workspace
// trees on name collisions.
func (s *Store) PutCatalog(t *tree.SymbolTree) {
	s.put(t, true)
}

func (s *Store) put(t *tree.SymbolTree, catalog bool) {
	sh := s.shardFor(t.Key)
	sh.mu.Lock()
	seq := s.seq.Add(1)
	if prev, ok := sh.trees[t.Key]; ok {
		seq = prev.seq
	}
	sh.trees[t.Key] = &entry{tree: t, seq: seq, catalog: catalog}
	// Updated under the shard lock so the index always describes the
	// tree a racing Get on this key would return.
	s.index.update(t, seq, catalog)
	sh.mu.Unlock()
}

// Get returns the tree stored under key.
func (s *Store) Get(key string) (*tree.SymbolTree, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.trees[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.tree, true
}

// Fingerprint returns the stored tree's source fingerprint, used to
// skip re-scans of unchanged text.
func (s *Store) Fingerprint(key string) (uint64, bool) {
	t, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	return t.Fingerprint, true
}

// Delete removes the tree under key, if any.
func (s *Store) Delete(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	if _, ok := sh.trees[key]; ok {
		delete(sh.trees, key)
		s.index.remove(key)
	}
	sh.mu.Unlock()
}

// Len returns the number of stored trees, workspace and catalog.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		n += len(s.shards[i].trees)
		s.shards[i].mu.RUnlock()
	}
	return n
}

// Keys returns workspace tree keys in insertion order.
func (s *Store) Keys() []string {
	return s.keys(false)
}

// CatalogKeys returns catalog tree keys in insertion order.
func (s *Store) CatalogKeys() []string {
	return s.keys(true)
}

func (s *Store) keys(catalog bool) []string {
	type keyed struct {
		key string
		seq uint64
	}
	var all []keyed
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for k, e := range sh.trees {
			if e.catalog == catalog {
				all = append(all, keyed{k, e.seq})
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	out := make([]string, len(all))
	for i, k := range all {
		out[i] = k.key
	}
	return out
}

// ForEach visits every stored tree, workspace trees first in insertion
// order, then catalog trees in insertion order. Returning false stops
// the walk. The snapshot taken at call time is what gets visited;
// concurrent puts do not disturb an in-flight walk.
func (s *Store) ForEach(fn func(t *tree.SymbolTree, catalog bool) bool) {
	var ws, cat []*entry
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, e := range sh.trees {
			if e.catalog {
				cat = append(cat, e)
			} else {
				ws = append(ws, e)
			}
		}
		sh.mu.RUnlock()
	}
	bySeq := func(es []*entry) {
		sort.Slice(es, func(i, j int) bool { return es[i].seq < es[j].seq })
	}
	bySeq(ws)
	bySeq(cat)
	for _, e := range ws {
		if !fn(e.tree, false) {
			return
		}
	}
	for _, e := range cat {
		if !fn(e.tree, true) {
			return
		}
	}
}

// Flush clears all workspace trees, and with catalogs true the catalog
// trees as well. The name index drops the flushed entries.
func (s *Store) Flush(catalogs bool) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, e := range sh.trees {
			if e.catalog && !catalogs {
				continue
			}
			delete(sh.trees, k)
			s.index.remove(k)
		}
		sh.mu.Unlock()
	}
}

// Index exposes the name index for completion and symbol search.
func (s *Store) Index() *NameIndex {
	return &s.index
}
