package store

import "github.com/mgrier/spyglass/internal/tree"

// WarmFromCache loads every cached tree into the store, catalog trees
// as catalogs. Returns how many trees were loaded. Called once at
// startup before any scans run, so ordering inside the store is the
// cache's deterministic (catalog, key) order.
func WarmFromCache(s *Store, c *Cache) (int, error) {
	n := 0
	err := c.LoadAll(func(t *tree.SymbolTree, catalog bool) error {
		if catalog {
			s.PutCatalog(t)
		} else {
			s.Put(t)
		}
		n++
		return nil
	})
	return n, err
}
