package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mgrier/spyglass/internal/tree"
)

// schemaVersion tags every cached row. Rows written by a different tree
// model are invisible to Load and get overwritten by the next Save, so
// an upgraded binary silently re-populates its cache.
const schemaVersion = 1

// Cache persists symbol trees to SQLite so catalog units and large
// workspaces survive restarts without a full re-scan. Trees are stored
// whole as JSON; the store's in-memory structures remain the query
// surface, the cache is only a durability layer.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (and creates) the cache database at path with WAL
// mode enabled.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(cacheDDL)
	if err != nil {
		return fmt.Errorf("migrate cache: %w", err)
	}
	return nil
}

const cacheDDL = `
CREATE TABLE IF NOT EXISTS trees (
  key             TEXT PRIMARY KEY,
  language        TEXT NOT NULL,
  fingerprint     TEXT NOT NULL,
  schema_version  INTEGER NOT NULL,
  catalog         BOOLEAN NOT NULL DEFAULT FALSE,
  tree_json       TEXT NOT NULL,
  updated_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trees_catalog ON trees(catalog);
`

// Save writes one tree, replacing any prior row for the same key.
func (c *Cache) Save(t *tree.SymbolTree, catalog bool) error {
	blob, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tree %s: %w", t.Key, err)
	}
	_, err = c.db.Exec(`
		INSERT INTO trees (key, language, fingerprint, schema_version, catalog, tree_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			language = excluded.language,
			fingerprint = excluded.fingerprint,
			schema_version = excluded.schema_version,
			catalog = excluded.catalog,
			tree_json = excluded.tree_json,
			updated_at = excluded.updated_at`,
		t.Key, t.Language, fmt.Sprintf("%016x", t.Fingerprint), schemaVersion,
		catalog, string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save tree %s: %w", t.Key, err)
	}
	return nil
}

// Load returns the cached tree for key, or (nil, false) when the key is
// absent or was written by a different schema version.
func (c *Cache) Load(key string) (*tree.SymbolTree, bool, error) {
	var blob string
	err := c.db.QueryRow(
		`SELECT tree_json FROM trees WHERE key = ? AND schema_version = ?`,
		key, schemaVersion).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load tree %s: %w", key, err)
	}
	t := &tree.SymbolTree{}
	if err := json.Unmarshal([]byte(blob), t); err != nil {
		return nil, false, fmt.Errorf("decode tree %s: %w", key, err)
	}
	return t, true, nil
}

// LoadAll streams every cached tree of the current schema version into
// fn, catalog trees flagged. Used to warm the store at startup.
func (c *Cache) LoadAll(fn func(t *tree.SymbolTree, catalog bool) error) error {
	rows, err := c.db.Query(
		`SELECT tree_json, catalog FROM trees WHERE schema_version = ? ORDER BY catalog, key`,
		schemaVersion)
	if err != nil {
		return fmt.Errorf("load all trees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob string
		var catalog bool
		if err := rows.Scan(&blob, &catalog); err != nil {
			return fmt.Errorf("scan tree row: %w", err)
		}
		t := &tree.SymbolTree{}
		if err := json.Unmarshal([]byte(blob), t); err != nil {
			return fmt.Errorf("decode cached tree: %w", err)
		}
		if err := fn(t, catalog); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Evict drops the row for key.
func (c *Cache) Evict(key string) error {
	if _, err := c.db.Exec(`DELETE FROM trees WHERE key = ?`, key); err != nil {
		return fmt.Errorf("evict tree %s: %w", key, err)
	}
	return nil
}
