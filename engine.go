package spyglass

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mgrier/spyglass/internal/lang"
	"github.com/mgrier/spyglass/internal/resolve"
	"github.com/mgrier/spyglass/internal/store"
	"github.com/mgrier/spyglass/internal/tree"
)

// Engine orchestrates the spyglass pipeline: scanning files into symbol
// trees, storing them, and answering definition, completion, and call
// tip queries. An Engine is safe for concurrent use.
type Engine struct {
	registry *lang.Registry
	store    *store.Store
	resolver *resolve.Resolver
	cache    *store.Cache

	languages   map[string]bool // nil means all registered languages
	scanTimeout time.Duration
	workers     int
	logger      *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will scan. Files
// of other languages fail with ErrUnknownLanguage.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, l := range languages {
			e.languages[l] = true
		}
	}
}

// WithScanTimeout bounds a single file scan. Zero disables the bound.
func WithScanTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.scanTimeout = d
	}
}

// WithWorkers sets the scan parallelism for directory indexing.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithAdapter registers an extra language adapter, replacing any
// built-in adapter for the same language tag.
func WithAdapter(a lang.Adapter) Option {
	return func(e *Engine) {
		e.registry.Register(a)
	}
}

// WithScript registers a Risor-scripted adapter for a language without
// a built-in scan.
func WithScript(language string, extensions []string, source string) Option {
	return func(e *Engine) {
		e.registry.Register(lang.NewScriptedAdapter(language, extensions, source))
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine with the built-in adapters registered.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		registry: lang.NewDefaultRegistry(),
		store:    store.New(),
		workers:  4,
		logger:   log.New(os.Stderr, "spyglass: ", log.LstdFlags),
	}
	e.resolver = resolve.New(e.store)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// OpenCatalogCache attaches a SQLite cache at path and warms the store
// from it. Trees scanned afterwards are persisted as they are stored.
func (e *Engine) OpenCatalogCache(path string) error {
	c, err := store.OpenCache(path)
	if err != nil {
		return fmt.Errorf("catalog cache: %w", err)
	}
	n, err := store.WarmFromCache(e.store, c)
	if err != nil {
		c.Close()
		return fmt.Errorf("warm from cache: %w", err)
	}
	if n > 0 {
		e.logger.Printf("loaded %d cached trees from %s", n, path)
	}
	e.cache = c
	return nil
}

// AddCatalog stores a prebuilt catalog tree: a read-only unit (standard
// library, bundled framework) consulted after workspace trees.
func (e *Engine) AddCatalog(t *tree.SymbolTree) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("catalog %s: %w", t.Key, err)
	}
	e.store.PutCatalog(t)
	if e.cache != nil {
		if err := e.cache.Save(t, true); err != nil {
			e.logger.Printf("cache save %s: %v", t.Key, err)
		}
	}
	return nil
}

// Close releases the engine's cache resources.
func (e *Engine) Close() error {
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}

// Store exposes the citation tree store for direct reads.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Languages returns the language tags the engine will scan.
func (e *Engine) Languages() []string {
	all := e.registry.Languages()
	if e.languages == nil {
		return all
	}
	var out []string
	for _, l := range all {
		if e.languages[l] {
			out = append(out, l)
		}
	}
	return out
}

func (e *Engine) languageAllowed(tag string) bool {
	return e.languages == nil || e.languages[tag]
}
