package spyglass

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mgrier/spyglass/internal/lang"
	"github.com/mgrier/spyglass/internal/tree"
)

// ScanFile scans source text under its file key, picking the adapter by
// extension. Unchanged text (same fingerprint as the stored tree) skips
// the scan and returns the stored tree.
func (e *Engine) ScanFile(ctx context.Context, key string, src []byte) (*tree.SymbolTree, error) {
	language, ok := e.registry.LanguageForFile(key)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrUnknownLanguage)
	}
	return e.ScanSource(ctx, key, language, src)
}

// ScanSource scans source text with an explicit language tag and stores
// the resulting tree. A scan failure region never fails the scan; the
// partial tree is stored with its failures attached.
func (e *Engine) ScanSource(ctx context.Context, key, language string, src []byte) (*tree.SymbolTree, error) {
	return e.scan(ctx, key, language, src, lang.ScanContext{
		ModuleName:      moduleName(key),
		IndentSensitive: language == "python",
	})
}

// ScanTemplate scans a composite source whose embedded-language regions
// are known to the caller.
func (e *Engine) ScanTemplate(ctx context.Context, key string, src []byte, regions []lang.Region) (*tree.SymbolTree, error) {
	return e.scan(ctx, key, "template", src, lang.ScanContext{
		ModuleName: moduleName(key),
		Regions:    regions,
	})
}

func (e *Engine) scan(ctx context.Context, key, language string, src []byte, sc lang.ScanContext) (*tree.SymbolTree, error) {
	fp := tree.Fingerprint(src)
	if prev, ok := e.store.Get(key); ok && prev.Fingerprint == fp && prev.Language == language {
		return prev, nil
	}

	t, err := e.scanTree(ctx, key, language, src, sc)
	if err != nil {
		return nil, err
	}

	e.store.Put(t)
	if e.cache != nil {
		if err := e.cache.Save(t, false); err != nil {
			e.logger.Printf("cache save %s: %v", key, err)
		}
	}
	if len(t.Failures) > 0 {
		e.logger.Printf("scanned %s with %d failure regions", key, len(t.Failures))
	}
	return t, nil
}

// scanTree runs one adapter scan without touching the store, applying
// the language filter, scan timeout, and validation.
func (e *Engine) scanTree(ctx context.Context, key, language string, src []byte, sc lang.ScanContext) (*tree.SymbolTree, error) {
	if !e.languageAllowed(language) {
		return nil, fmt.Errorf("%s: language %q disabled: %w", key, language, ErrUnknownLanguage)
	}
	adapter, ok := e.registry.ForLanguage(language)
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", key, language, ErrUnknownLanguage)
	}

	scanCtx := ctx
	if e.scanTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, e.scanTimeout)
		defer cancel()
	}

	t, err := adapter.Scan(scanCtx, src, sc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &ScanTimeoutError{Key: key, Timeout: e.scanTimeout}
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", key, ErrCancelled)
		}
		return nil, fmt.Errorf("scan %s: %w", key, err)
	}

	t.Key = key
	t.Fingerprint = tree.Fingerprint(src)
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", key, err)
	}
	return t, nil
}

// Remove drops the tree for a key from the store and cache.
func (e *Engine) Remove(key string) {
	e.store.Delete(key)
	if e.cache != nil {
		if err := e.cache.Evict(key); err != nil {
			e.logger.Printf("cache evict %s: %v", key, err)
		}
	}
}

// IndexDir walks a directory tree and scans every file with a
// registered extension, honoring .gitignore at the root. Scans run on
// the engine's worker pool; the first hard error aborts the walk.
// Returns the number of files scanned.
func (e *Engine) IndexDir(ctx context.Context, dir string) (int, error) {
	files, err := e.collectFiles(dir)
	if err != nil {
		return 0, err
	}

	sem := semaphore.NewWeighted(int64(e.workers))
	g, gctx := errgroup.WithContext(ctx)
	var scanned atomic.Int64

	for _, path := range files {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if _, err := e.ScanFile(gctx, path, src); err != nil {
				return err
			}
			scanned.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(scanned.Load()), err
	}
	return int(scanned.Load()), nil
}

// collectFiles walks dir and returns every scannable file, honoring
// .gitignore at the root and skipping .git.
func (e *Engine) collectFiles(dir string) ([]string, error) {
	var ignorer *gitignore.GitIgnore
	if gi, err := gitignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore")); err == nil {
		ignorer = gi
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if d.Name() == ".git" || (ignorer != nil && rel != "." && ignorer.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignorer != nil && ignorer.MatchesPath(rel) {
			return nil
		}
		if lng, ok := e.registry.LanguageForFile(path); ok && e.languageAllowed(lng) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

// BuildCatalog scans a directory into a read-only catalog. Each file
// becomes one catalog unit keyed "catalog:<name>/<relative path>",
// consulted after workspace trees and persisted when a cache is open.
// Returns the number of units built.
func (e *Engine) BuildCatalog(ctx context.Context, name, dir string) (int, error) {
	files, err := e.collectFiles(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return count, fmt.Errorf("read %s: %w", path, err)
		}
		language, _ := e.registry.LanguageForFile(path)
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return count, err
		}
		key := "catalog:" + name + "/" + filepath.ToSlash(rel)
		t, err := e.scanTree(ctx, key, language, src, lang.ScanContext{
			ModuleName:      moduleName(path),
			IndentSensitive: language == "python",
		})
		if err != nil {
			return count, err
		}
		if err := e.AddCatalog(t); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// moduleName derives the module blob name from a file key: the base
// name without extension.
func moduleName(key string) string {
	base := filepath.Base(key)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
