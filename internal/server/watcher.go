package server

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-scans files as they change on disk. Change bursts (editors
// write, chmod, and rename in quick succession) coalesce within the
// debounce window so each file scans once per burst.
type Watcher struct {
	server   *Server
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher over the given directories. A zero
// debounce disables coalescing.
func NewWatcher(s *Server, dirs []string, debounce time.Duration) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return &Watcher{
		server:   s,
		fs:       fs,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run consumes filesystem events until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.server.logger.Printf("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.cancelPending(event.Name)
		w.server.engine.Remove(event.Name)
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		w.schedule(ctx, event.Name)
	}
}

// schedule arms (or re-arms) the debounce timer for a path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if w.debounce <= 0 {
		w.rescan(ctx, path)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.rescan(ctx, path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) rescan(ctx context.Context, path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		// The file may be gone again by the time the timer fires.
		return
	}
	flight := w.server.beginScan(ctx, path, "watch:"+path)
	resp := w.server.runScan(Request{ID: flight.id, Type: TypeScan, File: path, Source: string(src)}, flight)
	// Files with unregistered extensions churn in any workspace; stay quiet.
	if resp.Status == StatusError && resp.Error.Code != CodeUnknownLanguage {
		w.server.logger.Printf("rescan %s: %s", path, resp.Error.Message)
	}
}
