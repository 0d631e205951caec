package spyglass

import (
	"errors"
	"fmt"
	"time"

	"github.com/mgrier/spyglass/internal/lang"
	"github.com/mgrier/spyglass/internal/resolve"
)

// The engine reports every failure as an error value; it never panics
// on malformed input. Partial scan results carry tree.ScanFailure
// entries instead of failing the scan.
var (
	// ErrUnknownLanguage: no adapter is registered for the file's
	// language or extension.
	ErrUnknownLanguage = lang.ErrUnknownLanguage

	// ErrNotIndexed: a query referenced a file the store has no tree for.
	ErrNotIndexed = errors.New("file not indexed")

	// ErrUnresolved: a name or citation matched no declaration.
	ErrUnresolved = resolve.ErrUnresolved

	// ErrCancelled: the request's context was cancelled before the
	// answer was produced.
	ErrCancelled = errors.New("request cancelled")
)

// AmbiguousError reports a name that tied between several declarations;
// callers get the candidate list instead of an arbitrary winner.
type AmbiguousError = resolve.Ambiguous

// ScanTimeoutError reports a scan that exceeded the engine's scan
// timeout. The store keeps the previous tree for the key, if any.
type ScanTimeoutError struct {
	Key     string
	Timeout time.Duration
}

func (e *ScanTimeoutError) Error() string {
	return fmt.Sprintf("scan of %s timed out after %s", e.Key, e.Timeout)
}
