// Package lang implements the language adapter contract: turning raw
// source text of one language into a normalized symbol tree. Adapters
// are pure (the same text, tag, and scan context always produce a
// structurally identical tree) and never fail a whole scan on
// malformed input: unparsed regions are reported as ScanFailures on a
// best-effort partial tree.
package lang

import (
	"context"
	"errors"

	"github.com/mgrier/spyglass/internal/tree"
)

// ErrUnknownLanguage is returned when no adapter is registered for a
// language tag. Unknown tags fail closed instead of guessing.
var ErrUnknownLanguage = errors.New("unknown language")

// Region marks an embedded-language section inside a composite source,
// addressed by byte offsets into the outer text.
type Region struct {
	Language string
	Start    uint32
	End      uint32
}

// ScanContext carries per-scan configuration. Adapters must treat it as
// part of their input: same text + same context → same tree.
type ScanContext struct {
	// ModuleName names the module blob when the language has no
	// in-source module declaration (e.g. Python files).
	ModuleName string
	// IndentSensitive flags indentation-scoped languages; adapters for
	// such languages may use it to tune error recovery.
	IndentSensitive bool
	// Regions lists embedded-language sections for composite sources
	// (templating languages). Consumed by the template adapter.
	Regions []Region
}

// Adapter converts source text of one language into a SymbolTree.
// Implementations are stateless per call and safe for concurrent use.
type Adapter interface {
	// Language returns the canonical language tag this adapter handles.
	Language() string
	// Extensions returns the file extensions mapped to this adapter.
	Extensions() []string
	// Scan parses src and returns a symbol tree. Malformed regions are
	// recorded as tree.ScanFailures; an error is returned only when no
	// tree could be produced at all (or ctx was cancelled).
	Scan(ctx context.Context, src []byte, sc ScanContext) (*tree.SymbolTree, error)
}
