// Package tree defines the symbol tree produced by language adapters and
// stored in the citation tree store: one SymbolTree per scanned file or
// catalog unit, made of nested Blobs (named scopes) carrying Symbols
// (declarations) and Citations (references to symbols elsewhere).
package tree

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind classifies a Blob or Symbol.
type Kind string

const (
	KindModule    Kind = "module"
	KindClass     Kind = "class"
	KindFunction  Kind = "function"
	KindVariable  Kind = "variable"
	KindInterface Kind = "interface"
	KindNamespace Kind = "namespace"
)

// Span is a half-open source range. Byte offsets address the raw source;
// line and column are zero-based and exist for editor positions.
type Span struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return s.StartByte <= other.StartByte && other.EndByte <= s.EndByte
}

// ContainsPoint reports whether the given zero-based position falls
// within s (inclusive of the end position, matching editor cursors).
func (s Span) ContainsPoint(line, col int) bool {
	if line < s.StartLine || line > s.EndLine {
		return false
	}
	if line == s.StartLine && col < s.StartCol {
		return false
	}
	if line == s.EndLine && col > s.EndCol {
		return false
	}
	return true
}

// Overlaps reports whether s and other share any bytes.
func (s Span) Overlaps(other Span) bool {
	return s.StartByte < other.EndByte && other.StartByte < s.EndByte
}

// Param is one entry of a callable signature.
type Param struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	HasDefault bool   `json:"has_default,omitempty"`
	Default    string `json:"default,omitempty"`
}

// Signature describes a callable Blob: ordered parameters plus an
// optional return annotation.
type Signature struct {
	Params  []Param `json:"params"`
	Returns string  `json:"returns,omitempty"`
}

// String renders the signature as "((a, b: int, c=1) -> ret" style text
// suitable for a call tip, prefixed with the given callable name.
func (sig Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Type != "" {
			b.WriteString(": ")
			b.WriteString(p.Type)
		}
		if p.HasDefault {
			b.WriteByte('=')
			if p.Default != "" {
				b.WriteString(p.Default)
			}
		}
	}
	b.WriteByte(')')
	if sig.Returns != "" {
		b.WriteString(" -> ")
		b.WriteString(sig.Returns)
	}
	return b.String()
}

// Symbol is a named declaration point inside a Blob.
type Symbol struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Span Span   `json:"span"`
	// TypeRef is a qualified symbol path naming this symbol's type,
	// resolved lazily by the resolver. Empty when unknown.
	TypeRef string `json:"type_ref,omitempty"`
	// IsDecl distinguishes a declaration from a use recorded as a symbol.
	IsDecl bool `json:"is_decl"`
}

// CitationKind classifies how a citation references its target.
type CitationKind string

const (
	CiteImport  CitationKind = "import"
	CiteMember  CitationKind = "member"
	CiteCall    CitationKind = "call"
	CiteInherit CitationKind = "inherit"
	CiteUse     CitationKind = "use"
)

// CitationStatus tracks resolution progress. Citations start unresolved
// and stay in the tree either way; callers can always ask what failed.
type CitationStatus string

const (
	CiteUnresolved CitationStatus = "unresolved"
	CiteResolved   CitationStatus = "resolved"
	CiteAmbiguous  CitationStatus = "ambiguous"
)

// Citation is a reference from a source span to a symbol elsewhere:
// an import statement, member access, call expression, or inheritance
// clause. Path is the qualified name chain being referenced.
type Citation struct {
	Span   Span           `json:"span"`
	Path   []string       `json:"path"`
	Kind   CitationKind   `json:"kind"`
	Status CitationStatus `json:"status"`
	// Alias is the local name an import binds when it is not the path
	// head: an explicit rename, or the member name bound by a
	// from-style import. Wildcard marks namespace/star imports, which
	// lose to direct named imports on a name collision.
	Alias    string `json:"alias,omitempty"`
	Wildcard bool   `json:"wildcard,omitempty"`
}

// Target returns the last element of the citation's path, or "".
func (c *Citation) Target() string {
	if len(c.Path) == 0 {
		return ""
	}
	return c.Path[len(c.Path)-1]
}

// LocalName returns the name the citation binds in its scope: the alias
// if present, otherwise the path head.
func (c *Citation) LocalName() string {
	if c.Alias != "" {
		return c.Alias
	}
	if len(c.Path) == 0 {
		return ""
	}
	return c.Path[0]
}

// Blob is a named lexical scope: a module, class, function, or anonymous
// block. Children are ordered by declaration; Symbols are the names
// declared directly in this scope; Citations are the references made
// from it.
type Blob struct {
	Name      string     `json:"name"`
	Kind      Kind       `json:"kind"`
	Span      Span       `json:"span"`
	Children  []*Blob    `json:"children,omitempty"`
	Symbols   []Symbol   `json:"symbols,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Signature *Signature `json:"signature,omitempty"`
	TypeRef   string     `json:"type_ref,omitempty"`
	Doc       string     `json:"doc,omitempty"`
}

// Child returns the first direct child blob with the given name, or nil.
func (b *Blob) Child(name string) *Blob {
	for _, c := range b.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ScanFailure describes a region an adapter could not parse. The rest of
// the tree is still valid; failures travel with the tree instead of
// aborting the scan.
type ScanFailure struct {
	Span   Span   `json:"span"`
	Reason string `json:"reason"`
}

// SymbolTree is the root for one scanned file or one catalog unit.
type SymbolTree struct {
	// Key is the source identity: a file path or a catalog unit name.
	Key      string `json:"key"`
	Language string `json:"language"`
	// Fingerprint is an xxhash of the source text, used to detect
	// staleness: identical text always produces an identical tree.
	Fingerprint uint64        `json:"fingerprint"`
	Blobs       []*Blob       `json:"blobs,omitempty"`
	Failures    []ScanFailure `json:"failures,omitempty"`
}

// Fingerprint hashes source text for staleness checks.
func Fingerprint(src []byte) uint64 {
	return xxhash.Sum64(src)
}

// Root returns the first top-level blob, usually the module blob, or nil
// for an empty tree.
func (t *SymbolTree) Root() *Blob {
	if len(t.Blobs) == 0 {
		return nil
	}
	return t.Blobs[0]
}

// BlobChain returns the blobs containing the given position, ordered
// innermost first. An empty result means the position is outside every
// top-level blob.
func (t *SymbolTree) BlobChain(line, col int) []*Blob {
	var chain []*Blob
	for _, b := range t.Blobs {
		if b.Span.ContainsPoint(line, col) {
			descend(b, line, col, &chain)
			break
		}
	}
	// Reverse to innermost-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func descend(b *Blob, line, col int, chain *[]*Blob) {
	*chain = append(*chain, b)
	for _, c := range b.Children {
		if c.Span.ContainsPoint(line, col) {
			descend(c, line, col, chain)
			return
		}
	}
}

// CitationAt returns the innermost citation whose span contains the
// position, searching the whole tree. Returns nil if none.
func (t *SymbolTree) CitationAt(line, col int) *Citation {
	var found *Citation
	t.Walk(func(b *Blob) bool {
		for i := range b.Citations {
			c := &b.Citations[i]
			if !c.Span.ContainsPoint(line, col) {
				continue
			}
			if found == nil || found.Span.Contains(c.Span) {
				found = c
			}
		}
		return true
	})
	return found
}

// SymbolAt returns the declaration symbol at the position along with its
// owning blob, or (nil, nil). A position on a blob's own name span also
// counts as being on its declaration.
func (t *SymbolTree) SymbolAt(line, col int) (*Symbol, *Blob) {
	var sym *Symbol
	var owner *Blob
	t.Walk(func(b *Blob) bool {
		for i := range b.Symbols {
			s := &b.Symbols[i]
			if s.IsDecl && s.Span.ContainsPoint(line, col) {
				sym, owner = s, b
			}
		}
		return true
	})
	return sym, owner
}

// Walk visits every blob depth-first in declaration order. Returning
// false from fn stops the walk.
func (t *SymbolTree) Walk(fn func(*Blob) bool) {
	var walk func(*Blob) bool
	walk = func(b *Blob) bool {
		if !fn(b) {
			return false
		}
		for _, c := range b.Children {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	for _, b := range t.Blobs {
		if !walk(b) {
			return
		}
	}
}

// UnresolvedCitations collects every citation still marked unresolved,
// in tree order.
func (t *SymbolTree) UnresolvedCitations() []*Citation {
	var out []*Citation
	t.Walk(func(b *Blob) bool {
		for i := range b.Citations {
			if b.Citations[i].Status == CiteUnresolved {
				out = append(out, &b.Citations[i])
			}
		}
		return true
	})
	return out
}

// JoinPath renders a qualified name chain as a dotted path.
func JoinPath(parts []string) string {
	return strings.Join(parts, ".")
}

// SplitPath parses a dotted path into its name chain.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
