package tree

import "fmt"

// Validate checks the structural invariants every adapter must uphold:
// each blob's span is contained within its parent's span, and sibling
// spans never overlap. Adapters run this before a tree is published.
func (t *SymbolTree) Validate() error {
	if err := validateSiblings(t.Key, t.Blobs); err != nil {
		return err
	}
	for _, b := range t.Blobs {
		if err := validateBlob(t.Key, b); err != nil {
			return err
		}
	}
	return nil
}

func validateBlob(key string, b *Blob) error {
	for _, c := range b.Children {
		if !b.Span.Contains(c.Span) {
			return fmt.Errorf("tree %s: blob %q span %v escapes parent %q span %v",
				key, c.Name, c.Span, b.Name, b.Span)
		}
	}
	if err := validateSiblings(key, b.Children); err != nil {
		return err
	}
	for _, c := range b.Children {
		if err := validateBlob(key, c); err != nil {
			return err
		}
	}
	return nil
}

func validateSiblings(key string, blobs []*Blob) error {
	for i := 0; i < len(blobs); i++ {
		for j := i + 1; j < len(blobs); j++ {
			if blobs[i].Span.Overlaps(blobs[j].Span) {
				return fmt.Errorf("tree %s: sibling blobs %q and %q overlap",
					key, blobs[i].Name, blobs[j].Name)
			}
		}
	}
	return nil
}
