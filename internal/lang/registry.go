package lang

import (
	"path/filepath"
	"sort"
	"strings"
)

// Registry maps language tags and file extensions to adapters.
type Registry struct {
	adapters  map[string]Adapter
	extToLang map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters:  make(map[string]Adapter),
		extToLang: make(map[string]string),
	}
}

// NewDefaultRegistry creates a registry with all built-in adapters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoAdapter())
	r.Register(NewPythonAdapter())
	r.Register(NewJavaScriptAdapter())
	r.Register(NewTemplateAdapter(r))
	return r
}

// Register adds an adapter, replacing any prior adapter for the same tag.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Language()] = a
	for _, ext := range a.Extensions() {
		r.extToLang[strings.ToLower(ext)] = a.Language()
	}
}

// ForLanguage returns the adapter for a language tag.
func (r *Registry) ForLanguage(tag string) (Adapter, bool) {
	a, ok := r.adapters[tag]
	return a, ok
}

// ForFile returns the adapter for a file path based on its extension.
func (r *Registry) ForFile(path string) (Adapter, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	tag, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	return r.ForLanguage(tag)
}

// LanguageForFile returns the language tag for a file path.
func (r *Registry) LanguageForFile(path string) (string, bool) {
	tag, ok := r.extToLang[strings.ToLower(filepath.Ext(path))]
	return tag, ok
}

// Languages returns all registered language tags, sorted.
func (r *Registry) Languages() []string {
	tags := make([]string, 0, len(r.adapters))
	for tag := range r.adapters {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
