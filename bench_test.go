package spyglass

import (
	"context"
	"fmt"
	"testing"
)

// benchPySource is a realistic module with classes, methods, imports,
// and calls for exercising the scan and query pipeline.
const benchPySource = `import os
from collections import OrderedDict

GREETING = "hello"

class Registry:
    def __init__(self):
        self.entries = OrderedDict()

    def add(self, name, value):
        self.entries[name] = value

    def get(self, name, default=None):
        return self.entries.get(name, default)

class ScopedRegistry(Registry):
    def __init__(self, parent):
        Registry.__init__(self)
        self.parent = parent

    def get(self, name, default=None):
        found = Registry.get(self, name)
        if found is None and self.parent is not None:
            return self.parent.get(name, default)
        return found

def build(pairs):
    reg = Registry()
    for name, value in pairs:
        reg.add(name, value)
    return reg

def expand(path):
    return os.path.expanduser(path)
`

func benchEngine(b *testing.B) *Engine {
	b.Helper()
	e, err := New()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })
	return e
}

func BenchmarkScanFile(b *testing.B) {
	e := benchEngine(b)
	ctx := context.Background()
	src := []byte(benchPySource)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Distinct keys defeat the fingerprint skip.
		if _, err := e.ScanFile(ctx, fmt.Sprintf("bench%d.py", i), src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJumpToDefinition(b *testing.B) {
	e := benchEngine(b)
	ctx := context.Background()
	if _, err := e.ScanFile(ctx, "bench.py", []byte(benchPySource)); err != nil {
		b.Fatal(err)
	}

	// The Registry() call inside build.
	pos := Position{Line: 27, Col: 10}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.JumpToDefinition(ctx, "bench.py", pos); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComplete_Members(b *testing.B) {
	e := benchEngine(b)
	ctx := context.Background()
	if _, err := e.ScanFile(ctx, "bench.py", []byte(benchPySource)); err != nil {
		b.Fatal(err)
	}

	pos := Position{Line: 27, Col: 10}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq, err := e.Complete(ctx, "bench.py", pos, "Registry.", 0)
		if err != nil {
			b.Fatal(err)
		}
		for range seq {
		}
	}
}

func BenchmarkSymbolSearch(b *testing.B) {
	e := benchEngine(b)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if _, err := e.ScanFile(ctx, fmt.Sprintf("bench%d.py", i), []byte(benchPySource)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.SymbolSearch(ctx, "get", 0); err != nil {
			b.Fatal(err)
		}
	}
}
