// Package spyglass is a multi-language code intelligence engine: it
// scans source files into per-language symbol trees, keeps them in a
// citation tree store, and answers editor queries over them: jump to
// definition, completion, and call tips.
//
// The pipeline is scan → store → resolve → answer. Scanning is
// per-file and deterministic; the store replaces trees atomically, so
// queries always see a complete tree; resolution walks scope chains and
// import citations lazily at query time.
//
// Basic use:
//
//	eng, err := spyglass.New()
//	if err != nil { ... }
//	defer eng.Close()
//
//	eng.ScanFile(ctx, "app.py", src)
//	loc, err := eng.JumpToDefinition(ctx, "app.py", spyglass.Position{Line: 11, Col: 15})
//
// The request server in internal/server exposes the same operations
// over a JSON line protocol with cancellation and single-flight scans.
package spyglass
