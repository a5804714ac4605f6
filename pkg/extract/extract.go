// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package extract implements the per-language extraction pipeline (C2): one
// LangExtractor per source language, emitting a uniform
// graph.ExtractedFile{symbols, edges}. The Go, TypeScript and JavaScript
// extractors walk a tree-sitter AST; Python, Rust, C#, Lua and Bicep use
// hand-written line scanners.
//
// The dispatch shape follows the teacher's CodeParser/ParserMode pattern in
// pkg/ingestion/parser_interface.go: a small interface plus a tagged
// dispatch table keyed by language, exactly the "tagged variant with a
// small dispatch table" the spec's design notes call for — no virtual
// inheritance required.
package extract

import "github.com/kraklabs/lidx/pkg/graph"

// LangExtractor is the shared per-language contract (spec §4.2).
type LangExtractor interface {
	// Language returns the canonical language tag (e.g. "go", "python").
	Language() string

	// ModuleQualnameFromRelPath derives the module qualname root from a
	// repo-relative path, per spec §6's qualname syntax.
	ModuleQualnameFromRelPath(relPath string) string

	// Extract walks sourceText and returns its symbols and edges. The first
	// symbol is always the synthetic module symbol spanning the whole file.
	// On parse failure, Extract still returns an ExtractedFile containing
	// only that module symbol and no edges (spec §7's parser-failure rule).
	Extract(sourceText []byte, relPath, moduleQualname string) (graph.ExtractedFile, error)

	// ResolveImports converts relative import specifiers already recorded
	// as IMPORTS edges into IMPORTS_FILE edges targeting the destination
	// file's qualname (spec §4.2.2). listFiles enumerates every indexed
	// repo-relative path so extension-candidate resolution can probe them.
	ResolveImports(repoRoot, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput
}

// Registry is the dispatch table from language tag to extractor.
type Registry struct {
	byLang map[string]LangExtractor
}

// NewRegistry builds the registry with every extractor this repo ships.
func NewRegistry() *Registry {
	r := &Registry{byLang: make(map[string]LangExtractor)}
	for _, ex := range []LangExtractor{
		NewGoExtractor(),
		NewPythonExtractor(),
		NewTypeScriptExtractor(),
		NewJavaScriptExtractor(),
		NewRustExtractor(),
		NewCSharpExtractor(),
		NewLuaExtractor(),
		NewBicepExtractor(),
	} {
		r.byLang[ex.Language()] = ex
	}
	return r
}

// For returns the extractor registered for lang, or nil if the language is
// unsupported — an input error at the RPC/indexer boundary, not a panic.
func (r *Registry) For(lang string) LangExtractor {
	return r.byLang[lang]
}

// Languages lists every registered language tag.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.byLang))
	for l := range r.byLang {
		out = append(out, l)
	}
	return out
}
