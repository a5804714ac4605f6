// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package analytics implements the graph analytics surface (C7, spec §4.7):
// neighbours/subgraph, references, find-tests-for, analyze-impact,
// analyze-diff and trace-flow. Every operation composes the primitives on
// graph.Store rather than growing the store's interface — the same
// narrow-interface choice recorded for C4 in DESIGN.md, mirroring the
// teacher's split between pkg/storage's thin Backend and pkg/tools' richer
// query helpers built on top of it.
package analytics

import (
	"context"
	"strings"

	"github.com/kraklabs/lidx/pkg/graph"
)

// NextHop is a suggested follow-up RPC call, attached to most analytic
// results so a caller can keep exploring without re-deriving parameters.
type NextHop struct {
	Method string
	Params map[string]any
}

// resolveSeed looks up qualname by exact match first, falling back to the
// store's case-insensitive fuzzy lookup. Returns (nil, nil) on a clean miss.
func resolveSeed(ctx context.Context, store graph.Store, qualname string, langs []string, gv int64) (*graph.Symbol, error) {
	sym, err := store.GetSymbolByQualname(ctx, qualname, gv)
	if err != nil {
		return nil, err
	}
	if sym != nil {
		return sym, nil
	}
	id, ok, err := store.LookupSymbolIDFuzzy(ctx, qualname, langs, gv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return store.GetSymbolByID(ctx, id)
}

func kindIn(k graph.EdgeKind, kinds []graph.EdgeKind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

func edgeKindAllowed(k graph.EdgeKind, include, exclude []graph.EdgeKind) bool {
	if len(include) > 0 && !kindIn(k, include) {
		return false
	}
	return !kindIn(k, exclude)
}

// confidenceOrDefault applies the EdgeInput convention that a zero
// confidence means "use the default of 1.0" (graph.EdgeInput.Confidence doc).
func confidenceOrDefault(c float64) float64 {
	if c == 0 {
		return 1.0
	}
	return c
}

// containsChildren returns id's direct CONTAINS children — used both by
// References to expand a container seed and by TraceFlow to trace from a
// container's methods rather than the container symbol itself.
func containsChildren(ctx context.Context, store graph.Store, id int64, langs []string, gv int64) ([]graph.Symbol, error) {
	edges, err := store.EdgesForSymbol(ctx, id, langs, gv)
	if err != nil {
		return nil, err
	}
	var out []graph.Symbol
	for _, e := range edges {
		if e.Kind != graph.EdgeContains {
			continue
		}
		if e.SourceSymbolID == nil || *e.SourceSymbolID != id || e.TargetSymbolID == nil {
			continue
		}
		sym, err := store.GetSymbolByID(ctx, *e.TargetSymbolID)
		if err != nil {
			return nil, err
		}
		if sym != nil {
			out = append(out, *sym)
		}
	}
	return out, nil
}

// isTestLike is the find-tests-for heuristic (spec §4.7): file path contains
// "test" or "spec", or the symbol name begins with "test_"/"Test".
func isTestLike(sym graph.Symbol) bool {
	path := strings.ToLower(sym.FilePath)
	if strings.Contains(path, "test") || strings.Contains(path, "spec") {
		return true
	}
	return strings.HasPrefix(sym.Name, "test_") || strings.HasPrefix(sym.Name, "Test")
}

// callerInfo is one caller found for a callee, tagged with whether the edge
// that produced it had a resolved source_symbol_id or was found only via
// qualname-pattern fallback (which the relevance/confidence formulas
// penalise relative to a resolved hit).
type callerInfo struct {
	Symbol   graph.Symbol
	Resolved bool
}

// callersOf returns every CALLS-edge caller of id: first the edges with a
// resolved source_symbol_id, then (for sources the resolved pass didn't
// already find) edges matched only by target_qualname pattern.
func callersOf(ctx context.Context, store graph.Store, id int64, langs []string, gv int64) ([]callerInfo, error) {
	sym, err := store.GetSymbolByID(ctx, id)
	if err != nil || sym == nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var out []callerInfo

	edges, err := store.EdgesForSymbol(ctx, id, langs, gv)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if e.Kind != graph.EdgeCalls {
			continue
		}
		if e.TargetSymbolID == nil || *e.TargetSymbolID != id || e.SourceSymbolID == nil {
			continue
		}
		csym, err := store.GetSymbolByID(ctx, *e.SourceSymbolID)
		if err != nil {
			return nil, err
		}
		if csym == nil || seen[csym.ID] {
			continue
		}
		seen[csym.ID] = true
		out = append(out, callerInfo{Symbol: *csym, Resolved: true})
	}

	unresolved, err := store.IncomingEdgesByQualnamePattern(ctx, sym.Qualname, []graph.EdgeKind{graph.EdgeCalls}, langs, gv)
	if err != nil {
		return nil, err
	}
	for _, e := range unresolved {
		if e.SourceSymbolID == nil {
			continue
		}
		csym, err := store.GetSymbolByID(ctx, *e.SourceSymbolID)
		if err != nil {
			return nil, err
		}
		if csym == nil || seen[csym.ID] {
			continue
		}
		seen[csym.ID] = true
		out = append(out, callerInfo{Symbol: *csym, Resolved: false})
	}
	return out, nil
}

// fileLanguage derives a language tag from a path's extension — used only
// for the "cross-language" flags in trace-flow and analyze-diff's risk
// scoring, where the caller/callee symbols may come from files whose
// language wasn't carried on the Symbol itself.
func fileLanguage(path string) string {
	switch {
	case strings.HasSuffix(path, ".go"):
		return "go"
	case strings.HasSuffix(path, ".py"):
		return "python"
	case strings.HasSuffix(path, ".tsx"), strings.HasSuffix(path, ".ts"):
		return "typescript"
	case strings.HasSuffix(path, ".jsx"), strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".mjs"), strings.HasSuffix(path, ".cjs"):
		return "javascript"
	case strings.HasSuffix(path, ".rs"):
		return "rust"
	case strings.HasSuffix(path, ".cs"):
		return "csharp"
	case strings.HasSuffix(path, ".lua"):
		return "lua"
	case strings.HasSuffix(path, ".bicep"):
		return "bicep"
	default:
		return ""
	}
}
