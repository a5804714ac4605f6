// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package xref

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/lidx/pkg/graph"
)

const evidenceMaxBytes = 200

// FileSource is one file to mine for cross-references, handed in by the
// caller (the indexer orchestrator, after a reindex pass) rather than
// discovered by walking the filesystem — scanning is C3's job, not C3's
// file discovery.
type FileSource struct {
	RelPath  string
	Language string
	Content  []byte
}

// Mine runs the cross-reference and route-literal passes over files at gv
// and persists the resulting XREF/ROUTE edges, returning the count
// inserted. It mirrors the teacher's indexer-to-store write shape: build a
// global qualname->id map once, then batch inserts per file.
func Mine(ctx context.Context, store graph.Store, files []FileSource, gv int64, commitSHA string) (int, error) {
	symbolMap, refs, err := loadSymbolUniverse(ctx, store, gv)
	if err != nil {
		return 0, fmt.Errorf("load symbol universe: %w", err)
	}
	index := BuildIndex(refs)

	total := 0
	for _, f := range files {
		if f.Language == "markdown" {
			continue
		}
		file, err := store.GetFile(ctx, f.RelPath, gv)
		if err != nil {
			return total, fmt.Errorf("get file %s: %w", f.RelPath, err)
		}
		if file == nil {
			continue
		}

		edges, err := collectEdgesForFile(ctx, store, index, f, gv)
		if err != nil {
			return total, fmt.Errorf("collect edges %s: %w", f.RelPath, err)
		}
		if len(edges) == 0 {
			continue
		}
		n, err := store.InsertEdges(ctx, file.ID, f.RelPath, edges, symbolMap, gv, commitSHA)
		if err != nil {
			return total, fmt.Errorf("insert edges %s: %w", f.RelPath, err)
		}
		total += n
	}
	return total, nil
}

func loadSymbolUniverse(ctx context.Context, store graph.Store, gv int64) (map[string]int64, []SymbolRef, error) {
	files, err := store.ListFiles(ctx, gv)
	if err != nil {
		return nil, nil, err
	}
	symbolMap := make(map[string]int64)
	var refs []SymbolRef
	for _, f := range files {
		syms, err := store.GetSymbolsForFile(ctx, f.RelPath, gv)
		if err != nil {
			return nil, nil, err
		}
		for _, s := range syms {
			if s.Kind == graph.KindModule || s.Kind == graph.KindNamespace {
				continue
			}
			symbolMap[s.Qualname] = s.ID
			refs = append(refs, SymbolRef{Name: s.Name, Qualname: s.Qualname, Language: f.Language})
		}
	}
	return symbolMap, refs, nil
}

// lineQualnameCache memoizes enclosing-symbol lookups per line within one
// file scan, since a file's literals cluster onto relatively few lines.
type lineQualnameCache struct {
	ctx   context.Context
	store graph.Store
	path  string
	gv    int64
	cache map[int]string
}

func (c *lineQualnameCache) qualnameAt(line int) (string, bool) {
	if q, ok := c.cache[line]; ok {
		return q, q != ""
	}
	sym, err := c.store.EnclosingSymbolForLine(c.ctx, c.path, line, c.gv)
	if err != nil || sym == nil {
		c.cache[line] = ""
		return "", false
	}
	c.cache[line] = sym.Qualname
	return sym.Qualname, true
}

func collectEdgesForFile(ctx context.Context, store graph.Store, index *Index, f FileSource, gv int64) ([]graph.EdgeInput, error) {
	literals := scanStringLiterals(f.Content)
	if len(literals) == 0 {
		return nil, nil
	}
	cache := &lineQualnameCache{ctx: ctx, store: store, path: f.RelPath, gv: gv, cache: make(map[int]string)}

	xrefEdges := collectXrefEdges(index, f, literals, cache)
	routeEdges := collectRouteEdges(f, literals, cache)

	edges := make([]graph.EdgeInput, 0, len(xrefEdges)+len(routeEdges))
	edges = append(edges, xrefEdges...)
	edges = append(edges, routeEdges...)
	return edges, nil
}

func collectXrefEdges(index *Index, f FileSource, literals []StringLiteral, cache *lineQualnameCache) []graph.EdgeInput {
	type key struct{ src, dst string }
	byKey := make(map[key]graph.EdgeInput)

	for _, lit := range literals {
		sourceQualname, ok := cache.qualnameAt(lit.StartLine)
		if !ok {
			continue
		}
		snippet := evidenceSnippet(f.Content, lit)
		for _, token := range extractTokens(lit.Text) {
			match, ok := index.Resolve(token, f.Language)
			if !ok {
				continue
			}
			k := key{src: sourceQualname, dst: match.Symbol.Qualname}
			detail, _ := json.Marshal(map[string]any{
				"token":      token,
				"confidence": match.Confidence,
				"match":      match.MatchKind,
				"source":     "string_literal",
			})
			edge := graph.EdgeInput{
				Kind:           graph.EdgeXref,
				SourceQualname: sourceQualname,
				TargetQualname: match.Symbol.Qualname,
				Detail:         string(detail),
				Evidence:       snippet,
				EvidenceLine:   lit.StartLine,
				Confidence:     match.Confidence,
			}
			if existing, ok := byKey[k]; !ok || match.Confidence > existing.Confidence {
				byKey[k] = edge
			}
		}
	}

	out := make([]graph.EdgeInput, 0, len(byKey))
	for _, e := range byKey {
		out = append(out, e)
	}
	return out
}

func collectRouteEdges(f FileSource, literals []StringLiteral, cache *lineQualnameCache) []graph.EdgeInput {
	type key struct{ src, route string }
	seen := make(map[key]bool)
	var out []graph.EdgeInput

	for _, lit := range literals {
		route, ok := normalizeRouteLiteral(lit.Text)
		if !ok {
			continue
		}
		sourceQualname, ok := cache.qualnameAt(lit.StartLine)
		if !ok {
			continue
		}
		k := key{src: sourceQualname, route: route}
		if seen[k] {
			continue
		}
		seen[k] = true

		snippet := evidenceSnippet(f.Content, lit)
		raw := truncateBytes(trimSpaceBytes(lit.Text), evidenceMaxBytes)
		detail, _ := json.Marshal(map[string]any{
			"route":    route,
			"raw":      raw,
			"source":   "string_literal",
			"language": f.Language,
		})
		out = append(out, graph.EdgeInput{
			Kind:           graph.EdgeRoute,
			SourceQualname: sourceQualname,
			TargetQualname: route,
			Detail:         string(detail),
			Evidence:       snippet,
			EvidenceLine:   lit.StartLine,
			Confidence:     RouteMinConfidence,
		})
	}
	return out
}

func evidenceSnippet(source []byte, lit StringLiteral) string {
	start, end := lit.StartByte, lit.EndByte
	if start < 0 {
		start = 0
	}
	if end > len(source) {
		end = len(source)
	}
	if start >= end {
		return ""
	}
	return truncateBytes(string(source[start:end]), evidenceMaxBytes)
}

func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func trimSpaceBytes(s string) string {
	i, j := 0, len(s)
	for i < j && isSpaceByte(s[i]) {
		i++
	}
	for j > i && isSpaceByte(s[j-1]) {
		j--
	}
	return s[i:j]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
