// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package gathercontext assembles bounded, deterministic bundles of source text
// around a set of seeds (C8, spec §4.8): a symbol qualname, a file region,
// or a search query. It composes C4 (graph.Store) for symbol/edge lookups
// and C9 (pkg/search) for search-seed resolution, and never walks the
// filesystem itself — callers supply a FileReader bound to whatever file
// set the indexer already knows about.
//
// Grounded on original_source/src/gather_context.rs (GatherConfig defaults,
// the DeduplicationTracker/ResolvedSeed shapes, and the Tier 0/1/2 rendering
// rules for the symbol strategy) and the teacher's pkg/tools/summary.go
// idiom of walking the graph store to render a bounded text bundle.
package gathercontext

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kraklabs/lidx/pkg/graph"
	"github.com/kraklabs/lidx/pkg/search"
)

// SeedKind discriminates the three seed shapes spec §4.8 accepts.
type SeedKind string

const (
	SeedSymbol SeedKind = "symbol"
	SeedFile   SeedKind = "file"
	SeedSearch SeedKind = "search"
)

// Seed is one of the request's input seeds.
type Seed struct {
	Kind SeedKind

	Qualname string // SeedSymbol

	Path      string // SeedFile
	StartLine int    // SeedFile, 1-indexed inclusive; 0 means whole file
	EndLine   int    // SeedFile

	Query string // SeedSearch
}

// Strategy selects how related content is rendered around a resolved seed.
type Strategy string

const (
	StrategySymbol Strategy = "symbol"
	StrategyFile   Strategy = "file"
)

const (
	defaultByteBudget  = 16384
	defaultDepth       = 2
	defaultMaxNodes    = 30
	fileHeaderLines    = 10
	fileHeaderMaxBytes = 500
	tier1BudgetFrac    = 0.30
	fileSecondaryFrac  = 0.60
)

// relatedEdgeKinds bounds the subgraph expansion both strategies draw on.
var relatedEdgeKinds = []graph.EdgeKind{
	graph.EdgeCalls, graph.EdgeContains, graph.EdgeImplements,
	graph.EdgeExtends, graph.EdgeImports, graph.EdgeRPCImpl,
}

// FileReader returns a file's full text, keyed by repo-relative path. The
// package never resolves paths itself beyond containment checking against
// RepoRoot.
type FileReader func(path string) (string, error)

// Request parameterises one gather_context call.
type Request struct {
	Seeds      []Seed
	ByteBudget int
	Depth      int
	MaxNodes   int
	Strategy   Strategy
	DryRun     bool
	RepoRoot   string // used only to reject file seeds that escape it
	Langs      []string
	GV         int64
}

// sourceRank orders item provenance for the final deterministic sort —
// direct seeds first, then subgraph expansion, then search hits.
type sourceRank int

const (
	SourceDirectSeed sourceRank = iota
	SourceSubgraph
	SourceSearch
)

func (r sourceRank) String() string {
	switch r {
	case SourceDirectSeed:
		return "direct_seed"
	case SourceSubgraph:
		return "subgraph"
	case SourceSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Item is one rendered content block.
type Item struct {
	Source         sourceRank
	SeedIndex      int
	Path           string
	StartLine      int
	EndLine        int
	StartByte      int
	EndByte        int
	Content        string
	Symbol         *graph.Symbol
	MatchLine      int
	Tier           int // 0/1/2 for the symbol strategy; unused for file
	EstimatedBytes int
}

// Totals summarises budget usage across the whole assembled result.
type Totals struct {
	TotalBytes  int
	BudgetBytes int
	Truncated   bool
	Metadata    map[string]any
}

type Result struct {
	Items  []Item
	Totals Totals
}

// Assembler ties a graph.Store, a search.Engine, and a FileReader together.
type Assembler struct {
	store    graph.Store
	searcher *search.Engine
	readFile FileReader
}

func NewAssembler(store graph.Store, searcher *search.Engine, readFile FileReader) *Assembler {
	return &Assembler{store: store, searcher: searcher, readFile: readFile}
}

// ReadSnippet reads a symbol's exact byte range via the assembler's
// FileReader, falling back to its line range if the byte offsets don't
// slice cleanly, and truncating to maxBytes if positive. Exported so
// pkg/rpc's open_symbol/explain_symbol handlers can reuse the same
// file-reading dependency without touching the filesystem themselves.
func (a *Assembler) ReadSnippet(sym graph.Symbol, maxBytes int) (string, error) {
	if a.readFile == nil {
		return "", nil
	}
	text, err := a.readFile(sym.FilePath)
	if err != nil {
		return "", err
	}
	snippet := sliceBytesSafe(text, sym.StartByte, sym.EndByte)
	if snippet == "" && sym.EndLine >= sym.StartLine {
		_, _, startLine, endLine := lineRangeToBytes(text, sym.StartLine, sym.EndLine)
		snippet = sliceLines(text, startLine, endLine)
	}
	if maxBytes > 0 && len(snippet) > maxBytes {
		snippet = snippet[:maxBytes]
	}
	return snippet, nil
}

// ReadFileRange reads path's text and slices it to the given 1-based
// inclusive line range (0 means whole file), UTF-8-safely via
// lineRangeToBytes.
func (a *Assembler) ReadFileRange(path string, startLine, endLine int) (string, error) {
	if a.readFile == nil {
		return "", nil
	}
	text, err := a.readFile(path)
	if err != nil {
		return "", err
	}
	startByte, endByte, _, _ := lineRangeToBytes(text, startLine, endLine)
	if startByte < 0 || endByte > len(text) || startByte > endByte {
		return text, nil
	}
	return text[startByte:endByte], nil
}

// sliceBytesSafe returns text[start:end] guarded against an out-of-range or
// UTF-8-unsafe slice, returning "" rather than panicking.
func sliceBytesSafe(text string, start, end int) string {
	if start < 0 || end > len(text) || start > end {
		return ""
	}
	// An offset on a UTF-8 continuation byte would split a character.
	if (start < len(text) && text[start]&0xC0 == 0x80) || (end < len(text) && text[end]&0xC0 == 0x80) {
		return ""
	}
	return text[start:end]
}

// sliceLines returns the 1-based inclusive [startLine, endLine] span of
// text.
func sliceLines(text string, startLine, endLine int) string {
	sb, eb, _, _ := lineRangeToBytes(text, startLine, endLine)
	return sliceBytesSafe(text, sb, eb)
}

// dedup tracks (path, [start,end)) ranges already emitted, skipping a new
// range that is fully contained in one already present — the teacher's
// DeduplicationTracker equivalent from gather_context.rs.
type dedup struct {
	byPath map[string][][2]int
}

func newDedup() *dedup { return &dedup{byPath: make(map[string][][2]int)} }

func (d *dedup) seen(path string, start, end int) bool {
	for _, r := range d.byPath[path] {
		if start >= r[0] && end <= r[1] {
			return true
		}
	}
	return false
}

func (d *dedup) add(path string, start, end int) {
	d.byPath[path] = append(d.byPath[path], [2]int{start, end})
}

// budget tracks cumulative bytes written against a hard cap.
type budget struct {
	max       int
	used      int
	truncated bool
}

// admit checks whether size more bytes fit; returns the (possibly
// truncated-to-newline) text that fits and whether anything was cut.
func (b *budget) admit(text string, size int) (string, bool) {
	if b.used+size <= b.max {
		b.used += size
		return text, false
	}
	remaining := b.max - b.used
	if remaining <= 0 {
		b.truncated = true
		return "", true
	}
	cut := text
	if remaining < len(cut) {
		cut = cut[:remaining]
	}
	if idx := strings.LastIndexByte(cut, '\n'); idx >= 0 {
		cut = cut[:idx]
	}
	b.used += len(cut)
	b.truncated = true
	return cut, true
}

// admitUnlessDryRun mirrors budget.admit but, in dry-run mode, only
// estimates whether text would have fit without consuming the budget or
// returning any content — dry-run results carry sizes, never bytes.
func admitUnlessDryRun(bud *budget, text string, dryRun bool) (string, bool) {
	if !dryRun {
		return bud.admit(text, len(text))
	}
	if bud.used+len(text) > bud.max {
		bud.truncated = true
		return "", true
	}
	bud.used += len(text)
	return "", false
}

// Gather resolves every seed and renders bounded content around it per
// req.Strategy, returning a deterministically ordered Result.
func (a *Assembler) Gather(ctx context.Context, req Request) (*Result, error) {
	if req.ByteBudget <= 0 {
		req.ByteBudget = defaultByteBudget
	}
	if req.Depth <= 0 {
		req.Depth = defaultDepth
	}
	if req.MaxNodes <= 0 {
		req.MaxNodes = defaultMaxNodes
	}
	if req.Strategy == "" {
		req.Strategy = StrategySymbol
	}

	bud := &budget{max: req.ByteBudget}
	dd := newDedup()
	meta := map[string]any{}
	var items []Item

	for i, seed := range req.Seeds {
		resolved, skipReason, err := a.resolveSeed(ctx, req, seed)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			meta[fmt.Sprintf("seed_%d_skipped", i)] = skipReason
			continue
		}

		direct, related, err := a.renderSeed(ctx, req, i, *resolved, dd, bud)
		if err != nil {
			return nil, err
		}
		items = append(items, direct...)
		items = append(items, related...)
		if bud.truncated {
			break
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.SeedIndex != b.SeedIndex {
			return a.SeedIndex < b.SeedIndex
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartByte < b.StartByte
	})

	return &Result{
		Items: items,
		Totals: Totals{
			TotalBytes:  bud.used,
			BudgetBytes: bud.max,
			Truncated:   bud.truncated,
			Metadata:    meta,
		},
	}, nil
}

// resolvedSeed is an internal normal form every seed kind converges to
// before rendering: either a symbol, or a raw file byte range, or both
// (a search hit resolves to its enclosing symbol when one exists).
type resolvedSeed struct {
	symbol    *graph.Symbol
	path      string
	startByte int
	endByte   int
	startLine int
	endLine   int
	matchLine int
	fromFile  bool // true for SeedFile / file-region seeds: always raw-rendered
}

func (a *Assembler) resolveSeed(ctx context.Context, req Request, seed Seed) (*resolvedSeed, string, error) {
	switch seed.Kind {
	case SeedSymbol:
		sym, err := a.store.GetSymbolByQualname(ctx, seed.Qualname, req.GV)
		if err != nil {
			return nil, "", err
		}
		if sym == nil {
			suggestions, _ := a.store.FindSymbols(ctx, seed.Qualname, 3, req.Langs, req.GV)
			names := make([]string, 0, len(suggestions))
			for _, s := range suggestions {
				names = append(names, s.Qualname)
			}
			return nil, fmt.Sprintf("symbol %q not found; suggestions: %s", seed.Qualname, strings.Join(names, ", ")), nil
		}
		return &resolvedSeed{symbol: sym, path: sym.FilePath, startByte: sym.StartByte, endByte: sym.EndByte, startLine: sym.StartLine, endLine: sym.EndLine}, "", nil

	case SeedFile:
		clean := filepath.Clean(seed.Path)
		if req.RepoRoot != "" {
			joined := filepath.Join(req.RepoRoot, clean)
			rel, err := filepath.Rel(req.RepoRoot, joined)
			if err != nil || strings.HasPrefix(rel, "..") {
				return nil, fmt.Sprintf("path %q escapes repo root", seed.Path), nil
			}
		}
		text, err := a.readFile(clean)
		if err != nil {
			return nil, fmt.Sprintf("path %q unreadable: %v", seed.Path, err), nil
		}
		startByte, endByte, startLine, endLine := lineRangeToBytes(text, seed.StartLine, seed.EndLine)
		return &resolvedSeed{path: clean, startByte: startByte, endByte: endByte, startLine: startLine, endLine: endLine, fromFile: true}, "", nil

	case SeedSearch:
		if a.searcher == nil {
			return nil, "no search engine configured", nil
		}
		res, err := a.searcher.Search(ctx, search.Request{Query: seed.Query, GV: req.GV, Limit: 1})
		if err != nil {
			return nil, "", err
		}
		if len(res.Hits) == 0 {
			return nil, fmt.Sprintf("search %q returned no hits", seed.Query), nil
		}
		hit := res.Hits[0]
		rs := &resolvedSeed{path: hit.Path, matchLine: hit.Line, startLine: hit.Line, endLine: hit.Line}
		if hit.Symbol != nil {
			rs.symbol = hit.Symbol
			rs.startByte, rs.endByte = hit.Symbol.StartByte, hit.Symbol.EndByte
			rs.startLine, rs.endLine = hit.Symbol.StartLine, hit.Symbol.EndLine
		}
		return rs, "", nil

	default:
		return nil, fmt.Sprintf("unknown seed kind %q", seed.Kind), nil
	}
}

// lineRangeToBytes converts a 1-indexed inclusive [start,end] line range
// into a UTF-8-safe byte range, clamped to the file's actual extent. A zero
// start/end means "whole file".
func lineRangeToBytes(text string, start, end int) (startByte, endByte, startLine, endLine int) {
	lines := strings.SplitAfter(text, "\n")
	if start <= 0 {
		start = 1
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		start = len(lines)
	}
	if end < start {
		end = start
	}
	offset := 0
	for i := 0; i < start-1 && i < len(lines); i++ {
		offset += len(lines[i])
	}
	startByte = offset
	for i := start - 1; i < end && i < len(lines); i++ {
		offset += len(lines[i])
	}
	endByte = offset
	return startByte, endByte, start, end
}

func (a *Assembler) renderSeed(ctx context.Context, req Request, seedIndex int, rs resolvedSeed, dd *dedup, bud *budget) ([]Item, []Item, error) {
	if rs.fromFile || req.Strategy == StrategyFile {
		return a.renderFileStrategy(ctx, req, seedIndex, rs, dd, bud)
	}
	return a.renderSymbolStrategy(ctx, req, seedIndex, rs, dd, bud)
}

func (a *Assembler) emit(req Request, dd *dedup, bud *budget, source sourceRank, seedIndex int, path string, startByte, endByte, startLine, endLine int, sym *graph.Symbol, tier int) (*Item, bool, error) {
	if dd.seen(path, startByte, endByte) {
		return nil, false, nil
	}
	size := endByte - startByte
	if size < 0 {
		size = 0
	}

	item := &Item{
		Source: source, SeedIndex: seedIndex, Path: path,
		StartLine: startLine, EndLine: endLine, StartByte: startByte, EndByte: endByte,
		Symbol: sym, Tier: tier, EstimatedBytes: size,
	}

	if req.DryRun {
		dd.add(path, startByte, endByte)
		return item, true, nil
	}

	text, err := a.readFile(path)
	if err != nil {
		return nil, false, nil // unreadable file: skip, don't abort (spec §7)
	}
	if endByte > len(text) {
		endByte = len(text)
	}
	if startByte > endByte {
		startByte = endByte
	}
	raw := text[startByte:endByte]
	content, cut := bud.admit(raw, len(raw))
	item.Content = content
	item.EndByte = startByte + len(content)
	dd.add(path, startByte, item.EndByte)
	if cut {
		return item, false, nil
	}
	return item, true, nil
}

// renderFileStrategy copies the seed's raw byte range, then — while under
// 60% budget usage — follows incoming CALLS edges into other files for the
// symbols the range overlaps.
func (a *Assembler) renderFileStrategy(ctx context.Context, req Request, seedIndex int, rs resolvedSeed, dd *dedup, bud *budget) ([]Item, []Item, error) {
	item, ok, err := a.emit(req, dd, bud, SourceDirectSeed, seedIndex, rs.path, rs.startByte, rs.endByte, rs.startLine, rs.endLine, rs.symbol, 0)
	if err != nil {
		return nil, nil, err
	}
	var direct []Item
	if item != nil {
		direct = append(direct, *item)
	}
	if !ok || bud.used > int(float64(bud.max)*fileSecondaryFrac) {
		return direct, nil, nil
	}

	overlapping, err := symbolsOverlapping(ctx, a.store, rs.path, rs.startLine, rs.endLine, req.GV)
	if err != nil {
		return direct, nil, err
	}

	var related []Item
	seenCallers := map[int64]bool{}
	for _, sym := range overlapping {
		edges, err := a.store.EdgesForSymbol(ctx, sym.ID, req.Langs, req.GV)
		if err != nil {
			return direct, related, err
		}
		for _, e := range edges {
			if e.Kind != graph.EdgeCalls || e.TargetSymbolID == nil || *e.TargetSymbolID != sym.ID || e.SourceSymbolID == nil {
				continue
			}
			if seenCallers[*e.SourceSymbolID] {
				continue
			}
			caller, err := a.store.GetSymbolByID(ctx, *e.SourceSymbolID)
			if err != nil || caller == nil || caller.FilePath == rs.path {
				continue
			}
			seenCallers[caller.ID] = true
			it, cont, err := a.emit(req, dd, bud, SourceSubgraph, seedIndex, caller.FilePath, caller.StartByte, caller.EndByte, caller.StartLine, caller.EndLine, caller, 0)
			if err != nil {
				return direct, related, err
			}
			if it != nil {
				related = append(related, *it)
			}
			if !cont {
				return direct, related, nil
			}
		}
	}
	return direct, related, nil
}

func symbolsOverlapping(ctx context.Context, store graph.Store, path string, startLine, endLine int, gv int64) ([]graph.Symbol, error) {
	syms, err := store.GetSymbolsForFile(ctx, path, gv)
	if err != nil {
		return nil, err
	}
	var out []graph.Symbol
	for _, s := range syms {
		if s.StartLine <= endLine && s.EndLine >= startLine {
			out = append(out, s)
		}
	}
	return out, nil
}

// renderSymbolStrategy implements the three-tier rendering from spec §4.8:
// tier 0 is the seed's file header + full body; tier 1 is a budgeted
// cross-file CALLS expansion rendered as signature + one call-site line;
// tier 2 is general related symbols rendered as signature only.
func (a *Assembler) renderSymbolStrategy(ctx context.Context, req Request, seedIndex int, rs resolvedSeed, dd *dedup, bud *budget) ([]Item, []Item, error) {
	var direct []Item

	if header, headerOK, err := a.fileHeader(rs.path); err == nil && headerOK {
		rendered := header
		if !req.DryRun {
			rendered, _ = bud.admit(header, len(header))
		}
		if rendered != "" || req.DryRun {
			content := rendered
			if req.DryRun {
				content = ""
			}
			direct = append(direct, Item{
				Source: SourceDirectSeed, SeedIndex: seedIndex, Path: rs.path,
				StartLine: 1, EndLine: fileHeaderLines,
				Content:        content,
				Tier:           0,
				EstimatedBytes: len(header),
			})
		}
	}

	item, ok, err := a.emit(req, dd, bud, SourceDirectSeed, seedIndex, rs.path, rs.startByte, rs.endByte, rs.startLine, rs.endLine, rs.symbol, 0)
	if err != nil {
		return direct, nil, err
	}
	if item != nil {
		direct = append(direct, *item)
	}
	if !ok || rs.symbol == nil {
		return direct, nil, nil
	}

	tier1Budget := int(float64(bud.max-bud.used) * tier1BudgetFrac)
	tier1Used := 0
	var related []Item

	visited := map[int64]bool{rs.symbol.ID: true}
	frontier := []graph.Symbol{*rs.symbol}
	for depth := 0; depth < req.Depth && len(related) < req.MaxNodes; depth++ {
		var next []graph.Symbol
		for _, sym := range frontier {
			edges, err := a.store.EdgesForSymbol(ctx, sym.ID, req.Langs, req.GV)
			if err != nil {
				return direct, related, err
			}
			for _, e := range edges {
				if !kindAllowed(e.Kind, relatedEdgeKinds) {
					continue
				}
				otherID, ok := otherEndpointID(e, sym.ID)
				if !ok || visited[otherID] {
					continue
				}
				other, err := a.store.GetSymbolByID(ctx, otherID)
				if err != nil || other == nil {
					continue
				}
				visited[otherID] = true
				next = append(next, *other)

				if len(related) >= req.MaxNodes {
					continue
				}

				crossFile := other.FilePath != rs.path && e.Kind == graph.EdgeCalls
				if crossFile && tier1Used < tier1Budget {
					sig := other.Signature
					evidence := callSiteEvidence(e)
					text := sig + "\n" + evidence + "\n"
					if dd.seen(other.FilePath, other.StartByte, other.StartByte) {
						continue
					}
					content, cut := admitUnlessDryRun(bud, text, req.DryRun)
					tier1Used += len(text)
					related = append(related, Item{
						Source: SourceSubgraph, SeedIndex: seedIndex, Path: other.FilePath,
						StartLine: other.StartLine, EndLine: other.StartLine, Symbol: other,
						Content: content, Tier: 1, EstimatedBytes: len(text),
					})
					if cut {
						return direct, related, nil
					}
					continue
				}

				sig := other.Signature + "\n"
				content, cut := admitUnlessDryRun(bud, sig, req.DryRun)
				related = append(related, Item{
					Source: SourceSubgraph, SeedIndex: seedIndex, Path: other.FilePath,
					StartLine: other.StartLine, EndLine: other.StartLine, Symbol: other,
					Content: content, Tier: 2, EstimatedBytes: len(sig),
				})
				if cut {
					return direct, related, nil
				}
			}
		}
		frontier = next
	}

	return direct, related, nil
}

func callSiteEvidence(e graph.Edge) string {
	if len(e.Evidence) > 0 {
		return e.Evidence
	}
	return fmt.Sprintf("// calls %s", e.TargetQualname)
}

func kindAllowed(k graph.EdgeKind, allowed []graph.EdgeKind) bool {
	for _, a := range allowed {
		if a == k {
			return true
		}
	}
	return false
}

func otherEndpointID(e graph.Edge, id int64) (int64, bool) {
	if e.SourceSymbolID != nil && *e.SourceSymbolID == id && e.TargetSymbolID != nil {
		return *e.TargetSymbolID, true
	}
	if e.TargetSymbolID != nil && *e.TargetSymbolID == id && e.SourceSymbolID != nil {
		return *e.SourceSymbolID, true
	}
	return 0, false
}

// fileHeader returns the first fileHeaderLines lines of path, capped at
// fileHeaderMaxBytes, for tier 0's file-header rendering.
func (a *Assembler) fileHeader(path string) (string, bool, error) {
	text, err := a.readFile(path)
	if err != nil {
		return "", false, err
	}
	lines := strings.SplitAfter(text, "\n")
	if len(lines) > fileHeaderLines {
		lines = lines[:fileHeaderLines]
	}
	header := strings.Join(lines, "")
	if len(header) > fileHeaderMaxBytes {
		header = header[:fileHeaderMaxBytes]
	}
	return header, header != "", nil
}
