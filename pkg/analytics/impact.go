// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analytics

import (
	"context"
	"sort"

	"github.com/kraklabs/lidx/pkg/graph"
)

type ImpactLayer string

const (
	LayerDirect     ImpactLayer = "direct"
	LayerTest       ImpactLayer = "test"
	LayerHistorical ImpactLayer = "historical"
)

const defaultImpactDepth = 2

var defaultImpactKinds = []graph.EdgeKind{
	graph.EdgeCalls, graph.EdgeRPCCall, graph.EdgeRPCImpl,
	graph.EdgeChannelPublish, graph.EdgeChannelSubscribe,
}

type AnalyzeImpactRequest struct {
	Seed            string
	Layers          []ImpactLayer
	Kinds           []graph.EdgeKind
	Depth           int
	ConfidenceFloor float64
	Langs           []string
	GV              int64
}

type ImpactEntry struct {
	Symbol       graph.Symbol
	Distance     int // -1 for entries contributed only by the test/historical layers
	Relationship string
	Confidence   float64
	Path         []string
}

type AnalyzeImpactResult struct {
	Entries  []ImpactEntry
	NextHops []NextHop
}

func hasLayer(layers []ImpactLayer, l ImpactLayer) bool {
	for _, x := range layers {
		if x == l {
			return true
		}
	}
	return false
}

// AnalyzeImpact unions three independently enable-able layers reached from
// req.Seed: direct callers (BFS over CALLS/RPC_*/CHANNEL_* by default),
// their direct tests, and co-change facts for files touched by
// directly-impacted symbols.
func AnalyzeImpact(ctx context.Context, store graph.Store, req AnalyzeImpactRequest) (*AnalyzeImpactResult, error) {
	sym, err := resolveSeed(ctx, store, req.Seed, req.Langs, req.GV)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return &AnalyzeImpactResult{}, nil
	}

	layers := req.Layers
	if len(layers) == 0 {
		layers = []ImpactLayer{LayerDirect, LayerTest, LayerHistorical}
	}
	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = defaultImpactKinds
	}
	depth := req.Depth
	if depth <= 0 {
		depth = defaultImpactDepth
	}

	byID := make(map[int64]*ImpactEntry)
	var direct []graph.Symbol

	if hasLayer(layers, LayerDirect) {
		visited := map[int64]bool{sym.ID: true}
		type qnode struct {
			id    int64
			level int
			path  []string
		}
		queue := []qnode{{sym.ID, 0, []string{sym.Qualname}}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.level >= depth {
				continue
			}
			edges, err := store.EdgesForSymbol(ctx, cur.id, req.Langs, req.GV)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if !kindIn(e.Kind, kinds) {
					continue
				}
				conf := confidenceOrDefault(e.Confidence)
				if conf < req.ConfidenceFloor {
					continue
				}
				if e.TargetSymbolID == nil || *e.TargetSymbolID != cur.id || e.SourceSymbolID == nil {
					continue
				}
				callerID := *e.SourceSymbolID
				if visited[callerID] {
					continue
				}
				visited[callerID] = true
				csym, err := store.GetSymbolByID(ctx, callerID)
				if err != nil {
					return nil, err
				}
				if csym == nil {
					continue
				}
				path := append(append([]string{}, cur.path...), csym.Qualname)
				entry := ImpactEntry{Symbol: *csym, Distance: cur.level + 1, Relationship: "direct_call", Confidence: conf, Path: path}
				byID[callerID] = &entry
				direct = append(direct, *csym)
				queue = append(queue, qnode{callerID, cur.level + 1, path})
			}
		}
	}

	if hasLayer(layers, LayerTest) {
		for _, d := range direct {
			res, err := FindTestsFor(ctx, store, FindTestsForRequest{Seed: d.Qualname, IndirectDepth: 0, Langs: req.Langs, GV: req.GV})
			if err != nil {
				return nil, err
			}
			for _, t := range res.Direct {
				if _, exists := byID[t.Symbol.ID]; exists {
					continue
				}
				byID[t.Symbol.ID] = &ImpactEntry{Symbol: t.Symbol, Distance: -1, Relationship: "test", Confidence: t.Relevance}
			}
		}
	}

	if hasLayer(layers, LayerHistorical) {
		paths := map[string]bool{sym.FilePath: true}
		for _, d := range direct {
			paths[d.FilePath] = true
		}
		pathList := make([]string, 0, len(paths))
		for p := range paths {
			pathList = append(pathList, p)
		}
		facts, err := store.CoChangesForFiles(ctx, pathList, req.ConfidenceFloor)
		if err != nil {
			return nil, err
		}
		for _, f := range facts {
			other := f.FileB
			if paths[other] {
				other = f.FileA
			}
			if paths[other] {
				continue
			}
			syms, err := store.GetSymbolsForFile(ctx, other, req.GV)
			if err != nil {
				return nil, err
			}
			for _, s := range syms {
				if _, exists := byID[s.ID]; exists {
					continue
				}
				byID[s.ID] = &ImpactEntry{Symbol: s, Distance: -1, Relationship: "historical_cochange", Confidence: f.Confidence}
			}
		}
	}

	entries := make([]ImpactEntry, 0, len(byID))
	for _, e := range byID {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Distance != entries[j].Distance {
			return entries[i].Distance < entries[j].Distance
		}
		return entries[i].Symbol.Qualname < entries[j].Symbol.Qualname
	})
	return &AnalyzeImpactResult{Entries: entries}, nil
}
