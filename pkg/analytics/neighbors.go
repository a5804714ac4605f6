// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analytics

import (
	"context"
	"sort"

	"github.com/kraklabs/lidx/pkg/graph"
)

const (
	DefaultDepth    = 2
	MaxDepth        = 5
	DefaultMaxNodes = 50
)

// NeighborsRequest parameterises both "neighbours" and "subgraph" — spec
// §4.7 describes them as the same BFS, differing only in how many seeds a
// caller typically passes (one vs several).
type NeighborsRequest struct {
	Seeds        []string
	Depth        int
	MaxNodes     int
	IncludeKinds []graph.EdgeKind
	ExcludeKinds []graph.EdgeKind
	Langs        []string
	GV           int64
}

type NeighborsResult struct {
	Nodes     []graph.Symbol
	Edges     []graph.Edge
	Truncated bool
	NextHops  []NextHop
}

// Neighbors runs a BFS over resolved edges from req.Seeds, bounded by Depth
// (clamped to [1, MaxDepth]) and MaxNodes. Edge-kind include/exclude filters
// are honoured. Both endpoints of every returned edge are guaranteed to be
// within the returned node set.
func Neighbors(ctx context.Context, store graph.Store, req NeighborsRequest) (*NeighborsResult, error) {
	depth := req.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}
	maxNodes := req.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}

	visited := make(map[int64]graph.Symbol)
	var order []int64

	type queued struct {
		id    int64
		level int
	}
	var queue []queued

	for _, seed := range req.Seeds {
		sym, err := resolveSeed(ctx, store, seed, req.Langs, req.GV)
		if err != nil {
			return nil, err
		}
		if sym == nil {
			continue
		}
		if _, ok := visited[sym.ID]; ok {
			continue
		}
		visited[sym.ID] = *sym
		order = append(order, sym.ID)
		queue = append(queue, queued{sym.ID, 0})
	}

	truncated := false
	edgeSet := make(map[int64]graph.Edge)

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
			if !edgeKindAllowed(e.Kind, req.IncludeKinds, req.ExcludeKinds) {
				continue
			}
			other, ok := otherEndpoint(e, cur.id)
			if !ok {
				continue
			}
			edgeSet[e.ID] = e
			if _, seen := visited[other]; seen {
				continue
			}
			if len(visited) >= maxNodes {
				truncated = true
				continue
			}
			sym, err := store.GetSymbolByID(ctx, other)
			if err != nil {
				return nil, err
			}
			if sym == nil {
				continue
			}
			visited[other] = *sym
			order = append(order, other)
			queue = append(queue, queued{other, cur.level + 1})
		}
	}

	nodes := make([]graph.Symbol, 0, len(order))
	for _, id := range order {
		nodes = append(nodes, visited[id])
	}

	edges := make([]graph.Edge, 0, len(edgeSet))
	for _, e := range edgeSet {
		if edgeBothEndpointsIn(e, visited) {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	res := &NeighborsResult{Nodes: nodes, Edges: edges, Truncated: truncated}
	if truncated {
		res.NextHops = append(res.NextHops, NextHop{
			Method: "subgraph",
			Params: map[string]any{"seeds": req.Seeds, "depth": depth, "max_nodes": maxNodes * 2},
		})
	}
	return res, nil
}

// Subgraph is Neighbors under another name — spec §4.7 treats both RPC
// methods as one algorithm.
func Subgraph(ctx context.Context, store graph.Store, req NeighborsRequest) (*NeighborsResult, error) {
	return Neighbors(ctx, store, req)
}

func otherEndpoint(e graph.Edge, id int64) (int64, bool) {
	if e.SourceSymbolID != nil && *e.SourceSymbolID == id && e.TargetSymbolID != nil {
		return *e.TargetSymbolID, true
	}
	if e.TargetSymbolID != nil && *e.TargetSymbolID == id && e.SourceSymbolID != nil {
		return *e.SourceSymbolID, true
	}
	return 0, false
}

func edgeBothEndpointsIn(e graph.Edge, nodes map[int64]graph.Symbol) bool {
	if e.SourceSymbolID == nil || e.TargetSymbolID == nil {
		return false
	}
	_, sok := nodes[*e.SourceSymbolID]
	_, tok := nodes[*e.TargetSymbolID]
	return sok && tok
}
