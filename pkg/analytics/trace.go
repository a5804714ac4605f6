// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analytics

import (
	"context"

	"github.com/kraklabs/lidx/pkg/graph"
)

type TraceDirection string

const (
	TraceDownstream TraceDirection = "downstream"
	TraceUpstream   TraceDirection = "upstream"
)

const (
	defaultMaxHops      = 5
	defaultTraceBudget  = 8192
	defaultHopByteCost  = 200
)

var defaultTraceKinds = []graph.EdgeKind{
	graph.EdgeCalls, graph.EdgeRPCCall, graph.EdgeRPCImpl,
	graph.EdgeHTTPRoute, graph.EdgeHTTPCall, graph.EdgeXref,
	graph.EdgeChannelPublish, graph.EdgeChannelSubscribe,
}

type TraceHop struct {
	Edge            graph.Edge
	From            graph.Symbol
	To              graph.Symbol
	Hop             int
	CrossLanguage   bool
	BoundaryType    string
	ProtocolContext string
}

type TraceFlowRequest struct {
	Seed         string
	Direction    TraceDirection
	MaxHops      int
	AllowedKinds []graph.EdgeKind
	ByteBudget   int
	TraceOffset  int
	Langs        []string
	GV           int64
}

type TraceFlowResult struct {
	Hops          []TraceHop
	BytesConsumed int
	Truncated     bool
	NextHops      []NextHop
}

// bridgeComplement returns the complementary edge kind that, on a matching
// target_qualname, represents a cross-service hop through the same channel
// (spec §4.7's "bridgeable kind" rule: publish <-> subscribe).
func bridgeComplement(k graph.EdgeKind) (graph.EdgeKind, bool) {
	switch k {
	case graph.EdgeChannelPublish:
		return graph.EdgeChannelSubscribe, true
	case graph.EdgeChannelSubscribe:
		return graph.EdgeChannelPublish, true
	default:
		return "", false
	}
}

// TraceFlow BFS-walks edges of AllowedKinds from req.Seed (or, if the seed
// is a container, from its direct methods) up to MaxHops, accumulating an
// evidence-byte budget. When an edge is a bridgeable kind and its
// complement exists on the same target qualname, the hop is annotated as a
// cross-service boundary. Exceeding ByteBudget truncates the trace and
// emits a next_hops entry carrying a trace_offset continuation.
func TraceFlow(ctx context.Context, store graph.Store, req TraceFlowRequest) (*TraceFlowResult, error) {
	sym, err := resolveSeed(ctx, store, req.Seed, req.Langs, req.GV)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return &TraceFlowResult{}, nil
	}

	kinds := req.AllowedKinds
	if len(kinds) == 0 {
		kinds = defaultTraceKinds
	}
	maxHops := req.MaxHops
	if maxHops <= 0 {
		maxHops = defaultMaxHops
	}
	budget := req.ByteBudget
	if budget <= 0 {
		budget = defaultTraceBudget
	}
	direction := req.Direction
	if direction == "" {
		direction = TraceDownstream
	}

	seeds := []graph.Symbol{*sym}
	if graph.ContainerKinds[sym.Kind] {
		children, err := containsChildren(ctx, store, sym.ID, req.Langs, req.GV)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			seeds = children
		}
	}

	visited := make(map[int64]bool, len(seeds))
	type frontierNode struct {
		sym graph.Symbol
		hop int
	}
	var queue []frontierNode
	for _, s := range seeds {
		visited[s.ID] = true
		queue = append(queue, frontierNode{s, 0})
	}

	var hops []TraceHop
	bytesConsumed := 0
	truncated := false
	hopIndex := 0

	emit := func(e graph.Edge, from, to graph.Symbol, hopLevel int) {
		hopCost := len(e.Evidence)
		if hopCost == 0 {
			hopCost = defaultHopByteCost
		}
		if bytesConsumed+hopCost > budget {
			truncated = true
			return
		}
		hopIndex++
		visited[to.ID] = true
		queue = append(queue, frontierNode{to, hopLevel})
		if hopIndex <= req.TraceOffset {
			return
		}
		hop := TraceHop{Edge: e, From: from, To: to, Hop: hopLevel, CrossLanguage: fileLanguage(from.FilePath) != fileLanguage(to.FilePath)}
		if complement, isBridge := bridgeComplement(e.Kind); isBridge {
			compEdges, cerr := store.EdgesByTargetQualnameAndKinds(ctx, e.TargetQualname, []graph.EdgeKind{complement}, req.Langs, req.GV)
			if cerr == nil && len(compEdges) > 0 {
				hop.BoundaryType = "channel"
				hop.ProtocolContext = e.TargetQualname
				hop.CrossLanguage = true
			}
		}
		hops = append(hops, hop)
		bytesConsumed += hopCost
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.hop >= maxHops {
			continue
		}

		edges, err := store.EdgesForSymbol(ctx, cur.sym.ID, req.Langs, req.GV)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if !kindIn(e.Kind, kinds) {
				continue
			}
			var nextID int64
			var ok bool
			if direction == TraceUpstream {
				if e.TargetSymbolID != nil && *e.TargetSymbolID == cur.sym.ID && e.SourceSymbolID != nil {
					nextID, ok = *e.SourceSymbolID, true
				}
			} else {
				if e.SourceSymbolID != nil && *e.SourceSymbolID == cur.sym.ID && e.TargetSymbolID != nil {
					nextID, ok = *e.TargetSymbolID, true
				}
			}
			if !ok || visited[nextID] {
				continue
			}
			nextSym, err := store.GetSymbolByID(ctx, nextID)
			if err != nil {
				return nil, err
			}
			if nextSym == nil {
				continue
			}
			if direction == TraceUpstream {
				emit(e, *nextSym, cur.sym, cur.hop+1)
			} else {
				emit(e, cur.sym, *nextSym, cur.hop+1)
			}
		}

		if direction == TraceUpstream {
			unresolved, err := store.IncomingEdgesByQualnamePattern(ctx, cur.sym.Qualname, kinds, req.Langs, req.GV)
			if err != nil {
				return nil, err
			}
			for _, e := range unresolved {
				if e.TargetSymbolID != nil || e.SourceSymbolID == nil {
					continue // resolved edges already handled above
				}
				if visited[*e.SourceSymbolID] {
					continue
				}
				srcSym, err := store.GetSymbolByID(ctx, *e.SourceSymbolID)
				if err != nil {
					return nil, err
				}
				if srcSym == nil {
					continue
				}
				emit(e, *srcSym, cur.sym, cur.hop+1)
			}
		}
	}

	res := &TraceFlowResult{Hops: hops, BytesConsumed: bytesConsumed, Truncated: truncated}
	if truncated {
		res.NextHops = append(res.NextHops, NextHop{
			Method: "trace_flow",
			Params: map[string]any{"seed": req.Seed, "trace_offset": hopIndex},
		})
	}
	return res, nil
}
