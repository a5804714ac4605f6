// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analytics

import (
	"context"

	"github.com/kraklabs/lidx/pkg/graph"
)

type Direction string

const (
	DirIn   Direction = "in"
	DirOut  Direction = "out"
	DirBoth Direction = "both"
)

const defaultReferencesLimit = 50

type ReferencesRequest struct {
	Seed      string
	Direction Direction
	Kinds     []graph.EdgeKind
	Limit     int
	Langs     []string
	GV        int64
}

type ReferenceEntry struct {
	Edge      graph.Edge
	Endpoint  graph.Symbol
	Direction Direction
}

type ReferencesResult struct {
	Seed     *graph.Symbol
	Members  []graph.Symbol // seed plus, for a container seed, its direct CONTAINS children
	In       []ReferenceEntry
	Out      []ReferenceEntry
	NextHops []NextHop
}

// References resolves req.Seed and, if it is a container kind, expands to
// its direct CONTAINS children, aggregating references across the whole
// set. CONTAINS edges themselves are always filtered out of the result.
func References(ctx context.Context, store graph.Store, req ReferencesRequest) (*ReferencesResult, error) {
	sym, err := resolveSeed(ctx, store, req.Seed, req.Langs, req.GV)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return &ReferencesResult{}, nil
	}

	members := []graph.Symbol{*sym}
	if graph.ContainerKinds[sym.Kind] {
		children, err := containsChildren(ctx, store, sym.ID, req.Langs, req.GV)
		if err != nil {
			return nil, err
		}
		members = append(members, children...)
	}

	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = []graph.EdgeKind{graph.EdgeCalls}
	}
	dir := req.Direction
	if dir == "" {
		dir = DirBoth
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultReferencesLimit
	}

	memberIDs := make(map[int64]bool, len(members))
	for _, m := range members {
		memberIDs[m.ID] = true
	}

	endpointCache := make(map[int64]*graph.Symbol)
	endpoint := func(id int64) (*graph.Symbol, error) {
		if s, ok := endpointCache[id]; ok {
			return s, nil
		}
		s, err := store.GetSymbolByID(ctx, id)
		if err != nil {
			return nil, err
		}
		endpointCache[id] = s
		return s, nil
	}

	var in, out []ReferenceEntry
	seenIn := make(map[int64]bool)
	seenOut := make(map[int64]bool)

	for _, m := range members {
		edges, err := store.EdgesForSymbol(ctx, m.ID, req.Langs, req.GV)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if e.Kind == graph.EdgeContains || !kindIn(e.Kind, kinds) {
				continue
			}
			if (dir == DirIn || dir == DirBoth) && e.TargetSymbolID != nil && *e.TargetSymbolID == m.ID &&
				e.SourceSymbolID != nil && !memberIDs[*e.SourceSymbolID] {
				if seenIn[e.ID] || len(in) >= limit {
					continue
				}
				seenIn[e.ID] = true
				ep, err := endpoint(*e.SourceSymbolID)
				if err != nil || ep == nil {
					continue
				}
				in = append(in, ReferenceEntry{Edge: e, Endpoint: *ep, Direction: DirIn})
			}
			if (dir == DirOut || dir == DirBoth) && e.SourceSymbolID != nil && *e.SourceSymbolID == m.ID &&
				e.TargetSymbolID != nil && !memberIDs[*e.TargetSymbolID] {
				if seenOut[e.ID] || len(out) >= limit {
					continue
				}
				seenOut[e.ID] = true
				ep, err := endpoint(*e.TargetSymbolID)
				if err != nil || ep == nil {
					continue
				}
				out = append(out, ReferenceEntry{Edge: e, Endpoint: *ep, Direction: DirOut})
			}
		}
	}

	return &ReferencesResult{Seed: sym, Members: members, In: in, Out: out}, nil
}
