// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analytics

import (
	"context"
	"encoding/json"
	"math"

	"github.com/kraklabs/lidx/pkg/graph"
)

const defaultIndirectDepth = 2

type FindTestsForRequest struct {
	Seed          string
	IndirectDepth int
	Langs         []string
	GV            int64
}

type TestRef struct {
	Symbol     graph.Symbol
	Relevance  float64
	Level      int
	Resolved   bool
}

type FindTestsForResult struct {
	Direct   []TestRef
	Indirect []TestRef
	NextHops []NextHop
}

// FindTestsFor implements spec §4.7's find-tests-for: direct tests are
// incoming CALLS whose caller looks like a test; indirect tests repeat the
// BFS up the caller chain up to IndirectDepth levels with relevance decaying
// 0.7 × 0.7^level, penalised ×0.9 when the matching edge was only found via
// qualname-pattern fallback rather than a resolved source_symbol_id. A
// proto-service seed is expanded via its RPC_IMPL edges (matched by
// detail.service) to its implementing methods before the caller search
// starts.
func FindTestsFor(ctx context.Context, store graph.Store, req FindTestsForRequest) (*FindTestsForResult, error) {
	sym, err := resolveSeed(ctx, store, req.Seed, req.Langs, req.GV)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return &FindTestsForResult{}, nil
	}

	indirectDepth := req.IndirectDepth
	if indirectDepth <= 0 {
		indirectDepth = defaultIndirectDepth
	}

	seeds := []graph.Symbol{*sym}
	if sym.Kind == graph.KindService {
		impls, err := expandServiceImpls(ctx, store, *sym, req.Langs, req.GV)
		if err != nil {
			return nil, err
		}
		if len(impls) > 0 {
			seeds = impls
		}
	}

	visited := make(map[int64]bool)
	var direct []TestRef
	frontier := make(map[int64]bool)

	for _, s := range seeds {
		callers, err := callersOf(ctx, store, s.ID, req.Langs, req.GV)
		if err != nil {
			return nil, err
		}
		for _, c := range callers {
			if visited[c.Symbol.ID] {
				continue
			}
			visited[c.Symbol.ID] = true
			if isTestLike(c.Symbol) {
				rel := 0.7
				if !c.Resolved {
					rel *= 0.9
				}
				direct = append(direct, TestRef{Symbol: c.Symbol, Relevance: rel, Level: 0, Resolved: c.Resolved})
			} else {
				frontier[c.Symbol.ID] = true
			}
		}
	}

	var indirect []TestRef
	curFrontier := frontier
	for level := 1; level <= indirectDepth && len(curFrontier) > 0; level++ {
		nextFrontier := make(map[int64]bool)
		for cid := range curFrontier {
			callers, err := callersOf(ctx, store, cid, req.Langs, req.GV)
			if err != nil {
				return nil, err
			}
			for _, c := range callers {
				if visited[c.Symbol.ID] {
					continue
				}
				visited[c.Symbol.ID] = true
				relevance := 0.7 * math.Pow(0.7, float64(level))
				if !c.Resolved {
					relevance *= 0.9
				}
				if isTestLike(c.Symbol) {
					indirect = append(indirect, TestRef{Symbol: c.Symbol, Relevance: relevance, Level: level, Resolved: c.Resolved})
				} else {
					nextFrontier[c.Symbol.ID] = true
				}
			}
		}
		curFrontier = nextFrontier
	}

	return &FindTestsForResult{Direct: direct, Indirect: indirect}, nil
}

// expandServiceImpls resolves svc's RPC_IMPL edges whose detail.service
// equals svc's own name or qualname to their implementing methods.
func expandServiceImpls(ctx context.Context, store graph.Store, svc graph.Symbol, langs []string, gv int64) ([]graph.Symbol, error) {
	edges, err := store.EdgesForSymbol(ctx, svc.ID, langs, gv)
	if err != nil {
		return nil, err
	}
	var out []graph.Symbol
	for _, e := range edges {
		if e.Kind != graph.EdgeRPCImpl || e.TargetSymbolID == nil {
			continue
		}
		var detail struct {
			Service string `json:"service"`
		}
		if e.Detail != "" {
			_ = json.Unmarshal([]byte(e.Detail), &detail)
		}
		if detail.Service != svc.Name && detail.Service != svc.Qualname {
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
