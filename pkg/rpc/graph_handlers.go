// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rpc

import (
	"context"
	"encoding/json"

	lidxerrors "github.com/kraklabs/lidx/internal/errors"
	"github.com/kraklabs/lidx/pkg/analytics"
	"github.com/kraklabs/lidx/pkg/graph"
)

// seedID resolves a neighbors/subgraph seed given either an id or a
// qualname, since both handlers accept either.
func seedID(ctx context.Context, store graph.Store, id int64, qualname string, langs []string, gv int64) (int64, *lidxerrors.RPCError) {
	if id != 0 {
		return id, nil
	}
	if qualname == "" {
		return 0, lidxerrors.NewRPCInvalidInput("request requires id or qualname")
	}
	sym, err := store.GetSymbolByQualname(ctx, qualname, gv)
	if err != nil {
		return 0, lidxerrors.NewRPCStorage(err.Error())
	}
	if sym == nil {
		return 0, lidxerrors.NewRPCNotFound("symbol not found: "+qualname, nameSuggestions(ctx, store, qualname, langs, gv))
	}
	return sym.ID, nil
}

func handleNeighbors(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p NeighborsParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	id, rerr := seedID(ctx, d.store, p.ID, p.Qualname, p.Languages, gv)
	if rerr != nil {
		return nil, rerr
	}
	sym, err := d.store.GetSymbolByID(ctx, id)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	if sym == nil {
		return nil, lidxerrors.NewRPCNotFound("symbol not found", nil)
	}
	res, err := analytics.Neighbors(ctx, d.store, analytics.NeighborsRequest{
		Seeds: []string{sym.Qualname}, Depth: p.Depth, MaxNodes: p.MaxNodes,
		IncludeKinds: edgeKinds(p.IncludeKinds), ExcludeKinds: edgeKinds(p.ExcludeKinds),
		Langs: p.Languages, GV: gv,
	})
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	data := any(res)
	if Format(p.Format) == FormatSignatures {
		data = map[string]any{"nodes": signaturesProjectionAll(res.Nodes), "edges": res.Edges}
	}
	return &Response{Data: data, NextHops: fromAnalyticsHops(res.NextHops)}, nil
}

func handleSubgraph(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p SubgraphParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	seeds := make([]string, 0, len(p.StartIDs)+len(p.StartQualnames))
	for _, id := range p.StartIDs {
		sym, err := d.store.GetSymbolByID(ctx, id)
		if err != nil {
			return nil, lidxerrors.NewRPCStorage(err.Error())
		}
		if sym != nil {
			seeds = append(seeds, sym.Qualname)
		}
	}
	var missing []string
	for _, q := range p.StartQualnames {
		if q == "" {
			continue
		}
		id, ok, err := d.store.LookupSymbolIDFuzzy(ctx, q, p.Languages, gv)
		if err != nil {
			return nil, lidxerrors.NewRPCStorage(err.Error())
		}
		if !ok {
			missing = append(missing, q)
			continue
		}
		sym, err := d.store.GetSymbolByID(ctx, id)
		if err == nil && sym != nil {
			seeds = append(seeds, sym.Qualname)
		}
	}
	if len(missing) > 0 {
		return nil, lidxerrors.NewRPCNotFound("subgraph roots not found: "+joinStrings(missing), nil)
	}
	if len(seeds) == 0 {
		return nil, lidxerrors.NewRPCInvalidInput("subgraph requires start_ids or start_qualnames")
	}

	res, err := analytics.Subgraph(ctx, d.store, analytics.NeighborsRequest{
		Seeds: seeds, Depth: p.Depth, MaxNodes: p.MaxNodes,
		IncludeKinds: edgeKinds(p.IncludeKinds), ExcludeKinds: edgeKinds(p.ExcludeKinds),
		Langs: p.Languages, GV: gv,
	})
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	data := any(res)
	if Format(p.Format) == FormatSignatures {
		data = map[string]any{"nodes": signaturesProjectionAll(res.Nodes), "edges": res.Edges}
	}
	return &Response{Data: data, NextHops: fromAnalyticsHops(res.NextHops)}, nil
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func handleReferences(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p ReferencesParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.Qualname == "" {
		return nil, lidxerrors.NewRPCInvalidInput("references requires qualname")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	limit = d.clampLimit(limit)
	dir := analytics.Direction(p.Direction)
	if dir == "" {
		dir = analytics.DirBoth
	}
	res, err := analytics.References(ctx, d.store, analytics.ReferencesRequest{
		Seed: p.Qualname, Direction: dir, Kinds: edgeKinds(p.Kinds), Limit: limit,
		Langs: p.Languages, GV: gv,
	})
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	if res.Seed == nil {
		return nil, lidxerrors.NewRPCNotFound("symbol not found: "+p.Qualname, nameSuggestions(ctx, d.store, p.Qualname, p.Languages, gv))
	}
	return &Response{Data: res, NextHops: fromAnalyticsHops(res.NextHops)}, nil
}

func handleTraceFlow(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p TraceFlowParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.Qualname == "" {
		return nil, lidxerrors.NewRPCInvalidInput("trace_flow requires qualname")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	dir := analytics.TraceDirection(p.Direction)
	if dir == "" {
		dir = analytics.TraceDownstream
	}
	res, err := analytics.TraceFlow(ctx, d.store, analytics.TraceFlowRequest{
		Seed: p.Qualname, Direction: dir, MaxHops: p.MaxHops,
		AllowedKinds: edgeKinds(p.AllowedKinds), ByteBudget: p.ByteBudget,
		TraceOffset: p.TraceOffset, Langs: p.Languages, GV: gv,
	})
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	return &Response{Data: res, NextHops: fromAnalyticsHops(res.NextHops)}, nil
}

// handleRouteRefs resolves an HTTP/page route to the handler(s) and callers
// registered for it, by scanning HTTP_ROUTE/HTTP_CALL/PAGE_ROUTE edges whose
// normalised target_qualname matches the requested route.
func handleRouteRefs(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p RouteRefsParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.Route == "" {
		return nil, lidxerrors.NewRPCInvalidInput("route_refs requires route")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	limit = d.clampLimit(limit)

	kinds := []graph.EdgeKind{graph.EdgeHTTPRoute, graph.EdgeHTTPCall, graph.EdgePageRoute}
	edges, err := d.store.EdgesByTargetQualnameAndKinds(ctx, p.Route, kinds, nil, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	var handlers, callers []graph.Edge
	for _, e := range edges {
		if e.Kind == graph.EdgeHTTPCall {
			callers = append(callers, e)
		} else {
			handlers = append(handlers, e)
		}
		if len(handlers)+len(callers) >= limit {
			break
		}
	}
	return &Response{Data: map[string]any{"route": p.Route, "handlers": handlers, "callers": callers}}, nil
}

// handleFlowStatus reports whether a symbol participates in any traced
// protocol boundary (RPC/HTTP/channel edges), a cheap summary used before a
// caller commits to a full trace_flow call.
func handleFlowStatus(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p FlowStatusParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.Qualname == "" {
		return nil, lidxerrors.NewRPCInvalidInput("flow_status requires qualname")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	sym, err := d.store.GetSymbolByQualname(ctx, p.Qualname, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	if sym == nil {
		return nil, lidxerrors.NewRPCNotFound("symbol not found: "+p.Qualname, nameSuggestions(ctx, d.store, p.Qualname, nil, gv))
	}
	edges, err := d.store.EdgesForSymbol(ctx, sym.ID, nil, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	counts := map[graph.EdgeKind]int{}
	for _, e := range edges {
		switch e.Kind {
		case graph.EdgeRPCImpl, graph.EdgeRPCCall, graph.EdgeHTTPRoute, graph.EdgeHTTPCall,
			graph.EdgeChannelPublish, graph.EdgeChannelSubscribe:
			counts[e.Kind]++
		}
	}
	return &Response{Data: map[string]any{"qualname": sym.Qualname, "boundary_edge_counts": counts}}, nil
}

// runFindTestsFor is a thin wrapper so explain_symbol's "tests" section can
// reuse the same call as the find_tests_for handler.
func runFindTestsFor(ctx context.Context, d *Dispatcher, qualname string, indirectDepth int, langs []string, gv int64) (*analytics.FindTestsForResult, error) {
	return analytics.FindTestsFor(ctx, d.store, analytics.FindTestsForRequest{
		Seed: qualname, IndirectDepth: indirectDepth, Langs: langs, GV: gv,
	})
}

func handleFindTestsFor(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p FindTestsForParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.Qualname == "" {
		return nil, lidxerrors.NewRPCInvalidInput("find_tests_for requires qualname")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	depth := p.IndirectDepth
	if depth <= 0 {
		depth = 2
	}
	res, err := runFindTestsFor(ctx, d, p.Qualname, depth, p.Languages, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	return &Response{Data: res, NextHops: fromAnalyticsHops(res.NextHops)}, nil
}

func handleAnalyzeImpact(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p AnalyzeImpactParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.Qualname == "" {
		return nil, lidxerrors.NewRPCInvalidInput("analyze_impact requires qualname")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	layers := make([]analytics.ImpactLayer, 0, len(p.Layers))
	for _, l := range p.Layers {
		layers = append(layers, analytics.ImpactLayer(l))
	}
	if len(layers) == 0 {
		layers = []analytics.ImpactLayer{analytics.LayerDirect, analytics.LayerTest, analytics.LayerHistorical}
	}
	res, err := analytics.AnalyzeImpact(ctx, d.store, analytics.AnalyzeImpactRequest{
		Seed: p.Qualname, Layers: layers, Kinds: edgeKinds(p.Kinds), Depth: p.Depth,
		ConfidenceFloor: p.ConfidenceFloor, Langs: p.Languages, GV: gv,
	})
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	return &Response{Data: res, NextHops: fromAnalyticsHops(res.NextHops)}, nil
}

func handleAnalyzeDiff(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p AnalyzeDiffParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.DiffText == "" && len(p.Paths) == 0 {
		return nil, lidxerrors.NewRPCInvalidInput("analyze_diff requires diff_text or paths")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	res, err := analytics.AnalyzeDiff(ctx, d.store, analytics.AnalyzeDiffRequest{
		DiffText: p.DiffText, Paths: p.Paths, MaxDepth: p.MaxDepth, Langs: p.Languages, GV: gv,
	})
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	return &Response{Data: res, NextHops: fromAnalyticsHops(res.NextHops)}, nil
}
