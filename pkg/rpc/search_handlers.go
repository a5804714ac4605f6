// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rpc

import (
	"context"
	"encoding/json"
	"time"

	gathercontext "github.com/kraklabs/lidx/pkg/context"
	lidxerrors "github.com/kraklabs/lidx/internal/errors"
	"github.com/kraklabs/lidx/pkg/search"
)

// runSearch is the shared search_rg/search_text/grep implementation — spec
// §6 lists all three as distinct RPC methods but §4.9 describes one engine,
// so all three dispatch through the same call with different defaults.
func runSearch(ctx context.Context, d *Dispatcher, p SearchParams, fixedString bool) (*Response, *lidxerrors.RPCError) {
	if p.Query == "" {
		return nil, lidxerrors.NewRPCInvalidInput("search requires a non-empty query")
	}
	if d.searcher == nil {
		return nil, lidxerrors.NewRPCInternal("no search engine configured")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	limit = d.clampLimit(limit)
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	timeout := d.cfg.SearchTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	res, err := d.searcher.Search(ctx, search.Request{
		Query: p.Query, Root: p.Root, Scope: search.Scope(p.Scope),
		CaseSensitive: p.CaseSensitive, FixedString: p.FixedString || fixedString,
		Hidden: p.Hidden, NoIgnore: p.NoIgnore, Globs: p.Globs,
		Limit: limit, ContextLines: p.ContextLines, Timeout: timeout,
		GV: gv, CandidatePaths: p.CandidatePaths,
	})
	if err != nil {
		return nil, lidxerrors.NewRPCExternalTool(err.Error())
	}
	var hops []NextHop
	for _, h := range res.Hits {
		if h.NextHop != nil {
			hops = fromSearchHop(h.NextHop)
			break
		}
	}
	return &Response{Data: res, NextHops: hops}, nil
}

func handleSearchRg(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p SearchParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	return runSearch(ctx, d, p, false)
}

func handleSearchText(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p SearchParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	return runSearch(ctx, d, p, true)
}

// handleGrep is an alias RPC method for raw regex search, kept distinct from
// search_rg/search_text in the method table because the original CLI
// surfaces it as its own command (spec §6's method list) even though it
// dispatches identically.
func handleGrep(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p SearchParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	return runSearch(ctx, d, p, false)
}

func handleGatherContext(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p GatherContextParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if len(p.Seeds) == 0 {
		return nil, lidxerrors.NewRPCInvalidInput("gather_context requires at least one seed")
	}
	if d.assembler == nil {
		return nil, lidxerrors.NewRPCInternal("no context assembler configured")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	seeds := make([]gathercontext.Seed, 0, len(p.Seeds))
	for _, s := range p.Seeds {
		seeds = append(seeds, gathercontext.Seed{
			Kind: gathercontext.SeedKind(s.Kind), Qualname: s.Qualname,
			Path: s.Path, StartLine: s.StartLine, EndLine: s.EndLine, Query: s.Query,
		})
	}
	res, err := d.assembler.Gather(ctx, gathercontext.Request{
		Seeds: seeds, ByteBudget: p.ByteBudget, Depth: p.Depth, MaxNodes: p.MaxNodes,
		Strategy: gathercontext.Strategy(p.Strategy), DryRun: p.DryRun,
		RepoRoot: p.RepoRoot, Langs: p.Languages, GV: gv,
	})
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	return &Response{Data: res}, nil
}
