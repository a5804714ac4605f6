// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	lidxerrors "github.com/kraklabs/lidx/internal/errors"
	"github.com/kraklabs/lidx/pkg/graph"
)

func edgeKinds(ss []string) []graph.EdgeKind {
	if ss == nil {
		return nil
	}
	out := make([]graph.EdgeKind, 0, len(ss))
	for _, s := range ss {
		out = append(out, graph.EdgeKind(s))
	}
	return out
}

func handleFindSymbol(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p FindSymbolParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.Query == "" {
		return nil, lidxerrors.NewRPCInvalidInput("find_symbol requires a non-empty query")
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
	syms, err := d.store.FindSymbols(ctx, p.Query, limit, p.Languages, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}

	if Format(p.Format) == FormatSignatures {
		var hops []NextHop
		if len(syms) > 0 {
			hops = []NextHop{{Method: "open_symbol", Params: map[string]any{"id": syms[0].ID}, Label: "Open " + syms[0].Name}}
		}
		return &Response{Data: signaturesProjectionAll(syms), NextHops: hops}, nil
	}
	return &Response{Data: syms}, nil
}

func handleSuggestQualnames(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p SuggestQualnamesParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	limit = d.clampLimit(limit)
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}

	syms, err := d.store.FindSymbols(ctx, p.Query, limit, p.Languages, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	if len(syms) == 0 && len(p.Query) >= 3 {
		id, ok, err := d.store.LookupSymbolIDFuzzy(ctx, p.Query, p.Languages, gv)
		if err != nil {
			return nil, lidxerrors.NewRPCStorage(err.Error())
		}
		if ok {
			s, err := d.store.GetSymbolByID(ctx, id)
			if err != nil {
				return nil, lidxerrors.NewRPCStorage(err.Error())
			}
			if s != nil {
				syms = append(syms, *s)
			}
		}
		if len(syms) == 0 {
			more, err := d.store.FindSymbolsByNamePrefix(ctx, p.Query, limit, p.Languages, gv)
			if err == nil {
				syms = more
			}
		}
	}

	suggestions := make([]map[string]any, 0, len(syms))
	for _, s := range syms {
		suggestions = append(suggestions, map[string]any{
			"qualname": s.Qualname, "kind": s.Kind, "file_path": s.FilePath,
		})
	}
	return &Response{Data: suggestions}, nil
}

func handleOpenSymbol(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p OpenSymbolParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}

	var sym *graph.Symbol
	var err error
	switch {
	case p.ID != 0:
		sym, err = d.store.GetSymbolByID(ctx, p.ID)
	case p.Qualname != "":
		sym, err = d.store.GetSymbolByQualname(ctx, p.Qualname, gv)
	default:
		return nil, lidxerrors.NewRPCInvalidInput("open_symbol requires id or qualname")
	}
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	if sym == nil {
		return nil, lidxerrors.NewRPCNotFound("symbol not found", nameSuggestions(ctx, d.store, p.Qualname, nil, gv))
	}

	includeSnippet := p.IncludeSnippet == nil || *p.IncludeSnippet
	includeSymbol := true
	if p.SnippetOnly {
		includeSymbol = false
	} else if p.IncludeSymbol != nil {
		includeSymbol = *p.IncludeSymbol
	}

	payload := map[string]any{}
	if includeSymbol {
		payload["symbol"] = sym
	}
	if includeSnippet {
		snippet, serr := d.readSymbolSnippet(*sym, p.MaxSnippetBytes)
		if serr != nil {
			return nil, lidxerrors.NewRPCStorage(serr.Error())
		}
		payload["snippet"] = snippet
	}

	var hops []NextHop
	if !p.SnippetOnly {
		hops = referenceHops(*sym, gv)
	}
	return &Response{Data: payload, NextHops: hops}, nil
}

// readSymbolSnippet reads the symbol's byte range from disk via the
// dispatcher's file reader, falling back to the line range when the byte
// offsets don't slice cleanly (e.g. a stale index).
func (d *Dispatcher) readSymbolSnippet(sym graph.Symbol, maxBytes int) (string, error) {
	if d.assembler == nil {
		return "", nil
	}
	return d.assembler.ReadSnippet(sym, maxBytes)
}

// referenceHops builds the standard "keep exploring from here" suggestions
// for a resolved symbol.
func referenceHops(sym graph.Symbol, gv int64) []NextHop {
	return []NextHop{
		{Method: "references", Params: map[string]any{"qualname": sym.Qualname, "graph_version": gv}, Label: "References to " + sym.Name},
		{Method: "neighbors", Params: map[string]any{"qualname": sym.Qualname, "graph_version": gv}, Label: "Neighbors of " + sym.Name},
		{Method: "find_tests_for", Params: map[string]any{"qualname": sym.Qualname, "graph_version": gv}, Label: "Tests for " + sym.Name},
	}
}

func handleExplainSymbol(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p ExplainSymbolParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	var sym *graph.Symbol
	var err error
	switch {
	case p.ID != 0:
		sym, err = d.store.GetSymbolByID(ctx, p.ID)
	case p.Qualname != "":
		sym, err = d.store.GetSymbolByQualname(ctx, p.Qualname, gv)
	default:
		return nil, lidxerrors.NewRPCInvalidInput("explain_symbol requires id or qualname")
	}
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	if sym == nil {
		return nil, lidxerrors.NewRPCNotFound(fmt.Sprintf("symbol not found: %s", p.Qualname), nameSuggestions(ctx, d.store, p.Qualname, p.Languages, gv))
	}

	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 40000
	}
	if maxBytes > 200000 {
		maxBytes = 200000
	}
	maxRefs := p.MaxRefs
	if maxRefs <= 0 {
		maxRefs = 10
	}
	sections := p.Sections
	if len(sections) == 0 {
		sections = []string{"source", "callers", "callees", "tests", "implements"}
	}

	payload := map[string]any{"symbol": sym}
	for _, sec := range sections {
		switch sec {
		case "source":
			snippet, _ := d.readSymbolSnippet(*sym, maxBytes)
			payload["source"] = snippet
		case "callers":
			edges, err := d.store.EdgesForSymbol(ctx, sym.ID, p.Languages, gv)
			if err == nil {
				payload["callers"] = filterEdgesInboundKind(edges, sym.ID, graph.EdgeCalls, maxRefs)
			}
		case "callees":
			edges, err := d.store.EdgesForSymbol(ctx, sym.ID, p.Languages, gv)
			if err == nil {
				payload["callees"] = filterEdgesOutboundKind(edges, sym.ID, graph.EdgeCalls, maxRefs)
			}
		case "tests":
			res, err := runFindTestsFor(ctx, d, sym.Qualname, 1, p.Languages, gv)
			if err == nil {
				payload["tests"] = res
			}
		case "implements":
			edges, err := d.store.EdgesForSymbol(ctx, sym.ID, p.Languages, gv)
			if err == nil {
				payload["implements"] = filterEdgesOutboundKind(edges, sym.ID, graph.EdgeImplements, maxRefs)
			}
		}
	}
	return &Response{Data: payload, NextHops: referenceHops(*sym, gv)}, nil
}

func filterEdgesOutboundKind(edges []graph.Edge, id int64, kind graph.EdgeKind, limit int) []graph.Edge {
	var out []graph.Edge
	for _, e := range edges {
		if e.Kind != kind {
			continue
		}
		if e.SourceSymbolID != nil && *e.SourceSymbolID == id {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

func filterEdgesInboundKind(edges []graph.Edge, id int64, kind graph.EdgeKind, limit int) []graph.Edge {
	var out []graph.Edge
	for _, e := range edges {
		if e.Kind != kind {
			continue
		}
		if e.TargetSymbolID != nil && *e.TargetSymbolID == id {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

func handleOpenFile(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p OpenFileParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if p.Path == "" {
		return nil, lidxerrors.NewRPCInvalidInput("open_file requires path")
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	file, err := d.store.GetFile(ctx, p.Path, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	if file == nil {
		return nil, lidxerrors.NewRPCNotFound("file not found: "+p.Path, nil)
	}
	syms, err := d.store.GetSymbolsForFile(ctx, p.Path, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	content := ""
	if d.assembler != nil {
		content, _ = d.assembler.ReadFileRange(p.Path, p.StartLine, p.EndLine)
	}
	return &Response{Data: map[string]any{"file": file, "symbols": syms, "content": content}}, nil
}
