// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rpc

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	lidxerrors "github.com/kraklabs/lidx/internal/errors"
	"github.com/kraklabs/lidx/pkg/graph"
)

// isTestLikePath mirrors spec §4.7's find-tests-for heuristic: a symbol
// looks like a test when its file path contains "test"/"spec" or its name
// starts with a test-ish prefix.
func isTestLikePath(path, name string) bool {
	lower := strings.ToLower(path)
	if strings.Contains(lower, "test") || strings.Contains(lower, "spec") {
		return true
	}
	return strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "Test")
}

func allSymbolsAt(ctx context.Context, store graph.Store, gv int64) ([]graph.Symbol, []graph.File, error) {
	files, err := store.ListFiles(ctx, gv)
	if err != nil {
		return nil, nil, err
	}
	var syms []graph.Symbol
	for _, f := range files {
		fs, err := store.GetSymbolsForFile(ctx, f.RelPath, gv)
		if err != nil {
			return nil, nil, err
		}
		syms = append(syms, fs...)
	}
	return syms, files, nil
}

func handleRepoOverview(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p RepoOverviewParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	syms, files, err := allSymbolsAt(ctx, d.store, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	byLang := map[string]int{}
	for _, f := range files {
		byLang[f.Language]++
	}
	byKind := map[graph.SymbolKind]int{}
	for _, s := range syms {
		byKind[s.Kind]++
	}
	commit, _ := d.store.GraphVersionCommit(ctx, gv)
	return &Response{Data: map[string]any{
		"graph_version":   gv,
		"commit_sha":      commit,
		"file_count":      len(files),
		"symbol_count":    len(syms),
		"files_by_lang":   byLang,
		"symbols_by_kind": byKind,
	}}, nil
}

func handleRepoInsights(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p RepoInsightsParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	limit = d.clampLimit(limit)

	overview, rerr := handleRepoOverview(ctx, d, mustJSON(RepoOverviewParams{GraphVersion: p.GraphVersion}))
	if rerr != nil {
		return nil, rerr
	}
	complexity, rerr := handleTopComplexity(ctx, d, mustJSON(TopComplexityParams{GraphVersion: p.GraphVersion, Limit: limit}))
	if rerr != nil {
		return nil, rerr
	}
	coupling, rerr := handleTopCoupling(ctx, d, mustJSON(TopCouplingParams{GraphVersion: p.GraphVersion, Limit: limit}))
	if rerr != nil {
		return nil, rerr
	}
	dead, rerr := handleDeadSymbols(ctx, d, mustJSON(DeadSymbolsParams{GraphVersion: p.GraphVersion, Limit: limit}))
	if rerr != nil {
		return nil, rerr
	}
	return &Response{Data: map[string]any{
		"overview":        overview.Data,
		"top_complexity":  complexity.Data,
		"top_coupling":    coupling.Data,
		"dead_symbols":    dead.Data,
	}}, nil
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func handleModuleMap(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p ModuleMapParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	files, err := d.store.ListFiles(ctx, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	modules := map[string][]string{}
	for _, f := range files {
		if p.PathPrefix != "" && !strings.HasPrefix(f.RelPath, p.PathPrefix) {
			continue
		}
		mod := filepath.Dir(f.RelPath)
		modules[mod] = append(modules[mod], f.RelPath)
	}
	return &Response{Data: modules}, nil
}

func handleRepoMap(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p RepoMapParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	files, err := d.store.ListFiles(ctx, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	counts := map[string]int{}
	for _, f := range files {
		parts := strings.Split(f.RelPath, "/")
		if len(parts) > maxDepth {
			parts = parts[:maxDepth]
		}
		dir := strings.Join(parts[:len(parts)-1], "/")
		if dir == "" {
			dir = "."
		}
		counts[dir]++
	}
	return &Response{Data: counts}, nil
}

// symbolComplexity is a proxy metric: line count of the symbol's span. The
// store's narrow interface doesn't expose a cyclomatic-complexity column
// (spec §4.4 lists `top_complexity` as a store aggregate; here it's
// computed in Go over symbols already fetched for other purposes).
func symbolComplexity(s graph.Symbol) int {
	return s.EndLine - s.StartLine + 1
}

func handleTopComplexity(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p TopComplexityParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	limit = d.clampLimit(limit)

	syms, _, err := allSymbolsAt(ctx, d.store, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	var callables []graph.Symbol
	for _, s := range syms {
		if s.Kind == graph.KindFunction || s.Kind == graph.KindMethod {
			if len(p.Languages) > 0 && !langMatches(s.FilePath, p.Languages) {
				continue
			}
			callables = append(callables, s)
		}
	}
	sort.Slice(callables, func(i, j int) bool { return symbolComplexity(callables[i]) > symbolComplexity(callables[j]) })
	if len(callables) > limit {
		callables = callables[:limit]
	}
	out := make([]map[string]any, 0, len(callables))
	for _, s := range callables {
		out = append(out, map[string]any{"symbol": s, "complexity": symbolComplexity(s)})
	}
	return &Response{Data: out}, nil
}

func langMatches(path string, langs []string) bool {
	for _, l := range langs {
		if strings.HasSuffix(path, "."+strings.TrimPrefix(l, ".")) {
			return true
		}
	}
	return false
}

func handleDuplicateGroups(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p DuplicateGroupsParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	limit = d.clampLimit(limit)

	syms, _, err := allSymbolsAt(ctx, d.store, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	groups := map[string][]graph.Symbol{}
	for _, s := range syms {
		if s.Signature == "" || (s.Kind != graph.KindFunction && s.Kind != graph.KindMethod) {
			continue
		}
		key := string(s.Kind) + "|" + s.Name + "|" + s.Signature
		groups[key] = append(groups[key], s)
	}
	type group struct {
		Key     string         `json:"key"`
		Members []graph.Symbol `json:"members"`
	}
	var dups []group
	for k, members := range groups {
		if len(members) > 1 {
			dups = append(dups, group{Key: k, Members: members})
		}
	}
	sort.Slice(dups, func(i, j int) bool { return len(dups[i].Members) > len(dups[j].Members) })
	if len(dups) > limit {
		dups = dups[:limit]
	}
	return &Response{Data: dups}, nil
}

func handleTopCoupling(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p TopCouplingParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	gv, rerr := resolveGV(ctx, d.store, p.GraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	limit = d.clampLimit(limit)

	syms, _, err := allSymbolsAt(ctx, d.store, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	ids := make([]int64, 0, len(syms))
	byID := map[int64]graph.Symbol{}
	for _, s := range syms {
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}
	edgesByID, err := d.store.EdgesForSymbols(ctx, ids, nil, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	fileCoupling := map[string]map[string]bool{}
	for id, edges := range edgesByID {
		src := byID[id]
		for _, e := range edges {
			var otherID int64
			var ok bool
			if e.SourceSymbolID != nil && *e.SourceSymbolID == id && e.TargetSymbolID != nil {
				otherID, ok = *e.TargetSymbolID, true
			} else if e.TargetSymbolID != nil && *e.TargetSymbolID == id && e.SourceSymbolID != nil {
				otherID, ok = *e.SourceSymbolID, true
			}
			if !ok {
				continue
			}
			other, present := byID[otherID]
			if !present || other.FilePath == src.FilePath {
				continue
			}
			if fileCoupling[src.FilePath] == nil {
				fileCoupling[src.FilePath] = map[string]bool{}
			}
			fileCoupling[src.FilePath][other.FilePath] = true
		}
	}
	type hotspot struct {
		Path          string `json:"path"`
		CoupledFiles  int    `json:"coupled_files"`
	}
	var hotspots []hotspot
	for path, others := range fileCoupling {
		hotspots = append(hotspots, hotspot{Path: path, CoupledFiles: len(others)})
	}
	sort.Slice(hotspots, func(i, j int) bool { return hotspots[i].CoupledFiles > hotspots[j].CoupledFiles })
	if len(hotspots) > limit {
		hotspots = hotspots[:limit]
	}
	return &Response{Data: hotspots}, nil
}

func handleCoChanges(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p CoChangesParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if len(p.Paths) == 0 {
		return nil, lidxerrors.NewRPCInvalidInput("co_changes requires paths")
	}
	facts, err := d.store.CoChangesForFiles(ctx, p.Paths, p.MinConfidence)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	return &Response{Data: facts}, nil
}

func handleDeadSymbols(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p DeadSymbolsParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
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

	syms, _, err := allSymbolsAt(ctx, d.store, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	ids := make([]int64, 0, len(syms))
	byID := map[int64]graph.Symbol{}
	for _, s := range syms {
		if s.Kind == graph.KindFunction || s.Kind == graph.KindMethod {
			ids = append(ids, s.ID)
			byID[s.ID] = s
		}
	}
	edgesByID, err := d.store.EdgesForSymbols(ctx, ids, p.Languages, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	hasCaller := map[int64]bool{}
	for id, edges := range edgesByID {
		for _, e := range edges {
			if e.Kind != graph.EdgeCalls && e.Kind != graph.EdgeRPCCall {
				continue
			}
			if e.TargetSymbolID != nil && *e.TargetSymbolID == id {
				hasCaller[id] = true
			}
		}
	}
	var dead []graph.Symbol
	for _, id := range ids {
		if !hasCaller[id] {
			s := byID[id]
			if isTestLikePath(s.FilePath, s.Name) || s.Name == "main" {
				continue
			}
			dead = append(dead, s)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].Qualname < dead[j].Qualname })
	if len(dead) > limit {
		dead = dead[:limit]
	}
	return &Response{Data: dead}, nil
}

// handleUnusedImports flags IMPORTS_FILE edges whose destination module has
// no CONTAINS child ever referenced by a CALLS edge from the importing
// file — an approximation of unused-import detection: the store's edge
// shapes (spec §4.2.2) don't track per-symbol import usage directly, only
// module-to-module file resolution.
func handleUnusedImports(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p UnusedImportsParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
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

	syms, _, err := allSymbolsAt(ctx, d.store, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	var unused []graph.Edge
	for _, s := range syms {
		if s.Kind != graph.KindModule {
			continue
		}
		if p.PathPrefix != "" && !strings.HasPrefix(s.FilePath, p.PathPrefix) {
			continue
		}
		edges, err := d.store.EdgesForSymbol(ctx, s.ID, nil, gv)
		if err != nil {
			continue
		}
		for _, e := range edges {
			if e.Kind != graph.EdgeImportsFile {
				continue
			}
			if e.SourceSymbolID == nil || *e.SourceSymbolID != s.ID {
				continue
			}
			if !anyCallCrossesImport(edges, e) {
				unused = append(unused, e)
				if len(unused) >= limit {
					break
				}
			}
		}
	}
	return &Response{Data: unused}, nil
}

func anyCallCrossesImport(edges []graph.Edge, imp graph.Edge) bool {
	for _, e := range edges {
		if e.Kind != graph.EdgeCalls {
			continue
		}
		if strings.HasPrefix(e.TargetQualname, imp.TargetQualname+".") {
			return true
		}
	}
	return false
}

func handleOrphanTests(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p OrphanTestsParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
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

	syms, _, err := allSymbolsAt(ctx, d.store, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	var orphans []graph.Symbol
	for _, s := range syms {
		if !isTestLikePath(s.FilePath, s.Name) {
			continue
		}
		if s.Kind != graph.KindFunction && s.Kind != graph.KindMethod {
			continue
		}
		edges, err := d.store.EdgesForSymbol(ctx, s.ID, p.Languages, gv)
		if err != nil {
			continue
		}
		callsOut := false
		for _, e := range edges {
			if e.Kind == graph.EdgeCalls && e.SourceSymbolID != nil && *e.SourceSymbolID == s.ID {
				callsOut = true
				break
			}
		}
		if !callsOut {
			orphans = append(orphans, s)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Qualname < orphans[j].Qualname })
	if len(orphans) > limit {
		orphans = orphans[:limit]
	}
	return &Response{Data: orphans}, nil
}

func handleOnboard(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p OnboardParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	insights, rerr := handleRepoInsights(ctx, d, mustJSON(RepoInsightsParams{GraphVersion: p.GraphVersion, Limit: p.Limit}))
	if rerr != nil {
		return nil, rerr
	}
	moduleMap, rerr := handleModuleMap(ctx, d, mustJSON(ModuleMapParams{GraphVersion: p.GraphVersion}))
	if rerr != nil {
		return nil, rerr
	}
	return &Response{Data: map[string]any{
		"insights":   insights.Data,
		"module_map": moduleMap.Data,
	}, NextHops: []NextHop{
		{Method: "find_symbol", Params: map[string]any{"query": ""}, Label: "Search for a symbol"},
		{Method: "repo_map", Params: map[string]any{}, Label: "Browse the repo tree"},
	}}, nil
}

func handleChangedSince(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p ChangedSinceParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	toGV, rerr := resolveGV(ctx, d.store, p.ToGraphVersion)
	if rerr != nil {
		return nil, rerr
	}
	fromGV := p.FromGraphVersion
	if fromGV <= 0 {
		fromGV = toGV - 1
	}
	oldFiles, err := d.store.ListFiles(ctx, fromGV)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	newFiles, err := d.store.ListFiles(ctx, toGV)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	oldByPath := map[string]graph.File{}
	for _, f := range oldFiles {
		oldByPath[f.RelPath] = f
	}
	newByPath := map[string]graph.File{}
	for _, f := range newFiles {
		newByPath[f.RelPath] = f
	}
	var added, modified, deleted []string
	for path, nf := range newByPath {
		of, existed := oldByPath[path]
		if !existed {
			added = append(added, path)
		} else if of.ContentHash != nf.ContentHash {
			modified = append(modified, path)
		}
	}
	for path := range oldByPath {
		if _, present := newByPath[path]; !present {
			deleted = append(deleted, path)
		}
	}
	sort.Strings(added)
	sort.Strings(modified)
	sort.Strings(deleted)
	return &Response{Data: map[string]any{
		"from_graph_version": fromGV, "to_graph_version": toGV,
		"added": added, "modified": modified, "deleted": deleted,
	}}, nil
}
