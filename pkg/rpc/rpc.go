// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package rpc implements the thin request-dispatch surface (C10, spec
// §4.10): it routes a {method, params} request to a handler over
// pkg/graph/pkg/analytics/pkg/context/pkg/search/pkg/indexer, normalises
// language/path filters, resolves the requested graph version, and projects
// "signatures"-format responses. The JSON-RPC transport itself, CLI flag
// parsing, and process lifecycle are out of scope (spec §1) — Dispatch
// returns a Go value for whatever transport a caller wires up.
package rpc

import (
	"context"
	"encoding/json"
	"log/slog"

	gathercontext "github.com/kraklabs/lidx/pkg/context"

	"github.com/kraklabs/lidx/internal/config"
	lidxerrors "github.com/kraklabs/lidx/internal/errors"
	"github.com/kraklabs/lidx/pkg/analytics"
	"github.com/kraklabs/lidx/pkg/graph"
	"github.com/kraklabs/lidx/pkg/indexer"
	"github.com/kraklabs/lidx/pkg/search"
)

// NextHop is the dispatcher's own follow-up-call envelope; it is built by
// converting whichever per-component NextHop type a handler's underlying
// call returned (analytics.NextHop and search.NextHop share this shape but
// are distinct types so each package stays independent of pkg/rpc).
type NextHop struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
	Label  string         `json:"label,omitempty"`
}

// Response is the dispatcher's successful envelope. Data carries the
// method-specific payload (a struct, slice, or map — whatever the handler
// produced); NextHops is flattened onto the envelope rather than nested
// inside Data so every method exposes continuations uniformly.
type Response struct {
	Data     any       `json:"data"`
	NextHops []NextHop `json:"next_hops,omitempty"`
}

// Format selects how a symbol-bearing response is projected.
type Format string

const (
	FormatFull       Format = "full"
	FormatSignatures Format = "signatures"
)

// Dispatcher holds everything a handler needs: the graph store, the search
// and context-assembly engines built on top of it, an optional indexer for
// the reindex/index_status methods, and the process-wide config.
type Dispatcher struct {
	store     graph.Store
	searcher  *search.Engine
	assembler *gathercontext.Assembler
	indexer   *indexer.Indexer
	cfg       config.Config
	logger    *slog.Logger
}

// NewDispatcher builds a Dispatcher. indexer may be nil if the caller never
// intends to serve index_status/reindex (e.g. a read-only query process).
func NewDispatcher(store graph.Store, searcher *search.Engine, assembler *gathercontext.Assembler, ix *indexer.Indexer, cfg config.Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, searcher: searcher, assembler: assembler, indexer: ix, cfg: cfg, logger: logger}
}

// Dispatch routes one {method, params} request. params is raw JSON so each
// handler can unmarshal into its own typed params struct, mirroring the
// teacher's `serde_json::from_value::<Params>(params)` pattern in
// rpc/handlers.rs.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) (*Response, *lidxerrors.RPCError) {
	h, ok := handlerTable[method]
	if !ok {
		return nil, lidxerrors.NewRPCInvalidInput("unknown method: " + method)
	}
	return h(ctx, d, params)
}

type handlerFunc func(ctx context.Context, d *Dispatcher, params json.RawMessage) (*Response, *lidxerrors.RPCError)

var handlerTable = map[string]handlerFunc{
	"find_symbol":          handleFindSymbol,
	"suggest_qualnames":    handleSuggestQualnames,
	"open_symbol":          handleOpenSymbol,
	"explain_symbol":       handleExplainSymbol,
	"open_file":            handleOpenFile,
	"repo_overview":        handleRepoOverview,
	"repo_insights":        handleRepoInsights,
	"module_map":           handleModuleMap,
	"repo_map":             handleRepoMap,
	"top_complexity":       handleTopComplexity,
	"duplicate_groups":     handleDuplicateGroups,
	"top_coupling":         handleTopCoupling,
	"co_changes":           handleCoChanges,
	"dead_symbols":         handleDeadSymbols,
	"unused_imports":       handleUnusedImports,
	"orphan_tests":         handleOrphanTests,
	"neighbors":            handleNeighbors,
	"subgraph":             handleSubgraph,
	"references":           handleReferences,
	"trace_flow":           handleTraceFlow,
	"route_refs":           handleRouteRefs,
	"flow_status":          handleFlowStatus,
	"find_tests_for":       handleFindTestsFor,
	"analyze_impact":       handleAnalyzeImpact,
	"analyze_diff":         handleAnalyzeDiff,
	"search_rg":            handleSearchRg,
	"search_text":          handleSearchText,
	"grep":                 handleGrep,
	"index_status":         handleIndexStatus,
	"reindex":              handleReindex,
	"gather_context":       handleGatherContext,
	"onboard":              handleOnboard,
	"changed_since":        handleChangedSince,
	"diagnostics_import":   handleDiagnosticsImport,
	"diagnostics_list":     handleDiagnosticsList,
	"diagnostics_summary":  handleDiagnosticsSummary,
}

// resolveGV resolves a caller-supplied graph version (0 means "use current").
func resolveGV(ctx context.Context, store graph.Store, requested int64) (int64, *lidxerrors.RPCError) {
	if requested > 0 {
		return requested, nil
	}
	gv, err := store.CurrentGraphVersion(ctx)
	if err != nil {
		return 0, lidxerrors.NewRPCStorage(err.Error())
	}
	return gv, nil
}

// clampLimit enforces MAX_RESPONSE_LIMIT (spec §4.10) on any list-returning
// handler's requested limit.
func (d *Dispatcher) clampLimit(requested int) int {
	return d.cfg.ClampLimit(requested)
}

func decodeParams(params json.RawMessage, out any) *lidxerrors.RPCError {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return lidxerrors.NewRPCInvalidInput("invalid params: " + err.Error())
	}
	return nil
}

// nameSuggestions returns up to 5 similar-qualname suggestions for a
// symbol-not-found error, per spec §7.
func nameSuggestions(ctx context.Context, store graph.Store, query string, langs []string, gv int64) []string {
	syms, err := store.FindSymbols(ctx, query, 5, langs, gv)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Qualname)
	}
	return out
}

// fromAnalyticsHops converts analytics.NextHop values into the dispatcher's
// own NextHop envelope.
func fromAnalyticsHops(hops []analytics.NextHop) []NextHop {
	out := make([]NextHop, 0, len(hops))
	for _, h := range hops {
		out = append(out, NextHop{Method: h.Method, Params: h.Params})
	}
	return out
}

func fromSearchHop(h *search.NextHop) []NextHop {
	if h == nil {
		return nil
	}
	return []NextHop{{Method: h.Method, Params: h.Params}}
}

// signaturesProjection strips docstrings, columns, byte offsets, and commit
// metadata from a symbol per spec §4.10's "signatures" format — used by
// handlers whose params carry format:"signatures".
func signaturesProjection(s graph.Symbol) map[string]any {
	return map[string]any{
		"id":         s.ID,
		"kind":       s.Kind,
		"name":       s.Name,
		"qualname":   s.Qualname,
		"file_path":  s.FilePath,
		"start_line": s.StartLine,
		"end_line":   s.EndLine,
		"signature":  s.Signature,
	}
}

func signaturesProjectionAll(syms []graph.Symbol) []map[string]any {
	out := make([]map[string]any, 0, len(syms))
	for _, s := range syms {
		out = append(out, signaturesProjection(s))
	}
	return out
}
