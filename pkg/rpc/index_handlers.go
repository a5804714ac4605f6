// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rpc

import (
	"context"
	"encoding/json"

	lidxerrors "github.com/kraklabs/lidx/internal/errors"
	"github.com/kraklabs/lidx/pkg/graph"
	"github.com/kraklabs/lidx/pkg/indexer"
)

func handleIndexStatus(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p IndexStatusParams
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
	commit, err := d.store.GraphVersionCommit(ctx, gv)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	return &Response{Data: map[string]any{
		"graph_version": gv,
		"commit_sha":    commit,
		"file_count":    len(files),
		"ready":         d.indexer != nil,
	}}, nil
}

// handleReindex runs a full indexer pass over a caller-supplied file list.
// This surface never scans the filesystem itself (spec §1's Non-goals) — the
// caller (a CLI watch loop, an editor plugin) is responsible for assembling
// FileToIndexParams from whatever changed.
func handleReindex(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p ReindexParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if d.indexer == nil {
		return nil, lidxerrors.NewRPCInternal("no indexer configured on this process")
	}
	files := make([]indexer.FileToIndex, 0, len(p.Files))
	for _, f := range p.Files {
		files = append(files, indexer.FileToIndex{
			RelPath: f.RelPath, Language: f.Language, Content: []byte(f.Content), MTime: f.MTime,
		})
	}
	res, err := d.indexer.Reindex(ctx, files, p.CommitSHA)
	if err != nil {
		return nil, lidxerrors.NewRPCInternal(err.Error())
	}
	return &Response{Data: res}, nil
}

func handleDiagnosticsImport(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p DiagnosticsImportParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	if len(p.Diagnostics) == 0 {
		return nil, lidxerrors.NewRPCInvalidInput("diagnostics_import requires at least one diagnostic")
	}
	diags := make([]graph.Diagnostic, 0, len(p.Diagnostics))
	for _, dg := range p.Diagnostics {
		diags = append(diags, graph.Diagnostic{
			RuleID: dg.RuleID, Severity: dg.Severity, Tool: dg.Tool,
			FilePath: dg.FilePath, Line: dg.Line, Message: dg.Message,
		})
	}
	if err := d.store.InsertDiagnostics(ctx, diags); err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	return &Response{Data: map[string]any{"imported": len(diags)}}, nil
}

func handleDiagnosticsList(ctx context.Context, d *Dispatcher, raw json.RawMessage) (*Response, *lidxerrors.RPCError) {
	var p DiagnosticsListParams
	if rerr := decodeParams(raw, &p); rerr != nil {
		return nil, rerr
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	limit = d.clampLimit(limit)
	diags, err := d.store.ListDiagnostics(ctx, p.Severity, p.Path, limit)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	return &Response{Data: diags}, nil
}

func handleDiagnosticsSummary(ctx context.Context, d *Dispatcher, _ json.RawMessage) (*Response, *lidxerrors.RPCError) {
	summary, err := d.store.DiagnosticsSummary(ctx)
	if err != nil {
		return nil, lidxerrors.NewRPCStorage(err.Error())
	}
	return &Response{Data: summary}, nil
}
