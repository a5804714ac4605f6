// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/lidx/internal/config"
	gathercontext "github.com/kraklabs/lidx/pkg/context"
	lidxerrors "github.com/kraklabs/lidx/internal/errors"
	"github.com/kraklabs/lidx/pkg/graph"
	"github.com/kraklabs/lidx/pkg/search"
)

// buildFixture seeds an in-memory store with two functions, one calling the
// other, plus a test file that exercises the caller — enough surface for
// find_symbol/open_symbol/neighbors/references/find_tests_for/analyze_impact.
func buildFixture(t *testing.T) (*graph.SQLiteStore, int64) {
	t.Helper()
	ctx := context.Background()
	store, err := graph.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	gv, err := store.NewGraphVersion(ctx, "sha1")
	require.NoError(t, err)

	aFileID, err := store.UpsertFile(ctx, "pkg/a.go", "ha", "go", 100, 0, gv)
	require.NoError(t, err)
	aIDs, err := store.InsertSymbols(ctx, aFileID, "pkg/a.go", []graph.SymbolInput{
		{Kind: graph.KindFunction, Name: "DoWork", Qualname: "pkg.DoWork", Signature: "func DoWork() error",
			StartLine: 3, EndLine: 8, StartByte: 20, EndByte: 90},
	}, gv, "sha1")
	require.NoError(t, err)

	bFileID, err := store.UpsertFile(ctx, "pkg/b.go", "hb", "go", 100, 0, gv)
	require.NoError(t, err)
	bIDs, err := store.InsertSymbols(ctx, bFileID, "pkg/b.go", []graph.SymbolInput{
		{Kind: graph.KindFunction, Name: "Caller", Qualname: "pkg.Caller", Signature: "func Caller() error",
			StartLine: 1, EndLine: 5, StartByte: 0, EndByte: 60},
	}, gv, "sha1")
	require.NoError(t, err)

	symbolMap := map[string]int64{"pkg.DoWork": aIDs[0], "pkg.Caller": bIDs[0]}
	_, err = store.InsertEdges(ctx, bFileID, "pkg/b.go", []graph.EdgeInput{
		{Kind: graph.EdgeCalls, SourceQualname: "pkg.Caller", TargetQualname: "pkg.DoWork"},
	}, symbolMap, gv, "sha1")
	require.NoError(t, err)

	testFileID, err := store.UpsertFile(ctx, "pkg/a_test.go", "ht", "go", 50, 0, gv)
	require.NoError(t, err)
	testIDs, err := store.InsertSymbols(ctx, testFileID, "pkg/a_test.go", []graph.SymbolInput{
		{Kind: graph.KindFunction, Name: "TestDoWork", Qualname: "pkg.TestDoWork", Signature: "func TestDoWork(t *testing.T)",
			StartLine: 1, EndLine: 6, StartByte: 0, EndByte: 70},
	}, gv, "sha1")
	require.NoError(t, err)
	symbolMap["pkg.TestDoWork"] = testIDs[0]
	_, err = store.InsertEdges(ctx, testFileID, "pkg/a_test.go", []graph.EdgeInput{
		{Kind: graph.EdgeCalls, SourceQualname: "pkg.TestDoWork", TargetQualname: "pkg.DoWork"},
	}, symbolMap, gv, "sha1")
	require.NoError(t, err)

	return store, gv
}

func fakeReader(files map[string]string) gathercontext.FileReader {
	return func(path string) (string, error) {
		if text, ok := files[path]; ok {
			return text, nil
		}
		return "", fmt.Errorf("no such file %q", path)
	}
}

func buildDispatcher(t *testing.T, store *graph.SQLiteStore) *Dispatcher {
	t.Helper()
	reader := fakeReader(map[string]string{
		"pkg/a.go":      "package pkg\n\nfunc DoWork() error {\n\treturn nil\n}\n",
		"pkg/b.go":      "package pkg\n\nfunc Caller() error {\n\treturn DoWork()\n}\n",
		"pkg/a_test.go": "package pkg\n\nfunc TestDoWork(t *testing.T) {\n\tDoWork()\n}\n",
	})
	searcher := search.NewEngine(store, nil)
	assembler := gathercontext.NewAssembler(store, searcher, reader)
	return NewDispatcher(store, searcher, assembler, nil, config.Default(), nil)
}

func rawParams(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDispatch_UnknownMethod(t *testing.T) {
	store, _ := buildFixture(t)
	d := buildDispatcher(t, store)
	_, rerr := d.Dispatch(context.Background(), "not_a_method", nil)
	require.NotNil(t, rerr)
	require.Equal(t, lidxerrors.RPCKindInvalidInput, rerr.Kind)
}

func TestFindSymbol(t *testing.T) {
	store, _ := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "find_symbol", rawParams(t, FindSymbolParams{Query: "pkg.DoWork"}))
	require.Nil(t, rerr)
	syms, ok := resp.Data.([]graph.Symbol)
	require.True(t, ok)
	require.Len(t, syms, 1)
	require.Equal(t, "pkg.DoWork", syms[0].Qualname)
}

func TestOpenSymbol_NotFoundReturnsNotFoundKind(t *testing.T) {
	store, _ := buildFixture(t)
	d := buildDispatcher(t, store)
	_, rerr := d.Dispatch(context.Background(), "open_symbol", rawParams(t, OpenSymbolParams{Qualname: "pkg.DoesNotExist"}))
	require.NotNil(t, rerr)
	require.Equal(t, lidxerrors.RPCKindNotFound, rerr.Kind)
}

func TestOpenSymbol_ReturnsSnippetAndNextHops(t *testing.T) {
	store, _ := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "open_symbol", rawParams(t, OpenSymbolParams{Qualname: "pkg.DoWork"}))
	require.Nil(t, rerr)
	payload, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Contains(t, payload, "snippet")
	require.Contains(t, payload, "symbol")
	require.NotEmpty(t, resp.NextHops)
}

func TestNeighbors(t *testing.T) {
	store, gv := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "neighbors", rawParams(t, NeighborsParams{
		Qualname: "pkg.Caller", Depth: 1, GraphVersion: gv,
	}))
	require.Nil(t, rerr)
	require.NotNil(t, resp.Data)
}

func TestSubgraph_MissingRootReportsNotFound(t *testing.T) {
	store, gv := buildFixture(t)
	d := buildDispatcher(t, store)
	_, rerr := d.Dispatch(context.Background(), "subgraph", rawParams(t, SubgraphParams{
		StartQualnames: []string{"pkg.NoSuchSymbol"}, GraphVersion: gv,
	}))
	require.NotNil(t, rerr)
	require.Equal(t, lidxerrors.RPCKindNotFound, rerr.Kind)
}

func TestReferences(t *testing.T) {
	store, gv := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "references", rawParams(t, ReferencesParams{
		Qualname: "pkg.DoWork", GraphVersion: gv,
	}))
	require.Nil(t, rerr)
	require.NotNil(t, resp.Data)
}

func TestFindTestsFor(t *testing.T) {
	store, gv := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "find_tests_for", rawParams(t, FindTestsForParams{
		Qualname: "pkg.DoWork", GraphVersion: gv,
	}))
	require.Nil(t, rerr)
	require.NotNil(t, resp.Data)
}

func TestAnalyzeDiff_RequiresInput(t *testing.T) {
	store, _ := buildFixture(t)
	d := buildDispatcher(t, store)
	_, rerr := d.Dispatch(context.Background(), "analyze_diff", rawParams(t, AnalyzeDiffParams{}))
	require.NotNil(t, rerr)
	require.Equal(t, lidxerrors.RPCKindInvalidInput, rerr.Kind)
}

func TestAnalyzeDiff_ReportsImpactedFile(t *testing.T) {
	store, gv := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "analyze_diff", rawParams(t, AnalyzeDiffParams{
		Paths: []string{"pkg/a.go"}, GraphVersion: gv,
	}))
	require.Nil(t, rerr)
	require.NotNil(t, resp.Data)
}

func TestGatherContext(t *testing.T) {
	store, gv := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "gather_context", rawParams(t, GatherContextParams{
		Seeds:        []GatherContextSeedParams{{Kind: "symbol", Qualname: "pkg.DoWork"}},
		GraphVersion: gv,
	}))
	require.Nil(t, rerr)
	require.NotNil(t, resp.Data)
}

func TestDiagnosticsRoundTrip(t *testing.T) {
	store, _ := buildFixture(t)
	d := buildDispatcher(t, store)
	ctx := context.Background()

	_, rerr := d.Dispatch(ctx, "diagnostics_import", rawParams(t, DiagnosticsImportParams{
		Diagnostics: []DiagnosticParams{
			{RuleID: "no-unused", Severity: "warning", Tool: "staticcheck", FilePath: "pkg/a.go", Line: 4, Message: "unused var"},
		},
	}))
	require.Nil(t, rerr)

	resp, rerr := d.Dispatch(ctx, "diagnostics_list", rawParams(t, DiagnosticsListParams{Path: "pkg/a.go"}))
	require.Nil(t, rerr)
	diags, ok := resp.Data.([]graph.Diagnostic)
	require.True(t, ok)
	require.Len(t, diags, 1)

	resp, rerr = d.Dispatch(ctx, "diagnostics_summary", nil)
	require.Nil(t, rerr)
	summary, ok := resp.Data.(map[string]int)
	require.True(t, ok)
	require.Equal(t, 1, summary["warning"])
}

func TestRepoOverview(t *testing.T) {
	store, gv := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "repo_overview", rawParams(t, RepoOverviewParams{GraphVersion: gv}))
	require.Nil(t, rerr)
	payload, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 3, payload["file_count"])
}

func TestDeadSymbols_ExcludesCalledFunctions(t *testing.T) {
	store, gv := buildFixture(t)
	d := buildDispatcher(t, store)
	resp, rerr := d.Dispatch(context.Background(), "dead_symbols", rawParams(t, DeadSymbolsParams{GraphVersion: gv}))
	require.Nil(t, rerr)
	dead, ok := resp.Data.([]graph.Symbol)
	require.True(t, ok)
	for _, s := range dead {
		require.NotEqual(t, "pkg.DoWork", s.Qualname)
	}
}
