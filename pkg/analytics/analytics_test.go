package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/lidx/pkg/graph"
)

// buildFixture indexes a small call chain A -> B -> C, a container D with
// methods D.e/D.f, a test function that calls A, and a channel-bridge pair,
// all at a single graph version, returning the store and gv for reuse.
func buildFixture(t *testing.T) (*graph.SQLiteStore, int64) {
	t.Helper()
	ctx := context.Background()
	store, err := graph.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	gv, err := store.NewGraphVersion(ctx, "sha1")
	require.NoError(t, err)

	fileID, err := store.UpsertFile(ctx, "pkg/a.go", "h1", "go", 100, 0, gv)
	require.NoError(t, err)
	ids, err := store.InsertSymbols(ctx, fileID, "pkg/a.go", []graph.SymbolInput{
		{Kind: graph.KindFunction, Name: "A", Qualname: "pkg.A", Signature: "func A()", StartLine: 1, EndLine: 3},
		{Kind: graph.KindFunction, Name: "B", Qualname: "pkg.B", Signature: "func B()", StartLine: 4, EndLine: 6},
		{Kind: graph.KindFunction, Name: "C", Qualname: "pkg.C", Signature: "func C()", StartLine: 7, EndLine: 9},
	}, gv, "sha1")
	require.NoError(t, err)
	symbolMap := map[string]int64{"pkg.A": ids[0], "pkg.B": ids[1], "pkg.C": ids[2]}

	testFileID, err := store.UpsertFile(ctx, "pkg/a_test.go", "h2", "go", 50, 0, gv)
	require.NoError(t, err)
	testIDs, err := store.InsertSymbols(ctx, testFileID, "pkg/a_test.go", []graph.SymbolInput{
		{Kind: graph.KindFunction, Name: "TestA", Qualname: "pkg.TestA", StartLine: 1, EndLine: 3},
	}, gv, "sha1")
	require.NoError(t, err)
	symbolMap["pkg.TestA"] = testIDs[0]

	containerFileID, err := store.UpsertFile(ctx, "pkg/d.go", "h3", "go", 50, 0, gv)
	require.NoError(t, err)
	containerIDs, err := store.InsertSymbols(ctx, containerFileID, "pkg/d.go", []graph.SymbolInput{
		{Kind: graph.KindClass, Name: "D", Qualname: "pkg.D", StartLine: 1, EndLine: 20},
		{Kind: graph.KindMethod, Name: "E", Qualname: "pkg.D.E", StartLine: 2, EndLine: 5},
		{Kind: graph.KindMethod, Name: "F", Qualname: "pkg.D.F", StartLine: 6, EndLine: 9},
	}, gv, "sha1")
	require.NoError(t, err)
	symbolMap["pkg.D"] = containerIDs[0]
	symbolMap["pkg.D.E"] = containerIDs[1]
	symbolMap["pkg.D.F"] = containerIDs[2]

	_, err = store.InsertEdges(ctx, fileID, "pkg/a.go", []graph.EdgeInput{
		{Kind: graph.EdgeCalls, SourceQualname: "pkg.A", TargetQualname: "pkg.B"},
		{Kind: graph.EdgeCalls, SourceQualname: "pkg.B", TargetQualname: "pkg.C"},
	}, symbolMap, gv, "sha1")
	require.NoError(t, err)

	_, err = store.InsertEdges(ctx, testFileID, "pkg/a_test.go", []graph.EdgeInput{
		{Kind: graph.EdgeCalls, SourceQualname: "pkg.TestA", TargetQualname: "pkg.A"},
	}, symbolMap, gv, "sha1")
	require.NoError(t, err)

	_, err = store.InsertEdges(ctx, containerFileID, "pkg/d.go", []graph.EdgeInput{
		{Kind: graph.EdgeContains, SourceQualname: "pkg.D", TargetQualname: "pkg.D.E"},
		{Kind: graph.EdgeContains, SourceQualname: "pkg.D", TargetQualname: "pkg.D.F"},
		{Kind: graph.EdgeCalls, SourceQualname: "pkg.D.E", TargetQualname: "pkg.B"},
	}, symbolMap, gv, "sha1")
	require.NoError(t, err)

	return store, gv
}

func TestNeighbors_BFSRespectsDepthAndEndpointClosure(t *testing.T) {
	store, gv := buildFixture(t)
	ctx := context.Background()

	res, err := Neighbors(ctx, store, NeighborsRequest{Seeds: []string{"pkg.A"}, Depth: 1, GV: gv})
	require.NoError(t, err)
	require.Len(t, res.Nodes, 3) // A, its callee B and its caller TestA — depth 1

	for _, e := range res.Edges {
		var srcOK, tgtOK bool
		for _, n := range res.Nodes {
			if e.SourceSymbolID != nil && *e.SourceSymbolID == n.ID {
				srcOK = true
			}
			if e.TargetSymbolID != nil && *e.TargetSymbolID == n.ID {
				tgtOK = true
			}
		}
		require.True(t, srcOK && tgtOK)
	}
}

func TestReferences_ContainerExpandsToMembers(t *testing.T) {
	store, gv := buildFixture(t)
	ctx := context.Background()

	res, err := References(ctx, store, ReferencesRequest{Seed: "pkg.D", GV: gv})
	require.NoError(t, err)
	require.Len(t, res.Members, 3) // D, D.E, D.F
	require.Len(t, res.Out, 1)     // D.E -> B, CONTAINS filtered out
	require.Equal(t, "pkg.B", res.Out[0].Endpoint.Qualname)
}

func TestFindTestsFor_DirectTestFound(t *testing.T) {
	store, gv := buildFixture(t)
	ctx := context.Background()

	res, err := FindTestsFor(ctx, store, FindTestsForRequest{Seed: "pkg.A", GV: gv})
	require.NoError(t, err)
	require.Len(t, res.Direct, 1)
	require.Equal(t, "pkg.TestA", res.Direct[0].Symbol.Qualname)
	require.InDelta(t, 0.7, res.Direct[0].Relevance, 0.0001)
}

func TestAnalyzeImpact_DirectLayerReachesCallers(t *testing.T) {
	store, gv := buildFixture(t)
	ctx := context.Background()

	res, err := AnalyzeImpact(ctx, store, AnalyzeImpactRequest{
		Seed: "pkg.C", Layers: []ImpactLayer{LayerDirect}, Depth: 2, GV: gv,
	})
	require.NoError(t, err)

	var qualnames []string
	for _, e := range res.Entries {
		qualnames = append(qualnames, e.Symbol.Qualname)
	}
	require.Contains(t, qualnames, "pkg.B")
	require.Contains(t, qualnames, "pkg.A")
}

func TestParseUnifiedDiff_HunkRanges(t *testing.T) {
	diff := `--- a/pkg/a.go
+++ b/pkg/a.go
@@ -1,3 +1,4 @@
 package pkg
+// added comment
 func A() {
 }
`
	files := ParseUnifiedDiff(diff)
	require.Len(t, files, 1)
	require.Equal(t, "pkg/a.go", files[0].Path)
	require.Len(t, files[0].ChangedRanges, 1)
	require.Equal(t, LineRange{1, 4}, files[0].ChangedRanges[0])
	require.Len(t, files[0].AddedRanges, 1)
	require.Equal(t, LineRange{2, 2}, files[0].AddedRanges[0])
}

func TestTraceFlow_DownstreamFollowsCalls(t *testing.T) {
	store, gv := buildFixture(t)
	ctx := context.Background()

	res, err := TraceFlow(ctx, store, TraceFlowRequest{Seed: "pkg.A", Direction: TraceDownstream, MaxHops: 2, GV: gv})
	require.NoError(t, err)
	require.Len(t, res.Hops, 2)
	require.Equal(t, "pkg.B", res.Hops[0].To.Qualname)
	require.Equal(t, "pkg.C", res.Hops[1].To.Qualname)
}
