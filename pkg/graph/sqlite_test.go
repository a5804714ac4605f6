package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_InsertAndQuerySymbols(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	gv, err := s.NewGraphVersion(ctx, "abc123")
	require.NoError(t, err)

	fileID, err := s.UpsertFile(ctx, "pkg/foo.go", "hash1", "go", 100, 0, gv)
	require.NoError(t, err)

	ids, err := s.InsertSymbols(ctx, fileID, "pkg/foo.go", []SymbolInput{
		{Kind: KindFunction, Name: "Foo", Qualname: "pkg.Foo", Signature: "func Foo()", StartLine: 1, EndLine: 3},
	}, gv, "abc123")
	require.NoError(t, err)
	require.Len(t, ids, 1)

	sym, err := s.GetSymbolByQualname(ctx, "pkg.Foo", gv)
	require.NoError(t, err)
	require.NotNil(t, sym)
	require.Equal(t, "Foo", sym.Name)
	require.NotEmpty(t, sym.StableID)
}

func TestSQLiteStore_InsertEdgesResolvesSymbolMap(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	gv, _ := s.NewGraphVersion(ctx, "")
	fileID, _ := s.UpsertFile(ctx, "pkg/foo.go", "h", "go", 10, 0, gv)
	ids, err := s.InsertSymbols(ctx, fileID, "pkg/foo.go", []SymbolInput{
		{Kind: KindFunction, Name: "Foo", Qualname: "pkg.Foo", StartLine: 1, EndLine: 2},
		{Kind: KindFunction, Name: "Bar", Qualname: "pkg.Bar", StartLine: 3, EndLine: 4},
	}, gv, "")
	require.NoError(t, err)

	symbolMap := map[string]int64{"pkg.Foo": ids[0], "pkg.Bar": ids[1]}
	n, err := s.InsertEdges(ctx, fileID, "pkg/foo.go", []EdgeInput{
		{Kind: EdgeCalls, SourceQualname: "pkg.Foo", TargetQualname: "pkg.Bar"},
	}, symbolMap, gv, "")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	edges, err := s.EdgesForSymbol(ctx, ids[0], nil, gv)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.NotNil(t, edges[0].TargetSymbolID)
	require.Equal(t, ids[1], *edges[0].TargetSymbolID)
}

func TestSQLiteStore_DeleteFileSymbolsAndEdges(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	gv, _ := s.NewGraphVersion(ctx, "")
	fileID, _ := s.UpsertFile(ctx, "pkg/foo.go", "h", "go", 10, 0, gv)
	s.InsertSymbols(ctx, fileID, "pkg/foo.go", []SymbolInput{{Kind: KindFunction, Name: "Foo", Qualname: "pkg.Foo"}}, gv, "")
	s.InsertEdges(ctx, fileID, "pkg/foo.go", []EdgeInput{{Kind: EdgeCalls, SourceQualname: "pkg.Foo", TargetQualname: "pkg.Bar"}}, nil, gv, "")

	require.NoError(t, s.DeleteFileSymbolsAndEdges(ctx, "pkg/foo.go", gv))

	syms, err := s.GetSymbolsForFile(ctx, "pkg/foo.go", gv)
	require.NoError(t, err)
	require.Empty(t, syms)
}

func TestSQLiteStore_CopyFileForward(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	gv1, _ := s.NewGraphVersion(ctx, "")
	fileID, _ := s.UpsertFile(ctx, "pkg/foo.go", "h", "go", 10, 0, gv1)
	s.InsertSymbols(ctx, fileID, "pkg/foo.go", []SymbolInput{{Kind: KindFunction, Name: "Foo", Qualname: "pkg.Foo"}}, gv1, "")
	s.InsertEdges(ctx, fileID, "pkg/foo.go", []EdgeInput{{Kind: EdgeCalls, SourceQualname: "pkg.Foo", TargetQualname: "pkg.Bar"}}, nil, gv1, "")

	gv2, _ := s.NewGraphVersion(ctx, "")
	require.NoError(t, s.CopyFileForward(ctx, "pkg/foo.go", gv1, gv2))

	syms, err := s.GetSymbolsForFile(ctx, "pkg/foo.go", gv2)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	require.Equal(t, "pkg.Foo", syms[0].Qualname)
}

func TestSQLiteStore_ResolveNullTargetEdges(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	gv, _ := s.NewGraphVersion(ctx, "")
	fileID, _ := s.UpsertFile(ctx, "pkg/foo.go", "h", "go", 10, 0, gv)
	s.InsertSymbols(ctx, fileID, "pkg/foo.go", []SymbolInput{{Kind: KindFunction, Name: "Bar", Qualname: "pkg.Bar"}}, gv, "")
	// Edge inserted with no symbolMap -> target_symbol_id starts NULL.
	s.InsertEdges(ctx, fileID, "pkg/foo.go", []EdgeInput{{Kind: EdgeCalls, SourceQualname: "pkg.Foo", TargetQualname: "pkg.Bar"}}, nil, gv, "")

	n, err := s.ResolveNullTargetEdges(ctx, gv)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
