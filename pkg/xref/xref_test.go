package xref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/lidx/pkg/graph"
)

func TestNormalizeRouteLiteral(t *testing.T) {
	got, ok := normalizeRouteLiteral("/api/users/123")
	require.True(t, ok)
	require.Equal(t, "/api/users/{}", got)

	got, ok = normalizeRouteLiteral("https://example.com/api/users/:id")
	require.True(t, ok)
	require.Equal(t, "/api/users/{}", got)

	_, ok = normalizeRouteLiteral("api/users")
	require.False(t, ok)

	_, ok = normalizeRouteLiteral("./src/api/users")
	require.False(t, ok)
}

func TestScanStringLiterals_PlainAndTriple(t *testing.T) {
	src := []byte(`x = "hello world"
y = '''triple
quoted'''
`)
	lits := scanStringLiterals(src)
	require.Len(t, lits, 2)
	require.Equal(t, "hello world", lits[0].Text)
}

func TestScanStringLiterals_RustRawString(t *testing.T) {
	src := []byte(`let s = r#"raw \n string"#;`)
	lits := scanStringLiterals(src)
	require.Len(t, lits, 1)
	require.Equal(t, `raw \n string`, lits[0].Text)
}

func TestIndexResolve_CrossLanguageNameMatch(t *testing.T) {
	idx := BuildIndex([]SymbolRef{
		{Name: "create_order", Qualname: "svc.orders.create_order", Language: "python"},
	})

	match, ok := idx.Resolve("create_order", "rust")
	require.True(t, ok)
	require.Equal(t, "svc.orders.create_order", match.Symbol.Qualname)
	require.GreaterOrEqual(t, match.Confidence, MinConfidence)
}

func TestIndexResolve_SameLanguageExcluded(t *testing.T) {
	idx := BuildIndex([]SymbolRef{
		{Name: "create_order", Qualname: "svc.orders.create_order", Language: "python"},
	})
	_, ok := idx.Resolve("create_order", "python")
	require.False(t, ok)
}

func TestIndexResolve_AmbiguousTieReturnsNoMatch(t *testing.T) {
	idx := BuildIndex([]SymbolRef{
		{Name: "process_payment", Qualname: "svc.a.process_payment", Language: "python"},
		{Name: "process_payment", Qualname: "svc.b.process_payment", Language: "java"},
	})
	_, ok := idx.Resolve("process_payment", "rust")
	require.False(t, ok)
}

func TestMine_CrossLanguageXrefAndRoute(t *testing.T) {
	ctx := context.Background()
	store, err := graph.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	gv, err := store.NewGraphVersion(ctx, "sha")
	require.NoError(t, err)

	pyFileID, err := store.UpsertFile(ctx, "svc/orders.py", "h1", "python", 10, 0, gv)
	require.NoError(t, err)
	_, err = store.InsertSymbols(ctx, pyFileID, "svc/orders.py", []graph.SymbolInput{
		{Kind: graph.KindFunction, Name: "create_order", Qualname: "svc.orders.create_order", StartLine: 1, EndLine: 2},
	}, gv, "sha")
	require.NoError(t, err)

	rustSrc := "fn call_it() {\n    let name = \"create_order\";\n    let path = \"/api/orders/123\";\n}\n"
	rustFileID, err := store.UpsertFile(ctx, "svc/client.rs", "h2", "rust", int64(len(rustSrc)), 0, gv)
	require.NoError(t, err)
	_, err = store.InsertSymbols(ctx, rustFileID, "svc/client.rs", []graph.SymbolInput{
		{Kind: graph.KindFunction, Name: "call_it", Qualname: "crate::call_it", StartLine: 1, EndLine: 4},
	}, gv, "sha")
	require.NoError(t, err)

	n, err := Mine(ctx, store, []FileSource{
		{RelPath: "svc/orders.py", Language: "python", Content: []byte("def create_order():\n    pass\n")},
		{RelPath: "svc/client.rs", Language: "rust", Content: []byte(rustSrc)},
	}, gv, "sha")
	require.NoError(t, err)
	require.Greater(t, n, 0)

	incoming, err := store.IncomingEdgesByQualnamePattern(ctx, "svc.orders.create_order", []graph.EdgeKind{graph.EdgeXref}, nil, gv)
	require.NoError(t, err)
	require.NotEmpty(t, incoming)

	routeEdges, err := store.IncomingEdgesByQualnamePattern(ctx, "/api/orders/{}", []graph.EdgeKind{graph.EdgeRoute}, nil, gv)
	require.NoError(t, err)
	require.NotEmpty(t, routeEdges)
}
