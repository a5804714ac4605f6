package gathercontext

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/lidx/pkg/graph"
)

func buildStore(t *testing.T) (*graph.SQLiteStore, int64) {
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
		{Kind: graph.KindFunction, Name: "A", Qualname: "pkg.A", Signature: "func A() {}",
			StartLine: 2, EndLine: 4, StartByte: 10, EndByte: 30},
	}, gv, "sha1")
	require.NoError(t, err)

	otherFileID, err := store.UpsertFile(ctx, "pkg/b.go", "h2", "go", 100, 0, gv)
	require.NoError(t, err)
	_, err = store.InsertSymbols(ctx, otherFileID, "pkg/b.go", []graph.SymbolInput{
		{Kind: graph.KindFunction, Name: "B", Qualname: "pkg.B", Signature: "func B() {}",
			StartLine: 1, EndLine: 3, StartByte: 0, EndByte: 20},
	}, gv, "sha1")
	require.NoError(t, err)

	symbolMap := map[string]int64{"pkg.A": ids[0]}
	bIDs, err := store.GetSymbolsForFile(ctx, "pkg/b.go", gv)
	require.NoError(t, err)
	symbolMap["pkg.B"] = bIDs[0].ID

	_, err = store.InsertEdges(ctx, otherFileID, "pkg/b.go", []graph.EdgeInput{
		{Kind: graph.EdgeCalls, SourceQualname: "pkg.B", TargetQualname: "pkg.A"},
	}, symbolMap, gv, "sha1")
	require.NoError(t, err)

	return store, gv
}

func fakeReader(files map[string]string) FileReader {
	return func(path string) (string, error) {
		if text, ok := files[path]; ok {
			return text, nil
		}
		return "", fmt.Errorf("no such file %q", path)
	}
}

func TestGather_SymbolSeed_DirectAndRelated(t *testing.T) {
	store, gv := buildStore(t)
	files := map[string]string{
		"pkg/a.go": "package pkg\n\nfunc A() {\n}\n",
		"pkg/b.go": "func B() {\n  A()\n}\n",
	}
	asm := NewAssembler(store, nil, fakeReader(files))

	res, err := asm.Gather(context.Background(), Request{
		Seeds:    []Seed{{Kind: SeedSymbol, Qualname: "pkg.A"}},
		GV:       gv,
		Strategy: StrategySymbol,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)

	var sawDirectBody, sawRelated bool
	for _, it := range res.Items {
		if it.Source == SourceDirectSeed && it.Path == "pkg/a.go" && it.Tier == 0 && it.Symbol != nil {
			sawDirectBody = true
		}
		if it.Source == SourceSubgraph && it.Path == "pkg/b.go" {
			sawRelated = true
		}
	}
	require.True(t, sawDirectBody)
	require.True(t, sawRelated)
}

func TestGather_SymbolSeed_NotFoundReturnsSuggestions(t *testing.T) {
	store, gv := buildStore(t)
	asm := NewAssembler(store, nil, fakeReader(nil))

	res, err := asm.Gather(context.Background(), Request{
		Seeds: []Seed{{Kind: SeedSymbol, Qualname: "pkg.DoesNotExist"}},
		GV:    gv,
	})
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.Contains(t, res.Totals.Metadata, "seed_0_skipped")
}

func TestGather_FileSeed_RawByteRange(t *testing.T) {
	store, gv := buildStore(t)
	files := map[string]string{
		"pkg/a.go": "line1\nline2\nline3\n",
	}
	asm := NewAssembler(store, nil, fakeReader(files))

	res, err := asm.Gather(context.Background(), Request{
		Seeds: []Seed{{Kind: SeedFile, Path: "pkg/a.go", StartLine: 2, EndLine: 2}},
		GV:    gv,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	require.Equal(t, SourceDirectSeed, res.Items[0].Source)
	require.Equal(t, "line2\n", res.Items[0].Content)
}

func TestGather_FileSeed_RejectsEscapingRepoRoot(t *testing.T) {
	store, gv := buildStore(t)
	asm := NewAssembler(store, nil, fakeReader(nil))

	res, err := asm.Gather(context.Background(), Request{
		Seeds:    []Seed{{Kind: SeedFile, Path: "../../etc/passwd"}},
		GV:       gv,
		RepoRoot: "/repo",
	})
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.Contains(t, res.Totals.Metadata, "seed_0_skipped")
}

func TestGather_DryRun_NoContentButEstimatesSizes(t *testing.T) {
	store, gv := buildStore(t)
	files := map[string]string{
		"pkg/a.go": "package pkg\n\nfunc A() {\n}\n",
	}
	asm := NewAssembler(store, nil, fakeReader(files))

	res, err := asm.Gather(context.Background(), Request{
		Seeds:    []Seed{{Kind: SeedSymbol, Qualname: "pkg.A"}},
		GV:       gv,
		DryRun:   true,
		Strategy: StrategySymbol,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	for _, it := range res.Items {
		require.Empty(t, it.Content)
	}
}

func TestGather_DeterministicSortOrder(t *testing.T) {
	store, gv := buildStore(t)
	files := map[string]string{
		"pkg/a.go": "package pkg\n\nfunc A() {\n}\n",
		"pkg/b.go": "func B() {\n  A()\n}\n",
	}
	asm := NewAssembler(store, nil, fakeReader(files))

	res, err := asm.Gather(context.Background(), Request{
		Seeds:    []Seed{{Kind: SeedSymbol, Qualname: "pkg.A"}},
		GV:       gv,
		Strategy: StrategySymbol,
	})
	require.NoError(t, err)
	for i := 1; i < len(res.Items); i++ {
		prev, cur := res.Items[i-1], res.Items[i]
		require.True(t, prev.Source <= cur.Source)
	}
}
