package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/lidx/pkg/extract"
	"github.com/kraklabs/lidx/pkg/graph"
)

func newTestIndexer(t *testing.T) (*Indexer, *graph.SQLiteStore) {
	t.Helper()
	store, err := graph.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, extract.NewRegistry(), nil, WithWorkers(2)), store
}

const pySrc1 = "def handler():\n    return 1\n"
const pySrc2 = "def handler():\n    return 2\n"

func TestIndexer_FirstRunIndexesEveryFile(t *testing.T) {
	ix, store := newTestIndexer(t)
	ctx := context.Background()

	res, err := ix.Reindex(ctx, []FileToIndex{
		{RelPath: "svc/api.py", Language: "python", Content: []byte(pySrc1)},
	}, "sha1")
	require.NoError(t, err)
	require.Equal(t, 1, res.Scanned)
	require.Equal(t, 1, res.Indexed)
	require.Equal(t, 0, res.Skipped)
	require.Empty(t, res.Errors)

	syms, err := store.GetSymbolsForFile(ctx, "svc/api.py", res.GraphVersion)
	require.NoError(t, err)
	require.NotEmpty(t, syms)
}

func TestIndexer_SecondRunSkipsUnchangedFile(t *testing.T) {
	ix, store := newTestIndexer(t)
	ctx := context.Background()

	files := []FileToIndex{{RelPath: "svc/api.py", Language: "python", Content: []byte(pySrc1)}}
	first, err := ix.Reindex(ctx, files, "sha1")
	require.NoError(t, err)

	second, err := ix.Reindex(ctx, files, "sha1")
	require.NoError(t, err)
	require.Equal(t, 0, second.Indexed)
	require.Equal(t, 1, second.Skipped)

	syms, err := store.GetSymbolsForFile(ctx, "svc/api.py", second.GraphVersion)
	require.NoError(t, err)
	require.NotEmpty(t, syms, "unchanged file's symbols must carry forward into the new graph version")
	require.NotEqual(t, first.GraphVersion, second.GraphVersion)
}

func TestIndexer_ReextractsChangedFile(t *testing.T) {
	ix, store := newTestIndexer(t)
	ctx := context.Background()

	files := []FileToIndex{{RelPath: "svc/api.py", Language: "python", Content: []byte(pySrc1)}}
	_, err := ix.Reindex(ctx, files, "sha1")
	require.NoError(t, err)

	files[0].Content = []byte(pySrc2)
	second, err := ix.Reindex(ctx, files, "sha2")
	require.NoError(t, err)
	require.Equal(t, 1, second.Indexed)
	require.Equal(t, 0, second.Skipped)

	syms, err := store.GetSymbolsForFile(ctx, "svc/api.py", second.GraphVersion)
	require.NoError(t, err)
	require.NotEmpty(t, syms)
}

func TestIndexer_DetectsDeletedFile(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	_, err := ix.Reindex(ctx, []FileToIndex{
		{RelPath: "svc/api.py", Language: "python", Content: []byte(pySrc1)},
		{RelPath: "svc/util.py", Language: "python", Content: []byte(pySrc1)},
	}, "sha1")
	require.NoError(t, err)

	second, err := ix.Reindex(ctx, []FileToIndex{
		{RelPath: "svc/api.py", Language: "python", Content: []byte(pySrc1)},
	}, "sha2")
	require.NoError(t, err)
	require.Equal(t, 1, second.Deleted)
}

func TestIndexer_UnknownLanguageRecordsError(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	res, err := ix.Reindex(ctx, []FileToIndex{
		{RelPath: "svc/main.cobol", Language: "cobol", Content: []byte("IDENTIFICATION DIVISION.")},
	}, "sha1")
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
}
