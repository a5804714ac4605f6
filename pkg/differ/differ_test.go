package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/lidx/pkg/graph"
	"github.com/kraklabs/lidx/pkg/stableid"
)

func mkOld(kind graph.SymbolKind, qualname, sig string, startLine, endLine int) graph.Symbol {
	return graph.Symbol{
		Kind: kind, Qualname: qualname, Signature: sig,
		StartLine: startLine, EndLine: endLine,
		StableID: stableid.Of(string(kind), qualname, sig),
	}
}

func mkNew(kind graph.SymbolKind, qualname, sig string, startLine, endLine int) graph.SymbolInput {
	return graph.SymbolInput{Kind: kind, Qualname: qualname, Signature: sig, StartLine: startLine, EndLine: endLine}
}

func TestDiff_Unchanged(t *testing.T) {
	old := mkOld(graph.KindFunction, "pkg.Foo", "func Foo()", 1, 5)
	n := mkNew(graph.KindFunction, "pkg.Foo", "func Foo()", 1, 5)

	d := Diff([]graph.Symbol{old}, []graph.SymbolInput{n})
	require.Len(t, d.Unchanged, 1)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Modified)
	assert.Empty(t, d.Deleted)
}

func TestDiff_ModifiedWhenSpanMoves(t *testing.T) {
	old := mkOld(graph.KindFunction, "pkg.Foo", "func Foo()", 1, 5)
	n := mkNew(graph.KindFunction, "pkg.Foo", "func Foo()", 2, 7)

	d := Diff([]graph.Symbol{old}, []graph.SymbolInput{n})
	require.Len(t, d.Modified, 1)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Deleted)
}

func TestDiff_SignatureChangeIsDeletePlusAdd(t *testing.T) {
	old := mkOld(graph.KindFunction, "pkg.Foo", "func Foo()", 1, 5)
	n := mkNew(graph.KindFunction, "pkg.Foo", "func Foo(x int)", 1, 5)

	d := Diff([]graph.Symbol{old}, []graph.SymbolInput{n})
	assert.Len(t, d.Deleted, 1)
	assert.Len(t, d.Added, 1)
	assert.Empty(t, d.Modified)
	assert.Empty(t, d.Unchanged)
}

func TestDiff_AddedAndDeleted(t *testing.T) {
	old := mkOld(graph.KindFunction, "pkg.Old", "func Old()", 1, 2)
	n := mkNew(graph.KindFunction, "pkg.New", "func New()", 3, 4)

	d := Diff([]graph.Symbol{old}, []graph.SymbolInput{n})
	assert.Len(t, d.Added, 1)
	assert.Len(t, d.Deleted, 1)
}
