package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	events []rgEvent
	err    error
}

func (f fakeRunner) Run(ctx context.Context, req Request) ([]rgEvent, error) {
	return f.events, f.err
}

func TestSearch_ExactPassScoresAboveFuzzy(t *testing.T) {
	files := map[string][]string{
		"src/handler.go": {"func HandleRequest() {}", "// calls handleRequest internally"},
	}
	fileText := func(path string) ([]string, error) { return files[path], nil }

	eng := NewEngine(nil, fileText).WithRunner(fakeRunner{events: []rgEvent{
		{Path: "src/handler.go", Line: 1, Column: 5, LineText: "func HandleRequest() {}"},
	}})

	res, err := eng.Search(context.Background(), Request{Query: "HandleRequest", Root: "."})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	require.True(t, res.Hits[0].Exact)
	require.Greater(t, res.Hits[0].Score, 10.0)
}

func TestSearch_FallbackUsedOnExternalError(t *testing.T) {
	files := map[string][]string{
		"src/a.go": {"needle here"},
	}
	fileText := func(path string) ([]string, error) { return files[path], nil }

	eng := NewEngine(nil, fileText).WithRunner(fakeRunner{err: errToolMissing{}})

	res, err := eng.Search(context.Background(), Request{
		Query: "needle", Root: ".", CandidatePaths: []string{"src/a.go"}, Limit: 1,
	})
	require.NoError(t, err)
	require.True(t, res.FallbackUsed)
	require.Len(t, res.Hits, 1)
	require.Equal(t, "src/a.go", res.Hits[0].Path)
}

func TestSearch_FuzzyPassMatchesCamelCaseToken(t *testing.T) {
	files := map[string][]string{
		"src/service.go": {"func computeUserScore(u User) int { return 0 }"},
	}
	fileText := func(path string) ([]string, error) { return files[path], nil }

	eng := NewEngine(nil, fileText).WithRunner(fakeRunner{events: nil})

	res, err := eng.Search(context.Background(), Request{
		Query: "user score", Root: ".", CandidatePaths: []string{"src/service.go"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	require.Equal(t, "src/service.go", res.Hits[0].Path)
	require.False(t, res.Hits[0].Exact)
}

func TestSearch_ScopeFilterExcludesTests(t *testing.T) {
	files := map[string][]string{
		"src/a_test.go": {"needle"},
		"src/a.go":      {"needle"},
	}
	fileText := func(path string) ([]string, error) { return files[path], nil }

	eng := NewEngine(nil, fileText).WithRunner(fakeRunner{events: []rgEvent{
		{Path: "src/a_test.go", Line: 1, Column: 0, LineText: "needle"},
		{Path: "src/a.go", Line: 1, Column: 0, LineText: "needle"},
	}})

	res, err := eng.Search(context.Background(), Request{Query: "needle", Root: ".", Scope: ScopeCode})
	require.NoError(t, err)
	for _, h := range res.Hits {
		require.NotContains(t, h.Path, "test")
	}
}

func TestTokenSimilarity_Grades(t *testing.T) {
	require.Equal(t, 1.0, tokenSimilarity("user", "user"))
	require.Equal(t, 0.9, tokenSimilarity("user", "username"))
	require.Equal(t, 0.8, tokenSimilarity("serv", "userservice"))
	require.InDelta(t, 0.6, tokenSimilarity("usr", "userscorecalc"), 0.0001)
}

func TestProximityBonus_SameLineHighest(t *testing.T) {
	require.Equal(t, 2.0, proximityBonus([]int{5, 5}))
	require.Equal(t, 1.0, proximityBonus([]int{5, 7}))
	require.Equal(t, 0.5, proximityBonus([]int{5, 14}))
	require.Equal(t, 0.0, proximityBonus([]int{5, 50}))
}

type errToolMissing struct{}

func (errToolMissing) Error() string { return "exec: \"rg\": executable file not found in $PATH" }
