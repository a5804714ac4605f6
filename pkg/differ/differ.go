// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package differ implements the incremental differ (C5, spec §4.5): given
// the symbols previously stored for a file and the symbols an extractor just
// produced for its new content, classify each by stable id into
// added/modified/deleted/unchanged.
package differ

import (
	"github.com/kraklabs/lidx/pkg/graph"
	"github.com/kraklabs/lidx/pkg/stableid"
)

// Diff computes the incremental diff between oldSymbols (as stored at the
// prior graph version) and newSymbols (just extracted), keyed on stable_id.
//
// Signature/kind/qualname changes necessarily change stable_id, so they
// surface as a (deleted, added) pair rather than a "modified" — per spec
// §4.5 this is intentional: it's a new API, not an edit to the old one.
func Diff(oldSymbols []graph.Symbol, newSymbols []graph.SymbolInput) graph.SymbolDiff {
	oldByStable := make(map[string]graph.Symbol, len(oldSymbols))
	for _, s := range oldSymbols {
		oldByStable[s.StableID] = s
	}

	var diff graph.SymbolDiff
	seen := make(map[string]bool, len(newSymbols))

	for _, n := range newSymbols {
		sid := n.ComputeStableID(stableid.Of)
		seen[sid] = true
		old, existed := oldByStable[sid]
		if !existed {
			diff.Added = append(diff.Added, n)
			continue
		}
		if spansEqual(old, n) {
			diff.Unchanged = append(diff.Unchanged, old)
		} else {
			diff.Modified = append(diff.Modified, n)
		}
	}

	for _, o := range oldSymbols {
		if !seen[o.StableID] {
			diff.Deleted = append(diff.Deleted, o)
		}
	}

	return diff
}

// spansEqual compares the fields spec §4.5 names as the "unchanged" test:
// start/end line, start/end col, start/end byte, and docstring.
func spansEqual(old graph.Symbol, n graph.SymbolInput) bool {
	return old.StartLine == n.StartLine &&
		old.EndLine == n.EndLine &&
		old.StartCol == n.StartCol &&
		old.EndCol == n.EndCol &&
		old.StartByte == n.StartByte &&
		old.EndByte == n.EndByte &&
		old.Docstring == n.Docstring
}
