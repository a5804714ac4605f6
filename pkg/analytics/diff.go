// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analytics

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/kraklabs/lidx/pkg/graph"
)

// LineRange is an inclusive, 1-based line span.
type LineRange struct {
	Start, End int
}

func (r LineRange) intersects(startLine, endLine int) bool {
	return startLine <= r.End && endLine >= r.Start
}

func (r LineRange) contains(startLine, endLine int) bool {
	return startLine >= r.Start && endLine <= r.End
}

// ChangedFile is one file's parsed diff, per spec §4.7's analyze-diff.
type ChangedFile struct {
	Path          string
	ChangedRanges []LineRange
	AddedRanges   []LineRange
	DeletedRanges []LineRange
	WholeFile     bool
}

// ParseUnifiedDiff parses a standard unified diff (git-style "--- a/path" /
// "+++ b/path" / "@@ -o,l +n,m @@" headers) into per-file changed/added
// line ranges expressed in new-file line numbers. Deleted ranges are
// expressed in old-file line numbers since the deleted lines have no
// new-file counterpart.
func ParseUnifiedDiff(diffText string) []ChangedFile {
	var files []ChangedFile
	var cur *ChangedFile
	newLine, oldLine := 0, 0
	var addRunStart, addRunLen int
	var delRunStart, delRunLen int

	flushAddRun := func() {
		if addRunLen > 0 && cur != nil {
			cur.AddedRanges = append(cur.AddedRanges, LineRange{addRunStart, addRunStart + addRunLen - 1})
		}
		addRunLen = 0
	}
	flushDelRun := func() {
		if delRunLen > 0 && cur != nil {
			cur.DeletedRanges = append(cur.DeletedRanges, LineRange{delRunStart, delRunStart + delRunLen - 1})
		}
		delRunLen = 0
	}

	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ "):
			flushAddRun()
			flushDelRun()
			path := strings.TrimPrefix(line, "+++ ")
			path = strings.TrimPrefix(path, "b/")
			if path == "/dev/null" {
				cur = nil
				continue
			}
			files = append(files, ChangedFile{Path: path})
			cur = &files[len(files)-1]
		case strings.HasPrefix(line, "--- "):
			// old-file header; no-op, path comes from +++.
		case strings.HasPrefix(line, "@@ "):
			flushAddRun()
			flushDelRun()
			newStart, newCount := parseHunkHeader(line)
			if cur != nil && newCount > 0 {
				cur.ChangedRanges = append(cur.ChangedRanges, LineRange{newStart, newStart + newCount - 1})
			}
			newLine = newStart
			if f := strings.Fields(line); len(f) > 1 {
				oldLine, _ = strconv.Atoi(strings.SplitN(strings.TrimPrefix(f[1], "-"), ",", 2)[0])
			}
		case cur == nil:
			// outside any file block (diff preamble) — ignore.
		case strings.HasPrefix(line, "+"):
			flushDelRun()
			if addRunLen == 0 {
				addRunStart = newLine
			}
			addRunLen++
			newLine++
		case strings.HasPrefix(line, "-"):
			flushAddRun()
			if delRunLen == 0 {
				delRunStart = oldLine
			}
			delRunLen++
			oldLine++
		default:
			flushAddRun()
			flushDelRun()
			newLine++
			oldLine++
		}
	}
	flushAddRun()
	flushDelRun()
	return files
}

// parseHunkHeader parses "@@ -oldStart,oldLines +newStart,newLines @@..."
// returning the new-side start/count (count defaults to 1 when omitted).
func parseHunkHeader(line string) (start, count int) {
	parts := strings.Fields(line)
	for _, p := range parts {
		if strings.HasPrefix(p, "+") {
			spec := strings.TrimPrefix(p, "+")
			pieces := strings.SplitN(spec, ",", 2)
			start, _ = strconv.Atoi(pieces[0])
			count = 1
			if len(pieces) == 2 {
				count, _ = strconv.Atoi(pieces[1])
			}
			return start, count
		}
	}
	return 0, 0
}

type ChangeType string

const (
	ChangeAdded            ChangeType = "added"
	ChangeModified         ChangeType = "modified"
	ChangeSignatureChanged ChangeType = "signature_changed"
)

type ChangedSymbol struct {
	Symbol     graph.Symbol
	ChangeType ChangeType
}

type TestCoverage struct {
	Symbol graph.Symbol
	Status string // "covered" | "uncovered"
}

type RiskFactor struct {
	Title    string
	Severity string // critical|high|medium
}

type Risk struct {
	Level   string
	Factors []RiskFactor
}

type AnalyzeDiffRequest struct {
	DiffText string
	Paths    []string // used when DiffText is empty: whole files are treated as changed
	MaxDepth int
	Langs    []string
	GV       int64
}

type AnalyzeDiffResult struct {
	ChangedSymbols []ChangedSymbol
	Impact         []ImpactEntry
	Coverage       []TestCoverage
	Risk           Risk
	ReviewChecklist []string
	NextHops       []NextHop
}

var severityRank = map[string]int{"": 0, "low": 1, "medium": 2, "high": 3, "critical": 4}

// AnalyzeDiff implements spec §4.7's analyze-diff end to end: parses the
// diff (or treats each listed path as wholly changed), selects every symbol
// whose range intersects a changed hunk, classifies added/modified/
// signature_changed, runs a shallow downstream BFS for impact with
// confidence decaying 0.8/level (extra ×0.8 for unresolved-fallback edges),
// computes test coverage, and scores risk per the factor table.
func AnalyzeDiff(ctx context.Context, store graph.Store, req AnalyzeDiffRequest) (*AnalyzeDiffResult, error) {
	var changedFiles []ChangedFile
	if req.DiffText != "" {
		changedFiles = ParseUnifiedDiff(req.DiffText)
	} else {
		for _, p := range req.Paths {
			changedFiles = append(changedFiles, ChangedFile{Path: p, WholeFile: true})
		}
	}

	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	var changed []ChangedSymbol
	affectedFiles := map[string]bool{}
	for _, cf := range changedFiles {
		syms, err := store.GetSymbolsForFile(ctx, cf.Path, req.GV)
		if err != nil {
			return nil, err
		}
		for _, s := range syms {
			if !cf.WholeFile && !symbolTouchesAnyRange(s, cf.ChangedRanges) {
				continue
			}
			ct := classifySymbolChange(ctx, store, s, cf, req.GV)
			changed = append(changed, ChangedSymbol{Symbol: s, ChangeType: ct})
			affectedFiles[cf.Path] = true
		}
	}

	// Downstream impact BFS, one hop of origin per changed symbol.
	byID := make(map[int64]*ImpactEntry)
	for _, cs := range changed {
		err := bfsDiffImpact(ctx, store, cs.Symbol, maxDepth, req.Langs, req.GV, byID)
		if err != nil {
			return nil, err
		}
	}
	impact := make([]ImpactEntry, 0, len(byID))
	for _, e := range byID {
		impact = append(impact, *e)
	}
	sort.Slice(impact, func(i, j int) bool {
		if impact[i].Distance != impact[j].Distance {
			return impact[i].Distance < impact[j].Distance
		}
		return impact[i].Symbol.Qualname < impact[j].Symbol.Qualname
	})

	// Test coverage: direct callers of each changed symbol classified as tests.
	var coverage []TestCoverage
	callerCounts := make(map[int64]int)
	crossLangCaller := false
	for _, cs := range changed {
		callers, err := callersOf(ctx, store, cs.Symbol.ID, req.Langs, req.GV)
		if err != nil {
			return nil, err
		}
		callerCounts[cs.Symbol.ID] = len(callers)
		covered := false
		for _, c := range callers {
			if fileLanguage(c.Symbol.FilePath) != fileLanguage(cs.Symbol.FilePath) {
				crossLangCaller = true
			}
			if isTestLike(c.Symbol) {
				covered = true
			}
		}
		status := "uncovered"
		if covered {
			status = "covered"
		}
		coverage = append(coverage, TestCoverage{Symbol: cs.Symbol, Status: status})
	}

	risk := scoreRisk(changed, callerCounts, crossLangCaller, affectedFiles, coverage)

	return &AnalyzeDiffResult{
		ChangedSymbols:  changed,
		Impact:          impact,
		Coverage:        coverage,
		Risk:            risk,
		ReviewChecklist: checklistFromFactors(risk.Factors),
	}, nil
}

func symbolTouchesAnyRange(s graph.Symbol, ranges []LineRange) bool {
	for _, r := range ranges {
		if r.intersects(s.StartLine, s.EndLine) {
			return true
		}
	}
	return false
}

func classifySymbolChange(ctx context.Context, store graph.Store, s graph.Symbol, cf ChangedFile, gv int64) ChangeType {
	if !cf.WholeFile {
		for _, r := range cf.AddedRanges {
			if r.contains(s.StartLine, s.EndLine) {
				return ChangeAdded
			}
		}
	}
	prior, err := store.GetSymbolByStableID(ctx, s.StableID, gv-1)
	if err == nil && prior != nil && prior.Signature != s.Signature {
		return ChangeSignatureChanged
	}
	return ChangeModified
}

func bfsDiffImpact(ctx context.Context, store graph.Store, seed graph.Symbol, maxDepth int, langs []string, gv int64, byID map[int64]*ImpactEntry) error {
	type qnode struct {
		id         int64
		level      int
		confidence float64
	}
	visited := map[int64]bool{seed.ID: true}
	queue := []qnode{{seed.ID, 0, 1.0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.level >= maxDepth {
			continue
		}
		callers, err := callersOf(ctx, store, cur.id, langs, gv)
		if err != nil {
			return err
		}
		for _, c := range callers {
			if visited[c.Symbol.ID] {
				continue
			}
			visited[c.Symbol.ID] = true
			conf := cur.confidence * 0.8
			if !c.Resolved {
				conf *= 0.8
			}
			if existing, ok := byID[c.Symbol.ID]; !ok || conf > existing.Confidence {
				byID[c.Symbol.ID] = &ImpactEntry{Symbol: c.Symbol, Distance: cur.level + 1, Relationship: "caller", Confidence: conf}
			}
			queue = append(queue, qnode{c.Symbol.ID, cur.level + 1, conf})
		}
	}
	return nil
}

func scoreRisk(changed []ChangedSymbol, callerCounts map[int64]int, crossLangCaller bool, affectedFiles map[string]bool, coverage []TestCoverage) Risk {
	var factors []RiskFactor
	maxCallers := 0
	anySigChange := false
	anyContainerChange := false
	for _, cs := range changed {
		n := callerCounts[cs.Symbol.ID]
		if n > maxCallers {
			maxCallers = n
		}
		if cs.ChangeType == ChangeSignatureChanged {
			anySigChange = true
			if n > 10 {
				factors = append(factors, RiskFactor{"Signature changed on high-traffic symbol", "critical"})
			} else if n >= 1 {
				factors = append(factors, RiskFactor{"Signature changed with callers", "high"})
			}
		}
		if cs.Symbol.Kind == graph.KindInterface || cs.Symbol.Kind == graph.KindTrait {
			anyContainerChange = true
		}
	}
	_ = anySigChange
	if crossLangCaller {
		factors = append(factors, RiskFactor{"Cross-language caller of changed symbol", "high"})
	}
	if anyContainerChange {
		factors = append(factors, RiskFactor{"Interface/trait changed", "high"})
	}
	if maxCallers > 10 {
		factors = append(factors, RiskFactor{"Changed symbol has more than 10 callers", "high"})
	}
	if len(affectedFiles) > 3 {
		factors = append(factors, RiskFactor{"More than 3 files affected", "medium"})
	}
	anyUncovered := false
	for _, c := range coverage {
		if c.Status == "uncovered" {
			anyUncovered = true
			break
		}
	}
	if anyUncovered {
		factors = append(factors, RiskFactor{"Changed symbol has no direct test coverage", "medium"})
	}

	level := "low"
	for _, f := range factors {
		if severityRank[f.Severity] > severityRank[level] {
			level = f.Severity
		}
	}
	return Risk{Level: level, Factors: factors}
}

func checklistFromFactors(factors []RiskFactor) []string {
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		out = append(out, f.Title)
	}
	return out
}
