// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package xref implements the cross-reference miner (C3): it scans every
// string literal in a file, looks for tokens that match another symbol's
// name or qualname *in a different language*, and emits low-confidence XREF
// edges — plus a second, independent pass that recognizes literals shaped
// like HTTP routes and emits ROUTE edges. Both the scoring formula and the
// route-literal grammar are carried over verbatim from
// original_source/src/indexer/xref.rs, which the distilled spec.md dropped.
package xref

import "strings"

// MinConfidence is the floor below which a candidate XREF match is
// discarded rather than recorded with low confidence.
const MinConfidence = 0.7

// RouteMinConfidence is the fixed confidence stamped on every ROUTE edge —
// these come from a literal-shape match, not a scored token comparison.
const RouteMinConfidence = 0.85

const tokenMinLen = 4
const tokenMinLowerLen = 6

// ambiguityEpsilon is the original's tie-break window: two candidates whose
// scores differ by less than this are treated as an unresolvable tie.
const ambiguityEpsilon = 0.0001

var stopwords = map[string]bool{}

func init() {
	for _, w := range []string{
		"a", "an", "and", "any", "as", "asc", "begin", "between", "by", "case", "create", "delete",
		"desc", "distinct", "drop", "else", "end", "exists", "false", "from", "full", "group",
		"having", "if", "in", "inner", "insert", "into", "is", "join", "left", "like", "limit", "not",
		"null", "offset", "on", "or", "order", "outer", "primary", "return", "right", "select", "set",
		"then", "true", "union", "update", "values", "when", "where", "with",
	} {
		stopwords[w] = true
	}
}

// keyKind identifies which normalized form of a symbol's name/qualname a
// dictionary entry was indexed under, which in turn drives its base score.
type keyKind int

const (
	keyQualnameExact keyKind = iota
	keyQualnameNormalized
	keyQualnameLower
	keyQualnameLowerNormalized
	keyNameExact
	keyNameLower
)

func (k keyKind) String() string {
	switch k {
	case keyQualnameExact:
		return "qualname_exact"
	case keyQualnameNormalized:
		return "qualname_normalized"
	case keyQualnameLower:
		return "qualname_lower"
	case keyQualnameLowerNormalized:
		return "qualname_lower_normalized"
	case keyNameExact:
		return "name_exact"
	case keyNameLower:
		return "name_lower"
	default:
		return "unknown"
	}
}

type tokenKind int

const (
	tokenExact tokenKind = iota
	tokenNormalized
	tokenLower
	tokenLowerNormalized
)

type tokenKey struct {
	value string
	kind  tokenKind
}

type keyRef struct {
	idx  int
	kind keyKind
}

// SymbolRef is the minimal projection of a graph.Symbol the index needs:
// callers build this list themselves (usually from graph.Store, scoped to
// whatever graph_version is being mined) rather than the index depending on
// the store directly.
type SymbolRef struct {
	Name     string
	Qualname string
	Language string
}

// Match is a resolved token-to-symbol candidate.
type Match struct {
	Symbol     SymbolRef
	Confidence float64
	MatchKind  string
}

// Index is a lookup table from every normalized name/qualname form of every
// eligible symbol to the symbols that produced it, built once per mining
// run and queried once per token found in scanned literals.
type Index struct {
	symbols []SymbolRef
	byKey   map[string][]keyRef
}

// BuildIndex indexes symbols for cross-language token resolution. Callers
// are expected to have already excluded module/namespace symbols (too
// generic to be a meaningful xref target) — see Mine, which filters before
// calling this.
func BuildIndex(symbols []SymbolRef) *Index {
	idx := &Index{byKey: make(map[string][]keyRef)}
	for _, sym := range symbols {
		if sym.Language == "markdown" {
			continue
		}
		i := len(idx.symbols)
		idx.symbols = append(idx.symbols, sym)
		seen := make(map[string]bool)
		insertSymbolKeys(idx.byKey, seen, i, sym)
	}
	return idx
}

func insertSymbolKeys(byKey map[string][]keyRef, seen map[string]bool, i int, sym SymbolRef) {
	qualname := strings.TrimSpace(sym.Qualname)
	if qualname != "" {
		insertKey(byKey, seen, qualname, i, keyQualnameExact)
		if norm := normalizeSeparators(qualname); norm != qualname {
			insertKey(byKey, seen, norm, i, keyQualnameNormalized)
		}
		lower := strings.ToLower(qualname)
		if lower != qualname {
			insertKey(byKey, seen, lower, i, keyQualnameLower)
		}
		if lowerNorm := normalizeSeparators(lower); lowerNorm != lower {
			insertKey(byKey, seen, lowerNorm, i, keyQualnameLowerNormalized)
		}
	}
	name := strings.TrimSpace(sym.Name)
	if name != "" {
		insertKey(byKey, seen, name, i, keyNameExact)
		if lower := strings.ToLower(name); lower != name {
			insertKey(byKey, seen, lower, i, keyNameLower)
		}
	}
}

func insertKey(byKey map[string][]keyRef, seen map[string]bool, key string, idx int, kind keyKind) {
	marker := key + "\x00" + kind.String()
	if seen[marker] {
		return
	}
	seen[marker] = true
	byKey[key] = append(byKey[key], keyRef{idx: idx, kind: kind})
}

// Resolve scores token against the index, considering only candidates in a
// different language than sourceLanguage (this miner exists specifically to
// bridge languages; same-language references are the extractor's job). It
// returns (zero, false) when no candidate clears MinConfidence or when the
// top two candidates are tied within ambiguityEpsilon.
func (idx *Index) Resolve(token, sourceLanguage string) (Match, bool) {
	if !tokenEligible(token) {
		return Match{}, false
	}
	var (
		bestIdx   = -1
		bestScore = 0.0
		bestKind  keyKind
		ambiguous bool
	)
	for _, tk := range tokenKeys(token) {
		for _, cand := range idx.byKey[tk.value] {
			sym := idx.symbols[cand.idx]
			if sym.Language == sourceLanguage {
				continue
			}
			score := scoreMatch(token, cand.kind, tk.kind)
			if score < MinConfidence {
				continue
			}
			if bestIdx == -1 {
				bestIdx, bestScore, bestKind = cand.idx, score, cand.kind
				continue
			}
			diff := score - bestScore
			if diff < 0 {
				diff = -diff
			}
			if diff < ambiguityEpsilon {
				if cand.idx != bestIdx {
					ambiguous = true
				}
			} else if score > bestScore {
				bestIdx, bestScore, bestKind = cand.idx, score, cand.kind
				ambiguous = false
			}
		}
	}
	if ambiguous || bestIdx == -1 {
		return Match{}, false
	}
	return Match{Symbol: idx.symbols[bestIdx], Confidence: bestScore, MatchKind: bestKind.String()}, true
}

func tokenKeys(raw string) []tokenKey {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	var keys []tokenKey
	push := func(value string, kind tokenKind) {
		if len(keys) > 0 && keys[len(keys)-1].value == value {
			return
		}
		keys = append(keys, tokenKey{value: value, kind: kind})
	}
	push(trimmed, tokenExact)
	if norm := normalizeSeparators(trimmed); norm != trimmed {
		push(norm, tokenNormalized)
	}
	lower := strings.ToLower(trimmed)
	if lower != trimmed {
		push(lower, tokenLower)
	}
	if lowerNorm := normalizeSeparators(lower); lowerNorm != lower {
		push(lowerNorm, tokenLowerNormalized)
	}
	return keys
}

func scoreMatch(token string, kk keyKind, tk tokenKind) float64 {
	score := baseScore(kk) + tokenBonus(token) + tokenPenalty(tk)
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return score
}

func baseScore(kk keyKind) float64 {
	switch kk {
	case keyQualnameExact:
		return 0.7
	case keyQualnameNormalized:
		return 0.65
	case keyQualnameLower:
		return 0.6
	case keyQualnameLowerNormalized:
		return 0.55
	case keyNameExact:
		return 0.55
	case keyNameLower:
		return 0.45
	default:
		return 0
	}
}

func tokenPenalty(tk tokenKind) float64 {
	switch tk {
	case tokenExact:
		return 0
	case tokenNormalized:
		return -0.05
	case tokenLower:
		return -0.1
	case tokenLowerNormalized:
		return -0.15
	default:
		return 0
	}
}

// tokenBonus rewards tokens that look unambiguously identifier-like:
// namespaced (has a separator), long, or mixed-case.
func tokenBonus(token string) float64 {
	bonus := 0.0
	length := len([]rune(token))
	if hasSeparator(token) {
		bonus += 0.2
	}
	if length >= 12 {
		bonus += 0.2
	} else if length >= 8 {
		bonus += 0.1
	}
	if isMixedCase(token) {
		bonus += 0.05
	}
	return bonus
}

func isMixedCase(token string) bool {
	hasUpper, hasLower := false, false
	for _, ch := range token {
		if ch >= 'A' && ch <= 'Z' {
			hasUpper = true
		} else if ch >= 'a' && ch <= 'z' {
			hasLower = true
		}
		if hasUpper && hasLower {
			return true
		}
	}
	return false
}

func tokenEligible(token string) bool {
	trimmed := strings.TrimSpace(token)
	if len(trimmed) < tokenMinLen {
		return false
	}
	hasAlpha := false
	for _, ch := range trimmed {
		if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' {
			hasAlpha = true
			break
		}
	}
	if !hasAlpha {
		return false
	}
	if stopwords[strings.ToLower(trimmed)] {
		return false
	}
	lower := strings.ToLower(trimmed)
	if !hasSeparator(trimmed) && lower == trimmed && len(trimmed) < tokenMinLowerLen {
		return false
	}
	return true
}

func hasSeparator(value string) bool {
	return strings.Contains(value, ".") || strings.Contains(value, "/") || strings.Contains(value, "::")
}

func normalizeSeparators(value string) string {
	value = strings.ReplaceAll(value, "::", ".")
	return strings.ReplaceAll(value, "/", ".")
}

// extractTokens splits a literal's text into candidate identifier-shaped
// tokens (alnum plus the usual path/namespace separators), discarding
// anything tokenEligible rejects.
func extractTokens(text string) []string {
	var tokens []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		candidate := strings.Trim(buf.String(), ".:/")
		candidate = strings.TrimSpace(candidate)
		if tokenEligible(candidate) {
			tokens = append(tokens, candidate)
		}
		buf.Reset()
	}
	for _, ch := range text {
		if isTokenChar(ch) {
			buf.WriteRune(ch)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isTokenChar(ch rune) bool {
	if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' {
		return true
	}
	switch ch {
	case '_', '.', ':', '/', '$', '@':
		return true
	}
	return false
}
