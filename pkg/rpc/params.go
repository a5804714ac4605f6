// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package rpc

// Per-method params structs, one per handler in handlerTable. Field names
// use the wire's snake_case via json tags; this mirrors the teacher's
// `#[derive(Deserialize)]` params structs in the original's rpc module.

type FindSymbolParams struct {
	Query       string   `json:"query"`
	Limit       int      `json:"limit"`
	Languages   []string `json:"languages"`
	GraphVersion int64   `json:"graph_version"`
	Format      string   `json:"format"`
}

type SuggestQualnamesParams struct {
	Query       string   `json:"query"`
	Limit       int      `json:"limit"`
	Languages   []string `json:"languages"`
	GraphVersion int64   `json:"graph_version"`
}

type OpenSymbolParams struct {
	ID              int64  `json:"id"`
	Qualname        string `json:"qualname"`
	GraphVersion    int64  `json:"graph_version"`
	IncludeSnippet  *bool  `json:"include_snippet"`
	IncludeSymbol   *bool  `json:"include_symbol"`
	SnippetOnly     bool   `json:"snippet_only"`
	MaxSnippetBytes int    `json:"max_snippet_bytes"`
}

type ExplainSymbolParams struct {
	ID           int64    `json:"id"`
	Qualname     string   `json:"qualname"`
	GraphVersion int64    `json:"graph_version"`
	MaxBytes     int      `json:"max_bytes"`
	MaxRefs      int      `json:"max_refs"`
	Sections     []string `json:"sections"`
	Languages    []string `json:"languages"`
}

type OpenFileParams struct {
	Path         string `json:"path"`
	StartLine    int    `json:"start_line"`
	EndLine      int    `json:"end_line"`
	GraphVersion int64  `json:"graph_version"`
}

type RepoOverviewParams struct {
	GraphVersion int64 `json:"graph_version"`
}

type RepoInsightsParams struct {
	GraphVersion int64 `json:"graph_version"`
	Limit        int   `json:"limit"`
}

type ModuleMapParams struct {
	GraphVersion int64  `json:"graph_version"`
	PathPrefix   string `json:"path_prefix"`
}

type RepoMapParams struct {
	GraphVersion int64 `json:"graph_version"`
	MaxDepth     int   `json:"max_depth"`
}

type TopComplexityParams struct {
	GraphVersion int64    `json:"graph_version"`
	Limit        int      `json:"limit"`
	Languages    []string `json:"languages"`
}

type DuplicateGroupsParams struct {
	GraphVersion int64    `json:"graph_version"`
	Limit        int      `json:"limit"`
	Languages    []string `json:"languages"`
}

type TopCouplingParams struct {
	GraphVersion int64 `json:"graph_version"`
	Limit        int   `json:"limit"`
}

type CoChangesParams struct {
	Paths         []string `json:"paths"`
	MinConfidence float64  `json:"min_confidence"`
}

type DeadSymbolsParams struct {
	GraphVersion int64    `json:"graph_version"`
	Limit        int      `json:"limit"`
	Languages    []string `json:"languages"`
}

type UnusedImportsParams struct {
	GraphVersion int64  `json:"graph_version"`
	Limit        int    `json:"limit"`
	PathPrefix   string `json:"path_prefix"`
}

type OrphanTestsParams struct {
	GraphVersion int64    `json:"graph_version"`
	Limit        int      `json:"limit"`
	Languages    []string `json:"languages"`
}

type NeighborsParams struct {
	ID           int64    `json:"id"`
	Qualname     string   `json:"qualname"`
	Depth        int      `json:"depth"`
	MaxNodes     int      `json:"max_nodes"`
	IncludeKinds []string `json:"include_kinds"`
	ExcludeKinds []string `json:"exclude_kinds"`
	Languages    []string `json:"languages"`
	GraphVersion int64    `json:"graph_version"`
	Format       string   `json:"format"`
}

type SubgraphParams struct {
	StartIDs       []int64  `json:"start_ids"`
	StartQualnames []string `json:"start_qualnames"`
	Depth          int      `json:"depth"`
	MaxNodes       int      `json:"max_nodes"`
	IncludeKinds   []string `json:"include_kinds"`
	ExcludeKinds   []string `json:"exclude_kinds"`
	Languages      []string `json:"languages"`
	GraphVersion   int64    `json:"graph_version"`
	Format         string   `json:"format"`
}

type ReferencesParams struct {
	Qualname     string   `json:"qualname"`
	Direction    string   `json:"direction"`
	Kinds        []string `json:"kinds"`
	Limit        int      `json:"limit"`
	Languages    []string `json:"languages"`
	GraphVersion int64    `json:"graph_version"`
}

type TraceFlowParams struct {
	Qualname     string   `json:"qualname"`
	Direction    string   `json:"direction"`
	MaxHops      int      `json:"max_hops"`
	AllowedKinds []string `json:"allowed_kinds"`
	ByteBudget   int      `json:"byte_budget"`
	TraceOffset  int      `json:"trace_offset"`
	Languages    []string `json:"languages"`
	GraphVersion int64    `json:"graph_version"`
}

type RouteRefsParams struct {
	Route        string `json:"route"`
	Method       string `json:"method"`
	GraphVersion int64  `json:"graph_version"`
	Limit        int    `json:"limit"`
}

type FlowStatusParams struct {
	Qualname     string `json:"qualname"`
	GraphVersion int64  `json:"graph_version"`
}

type FindTestsForParams struct {
	Qualname      string   `json:"qualname"`
	IndirectDepth int      `json:"indirect_depth"`
	Languages     []string `json:"languages"`
	GraphVersion  int64    `json:"graph_version"`
}

type AnalyzeImpactParams struct {
	Qualname        string   `json:"qualname"`
	Layers          []string `json:"layers"`
	Kinds           []string `json:"kinds"`
	Depth           int      `json:"depth"`
	ConfidenceFloor float64  `json:"confidence_floor"`
	Languages       []string `json:"languages"`
	GraphVersion    int64    `json:"graph_version"`
}

type AnalyzeDiffParams struct {
	DiffText     string   `json:"diff_text"`
	Paths        []string `json:"paths"`
	MaxDepth     int      `json:"max_depth"`
	Languages    []string `json:"languages"`
	GraphVersion int64    `json:"graph_version"`
}

type SearchParams struct {
	Query         string   `json:"query"`
	Root          string   `json:"root"`
	Scope         string   `json:"scope"`
	CaseSensitive bool     `json:"case_sensitive"`
	FixedString   bool     `json:"fixed_string"`
	Hidden        bool     `json:"hidden"`
	NoIgnore      bool     `json:"no_ignore"`
	Globs         []string `json:"globs"`
	Limit         int      `json:"limit"`
	ContextLines  int      `json:"context_lines"`
	GraphVersion  int64    `json:"graph_version"`
	CandidatePaths []string `json:"candidate_paths"`
}

type IndexStatusParams struct {
	GraphVersion int64 `json:"graph_version"`
}

type FileToIndexParams struct {
	RelPath  string `json:"rel_path"`
	Language string `json:"language"`
	Content  string `json:"content"`
	MTime    int64  `json:"mtime"`
}

type ReindexParams struct {
	Files     []FileToIndexParams `json:"files"`
	CommitSHA string               `json:"commit_sha"`
}

type GatherContextSeedParams struct {
	Kind      string `json:"kind"`
	Qualname  string `json:"qualname"`
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Query     string `json:"query"`
}

type GatherContextParams struct {
	Seeds      []GatherContextSeedParams `json:"seeds"`
	ByteBudget int                       `json:"byte_budget"`
	Depth      int                       `json:"depth"`
	MaxNodes   int                       `json:"max_nodes"`
	Strategy   string                    `json:"strategy"`
	DryRun     bool                      `json:"dry_run"`
	RepoRoot   string                    `json:"repo_root"`
	Languages  []string                  `json:"languages"`
	GraphVersion int64                   `json:"graph_version"`
}

type OnboardParams struct {
	GraphVersion int64 `json:"graph_version"`
	Limit        int   `json:"limit"`
}

type ChangedSinceParams struct {
	FromGraphVersion int64 `json:"from_graph_version"`
	ToGraphVersion   int64 `json:"to_graph_version"`
}

type DiagnosticsImportParams struct {
	Diagnostics []DiagnosticParams `json:"diagnostics"`
}

type DiagnosticParams struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Tool     string `json:"tool"`
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

type DiagnosticsListParams struct {
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Limit    int    `json:"limit"`
}

type DiagnosticsSummaryParams struct{}
