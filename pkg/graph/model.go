// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package graph holds the versioned persistent store: files, symbols, edges,
// diagnostics and co-change facts, all scoped to a graph_version. The Store
// interface (store.go) exposes typed per-entity methods rather than a
// generic Query/Execute surface, and SQLiteStore implements it with SQL
// against modernc.org/sqlite.
package graph

// EdgeKind is the closed set of edge kinds the graph accepts. Any value
// outside this set is a programming error, not a runtime input error.
type EdgeKind string

const (
	EdgeContains          EdgeKind = "CONTAINS"
	EdgeCalls             EdgeKind = "CALLS"
	EdgeImports           EdgeKind = "IMPORTS"
	EdgeImportsFile       EdgeKind = "IMPORTS_FILE"
	EdgeExtends           EdgeKind = "EXTENDS"
	EdgeImplements        EdgeKind = "IMPLEMENTS"
	EdgeModuleFile        EdgeKind = "MODULE_FILE"
	EdgeHTTPRoute         EdgeKind = "HTTP_ROUTE"
	EdgeHTTPCall          EdgeKind = "HTTP_CALL"
	EdgeRPCImpl           EdgeKind = "RPC_IMPL"
	EdgeRPCCall           EdgeKind = "RPC_CALL"
	EdgeChannelPublish    EdgeKind = "CHANNEL_PUBLISH"
	EdgeChannelSubscribe  EdgeKind = "CHANNEL_SUBSCRIBE"
	EdgePageRoute         EdgeKind = "PAGE_ROUTE"
	EdgeXref              EdgeKind = "XREF"
	EdgeRoute             EdgeKind = "ROUTE"
)

// ValidEdgeKinds is the closed set as a lookup table. The RPC handlers
// convert caller-supplied kind strings to EdgeKind without consulting it.
var ValidEdgeKinds = map[EdgeKind]bool{
	EdgeContains: true, EdgeCalls: true, EdgeImports: true, EdgeImportsFile: true,
	EdgeExtends: true, EdgeImplements: true, EdgeModuleFile: true,
	EdgeHTTPRoute: true, EdgeHTTPCall: true, EdgeRPCImpl: true, EdgeRPCCall: true,
	EdgeChannelPublish: true, EdgeChannelSubscribe: true, EdgePageRoute: true,
	EdgeXref: true, EdgeRoute: true,
}

// SymbolKind enumerates the closed set of symbol kinds (spec §3).
type SymbolKind string

const (
	KindModule    SymbolKind = "module"
	KindNamespace SymbolKind = "namespace"
	KindClass     SymbolKind = "class"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindTrait     SymbolKind = "trait"
	KindEnum      SymbolKind = "enum"
	KindRecord    SymbolKind = "record"
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindProperty  SymbolKind = "property"
	KindField     SymbolKind = "field"
	KindVariable  SymbolKind = "variable"
	KindConst     SymbolKind = "const"
	KindStatic    SymbolKind = "static"
	KindType      SymbolKind = "type"
	KindResource  SymbolKind = "resource"
	KindModuleRef SymbolKind = "module_ref"
	KindParam     SymbolKind = "param"
	KindOutput    SymbolKind = "output"
	KindService   SymbolKind = "service"
)

// ContainerKinds are symbol kinds that References (§4.7) expands into their
// direct CONTAINS children before aggregating.
var ContainerKinds = map[SymbolKind]bool{
	KindClass: true, KindInterface: true, KindStruct: true, KindEnum: true,
	KindTrait: true, KindService: true,
}

// File mirrors spec §3's File entity.
type File struct {
	ID          int64
	RelPath     string
	ContentHash string
	Language    string
	SizeBytes   int64
	MTime       int64
	GraphVersion int64
}

// Symbol mirrors spec §3's Symbol entity.
type Symbol struct {
	ID          int64
	Kind        SymbolKind
	Name        string
	Qualname    string
	FilePath    string
	StartLine   int
	EndLine     int
	StartCol    int
	EndCol      int
	StartByte   int
	EndByte     int
	Signature   string
	Docstring   string
	GraphVersion int64
	CommitSHA   string
	StableID    string
}

// SymbolInput is what an extractor produces before the store assigns an ID.
type SymbolInput struct {
	Kind      SymbolKind
	Name      string
	Qualname  string
	StartLine int
	EndLine   int
	StartCol  int
	EndCol    int
	StartByte int
	EndByte   int
	Signature string
	Docstring string
}

// ComputeStableID computes the content-free id for this input, per C1.
func (s SymbolInput) ComputeStableID(hashFn func(kind, qualname, signature string) string) string {
	return hashFn(string(s.Kind), s.Qualname, s.Signature)
}

// Edge mirrors spec §3's Edge entity.
type Edge struct {
	ID              int64
	Kind            EdgeKind
	SourceSymbolID  *int64
	TargetSymbolID  *int64
	SourceQualname  string
	TargetQualname  string
	Detail          string // raw JSON
	Evidence        string
	EvidenceLine    int
	Confidence      float64
	GraphVersion    int64
	CommitSHA       string
}

// EdgeInput is what an extractor or miner produces before endpoint
// resolution against a symbol_map (qualname -> id).
type EdgeInput struct {
	Kind           EdgeKind
	SourceQualname string
	TargetQualname string
	Detail         string
	Evidence       string
	EvidenceLine   int
	Confidence     float64 // 0 means "use default of 1.0"
}

// GraphVersion mirrors spec §3's GraphVersion entity.
type GraphVersion struct {
	ID        int64
	CreatedAt int64
	CommitSHA string
}

// Diagnostic mirrors spec §3's Diagnostic entity. Externally parsed (e.g.
// from SARIF); the graph store only persists and serves these records.
type Diagnostic struct {
	ID       int64
	RuleID   string
	Severity string // error|warning|info|hint
	Tool     string
	FilePath string
	Line     int
	Message  string
}

// CoChangeFact mirrors spec §3's CoChangeFact entity. Externally mined from
// git history; consumed read-only by analytics.
type CoChangeFact struct {
	FileA          string
	FileB          string
	Confidence     float64
	Support        int
	CoChangeCount  int
}

// ExtractedFile is the shared extractor output contract (spec §4.2).
type ExtractedFile struct {
	Symbols []SymbolInput
	Edges   []EdgeInput
}

// SymbolDiff is the incremental differ's result (C5, spec §4.5).
type SymbolDiff struct {
	Added     []SymbolInput
	Modified  []SymbolInput
	Deleted   []Symbol // by prior id/stable_id
	Unchanged []Symbol
}
