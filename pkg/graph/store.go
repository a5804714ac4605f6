package graph

import "context"

// Store is the graph store's contract (C4, spec §4.4): context-first, typed
// per-entity methods with reads scoped by graph_version, rather than the
// teacher's generic storage.Backend (Query/Execute/Close). The
// implementation in sqlite.go issues SQL instead of Datalog because the
// teacher's CozoDB binding (pkg/cozodb) has no buildable implementation in
// this tree.
type Store interface {
	// UpsertFile creates or updates the File row for relPath and returns its id.
	UpsertFile(ctx context.Context, relPath, contentHash, lang string, size int64, mtime int64, gv int64) (int64, error)

	// GetFile returns the File row for path at gv, or nil if none exists. The
	// indexer orchestrator (C6) uses ContentHash to decide whether a file
	// needs re-extraction at all.
	GetFile(ctx context.Context, path string, gv int64) (*File, error)

	// ListFiles returns every File row recorded at gv. The indexer
	// orchestrator (C6) uses this to detect files present at the prior
	// graph version but absent from the current scan (deletions).
	ListFiles(ctx context.Context, gv int64) ([]File, error)

	// GetSymbolsForFile returns every symbol recorded for path at gv.
	GetSymbolsForFile(ctx context.Context, path string, gv int64) ([]Symbol, error)

	// InsertSymbols persists syms for fileID/path at gv, computing stable ids,
	// and returns the new symbol ids in input order.
	InsertSymbols(ctx context.Context, fileID int64, path string, syms []SymbolInput, gv int64, commitSHA string) ([]int64, error)

	// InsertEdges persists edges, resolving each endpoint against symbolMap
	// (qualname -> id) when present, and returns the number inserted. path
	// is the owning file's rel_path, stamped on every row so
	// DeleteFileSymbolsAndEdges/CopyFileForward can address them.
	InsertEdges(ctx context.Context, fileID int64, path string, edges []EdgeInput, symbolMap map[string]int64, gv int64, commitSHA string) (int, error)

	// DeleteFileSymbolsAndEdges removes prior rows for path at gv. Callers
	// must have already captured the SymbolDiff before calling this, per
	// the consistency rule in spec §4.4.
	DeleteFileSymbolsAndEdges(ctx context.Context, path string, gv int64) error

	// CopyFileForward copies a file's row plus its symbols and edges from
	// fromGV to toGV. The copied symbols get fresh ids, and the copied edge
	// rows have NULL source/target symbol ids. The indexer orchestrator (C6)
	// uses this for files whose content hash didn't change, so every graph
	// version remains a complete snapshot without re-running extraction.
	CopyFileForward(ctx context.Context, path string, fromGV, toGV int64) error

	GetSymbolByID(ctx context.Context, id int64) (*Symbol, error)
	GetSymbolByQualname(ctx context.Context, qualname string, gv int64) (*Symbol, error)
	GetSymbolByStableID(ctx context.Context, stableID string, gv int64) (*Symbol, error)

	// FindSymbols returns symbols whose qualname contains querySubstring.
	FindSymbols(ctx context.Context, querySubstring string, limit int, langs []string, gv int64) ([]Symbol, error)
	// FindSymbolsByNamePrefix powers fuzzy qualname suggestion.
	FindSymbolsByNamePrefix(ctx context.Context, prefix string, limit int, langs []string, gv int64) ([]Symbol, error)

	EdgesForSymbol(ctx context.Context, id int64, langs []string, gv int64) ([]Edge, error)
	EdgesForSymbols(ctx context.Context, ids []int64, langs []string, gv int64) (map[int64][]Edge, error)

	// IncomingEdgesByQualnamePattern matches edges whose target_qualname
	// equals name or ends with "."+name — used when a caller's target was
	// never resolved to an id.
	IncomingEdgesByQualnamePattern(ctx context.Context, name string, kinds []EdgeKind, langs []string, gv int64) ([]Edge, error)

	// EdgesByTargetQualnameAndKinds powers trace-flow's bridge pass
	// (publish <-> subscribe on the same channel target).
	EdgesByTargetQualnameAndKinds(ctx context.Context, target string, kinds []EdgeKind, langs []string, gv int64) ([]Edge, error)

	// EnclosingSymbolForLine returns the smallest interval containing line.
	EnclosingSymbolForLine(ctx context.Context, path string, line int, gv int64) (*Symbol, error)

	// ResolveNullTargetEdges fills target_symbol_id wherever target_qualname
	// now matches exactly one symbol; returns the number resolved.
	ResolveNullTargetEdges(ctx context.Context, gv int64) (int, error)

	LookupSymbolIDFuzzy(ctx context.Context, qualname string, langs []string, gv int64) (int64, bool, error)

	CurrentGraphVersion(ctx context.Context) (int64, error)
	NewGraphVersion(ctx context.Context, commitSHA string) (int64, error)
	GraphVersionCommit(ctx context.Context, gv int64) (string, error)

	InsertDiagnostics(ctx context.Context, diags []Diagnostic) error
	ListDiagnostics(ctx context.Context, severity, path string, limit int) ([]Diagnostic, error)
	DiagnosticsSummary(ctx context.Context) (map[string]int, error)

	CoChangesForFiles(ctx context.Context, paths []string, minConfidence float64) ([]CoChangeFact, error)
	UpsertCoChangeFacts(ctx context.Context, facts []CoChangeFact) error

	Close() error
}
