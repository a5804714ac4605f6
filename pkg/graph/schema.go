package graph

const schema = `
CREATE TABLE IF NOT EXISTS graph_versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at INTEGER NOT NULL,
	commit_sha TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rel_path TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	language TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	graph_version INTEGER NOT NULL,
	UNIQUE(rel_path, graph_version)
);
CREATE INDEX IF NOT EXISTS idx_files_gv ON files(graph_version);

CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	qualname TEXT NOT NULL,
	file_path TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	start_col INTEGER NOT NULL,
	end_col INTEGER NOT NULL,
	start_byte INTEGER NOT NULL,
	end_byte INTEGER NOT NULL,
	signature TEXT NOT NULL DEFAULT '',
	docstring TEXT NOT NULL DEFAULT '',
	graph_version INTEGER NOT NULL,
	commit_sha TEXT NOT NULL DEFAULT '',
	stable_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_symbols_gv ON symbols(graph_version);
CREATE INDEX IF NOT EXISTS idx_symbols_qualname ON symbols(qualname, graph_version);
CREATE INDEX IF NOT EXISTS idx_symbols_stable_id ON symbols(stable_id, graph_version);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path, graph_version);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name, graph_version);

CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	source_symbol_id INTEGER,
	target_symbol_id INTEGER,
	source_qualname TEXT NOT NULL DEFAULT '',
	target_qualname TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '{}',
	evidence TEXT NOT NULL DEFAULT '',
	evidence_line INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 1.0,
	file_path TEXT NOT NULL DEFAULT '',
	graph_version INTEGER NOT NULL,
	commit_sha TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_edges_gv ON edges(graph_version);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_symbol_id, graph_version);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_symbol_id, graph_version);
CREATE INDEX IF NOT EXISTS idx_edges_source_q ON edges(source_qualname, graph_version);
CREATE INDEX IF NOT EXISTS idx_edges_target_q ON edges(target_qualname, graph_version);
CREATE INDEX IF NOT EXISTS idx_edges_file ON edges(file_path, graph_version);

CREATE TABLE IF NOT EXISTS diagnostics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_id TEXT NOT NULL,
	severity TEXT NOT NULL,
	tool TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line INTEGER NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_diag_path ON diagnostics(file_path);
CREATE INDEX IF NOT EXISTS idx_diag_severity ON diagnostics(severity);

CREATE TABLE IF NOT EXISTS co_change_facts (
	file_a TEXT NOT NULL,
	file_b TEXT NOT NULL,
	confidence REAL NOT NULL,
	support INTEGER NOT NULL,
	co_change_count INTEGER NOT NULL,
	PRIMARY KEY (file_a, file_b)
);
`
