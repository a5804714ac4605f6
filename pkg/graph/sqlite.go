package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kraklabs/lidx/pkg/stableid"
)

// SQLiteStore is the C4 graph store backed by modernc.org/sqlite. Writes are
// serialised behind writeMu per spec §5's single-writer discipline; reads
// use the shared *sql.DB connection pool and observe whatever graph_version
// they ask for, which is never mutated in place once written.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open creates (or reuses) a SQLite-backed graph store at path. Use
// ":memory:" for ephemeral/test stores.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serialises writers anyway; keep it simple.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) UpsertFile(ctx context.Context, relPath, contentHash, lang string, size int64, mtime int64, gv int64) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO files(rel_path, content_hash, language, size_bytes, mtime, graph_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(rel_path, graph_version) DO UPDATE SET
			content_hash=excluded.content_hash, language=excluded.language,
			size_bytes=excluded.size_bytes, mtime=excluded.mtime
	`, relPath, contentHash, lang, size, mtime, gv)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		row := s.db.QueryRowContext(ctx, `SELECT id FROM files WHERE rel_path=? AND graph_version=?`, relPath, gv)
		if e := row.Scan(&id); e != nil {
			return 0, e
		}
	}
	return id, nil
}

func (s *SQLiteStore) GetFile(ctx context.Context, path string, gv int64) (*File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rel_path, content_hash, language, size_bytes, mtime, graph_version
		FROM files WHERE rel_path=? AND graph_version=?`, path, gv)
	var f File
	if err := row.Scan(&f.ID, &f.RelPath, &f.ContentHash, &f.Language, &f.SizeBytes, &f.MTime, &f.GraphVersion); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context, gv int64) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rel_path, content_hash, language, size_bytes, mtime, graph_version
		FROM files WHERE graph_version=? ORDER BY rel_path`, gv)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.RelPath, &f.ContentHash, &f.Language, &f.SizeBytes, &f.MTime, &f.GraphVersion); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetSymbolsForFile(ctx context.Context, path string, gv int64) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, name, qualname, file_path, start_line, end_line, start_col, end_col,
		       start_byte, end_byte, signature, docstring, graph_version, commit_sha, stable_id
		FROM symbols WHERE file_path=? AND graph_version=?`, path, gv)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func scanSymbols(rows *sql.Rows) ([]Symbol, error) {
	var out []Symbol
	for rows.Next() {
		var sym Symbol
		var kind string
		if err := rows.Scan(&sym.ID, &kind, &sym.Name, &sym.Qualname, &sym.FilePath,
			&sym.StartLine, &sym.EndLine, &sym.StartCol, &sym.EndCol,
			&sym.StartByte, &sym.EndByte, &sym.Signature, &sym.Docstring,
			&sym.GraphVersion, &sym.CommitSHA, &sym.StableID); err != nil {
			return nil, err
		}
		sym.Kind = SymbolKind(kind)
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertSymbols(ctx context.Context, fileID int64, path string, syms []SymbolInput, gv int64, commitSHA string) ([]int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols(kind, name, qualname, file_path, start_line, end_line, start_col, end_col,
			start_byte, end_byte, signature, docstring, graph_version, commit_sha, stable_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(syms))
	for _, in := range syms {
		sid := stableid.Of(string(in.Kind), in.Qualname, in.Signature)
		res, err := stmt.ExecContext(ctx, string(in.Kind), in.Name, in.Qualname, path,
			in.StartLine, in.EndLine, in.StartCol, in.EndCol, in.StartByte, in.EndByte,
			in.Signature, in.Docstring, gv, commitSHA, sid)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SQLiteStore) InsertEdges(ctx context.Context, fileID int64, path string, edges []EdgeInput, symbolMap map[string]int64, gv int64, commitSHA string) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges(kind, source_symbol_id, target_symbol_id, source_qualname, target_qualname,
			detail, evidence, evidence_line, confidence, graph_version, commit_sha, file_path)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, e := range edges {
		conf := e.Confidence
		if conf == 0 {
			conf = 1.0
		}
		var srcID, tgtID *int64
		if id, ok := symbolMap[e.SourceQualname]; ok {
			srcID = &id
		}
		if id, ok := symbolMap[e.TargetQualname]; ok {
			tgtID = &id
		}
		detail := e.Detail
		if detail == "" {
			detail = "{}"
		}
		if _, err := stmt.ExecContext(ctx, string(e.Kind), srcID, tgtID, e.SourceQualname, e.TargetQualname,
			detail, e.Evidence, e.EvidenceLine, conf, gv, commitSHA, path); err != nil {
			return n, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return n, err
	}
	return n, nil
}

func (s *SQLiteStore) DeleteFileSymbolsAndEdges(ctx context.Context, path string, gv int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_path=? AND graph_version=?`, path, gv); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE file_path=? AND graph_version=?`, path, gv); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE rel_path=? AND graph_version=?`, path, gv); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) CopyFileForward(ctx context.Context, path string, fromGV, toGV int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO files(rel_path, content_hash, language, size_bytes, mtime, graph_version)
		SELECT rel_path, content_hash, language, size_bytes, mtime, ?
		FROM files WHERE rel_path=? AND graph_version=?
		ON CONFLICT(rel_path, graph_version) DO NOTHING`, toGV, path, fromGV); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO symbols(kind, name, qualname, file_path, start_line, end_line, start_col, end_col,
			start_byte, end_byte, signature, docstring, graph_version, commit_sha, stable_id)
		SELECT kind, name, qualname, file_path, start_line, end_line, start_col, end_col,
			start_byte, end_byte, signature, docstring, ?, commit_sha, stable_id
		FROM symbols WHERE file_path=? AND graph_version=?`, toGV, path, fromGV); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO edges(kind, source_symbol_id, target_symbol_id, source_qualname, target_qualname,
			detail, evidence, evidence_line, confidence, graph_version, commit_sha, file_path)
		SELECT kind, NULL, NULL, source_qualname, target_qualname,
			detail, evidence, evidence_line, confidence, ?, commit_sha, file_path
		FROM edges WHERE file_path=? AND graph_version=?`, toGV, path, fromGV); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) GetSymbolByID(ctx context.Context, id int64) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, qualname, file_path, start_line, end_line, start_col, end_col,
		       start_byte, end_byte, signature, docstring, graph_version, commit_sha, stable_id
		FROM symbols WHERE id=?`, id)
	return scanOneSymbol(row)
}

func (s *SQLiteStore) GetSymbolByQualname(ctx context.Context, qualname string, gv int64) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, qualname, file_path, start_line, end_line, start_col, end_col,
		       start_byte, end_byte, signature, docstring, graph_version, commit_sha, stable_id
		FROM symbols WHERE qualname=? AND graph_version=? LIMIT 1`, qualname, gv)
	return scanOneSymbol(row)
}

func (s *SQLiteStore) GetSymbolByStableID(ctx context.Context, stableID string, gv int64) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, qualname, file_path, start_line, end_line, start_col, end_col,
		       start_byte, end_byte, signature, docstring, graph_version, commit_sha, stable_id
		FROM symbols WHERE stable_id=? AND graph_version=? LIMIT 1`, stableID, gv)
	return scanOneSymbol(row)
}

func scanOneSymbol(row *sql.Row) (*Symbol, error) {
	var sym Symbol
	var kind string
	if err := row.Scan(&sym.ID, &kind, &sym.Name, &sym.Qualname, &sym.FilePath,
		&sym.StartLine, &sym.EndLine, &sym.StartCol, &sym.EndCol,
		&sym.StartByte, &sym.EndByte, &sym.Signature, &sym.Docstring,
		&sym.GraphVersion, &sym.CommitSHA, &sym.StableID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	sym.Kind = SymbolKind(kind)
	return &sym, nil
}

func langFilter(langs []string) (clause string, args []any) {
	if len(langs) == 0 {
		return "", nil
	}
	ph := make([]string, len(langs))
	for i, l := range langs {
		ph[i] = "?"
		args = append(args, l)
	}
	return " AND f.language IN (" + strings.Join(ph, ",") + ")", args
}

func (s *SQLiteStore) FindSymbols(ctx context.Context, querySubstring string, limit int, langs []string, gv int64) ([]Symbol, error) {
	clause, largs := langFilter(langs)
	q := `
		SELECT s.id, s.kind, s.name, s.qualname, s.file_path, s.start_line, s.end_line, s.start_col, s.end_col,
		       s.start_byte, s.end_byte, s.signature, s.docstring, s.graph_version, s.commit_sha, s.stable_id
		FROM symbols s LEFT JOIN files f ON f.rel_path = s.file_path AND f.graph_version = s.graph_version
		WHERE s.graph_version=? AND s.qualname LIKE ?` + clause + ` LIMIT ?`
	args := append([]any{gv, "%" + querySubstring + "%"}, largs...)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func (s *SQLiteStore) FindSymbolsByNamePrefix(ctx context.Context, prefix string, limit int, langs []string, gv int64) ([]Symbol, error) {
	clause, largs := langFilter(langs)
	q := `
		SELECT s.id, s.kind, s.name, s.qualname, s.file_path, s.start_line, s.end_line, s.start_col, s.end_col,
		       s.start_byte, s.end_byte, s.signature, s.docstring, s.graph_version, s.commit_sha, s.stable_id
		FROM symbols s LEFT JOIN files f ON f.rel_path = s.file_path AND f.graph_version = s.graph_version
		WHERE s.graph_version=? AND s.name LIKE ?` + clause + ` LIMIT ?`
	args := append([]any{gv, prefix + "%"}, largs...)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	var out []Edge
	for rows.Next() {
		var e Edge
		var kind string
		var src, tgt sql.NullInt64
		if err := rows.Scan(&e.ID, &kind, &src, &tgt, &e.SourceQualname, &e.TargetQualname,
			&e.Detail, &e.Evidence, &e.EvidenceLine, &e.Confidence, &e.GraphVersion, &e.CommitSHA); err != nil {
			return nil, err
		}
		e.Kind = EdgeKind(kind)
		if src.Valid {
			v := src.Int64
			e.SourceSymbolID = &v
		}
		if tgt.Valid {
			v := tgt.Int64
			e.TargetSymbolID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) EdgesForSymbol(ctx context.Context, id int64, langs []string, gv int64) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, source_symbol_id, target_symbol_id, source_qualname, target_qualname,
		       detail, evidence, evidence_line, confidence, graph_version, commit_sha
		FROM edges WHERE graph_version=? AND (source_symbol_id=? OR target_symbol_id=?)`, gv, id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *SQLiteStore) EdgesForSymbols(ctx context.Context, ids []int64, langs []string, gv int64) (map[int64][]Edge, error) {
	out := make(map[int64][]Edge, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ph := make([]string, len(ids))
	args := make([]any, 0, len(ids)*2+1)
	args = append(args, gv)
	for i, id := range ids {
		ph[i] = "?"
		args = append(args, id)
	}
	for _, id := range ids {
		args = append(args, id)
	}
	q := fmt.Sprintf(`
		SELECT id, kind, source_symbol_id, target_symbol_id, source_qualname, target_qualname,
		       detail, evidence, evidence_line, confidence, graph_version, commit_sha
		FROM edges WHERE graph_version=? AND (source_symbol_id IN (%s) OR target_symbol_id IN (%s))`,
		strings.Join(ph, ","), strings.Join(ph, ","))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	edges, err := scanEdges(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if e.SourceSymbolID != nil {
			out[*e.SourceSymbolID] = append(out[*e.SourceSymbolID], e)
		}
		if e.TargetSymbolID != nil && (e.SourceSymbolID == nil || *e.SourceSymbolID != *e.TargetSymbolID) {
			out[*e.TargetSymbolID] = append(out[*e.TargetSymbolID], e)
		}
	}
	return out, nil
}

func (s *SQLiteStore) IncomingEdgesByQualnamePattern(ctx context.Context, name string, kinds []EdgeKind, langs []string, gv int64) ([]Edge, error) {
	kindClause, kargs := edgeKindFilter(kinds)
	q := `
		SELECT id, kind, source_symbol_id, target_symbol_id, source_qualname, target_qualname,
		       detail, evidence, evidence_line, confidence, graph_version, commit_sha
		FROM edges WHERE graph_version=? AND (target_qualname=? OR target_qualname LIKE ?)` + kindClause
	args := append([]any{gv, name, "%." + name}, kargs...)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *SQLiteStore) EdgesByTargetQualnameAndKinds(ctx context.Context, target string, kinds []EdgeKind, langs []string, gv int64) ([]Edge, error) {
	kindClause, kargs := edgeKindFilter(kinds)
	q := `
		SELECT id, kind, source_symbol_id, target_symbol_id, source_qualname, target_qualname,
		       detail, evidence, evidence_line, confidence, graph_version, commit_sha
		FROM edges WHERE graph_version=? AND target_qualname=?` + kindClause
	args := append([]any{gv, target}, kargs...)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func edgeKindFilter(kinds []EdgeKind) (string, []any) {
	if len(kinds) == 0 {
		return "", nil
	}
	ph := make([]string, len(kinds))
	args := make([]any, len(kinds))
	for i, k := range kinds {
		ph[i] = "?"
		args[i] = string(k)
	}
	return " AND kind IN (" + strings.Join(ph, ",") + ")", args
}

func (s *SQLiteStore) EnclosingSymbolForLine(ctx context.Context, path string, line int, gv int64) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, qualname, file_path, start_line, end_line, start_col, end_col,
		       start_byte, end_byte, signature, docstring, graph_version, commit_sha, stable_id
		FROM symbols
		WHERE file_path=? AND graph_version=? AND start_line<=? AND end_line>=?
		ORDER BY (end_line - start_line) ASC LIMIT 1`, path, gv, line, line)
	return scanOneSymbol(row)
}

func (s *SQLiteStore) ResolveNullTargetEdges(ctx context.Context, gv int64) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE edges SET target_symbol_id = (
			SELECT s.id FROM symbols s WHERE s.qualname = edges.target_qualname AND s.graph_version = edges.graph_version
		)
		WHERE graph_version=? AND target_symbol_id IS NULL AND target_qualname <> ''
		AND (SELECT COUNT(*) FROM symbols s WHERE s.qualname = edges.target_qualname AND s.graph_version = edges.graph_version) = 1
	`, gv)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) LookupSymbolIDFuzzy(ctx context.Context, qualname string, langs []string, gv int64) (int64, bool, error) {
	sym, err := s.GetSymbolByQualname(ctx, qualname, gv)
	if err != nil {
		return 0, false, err
	}
	if sym != nil {
		return sym.ID, true, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id FROM symbols WHERE LOWER(qualname)=LOWER(?) AND graph_version=? LIMIT 1`, qualname, gv)
	var id int64
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func (s *SQLiteStore) CurrentGraphVersion(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM graph_versions`)
	var gv int64
	if err := row.Scan(&gv); err != nil {
		return 0, err
	}
	if gv == 0 {
		return s.NewGraphVersion(ctx, "")
	}
	return gv, nil
}

func (s *SQLiteStore) NewGraphVersion(ctx context.Context, commitSHA string) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.ExecContext(ctx, `INSERT INTO graph_versions(created_at, commit_sha) VALUES (?, ?)`,
		time.Now().Unix(), commitSHA)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) GraphVersionCommit(ctx context.Context, gv int64) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT commit_sha FROM graph_versions WHERE id=?`, gv)
	var sha string
	if err := row.Scan(&sha); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return sha, nil
}

func (s *SQLiteStore) InsertDiagnostics(ctx context.Context, diags []Diagnostic) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics(rule_id, severity, tool, file_path, line, message) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, d := range diags {
		if _, err := stmt.ExecContext(ctx, d.RuleID, d.Severity, d.Tool, d.FilePath, d.Line, d.Message); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListDiagnostics(ctx context.Context, severity, path string, limit int) ([]Diagnostic, error) {
	q := `SELECT id, rule_id, severity, tool, file_path, line, message FROM diagnostics WHERE 1=1`
	var args []any
	if severity != "" {
		q += ` AND severity=?`
		args = append(args, severity)
	}
	if path != "" {
		q += ` AND file_path=?`
		args = append(args, path)
	}
	q += ` LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.ID, &d.RuleID, &d.Severity, &d.Tool, &d.FilePath, &d.Line, &d.Message); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DiagnosticsSummary(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT severity, COUNT(*) FROM diagnostics GROUP BY severity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, err
		}
		out[sev] = n
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CoChangesForFiles(ctx context.Context, paths []string, minConfidence float64) ([]CoChangeFact, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	ph := make([]string, len(paths))
	args := make([]any, 0, len(paths)*2+1)
	for i, p := range paths {
		ph[i] = "?"
		args = append(args, p)
	}
	for _, p := range paths {
		args = append(args, p)
	}
	args = append(args, minConfidence)
	q := fmt.Sprintf(`
		SELECT file_a, file_b, confidence, support, co_change_count FROM co_change_facts
		WHERE (file_a IN (%s) OR file_b IN (%s)) AND confidence >= ?`, strings.Join(ph, ","), strings.Join(ph, ","))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CoChangeFact
	for rows.Next() {
		var f CoChangeFact
		if err := rows.Scan(&f.FileA, &f.FileB, &f.Confidence, &f.Support, &f.CoChangeCount); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertCoChangeFacts(ctx context.Context, facts []CoChangeFact) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO co_change_facts(file_a, file_b, confidence, support, co_change_count)
		VALUES (?,?,?,?,?)
		ON CONFLICT(file_a, file_b) DO UPDATE SET
			confidence=excluded.confidence, support=excluded.support, co_change_count=excluded.co_change_count`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, f.FileA, f.FileB, f.Confidence, f.Support, f.CoChangeCount); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// marshalDetail is a small helper edge producers use to build the Detail
// JSON blobs described in spec §6.
func marshalDetail(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

var _ Store = (*SQLiteStore)(nil)
