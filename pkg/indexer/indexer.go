// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package indexer implements the indexer orchestrator (C6, spec §4.6): it
// walks a pre-scanned list of files, extracts symbols/edges for whichever
// ones changed, diffs them against the prior graph version, and persists
// everything at a new graph version. It does not scan the filesystem itself
// — that's the teacher's pkg/ingestion/repo_loader.go territory, out of
// scope per the spec's Non-goals — so callers hand it the file list.
//
// The parallel-extract-then-serialize-writes shape follows the teacher's
// LocalPipeline.Run/parseFilesParallel (pkg/ingestion/local_pipeline.go):
// extraction fans out across a worker pool since files share no mutable
// state, but graph-store writes funnel through a single goroutine because
// the store's writeMu only serialises within one *sql.DB handle, not across
// callers racing to open a transaction out of order.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/lidx/pkg/differ"
	"github.com/kraklabs/lidx/pkg/extract"
	"github.com/kraklabs/lidx/pkg/graph"
)

// FileToIndex is one entry in the caller-supplied, pre-scanned file list.
type FileToIndex struct {
	RelPath  string
	Language string
	Content  []byte
	MTime    int64
}

// Result summarizes a reindex run per spec §4.6.
type Result struct {
	GraphVersion int64
	Scanned      int
	Indexed      int
	Skipped      int
	Deleted      int
	Errors       []FileError
}

// FileError records a per-file extraction failure. Per spec §7's
// parser-failure rule the file is still indexed with its synthetic module
// symbol — this only records that something went wrong along the way.
type FileError struct {
	Path string
	Err  string
}

type extractedFile struct {
	path     string
	lang     string
	hash     string
	size     int64
	mtime    int64
	symbols  []graph.SymbolInput
	edges    []graph.EdgeInput
	unchanged bool
	err      error
}

// Indexer runs reindex passes against a graph.Store using a registry of
// language extractors.
type Indexer struct {
	store    graph.Store
	registry *extract.Registry
	logger   *slog.Logger
	workers  int
	repoRoot string
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithWorkers overrides the parallel extraction worker count (default 4,
// mirroring the teacher's ParseWorkers default in local_pipeline.go).
func WithWorkers(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithRepoRoot sets the root used when resolving relative imports.
func WithRepoRoot(root string) Option {
	return func(ix *Indexer) { ix.repoRoot = root }
}

// New builds an Indexer over store using registry's language extractors.
func New(store graph.Store, registry *extract.Registry, logger *slog.Logger, opts ...Option) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Indexer{store: store, registry: registry, logger: logger, workers: 4}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Reindex runs one full pass over files per spec §4.6's per-file algorithm:
// read bytes (already in hand), hash, compare to the stored content_hash at
// the current graph version; if equal, copy the file forward unchanged; if
// not, extract, resolve imports, diff against the stored symbols, and
// persist at a new graph version. commitSHA is recorded on the new
// GraphVersion row and stamped on every symbol/edge written this run.
func (ix *Indexer) Reindex(ctx context.Context, files []FileToIndex, commitSHA string) (*Result, error) {
	start := time.Now()
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	metricsIndexerInstance.init()

	fromGV, err := ix.store.CurrentGraphVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("current graph version: %w", err)
	}
	toGV, err := ix.store.NewGraphVersion(ctx, commitSHA)
	if err != nil {
		return nil, fmt.Errorf("new graph version: %w", err)
	}

	listFiles := func() []string {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.RelPath
		}
		return paths
	}

	extracted, err := ix.extractParallel(ctx, files, fromGV, listFiles)
	if err != nil {
		return nil, err
	}

	res := &Result{GraphVersion: toGV, Scanned: len(files)}

	for _, ef := range extracted {
		if ef.err != nil {
			res.Errors = append(res.Errors, FileError{Path: ef.path, Err: ef.err.Error()})
			metricsIndexerInstance.extractErrors.Inc()
		}
		if ef.unchanged {
			if err := ix.store.CopyFileForward(ctx, ef.path, fromGV, toGV); err != nil {
				return nil, fmt.Errorf("copy file forward %s: %w", ef.path, err)
			}
			res.Skipped++
			metricsIndexerInstance.filesSkipped.Inc()
			continue
		}
		if err := ix.writeFile(ctx, ef, fromGV, toGV, commitSHA, res); err != nil {
			return nil, fmt.Errorf("write file %s: %w", ef.path, err)
		}
		res.Indexed++
		metricsIndexerInstance.filesIndexed.Inc()
	}

	deleted, err := ix.deleteVanished(ctx, files, fromGV, toGV)
	if err != nil {
		return nil, err
	}
	res.Deleted = deleted

	metricsIndexerInstance.runDuration.Observe(time.Since(start).Seconds())
	ix.logger.Info("indexer.reindex.complete",
		"graph_version", toGV, "scanned", res.Scanned, "indexed", res.Indexed,
		"skipped", res.Skipped, "deleted", res.Deleted, "errors", len(res.Errors),
		"duration_ms", time.Since(start).Milliseconds())

	return res, nil
}

// extractParallel runs extraction across files concurrently. Each file is
// independent — no shared mutable state — so this is the embarrassingly
// parallel half of spec §4.6; results are collected in file order for
// deterministic downstream writes.
func (ix *Indexer) extractParallel(ctx context.Context, files []FileToIndex, fromGV int64, listFiles func() []string) ([]extractedFile, error) {
	out := make([]extractedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			out[i] = ix.extractOne(gctx, f, fromGV, listFiles)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (ix *Indexer) extractOne(ctx context.Context, f FileToIndex, fromGV int64, listFiles func() []string) extractedFile {
	sum := sha256.Sum256(f.Content)
	hash := hex.EncodeToString(sum[:])

	ef := extractedFile{path: f.RelPath, lang: f.Language, hash: hash, size: int64(len(f.Content)), mtime: f.MTime}

	if prior, err := ix.store.GetFile(ctx, f.RelPath, fromGV); err == nil && prior != nil && prior.ContentHash == hash {
		ef.unchanged = true
		return ef
	}

	ex := ix.registry.For(f.Language)
	if ex == nil {
		ef.err = fmt.Errorf("no extractor registered for language %q", f.Language)
		return ef
	}

	moduleQualname := ex.ModuleQualnameFromRelPath(f.RelPath)
	result, err := ex.Extract(f.Content, f.RelPath, moduleQualname)
	if err != nil {
		ef.err = err
	}
	ef.symbols = result.Symbols
	ef.edges = ex.ResolveImports(ix.repoRoot, f.RelPath, moduleQualname, result.Edges, listFiles)
	return ef
}

// writeFile diffs ef against the symbols stored at fromGV and persists the
// result at toGV. Writes are sequential — the store already serialises
// them behind writeMu, but doing it from a single caller keeps the
// transaction ordering predictable rather than left to goroutine scheduling.
func (ix *Indexer) writeFile(ctx context.Context, ef extractedFile, fromGV, toGV int64, commitSHA string, res *Result) error {
	oldSymbols, err := ix.store.GetSymbolsForFile(ctx, ef.path, fromGV)
	if err != nil {
		return fmt.Errorf("get old symbols: %w", err)
	}
	_ = differ.Diff(oldSymbols, ef.symbols)

	fileID, err := ix.store.UpsertFile(ctx, ef.path, ef.hash, ef.lang, ef.size, ef.mtime, toGV)
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}

	ids, err := ix.store.InsertSymbols(ctx, fileID, ef.path, ef.symbols, toGV, commitSHA)
	if err != nil {
		return fmt.Errorf("insert symbols: %w", err)
	}
	symbolMap := make(map[string]int64, len(ids))
	for i, s := range ef.symbols {
		if i < len(ids) {
			symbolMap[s.Qualname] = ids[i]
		}
	}

	if _, err := ix.store.InsertEdges(ctx, fileID, ef.path, ef.edges, symbolMap, toGV, commitSHA); err != nil {
		return fmt.Errorf("insert edges: %w", err)
	}
	return nil
}

// deleteVanished counts files present at fromGV but absent from this run's
// file list: their symbols/edges are simply not carried forward into toGV
// (every query is scoped to an exact graph_version, so omitting a file from
// a version is how deletion is represented — there is no tombstone row).
func (ix *Indexer) deleteVanished(ctx context.Context, files []FileToIndex, fromGV, toGV int64) (int, error) {
	if fromGV == toGV {
		return 0, nil
	}
	priorFiles, err := ix.store.ListFiles(ctx, fromGV)
	if err != nil {
		return 0, fmt.Errorf("list prior files: %w", err)
	}
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.RelPath] = true
	}
	deleted := 0
	for _, pf := range priorFiles {
		if !present[pf.RelPath] {
			deleted++
		}
	}
	return deleted, nil
}
