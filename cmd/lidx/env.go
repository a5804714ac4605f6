// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/lidx/internal/config"
	gathercontext "github.com/kraklabs/lidx/pkg/context"
	"github.com/kraklabs/lidx/pkg/extract"
	"github.com/kraklabs/lidx/pkg/graph"
	"github.com/kraklabs/lidx/pkg/indexer"
	"github.com/kraklabs/lidx/pkg/rpc"
	"github.com/kraklabs/lidx/pkg/search"
)

// env bundles everything every subcommand needs: the opened store, the
// extractor registry, and a ready-to-use Dispatcher wired exactly as a
// long-lived RPC server process would wire it (spec §6's "one process,
// one store" assumption) — the CLI just never keeps that process alive
// past one command.
type env struct {
	repoRoot   string
	dbPath     string
	logger     *slog.Logger
	store      *graph.SQLiteStore
	registry   *extract.Registry
	indexer    *indexer.Indexer
	searcher   *search.Engine
	assembler  *gathercontext.Assembler
	dispatcher *rpc.Dispatcher
	cfg        config.Config
}

func newEnv(dbPathFlag, configPathFlag string) (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	dbPath := dbPathFlag
	if dbPath == "" {
		dbPath = filepath.Join(cwd, ".lidx", "graph.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	configPath := configPathFlag
	if configPath == "" {
		configPath = filepath.Join(cwd, ".lidx", "config.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := graph.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	registry := extract.NewRegistry()
	ix := indexer.New(store, registry, logger, indexer.WithRepoRoot(cwd))

	reader := func(path string) (string, error) {
		data, err := os.ReadFile(filepath.Join(cwd, path))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	fileText := func(path string) ([]string, error) {
		text, err := reader(path)
		if err != nil {
			return nil, err
		}
		return splitLines(text), nil
	}

	searcher := search.NewEngine(store, fileText)
	assembler := gathercontext.NewAssembler(store, searcher, reader)
	dispatcher := rpc.NewDispatcher(store, searcher, assembler, ix, cfg, logger)

	return &env{
		repoRoot: cwd, dbPath: dbPath, logger: logger,
		store: store, registry: registry, indexer: ix,
		searcher: searcher, assembler: assembler, dispatcher: dispatcher, cfg: cfg,
	}, nil
}

func (e *env) close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i, r := range text {
		if r == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	lines = append(lines, text[start:])
	return lines
}
