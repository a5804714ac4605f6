// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/lidx/pkg/indexer"
)

// extToLang mirrors the primary suffix each extract.LangExtractor claims
// (pkg/extract/resolve.go's extCandidates, inverted) — the one place in
// this module that turns a bare file extension into the language tag the
// rest of the pipeline keys off of. Indexing the repository is the only
// ambient CLI concern the spec's Non-goals name explicitly (the
// filesystem-scan walker): this table and collectFiles below are that
// walker, hand-rolled because no example in the corpus ships a standalone
// gitignore-aware walker library.
var extToLang = map[string]string{
	".go":    "go",
	".py":    "python",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".rs":    "rust",
	".cs":    "csharp",
	".lua":   "lua",
	".bicep": "bicep",
}

var skipDirs = map[string]bool{
	".git": true, ".lidx": true, ".hg": true, ".svn": true,
	"node_modules": true, "vendor": true, "target": true,
	"dist": true, "build": true, ".venv": true, "__pycache__": true,
}

// collectFiles walks root and returns every file whose extension maps to a
// supported language, skipping common vendor/build directories. It does not
// consult .gitignore — a real deployment would layer that on top (the spec
// explicitly treats the gitignore-aware walker as an external concern whose
// output this module only consumes).
func collectFiles(root string) ([]indexer.FileToIndex, error) {
	var out []indexer.FileToIndex
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		lang, ok := extToLang[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		out = append(out, indexer.FileToIndex{
			RelPath: filepath.ToSlash(rel), Language: lang,
			Content: content, MTime: info.ModTime().Unix(),
		})
		return nil
	})
	return out, err
}
