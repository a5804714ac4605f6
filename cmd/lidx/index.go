// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/lidx/internal/ui"
	"github.com/kraklabs/lidx/pkg/xref"
)

// currentCommitSHA shells out to git the way pkg/ingestion/delta.go does
// (exec.Command("git", "rev-parse", ...)) — a best-effort label for the
// graph version being written, not a correctness dependency: an empty
// string is a perfectly valid commit_sha for a repo with no git history.
func currentCommitSHA(repoRoot string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// runIndexCmd backs both "index" (always a full filesystem walk) and
// "reindex" (a full walk too, at the CLI layer — incremental reindexing of
// specific paths is the RPC reindex method's job, driven by an editor or a
// git hook, per hook.go).
func runIndexCmd(env *env, args []string, full bool) {
	name := "index"
	if !full {
		name = "reindex"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	quiet := fs.Bool("quiet", false, "Suppress the progress bar")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	files, err := collectFiles(env.repoRoot)
	if err != nil {
		ui.Error("walking repository: " + err.Error())
		os.Exit(1)
	}

	bar := newIndexProgressBar(len(files), *quiet)

	ctx := context.Background()
	commitSHA := currentCommitSHA(env.repoRoot)

	result, err := env.indexer.Reindex(ctx, files, commitSHA)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		ui.Error("reindex failed: " + err.Error())
		os.Exit(1)
	}

	sources := make([]xref.FileSource, 0, len(files))
	for _, f := range files {
		sources = append(sources, xref.FileSource{RelPath: f.RelPath, Language: f.Language, Content: f.Content})
	}
	xrefCount, err := xref.Mine(ctx, env.store, sources, result.GraphVersion, commitSHA)
	if err != nil {
		ui.Warning("cross-reference mining failed: " + err.Error())
	}

	ui.Successf("indexed graph version %d: %d scanned, %d indexed, %d skipped, %d deleted, %d xrefs",
		result.GraphVersion, result.Scanned, result.Indexed, result.Skipped, result.Deleted, xrefCount)
	if len(result.Errors) > 0 {
		ui.Warningf("%d file(s) failed to parse:", len(result.Errors))
		for _, fe := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", fe.Path, fe.Err)
		}
	}
}
