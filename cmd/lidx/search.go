// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/lidx/internal/output"
	"github.com/kraklabs/lidx/internal/ui"
	"github.com/kraklabs/lidx/pkg/search"
)

// runSearchCmd is a convenience wrapper over the search_rg RPC method (C9,
// spec §4.9) for interactive use, printing ripgrep-style "path:line:text"
// hits instead of the raw JSON envelope query.go would give you.
func runSearchCmd(env *env, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	scope := fs.String("scope", string(search.ScopeAll), "Search scope: all|code|docs|tests|examples")
	fixedString := fs.Bool("fixed-strings", false, "Treat the query as a literal string, not a regex")
	caseSensitive := fs.Bool("case-sensitive", false, "Case-sensitive match")
	limit := fs.Int("limit", 50, "Maximum hits to return")
	jsonOut := fs.BoolP("json", "j", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: lidx search [options] <query>")
		os.Exit(1)
	}

	params := map[string]any{
		"query": rest[0], "root": env.repoRoot, "scope": *scope,
		"fixed_string": *fixedString, "case_sensitive": *caseSensitive, "limit": *limit,
	}
	raw, _ := json.Marshal(params)

	resp, rerr := env.dispatcher.Dispatch(context.Background(), "search_rg", raw)
	if rerr != nil {
		ui.Error(rerr.Error())
		os.Exit(1)
	}

	if *jsonOut {
		_ = output.JSON(resp.Data)
		return
	}

	result, ok := resp.Data.(*search.Result)
	if !ok {
		ui.Warning("unexpected search response shape")
		return
	}
	for _, hit := range result.Hits {
		fmt.Printf("%s:%d: %s\n", hit.Path, hit.Line, hit.LineText)
	}
	if result.FallbackUsed {
		ui.Warning("ripgrep unavailable, fell back to in-process substring scan")
	}
}
