// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/lidx/internal/output"
	"github.com/kraklabs/lidx/internal/ui"
)

// runStatusCmd mirrors cmd/cie/status.go's dual JSON/text status report,
// but sourced from index_status (C10) instead of a CozoDB count query.
func runStatusCmd(env *env, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOut := fs.BoolP("json", "j", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	resp, rerr := env.dispatcher.Dispatch(context.Background(), "index_status", nil)
	if rerr != nil {
		ui.Error(rerr.Error())
		os.Exit(1)
	}

	if *jsonOut {
		_ = output.JSON(resp.Data)
		return
	}

	status, _ := resp.Data.(map[string]any)
	ui.Header("lidx status")
	fmt.Printf("%s %v\n", ui.Label("Graph version:"), status["graph_version"])
	fmt.Printf("%s %v\n", ui.Label("Commit:"), status["commit_sha"])
	fmt.Printf("%s %v\n", ui.Label("Files indexed:"), status["file_count"])
	fmt.Printf("%s %s\n", ui.Label("Database:"), env.dbPath)
}
