// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/lidx/internal/ui"
)

// runResetCmd mirrors cmd/cie/reset.go's --yes confirmation gate, deleting
// the local graph database instead of a CozoDB data directory.
func runResetCmd(env *env, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if !*confirm {
		fmt.Fprintln(os.Stderr, "Error: you must pass --yes to confirm the reset")
		fmt.Fprintf(os.Stderr, "This will delete %s\n", env.dbPath)
		os.Exit(1)
	}

	if err := env.store.Close(); err != nil {
		ui.Warning("closing graph store: " + err.Error())
	}
	env.store = nil

	if err := os.Remove(env.dbPath); err != nil && !os.IsNotExist(err) {
		ui.Error("deleting database: " + err.Error())
		os.Exit(1)
	}
	ui.Success("reset complete: " + env.dbPath + " removed")
	ui.Info("run 'lidx index' to rebuild the graph")
}
