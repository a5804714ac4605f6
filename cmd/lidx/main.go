// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Command lidx is the thin CLI shell over the code intelligence engine: it
// owns flag parsing, process wiring, and human-readable output, and
// delegates every piece of actual logic to pkg/indexer and pkg/rpc. No
// business logic lives here, per the teacher's own cmd/cie/main.go shape
// (global flags, a command switch, one run<Command> function per file).
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/lidx/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		showVersion = flag.BoolP("version", "v", false, "Show version and exit")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		dbPath      = flag.String("db", "", "Path to the graph database (default: ./.lidx/graph.db)")
		configPath  = flag.String("config", "", "Path to config file (default: ./.lidx/config.yaml)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `lidx - polyglot code intelligence engine

Usage:
  lidx <command> [options]

Commands:
  index         Full index of the current repository
  reindex       Same full walk as index (used by the post-commit hook)
  status        Show index status for the current repository
  query         Invoke one RPC method and print its JSON response
  search        Hybrid exact/fuzzy search over the indexed repository
  reset         Delete the local graph database (destructive!)
  install-hook  Install a git post-commit hook that reindexes on commit

Global Options:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	ui.InitColors(*noColor)

	if *showVersion {
		fmt.Printf("lidx version %s (%s)\n", version, commit)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	env, err := newEnv(*dbPath, *configPath)
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "index":
		runIndexCmd(env, cmdArgs, true)
	case "reindex":
		runIndexCmd(env, cmdArgs, false)
	case "status":
		runStatusCmd(env, cmdArgs)
	case "query":
		runQueryCmd(env, cmdArgs)
	case "search":
		runSearchCmd(env, cmdArgs)
	case "reset":
		runResetCmd(env, cmdArgs)
	case "install-hook":
		runInstallHookCmd(env, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		flag.Usage()
		os.Exit(1)
	}

	if err := env.close(); err != nil {
		ui.Warning("closing graph store: " + err.Error())
	}
}
