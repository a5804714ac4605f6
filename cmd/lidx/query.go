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
)

// runQueryCmd invokes one RPC method (spec §6's method table) ad hoc and
// prints its JSON response — the CLI-level equivalent of cmd/cie/query.go's
// CozoScript runner, except the "script" is just a method name plus a JSON
// params object instead of a Datalog program. There is no JSON-RPC
// transport here (that's an explicit Non-goal): this calls the in-process
// Dispatcher directly.
func runQueryCmd(env *env, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	paramsFlag := fs.String("params", "{}", "JSON object of method parameters")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: lidx query [--params='{...}'] <method>")
		os.Exit(1)
	}
	method := rest[0]

	resp, rerr := env.dispatcher.Dispatch(context.Background(), method, json.RawMessage(*paramsFlag))
	if rerr != nil {
		// rerr carries Kind/Suggestions the generic output.ErrorJSON envelope
		// doesn't model, so it's encoded directly rather than via JSONErrorTo.
		if err := output.JSONTo(os.Stderr, rerr); err != nil {
			fmt.Fprintln(os.Stderr, rerr.Error())
		}
		os.Exit(1)
	}

	if err := output.JSON(resp); err != nil {
		ui.Error("encoding response: " + err.Error())
		os.Exit(1)
	}
}
