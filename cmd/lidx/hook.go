// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/lidx/internal/ui"
)

// postCommitHook mirrors cmd/cie/hook.go's shell-out hook body, queuing a
// background reindex instead of CIE's CozoDB incremental-index command.
const postCommitHook = `#!/bin/sh
# lidx auto-index hook - installed by: lidx install-hook
# Remove with: lidx install-hook --remove
lidx reindex --quiet >/dev/null 2>&1 &
`

// runInstallHookCmd installs or removes a git post-commit hook, grounded on
// cmd/cie/hook.go's runInstallHook shape (force/remove flags, a fixed hook
// body written to .git/hooks/post-commit).
func runInstallHookCmd(env *env, args []string) {
	fs := flag.NewFlagSet("install-hook", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing hook")
	remove := fs.Bool("remove", false, "Remove the hook instead of installing")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	gitDir, err := gitDirFor(env.repoRoot)
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")

	if *remove {
		if err := os.Remove(hookPath); err != nil && !os.IsNotExist(err) {
			ui.Error("removing hook: " + err.Error())
			os.Exit(1)
		}
		ui.Success("post-commit hook removed")
		return
	}

	if existing, err := os.ReadFile(hookPath); err == nil && !*force {
		if !strings.Contains(string(existing), "lidx") {
			ui.Error("a post-commit hook already exists; pass --force to overwrite")
			os.Exit(1)
		}
	}

	if err := os.WriteFile(hookPath, []byte(postCommitHook), 0o755); err != nil {
		ui.Error("writing hook: " + err.Error())
		os.Exit(1)
	}
	ui.Success("post-commit hook installed at " + hookPath)
}

func gitDirFor(repoRoot string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	dir := strings.TrimSpace(string(out))
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	return filepath.Join(repoRoot, dir), nil
}
