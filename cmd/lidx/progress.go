// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// progressEnabled reports whether a progress bar should be drawn: not when
// the caller asked for quiet output, and not when stderr isn't a TTY
// (piped output, CI) — the same two conditions cmd/cie/progress.go checks.
func progressEnabled(quiet bool) bool {
	return !quiet && isatty.IsTerminal(os.Stderr.Fd())
}

// newIndexProgressBar builds the indexing progress bar with the same
// styling as cmd/cie/progress.go's NewProgressBar, adapted to take a plain
// quiet flag instead of a GlobalFlags struct. Returns nil when disabled,
// so callers can call bar.Add(1)/bar.Finish() unconditionally-guarded by a
// nil check.
func newIndexProgressBar(total int, quiet bool) *progressbar.ProgressBar {
	if !progressEnabled(quiet) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("indexing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
