package ui

import "github.com/fatih/color"

// Sprintf-style renderers. Each honours color.NoColor at call time.
var (
	Accent  = color.New(color.FgCyan).SprintfFunc()
	Success = color.New(color.FgGreen).SprintfFunc()
	Warn    = color.New(color.FgYellow).SprintfFunc()
	Error   = color.New(color.FgRed, color.Bold).SprintfFunc()
	Muted   = color.New(color.FgHiBlack).SprintfFunc()
	Bold    = color.New(color.Bold).SprintfFunc()
)
