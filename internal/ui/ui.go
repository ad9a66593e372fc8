// Package ui renders metav's terminal output — diagnostics and run
// summaries — with lipgloss, following the teacher's palette-and-style
// table approach rather than raw ANSI escapes sprinkled through the CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/madappgang/metav/internal/metaverr"
)

var (
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e06c75"))
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#61afef"))
	posStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#98c379"))
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5c6370"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98c379"))
)

// RenderDiagnostic formats one MetavError as a single colored line
// (kind, position, message) followed by its optional snippet, matching
// spec.md §7's "single diagnostic line per error" requirement while
// adding color for an interactive terminal.
func RenderDiagnostic(e *metaverr.MetavError, colorize bool) string {
	if !colorize {
		return e.Render()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s", errorStyle.Render(string(e.Kind)))
	if len(e.Pos) > 0 {
		fmt.Fprintf(&b, " %s", posStyle.Render(e.Pos.String()))
	}
	fmt.Fprintf(&b, ": %s", kindStyle.Render(e.Message))
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	if e.Snippet != "" {
		b.WriteString("\n")
		b.WriteString(snippetStyle.Render(e.Snippet))
	}
	return b.String()
}

// RenderSummary prints a one-line success message naming how many files
// were rewritten, or that the run was a no-op.
func RenderSummary(filesWritten int, dryRun bool) string {
	if filesWritten == 0 {
		return okStyle.Render("no changes: edit plan was empty")
	}
	verb := "rewrote"
	if dryRun {
		verb = "would rewrite"
	}
	return okStyle.Render(fmt.Sprintf("%s %d file(s)", verb, filesWritten))
}
