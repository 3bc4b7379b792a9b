package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"cursive0/internal/diag"
	"cursive0/internal/driver"
	"cursive0/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgCyan)
)

func colorEnabled() bool {
	switch flagColor {
	case "always":
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(os.Stderr.Fd()))
	}
}

// printDiagnostics renders the stream in insertion order, with a source
// excerpt and caret when the diagnostic carries a span. --max-diagnostics
// caps the rendered count; suppressed diagnostics are summarized, never
// reordered or dropped from the stream itself.
func printDiagnostics(res *driver.Result) {
	color.NoColor = !colorEnabled()
	items := res.Stream.Items()
	suppressed := 0
	if flagMaxDiagnostics > 0 && len(items) > flagMaxDiagnostics {
		suppressed = len(items) - flagMaxDiagnostics
		items = items[:flagMaxDiagnostics]
	}
	for _, d := range items {
		c := infoColor
		switch d.Severity() {
		case diag.SevError, diag.SevPanic:
			c = errColor
		case diag.SevWarning:
			c = warnColor
		}
		fmt.Fprintln(os.Stderr, c.Sprint(diag.Render(res.FileSet, d)))
		if d.Span.HasSpan() && res.FileSet != nil {
			printExcerpt(res.FileSet, d.Span)
		}
		if d.Severity() == diag.SevPanic {
			fmt.Fprintln(os.Stderr, "this is a compiler bug; please file a report")
		}
	}
	if suppressed > 0 {
		fmt.Fprintf(os.Stderr, "... and %d more diagnostics (raise --max-diagnostics to see them)\n", suppressed)
	}
}

// printExcerpt shows the offending line with a caret aligned under the
// span start, accounting for wide runes.
func printExcerpt(fs *source.FileSet, sp source.Span) {
	f := fs.Get(sp.File)
	lc := fs.Locate(sp.File, sp.Start)
	lineStart := uint32(0)
	if lc.Line >= 2 {
		lineStart = f.LineStarts[lc.Line-2]
	}
	lineEnd := lineStart
	for lineEnd < uint32(len(f.Content)) && f.Content[lineEnd] != '\n' {
		lineEnd++
	}
	line := string(f.Content[lineStart:lineEnd])
	fmt.Fprintf(os.Stderr, "  %s\n", line)
	prefix := line
	if int(sp.Start-lineStart) < len(line) {
		prefix = line[:sp.Start-lineStart]
	}
	pad := runewidth.StringWidth(prefix)
	fmt.Fprintf(os.Stderr, "  %s^\n", strings.Repeat(" ", pad))
}
