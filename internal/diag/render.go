package diag

import (
	"fmt"
	"strings"

	"cursive0/internal/source"
)

// Render formats a diagnostic as "{code} ({severity}): {msg} @{file}:{line}:{col}",
// eliding the location suffix when the diagnostic has no span (spec.md §4.1).
func Render(fs *source.FileSet, d Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): %s", d.Code.String(), d.Severity().String(), d.Message)
	if d.Span.HasSpan() && fs != nil {
		lc := fs.Locate(d.Span.File, d.Span.Start)
		path := fs.Get(d.Span.File).Path
		fmt.Fprintf(&b, " @%s:%d:%d", path, lc.Line, lc.Col)
	}
	return b.String()
}

// RenderAll renders every diagnostic in stream order, one per line.
func RenderAll(fs *source.FileSet, s *Stream) string {
	var b strings.Builder
	for _, d := range s.Items() {
		b.WriteString(Render(fs, d))
		b.WriteByte('\n')
	}
	return b.String()
}
