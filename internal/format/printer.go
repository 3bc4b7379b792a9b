// Package format pretty-prints an AST back to Cursive0 source. Its
// contract is the round-trip property: re-parsing the printed form of a
// module yields the same Σ contribution (structural equality under span
// erasure).
package format

import (
	"fmt"
	"strings"

	"cursive0/internal/ast"
)

// File renders one parsed file.
func File(f *ast.File) string {
	p := &printer{}
	for i, item := range f.Items {
		if i > 0 {
			p.b.WriteByte('\n')
		}
		p.item(item)
	}
	return p.b.String()
}

type printer struct {
	b      strings.Builder
	indent int
}

func (p *printer) line(format string, args ...any) {
	p.b.WriteString(strings.Repeat("    ", p.indent))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) vis(v ast.Visibility) string {
	switch v {
	case ast.VisPublic:
		return "public "
	case ast.VisInternal:
		return "internal "
	default:
		return ""
	}
}
