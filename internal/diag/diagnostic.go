package diag

import "cursive0/internal/source"

// Note is auxiliary context attached to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is a single issue raised by some phase.
type Diagnostic struct {
	Code    Code
	Message string
	Span    source.Span
	Notes   []Note
	Origin  Origin
}

// Severity is a convenience accessor mirroring the code's severity.
func (d Diagnostic) Severity() Severity { return d.Code.Severity }

// stripSpanIfExternal implements the NoSpan-External rule: externally
// originated diagnostics lose their span before they are allowed into a
// stream the user sees.
func (d Diagnostic) stripSpanIfExternal() Diagnostic {
	if d.Origin == OriginExternal {
		d.Span = source.NoSpan
	}
	return d
}

// New builds an internal diagnostic.
func New(code Code, span source.Span, message string) Diagnostic {
	return Diagnostic{Code: code, Message: message, Span: span, Origin: OriginInternal}
}

// NewExternal builds an externally-originated diagnostic; its span is
// stripped immediately so every later consumer sees the NoSpan-External
// invariant already applied.
func NewExternal(code Code, span source.Span, message string) Diagnostic {
	d := Diagnostic{Code: code, Message: message, Span: span, Origin: OriginExternal}
	return d.stripSpanIfExternal()
}

// WithNote appends a note and returns the updated diagnostic (Diagnostic
// values are small and passed by value throughout this package).
func (d Diagnostic) WithNote(span source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: span, Msg: msg})
	return d
}
