package diag

// Stream is an append-only, order-preserving diagnostic log. Order is
// always insertion order (spec.md §4.1, "Order is identity"); Emit never
// mutates its receiver, matching the phase-driver rule that no phase
// mutates an earlier phase's output.
type Stream struct {
	items []Diagnostic
}

// NewStream returns an empty Stream.
func NewStream() *Stream { return &Stream{} }

// Emit returns a new Stream with d appended. The diagnostic ordering law
// (spec.md §8) requires Emit(Emit(s,a), b)[-2:] == [a, b]; Emit preserves
// this by simple append, never reordering existing items.
func (s *Stream) Emit(d Diagnostic) *Stream {
	next := &Stream{items: make([]Diagnostic, len(s.items), len(s.items)+1)}
	copy(next.items, s.items)
	next.items = append(next.items, d.stripSpanIfExternal())
	return next
}

// EmitAll appends each diagnostic in order, equivalent to repeated Emit.
func (s *Stream) EmitAll(ds []Diagnostic) *Stream {
	next := s
	for _, d := range ds {
		next = next.Emit(d)
	}
	return next
}

// Merge appends another stream's items after this stream's items, in order.
func (s *Stream) Merge(other *Stream) *Stream {
	if other == nil {
		return s
	}
	return s.EmitAll(other.items)
}

// Items returns the diagnostics in insertion order. Callers must not
// mutate the returned slice.
func (s *Stream) Items() []Diagnostic {
	if s == nil {
		return nil
	}
	return s.items
}

// Len returns the number of diagnostics.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// HasError reports whether any item has severity Error or Panic.
func (s *Stream) HasError() bool {
	if s == nil {
		return false
	}
	for _, d := range s.items {
		if d.Severity() >= SevError {
			return true
		}
	}
	return false
}

// Result pairs an optional payload with the additional diagnostics an
// analysis function produced. This is the "(payload_opt, additional_diags)"
// shape spec.md §7 requires every fallible analysis function to return.
type Result[T any] struct {
	Payload T
	Ok      bool
	Diags   []Diagnostic
}

// Ok wraps a successful payload with no diagnostics.
func Ok[T any](payload T) Result[T] {
	return Result[T]{Payload: payload, Ok: true}
}

// Fail wraps a failure with diagnostics and a zero payload.
func Fail[T any](diags ...Diagnostic) Result[T] {
	var zero T
	return Result[T]{Payload: zero, Ok: false, Diags: diags}
}

// WithDiags attaches extra diagnostics to an otherwise successful result
// without marking it failed (e.g. warnings alongside a valid payload).
func (r Result[T]) WithDiags(diags ...Diagnostic) Result[T] {
	r.Diags = append(r.Diags, diags...)
	return r
}
