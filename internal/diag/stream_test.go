package diag

import (
	"reflect"
	"testing"

	"cursive0/internal/source"
)

func TestEmitOrderingLaw(t *testing.T) {
	s := NewStream()
	a := New(ErrUnresolvedName, source.NoSpan, "a")
	b := New(ErrUnresolvedName, source.NoSpan, "b")
	s = s.Emit(a).Emit(b)
	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	got := []string{items[0].Message, items[1].Message}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %v, want [a b]", got)
	}
}

func TestExternalDiagnosticLosesSpan(t *testing.T) {
	span := source.Span{File: 0, Start: 1, End: 2}
	d := NewExternal(ErrSourceIOFailure, span, "boom")
	if d.Span.HasSpan() {
		t.Fatalf("expected external diagnostic span to be stripped, got %+v", d.Span)
	}
}

func TestHasErrorRequiresErrorOrPanic(t *testing.T) {
	s := NewStream().Emit(New(WarnLeadingBOM, source.NoSpan, "w"))
	if s.HasError() {
		t.Fatalf("warning-only stream should not have error")
	}
	s = s.Emit(New(ErrUnresolvedName, source.NoSpan, "e"))
	if !s.HasError() {
		t.Fatalf("expected HasError true after an Error-severity diagnostic")
	}
}

func TestEmitDoesNotMutateOriginal(t *testing.T) {
	s1 := NewStream()
	s2 := s1.Emit(New(ErrUnresolvedName, source.NoSpan, "x"))
	if s1.Len() != 0 {
		t.Fatalf("original stream mutated: len = %d", s1.Len())
	}
	if s2.Len() != 1 {
		t.Fatalf("new stream len = %d, want 1", s2.Len())
	}
}
