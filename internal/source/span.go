// Package source implements the source/span/diagnostic fabric described in
// spec.md §4.1: byte-accurate spans over normalized source text, with a
// total Locate function and idempotent clamping.
package source

import "fmt"

// FileID identifies a loaded source file within a FileSet.
type FileID uint32

// NoFileID marks the absence of a file (used by synthesized spans).
const NoFileID FileID = ^FileID(0)

// LineCol is a 1-based (line, column) position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// Span is a half-open byte range [Start, End) within File.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// NoSpan is the zero value used where a span is genuinely absent.
var NoSpan = Span{File: NoFileID}

// HasSpan reports whether s carries a real file reference.
func (s Span) HasSpan() bool { return s.File != NoFileID }

// Empty reports whether the span has zero length.
func (s Span) Empty() bool { return s.Start == s.End }

// Len returns the span length in bytes.
func (s Span) Len() uint32 { return s.End - s.Start }

func (s Span) String() string {
	if !s.HasSpan() {
		return "<no-span>"
	}
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other. Spans from
// different files are incomparable; s is returned unchanged.
func (s Span) Cover(other Span) Span {
	if !s.HasSpan() {
		return other
	}
	if !other.HasSpan() || s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// clampSpan clamps a raw (start, end) pair into [0, byteLen], ordering the
// endpoints so Start <= End. ClampSpan is idempotent: applying it twice to
// its own output returns the same result (spec.md §8).
func clampSpan(start, end, byteLen uint32) (uint32, uint32) {
	if start > end {
		start, end = end, start
	}
	if start > byteLen {
		start = byteLen
	}
	if end > byteLen {
		end = byteLen
	}
	return start, end
}
