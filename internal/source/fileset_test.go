package source

import "testing"

func TestCRLFNormalization(t *testing.T) {
	fs := NewFileSet()
	id, _, err := fs.AddVirtual("t.c0", []byte{0x61, 0x0D, 0x0A, 0x62})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "a\nb" {
		t.Fatalf("got %q, want %q", f.Content, "a\nb")
	}
	if len(f.LineStarts) != 1 || f.LineStarts[0] != 2 {
		t.Fatalf("line starts = %v, want [2]", f.LineStarts)
	}
}

func TestLoneCR(t *testing.T) {
	fs := NewFileSet()
	id, _, err := fs.AddVirtual("t.c0", []byte{0x61, 0x0D})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(fs.Get(id).Content) != "a\n" {
		t.Fatalf("got %q", fs.Get(id).Content)
	}
}

func TestInteriorBOMRejected(t *testing.T) {
	fs := NewFileSet()
	content := append([]byte("a"), 0xEF, 0xBB, 0xBF)
	content = append(content, []byte("b")...)
	_, _, err := fs.AddVirtual("t.c0", content)
	if err == nil {
		t.Fatalf("expected E-SRC-0103 for interior BOM")
	}
}

func TestLocateIsTotal(t *testing.T) {
	fs := NewFileSet()
	id, _, _ := fs.AddVirtual("t.c0", []byte("abc\ndef"))
	for offset := uint32(0); offset <= fs.ByteLen(id)+5; offset++ {
		lc := fs.Locate(id, offset)
		if lc.Line == 0 || lc.Col == 0 {
			t.Fatalf("Locate(%d) = %+v, want line/col >= 1", offset, lc)
		}
	}
}

func TestSpanClampIdempotent(t *testing.T) {
	fs := NewFileSet()
	id, _, _ := fs.AddVirtual("t.c0", []byte("abc"))
	s1 := fs.SpanOf(id, 0, 100)
	s2 := fs.SpanOf(id, s1.Start, s1.End)
	if s1 != s2 {
		t.Fatalf("clamp not idempotent: %+v vs %+v", s1, s2)
	}
}
