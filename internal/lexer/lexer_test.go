package lexer

import (
	"testing"

	"cursive0/internal/source"
	"cursive0/internal/token"
)

func TestLeadingZeroWarning(t *testing.T) {
	fs := source.NewFileSet()
	id, _, _ := fs.AddVirtual("t.c0", []byte("0123"))
	_, diags := Tokenize(fs, id)
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(diags))
	}
}

func TestUnterminatedString(t *testing.T) {
	fs := source.NewFileSet()
	id, _, _ := fs.AddVirtual("t.c0", []byte("\"hi\n"))
	toks, diags := Tokenize(fs, id)
	if len(diags) == 0 {
		t.Fatalf("expected unterminated-string diagnostic")
	}
	if toks[0].Kind != token.StringLit {
		t.Fatalf("expected lexer to resume as StringLit, got %v", toks[0].Kind)
	}
}

func TestUnterminatedBlockComment(t *testing.T) {
	fs := source.NewFileSet()
	id, _, _ := fs.AddVirtual("t.c0", []byte("/* a"))
	_, diags := Tokenize(fs, id)
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(diags))
	}
}

func TestKeywordsAndIdent(t *testing.T) {
	fs := source.NewFileSet()
	id, _, _ := fs.AddVirtual("t.c0", []byte("procedure main"))
	toks, _ := Tokenize(fs, id)
	if toks[0].Kind != token.KwProcedure || toks[1].Kind != token.Ident {
		t.Fatalf("unexpected kinds: %v %v", toks[0].Kind, toks[1].Kind)
	}
}
