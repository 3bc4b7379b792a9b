// Package fuzztests fuzzes the byte-level front door: the CRLF/BOM/UTF-8
// normalization rules and the lexer's recovery behavior are exactly the
// input-shape space fuzzing is good at.
package fuzztests

import (
	"testing"

	"cursive0/internal/lexer"
	"cursive0/internal/source"
	"cursive0/internal/token"
)

func FuzzLexer(f *testing.F) {
	for _, seed := range seeds {
		f.Add([]byte(seed))
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 64<<10 {
			t.Skip()
		}
		fs := source.NewFileSet()
		id, _, err := fs.AddVirtual("fuzz.cursive", data)
		if err != nil {
			return // non-UTF-8 and interior-BOM inputs are rejected loads
		}
		toks, _ := lexer.Tokenize(fs, id)
		if len(toks) == 0 {
			t.Fatalf("no tokens, not even EOF")
		}
		if toks[len(toks)-1].Kind != token.EOF {
			t.Fatalf("token stream does not end in EOF")
		}
		byteLen := fs.ByteLen(id)
		for _, tok := range toks {
			if tok.Span.End > byteLen {
				t.Fatalf("token span %v exceeds content length %d", tok.Span, byteLen)
			}
			// Locate must be total over every span endpoint.
			lc := fs.Locate(id, tok.Span.Start)
			if lc.Line < 1 || lc.Col < 1 {
				t.Fatalf("Locate returned %v", lc)
			}
		}
	})
}
