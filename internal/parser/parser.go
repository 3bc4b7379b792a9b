// Package parser turns a token stream into the AST. Together with
// internal/lexer it forms the external P1 collaborator: the core phases
// consume only its validated AST and diagnostic stream. The parser is
// hand-written recursive descent with a Pratt expression core; it recovers
// at item granularity so one malformed item never hides the rest of a
// file.
package parser

import (
	"fmt"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/lexer"
	"cursive0/internal/source"
	"cursive0/internal/token"
)

// Parser consumes one token per step over a pre-lexed buffer.
type Parser struct {
	fs    *source.FileSet
	file  source.FileID
	toks  []token.Token
	pos   int
	diags []diag.Diagnostic

	// noRecordLit suppresses record-literal parsing where '{' opens a
	// block instead (if/while/match headers).
	noRecordLit bool
}

// ParseFile lexes and parses one file, returning its AST and every
// diagnostic raised by either stage.
func ParseFile(fs *source.FileSet, file source.FileID) (*ast.File, []diag.Diagnostic) {
	toks, lexDiags := lexer.Tokenize(fs, file)
	p := &Parser{fs: fs, file: file, toks: toks}
	f := &ast.File{FileID: file}
	for !p.at(token.EOF) {
		item := p.parseItem()
		if item != nil {
			f.Items = append(f.Items, item)
		}
	}
	return f, append(lexDiags, p.diags...)
}

func (p *Parser) peek() token.Token { return p.toks[p.pos] }
func (p *Parser) peek2() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) at(k token.Kind) bool { return p.peek().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// eat consumes the current token if it matches k.
func (p *Parser) eat(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

// expect consumes k or emits a diagnostic at the current token.
func (p *Parser) expect(k token.Kind, what string) token.Token {
	if t, ok := p.eat(k); ok {
		return t
	}
	p.errorHere(fmt.Sprintf("expected %s, found %q", what, p.peek().Text))
	return token.Token{Kind: token.Invalid, Span: p.peek().Span}
}

func (p *Parser) errorHere(msg string) {
	p.emit(diag.ErrUnknownChar, p.peek().Span, msg)
}

func (p *Parser) emit(code diag.Code, span source.Span, msg string) {
	p.diags = append(p.diags, diag.NewExternal(code, span, msg))
}

// emitSubset raises a subset-conformance rejection; accumulated but never
// stops parsing (the driver's conformance check forces rejection later).
func (p *Parser) emitSubset(span source.Span, what string) {
	p.diags = append(p.diags, diag.New(diag.ErrUnsupportedForm, span, what))
}

func (p *Parser) spanFrom(start source.Span) source.Span {
	end := p.toks[p.pos-1].Span
	if p.pos == 0 {
		end = start
	}
	return start.Cover(end)
}

// syncItem skips tokens until a plausible item start or EOF, for
// item-level recovery.
func (p *Parser) syncItem() {
	for {
		switch p.peek().Kind {
		case token.EOF, token.KwProcedure, token.KwRecord, token.KwEnum, token.KwModal,
			token.KwClass, token.KwType, token.KwStatic, token.KwImport, token.KwUsing,
			token.KwExtern, token.KwPublic, token.KwInternal, token.KwPub:
			return
		}
		p.advance()
	}
}

func (p *Parser) ident(what string) ast.Ident {
	t := p.expect(token.Ident, what)
	return ast.Ident{Name: t.Text, Span: t.Span}
}

// parsePath parses ident(::ident)*.
func (p *Parser) parsePath() ast.Path {
	first := p.ident("path segment")
	path := ast.Path{Segments: []ast.Ident{first}, Span: first.Span}
	for p.at(token.ColonColon) && p.peek2().Kind == token.Ident {
		p.advance()
		seg := p.ident("path segment")
		path.Segments = append(path.Segments, seg)
		path.Span = path.Span.Cover(seg.Span)
	}
	return path
}
