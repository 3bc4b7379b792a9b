// Package lexer implements the external, black-box tokenizer: bytes (via
// internal/source) in, a token stream plus diagnostics out. Per spec.md
// §1 the core phases never see lexer internals, only its output.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/token"
)

// Lexer is a small-step state machine: each call to Next consumes exactly
// one token, matching spec.md §9's "express as a small-step state machine"
// design note — this permits recovery without growing call-stack depth on
// pathological input.
type Lexer struct {
	fs      *source.FileSet
	file    source.FileID
	content []byte
	pos     uint32
	diags   []diag.Diagnostic
}

// New creates a Lexer over a loaded file.
func New(fs *source.FileSet, file source.FileID) *Lexer {
	return &Lexer{fs: fs, file: file, content: fs.Get(file).Content}
}

// Tokenize runs the lexer to completion, returning every token (including
// a trailing EOF) and any diagnostics raised along the way.
func Tokenize(fs *source.FileSet, file source.FileID) ([]token.Token, []diag.Diagnostic) {
	l := New(fs, file)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, l.diags
}

func (l *Lexer) span(start uint32) source.Span {
	return l.fs.SpanOf(l.file, start, l.pos)
}

func (l *Lexer) emit(code diag.Code, span source.Span, msg string) {
	l.diags = append(l.diags, diag.NewExternal(code, span, msg))
}

func (l *Lexer) peek() byte {
	if int(l.pos) >= len(l.content) {
		return 0
	}
	return l.content[l.pos]
}

func (l *Lexer) peekAt(off uint32) byte {
	idx := int(l.pos + off)
	if idx >= len(l.content) {
		return 0
	}
	return l.content[idx]
}

func (l *Lexer) advance() byte {
	c := l.peek()
	l.pos++
	return c
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Next consumes and returns the next token, advancing internal state.
func (l *Lexer) Next() token.Token {
	l.skipTrivia()
	start := l.pos
	if int(l.pos) >= len(l.content) {
		return token.Token{Kind: token.EOF, Span: l.span(start)}
	}
	c := l.peek()
	switch {
	case isIdentStart(c):
		return l.lexIdentOrKeyword(start)
	case isDigit(c):
		return l.lexNumber(start)
	case c == '"':
		return l.lexString(start)
	case c == '\'':
		return l.lexChar(start)
	default:
		return l.lexOperator(start)
	}
}

func (l *Lexer) skipTrivia() {
	for {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '/' && l.peekAt(1) == '/':
			for l.peek() != '\n' && int(l.pos) < len(l.content) {
				l.pos++
			}
		case c == '/' && l.peekAt(1) == '*':
			start := l.pos
			l.pos += 2
			closed := false
			for int(l.pos) < len(l.content) {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.pos += 2
					closed = true
					break
				}
				l.pos++
			}
			if !closed {
				l.emit(diag.ErrUnterminatedComment, l.span(start), "unterminated block comment")
			}
		default:
			return
		}
	}
}

func (l *Lexer) lexIdentOrKeyword(start uint32) token.Token {
	for isIdentCont(l.peek()) {
		l.pos++
	}
	text := string(l.content[start:l.pos])
	span := l.span(start)
	if text == "true" || text == "false" {
		return token.Token{Kind: token.BoolLit, Span: span, Text: text}
	}
	if kw, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: kw, Span: span, Text: text}
	}
	return token.Token{Kind: token.Ident, Span: span, Text: text}
}

func (l *Lexer) lexNumber(start uint32) token.Token {
	hasLeadingZero := l.peek() == '0' && isDigit(l.peekAt(1))
	for isDigit(l.peek()) {
		l.pos++
	}
	isFloat := false
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.pos++
		for isDigit(l.peek()) {
			l.pos++
		}
	}
	span := l.span(start)
	text := string(l.content[start:l.pos])
	if hasLeadingZero && !isFloat {
		l.emit(diag.WarnLeadingZeroDecimal, span, fmt.Sprintf("%q", text))
	}
	if isFloat {
		return token.Token{Kind: token.FloatLit, Span: span, Text: text}
	}
	return token.Token{Kind: token.IntLit, Span: span, Text: text}
}

func (l *Lexer) lexString(start uint32) token.Token {
	l.pos++ // opening quote
	for {
		c := l.peek()
		if int(l.pos) >= len(l.content) || c == '\n' {
			l.emit(diag.ErrUnterminatedString, l.span(start), "unterminated string literal")
			break
		}
		if c == '\\' {
			l.pos += 2
			continue
		}
		if c == '"' {
			l.pos++
			break
		}
		l.pos++
	}
	return token.Token{Kind: token.StringLit, Span: l.span(start), Text: string(l.content[start:l.pos])}
}

func (l *Lexer) lexChar(start uint32) token.Token {
	l.pos++
	if l.peek() == '\\' {
		l.pos += 2
	} else {
		_, size := utf8.DecodeRune(l.content[l.pos:])
		l.pos += uint32(size)
	}
	if l.peek() == '\'' {
		l.pos++
	}
	return token.Token{Kind: token.CharLit, Span: l.span(start), Text: string(l.content[start:l.pos])}
}

type op struct {
	text string
	kind token.Kind
}

// multi-char operators, longest first so greedy matching is correct.
var multiOps = []op{
	{"<<=", token.Shl}, {">>=", token.Shr},
	{"..=", token.DotDotEq}, {"::", token.ColonColon}, {"|=", token.PipeEq},
	{"->", token.Arrow}, {"=>", token.FatArrow}, {"<-", token.LArrow},
	{"==", token.EqEq}, {"!=", token.BangEq}, {"<=", token.LtEq}, {">=", token.GtEq},
	{"&&", token.AndAnd}, {"||", token.OrOr}, {"<<", token.Shl}, {">>", token.Shr},
	{"..", token.DotDot},
}

var singleOps = map[byte]token.Kind{
	'+': token.Plus, '-': token.Minus, '*': token.Star, '/': token.Slash, '%': token.Percent,
	'=': token.Assign, '<': token.Lt, '>': token.Gt, '!': token.Bang, '&': token.Amp,
	'|': token.Pipe, '^': token.Caret, '?': token.Question, ':': token.Colon,
	';': token.Semicolon, ',': token.Comma, '.': token.Dot, '(': token.LParen,
	')': token.RParen, '{': token.LBrace, '}': token.RBrace, '[': token.LBracket,
	']': token.RBracket, '@': token.At, '#': token.Hash, '$': token.Dollar,
}

func (l *Lexer) lexOperator(start uint32) token.Token {
	rest := l.content[l.pos:]
	for _, m := range multiOps {
		if len(rest) >= len(m.text) && string(rest[:len(m.text)]) == m.text {
			l.pos += uint32(len(m.text))
			return token.Token{Kind: m.kind, Span: l.span(start), Text: m.text}
		}
	}
	c := l.advance()
	if kind, ok := singleOps[c]; ok {
		return token.Token{Kind: kind, Span: l.span(start), Text: string(c)}
	}
	l.emit(diag.ErrUnknownChar, l.span(start), fmt.Sprintf("%q", string(c)))
	return token.Token{Kind: token.Invalid, Span: l.span(start), Text: string(c)}
}
