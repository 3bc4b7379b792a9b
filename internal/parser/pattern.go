package parser

import (
	"cursive0/internal/ast"
	"cursive0/internal/token"
)

// parsePattern parses one match-arm pattern.
func (p *Parser) parsePattern() ast.Pattern {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.Ident:
		if p.peek().Text == "_" {
			p.advance()
			return &ast.WildcardPattern{Span: start}
		}
		return p.parsePathPattern()
	case token.IntLit, token.FloatLit, token.CharLit, token.StringLit:
		lit := p.parsePrimary()
		// An integer literal followed by '..' is a range pattern.
		if p.at(token.DotDot) || p.at(token.DotDotEq) {
			inclusive := p.advance().Kind == token.DotDotEq
			var hi ast.Expr
			if p.at(token.IntLit) {
				hi = p.parsePrimary()
			}
			return &ast.RangePattern{Lo: lit, Hi: hi, Inclusive: inclusive, Span: p.spanFrom(start)}
		}
		return &ast.LiteralPattern{Value: lit, Span: p.spanFrom(start)}
	case token.BoolLit, token.KwNull:
		lit := p.parsePrimary()
		return &ast.LiteralPattern{Value: lit, Span: p.spanFrom(start)}
	case token.Minus:
		lit := p.parseUnary()
		return &ast.LiteralPattern{Value: lit, Span: p.spanFrom(start)}
	case token.DotDot, token.DotDotEq:
		inclusive := p.advance().Kind == token.DotDotEq
		var hi ast.Expr
		if p.at(token.IntLit) {
			hi = p.parsePrimary()
		}
		return &ast.RangePattern{Hi: hi, Inclusive: inclusive, Span: p.spanFrom(start)}
	case token.LParen:
		p.advance()
		var elems []ast.Pattern
		for !p.at(token.RParen) && !p.at(token.EOF) {
			elems = append(elems, p.parsePattern())
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		return &ast.TuplePattern{Elems: elems, Span: p.spanFrom(start)}
	default:
		p.errorHere("expected pattern")
		p.advance()
		return &ast.WildcardPattern{Span: start}
	}
}

// parsePathPattern parses an identifier pattern: a bare name is a binding
// unless it is path-qualified or carries a payload list, in which case it
// is a variant pattern.
func (p *Parser) parsePathPattern() ast.Pattern {
	start := p.peek().Span
	if p.peek2().Kind != token.ColonColon && p.peek2().Kind != token.LParen && p.peek2().Kind != token.At {
		name := p.ident("binding name")
		return &ast.BindingPattern{Name: name, Span: name.Span}
	}
	path := p.parsePath()
	if _, ok := p.eat(token.At); ok {
		// Modal state pattern M@State(fields...) uses the variant shape
		// with the state name as the final segment.
		state := p.ident("state name")
		path.Segments = append(path.Segments, state)
		path.Span = path.Span.Cover(state.Span)
	}
	v := &ast.VariantPattern{Path: path}
	if _, ok := p.eat(token.LParen); ok {
		for !p.at(token.RParen) && !p.at(token.EOF) {
			v.Elems = append(v.Elems, p.parsePattern())
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
	}
	v.Span = p.spanFrom(start)
	return v
}
