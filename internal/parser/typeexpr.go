package parser

import (
	"cursive0/internal/ast"
	"cursive0/internal/source"
	"cursive0/internal/token"
)

var primNames = map[string]bool{
	"bool": true, "char": true,
	"i8": true, "i16": true, "i32": true, "i64": true,
	"u8": true, "u16": true, "u32": true, "u64": true,
	"usize": true, "f32": true, "f64": true,
}

// parseType parses a type, including unions: T | E | ....
func (p *Parser) parseType() ast.TypeExpr {
	first := p.parseTypeNoUnion()
	if !p.at(token.Pipe) {
		return first
	}
	members := []ast.TypeExpr{first}
	span := first.TypeSpan()
	for {
		if _, ok := p.eat(token.Pipe); !ok {
			break
		}
		m := p.parseTypeNoUnion()
		members = append(members, m)
		span = span.Cover(m.TypeSpan())
	}
	return &ast.UnionTypeExpr{Members: members, Span: span}
}

func (p *Parser) parseTypeNoUnion() ast.TypeExpr {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.KwConst, token.KwShared, token.KwUnique:
		perm := p.advance().Text
		base := p.parseTypeNoUnion()
		return &ast.PermTypeExpr{Perm: perm, Base: base, Span: p.spanFrom(start)}
	case token.Bang:
		p.advance()
		return &ast.PrimTypeExpr{Name: "!", Span: start}
	case token.Star:
		p.advance()
		mut := false
		switch {
		case p.at(token.KwMut):
			p.advance()
			mut = true
		case p.at(token.Ident) && p.peek().Text == "imm":
			p.advance()
		}
		elem := p.parseTypeNoUnion()
		return &ast.RawPtrTypeExpr{Mut: mut, Elem: elem, Span: p.spanFrom(start)}
	case token.LBracket:
		p.advance()
		if _, ok := p.eat(token.RBracket); ok {
			elem := p.parseTypeNoUnion()
			return &ast.SliceTypeExpr{Elem: elem, Span: p.spanFrom(start)}
		}
		elem := p.parseType()
		p.expect(token.Semicolon, "';'")
		length := p.parseExpr()
		p.expect(token.RBracket, "']'")
		return &ast.ArrayTypeExpr{Elem: elem, Len: length, Span: p.spanFrom(start)}
	case token.LParen:
		p.advance()
		if _, ok := p.eat(token.RParen); ok {
			return &ast.PrimTypeExpr{Name: "()", Span: p.spanFrom(start)}
		}
		var elems []ast.TypeExpr
		for {
			elems = append(elems, p.parseType())
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		if len(elems) == 1 {
			return elems[0]
		}
		return &ast.TupleTypeExpr{Elems: elems, Span: p.spanFrom(start)}
	case token.KwDyn:
		p.advance()
		class := p.parsePath()
		return &ast.DynTypeExpr{Class: class, Span: p.spanFrom(start)}
	case token.Dollar:
		p.advance()
		name := p.ident("capability class name")
		return &ast.CapabilityTypeExpr{
			Name: ast.Ident{Name: "$" + name.Name, Span: name.Span},
			Span: p.spanFrom(start),
		}
	case token.KwProcedure:
		p.advance()
		p.expect(token.LParen, "'('")
		var params []ast.TypeExpr
		for !p.at(token.RParen) && !p.at(token.EOF) {
			params = append(params, p.parseType())
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		var ret ast.TypeExpr
		if _, ok := p.eat(token.Arrow); ok {
			ret = p.parseType()
		}
		return &ast.FuncTypeExpr{Params: params, Ret: ret, Span: p.spanFrom(start)}
	case token.Ident:
		return p.parseNamedType(start)
	default:
		p.errorHere("expected type")
		p.advance()
		return &ast.PrimTypeExpr{Name: "()", Span: start}
	}
}

// parseNamedType handles primitives, string/bytes with representation
// annotations, Ptr<T>@State, named paths with generic args, and M@State.
func (p *Parser) parseNamedType(start source.Span) ast.TypeExpr {
	_ = start
	sp := p.peek().Span
	switch p.peek().Text {
	case "string", "bytes":
		isBytes := p.peek().Text == "bytes"
		p.advance()
		repr := ""
		if _, ok := p.eat(token.At); ok {
			repr = p.ident("string representation").Name
		}
		return &ast.StringTypeExpr{Bytes: isBytes, Repr: repr, Span: p.spanFrom(sp)}
	case "Ptr":
		p.advance()
		p.expect(token.Lt, "'<'")
		elem := p.parseType()
		p.expect(token.Gt, "'>'")
		state := "Valid"
		if _, ok := p.eat(token.At); ok {
			state = p.ident("pointer state").Name
		}
		return &ast.PtrTypeExpr{Elem: elem, State: state, Span: p.spanFrom(sp)}
	case "Range":
		p.advance()
		return &ast.PathTypeExpr{
			Path: ast.Path{Segments: []ast.Ident{{Name: "Range", Span: sp}}, Span: sp},
			Span: p.spanFrom(sp),
		}
	}
	if primNames[p.peek().Text] {
		t := p.advance()
		return &ast.PrimTypeExpr{Name: t.Text, Span: t.Span}
	}
	path := p.parsePath()
	var args []ast.TypeExpr
	if _, ok := p.eat(token.Lt); ok {
		for !p.at(token.Gt) && !p.at(token.EOF) {
			args = append(args, p.parseType())
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		p.expect(token.Gt, "'>'")
	}
	if _, ok := p.eat(token.At); ok {
		state := p.ident("state name")
		return &ast.ModalStateTypeExpr{Path: path, State: state.Name, Span: p.spanFrom(sp)}
	}
	return &ast.PathTypeExpr{Path: path, Args: args, Span: p.spanFrom(sp)}
}
