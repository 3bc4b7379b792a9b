package parser

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/token"
)

func (p *Parser) parseVisibility() ast.Visibility {
	switch p.peek().Kind {
	case token.KwPublic, token.KwPub:
		p.advance()
		return ast.VisPublic
	case token.KwInternal:
		p.advance()
		return ast.VisInternal
	}
	return ast.VisPrivate
}

func (p *Parser) parseItem() ast.Item {
	start := p.peek().Span
	vis := p.parseVisibility()
	switch p.peek().Kind {
	case token.KwProcedure:
		return p.parseProcedure(vis, false)
	case token.KwRecord:
		return p.parseRecord(vis)
	case token.KwEnum:
		return p.parseEnum(vis)
	case token.KwModal:
		return p.parseModal(vis)
	case token.KwClass:
		return p.parseClass(vis)
	case token.KwType:
		return p.parseTypeAlias(vis)
	case token.KwStatic:
		return p.parseStatic(vis)
	case token.KwImport:
		return p.parseImport()
	case token.KwUsing:
		return p.parseUsing()
	case token.KwExtern:
		return p.parseExtern()
	case token.Ident:
		// Forms outside the subset that would be items in the full
		// language are rejected here rather than misparsed.
		if p.peek().Text == "comptime" || p.peek().Text == "macro" {
			p.emitSubset(p.peek().Span, p.peek().Text)
		}
		fallthrough
	default:
		p.errorHere("expected item")
		p.advance()
		p.syncItem()
		return &ast.ErrorItem{Span: p.spanFrom(start), Msg: "unparseable item"}
	}
}

// parseProcedure parses a procedure declaration. signatureOnly callers
// (class bodies, extern blocks) still accept a body here; the type
// checker rejects it with a precise diagnostic instead of a parse error.
func (p *Parser) parseProcedure(vis ast.Visibility, signatureOnly bool) *ast.ProcedureDecl {
	start := p.expect(token.KwProcedure, "'procedure'").Span
	name := p.ident("procedure name")
	if _, ok := p.eat(token.Lt); ok {
		// Generic procedures are outside the bootstrap subset.
		p.diags = append(p.diags, diag.New(diag.ErrGenericProcedure, name.Span, "generic procedures are outside the supported bootstrap subset"))
		for !p.at(token.Gt) && !p.at(token.EOF) {
			p.advance()
		}
		p.eat(token.Gt)
	}
	p.expect(token.LParen, "'('")
	recv, params := p.parseParams()
	p.expect(token.RParen, "')'")

	d := &ast.ProcedureDecl{Vis: vis, Name: name, Receiver: recv, Params: params}
	if _, ok := p.eat(token.Arrow); ok {
		d.Ret = p.parseType()
	}
	if p.at(token.PipeEq) {
		d.Contract = p.parseContract()
	}
	if p.at(token.LBrace) {
		d.Body = p.parseBlock()
	} else {
		p.eat(token.Semicolon)
	}
	d.Span = p.spanFrom(start)
	_ = signatureOnly
	return d
}

// parseParams parses the parameter list, splitting off a leading receiver
// shorthand (const self / self / unique self / move self).
func (p *Parser) parseParams() (*ast.Receiver, []ast.Param) {
	var recv *ast.Receiver
	var params []ast.Param
	first := true
	for !p.at(token.RParen) && !p.at(token.EOF) {
		if !first {
			p.expect(token.Comma, "','")
			if p.at(token.RParen) {
				break
			}
		}
		start := p.peek().Span
		if first && p.atReceiver() {
			recv = p.parseReceiver()
			first = false
			continue
		}
		first = false
		move := false
		if _, ok := p.eat(token.KwMove); ok {
			move = true
		}
		name := p.ident("parameter name")
		p.expect(token.Colon, "':'")
		ty := p.parseType()
		params = append(params, ast.Param{Move: move, Name: name, Type: ty, Span: p.spanFrom(start)})
	}
	return recv, params
}

func (p *Parser) atReceiver() bool {
	switch p.peek().Kind {
	case token.KwSelf:
		return true
	case token.KwConst, token.KwUnique, token.KwMove:
		return p.peek2().Kind == token.KwSelf
	}
	return false
}

func (p *Parser) parseReceiver() *ast.Receiver {
	start := p.peek().Span
	r := &ast.Receiver{Perm: ast.RecvShared}
	switch p.peek().Kind {
	case token.KwConst:
		p.advance()
		r.Perm = ast.RecvConst
	case token.KwUnique:
		p.advance()
		r.Perm = ast.RecvUnique
	case token.KwMove:
		p.advance()
		r.Perm = ast.RecvUnique
		r.Transition = true
	}
	p.expect(token.KwSelf, "'self'")
	r.Span = p.spanFrom(start)
	return r
}

// parseContract parses |= P, |= P => Q, or |= => Q.
func (p *Parser) parseContract() *ast.Contract {
	start := p.expect(token.PipeEq, "'|='").Span
	c := &ast.Contract{}
	if _, ok := p.eat(token.FatArrow); ok {
		c.Post = p.parseContractExpr()
	} else {
		c.Pre = p.parseContractExpr()
		if _, ok := p.eat(token.FatArrow); ok {
			c.Post = p.parseContractExpr()
		}
	}
	c.Span = p.spanFrom(start)
	return c
}

func (p *Parser) parseRecord(vis ast.Visibility) *ast.RecordDecl {
	start := p.expect(token.KwRecord, "'record'").Span
	d := &ast.RecordDecl{Vis: vis, Name: p.ident("record name")}
	if _, ok := p.eat(token.Lt); ok {
		for {
			d.Generics = append(d.Generics, p.ident("type parameter"))
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		p.expect(token.Gt, "'>'")
	}
	if _, ok := p.eat(token.Colon); ok {
		for {
			d.Classes = append(d.Classes, p.parseClassRef())
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
	}
	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		fieldVis := p.parseVisibility()
		if p.at(token.KwProcedure) {
			m := p.parseProcedure(fieldVis, false)
			d.Methods = append(d.Methods, m)
			continue
		}
		d.Fields = append(d.Fields, p.parseFieldDecl(fieldVis))
	}
	p.expect(token.RBrace, "'}'")
	d.Span = p.spanFrom(start)
	return d
}

// parseClassRef parses a class reference in an implements list; capability
// classes are $-prefixed.
func (p *Parser) parseClassRef() ast.Path {
	if t, ok := p.eat(token.Dollar); ok {
		name := p.ident("capability class name")
		return ast.Path{
			Segments: []ast.Ident{{Name: "$" + name.Name, Span: t.Span.Cover(name.Span)}},
			Span:     t.Span.Cover(name.Span),
		}
	}
	return p.parsePath()
}

func (p *Parser) parseFieldDecl(vis ast.Visibility) ast.FieldDecl {
	start := p.peek().Span
	name := p.ident("field name")
	p.expect(token.Colon, "':'")
	ty := p.parseType()
	p.eat(token.Comma)
	return ast.FieldDecl{Vis: vis, Name: name, Type: ty, Span: p.spanFrom(start)}
}

func (p *Parser) parseEnum(vis ast.Visibility) *ast.EnumDecl {
	start := p.expect(token.KwEnum, "'enum'").Span
	d := &ast.EnumDecl{Vis: vis, Name: p.ident("enum name")}
	if _, ok := p.eat(token.Lt); ok {
		for {
			d.Generics = append(d.Generics, p.ident("type parameter"))
			if _, ok := p.eat(token.Comma); !ok {
				break
			}
		}
		p.expect(token.Gt, "'>'")
	}
	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		vstart := p.peek().Span
		v := ast.VariantDecl{Name: p.ident("variant name")}
		if _, ok := p.eat(token.LParen); ok {
			for !p.at(token.RParen) && !p.at(token.EOF) {
				v.Elems = append(v.Elems, p.parseType())
				if _, ok := p.eat(token.Comma); !ok {
					break
				}
			}
			p.expect(token.RParen, "')'")
		}
		v.Span = p.spanFrom(vstart)
		d.Variants = append(d.Variants, v)
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	d.Span = p.spanFrom(start)
	return d
}

func (p *Parser) parseModal(vis ast.Visibility) *ast.ModalDecl {
	start := p.expect(token.KwModal, "'modal'").Span
	d := &ast.ModalDecl{Vis: vis, Name: p.ident("modal name")}
	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.at(token.KwState) {
			d.States = append(d.States, p.parseStateBlock())
			continue
		}
		fieldVis := p.parseVisibility()
		d.Common = append(d.Common, p.parseFieldDecl(fieldVis))
	}
	p.expect(token.RBrace, "'}'")
	d.Span = p.spanFrom(start)
	return d
}

func (p *Parser) parseStateBlock() ast.StateBlock {
	start := p.expect(token.KwState, "'state'").Span
	s := ast.StateBlock{Name: p.ident("state name")}
	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		vis := p.parseVisibility()
		if p.at(token.KwProcedure) {
			s.Methods = append(s.Methods, p.parseProcedure(vis, false))
			continue
		}
		s.Fields = append(s.Fields, p.parseFieldDecl(vis))
	}
	p.expect(token.RBrace, "'}'")
	s.Span = p.spanFrom(start)
	return s
}

func (p *Parser) parseClass(vis ast.Visibility) *ast.ClassDecl {
	start := p.expect(token.KwClass, "'class'").Span
	d := &ast.ClassDecl{Vis: vis}
	if _, ok := p.eat(token.Dollar); ok {
		d.Capability = true
		name := p.ident("capability class name")
		d.Name = ast.Ident{Name: "$" + name.Name, Span: name.Span}
	} else {
		d.Name = p.ident("class name")
	}
	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		mvis := p.parseVisibility()
		d.Methods = append(d.Methods, p.parseProcedure(mvis, true))
	}
	p.expect(token.RBrace, "'}'")
	d.Span = p.spanFrom(start)
	return d
}

func (p *Parser) parseTypeAlias(vis ast.Visibility) *ast.TypeAliasDecl {
	start := p.expect(token.KwType, "'type'").Span
	d := &ast.TypeAliasDecl{Vis: vis, Name: p.ident("alias name")}
	p.expect(token.Assign, "'='")
	d.Target = p.parseType()
	p.eat(token.Semicolon)
	d.Span = p.spanFrom(start)
	return d
}

func (p *Parser) parseStatic(vis ast.Visibility) *ast.StaticDecl {
	start := p.expect(token.KwStatic, "'static'").Span
	d := &ast.StaticDecl{Vis: vis}
	if _, ok := p.eat(token.KwMut); ok {
		d.Mutable = true
	}
	d.Name = p.ident("static name")
	p.expect(token.Colon, "':'")
	d.Type = p.parseType()
	if _, ok := p.eat(token.Assign); ok {
		d.Value = p.parseExpr()
	}
	p.eat(token.Semicolon)
	d.Span = p.spanFrom(start)
	return d
}

// parseImport parses import asm::path::to::item [as name] or
// import asm::path::{a, b}.
func (p *Parser) parseImport() *ast.ImportDecl {
	start := p.expect(token.KwImport, "'import'").Span
	d := &ast.ImportDecl{Assembly: p.ident("assembly name")}
	for p.at(token.ColonColon) {
		p.advance()
		if _, ok := p.eat(token.LBrace); ok {
			for !p.at(token.RBrace) && !p.at(token.EOF) {
				d.Items = append(d.Items, p.ident("imported item"))
				if _, ok := p.eat(token.Comma); !ok {
					break
				}
			}
			p.expect(token.RBrace, "'}'")
			break
		}
		d.Path = append(d.Path, p.ident("import path segment"))
	}
	if _, ok := p.eat(token.KwAs); ok {
		d.Alias = p.ident("import alias")
	}
	p.eat(token.Semicolon)
	d.Span = p.spanFrom(start)
	return d
}

func (p *Parser) parseUsing() *ast.UsingDecl {
	start := p.expect(token.KwUsing, "'using'").Span
	d := &ast.UsingDecl{Path: p.parsePath()}
	if _, ok := p.eat(token.KwAs); ok {
		d.Alias = p.ident("using alias")
	}
	p.eat(token.Semicolon)
	d.Span = p.spanFrom(start)
	return d
}

func (p *Parser) parseExtern() *ast.ExternBlock {
	start := p.expect(token.KwExtern, "'extern'").Span
	d := &ast.ExternBlock{ABI: "C"}
	if t, ok := p.eat(token.StringLit); ok {
		d.ABI = trimQuotes(t.Text)
	}
	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		d.Procs = append(d.Procs, p.parseProcedure(ast.VisPrivate, true))
	}
	p.expect(token.RBrace, "'}'")
	d.Span = p.spanFrom(start)
	return d
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
