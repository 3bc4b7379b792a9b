package parser

import (
	"cursive0/internal/ast"
	"cursive0/internal/token"
)

// parseBlock parses { stmt* [tail-expr] }.
func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(token.LBrace, "'{'").Span
	b := &ast.Block{}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if stmt, tail := p.parseStmtOrTail(); stmt != nil {
			b.Stmts = append(b.Stmts, stmt)
		} else if tail != nil {
			b.Tail = tail
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	b.Span = p.spanFrom(start)
	return b
}

// parseStmtOrTail parses one statement, or returns (nil, expr) for the
// block's tail expression.
func (p *Parser) parseStmtOrTail() (ast.Stmt, ast.Expr) {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.Semicolon:
		p.advance()
		return nil, nil
	case token.KwLet:
		return p.parseLet(), nil
	case token.KwReturn:
		p.advance()
		s := &ast.ReturnStmt{}
		if !p.atExprEnd() {
			s.Value = p.parseExpr()
		}
		p.eat(token.Semicolon)
		s.Span = p.spanFrom(start)
		return s, nil
	case token.KwBreak:
		p.advance()
		p.eat(token.Semicolon)
		return &ast.BreakStmt{Span: p.spanFrom(start)}, nil
	case token.KwContinue:
		p.advance()
		p.eat(token.Semicolon)
		return &ast.ContinueStmt{Span: p.spanFrom(start)}, nil
	case token.KwWhile:
		p.advance()
		cond := p.parseExprNoRecordLit()
		body := p.parseBlock()
		return &ast.WhileStmt{Cond: cond, Body: body, Span: p.spanFrom(start)}, nil
	case token.KwLoop:
		p.advance()
		body := p.parseBlock()
		return &ast.LoopStmt{Body: body, Span: p.spanFrom(start)}, nil
	case token.KwFor:
		p.advance()
		v := p.ident("loop variable")
		p.expect(token.KwIn, "'in'")
		iter := p.parseExprNoRecordLit()
		body := p.parseBlock()
		return &ast.ForStmt{Var: v, Iter: iter, Body: body, Span: p.spanFrom(start)}, nil
	case token.KwRegion:
		p.advance()
		name := p.ident("region name")
		body := p.parseBlock()
		return &ast.RegionStmt{Name: name, Body: body, Span: p.spanFrom(start)}, nil
	case token.KwUnsafe:
		p.advance()
		body := p.parseBlock()
		return &ast.UnsafeStmt{Body: body, Span: p.spanFrom(start)}, nil
	case token.KwKey:
		p.advance()
		keys := p.parseKeyAcqList()
		body := p.parseBlock()
		return &ast.KeyBlockStmt{Keys: keys, Body: body, Span: p.spanFrom(start)}, nil
	}

	x := p.parseExpr()
	if _, ok := p.eat(token.Assign); ok {
		value := p.parseExpr()
		p.eat(token.Semicolon)
		return &ast.AssignStmt{Place: x, Value: value, Span: p.spanFrom(start)}, nil
	}
	if _, ok := p.eat(token.Semicolon); ok {
		return &ast.ExprStmt{X: x, Span: p.spanFrom(start)}, nil
	}
	if p.at(token.RBrace) {
		return nil, x
	}
	// Block-shaped expressions (if/match/blocks/loops-as-stmt) may stand
	// without a trailing semicolon.
	switch x.(type) {
	case *ast.IfExpr, *ast.MatchExpr, *ast.BlockExpr, *ast.ParallelExpr, *ast.DispatchExpr, *ast.SpawnExpr:
		return &ast.ExprStmt{X: x, Span: p.spanFrom(start)}, nil
	}
	p.errorHere("expected ';' after expression")
	return &ast.ExprStmt{X: x, Span: p.spanFrom(start)}, nil
}

func (p *Parser) parseLet() ast.Stmt {
	start := p.expect(token.KwLet, "'let'").Span
	s := &ast.LetStmt{}
	if _, ok := p.eat(token.KwMut); ok {
		s.Mut = true
	}
	s.Name = p.ident("binding name")
	if _, ok := p.eat(token.Colon); ok {
		s.Type = p.parseType()
	}
	p.expect(token.Assign, "'='")
	s.Value = p.parseExpr()
	p.eat(token.Semicolon)
	s.Span = p.spanFrom(start)
	return s
}
