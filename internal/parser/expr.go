package parser

import (
	"cursive0/internal/ast"
	"cursive0/internal/token"
)

// Binding powers for the Pratt loop, loosest first.
const (
	precNone = iota
	precOr
	precAnd
	precEquality
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdd
	precMul
)

func infixPrec(k token.Kind) (ast.BinaryOp, int) {
	switch k {
	case token.OrOr:
		return ast.BinOr, precOr
	case token.AndAnd:
		return ast.BinAnd, precAnd
	case token.EqEq:
		return ast.BinEq, precEquality
	case token.BangEq:
		return ast.BinNe, precEquality
	case token.Lt:
		return ast.BinLt, precCompare
	case token.LtEq:
		return ast.BinLe, precCompare
	case token.Gt:
		return ast.BinGt, precCompare
	case token.GtEq:
		return ast.BinGe, precCompare
	case token.Pipe:
		return ast.BinBitOr, precBitOr
	case token.Caret:
		return ast.BinBitXor, precBitXor
	case token.Amp:
		return ast.BinBitAnd, precBitAnd
	case token.Shl:
		return ast.BinShl, precShift
	case token.Shr:
		return ast.BinShr, precShift
	case token.Plus:
		return ast.BinAdd, precAdd
	case token.Minus:
		return ast.BinSub, precAdd
	case token.Star:
		return ast.BinMul, precMul
	case token.Slash:
		return ast.BinDiv, precMul
	case token.Percent:
		return ast.BinRem, precMul
	}
	return 0, precNone
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(precNone)
}

// parseContractExpr parses a contract predicate: record literals are
// suppressed because the procedure body's '{' follows immediately.
func (p *Parser) parseContractExpr() ast.Expr {
	return p.parseExprNoRecordLit()
}

// parseExprNoRecordLit parses an expression with record-literal bodies
// suppressed, for if/while/match headers where '{' opens the block.
func (p *Parser) parseExprNoRecordLit() ast.Expr {
	saved := p.noRecordLit
	p.noRecordLit = true
	e := p.parseBinary(precNone)
	p.noRecordLit = saved
	return e
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	lhs := p.parseUnary()
	for {
		op, prec := infixPrec(p.peek().Kind)
		if prec <= minPrec {
			return lhs
		}
		p.advance()
		rhs := p.parseBinary(prec)
		lhs = &ast.BinaryExpr{Op: op, X: lhs, Y: rhs, Span: lhs.ExprSpan().Cover(rhs.ExprSpan())}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.Minus:
		p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Op: ast.UnaryNeg, X: x, Span: p.spanFrom(start)}
	case token.Bang:
		p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Op: ast.UnaryNot, X: x, Span: p.spanFrom(start)}
	case token.Amp:
		p.advance()
		x := p.parseUnary()
		return &ast.AddrOfExpr{X: x, Span: p.spanFrom(start)}
	case token.Star:
		p.advance()
		x := p.parseUnary()
		return &ast.DerefExpr{X: x, Span: p.spanFrom(start)}
	case token.KwMove:
		p.advance()
		x := p.parseUnary()
		return &ast.MoveExpr{X: x, Span: p.spanFrom(start)}
	case token.Caret:
		// '^' in prefix position is the allocation sigil: ^expr or
		// ^region<-expr.
		p.advance()
		var region ast.Ident
		if p.at(token.Ident) && p.peek2().Kind == token.LArrow {
			region = p.ident("region name")
			p.expect(token.LArrow, "'<-'")
		}
		x := p.parseUnary()
		return &ast.AllocExpr{Region: region, Value: x, Span: p.spanFrom(start)}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePostfix(x ast.Expr) ast.Expr {
	for {
		switch p.peek().Kind {
		case token.Dot:
			p.advance()
			boundary := false
			if _, ok := p.eat(token.Hash); ok {
				boundary = true
			}
			name := p.ident("member name")
			if p.at(token.LParen) {
				p.advance()
				args := p.parseArgs()
				x = &ast.MethodCallExpr{Recv: x, Name: name, Args: args, Span: p.spanFrom(x.ExprSpan())}
				continue
			}
			x = &ast.FieldExpr{X: x, Name: name, Boundary: boundary, Span: p.spanFrom(x.ExprSpan())}
		case token.LBracket:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket, "']'")
			x = &ast.IndexExpr{X: x, Index: idx, Span: p.spanFrom(x.ExprSpan())}
		case token.LParen:
			p.advance()
			args := p.parseArgs()
			x = &ast.CallExpr{Callee: x, Args: args, Span: p.spanFrom(x.ExprSpan())}
		case token.Question:
			t := p.advance()
			x = &ast.PropagateExpr{X: x, Span: x.ExprSpan().Cover(t.Span)}
		case token.KwAs:
			p.advance()
			ty := p.parseTypeNoUnion()
			x = &ast.CastExpr{X: x, Type: ty, Span: x.ExprSpan().Cover(ty.TypeSpan())}
		default:
			return x
		}
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	var args []ast.Expr
	for !p.at(token.RParen) && !p.at(token.EOF) {
		args = append(args, p.parseExpr())
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.IntLit:
		t := p.advance()
		return &ast.IntLitExpr{Text: t.Text, Span: t.Span}
	case token.FloatLit:
		t := p.advance()
		return &ast.FloatLitExpr{Text: t.Text, Span: t.Span}
	case token.CharLit:
		t := p.advance()
		return &ast.CharLitExpr{Text: t.Text, Span: t.Span}
	case token.StringLit:
		t := p.advance()
		return &ast.StringLitExpr{Text: t.Text, Span: t.Span}
	case token.BoolLit:
		t := p.advance()
		return &ast.BoolLitExpr{Value: t.Text == "true", Span: t.Span}
	case token.KwNull:
		t := p.advance()
		return &ast.NullLitExpr{Span: t.Span}
	case token.KwSelf:
		t := p.advance()
		return &ast.IdentExpr{Name: "self", Span: t.Span}
	case token.At:
		return p.parseContractIntrinsic()
	case token.LParen:
		p.advance()
		if _, ok := p.eat(token.RParen); ok {
			return &ast.UnitLitExpr{Span: p.spanFrom(start)}
		}
		inner := p.parseExpr()
		if p.at(token.Comma) {
			elems := []ast.Expr{inner}
			for {
				if _, ok := p.eat(token.Comma); !ok {
					break
				}
				if p.at(token.RParen) {
					break
				}
				elems = append(elems, p.parseExpr())
			}
			p.expect(token.RParen, "')'")
			return &ast.TupleExpr{Elems: elems, Span: p.spanFrom(start)}
		}
		p.expect(token.RParen, "')'")
		return inner
	case token.LBracket:
		return p.parseRange()
	case token.KwIf:
		return p.parseIf()
	case token.KwMatch:
		return p.parseMatch()
	case token.LBrace:
		b := p.parseBlock()
		return &ast.BlockExpr{Block: b, Span: b.Span}
	case token.KwSpawn:
		p.advance()
		b := p.parseBlock()
		return &ast.SpawnExpr{Body: b, Span: p.spanFrom(start)}
	case token.KwWait:
		p.advance()
		x := p.parseExpr()
		return &ast.WaitExpr{X: x, Span: p.spanFrom(start)}
	case token.KwSync:
		p.advance()
		x := p.parseExpr()
		return &ast.SyncExpr{X: x, Span: p.spanFrom(start)}
	case token.KwRace:
		return p.parseRace()
	case token.KwAll:
		return p.parseAll()
	case token.KwYield:
		return p.parseYield()
	case token.KwParallel:
		return p.parseParallel()
	case token.KwDispatch:
		return p.parseDispatch()
	case token.KwTransmute:
		p.advance()
		p.expect(token.LParen, "'('")
		x := p.parseExpr()
		p.expect(token.Comma, "','")
		ty := p.parseType()
		p.expect(token.RParen, "')'")
		return &ast.TransmuteExpr{X: x, Type: ty, Span: p.spanFrom(start)}
	case token.Ident:
		return p.parseIdentOrLiteral()
	default:
		p.errorHere("expected expression")
		t := p.advance()
		return &ast.ErrorExpr{Span: t.Span}
	}
}

// parseContractIntrinsic parses @result or @entry(e), valid only inside
// contract predicates (enforced by the checker, not here).
func (p *Parser) parseContractIntrinsic() ast.Expr {
	start := p.expect(token.At, "'@'").Span
	name := p.ident("contract intrinsic")
	switch name.Name {
	case "result":
		return &ast.ContractResultExpr{Span: p.spanFrom(start)}
	case "entry":
		p.expect(token.LParen, "'('")
		x := p.parseExpr()
		p.expect(token.RParen, "')'")
		return &ast.ContractEntryExpr{X: x, Span: p.spanFrom(start)}
	default:
		p.errorHere("unknown contract intrinsic @" + name.Name)
		return &ast.ErrorExpr{Span: p.spanFrom(start)}
	}
}

func (p *Parser) parseIdentOrLiteral() ast.Expr {
	start := p.peek().Span
	if p.peek2().Kind == token.ColonColon {
		path := p.parsePath()
		if p.at(token.At) && !p.noRecordLit {
			return p.parseModalLit(path)
		}
		if p.at(token.LBrace) && !p.noRecordLit {
			return p.parseRecordLit(path)
		}
		return &ast.PathExpr{Path: path, Span: p.spanFrom(start)}
	}
	name := p.ident("identifier")
	path := ast.Path{Segments: []ast.Ident{name}, Span: name.Span}
	if p.at(token.At) && !p.noRecordLit && p.peek2().Kind == token.Ident {
		return p.parseModalLit(path)
	}
	if p.at(token.LBrace) && !p.noRecordLit && startsRecordLitBody(p) {
		return p.parseRecordLit(path)
	}
	return &ast.IdentExpr{Name: name.Name, Span: name.Span}
}

// parseModalLit parses M@State { field: value, ... }.
func (p *Parser) parseModalLit(path ast.Path) ast.Expr {
	start := path.Span
	p.expect(token.At, "'@'")
	state := p.ident("state name")
	lit := &ast.ModalLitExpr{Path: path, State: state}
	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		fstart := p.peek().Span
		name := p.ident("field name")
		p.expect(token.Colon, "':'")
		val := p.parseExpr()
		lit.Fields = append(lit.Fields, ast.FieldInit{Name: name, Value: val, Span: p.spanFrom(fstart)})
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	lit.Span = p.spanFrom(start)
	return lit
}

// startsRecordLitBody peeks past '{' for "ident :" or "}" — the only two
// shapes a record-literal body can open with. This keeps "if x { ... }"
// unambiguous even when noRecordLit was not set by the caller.
func startsRecordLitBody(p *Parser) bool {
	if p.peek().Kind != token.LBrace {
		return false
	}
	if p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == token.RBrace {
		return true
	}
	if p.pos+2 < len(p.toks) {
		return p.toks[p.pos+1].Kind == token.Ident && p.toks[p.pos+2].Kind == token.Colon
	}
	return false
}

func (p *Parser) parseRecordLit(path ast.Path) ast.Expr {
	start := path.Span
	p.expect(token.LBrace, "'{'")
	var fields []ast.FieldInit
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		fstart := p.peek().Span
		name := p.ident("field name")
		p.expect(token.Colon, "':'")
		val := p.parseExpr()
		fields = append(fields, ast.FieldInit{Name: name, Value: val, Span: p.spanFrom(fstart)})
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	return &ast.RecordLitExpr{Path: path, Fields: fields, Span: p.spanFrom(start)}
}

// parseRange parses [a..b], [a..=b], [..b], [a..].
func (p *Parser) parseRange() ast.Expr {
	start := p.expect(token.LBracket, "'['").Span
	var lo, hi ast.Expr
	if !p.at(token.DotDot) && !p.at(token.DotDotEq) {
		lo = p.parseExpr()
	}
	inclusive := false
	if _, ok := p.eat(token.DotDotEq); ok {
		inclusive = true
	} else {
		p.expect(token.DotDot, "'..'")
	}
	if !p.at(token.RBracket) {
		hi = p.parseExpr()
	}
	p.expect(token.RBracket, "']'")
	return &ast.RangeExpr{Lo: lo, Hi: hi, Inclusive: inclusive, Span: p.spanFrom(start)}
}

func (p *Parser) parseIf() ast.Expr {
	start := p.expect(token.KwIf, "'if'").Span
	cond := p.parseExprNoRecordLit()
	then := p.parseBlock()
	var els ast.Expr
	if _, ok := p.eat(token.KwElse); ok {
		if p.at(token.KwIf) {
			els = p.parseIf()
		} else {
			b := p.parseBlock()
			els = &ast.BlockExpr{Block: b, Span: b.Span}
		}
	}
	return &ast.IfExpr{Cond: cond, Then: then, Else: els, Span: p.spanFrom(start)}
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.expect(token.KwMatch, "'match'").Span
	scrutinee := p.parseExprNoRecordLit()
	p.expect(token.LBrace, "'{'")
	var arms []ast.MatchArm
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		astart := p.peek().Span
		pat := p.parsePattern()
		p.expect(token.FatArrow, "'=>'")
		body := p.parseExpr()
		arms = append(arms, ast.MatchArm{Pat: pat, Body: body, Span: p.spanFrom(astart)})
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	return &ast.MatchExpr{Scrutinee: scrutinee, Arms: arms, Span: p.spanFrom(start)}
}

// parseRace parses race { e -> |v| h, ... }.
func (p *Parser) parseRace() ast.Expr {
	start := p.expect(token.KwRace, "'race'").Span
	p.expect(token.LBrace, "'{'")
	var arms []ast.RaceArm
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		astart := p.peek().Span
		src := p.parseExpr()
		p.expect(token.Arrow, "'->'")
		p.expect(token.Pipe, "'|'")
		binding := p.ident("arm binding")
		p.expect(token.Pipe, "'|'")
		isYield := false
		if p.at(token.KwYield) {
			isYield = true
		}
		handler := p.parseExpr()
		arms = append(arms, ast.RaceArm{
			Source: src, Binding: binding, Handler: handler,
			IsYield: isYield, Span: p.spanFrom(astart),
		})
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	return &ast.RaceExpr{Arms: arms, Span: p.spanFrom(start)}
}

func (p *Parser) parseAll() ast.Expr {
	start := p.expect(token.KwAll, "'all'").Span
	p.expect(token.LBrace, "'{'")
	var elems []ast.Expr
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		elems = append(elems, p.parseExpr())
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	return &ast.AllExpr{Elems: elems, Span: p.spanFrom(start)}
}

func (p *Parser) parseYield() ast.Expr {
	start := p.expect(token.KwYield, "'yield'").Span
	y := &ast.YieldExpr{}
	switch {
	case p.at(token.KwFrom):
		p.advance()
		y.From = true
		y.Value = p.parseExpr()
	case p.at(token.KwRelease):
		p.advance()
		y.Release = true
		if !p.atExprEnd() {
			y.Value = p.parseExpr()
		}
	default:
		if !p.atExprEnd() {
			y.Value = p.parseExpr()
		}
	}
	y.Span = p.spanFrom(start)
	return y
}

func (p *Parser) atExprEnd() bool {
	switch p.peek().Kind {
	case token.Semicolon, token.RBrace, token.Comma, token.RParen, token.EOF:
		return true
	}
	return false
}

func (p *Parser) parseParallel() ast.Expr {
	start := p.expect(token.KwParallel, "'parallel'").Span
	p.expect(token.LBrace, "'{'")
	var arms []*ast.Block
	for p.at(token.LBrace) {
		arms = append(arms, p.parseBlock())
	}
	p.expect(token.RBrace, "'}'")
	return &ast.ParallelExpr{Arms: arms, Span: p.spanFrom(start)}
}

// parseDispatch parses dispatch key(read p, write q) { body }.
func (p *Parser) parseDispatch() ast.Expr {
	start := p.expect(token.KwDispatch, "'dispatch'").Span
	p.expect(token.KwKey, "'key'")
	keys := p.parseKeyAcqList()
	body := p.parseBlock()
	return &ast.DispatchExpr{Keys: keys, Body: body, Span: p.spanFrom(start)}
}

// parseKeyAcqList parses (read place, write place, ...).
func (p *Parser) parseKeyAcqList() []ast.KeyAcq {
	p.expect(token.LParen, "'('")
	var keys []ast.KeyAcq
	for !p.at(token.RParen) && !p.at(token.EOF) {
		kstart := p.peek().Span
		write := false
		switch {
		case p.at(token.Ident) && p.peek().Text == "read":
			p.advance()
		case p.at(token.Ident) && p.peek().Text == "write":
			p.advance()
			write = true
		default:
			p.errorHere("expected 'read' or 'write'")
		}
		place := p.parseExprNoRecordLit()
		keys = append(keys, ast.KeyAcq{Write: write, Path: place, Span: p.spanFrom(kstart)})
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return keys
}
