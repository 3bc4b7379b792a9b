package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/types"
)

// checkProcedure types one body under a fresh environment and key
// context.
func (c *checker) checkProcedure(p *ast.ProcedureDecl) {
	sig := c.typed.Sigs[p]
	if sig == nil {
		sig = c.signatureOf(p, types.NoType, false)
		c.typed.Sigs[p] = sig
	}
	if p.Body == nil {
		if p.Contract != nil {
			c.checkContract(p, sig)
		}
		return
	}

	c.env = NewTypeEnv()
	c.proc = p
	c.sig = sig
	c.keys = NewKeyContext()
	c.regions = nil

	if sig.Receiver != types.NoType {
		c.env.Bind("self", &TypeBinding{
			Mutable: sig.RecvPerm == types.PermUnique,
			Type:    sig.Receiver,
			Perm:    sig.RecvPerm,
		})
	}
	for _, param := range sig.Params {
		perm := types.PermShared
		mutable := false
		base, declaredPerm := c.types.Unwrap(param.Type)
		if c.types.Get(param.Type).Kind == types.KindPerm {
			perm = declaredPerm
			mutable = perm == types.PermUnique
			_ = base
		} else if param.Mode == ModeMove {
			perm = types.PermUnique
			mutable = true
		}
		c.env.Bind(param.Name, &TypeBinding{
			Mutable:    mutable,
			Type:       param.Type,
			Perm:       perm,
			Capability: param.Capability,
		})
	}

	if p.Contract != nil {
		c.checkContract(p, sig)
	}

	got := c.checkBlock(p.Body, c.bodyRetType())
	if !c.isNever(got) && !c.blockAlwaysReturns(p.Body) {
		c.requireAssignable(got, c.bodyRetType(), tailSpan(p.Body))
	}

	c.env = nil
	c.proc = nil
	c.sig = nil
	c.keys = nil
}

func tailSpan(b *ast.Block) source.Span {
	if b.Tail != nil {
		return b.Tail.ExprSpan()
	}
	return b.Span
}

// blockAlwaysReturns is a shallow terminator check: a block whose last
// statement is a return (or an infinite loop) needs no tail value.
func (c *checker) blockAlwaysReturns(b *ast.Block) bool {
	if b.Tail != nil {
		return false
	}
	if len(b.Stmts) == 0 {
		return false
	}
	switch last := b.Stmts[len(b.Stmts)-1].(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.LoopStmt:
		return !hasBreak(last.Body)
	}
	return false
}

func hasBreak(b *ast.Block) bool {
	found := false
	walkBlock(b, func(s ast.Stmt) {
		if _, ok := s.(*ast.BreakStmt); ok {
			found = true
		}
	})
	return found
}

// walkBlock applies fn to every statement in b, without descending into
// nested loop bodies' breaks mattering to the caller (shallow by design:
// nested loops consume their own breaks).
func walkBlock(b *ast.Block, fn func(ast.Stmt)) {
	for _, s := range b.Stmts {
		fn(s)
		switch st := s.(type) {
		case *ast.ExprStmt:
			if ife, ok := st.X.(*ast.IfExpr); ok {
				walkBlock(ife.Then, fn)
				if be, ok := ife.Else.(*ast.BlockExpr); ok {
					walkBlock(be.Block, fn)
				}
			}
		case *ast.WhileStmt:
			// A while loop's break belongs to it.
		case *ast.RegionStmt:
			walkBlock(st.Body, fn)
		case *ast.UnsafeStmt:
			walkBlock(st.Body, fn)
		case *ast.KeyBlockStmt:
			walkBlock(st.Body, fn)
		}
	}
}

// bodyRetType is what the body's value must produce: the declared return
// type, except in an async procedure, whose body produces the async's
// Result (possibly unioned with its error type).
func (c *checker) bodyRetType() types.TypeID {
	if c.sig == nil {
		return types.NoType
	}
	if _, _, result, errT, ok := c.asyncParams(c.sig.Ret); ok {
		if c.isNever(errT) {
			return result
		}
		return types.NormalizeUnion(c.types, []types.TypeID{result, errT})
	}
	return c.sig.Ret
}

func (c *checker) isNever(id types.TypeID) bool {
	t := c.types.Get(id)
	return t.Kind == types.KindPrim && t.Prim == types.PrimNever
}

func (c *checker) unit() types.TypeID  { return c.types.PrimT(types.PrimUnit) }
func (c *checker) boolT() types.TypeID { return c.types.PrimT(types.PrimBool) }
func (c *checker) usize() types.TypeID { return c.types.PrimT(types.PrimUsize) }

// checkBlock types a block and returns its value type (the tail
// expression's type, or unit).
func (c *checker) checkBlock(b *ast.Block, expected types.TypeID) types.TypeID {
	c.env.Push()
	c.keys.PushScope()
	defer func() {
		c.keys.PopScope()
		c.env.Pop()
	}()
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
	if b.Tail != nil {
		return c.inferExpr(b.Tail, expected)
	}
	return c.unit()
}

func (c *checker) checkStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LetStmt:
		var declared types.TypeID
		if st.Type != nil {
			declared = c.resolveType(st.Type)
		}
		got := c.inferExpr(st.Value, declared)
		if declared != types.NoType {
			c.requireAssignable(got, declared, st.Value.ExprSpan())
		} else {
			declared = got
		}
		c.requireMoveDiscipline(st.Value, declared)
		perm := types.PermConst
		if st.Mut {
			perm = types.PermUnique
		}
		base, declaredPerm := declared, types.Permission(0)
		if c.types.Get(declared).Kind == types.KindPerm {
			base, declaredPerm = c.types.Unwrap(declared)
			perm = declaredPerm
		}
		c.env.Bind(st.Name.Name, &TypeBinding{Mutable: st.Mut, Type: base, Perm: perm})
	case *ast.AssignStmt:
		placeT, perm, isPlace := c.inferPlace(st.Place)
		if !isPlace {
			c.errorf(diag.ErrNotAPlace, st.Place.ExprSpan(), "assignment target is not a place")
			return
		}
		if perm == types.PermConst {
			c.errorf(diag.ErrPermissionTooWeak, st.Place.ExprSpan(), "cannot assign through a const place")
		}
		got := c.inferExpr(st.Value, placeT)
		c.requireAssignable(got, placeT, st.Value.ExprSpan())
		c.requireMoveDiscipline(st.Value, placeT)
		c.keyAccess(st.Place, true)
	case *ast.ExprStmt:
		c.inferExpr(st.X, types.NoType)
	case *ast.ReturnStmt:
		want := c.bodyRetType()
		if st.Value == nil {
			c.requireAssignable(c.unit(), want, st.Span)
			return
		}
		got := c.inferExpr(st.Value, want)
		c.requireAssignable(got, want, st.Value.ExprSpan())
	case *ast.BreakStmt, *ast.ContinueStmt:
		// Loop context validity is a parse-shape property in the subset.
	case *ast.WhileStmt:
		condT := c.inferExpr(st.Cond, c.boolT())
		c.requireAssignable(condT, c.boolT(), st.Cond.ExprSpan())
		c.checkBlock(st.Body, types.NoType)
	case *ast.LoopStmt:
		c.checkBlock(st.Body, types.NoType)
	case *ast.ForStmt:
		iterT := c.inferExpr(st.Iter, c.types.Range())
		if c.types.Get(iterT).Kind != types.KindRange {
			c.errorf(diag.ErrCastInvalid, st.Iter.ExprSpan(), "%s", "for-loop domain must be a Range")
		}
		c.env.Push()
		c.env.Bind(st.Var.Name, &TypeBinding{Mutable: false, Type: c.usize(), Perm: types.PermConst})
		c.checkBlock(st.Body, types.NoType)
		c.env.Pop()
	case *ast.RegionStmt:
		c.env.Push()
		c.regions = append(c.regions, regionBinding{name: st.Name.Name, state: "Active"})
		c.env.Bind(st.Name.Name, &TypeBinding{
			Mutable: true,
			Type:    c.types.ModalState("cursive::Region", "Active"),
			Perm:    types.PermUnique,
			Region:  true,
		})
		c.checkBlock(st.Body, types.NoType)
		c.regions = c.regions[:len(c.regions)-1]
		c.env.Pop()
	case *ast.UnsafeStmt:
		c.recordUnsafe(st.Span)
		c.unsafeN++
		c.checkBlock(st.Body, types.NoType)
		c.unsafeN--
	case *ast.KeyBlockStmt:
		c.checkKeyBlock(st)
	}
}
