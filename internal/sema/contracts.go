package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/types"
)

// checkContract types a |= P => Q clause: P and Q must be bool, @result
// is restricted to Q, and both predicates must be pure. Purity is
// enforced syntactically on the contract body.
func (c *checker) checkContract(p *ast.ProcedureDecl, sig *ProcSig) {
	freshEnv := c.env == nil
	if freshEnv {
		// Signature-only declarations still get their contracts checked
		// under a parameter environment.
		c.env = NewTypeEnv()
		c.sig = sig
		for _, param := range sig.Params {
			c.env.Bind(param.Name, &TypeBinding{Type: param.Type, Perm: types.PermConst})
		}
		if sig.Receiver != types.NoType {
			c.env.Bind("self", &TypeBinding{Type: sig.Receiver, Perm: types.PermConst})
		}
	}
	c.inContract = true
	if p.Contract.Pre != nil {
		c.checkContractExpr(p.Contract.Pre, false)
	}
	if p.Contract.Post != nil {
		c.checkContractExpr(p.Contract.Post, true)
	}
	c.inContract = false
	if freshEnv {
		c.env = nil
		c.sig = nil
	}
}

func (c *checker) checkContractExpr(pred ast.Expr, isPost bool) {
	if !isPost && usesResult(pred) {
		c.errorf(diag.ErrContractNotPure, pred.ExprSpan(), "@result is only valid in a postcondition")
	}
	got := c.inferExpr(pred, c.boolT())
	base, _ := c.types.Unwrap(got)
	if base != c.boolT() && base != types.NoType && !c.isNever(base) {
		c.errorf(diag.ErrContractNotBool, pred.ExprSpan(), "contract predicate must be of type bool")
	}
	c.checkPurity(pred)
}

func usesResult(e ast.Expr) bool {
	found := false
	walkExpr(e, func(x ast.Expr) {
		if _, ok := x.(*ast.ContractResultExpr); ok {
			found = true
		}
	})
	return found
}

// checkPurity rejects impure forms inside a contract predicate: any call
// to a procedure that takes a capability parameter, every effectful
// construct (alloc, spawn, suspension points), and assignment statements
// that sit directly in a block expression or an if's then-block.
// Statements inside loop, region, unsafe and key bodies are not inspected
// for assignments.
func (c *checker) checkPurity(pred ast.Expr) {
	walkExpr(pred, func(e ast.Expr) {
		switch x := e.(type) {
		case *ast.CallExpr:
			if d := c.lookupDecl(x.Callee); d != nil && d.Proc != nil {
				if sig := c.typed.Sigs[d.Proc]; sig != nil && len(sig.Caps) > 0 {
					c.errorf(diag.ErrContractNotPure, e.ExprSpan(),
						"call to %q, which takes a capability parameter", d.Name)
				}
			}
		case *ast.MethodCallExpr:
			// A unique-receiver method mutates observable state.
			// applyMethod rejects any method whose resolved receiver
			// shorthand is unique while inContract is set.
		case *ast.AllocExpr, *ast.SpawnExpr, *ast.WaitExpr, *ast.SyncExpr,
			*ast.RaceExpr, *ast.AllExpr, *ast.YieldExpr, *ast.ParallelExpr,
			*ast.DispatchExpr, *ast.MoveExpr:
			c.errorf(diag.ErrContractNotPure, e.ExprSpan(), "effectful expression in a contract predicate")
		case *ast.BlockExpr:
			for _, s := range x.Block.Stmts {
				if _, isAssign := s.(*ast.AssignStmt); isAssign {
					c.errorf(diag.ErrContractNotPure, s.StmtSpan(), "assignment in a contract predicate")
				}
			}
		case *ast.IfExpr:
			for _, s := range x.Then.Stmts {
				if _, isAssign := s.(*ast.AssignStmt); isAssign {
					c.errorf(diag.ErrContractNotPure, s.StmtSpan(), "assignment in a contract predicate")
				}
			}
		}
	})
}

// walkExpr applies fn to e and every sub-expression.
func walkExpr(e ast.Expr, fn func(ast.Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch x := e.(type) {
	case *ast.FieldExpr:
		walkExpr(x.X, fn)
	case *ast.IndexExpr:
		walkExpr(x.X, fn)
		walkExpr(x.Index, fn)
	case *ast.CallExpr:
		walkExpr(x.Callee, fn)
		for _, a := range x.Args {
			walkExpr(a, fn)
		}
	case *ast.MethodCallExpr:
		walkExpr(x.Recv, fn)
		for _, a := range x.Args {
			walkExpr(a, fn)
		}
	case *ast.UnaryExpr:
		walkExpr(x.X, fn)
	case *ast.BinaryExpr:
		walkExpr(x.X, fn)
		walkExpr(x.Y, fn)
	case *ast.AddrOfExpr:
		walkExpr(x.X, fn)
	case *ast.DerefExpr:
		walkExpr(x.X, fn)
	case *ast.CastExpr:
		walkExpr(x.X, fn)
	case *ast.TransmuteExpr:
		walkExpr(x.X, fn)
	case *ast.MoveExpr:
		walkExpr(x.X, fn)
	case *ast.IfExpr:
		walkExpr(x.Cond, fn)
		walkBlockExprs(x.Then, fn)
		walkExpr(x.Else, fn)
	case *ast.MatchExpr:
		walkExpr(x.Scrutinee, fn)
		for _, arm := range x.Arms {
			walkExpr(arm.Body, fn)
		}
	case *ast.BlockExpr:
		walkBlockExprs(x.Block, fn)
	case *ast.RecordLitExpr:
		for _, f := range x.Fields {
			walkExpr(f.Value, fn)
		}
	case *ast.ModalLitExpr:
		for _, f := range x.Fields {
			walkExpr(f.Value, fn)
		}
	case *ast.TupleExpr:
		for _, el := range x.Elems {
			walkExpr(el, fn)
		}
	case *ast.RangeExpr:
		walkExpr(x.Lo, fn)
		walkExpr(x.Hi, fn)
	case *ast.AllocExpr:
		walkExpr(x.Value, fn)
	case *ast.PropagateExpr:
		walkExpr(x.X, fn)
	case *ast.SpawnExpr:
		walkBlockExprs(x.Body, fn)
	case *ast.WaitExpr:
		walkExpr(x.X, fn)
	case *ast.SyncExpr:
		walkExpr(x.X, fn)
	case *ast.RaceExpr:
		for _, arm := range x.Arms {
			walkExpr(arm.Source, fn)
			walkExpr(arm.Handler, fn)
		}
	case *ast.AllExpr:
		for _, el := range x.Elems {
			walkExpr(el, fn)
		}
	case *ast.YieldExpr:
		walkExpr(x.Value, fn)
	case *ast.ParallelExpr:
		for _, arm := range x.Arms {
			walkBlockExprs(arm, fn)
		}
	case *ast.DispatchExpr:
		walkBlockExprs(x.Body, fn)
	case *ast.ContractEntryExpr:
		walkExpr(x.X, fn)
	}
}

func walkBlockExprs(b *ast.Block, fn func(ast.Expr)) {
	for _, s := range b.Stmts {
		switch st := s.(type) {
		case *ast.LetStmt:
			walkExpr(st.Value, fn)
		case *ast.AssignStmt:
			walkExpr(st.Place, fn)
			walkExpr(st.Value, fn)
		case *ast.ExprStmt:
			walkExpr(st.X, fn)
		case *ast.ReturnStmt:
			walkExpr(st.Value, fn)
		case *ast.WhileStmt:
			walkExpr(st.Cond, fn)
			walkBlockExprs(st.Body, fn)
		case *ast.LoopStmt:
			walkBlockExprs(st.Body, fn)
		case *ast.ForStmt:
			walkExpr(st.Iter, fn)
			walkBlockExprs(st.Body, fn)
		case *ast.RegionStmt:
			walkBlockExprs(st.Body, fn)
		case *ast.UnsafeStmt:
			walkBlockExprs(st.Body, fn)
		case *ast.KeyBlockStmt:
			walkBlockExprs(st.Body, fn)
		}
	}
	if b.Tail != nil {
		walkExpr(b.Tail, fn)
	}
}
