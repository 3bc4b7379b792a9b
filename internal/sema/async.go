package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// inferSpawn types spawn { body }: the block's value T becomes
// Spawned<T>@Pending. The spawned task starts with an empty key context;
// its captures are collected as for a parallel arm but not compared with
// anything.
func (c *checker) inferSpawn(x *ast.SpawnExpr, e ast.Expr) types.TypeID {
	var bodyT types.TypeID
	captures := c.checkArmCaptures(func() {
		savedKeys := c.keys
		c.keys = NewKeyContext()
		bodyT = c.checkBlock(x.Body, types.NoType)
		c.keys = savedKeys
	})
	_ = captures // a lone spawn has no sibling arm to conflict with
	return c.setTau(e, c.types.PathType(symbols.BuiltinModule+"::Spawned", bodyT))
}

// inferWait types wait e: the operand must be Spawned<T>; the result is
// T. wait is a suspension point.
func (c *checker) inferWait(x *ast.WaitExpr, e ast.Expr) types.TypeID {
	c.checkSuspension(e.ExprSpan(), false)
	opT := c.inferExpr(x.X, types.NoType)
	base, _ := c.types.Unwrap(opT)
	elem, ok := c.spawnedElem(base)
	if !ok {
		c.errorf(diag.ErrTypeMismatch, x.X.ExprSpan(), "expected Spawned<T>, found %s",
			types.Format(c.types, opT))
		return c.setTau(e, types.NoType)
	}
	return c.setTau(e, elem)
}

// inferSync types sync e: requires Out = () and In = () and a non-async
// context; the result is Result | E.
func (c *checker) inferSync(x *ast.SyncExpr, e ast.Expr) types.TypeID {
	if c.sig != nil && c.sig.IsAsync {
		c.errorf(diag.ErrSyncOutsideSync, e.ExprSpan(), "'sync' must appear in a non-async context")
	}
	c.checkSuspension(e.ExprSpan(), false)
	opT := c.inferExpr(x.X, types.NoType)
	base, _ := c.types.Unwrap(opT)
	out, in, result, errT, ok := c.asyncParams(base)
	if !ok {
		c.errorf(diag.ErrTypeMismatch, x.X.ExprSpan(), "expected an async value, found %s",
			types.Format(c.types, opT))
		return c.setTau(e, types.NoType)
	}
	unit := c.unit()
	if out != unit || in != unit {
		c.errorf(diag.ErrSyncOutsideSync, e.ExprSpan(), "'sync' requires Out=() and In=()")
	}
	if c.isNever(errT) {
		return c.setTau(e, result)
	}
	return c.setTau(e, types.NormalizeUnion(c.types, []types.TypeID{result, errT}))
}

// inferRace types race { e -> |v| h, ... }: at least two arms, handlers
// uniformly return or uniformly yield, handler results unified. Losing
// arms receive cancellation; the implicit awaits make race a suspension
// point.
func (c *checker) inferRace(x *ast.RaceExpr, e ast.Expr) types.TypeID {
	if len(x.Arms) < 2 {
		c.errorf(diag.ErrRaceArity, x.Span, "race requires at least two arms")
	}
	c.checkSuspension(e.ExprSpan(), false)
	result := types.NoType
	var armCaptures [][]capturedKey
	uniformYield := false
	for i, arm := range x.Arms {
		if i == 0 {
			uniformYield = arm.IsYield
		} else if arm.IsYield != uniformYield {
			c.errorf(diag.ErrRaceArmMismatch, arm.Span,
				"race arms must be uniformly 'return' or uniformly 'yield'")
		}
		srcT := c.inferExpr(arm.Source, types.NoType)
		base, _ := c.types.Unwrap(srcT)
		armVal := types.NoType
		if elem, ok := c.spawnedElem(base); ok {
			armVal = elem
		} else if _, _, res, errT, ok := c.asyncParams(base); ok {
			armVal = res
			if !c.isNever(errT) {
				armVal = types.NormalizeUnion(c.types, []types.TypeID{res, errT})
			}
		} else {
			c.errorf(diag.ErrTypeMismatch, arm.Source.ExprSpan(),
				"race arm source must be async or Spawned, found %s", types.Format(c.types, srcT))
		}
		captures := c.checkArmCaptures(func() {
			c.env.Push()
			c.env.Bind(arm.Binding.Name, &TypeBinding{Type: armVal, Perm: types.PermConst})
			handlerT := c.inferExpr(arm.Handler, types.NoType)
			result = c.join(result, handlerT)
			c.env.Pop()
		})
		armCaptures = append(armCaptures, captures)
	}
	c.checkPairwiseConflicts(armCaptures)
	return c.setTau(e, result)
}

// inferAll types all { e1, ..., en }: every element must be an async
// producing Result_i | E_i; error types must unify; the result is
// (Result_1, ..., Result_n) | E.
func (c *checker) inferAll(x *ast.AllExpr, e ast.Expr) types.TypeID {
	c.checkSuspension(e.ExprSpan(), false)
	results := make([]types.TypeID, 0, len(x.Elems))
	unifiedErr := types.NoType
	var armCaptures [][]capturedKey
	for _, el := range x.Elems {
		var elT types.TypeID
		captures := c.checkArmCaptures(func() {
			elT = c.inferExpr(el, types.NoType)
		})
		armCaptures = append(armCaptures, captures)
		base, _ := c.types.Unwrap(elT)
		if _, _, res, errT, ok := c.asyncParams(base); ok {
			results = append(results, res)
			if !c.isNever(errT) {
				if unifiedErr == types.NoType {
					unifiedErr = errT
				} else if unifiedErr != errT {
					c.errorf(diag.ErrAllErrorUnify, el.ExprSpan(),
						"'all' arms have incompatible error types: %s vs %s",
						types.Format(c.types, unifiedErr), types.Format(c.types, errT))
				}
			}
			continue
		}
		if elem, ok := c.spawnedElem(base); ok {
			results = append(results, elem)
			continue
		}
		c.errorf(diag.ErrTypeMismatch, el.ExprSpan(), "'all' element must be async, found %s",
			types.Format(c.types, elT))
		results = append(results, types.NoType)
	}
	c.checkPairwiseConflicts(armCaptures)
	tuple := c.types.Tuple(results...)
	if unifiedErr == types.NoType {
		return c.setTau(e, tuple)
	}
	return c.setTau(e, types.NormalizeUnion(c.types, []types.TypeID{tuple, unifiedErr}))
}

// inferYield types yield v / yield from e / yield release: valid only in
// an async body; the value produces the surrounding async's Out.
func (c *checker) inferYield(x *ast.YieldExpr, e ast.Expr) types.TypeID {
	if c.sig == nil || !c.sig.IsAsync {
		c.errorf(diag.ErrYieldOutsideAsync, e.ExprSpan(), "'yield' is only valid inside an async body")
		if x.Value != nil {
			c.inferExpr(x.Value, types.NoType)
		}
		return c.setTau(e, c.unit())
	}
	out, in, _, _, _ := c.asyncParams(c.sig.Ret)
	c.checkSuspension(e.ExprSpan(), x.Release)
	switch {
	case x.From:
		// yield from e delegates: the operand's Out/In must unify with
		// the enclosing async's.
		opT := c.inferExpr(x.Value, types.NoType)
		base, _ := c.types.Unwrap(opT)
		if dOut, dIn, dRes, _, ok := c.asyncParams(base); ok {
			if dOut != out || dIn != in {
				c.errorf(diag.ErrTypeMismatch, x.Value.ExprSpan(),
					"'yield from' operand's Out/In do not match the enclosing async")
			}
			return c.setTau(e, dRes)
		}
		c.errorf(diag.ErrTypeMismatch, x.Value.ExprSpan(), "'yield from' requires an async operand")
		return c.setTau(e, types.NoType)
	default:
		if x.Value != nil {
			got := c.inferExpr(x.Value, out)
			c.requireAssignable(got, out, x.Value.ExprSpan())
		}
		// The resume value has the async's In type.
		return c.setTau(e, in)
	}
}

// inferParallel types parallel { {arm} {arm} }: arms run on distinct
// logical tasks; captured key sets must be pairwise conflict-free.
func (c *checker) inferParallel(x *ast.ParallelExpr, e ast.Expr) types.TypeID {
	var armCaptures [][]capturedKey
	for _, arm := range x.Arms {
		captures := c.checkArmCaptures(func() {
			savedKeys := c.keys
			c.keys = NewKeyContext()
			c.checkBlock(arm, types.NoType)
			c.keys = savedKeys
		})
		armCaptures = append(armCaptures, captures)
	}
	c.checkPairwiseConflicts(armCaptures)
	return c.setTau(e, c.unit())
}

// inferDispatch types dispatch key(...) { body }: the declared keys are
// acquired around the dispatched body.
func (c *checker) inferDispatch(x *ast.DispatchExpr, e ast.Expr) types.TypeID {
	c.keys.PushScope()
	var acquired []KeyPath
	for _, acq := range x.Keys {
		c.inferPlace(acq.Path)
		p, ok := c.exprToKeyPath(acq.Path)
		if !ok {
			c.errorf(diag.ErrKeyConflict, acq.Span, "key expression is not a place path")
			continue
		}
		mode := KeyRead
		if acq.Write {
			mode = KeyWrite
		}
		if conflict, _ := c.keys.Acquire(p, mode); conflict != nil {
			c.errorf(diag.ErrKeyConflict, acq.Span, "%s (already held as %s %s)",
				p, conflict.Mode, conflict.Path)
		}
		acquired = append(acquired, p)
	}
	c.warnNonCanonicalOrder(acquired, x.Span)
	captures := c.checkArmCaptures(func() {
		c.checkBlock(x.Body, types.NoType)
	})
	_ = captures
	c.keys.PopScope()
	return c.setTau(e, c.unit())
}
