package lower

import (
	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/types"
)

func (l *lowerer) lowerIf(x *ast.IfExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	ci, cv := l.lowerExpr(x.Cond)

	var res *ir.Local
	if !l.isUnit(t) {
		r := l.local(t)
		res = &r
	}

	thenI, thenV := l.lowerBlock(x.Then, t)
	if res != nil && thenV != nil {
		thenI = ir.NewSeq(span, thenI, &ir.StoreVarNoDrop{Base: ir.At(span), Name: res.Name, Value: thenV})
	}
	var elseI ir.Instr
	if x.Else != nil {
		ei, ev := l.lowerExpr(x.Else)
		elseI = ei
		if res != nil && ev != nil {
			elseI = ir.NewSeq(span, ei, &ir.StoreVarNoDrop{Base: ir.At(span), Name: res.Name, Value: ev})
		}
	}

	node := &ir.If{Base: ir.At(span), Cond: cv, Then: thenI, Else: elseI, Result: res}
	if res != nil {
		return ir.NewSeq(span, ci, node), *res
	}
	return ir.NewSeq(span, ci, node), nil
}

func (l *lowerer) lowerMatch(x *ast.MatchExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	si, sv := l.lowerExpr(x.Scrutinee)
	scrutT, _ := l.types.Unwrap(l.tau(x.Scrutinee))

	var res *ir.Local
	if !l.isUnit(t) {
		r := l.local(t)
		res = &r
	}

	node := &ir.Match{Base: ir.At(span), Scrutinee: sv, ScrutType: scrutT, Result: res}
	for _, arm := range x.Arms {
		bi, bv := l.lowerExpr(arm.Body)
		if res != nil && bv != nil {
			bi = ir.NewSeq(arm.Span, bi, &ir.StoreVarNoDrop{Base: ir.At(arm.Span), Name: res.Name, Value: bv})
		}
		node.Arms = append(node.Arms, ir.MatchArmIR{
			Disc:     l.armDisc(arm.Pat, scrutT),
			Bindings: patternBindings(arm.Pat),
			Body:     bi,
		})
	}
	if res != nil {
		return ir.NewSeq(span, si, node), *res
	}
	return ir.NewSeq(span, si, node), nil
}

// armDisc maps a pattern to the discriminant it selects: variant/state
// index for nominal scrutinees, the literal value for small integers, and
// -1 for defaults (wildcards, bindings, ranges).
func (l *lowerer) armDisc(p ast.Pattern, scrut types.TypeID) int {
	st := l.types.Get(scrut)
	switch pt := p.(type) {
	case *ast.VariantPattern:
		name := pt.Path.Last().Name
		if st.Kind == types.KindPathType {
			if en, ok := l.eng.Enums[st.Path]; ok {
				for i, v := range en.Variants {
					if v.Name == name {
						return i
					}
				}
			}
			if mo, ok := l.eng.Modals[st.Path]; ok {
				for i, s := range mo.States {
					if s.Name == name {
						return i
					}
				}
			}
		}
	case *ast.LiteralPattern:
		switch lit := pt.Value.(type) {
		case *ast.BoolLitExpr:
			if lit.Value {
				return 1
			}
			return 0
		case *ast.IntLitExpr:
			if v, ok := parseSmallInt(lit.Text); ok {
				return v
			}
		}
	}
	return -1
}

func parseSmallInt(text string) (int, bool) {
	n := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return 0, false
		}
	}
	return n, true
}

func patternBindings(p ast.Pattern) []string {
	var names []string
	var walk func(ast.Pattern)
	walk = func(p ast.Pattern) {
		switch pt := p.(type) {
		case *ast.BindingPattern:
			names = append(names, pt.Name.Name)
		case *ast.VariantPattern:
			for _, el := range pt.Elems {
				walk(el)
			}
		case *ast.TuplePattern:
			for _, el := range pt.Elems {
				walk(el)
			}
		}
	}
	walk(p)
	return names
}

func (l *lowerer) lowerRecordLit(x *ast.RecordLitExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	base, _ := l.types.Unwrap(t)
	bt := l.types.Get(base)

	// Field initializers evaluate in source order, then store in
	// declaration order through the aggregate build.
	values := make(map[string]ir.Value, len(x.Fields))
	var items []ir.Instr
	for _, f := range x.Fields {
		fi, fv := l.lowerExpr(f.Value)
		items = append(items, fi)
		values[f.Name.Name] = fv
	}

	var args []ir.Value
	if bt.Kind == types.KindPathType {
		if rec, ok := l.eng.Records[bt.Path]; ok {
			for _, name := range rec.FieldNames {
				if v, ok := values[name]; ok {
					args = append(args, v)
				} else {
					args = append(args, ir.OpaqueValue{Note: "missing field " + name})
				}
			}
		}
	}
	res := l.local(t)
	items = append(items, &ir.Call{Base: ir.At(span),
		Callee: ir.Symbol{Name: "llvm.aggregate"}, Args: args, Result: &res})
	return ir.NewSeq(span, items...), res
}

// lowerPropagate lowers x?: test the union tag; on the error side run
// scope cleanup and return the error through the enclosing union.
func (l *lowerer) lowerPropagate(x *ast.PropagateExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	xi, xv := l.lowerExpr(x.X)

	tag := l.local(l.types.PrimT(types.PrimU32))
	payload := l.local(t)
	items := []ir.Instr{
		xi,
		&ir.Call{Base: ir.At(span), Callee: ir.Symbol{Name: "llvm.union.tag"}, Args: []ir.Value{xv}, Result: &tag},
		&ir.If{
			Base: ir.At(span),
			Cond: tag,
			Then: &ir.Branch{Base: ir.At(span), Kind: ir.BranchReturn, Value: xv},
		},
		&ir.Call{Base: ir.At(span), Callee: ir.Symbol{Name: "llvm.union.payload"}, Args: []ir.Value{xv}, Result: &payload},
	}
	return ir.NewSeq(span, items...), payload
}
