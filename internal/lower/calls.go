package lower

import (
	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// lowerCall lowers a call with the full panic plumbing: ClearPanic
// before, the callee's __panic argument appended, PanicCheck after, and
// CheckPoison ahead of every call into another module.
func (l *lowerer) lowerCall(x *ast.CallExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)

	var items []ir.Instr
	var args []ir.Value
	for _, a := range x.Args {
		ai, av := l.lowerExpr(a)
		items = append(items, ai)
		args = append(args, av)
	}

	// Enum variant constructions lower to an aggregate build, not a
	// call.
	if d := l.declFor(x.Callee); d != nil && d.Kind == symbols.DeclVariant {
		res := l.local(t)
		items = append(items, &ir.Call{Base: ir.At(span),
			Callee: ir.Symbol{Name: "llvm.aggregate.variant"},
			Args:   append([]ir.Value{l.intImmediate(itoa(d.VariantIndex), l.types.PrimT(types.PrimU32))}, args...),
			Result: &res})
		return ir.NewSeq(span, items...), res
	}

	var callee ir.Value
	crossModule := ""
	if d := l.declFor(x.Callee); d != nil && (d.Kind == symbols.DeclProcedure || d.Kind == symbols.DeclExternProc) {
		if d.Kind == symbols.DeclExternProc {
			callee = ir.Symbol{Name: d.Name}
		} else {
			callee = ir.Symbol{Name: Mangle(d.PathKey)}
			if d.Module != l.module {
				crossModule = d.Module
			}
		}
	} else {
		ci, cv := l.lowerExpr(x.Callee)
		items = append(items, ci)
		callee = cv
	}

	if crossModule != "" {
		items = append(items, &ir.CheckPoison{Base: ir.At(span), Module: crossModule})
	}
	items = append(items, &ir.ClearPanic{Base: ir.At(span)})

	var res *ir.Local
	if !l.isUnit(t) {
		r := l.local(t)
		res = &r
	}
	items = append(items, &ir.Call{Base: ir.At(span), Callee: callee, Args: args, Result: res})
	items = append(items, &ir.PanicCheck{Base: ir.At(span)})

	if res != nil {
		return ir.NewSeq(span, items...), *res
	}
	return ir.NewSeq(span, items...), nil
}

func (l *lowerer) declFor(e ast.Expr) *symbols.Decl {
	switch x := e.(type) {
	case *ast.IdentExpr:
		scope := l.table.Scope(l.module)
		if d, ok := scope.Values[x.Name]; ok {
			return d
		}
		if d, ok := scope.Imported[x.Name]; ok {
			return d
		}
	case *ast.PathExpr:
		if d, ok := l.table.Lookup(x.Path.Key()); ok {
			return d
		}
		if d, ok := l.table.Lookup(l.module + "::" + x.Path.Key()); ok {
			return d
		}
	}
	return nil
}

// lowerMethodCall lowers recv.name(args): static dispatch for records and
// modal states, CallVTable for dyn receivers.
func (l *lowerer) lowerMethodCall(x *ast.MethodCallExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	recvT, _ := l.types.Unwrap(l.tau(x.Recv))
	rt := l.types.Get(recvT)

	var items []ir.Instr
	recvI, recvV := l.lowerAddr(x.Recv)
	items = append(items, recvI)
	args := []ir.Value{recvV}
	for _, a := range x.Args {
		ai, av := l.lowerExpr(a)
		items = append(items, ai)
		args = append(args, av)
	}

	var res *ir.Local
	if !l.isUnit(t) {
		r := l.local(t)
		res = &r
	}

	if rt.Kind == types.KindDynamic {
		slot := l.dynSlot(rt.Path, x.Name.Name)
		items = append(items, &ir.ClearPanic{Base: ir.At(span)})
		items = append(items, &ir.CallVTable{Base: ir.At(span), Recv: recvV, Slot: slot, Args: args[1:], Result: res})
		items = append(items, &ir.PanicCheck{Base: ir.At(span)})
	} else {
		symbol := l.methodSymbol(rt, x.Name.Name)
		items = append(items, &ir.ClearPanic{Base: ir.At(span)})
		items = append(items, &ir.Call{Base: ir.At(span), Callee: ir.Symbol{Name: symbol}, Args: args, Result: res})
		items = append(items, &ir.PanicCheck{Base: ir.At(span)})
	}

	if res != nil {
		return ir.NewSeq(span, items...), *res
	}
	return ir.NewSeq(span, items...), nil
}

func (l *lowerer) dynSlot(classPath, method string) int {
	slots := l.typed.VTableSlots[classPath]
	for i, s := range slots {
		if s == method {
			return i
		}
	}
	return 0
}

func (l *lowerer) methodSymbol(rt types.Type, method string) string {
	switch rt.Kind {
	case types.KindPathType:
		return Mangle(rt.Path) + "." + method
	case types.KindModalState:
		return Mangle(rt.Path) + "." + rt.State + "." + method
	default:
		return method
	}
}

func (l *lowerer) isUnit(t types.TypeID) bool {
	base, _ := l.types.Unwrap(t)
	bt := l.types.Get(base)
	return base == types.NoType || (bt.Kind == types.KindPrim && (bt.Prim == types.PrimUnit || bt.Prim == types.PrimNever))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
