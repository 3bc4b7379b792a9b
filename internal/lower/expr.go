package lower

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/source"
	"cursive0/internal/types"
)

// lowerBlock lowers a statement block to (instruction tree, value).
func (l *lowerer) lowerBlock(b *ast.Block, expected types.TypeID) (ir.Instr, ir.Value) {
	var items []ir.Instr
	for _, s := range b.Stmts {
		items = append(items, l.lowerStmt(s))
	}
	var val ir.Value
	if b.Tail != nil {
		ti, tv := l.lowerExpr(b.Tail)
		items = append(items, ti)
		val = tv
	}
	return ir.NewSeq(b.Span, items...), val
}

func (l *lowerer) lowerStmt(s ast.Stmt) ir.Instr {
	switch st := s.(type) {
	case *ast.LetStmt:
		vi, vv := l.lowerExpr(st.Value)
		t := l.tau(st.Value)
		l.ensureDropGlue(t)
		return ir.NewSeq(st.Span, vi, &ir.BindVar{Base: ir.At(st.Span), Name: st.Name.Name, Type: t, Value: vv})
	case *ast.AssignStmt:
		vi, vv := l.lowerExpr(st.Value)
		return ir.NewSeq(st.Span, vi, l.lowerStore(st.Place, vv))
	case *ast.ExprStmt:
		i, _ := l.lowerExpr(st.X)
		return i
	case *ast.ReturnStmt:
		if st.Value == nil {
			return &ir.Branch{Base: ir.At(st.Span), Kind: ir.BranchReturn}
		}
		vi, vv := l.lowerExpr(st.Value)
		return ir.NewSeq(st.Span, vi, &ir.Branch{Base: ir.At(st.Span), Kind: ir.BranchReturn, Value: vv})
	case *ast.BreakStmt:
		return &ir.Branch{Base: ir.At(st.Span), Kind: ir.BranchBreak}
	case *ast.ContinueStmt:
		return &ir.Branch{Base: ir.At(st.Span), Kind: ir.BranchContinue}
	case *ast.WhileStmt:
		ci, cv := l.lowerExpr(st.Cond)
		bi, _ := l.lowerBlock(st.Body, types.NoType)
		return &ir.Loop{Base: ir.At(st.Span), Kind: ir.LoopWhile, Cond: ci, CondValue: cv, Body: bi}
	case *ast.LoopStmt:
		bi, _ := l.lowerBlock(st.Body, types.NoType)
		return &ir.Loop{Base: ir.At(st.Span), Kind: ir.LoopForever, Body: bi}
	case *ast.ForStmt:
		ii, iv := l.lowerExpr(st.Iter)
		bi, _ := l.lowerBlock(st.Body, types.NoType)
		bind := &ir.BindVar{Base: ir.At(st.Span), Name: st.Var.Name, Type: l.types.PrimT(types.PrimUsize), Value: iv}
		return ir.NewSeq(st.Span, ii, bind,
			&ir.Loop{Base: ir.At(st.Span), Kind: ir.LoopRange, Body: bi})
	case *ast.RegionStmt:
		bi, bv := l.lowerBlock(st.Body, types.NoType)
		l.ctx.Runtime["cursive::runtime::region::create"] = true
		l.ctx.Runtime["cursive::runtime::region::destroy"] = true
		return &ir.Region{Base: ir.At(st.Span), Owner: st.Name.Name, Body: bi, Value: bv}
	case *ast.UnsafeStmt:
		bi, _ := l.lowerBlock(st.Body, types.NoType)
		return bi
	case *ast.KeyBlockStmt:
		// Keys are a static discipline; the lowered form is the body
		// bracketed by runtime key acquire/release.
		var acq, rel []ir.Instr
		for _, k := range st.Keys {
			acq = append(acq, &ir.Call{Base: ir.At(k.Span),
				Callee: l.runtimeSym("cursive::runtime::key::acquire"),
				Args:   []ir.Value{ir.StrImmediate{Text: keyText(k)}}})
			rel = append(rel, &ir.Call{Base: ir.At(k.Span),
				Callee: l.runtimeSym("cursive::runtime::key::release"),
				Args:   []ir.Value{ir.StrImmediate{Text: keyText(k)}}})
		}
		bi, _ := l.lowerBlock(st.Body, types.NoType)
		return ir.NewSeq(st.Span, append(append(acq, bi), rel...)...)
	}
	return nil
}

func keyText(k ast.KeyAcq) string {
	mode := "read"
	if k.Write {
		mode = "write"
	}
	return mode + " " + placeText(k.Path)
}

func placeText(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.IdentExpr:
		return x.Name
	case *ast.FieldExpr:
		return placeText(x.X) + "." + x.Name.Name
	case *ast.IndexExpr:
		return placeText(x.X) + "[i]"
	case *ast.DerefExpr:
		return "*" + placeText(x.X)
	default:
		return "_"
	}
}

// lowerStore writes a value into a place expression.
func (l *lowerer) lowerStore(place ast.Expr, v ir.Value) ir.Instr {
	span := place.ExprSpan()
	switch p := place.(type) {
	case *ast.IdentExpr:
		if d, ok := l.staticFor(place); ok {
			return &ir.StoreGlobal{Base: ir.At(span), Symbol: d, Value: v}
		}
		return &ir.StoreVar{Base: ir.At(span), Name: p.Name, Value: v}
	case *ast.PathExpr:
		if d, ok := l.staticFor(place); ok {
			return &ir.StoreGlobal{Base: ir.At(span), Symbol: d, Value: v}
		}
		return &ir.Opaque{Base: ir.At(span), Note: "store to unresolved path"}
	case *ast.DerefExpr:
		pi, pv := l.lowerExpr(p.X)
		return ir.NewSeq(span, pi, &ir.WritePtr{Base: ir.At(span), Ptr: pv, Value: v})
	case *ast.FieldExpr, *ast.IndexExpr:
		ai, av := l.lowerAddr(place)
		return ir.NewSeq(span, ai, &ir.WritePtr{Base: ir.At(span), Ptr: av, Value: v})
	default:
		return &ir.Opaque{Base: ir.At(span), Note: "store to non-place"}
	}
}

func (l *lowerer) staticFor(e ast.Expr) (string, bool) {
	// The checker resolved statics through Σ; rediscover by name in the
	// current module, then fully qualified.
	switch x := e.(type) {
	case *ast.IdentExpr:
		if d, ok := l.table.Lookup(l.module + "::" + x.Name); ok && d.Static != nil {
			return Mangle(d.PathKey), true
		}
	case *ast.PathExpr:
		if d, ok := l.table.Lookup(x.Path.Key()); ok && d.Static != nil {
			return Mangle(d.PathKey), true
		}
	}
	return "", false
}

// lowerAddr lowers a place to an address value.
func (l *lowerer) lowerAddr(place ast.Expr) (ir.Instr, ir.Value) {
	span := place.ExprSpan()
	switch p := place.(type) {
	case *ast.IdentExpr:
		res := l.local(l.types.Ptr(l.tau(place), types.PtrValid))
		return &ir.AddrOf{Base: ir.At(span), Name: p.Name, Result: res}, res
	case *ast.FieldExpr:
		baseI, baseV := l.lowerAddr(p.X)
		idx := l.fieldIndex(p)
		res := l.local(l.types.Ptr(l.tau(place), types.PtrValid))
		addr := &ir.AddrOf{Base: ir.At(span), Name: localName(baseV), FieldPath: []int{idx}, Result: res}
		return ir.NewSeq(span, baseI, addr), res
	case *ast.IndexExpr:
		baseI, baseV := l.lowerAddr(p.X)
		idxI, idxV := l.lowerExpr(p.Index)
		res := l.local(l.types.Ptr(l.tau(place), types.PtrValid))
		call := &ir.Call{Base: ir.At(span),
			Callee: l.runtimeSym("cursive::runtime::slice::index_addr"),
			Args:   []ir.Value{baseV, idxV}, Result: &res}
		return ir.NewSeq(span, baseI, idxI, call), res
	case *ast.DerefExpr:
		return l.lowerExpr(p.X)
	default:
		i, v := l.lowerExpr(place)
		return i, v
	}
}

func localName(v ir.Value) string {
	if loc, ok := v.(ir.Local); ok {
		return loc.Name
	}
	return "_"
}

// fieldIndex resolves a field access to its declaration index.
func (l *lowerer) fieldIndex(f *ast.FieldExpr) int {
	baseT, _ := l.types.Unwrap(l.tau(f.X))
	t := l.types.Get(baseT)
	if t.Kind != types.KindPathType {
		return 0
	}
	if rec, ok := l.eng.Records[t.Path]; ok {
		for i, n := range rec.FieldNames {
			if n == f.Name.Name {
				return i
			}
		}
	}
	return 0
}

// lowerExpr lowers an expression to (instruction tree, value).
func (l *lowerer) lowerExpr(e ast.Expr) (ir.Instr, ir.Value) {
	span := e.ExprSpan()
	t := l.tau(e)
	switch x := e.(type) {
	case *ast.IntLitExpr:
		return nil, l.intImmediate(x.Text, t)
	case *ast.FloatLitExpr:
		f, _ := strconv.ParseFloat(x.Text, 64)
		return nil, floatImmediate(f, t)
	case *ast.BoolLitExpr:
		b := byte(0)
		if x.Value {
			b = 1
		}
		return nil, ir.Immediate{Bytes: []byte{b}, Type: t}
	case *ast.CharLitExpr:
		r := charValue(x.Text)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(r))
		return nil, ir.Immediate{Bytes: buf[:], Type: t}
	case *ast.StringLitExpr:
		return nil, ir.StrImmediate{Text: unquote(x.Text)}
	case *ast.NullLitExpr:
		return nil, ir.Immediate{Bytes: make([]byte, 8), Type: t}
	case *ast.UnitLitExpr:
		return nil, nil
	case *ast.IdentExpr:
		if sym, ok := l.staticFor(e); ok {
			res := l.local(t)
			return &ir.ReadPath{Base: ir.At(span), Symbol: sym, Result: res}, res
		}
		res := l.local(t)
		return &ir.ReadVar{Base: ir.At(span), Name: x.Name, Result: res}, res
	case *ast.PathExpr:
		if sym, ok := l.staticFor(e); ok {
			res := l.local(t)
			return &ir.ReadPath{Base: ir.At(span), Symbol: sym, Result: res}, res
		}
		return nil, ir.Symbol{Name: Mangle(x.Path.Key())}
	case *ast.FieldExpr:
		ai, av := l.lowerAddr(e)
		res := l.local(t)
		return ir.NewSeq(span, ai, &ir.ReadPtr{Base: ir.At(span), Ptr: av, Elem: t, Result: res}), res
	case *ast.IndexExpr:
		ai, av := l.lowerAddr(e)
		res := l.local(t)
		return ir.NewSeq(span, ai, &ir.ReadPtr{Base: ir.At(span), Ptr: av, Elem: t, Result: res}), res
	case *ast.CallExpr:
		return l.lowerCall(x, e)
	case *ast.MethodCallExpr:
		return l.lowerMethodCall(x, e)
	case *ast.UnaryExpr:
		xi, xv := l.lowerExpr(x.X)
		res := l.local(t)
		op := "neg"
		if x.Op == ast.UnaryNot {
			op = "not"
		}
		call := &ir.Call{Base: ir.At(span), Callee: ir.Symbol{Name: "llvm." + op}, Args: []ir.Value{xv}, Result: &res}
		return ir.NewSeq(span, xi, call), res
	case *ast.BinaryExpr:
		xi, xv := l.lowerExpr(x.X)
		yi, yv := l.lowerExpr(x.Y)
		res := l.local(t)
		call := &ir.Call{Base: ir.At(span),
			Callee: ir.Symbol{Name: "llvm." + binOpName(x.Op)},
			Args:   []ir.Value{xv, yv}, Result: &res}
		return ir.NewSeq(span, xi, yi, call), res
	case *ast.AddrOfExpr:
		return l.lowerAddr(x.X)
	case *ast.DerefExpr:
		pi, pv := l.lowerExpr(x.X)
		res := l.local(t)
		return ir.NewSeq(span, pi, &ir.ReadPtr{Base: ir.At(span), Ptr: pv, Elem: t, Result: res}), res
	case *ast.CastExpr:
		xi, xv := l.lowerExpr(x.X)
		res := l.local(t)
		call := &ir.Call{Base: ir.At(span), Callee: ir.Symbol{Name: "llvm.cast"}, Args: []ir.Value{xv}, Result: &res}
		return ir.NewSeq(span, xi, call), res
	case *ast.TransmuteExpr:
		xi, xv := l.lowerExpr(x.X)
		res := l.local(t)
		call := &ir.Call{Base: ir.At(span), Callee: ir.Symbol{Name: "llvm.bitcast"}, Args: []ir.Value{xv}, Result: &res}
		return ir.NewSeq(span, xi, call), res
	case *ast.MoveExpr:
		xi, xv := l.lowerExpr(x.X)
		move := &ir.MoveState{Base: ir.At(span), Place: placeText(x.X)}
		return ir.NewSeq(span, xi, move), xv
	case *ast.IfExpr:
		return l.lowerIf(x, e)
	case *ast.MatchExpr:
		return l.lowerMatch(x, e)
	case *ast.BlockExpr:
		return l.lowerBlock(x.Block, t)
	case *ast.RecordLitExpr:
		return l.lowerRecordLit(x, e)
	case *ast.ModalLitExpr:
		var items []ir.Instr
		args := []ir.Value{ir.StrImmediate{Text: x.State.Name}}
		for _, f := range x.Fields {
			fi, fv := l.lowerExpr(f.Value)
			items = append(items, fi)
			args = append(args, fv)
		}
		res := l.local(t)
		items = append(items, &ir.Call{Base: ir.At(span),
			Callee: ir.Symbol{Name: "llvm.aggregate.modal"}, Args: args, Result: &res})
		return ir.NewSeq(span, items...), res
	case *ast.TupleExpr:
		var items []ir.Instr
		res := l.local(t)
		args := make([]ir.Value, 0, len(x.Elems))
		for _, el := range x.Elems {
			i, v := l.lowerExpr(el)
			items = append(items, i)
			args = append(args, v)
		}
		items = append(items, &ir.Call{Base: ir.At(span),
			Callee: ir.Symbol{Name: "llvm.aggregate"}, Args: args, Result: &res})
		return ir.NewSeq(span, items...), res
	case *ast.RangeExpr:
		var items []ir.Instr
		args := make([]ir.Value, 0, 2)
		for _, end := range []ast.Expr{x.Lo, x.Hi} {
			if end == nil {
				args = append(args, ir.Immediate{Bytes: make([]byte, 8), Type: l.types.PrimT(types.PrimUsize)})
				continue
			}
			i, v := l.lowerExpr(end)
			items = append(items, i)
			args = append(args, v)
		}
		res := l.local(t)
		items = append(items, &ir.Call{Base: ir.At(span),
			Callee: ir.Symbol{Name: "llvm.aggregate"}, Args: args, Result: &res})
		return ir.NewSeq(span, items...), res
	case *ast.AllocExpr:
		vi, vv := l.lowerExpr(x.Value)
		elem := l.tau(x.Value)
		res := l.local(t)
		region := x.Region.Name
		if region == "" {
			region = "_active"
		}
		l.ctx.Runtime["cursive::runtime::region::alloc"] = true
		return ir.NewSeq(span, vi,
			&ir.Alloc{Base: ir.At(span), Region: region, Value: vv, Elem: elem, Result: res}), res
	case *ast.PropagateExpr:
		return l.lowerPropagate(x, e)
	case *ast.SpawnExpr:
		return l.lowerSpawn(x, e)
	case *ast.WaitExpr:
		xi, xv := l.lowerExpr(x.X)
		res := l.local(t)
		call := l.runtimeCall(span, "cursive::runtime::task::wait", []ir.Value{xv}, &res)
		return ir.NewSeq(span, xi, call), res
	case *ast.SyncExpr:
		xi, xv := l.lowerExpr(x.X)
		res := l.local(t)
		call := l.runtimeCall(span, "cursive::runtime::task::sync", []ir.Value{xv}, &res)
		return ir.NewSeq(span, xi, call), res
	case *ast.RaceExpr:
		return l.lowerRace(x, e)
	case *ast.AllExpr:
		return l.lowerAll(x, e)
	case *ast.YieldExpr:
		return l.lowerYield(x, e)
	case *ast.ParallelExpr:
		var items []ir.Instr
		for _, arm := range x.Arms {
			bi, _ := l.lowerBlock(arm, types.NoType)
			armProc := l.outlineArm(bi, arm.Span)
			items = append(items, l.runtimeCall(span, "cursive::runtime::task::spawn_arm",
				[]ir.Value{ir.Symbol{Name: armProc}}, nil))
		}
		items = append(items, l.runtimeCall(span, "cursive::runtime::task::join_all", nil, nil))
		return ir.NewSeq(span, items...), nil
	case *ast.DispatchExpr:
		bi, _ := l.lowerBlock(x.Body, types.NoType)
		armProc := l.outlineArm(bi, x.Span)
		return l.runtimeCall(span, "cursive::runtime::task::dispatch",
			[]ir.Value{ir.Symbol{Name: armProc}}, nil), nil
	case *ast.ErrorExpr:
		return &ir.Opaque{Base: ir.At(span), Note: "error expression"}, nil
	}
	return &ir.Opaque{Base: ir.At(span), Note: "unlowered expression"}, nil
}

func binOpName(op ast.BinaryOp) string {
	names := [...]string{"add", "sub", "mul", "div", "rem", "eq", "ne", "lt", "le",
		"gt", "ge", "and", "or", "bitand", "bitor", "bitxor", "shl", "shr"}
	if int(op) < len(names) {
		return names[op]
	}
	return "op"
}

// runtimeCall builds a call to a runtime-archive symbol, recording the
// reference for the link-time whitelist check.
func (l *lowerer) runtimeCall(span source.Span, name string, args []ir.Value, res *ir.Local) ir.Instr {
	return &ir.Call{Base: ir.At(span), Callee: l.runtimeSym(name), Args: args, Result: res}
}

func (l *lowerer) intImmediate(text string, t types.TypeID) ir.Value {
	v, _ := strconv.ParseInt(text, 0, 64)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	size := 8
	base, _ := l.types.Unwrap(t)
	bt := l.types.Get(base)
	if bt.Kind == types.KindPrim {
		switch bt.Prim {
		case types.PrimI8, types.PrimU8, types.PrimBool:
			size = 1
		case types.PrimI16, types.PrimU16:
			size = 2
		case types.PrimI32, types.PrimU32, types.PrimChar:
			size = 4
		}
	}
	return ir.Immediate{Bytes: buf[:size], Type: t}
}

func floatImmediate(f float64, t types.TypeID) ir.Value {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	return ir.Immediate{Bytes: buf[:], Type: t}
}

func charValue(raw string) rune {
	s := strings.Trim(raw, "'")
	if strings.HasPrefix(s, "\\") && len(s) >= 2 {
		switch s[1] {
		case 'n':
			return '\n'
		case 't':
			return '\t'
		case 'r':
			return '\r'
		case '0':
			return 0
		default:
			return rune(s[1])
		}
	}
	for _, r := range s {
		return r
	}
	return 0
}

func unquote(raw string) string {
	s := strings.TrimPrefix(strings.TrimSuffix(raw, `"`), `"`)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// constValue renders a static initializer as an immediate when the
// expression const-evaluates.
func (l *lowerer) constValue(e ast.Expr, t types.TypeID) (ir.Value, bool) {
	switch x := e.(type) {
	case *ast.IntLitExpr:
		return l.intImmediate(x.Text, t), true
	case *ast.BoolLitExpr:
		b := byte(0)
		if x.Value {
			b = 1
		}
		return ir.Immediate{Bytes: []byte{b}, Type: t}, true
	case *ast.StringLitExpr:
		return ir.StrImmediate{Text: unquote(x.Text)}, true
	}
	return nil, false
}
