package llvm

import (
	"fmt"
	"strings"

	"cursive0/internal/ir"
	"cursive0/internal/layout"
	"cursive0/internal/lower"
	"cursive0/internal/types"
)

type emitter struct {
	types *types.Interner
	ctx   *lower.Ctx
	b     strings.Builder
	tmpN  int
	strs  map[string]string // literal -> global name
}

func newEmitter(in *types.Interner, ctx *lower.Ctx) *emitter {
	return &emitter{types: in, ctx: ctx, strs: make(map[string]string)}
}

func (e *emitter) fresh() string {
	e.tmpN++
	return fmt.Sprintf("%%v%d", e.tmpN)
}

// llType maps a τ onto an LLVM first-class type. Aggregates that the ABI
// passes indirectly appear as ptr at call boundaries.
func (e *emitter) llType(id types.TypeID) string {
	base, _ := e.types.Unwrap(id)
	t := e.types.Get(base)
	switch t.Kind {
	case types.KindPrim:
		switch t.Prim {
		case types.PrimBool:
			return "i1"
		case types.PrimI8, types.PrimU8:
			return "i8"
		case types.PrimI16, types.PrimU16:
			return "i16"
		case types.PrimChar, types.PrimI32, types.PrimU32:
			return "i32"
		case types.PrimF32:
			return "float"
		case types.PrimF64:
			return "double"
		case types.PrimUnit, types.PrimNever:
			return "void"
		default:
			return "i64"
		}
	case types.KindPtr, types.KindRawPtr, types.KindFunc:
		return "ptr"
	case types.KindSlice, types.KindDynamic, types.KindString, types.KindBytes:
		return "{ ptr, i64 }"
	case types.KindRange:
		return "{ i64, i64, i64 }"
	default:
		return "ptr"
	}
}

func (e *emitter) module(m *ir.Module, includeExtra bool) string {
	e.b.Reset()
	fmt.Fprintf(&e.b, "; module %s\n", m.PathKey)
	fmt.Fprintf(&e.b, "target triple = %q\n", TargetTriple)
	fmt.Fprintf(&e.b, "target datalayout = %q\n\n", DataLayout)

	decls := m.Decls
	if includeExtra {
		decls = append(append([]ir.Decl(nil), decls...), e.ctx.Extra...)
		for _, vt := range e.ctx.VTables {
			decls = append(decls, vt)
		}
	}
	// Runtime externs referenced by this build.
	for name := range e.ctx.Runtime {
		fmt.Fprintf(&e.b, "declare void @%s() nounwind\n", sanitize(lower.Mangle(name)))
	}
	e.b.WriteByte('\n')

	for _, d := range decls {
		e.decl(d)
	}
	// Interned string literals.
	for text, name := range e.strs {
		fmt.Fprintf(&e.b, "@%s = private unnamed_addr constant [%d x i8] c%s\n",
			name, len(text), llEscape(text))
	}
	return e.b.String()
}

func (e *emitter) decl(d ir.Decl) {
	switch v := d.(type) {
	case *ir.Proc:
		e.proc(v)
	case *ir.ExternProc:
		params := make([]string, len(v.Params))
		for i, p := range v.Params {
			params[i] = e.llType(p.Type)
		}
		attrs := ""
		if v.Nounwind {
			attrs = " nounwind"
		}
		fmt.Fprintf(&e.b, "declare %s @%s(%s)%s\n\n",
			e.retType(v.Ret), v.Symbol, strings.Join(params, ", "), attrs)
	case *ir.GlobalConst:
		fmt.Fprintf(&e.b, "@%s = constant %s %s\n\n", v.Symbol, e.llType(v.Type), e.value(v.Init))
	case *ir.GlobalZero:
		fmt.Fprintf(&e.b, "@%s = global %s zeroinitializer\n\n", v.Symbol, e.llType(v.Type))
	case *ir.GlobalVTable:
		n := 3 + len(v.MethodSymbols)
		fields := []string{
			fmt.Sprintf("i64 %d", v.Size),
			fmt.Sprintf("i64 %d", v.Align),
		}
		if v.DropSymbol != "" {
			fields = append(fields, "ptr @"+v.DropSymbol)
		} else {
			fields = append(fields, "ptr null")
		}
		for _, m := range v.MethodSymbols {
			fields = append(fields, "ptr @"+m)
		}
		fmt.Fprintf(&e.b, "@%s = constant [%d x i64] ; vtable(%s for %s)\n;   { %s }\n\n",
			sanitize(v.Symbol), n, v.ClassPath, v.ImplPath, strings.Join(fields, ", "))
	}
}

func (e *emitter) retType(id types.TypeID) string {
	t := e.llType(id)
	return t
}

func (e *emitter) proc(p *ir.Proc) {
	e.tmpN = 0
	params := make([]string, 0, len(p.Params)+1)
	if p.RetABI == layout.SRet {
		params = append(params, "ptr sret(i8) %__sret")
	}
	for _, prm := range p.Params {
		ty := e.llType(prm.Type)
		if prm.Pass == layout.ByRef {
			ty = "ptr"
		}
		params = append(params, fmt.Sprintf("%s %%%s", ty, sanitize(prm.Name)))
	}
	if p.HasPanicParam {
		params = append(params, "ptr %__panic")
	}
	ret := e.retType(p.Ret)
	if p.RetABI == layout.SRet {
		ret = "void"
	}
	// Drop glue gets LinkOnceODR + Comdat; everything else is
	// externally visible.
	linkage := ""
	comdat := ""
	if strings.HasPrefix(p.Symbol, "drop_glue_") {
		linkage = "linkonce_odr "
		comdat = " comdat"
		fmt.Fprintf(&e.b, "$%s = comdat any\n", sanitize(p.Symbol))
	}
	fmt.Fprintf(&e.b, "define %s%s @%s(%s)%s {\nentry:\n",
		linkage, ret, sanitize(p.Symbol), strings.Join(params, ", "), comdat)
	e.instr(p.Body, ret)
	if ret == "void" {
		e.line("ret void")
	}
	e.b.WriteString("}\n\n")
}

func (e *emitter) line(format string, args ...any) {
	e.b.WriteString("  ")
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

func (e *emitter) value(v ir.Value) string {
	switch x := v.(type) {
	case nil:
		return "void"
	case ir.Local:
		return "%" + sanitize(x.Name)
	case ir.Symbol:
		return "@" + sanitize(x.Name)
	case ir.Immediate:
		var n uint64
		for i := len(x.Bytes) - 1; i >= 0; i-- {
			n = n<<8 | uint64(x.Bytes[i])
		}
		return fmt.Sprintf("%d", n)
	case ir.StrImmediate:
		name, ok := e.strs[x.Text]
		if !ok {
			name = fmt.Sprintf("str.%d", len(e.strs))
			e.strs[x.Text] = name
		}
		return "@" + name
	case ir.OpaqueValue:
		return "undef ; " + x.Note
	default:
		return "undef"
	}
}

// instr walks the tree emitting one instruction line per node. Control
// flow lowers to labeled blocks and branches.
func (e *emitter) instr(i ir.Instr, ret string) {
	switch v := i.(type) {
	case nil:
	case *ir.Seq:
		for _, it := range v.Items {
			e.instr(it, ret)
		}
	case *ir.BindVar:
		e.line("%%%s = alloca %s", sanitize(v.Name), e.llType(v.Type))
		if v.Value != nil {
			e.line("store %s, ptr %%%s", e.typedValue(v.Value), sanitize(v.Name))
		}
	case *ir.StoreVar, *ir.StoreVarNoDrop:
		name, val := storeParts(v)
		e.line("store %s, ptr %%%s", e.typedValue(val), sanitize(name))
	case *ir.ReadVar:
		e.line("%s = load %s, ptr %%%s", e.value(v.Result), e.llType(v.Result.Type), sanitize(v.Name))
	case *ir.ReadPtr:
		e.line("%s = load %s, ptr %s", e.value(v.Result), e.llType(v.Elem), e.value(v.Ptr))
	case *ir.WritePtr:
		e.line("store %s, ptr %s", e.typedValue(v.Value), e.value(v.Ptr))
	case *ir.AddrOf:
		if len(v.FieldPath) == 0 {
			e.line("%s = getelementptr i8, ptr %%%s, i64 0", e.value(v.Result), sanitize(v.Name))
		} else {
			idx := make([]string, len(v.FieldPath))
			for j, f := range v.FieldPath {
				idx[j] = fmt.Sprintf("i32 %d", f)
			}
			e.line("%s = getelementptr inbounds i8, ptr %%%s, %s",
				e.value(v.Result), sanitize(v.Name), strings.Join(idx, ", "))
		}
	case *ir.Alloc:
		e.line("%s = call ptr @%s(ptr %%%s, %s %s)",
			e.value(v.Result), sanitize("cursive.runtime.region.alloc"),
			sanitize(v.Region), e.llType(v.Elem), e.value(v.Value))
	case *ir.If:
		lbls := e.labels("then", "else", "endif")
		t, f, done := lbls[0], lbls[1], lbls[2]
		elseTarget := f
		if v.Else == nil {
			elseTarget = done
		}
		e.line("br i1 %s, label %%%s, label %%%s", e.value(v.Cond), t, elseTarget)
		e.label(t)
		e.instr(v.Then, ret)
		e.line("br label %%%s", done)
		if v.Else != nil {
			e.label(f)
			e.instr(v.Else, ret)
			e.line("br label %%%s", done)
		}
		e.label(done)
	case *ir.Loop:
		lbls := e.labels("loop.head", "loop.body", "loop.end")
		head, body, done := lbls[0], lbls[1], lbls[2]
		e.line("br label %%%s", head)
		e.label(head)
		if v.Cond != nil {
			e.instr(v.Cond, ret)
			e.line("br i1 %s, label %%%s, label %%%s", e.value(v.CondValue), body, done)
		} else {
			e.line("br label %%%s", body)
		}
		e.label(body)
		e.instr(v.Body, ret)
		e.line("br label %%%s", head)
		e.label(done)
	case *ir.Block:
		for _, s := range v.Setup {
			e.instr(s, ret)
		}
		e.instr(v.Body, ret)
	case *ir.Match:
		done := e.labels("match.end")[0]
		var defaultLabel string
		cases := make([]string, 0, len(v.Arms))
		labels := make([]string, len(v.Arms))
		for idx, arm := range v.Arms {
			labels[idx] = fmt.Sprintf("match.arm%d.%d", e.tmpN, idx)
			if arm.Disc < 0 {
				defaultLabel = labels[idx]
				continue
			}
			cases = append(cases, fmt.Sprintf("i64 %d, label %%%s", arm.Disc, labels[idx]))
		}
		if defaultLabel == "" {
			defaultLabel = done
		}
		e.line("switch i64 %s, label %%%s [ %s ]", e.value(v.Scrutinee), defaultLabel, strings.Join(cases, " "))
		for idx, arm := range v.Arms {
			e.label(labels[idx])
			e.instr(arm.Body, ret)
			e.line("br label %%%s", done)
		}
		e.label(done)
	case *ir.Call:
		e.call(v.Callee, v.Args, v.Result)
	case *ir.CallVTable:
		slotPtr := e.fresh()
		fnPtr := e.fresh()
		e.line("%s = getelementptr inbounds ptr, ptr %s, i64 %d", slotPtr, e.value(v.Recv), 3+v.Slot)
		e.line("%s = load ptr, ptr %s", fnPtr, slotPtr)
		args := make([]string, 0, len(v.Args)+1)
		args = append(args, "ptr "+e.value(v.Recv))
		for _, a := range v.Args {
			args = append(args, "ptr "+e.value(a))
		}
		if v.Result != nil {
			e.line("%s = call ptr %s(%s)", e.value(*v.Result), fnPtr, strings.Join(args, ", "))
		} else {
			e.line("call void %s(%s)", fnPtr, strings.Join(args, ", "))
		}
	case *ir.ReadPath:
		e.line("%s = load %s, ptr @%s", e.value(v.Result), e.llType(v.Result.Type), sanitize(v.Symbol))
	case *ir.StoreGlobal:
		e.line("store %s, ptr @%s", e.typedValue(v.Value), sanitize(v.Symbol))
	case *ir.Phi:
		vals := make([]string, len(v.Incoming))
		for j, x := range v.Incoming {
			vals[j] = e.value(x)
		}
		e.line("%s = phi %s ; %s", e.value(v.Result), e.llType(v.Result.Type), strings.Join(vals, ", "))
	case *ir.Branch:
		switch v.Kind {
		case ir.BranchReturn:
			if v.Value == nil || ret == "void" {
				e.line("ret void")
			} else {
				e.line("ret %s %s", ret, e.value(v.Value))
			}
		case ir.BranchBreak:
			e.line("br label %%loop.end ; break")
		case ir.BranchContinue:
			e.line("br label %%loop.head ; continue")
		}
	case *ir.Frame:
		e.line("%s = call ptr @%s(i64 %d, i64 %d)",
			e.value(v.Result), sanitize("cursive.runtime.heap.alloc"), v.Size, v.Align)
	case *ir.Region:
		e.line("%%%s = call ptr @%s()", sanitize(v.Owner), sanitize("cursive.runtime.region.create"))
		e.instr(v.Body, ret)
		e.line("call void @%s(ptr %%%s)", sanitize("cursive.runtime.region.destroy"), sanitize(v.Owner))
	case *ir.MoveState:
		e.line("; move-out %s", v.Place)
	case *ir.CheckPoison:
		e.line("call void @%s(ptr @%s)", sanitize("cursive.runtime.poison.check"), sanitize("poison."+lower.Mangle(v.Module)))
	case *ir.ClearPanic:
		e.line("store i64 0, ptr %%__panic")
	case *ir.PanicCheck:
		flag := e.fresh()
		ls := e.labels("panic.cont", "panic.prop")
		cont, prop := ls[0], ls[1]
		e.line("%s = load i64, ptr %%__panic", flag)
		cmp := e.fresh()
		e.line("%s = icmp eq i64 %s, 0", cmp, flag)
		e.line("br i1 %s, label %%%s, label %%%s", cmp, cont, prop)
		e.label(prop)
		if v.Cleanup != nil {
			e.instr(v.Cleanup, ret)
		}
		if ret == "void" {
			e.line("ret void")
		} else {
			e.line("ret %s undef", ret)
		}
		e.label(cont)
	case *ir.LowerPanic:
		if v.Cleanup != nil {
			e.instr(v.Cleanup, ret)
		}
		e.line("call void @%s(ptr %s)", sanitize("cursive.runtime.panic"), e.value(ir.StrImmediate{Text: v.Reason}))
		e.line("unreachable")
	case *ir.InitPanicHandle:
		e.line("; init panic handle for %s", v.Module)
	case *ir.Opaque:
		e.line("; opaque: %s", v.Note)
	}
}

func storeParts(i ir.Instr) (string, ir.Value) {
	switch v := i.(type) {
	case *ir.StoreVar:
		return v.Name, v.Value
	case *ir.StoreVarNoDrop:
		return v.Name, v.Value
	}
	return "", nil
}

// typedValue renders "ty value" for stores and calls; the i64 fallback
// covers symbols and opaque operands whose type the IR does not carry.
func (e *emitter) typedValue(v ir.Value) string {
	switch x := v.(type) {
	case ir.Local:
		return e.llType(x.Type) + " " + e.value(v)
	case ir.Immediate:
		return e.llType(x.Type) + " " + e.value(v)
	case nil:
		return "i64 0"
	default:
		return "i64 " + e.value(v)
	}
}

func (e *emitter) call(callee ir.Value, args []ir.Value, res *ir.Local) {
	strs := make([]string, len(args))
	for i, a := range args {
		ty := "i64"
		if loc, ok := a.(ir.Local); ok {
			ty = e.llType(loc.Type)
		}
		strs[i] = ty + " " + e.value(a)
	}
	if res != nil {
		e.line("%s = call %s %s(%s)", e.value(*res), e.llType(res.Type), e.value(callee), strings.Join(strs, ", "))
	} else {
		e.line("call void %s(%s)", e.value(callee), strings.Join(strs, ", "))
	}
}

func (e *emitter) labels(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		e.tmpN++
		out[i] = fmt.Sprintf("%s.%d", n, e.tmpN)
	}
	return out
}

func (e *emitter) label(name string) {
	fmt.Fprintf(&e.b, "%s:\n", name)
}

// sanitize maps mangled names onto LLVM-safe identifiers.
func sanitize(name string) string {
	r := strings.NewReplacer("::", ".", " ", "_", "$", ".")
	return r.Replace(name)
}

func llEscape(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "\\%02X", c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
