package ir

import (
	"fmt"
	"strings"

	"cursive0/internal/types"
)

// Print renders a module as an indented textual dump, stable across runs,
// used by golden snapshots and phase debugging.
func Print(in *types.Interner, m *Module) string {
	p := &printer{in: in}
	fmt.Fprintf(&p.b, "module %s\n", m.PathKey)
	for _, d := range m.Decls {
		p.decl(d)
	}
	return p.b.String()
}

type printer struct {
	in     *types.Interner
	b      strings.Builder
	indent int
}

func (p *printer) line(format string, args ...any) {
	p.b.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) ty(id types.TypeID) string { return types.Format(p.in, id) }

func (p *printer) decl(d Decl) {
	switch v := d.(type) {
	case *Proc:
		params := make([]string, len(v.Params))
		for i, prm := range v.Params {
			params[i] = fmt.Sprintf("%s: %s %s", prm.Name, p.ty(prm.Type), prm.Pass)
		}
		panicNote := ""
		if v.HasPanicParam {
			panicNote = " +panic"
		}
		p.line("proc %s(%s) -> %s %s%s {", v.Symbol, strings.Join(params, ", "), p.ty(v.Ret), v.RetABI, panicNote)
		p.indent++
		p.instr(v.Body)
		p.indent--
		p.line("}")
	case *ExternProc:
		params := make([]string, len(v.Params))
		for i, prm := range v.Params {
			params[i] = p.ty(prm.Type)
		}
		note := ""
		if v.Nounwind {
			note = " nounwind"
		}
		p.line("extern %s(%s) -> %s%s", v.Symbol, strings.Join(params, ", "), p.ty(v.Ret), note)
	case *GlobalConst:
		p.line("const %s: %s = %s", v.Symbol, p.ty(v.Type), p.value(v.Init))
	case *GlobalZero:
		p.line("zero %s: %s", v.Symbol, p.ty(v.Type))
	case *GlobalVTable:
		p.line("vtable %s (class %s, impl %s, size %d, align %d, drop %s, slots [%s])",
			v.Symbol, v.ClassPath, v.ImplPath, v.Size, v.Align, v.DropSymbol,
			strings.Join(v.MethodSymbols, ", "))
	}
}

func (p *printer) value(v Value) string {
	switch x := v.(type) {
	case nil:
		return "()"
	case Local:
		return "%" + x.Name
	case Symbol:
		return "@" + x.Name
	case Immediate:
		return fmt.Sprintf("imm(%x: %s)", x.Bytes, p.ty(x.Type))
	case StrImmediate:
		return fmt.Sprintf("str(%q)", x.Text)
	case OpaqueValue:
		return "opaque(" + x.Note + ")"
	default:
		return "?"
	}
}

func (p *printer) instr(i Instr) {
	switch v := i.(type) {
	case nil:
	case *Seq:
		for _, it := range v.Items {
			p.instr(it)
		}
	case *BindVar:
		p.line("bind %%%s: %s = %s", v.Name, p.ty(v.Type), p.value(v.Value))
	case *StoreVar:
		p.line("store %%%s = %s", v.Name, p.value(v.Value))
	case *StoreVarNoDrop:
		p.line("store.nodrop %%%s = %s", v.Name, p.value(v.Value))
	case *ReadVar:
		p.line("%s = read %%%s", p.value(v.Result), v.Name)
	case *ReadPtr:
		p.line("%s = load %s: %s", p.value(v.Result), p.value(v.Ptr), p.ty(v.Elem))
	case *WritePtr:
		p.line("store-ptr %s = %s", p.value(v.Ptr), p.value(v.Value))
	case *AddrOf:
		p.line("%s = addr %%%s%v", p.value(v.Result), v.Name, v.FieldPath)
	case *Alloc:
		p.line("%s = alloc in %%%s, %s: %s", p.value(v.Result), v.Region, p.value(v.Value), p.ty(v.Elem))
	case *If:
		p.line("if %s {", p.value(v.Cond))
		p.indent++
		p.instr(v.Then)
		p.indent--
		if v.Else != nil {
			p.line("} else {")
			p.indent++
			p.instr(v.Else)
			p.indent--
		}
		if v.Result != nil {
			p.line("} -> %s", p.value(*v.Result))
		} else {
			p.line("}")
		}
	case *Loop:
		p.line("loop(%d) {", v.Kind)
		p.indent++
		if v.Cond != nil {
			p.line("cond:")
			p.indent++
			p.instr(v.Cond)
			p.indent--
		}
		p.instr(v.Body)
		p.indent--
		p.line("}")
	case *Block:
		p.line("block {")
		p.indent++
		for _, s := range v.Setup {
			p.instr(s)
		}
		p.instr(v.Body)
		p.indent--
		p.line("} -> %s", p.value(v.Value))
	case *Match:
		p.line("match %s: %s {", p.value(v.Scrutinee), p.ty(v.ScrutType))
		p.indent++
		for _, arm := range v.Arms {
			p.line("arm %d binds %v:", arm.Disc, arm.Bindings)
			p.indent++
			p.instr(arm.Body)
			p.indent--
		}
		p.indent--
		if v.Result != nil {
			p.line("} -> %s", p.value(*v.Result))
		} else {
			p.line("}")
		}
	case *Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = p.value(a)
		}
		if v.Result != nil {
			p.line("%s = call %s(%s)", p.value(*v.Result), p.value(v.Callee), strings.Join(args, ", "))
		} else {
			p.line("call %s(%s)", p.value(v.Callee), strings.Join(args, ", "))
		}
	case *CallVTable:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = p.value(a)
		}
		if v.Result != nil {
			p.line("%s = call-vtable %s[%d](%s)", p.value(*v.Result), p.value(v.Recv), v.Slot, strings.Join(args, ", "))
		} else {
			p.line("call-vtable %s[%d](%s)", p.value(v.Recv), v.Slot, strings.Join(args, ", "))
		}
	case *ReadPath:
		p.line("%s = read-path @%s", p.value(v.Result), v.Symbol)
	case *StoreGlobal:
		p.line("store-global @%s = %s", v.Symbol, p.value(v.Value))
	case *Phi:
		vals := make([]string, len(v.Incoming))
		for i, x := range v.Incoming {
			vals[i] = p.value(x)
		}
		p.line("%s = phi [%s]", p.value(v.Result), strings.Join(vals, ", "))
	case *Branch:
		switch v.Kind {
		case BranchBreak:
			p.line("break")
		case BranchContinue:
			p.line("continue")
		default:
			p.line("return %s", p.value(v.Value))
		}
	case *Frame:
		p.line("%s = frame(size %d, align %d, slots %d)", p.value(v.Result), v.Size, v.Align, len(v.Slots))
	case *Region:
		p.line("region %%%s {", v.Owner)
		p.indent++
		p.instr(v.Body)
		p.indent--
		p.line("} -> %s", p.value(v.Value))
	case *MoveState:
		p.line("move-state %%%s", v.Place)
	case *CheckPoison:
		p.line("check-poison %s", v.Module)
	case *ClearPanic:
		p.line("clear-panic")
	case *PanicCheck:
		p.line("panic-check")
		if v.Cleanup != nil {
			p.indent++
			p.instr(v.Cleanup)
			p.indent--
		}
	case *LowerPanic:
		p.line("panic %q", v.Reason)
	case *InitPanicHandle:
		p.line("init-panic-handle %s poisons=%v", v.Module, v.PoisonModules)
	case *Opaque:
		p.line("opaque(%s)", v.Note)
	}
}
