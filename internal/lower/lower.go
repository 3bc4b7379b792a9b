// Package lower implements P4: a tree walk over the typed AST that
// produces IR declarations plus the lower context the backend needs —
// drop-glue symbols, procedure signatures, synthesized procedures, and
// the ABI decision for every call boundary.
package lower

import (
	"fmt"
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/ir"
	"cursive0/internal/layout"
	"cursive0/internal/sema"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// Ctx is the lower context handed to the backend alongside the IR: the
// entry symbol, synthesized procedures, the drop-glue map, and every
// procedure's signature and ABI.
type Ctx struct {
	MainSymbol string
	// Extra carries synthesized procedures (drop glue, async resume
	// shims) emitted outside any source module.
	Extra []ir.Decl
	// DropGlue maps a type to its glue symbol; only non-Bitcopy types
	// appear.
	DropGlue map[types.TypeID]string
	// Sigs maps a procedure symbol to its lowered ABI.
	Sigs map[string]ProcABI
	// VTables lists every materialized (class, impl) v-table.
	VTables []*ir.GlobalVTable
	// Runtime is the set of runtime-archive symbols referenced; the
	// link step resolves them against the fixed whitelist.
	Runtime map[string]bool
}

// ProcABI pairs the checker signature with the ABI decision.
type ProcABI struct {
	Sig *sema.ProcSig
	ABI layout.CallABI
}

// Lower runs P4 over every module.
func Lower(table *symbols.Table, typed *sema.Typed, in *types.Interner) ([]*ir.Module, *Ctx, []diag.Diagnostic) {
	lc := &lowerer{
		table: table,
		typed: typed,
		types: in,
		eng:   typed.Layout,
		ctx: &Ctx{
			DropGlue: make(map[types.TypeID]string),
			Sigs:     make(map[string]ProcABI),
			Runtime:  make(map[string]bool),
		},
	}
	var mods []*ir.Module
	for _, m := range table.Modules {
		mods = append(mods, lc.lowerModule(m))
	}
	lc.emitVTables()
	return mods, lc.ctx, lc.diags
}

type lowerer struct {
	table *symbols.Table
	typed *sema.Typed
	types *types.Interner
	eng   *layout.Engine
	ctx   *Ctx
	diags []diag.Diagnostic

	module string
	tmpN   int
	// inAsync records whether the procedure being lowered is async.
	inAsync bool
}

// Mangle converts a "::" path key into a linker-safe symbol.
func Mangle(pathKey string) string {
	return strings.ReplaceAll(pathKey, "::", ".")
}

// MangleType produces the stable type suffix used by drop-glue symbols.
func MangleType(in *types.Interner, id types.TypeID) string {
	name := types.Format(in, id)
	r := strings.NewReplacer(
		"::", ".", "<", "_", ">", "_", " ", "", ",", "_",
		"(", "t", ")", "t", "[", "a", "]", "a", "*", "p", "@", "s", "|", "u", "!", "n",
	)
	return r.Replace(name)
}

func (l *lowerer) fresh() string {
	l.tmpN++
	return fmt.Sprintf("t%d", l.tmpN)
}

func (l *lowerer) local(t types.TypeID) ir.Local {
	return ir.Local{Name: l.fresh(), Type: t}
}

func (l *lowerer) tau(e ast.Expr) types.TypeID {
	if t, ok := l.typed.Tau[e]; ok {
		return t
	}
	return types.NoType
}

func (l *lowerer) runtimeSym(name string) ir.Symbol {
	l.ctx.Runtime[name] = true
	return ir.Symbol{Name: name}
}

func (l *lowerer) lowerModule(m *ast.Module) *ir.Module {
	l.module = m.PathKey
	out := &ir.Module{PathKey: m.PathKey}
	for _, f := range m.Files {
		for _, item := range f.Items {
			switch it := item.(type) {
			case *ast.ProcedureDecl:
				if d := l.lowerProc(it, ""); d != nil {
					out.Decls = append(out.Decls, d)
				}
			case *ast.RecordDecl:
				for _, method := range it.Methods {
					if d := l.lowerProc(method, it.Name.Name); d != nil {
						out.Decls = append(out.Decls, d)
					}
				}
			case *ast.ModalDecl:
				for si := range it.States {
					st := &it.States[si]
					for _, method := range st.Methods {
						if d := l.lowerProc(method, it.Name.Name+"."+st.Name.Name); d != nil {
							out.Decls = append(out.Decls, d)
						}
					}
				}
			case *ast.StaticDecl:
				out.Decls = append(out.Decls, l.lowerStatic(it))
			case *ast.ExternBlock:
				for _, p := range it.Procs {
					out.Decls = append(out.Decls, l.lowerExtern(p))
				}
			}
		}
	}
	return out
}

func (l *lowerer) lowerStatic(st *ast.StaticDecl) ir.Decl {
	sym := Mangle(l.module + "::" + st.Name.Name)
	t := l.typed.Statics[st]
	if st.Value != nil {
		if v, ok := l.constValue(st.Value, t); ok {
			return &ir.GlobalConst{Symbol: sym, Type: t, Init: v}
		}
	}
	return &ir.GlobalZero{Symbol: sym, Type: t}
}

func (l *lowerer) lowerExtern(p *ast.ProcedureDecl) ir.Decl {
	sig := l.typed.Sigs[p]
	ep := &ir.ExternProc{Symbol: p.Name.Name, Ret: sig.Ret, Nounwind: true}
	for _, prm := range sig.Params {
		ep.Params = append(ep.Params, ir.Param{
			Name: prm.Name, Type: prm.Type,
			Pass: l.eng.ABIParam(passMode(prm.Mode), prm.Type),
		})
	}
	l.registerSig(p.Name.Name, sig)
	return ep
}

func passMode(m sema.ParamMode) layout.ParamPassMode {
	if m == sema.ModeMove {
		return layout.PassMove
	}
	return layout.PassBorrow
}

func (l *lowerer) registerSig(symbol string, sig *sema.ProcSig) layout.CallABI {
	params := make([]types.TypeID, len(sig.Params))
	modes := make([]layout.ParamPassMode, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = p.Type
		modes[i] = passMode(p.Mode)
	}
	abi := l.eng.ABIOf(params, modes, sig.Ret)
	l.ctx.Sigs[symbol] = ProcABI{Sig: sig, ABI: abi}
	return abi
}

// lowerProc lowers one procedure body. Every user procedure except main
// receives a trailing __panic out-parameter; the entry point and runtime
// symbols are exempt.
func (l *lowerer) lowerProc(p *ast.ProcedureDecl, recvScope string) ir.Decl {
	if p.Body == nil {
		return nil
	}
	sig := l.typed.Sigs[p]
	symbol := Mangle(l.module + "::" + p.Name.Name)
	if recvScope != "" {
		symbol = Mangle(l.module) + "." + recvScope + "." + p.Name.Name
	}
	isMain := p.Name.Name == "main" && recvScope == ""
	if isMain {
		l.ctx.MainSymbol = symbol
	}

	l.tmpN = 0
	l.inAsync = sig.IsAsync

	abi := l.registerSig(symbol, sig)
	proc := &ir.Proc{
		Symbol:        symbol,
		Ret:           sig.Ret,
		RetABI:        abi.Ret,
		HasPanicParam: !isMain,
		Span:          p.Span,
	}
	if sig.Receiver != types.NoType {
		proc.Params = append(proc.Params, ir.Param{Name: "self", Type: sig.Receiver, Pass: layout.ByRef})
	}
	for i, prm := range sig.Params {
		proc.Params = append(proc.Params, ir.Param{Name: prm.Name, Type: prm.Type, Pass: abi.Params[i]})
	}

	bodyInstr, bodyVal := l.lowerBlock(p.Body, sig.Ret)
	init := []ir.Instr{}
	if isMain {
		init = append(init, &ir.InitPanicHandle{Base: ir.At(p.Span), Module: l.module})
	}
	ret := &ir.Branch{Base: ir.At(p.Span), Kind: ir.BranchReturn, Value: bodyVal}
	proc.Body = ir.NewSeq(p.Span, append(append(init, bodyInstr), ret)...)

	if sig.IsAsync {
		l.synthesizeAsync(proc, sig, p)
	}
	l.ensureDropGlue(sig.Ret)
	return proc
}

// ensureDropGlue synthesizes drop glue for a non-Bitcopy type the first
// time it is seen, descending through fields so nested glue exists before
// its parent references it.
func (l *lowerer) ensureDropGlue(id types.TypeID) string {
	base, _ := l.types.Unwrap(id)
	if base == types.NoType || l.isBitcopy(base) {
		return ""
	}
	if sym, ok := l.ctx.DropGlue[base]; ok {
		return sym
	}
	sym := "drop_glue_" + MangleType(l.types, base)
	l.ctx.DropGlue[base] = sym

	span := source.NoSpan
	var body []ir.Instr
	t := l.types.Get(base)
	switch t.Kind {
	case types.KindPathType:
		if rec, ok := l.eng.Records[t.Path]; ok {
			for i, f := range rec.Fields {
				if nested := l.ensureDropGlue(f); nested != "" {
					body = append(body, &ir.Call{
						Base:   ir.At(span),
						Callee: ir.Symbol{Name: nested},
						Args:   []ir.Value{ir.OpaqueValue{Note: fmt.Sprintf("field %d addr", i)}},
					})
				}
			}
		}
	case types.KindString, types.KindBytes:
		if t.Repr != types.StringView {
			body = append(body, &ir.Call{
				Base:   ir.At(span),
				Callee: l.runtimeSym("cursive::runtime::heap::free"),
				Args:   []ir.Value{ir.OpaqueValue{Note: "managed buffer"}},
			})
		}
	case types.KindTuple, types.KindUnion:
		for _, m := range t.Elems {
			l.ensureDropGlue(m)
		}
	}

	glue := &ir.Proc{
		Symbol: sym,
		Params: []ir.Param{
			{Name: "data", Type: l.types.RawPtr(types.RawImm, l.types.PrimT(types.PrimUnit)), Pass: layout.ByValue},
			{Name: "__panic", Type: l.panicPtrType(), Pass: layout.ByValue},
		},
		Ret:    l.types.PrimT(types.PrimUnit),
		RetABI: layout.ByValue,
		Body:   ir.NewSeq(span, append(body, &ir.Branch{Base: ir.At(span), Kind: ir.BranchReturn})...),
	}
	l.ctx.Extra = append(l.ctx.Extra, glue)
	return sym
}

func (l *lowerer) panicPtrType() types.TypeID {
	return l.types.RawPtr(types.RawMut, l.types.PathType(symbols.BuiltinModule+"::PanicRecord"))
}

func (l *lowerer) isBitcopy(id types.TypeID) bool {
	return types.IsBitcopy(l.types, id, func(path string) bool {
		if rec, ok := l.eng.Records[path]; ok {
			return rec.Bitcopy
		}
		return false
	})
}

// emitVTables materializes one GlobalVTable per (class, implementing
// record) pair recorded in Σ.
func (l *lowerer) emitVTables() {
	for _, m := range l.table.Modules {
		for _, f := range m.Files {
			for _, item := range f.Items {
				rec, ok := item.(*ast.RecordDecl)
				if !ok {
					continue
				}
				implPath := m.PathKey + "::" + rec.Name.Name
				implT := l.types.PathType(implPath)
				for _, clsRef := range rec.Classes {
					clsName := clsRef.Last().Name
					if clsName == "Bitcopy" {
						continue
					}
					slots := l.classSlots(m.PathKey, clsName)
					if slots == nil {
						continue
					}
					lyt, err := l.eng.Of(implT)
					if err != nil {
						continue
					}
					methods := make([]string, len(slots))
					for i, s := range slots {
						methods[i] = Mangle(m.PathKey) + "." + rec.Name.Name + "." + s
					}
					vt := &ir.GlobalVTable{
						Symbol:        "vtable." + Mangle(implPath) + "." + clsName,
						ClassPath:     clsName,
						ImplPath:      implPath,
						Size:          lyt.Size,
						Align:         lyt.Align,
						DropSymbol:    l.ensureDropGlue(implT),
						MethodSymbols: methods,
					}
					l.ctx.VTables = append(l.ctx.VTables, vt)
				}
			}
		}
	}
}

func (l *lowerer) classSlots(fromModule, clsName string) []string {
	scope := l.table.Scope(fromModule)
	var d *symbols.Decl
	if v, ok := scope.Classes[clsName]; ok {
		d = v
	} else if v, ok := scope.Imported[clsName]; ok {
		d = v
	}
	if d == nil {
		return nil
	}
	return l.typed.VTableSlots[d.PathKey]
}
