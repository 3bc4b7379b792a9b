package lower

import (
	"fmt"

	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/layout"
	"cursive0/internal/sema"
	"cursive0/internal/source"
	"cursive0/internal/types"
)

// frameHeaderSize is the fixed async frame prefix:
// (resume_state: u64, resume_fn: *const ()).
const frameHeaderSize = 16

// synthesizeAsync builds the two companions of an async procedure: a
// spawn-site creator that allocates the frame and stores captures, and a
// resume entry that switches on the resume-state word.
func (l *lowerer) synthesizeAsync(proc *ir.Proc, sig *sema.ProcSig, p *ast.ProcedureDecl) {
	span := p.Span

	// Frame layout: header, then one slot per parameter in declaration
	// order, each at the previous end rounded up to the slot's align.
	slots := make(map[string]uint64)
	offset := uint64(frameHeaderSize)
	align := uint64(8)
	for _, prm := range sig.Params {
		pl, err := l.eng.Of(prm.Type)
		if err != nil {
			continue
		}
		if pl.Align > align {
			align = pl.Align
		}
		offset = roundUp(offset, pl.Align)
		slots[prm.Name] = offset
		offset += pl.Size
	}
	size := roundUp(offset, align)

	frame := l.local(l.types.RawPtr(types.RawMut, l.types.PrimT(types.PrimU8)))
	creator := &ir.Proc{
		Symbol:        proc.Symbol + "$spawn",
		Params:        proc.Params,
		Ret:           l.types.PathType("cursive::Spawned", sig.Ret),
		RetABI:        layout.ByValue,
		HasPanicParam: true,
		Span:          span,
		Body: ir.NewSeq(span,
			&ir.Frame{Base: ir.At(span), Size: size, Align: align, Slots: slots, Result: frame},
			l.storeCaptures(span, frame, sig, slots),
			&ir.Call{Base: ir.At(span),
				Callee: l.runtimeSym("cursive::runtime::task::create"),
				Args:   []ir.Value{frame, ir.Symbol{Name: proc.Symbol + "$resume"}}},
			&ir.Branch{Base: ir.At(span), Kind: ir.BranchReturn, Value: frame},
		),
	}

	// The resume entry reloads captures from the frame and dispatches on
	// the resume-state word. State 0 enters the body; the backend
	// materializes one block per suspension point.
	state := l.local(l.types.PrimT(types.PrimU64))
	resume := &ir.Proc{
		Symbol: proc.Symbol + "$resume",
		Params: []ir.Param{
			{Name: "frame", Type: l.types.RawPtr(types.RawMut, l.types.PrimT(types.PrimU8)), Pass: layout.ByValue},
			{Name: "__panic", Type: l.panicPtrType(), Pass: layout.ByValue},
		},
		Ret:    l.types.PrimT(types.PrimU64),
		RetABI: layout.ByValue,
		Span:   span,
		Body: ir.NewSeq(span,
			&ir.ReadPtr{Base: ir.At(span), Ptr: ir.Local{Name: "frame"}, Elem: l.types.PrimT(types.PrimU64), Result: state},
			&ir.Match{
				Base:      ir.At(span),
				Scrutinee: state,
				ScrutType: l.types.PrimT(types.PrimU64),
				Arms: []ir.MatchArmIR{
					{Disc: 0, Body: &ir.Opaque{Base: ir.At(span), Note: "initial entry -> " + proc.Symbol}},
					{Disc: -1, Body: &ir.LowerPanic{Base: ir.At(span), Reason: "resumed a completed async"}},
				},
			},
			&ir.Branch{Base: ir.At(span), Kind: ir.BranchReturn,
				Value: ir.Immediate{Bytes: make([]byte, 8), Type: l.types.PrimT(types.PrimU64)}},
		),
	}

	l.ctx.Extra = append(l.ctx.Extra, creator, resume)
}

func (l *lowerer) storeCaptures(span source.Span, frame ir.Local, sig *sema.ProcSig, slots map[string]uint64) ir.Instr {
	var items []ir.Instr
	for _, prm := range sig.Params {
		off, ok := slots[prm.Name]
		if !ok {
			continue
		}
		src := l.local(prm.Type)
		items = append(items,
			&ir.ReadVar{Base: ir.At(span), Name: prm.Name, Result: src},
			&ir.Call{Base: ir.At(span),
				Callee: ir.Symbol{Name: "llvm.frame.store"},
				Args:   []ir.Value{frame, l.intImmediate(fmt.Sprint(off), l.types.PrimT(types.PrimU64)), src}})
	}
	return ir.NewSeq(span, items...)
}

func roundUp(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// lowerSpawn outlines the spawned block into a fresh procedure and calls
// the task-creation runtime entry with it.
func (l *lowerer) lowerSpawn(x *ast.SpawnExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	bi, bv := l.lowerBlock(x.Body, types.NoType)
	armSym := l.outlineArmWithValue(bi, bv, x.Body.Span)
	res := l.local(t)
	call := l.runtimeCall(span, "cursive::runtime::task::spawn",
		[]ir.Value{ir.Symbol{Name: armSym}}, &res)
	return call, res
}

func (l *lowerer) lowerRace(x *ast.RaceExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	var items []ir.Instr
	var sources []ir.Value
	for _, arm := range x.Arms {
		si, sv := l.lowerExpr(arm.Source)
		items = append(items, si)
		sources = append(sources, sv)
	}
	winner := l.local(l.types.PrimT(types.PrimU64))
	items = append(items, l.runtimeCall(span, "cursive::runtime::task::race", sources, &winner))

	// Handlers dispatch on the winning index; losers receive
	// cancellation inside the runtime.
	var res *ir.Local
	if !l.isUnit(t) {
		r := l.local(t)
		res = &r
	}
	node := &ir.Match{Base: ir.At(span), Scrutinee: winner, ScrutType: l.types.PrimT(types.PrimU64), Result: res}
	for i, arm := range x.Arms {
		hi, hv := l.lowerExpr(arm.Handler)
		body := ir.NewSeq(arm.Span,
			&ir.BindVar{Base: ir.At(arm.Span), Name: arm.Binding.Name,
				Type: l.tau(arm.Handler), Value: ir.OpaqueValue{Note: "winning arm value"}},
			hi)
		if res != nil && hv != nil {
			body = ir.NewSeq(arm.Span, body, &ir.StoreVarNoDrop{Base: ir.At(arm.Span), Name: res.Name, Value: hv})
		}
		node.Arms = append(node.Arms, ir.MatchArmIR{Disc: i, Bindings: []string{arm.Binding.Name}, Body: body})
	}
	items = append(items, node)
	if res != nil {
		return ir.NewSeq(span, items...), *res
	}
	return ir.NewSeq(span, items...), nil
}

func (l *lowerer) lowerAll(x *ast.AllExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	var items []ir.Instr
	var sources []ir.Value
	for _, el := range x.Elems {
		si, sv := l.lowerExpr(el)
		items = append(items, si)
		sources = append(sources, sv)
	}
	res := l.local(t)
	items = append(items, l.runtimeCall(span, "cursive::runtime::task::all", sources, &res))
	return ir.NewSeq(span, items...), res
}

func (l *lowerer) lowerYield(x *ast.YieldExpr, e ast.Expr) (ir.Instr, ir.Value) {
	span := x.Span
	t := l.tau(e)
	var items []ir.Instr
	var val ir.Value
	if x.Value != nil {
		vi, vv := l.lowerExpr(x.Value)
		items = append(items, vi)
		val = vv
	}
	name := "cursive::runtime::task::yield"
	if x.From {
		name = "cursive::runtime::task::yield_from"
	}
	if x.Release {
		items = append(items, l.runtimeCall(span, "cursive::runtime::key::release_all", nil, nil))
	}
	var args []ir.Value
	if val != nil {
		args = append(args, val)
	}
	res := l.local(t)
	items = append(items, l.runtimeCall(span, name, args, &res))
	if x.Release {
		items = append(items, l.runtimeCall(span, "cursive::runtime::key::reacquire_all", nil, nil))
	}
	return ir.NewSeq(span, items...), res
}

// outlineArm hoists a lowered block into a synthesized zero-argument
// procedure and returns its symbol.
func (l *lowerer) outlineArm(body ir.Instr, span source.Span) string {
	return l.outlineArmWithValue(body, nil, span)
}

func (l *lowerer) outlineArmWithValue(body ir.Instr, val ir.Value, span source.Span) string {
	sym := fmt.Sprintf("%s.arm%d", Mangle(l.module), len(l.ctx.Extra))
	ret := &ir.Branch{Base: ir.At(span), Kind: ir.BranchReturn, Value: val}
	l.ctx.Extra = append(l.ctx.Extra, &ir.Proc{
		Symbol: sym,
		Params: []ir.Param{{Name: "__panic", Type: l.panicPtrType(), Pass: layout.ByValue}},
		Ret:    l.types.PrimT(types.PrimUnit),
		RetABI: layout.ByValue,
		Body:   ir.NewSeq(span, body, ret),
		Span:   span,
	})
	return sym
}
