package lower_test

import (
	"strings"
	"testing"

	"cursive0/internal/ir"
	"cursive0/internal/lower"
	"cursive0/internal/testkit"
)

func lowerProgram(t *testing.T, src string) ([]*ir.Module, *lower.Ctx, *testkit.CheckResult) {
	t.Helper()
	r := testkit.CheckProgram(t, src)
	if r.Stream.HasError() {
		t.Fatalf("program must check before lowering: %v", r.ErrorCodes())
	}
	mods, ctx, diags := lower.Lower(r.Table, r.Typed, r.Interner)
	if len(diags) > 0 {
		t.Fatalf("unexpected lowering diagnostics: %v", diags)
	}
	return mods, ctx, r
}

func findProc(mods []*ir.Module, ctx *lower.Ctx, symbol string) *ir.Proc {
	for _, m := range mods {
		for _, d := range m.Decls {
			if p, ok := d.(*ir.Proc); ok && p.Symbol == symbol {
				return p
			}
		}
	}
	for _, d := range ctx.Extra {
		if p, ok := d.(*ir.Proc); ok && p.Symbol == symbol {
			return p
		}
	}
	return nil
}

func TestMainHasNoPanicParam(t *testing.T) {
	mods, ctx, _ := lowerProgram(t, "procedure main() -> i32 { 0 }\nprocedure helper() -> i32 { 1 }")
	if ctx.MainSymbol != "app.main" {
		t.Fatalf("main symbol %q", ctx.MainSymbol)
	}
	mainProc := findProc(mods, ctx, "app.main")
	if mainProc == nil || mainProc.HasPanicParam {
		t.Fatalf("main must not carry the __panic parameter")
	}
	helper := findProc(mods, ctx, "app.helper")
	if helper == nil || !helper.HasPanicParam {
		t.Fatalf("user procedures must carry the __panic parameter")
	}
}

func TestCallSitePanicPlumbing(t *testing.T) {
	mods, ctx, _ := lowerProgram(t, `procedure callee() -> i32 { 1 }
procedure main() -> i32 { callee() }`)
	mainProc := findProc(mods, ctx, "app.main")
	var sawClear, sawCheck bool
	var walk func(i ir.Instr)
	walk = func(i ir.Instr) {
		switch v := i.(type) {
		case *ir.Seq:
			for _, it := range v.Items {
				walk(it)
			}
		case *ir.ClearPanic:
			sawClear = true
		case *ir.PanicCheck:
			sawCheck = true
		}
	}
	walk(mainProc.Body)
	if !sawClear || !sawCheck {
		t.Fatalf("call must be bracketed by ClearPanic/PanicCheck (clear=%v check=%v)", sawClear, sawCheck)
	}
}

func TestDropGlueSynthesizedForNonBitcopy(t *testing.T) {
	_, ctx, r := lowerProgram(t, `record Buf { data: string, }
procedure main() -> i32 {
    let b = Buf { data: "x" };
    0
}`)
	found := false
	for id, sym := range ctx.DropGlue {
		_ = id
		if strings.HasPrefix(sym, "drop_glue_") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected drop glue for the non-Bitcopy record; map: %v", ctx.DropGlue)
	}
	_ = r
}

func TestBitcopyHasNoDropGlue(t *testing.T) {
	_, ctx, _ := lowerProgram(t, `record P: Bitcopy { x: i32, }
procedure main() -> i32 {
    let p = P { x: 1 };
    p.x
}`)
	for id := range ctx.DropGlue {
		_ = id
		t.Fatalf("Bitcopy-only program must synthesize no drop glue: %v", ctx.DropGlue)
	}
}

func TestVTableEmitted(t *testing.T) {
	_, ctx, _ := lowerProgram(t, `class Drawable { procedure draw(const self); }
record Dot: Drawable {
    x: i32,
    procedure draw(const self) { }
}
procedure main() -> i32 { 0 }`)
	if len(ctx.VTables) != 1 {
		t.Fatalf("expected one v-table, got %d", len(ctx.VTables))
	}
	vt := ctx.VTables[0]
	if vt.ImplPath != "app::Dot" || len(vt.MethodSymbols) != 1 {
		t.Fatalf("malformed v-table: %+v", vt)
	}
	if !strings.HasSuffix(vt.MethodSymbols[0], "Dot.draw") {
		t.Fatalf("method slot symbol %q", vt.MethodSymbols[0])
	}
}

func TestAsyncCompanionsSynthesized(t *testing.T) {
	_, ctx, _ := lowerProgram(t, `enum E { X, }
procedure main() -> i32 { 0 }
procedure work(n: i32) -> Future<i32, E> { yield release; 0 }`)
	if findProc(nil, ctx, "app.work$spawn") == nil {
		t.Fatalf("spawn-site creator not synthesized")
	}
	if findProc(nil, ctx, "app.work$resume") == nil {
		t.Fatalf("resume entry not synthesized")
	}
}
