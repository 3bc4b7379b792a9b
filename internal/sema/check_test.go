package sema_test

import (
	"testing"

	"cursive0/internal/diag"
	"cursive0/internal/testkit"
)

func TestMainAccepted(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure main() -> i32 { 0 }")
	if r.Stream.HasError() {
		t.Fatalf("unexpected errors: %v", r.ErrorCodes())
	}
}

func TestDerefNull(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure foo(p: Ptr<i32>@Null) -> i32 { *p }")
	if !r.HasCode(diag.ErrDerefNull) {
		t.Fatalf("expected E-PTR-0001 Deref-Null, got %v", r.ErrorCodes())
	}
}

func TestDerefExpired(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure foo(p: Ptr<i32>@Expired) -> i32 { *p }")
	if !r.HasCode(diag.ErrDerefExpired) {
		t.Fatalf("expected E-PTR-0002 Deref-Expired, got %v", r.ErrorCodes())
	}
}

func TestRawDerefRequiresUnsafe(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure foo(p: *imm i32) -> i32 { *p }")
	if !r.HasCode(diag.ErrUnsafeRequired) {
		t.Fatalf("expected E-UNS unsafe-required, got %v", r.ErrorCodes())
	}
	r = testkit.CheckProgram(t, "procedure foo(p: *imm i32) -> i32 { unsafe { return *p; } 0 }")
	if r.HasCode(diag.ErrUnsafeRequired) {
		t.Fatalf("unsafe block should permit raw deref, got %v", r.ErrorCodes())
	}
}

func TestParallelWriteConflict(t *testing.T) {
	src := `record D { field: i32, }
procedure f(data: unique D) {
    parallel {
        { data.field = 1; }
        { data.field = 2; }
    }
}`
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrKeyConflict) {
		t.Fatalf("expected E-KEY-0001 at the second arm, got %v", r.ErrorCodes())
	}
}

func TestParallelDisjointFieldsOK(t *testing.T) {
	src := `record D { a: i32, b: i32, }
procedure f(data: unique D) {
    parallel {
        { data.a = 1; }
        { data.b = 2; }
    }
}`
	r := testkit.CheckProgram(t, src)
	if r.HasCode(diag.ErrKeyConflict) {
		t.Fatalf("disjoint fields must not conflict, got %v", r.ErrorCodes())
	}
}

func TestExternCapabilityParamRejected(t *testing.T) {
	src := `class $FileSystem { }
extern "C" { procedure do_io(fs: $FileSystem) -> i32; }`
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrExternCapability) {
		t.Fatalf("expected E-CAP-0012, got %v", r.ErrorCodes())
	}
}

func TestCapabilityMissingAtCallSite(t *testing.T) {
	src := `class $FileSystem { }
procedure leaf(fs: $FileSystem) { }
procedure bad() { leaf(0); }`
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrCapabilityMissing) {
		t.Fatalf("expected E-CAP-0011, got %v", r.ErrorCodes())
	}
}

func TestCapabilityThreadedOK(t *testing.T) {
	src := `class $FileSystem { }
procedure leaf(fs: $FileSystem) { }
procedure mid(fs: $FileSystem) { leaf(fs); }`
	r := testkit.CheckProgram(t, src)
	if r.HasCode(diag.ErrCapabilityMissing) {
		t.Fatalf("threaded capability must be accepted, got %v", r.ErrorCodes())
	}
}

func TestBitcopyPassedTwice(t *testing.T) {
	src := `record P: Bitcopy { x: i32, }
procedure take(move p: P) { }
procedure main() -> i32 {
    let a = P { x: 1 };
    take(a);
    take(a);
    0
}`
	r := testkit.CheckProgram(t, src)
	if r.Stream.HasError() {
		t.Fatalf("Bitcopy by-value reuse must be accepted, got %v", r.ErrorCodes())
	}
}

func TestNonBitcopyValueUseRequiresMove(t *testing.T) {
	src := `record Buf { data: string@Managed, }
procedure take(move b: Buf) { }
procedure f(b: unique Buf) { take(b); }`
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrValueUseNonBitcopy) {
		t.Fatalf("expected ValueUse-NonBitcopyPlace, got %v", r.ErrorCodes())
	}
}

func TestMatchNonExhaustive(t *testing.T) {
	src := "procedure m(x: u8) -> i32 { match x { 0 => 1, 1 => 2 } }"
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrMatchNonExhaustive) {
		t.Fatalf("expected Match-Non-Exhaustive, got %v", r.ErrorCodes())
	}
}

func TestMatchExhaustiveWithWildcard(t *testing.T) {
	src := "procedure m(x: u8) -> i32 { match x { 0 => 1, _ => 2 } }"
	r := testkit.CheckProgram(t, src)
	if r.HasCode(diag.ErrMatchNonExhaustive) {
		t.Fatalf("wildcard must make match exhaustive, got %v", r.ErrorCodes())
	}
}

func TestMatchUnreachableAfterWildcard(t *testing.T) {
	src := "procedure m(x: u8) -> i32 { match x { _ => 1, 0 => 2 } }"
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrMatchUnreachable) {
		t.Fatalf("expected unreachable arm, got %v", r.ErrorCodes())
	}
}

func TestEnumExhaustiveness(t *testing.T) {
	src := `enum Color { Red, Green, Blue, }
procedure f(c: Color) -> i32 {
    match c {
        Color::Red => 0,
        Color::Green => 1,
        Color::Blue => 2,
    }
}`
	r := testkit.CheckProgram(t, src)
	if r.Stream.HasError() {
		t.Fatalf("full variant coverage must be accepted, got %v", r.ErrorCodes())
	}
}

func TestCastTable(t *testing.T) {
	ok := testkit.CheckProgram(t, "procedure f(x: i32) -> f64 { x as f64 }")
	if ok.Stream.HasError() {
		t.Fatalf("numeric cast must be accepted: %v", ok.ErrorCodes())
	}
	bad := testkit.CheckProgram(t, "procedure f(s: string) -> i32 { s as i32 }")
	if !bad.HasCode(diag.ErrCastInvalid) {
		t.Fatalf("expected CastValid failure, got %v", bad.ErrorCodes())
	}
}

func TestIfBranchJoin(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure f(c: bool) -> i32 { if c { 1 } else { 2 } }")
	if r.Stream.HasError() {
		t.Fatalf("if join failed: %v", r.ErrorCodes())
	}
	r = testkit.CheckProgram(t, "procedure f(c: bool) { if c { 1 } }")
	if !r.HasCode(diag.ErrIfElseTypeMismatch) {
		t.Fatalf("no-else then-type must be unit, got %v", r.ErrorCodes())
	}
}

func TestAllocRequiresRegion(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure f() { let p = ^1; }")
	if !r.HasCode(diag.ErrAllocNoRegion) {
		t.Fatalf("expected E-PROV no-active-region, got %v", r.ErrorCodes())
	}
	r = testkit.CheckProgram(t, "procedure f() { region r { let p = ^1; } }")
	if r.HasCode(diag.ErrAllocNoRegion) {
		t.Fatalf("region-scoped alloc must be accepted, got %v", r.ErrorCodes())
	}
}

func TestContractRules(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure f(x: i32) -> i32 |= x > 0 => @result >= 0 { x }")
	if r.Stream.HasError() {
		t.Fatalf("well-formed contract rejected: %v", r.ErrorCodes())
	}
	r = testkit.CheckProgram(t, "procedure f(x: i32) -> i32 |= x { x }")
	if !r.HasCode(diag.ErrContractNotBool) {
		t.Fatalf("expected contract-not-bool, got %v", r.ErrorCodes())
	}
	r = testkit.CheckProgram(t, "procedure f(x: i32) -> i32 |= @result > 0 { x }")
	if !r.HasCode(diag.ErrContractNotPure) {
		t.Fatalf("@result in a precondition must be rejected, got %v", r.ErrorCodes())
	}
}

func TestPropagate(t *testing.T) {
	src := `enum IOError { Failed, }
procedure inner() -> i32 | IOError { 0 }
procedure outer() -> i32 | IOError { inner()? }`
	r := testkit.CheckProgram(t, src)
	if r.Stream.HasError() {
		t.Fatalf("'?' propagation rejected: %v", r.ErrorCodes())
	}
	bad := `enum IOError { Failed, }
procedure inner() -> i32 | IOError { 0 }
procedure outer() -> i32 { inner()? }`
	rb := testkit.CheckProgram(t, bad)
	if !rb.HasCode(diag.ErrPropagateTypeMismatch) {
		t.Fatalf("expected propagate mismatch, got %v", rb.ErrorCodes())
	}
}

func TestKeyHeldAcrossWait(t *testing.T) {
	src := `record D { f: i32, }
procedure g(data: unique D, s: Spawned<i32>) -> i32 {
    key (write data.f) {
        let x = wait s;
        return x;
    }
    0
}`
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrKeyHeldAcrossWait) {
		t.Fatalf("expected key-held-across-suspension, got %v", r.ErrorCodes())
	}
}

func TestReceiverPermission(t *testing.T) {
	src := `record Counter {
    n: i32,
    procedure bump(unique self) { self.n = self.n + 1; }
}
procedure f(c: const Counter) { c.bump(); }`
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrPermissionTooWeak) {
		t.Fatalf("const receiver calling unique method must fail, got %v", r.ErrorCodes())
	}
}

func TestModalStateFieldAccess(t *testing.T) {
	src := `modal File {
    path: string,
    state Open { handle: i64, }
    state Closed { }
}
procedure f(h: File@Open) -> i64 { h.handle }
procedure g(w: File) -> i64 { w.handle }`
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrModalWrongState) {
		t.Fatalf("state field through widened type must fail, got %v", r.ErrorCodes())
	}
}

func TestSyncInsideAsyncRejected(t *testing.T) {
	src := `procedure work() -> Future<i32, IOError> { yield release }
enum IOError { Failed, }`
	_ = src
	r := testkit.CheckProgram(t, `enum E { X, }
procedure inner() -> Future<i32, E> { 0 }
procedure outer() -> Future<i32, E> { sync inner() }`)
	if !r.HasCode(diag.ErrSyncOutsideSync) {
		t.Fatalf("'sync' inside async must be rejected, got %v", r.ErrorCodes())
	}
}

func TestRaceArity(t *testing.T) {
	src := `procedure f(s: Spawned<i32>) -> i32 { race { s -> |v| v } }`
	r := testkit.CheckProgram(t, src)
	if !r.HasCode(diag.ErrRaceArity) {
		t.Fatalf("single-arm race must be rejected, got %v", r.ErrorCodes())
	}
}

func TestYieldOutsideAsync(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure f() { yield 1; }")
	if !r.HasCode(diag.ErrYieldOutsideAsync) {
		t.Fatalf("yield outside async must be rejected, got %v", r.ErrorCodes())
	}
}

func TestTransmuteRules(t *testing.T) {
	r := testkit.CheckProgram(t, "procedure f(x: i32) -> f32 { unsafe { return transmute(x, f32); } transmute(x, f32) }")
	if !r.HasCode(diag.ErrUnsafeRequired) {
		t.Fatalf("transmute outside unsafe must be rejected, got %v", r.ErrorCodes())
	}
	r = testkit.CheckProgram(t, "procedure f(x: i32) -> f64 { unsafe { return transmute(x, f64); } 0.0 }")
	if !r.HasCode(diag.ErrTransmuteSizeAlign) {
		t.Fatalf("size-mismatched transmute must be rejected, got %v", r.ErrorCodes())
	}
}
