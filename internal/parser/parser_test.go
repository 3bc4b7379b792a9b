package parser

import (
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
)

func parseSrc(t *testing.T, src string) (*ast.File, []diag.Diagnostic) {
	t.Helper()
	fs := source.NewFileSet()
	id, _, err := fs.AddVirtual("t.cursive", []byte(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ParseFile(fs, id)
}

func TestParseProcedure(t *testing.T) {
	f, diags := parseSrc(t, "procedure main() -> i32 { 0 }")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(f.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(f.Items))
	}
	p, ok := f.Items[0].(*ast.ProcedureDecl)
	if !ok {
		t.Fatalf("expected ProcedureDecl, got %T", f.Items[0])
	}
	if p.Name.Name != "main" || p.Body == nil || p.Body.Tail == nil {
		t.Fatalf("malformed procedure: %+v", p)
	}
	if _, ok := p.Ret.(*ast.PrimTypeExpr); !ok {
		t.Fatalf("expected prim return type, got %T", p.Ret)
	}
}

func TestParseRecordWithClassesAndMethods(t *testing.T) {
	src := `public record Point: Bitcopy {
    x: i32,
    y: i32,
    procedure norm(const self) -> i32 { 0 }
}`
	f, diags := parseSrc(t, src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	r := f.Items[0].(*ast.RecordDecl)
	if r.Vis != ast.VisPublic || len(r.Fields) != 2 || len(r.Methods) != 1 || len(r.Classes) != 1 {
		t.Fatalf("malformed record: %+v", r)
	}
	m := r.Methods[0]
	if m.Receiver == nil || m.Receiver.Perm != ast.RecvConst {
		t.Fatalf("expected const self receiver, got %+v", m.Receiver)
	}
}

func TestParseModal(t *testing.T) {
	src := `modal File {
    path: string,
    state Open {
        handle: i64,
        procedure close(move self) -> File@Closed { File@Closed { } }
    }
    state Closed { }
}`
	f, diags := parseSrc(t, src)
	for _, d := range diags {
		if d.Severity() >= diag.SevError {
			t.Fatalf("unexpected error: %+v", d)
		}
	}
	m := f.Items[0].(*ast.ModalDecl)
	if len(m.Common) != 1 || len(m.States) != 2 {
		t.Fatalf("malformed modal: common=%d states=%d", len(m.Common), len(m.States))
	}
	if !m.States[0].Methods[0].Receiver.Transition {
		t.Fatalf("expected transition receiver")
	}
}

func TestParseContract(t *testing.T) {
	f, diags := parseSrc(t, "procedure abs(x: i32) -> i32 |= x != -2147483648 => @result >= 0 { x }")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	p := f.Items[0].(*ast.ProcedureDecl)
	if p.Contract == nil || p.Contract.Pre == nil || p.Contract.Post == nil {
		t.Fatalf("contract not parsed: %+v", p.Contract)
	}
}

func TestParseKeyBlockAndBoundary(t *testing.T) {
	f, diags := parseSrc(t, "procedure f() { key (read a.#b, write c[0]) { } }")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	p := f.Items[0].(*ast.ProcedureDecl)
	kb := p.Body.Stmts[0].(*ast.KeyBlockStmt)
	if len(kb.Keys) != 2 || kb.Keys[0].Write || !kb.Keys[1].Write {
		t.Fatalf("malformed key block: %+v", kb.Keys)
	}
	fe := kb.Keys[0].Path.(*ast.FieldExpr)
	if !fe.Boundary {
		t.Fatalf("expected boundary-marked field")
	}
}

func TestParseAsyncSurface(t *testing.T) {
	src := `procedure f(s: Spawned<i32>) -> i32 {
    let x = wait s;
    let r = race { s -> |v| v, s -> |w| w };
    let a = all { s, s };
    x
}`
	f, diags := parseSrc(t, src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	p := f.Items[0].(*ast.ProcedureDecl)
	if len(p.Body.Stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(p.Body.Stmts))
	}
	r := p.Body.Stmts[1].(*ast.LetStmt).Value.(*ast.RaceExpr)
	if len(r.Arms) != 2 || r.Arms[0].Binding.Name != "v" {
		t.Fatalf("malformed race: %+v", r)
	}
}

func TestParseAllocForms(t *testing.T) {
	f, diags := parseSrc(t, "procedure f() { region r { let a = ^1; let b = ^r<-2; } }")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	p := f.Items[0].(*ast.ProcedureDecl)
	reg := p.Body.Stmts[0].(*ast.RegionStmt)
	a := reg.Body.Stmts[0].(*ast.LetStmt).Value.(*ast.AllocExpr)
	b := reg.Body.Stmts[1].(*ast.LetStmt).Value.(*ast.AllocExpr)
	if a.Region.Name != "" || b.Region.Name != "r" {
		t.Fatalf("alloc regions: %q %q", a.Region.Name, b.Region.Name)
	}
}

func TestGenericProcedureRejected(t *testing.T) {
	_, diags := parseSrc(t, "procedure id<T>(x: T) -> T { x }")
	found := false
	for _, d := range diags {
		if d.Code == diag.ErrGenericProcedure {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E-CNF generic-procedure rejection, got %v", diags)
	}
}

func TestRecoveryAtItemGranularity(t *testing.T) {
	f, diags := parseSrc(t, "garbage !!!\nprocedure ok() { }")
	if len(diags) == 0 {
		t.Fatalf("expected diagnostics for garbage prefix")
	}
	var names []string
	for _, it := range f.Items {
		if p, ok := it.(*ast.ProcedureDecl); ok {
			names = append(names, p.Name.Name)
		}
	}
	if len(names) != 1 || names[0] != "ok" {
		t.Fatalf("recovery failed, procedures: %v", names)
	}
}
