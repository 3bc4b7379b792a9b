package testkit

import (
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/parser"
	"cursive0/internal/sema"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// CheckResult bundles everything a semantic test wants to poke at.
type CheckResult struct {
	FileSet  *source.FileSet
	Table    *symbols.Table
	Typed    *sema.Typed
	Interner *types.Interner
	Stream   *diag.Stream
}

// CheckProgram runs one in-memory module ("app") through P1-P3 and
// returns the combined result. Tests assert on the stream's codes.
func CheckProgram(t *testing.T, src string) *CheckResult {
	t.Helper()
	return CheckModules(t, map[string]string{"app": src})
}

// CheckModules runs several modules (path key -> source) through P1-P3.
func CheckModules(t *testing.T, mods map[string]string) *CheckResult {
	t.Helper()
	fs := source.NewFileSet()
	stream := diag.NewStream()

	keys := make([]string, 0, len(mods))
	for k := range mods {
		keys = append(keys, k)
	}
	// Deterministic module order, as the project loader guarantees.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}

	var modules []*ast.Module
	for _, key := range keys {
		id, _, err := fs.AddVirtual(key+".cursive", []byte(mods[key]))
		if err != nil {
			t.Fatalf("load %s: %v", key, err)
		}
		f, diags := parser.ParseFile(fs, id)
		stream = stream.EmitAll(diags)
		modules = append(modules, &ast.Module{PathKey: key, Files: []*ast.File{f}})
	}

	table, diags := symbols.Collect(modules)
	stream = stream.EmitAll(diags)
	stream = stream.EmitAll(symbols.BindImports(table))
	res, rdiags := symbols.Resolve(table)
	stream = stream.EmitAll(rdiags)

	in := types.NewInterner()
	typed, tdiags := sema.Check(table, res, in)
	stream = stream.EmitAll(tdiags)

	return &CheckResult{FileSet: fs, Table: table, Typed: typed, Interner: in, Stream: stream}
}

// HasCode reports whether the stream carries a diagnostic with the given
// code.
func (r *CheckResult) HasCode(code diag.Code) bool {
	for _, d := range r.Stream.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

// ErrorCodes lists the distinct error-severity codes in stream order.
func (r *CheckResult) ErrorCodes() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range r.Stream.Items() {
		if d.Severity() >= diag.SevError && !seen[d.Code.String()] {
			seen[d.Code.String()] = true
			out = append(out, d.Code.String())
		}
	}
	return out
}
