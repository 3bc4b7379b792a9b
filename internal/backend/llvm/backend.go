// Package llvm is the P5 backend: it consumes IR modules plus the lower
// context and emits textual LLVM IR with the fixed Win64 target
// configuration. The interface is deliberately narrow — declare, define,
// GEP, call, alloca, branch — so the backend can be swapped for another
// target later.
package llvm

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"cursive0/internal/ir"
	"cursive0/internal/lower"
	"cursive0/internal/types"
)

// Target configuration required of every emitted object.
const (
	TargetTriple = "x86_64-pc-windows-msvc"
	DataLayout   = "e-m:w-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128"
)

// Backend emits one native object per source module.
type Backend struct {
	types *types.Interner
	ctx   *lower.Ctx
}

// New creates a backend over the lower context.
func New(in *types.Interner, ctx *lower.Ctx) *Backend {
	return &Backend{types: in, ctx: ctx}
}

// EmitTextual renders one module as LLVM assembly.
func (b *Backend) EmitTextual(m *ir.Module, includeExtra bool) string {
	e := newEmitter(b.types, b.ctx)
	return e.module(m, includeExtra)
}

// WriteIR writes the textual IR for a module to path.
func (b *Backend) WriteIR(m *ir.Module, path string, includeExtra bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.EmitTextual(m, includeExtra)), 0o644)
}

// AssembleBitcode converts textual IR to bitcode via llvm-as, for
// --emit-ir=bc.
func (b *Backend) AssembleBitcode(llPath, bcPath string) error {
	cmd := exec.Command("llvm-as", "-o", bcPath, llPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("llvm-as: %v: %s", err, out)
	}
	return nil
}

// EmitObject compiles a written .ll file to a native object through the
// system clang, pinned to the Win64 target. The toolchain invocation is
// external by design; a missing toolchain surfaces as an output-pipeline
// diagnostic, not a crash.
func (b *Backend) EmitObject(llPath, objPath string) error {
	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return err
	}
	cmd := exec.Command("clang", "--target="+TargetTriple, "-c", "-o", objPath, llPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("clang: %v: %s", err, out)
	}
	return nil
}

// Link links objects and the runtime archive into an executable.
func Link(objPaths []string, runtimeArchive, exePath string) error {
	if err := os.MkdirAll(filepath.Dir(exePath), 0o755); err != nil {
		return err
	}
	args := []string{"--target=" + TargetTriple, "-fuse-ld=lld", "-o", exePath}
	args = append(args, objPaths...)
	if runtimeArchive != "" {
		args = append(args, runtimeArchive)
	}
	cmd := exec.Command("clang", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("link: %v: %s", err, out)
	}
	return nil
}

// RuntimeWhitelist is the fixed set of runtime-archive symbols the
// compiler may reference. The driver reports every referenced symbol
// outside this set as E-OUT-0408 before emission. The archive's own
// symbol table is not inspected: a whitelisted symbol missing from it
// surfaces only as a failed link (E-OUT-0409).
var RuntimeWhitelist = map[string]bool{
	"cursive::runtime::panic":              true,
	"cursive::runtime::string::from":       true,
	"cursive::runtime::heap::alloc":        true,
	"cursive::runtime::heap::free":         true,
	"cursive::runtime::region::create":     true,
	"cursive::runtime::region::destroy":    true,
	"cursive::runtime::region::alloc":      true,
	"cursive::runtime::slice::index_addr":  true,
	"cursive::runtime::key::acquire":       true,
	"cursive::runtime::key::release":       true,
	"cursive::runtime::key::release_all":   true,
	"cursive::runtime::key::reacquire_all": true,
	"cursive::runtime::task::create":       true,
	"cursive::runtime::task::spawn":        true,
	"cursive::runtime::task::spawn_arm":    true,
	"cursive::runtime::task::wait":         true,
	"cursive::runtime::task::sync":         true,
	"cursive::runtime::task::race":         true,
	"cursive::runtime::task::all":          true,
	"cursive::runtime::task::join_all":     true,
	"cursive::runtime::task::dispatch":     true,
	"cursive::runtime::task::yield":        true,
	"cursive::runtime::task::yield_from":   true,
	"cursive::runtime::poison::check":      true,
	"cursive::runtime::poison::mark":       true,
}

// CheckRuntimeRefs verifies every referenced runtime symbol is on the
// whitelist, returning the offenders.
func CheckRuntimeRefs(refs map[string]bool) []string {
	var missing []string
	for name := range refs {
		if !RuntimeWhitelist[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
