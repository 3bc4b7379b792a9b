// Package driver runs the phase-ordered pipeline: P0 project load, P1
// parse and subset check, P2 collect and resolve, P3 type check, P4 IR
// lower, P5 emit and link. Each phase consumes the previous phase's
// immutable output plus the diagnostic stream, and may only append
// diagnostics; a phase with an Error-severity diagnostic marks its
// successors skipped.
package driver

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cursive0/internal/ast"
	"cursive0/internal/backend/llvm"
	"cursive0/internal/diag"
	"cursive0/internal/ir"
	"cursive0/internal/lower"
	"cursive0/internal/parser"
	"cursive0/internal/project"
	"cursive0/internal/sema"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/trace"
	"cursive0/internal/types"
)

// PhaseID numbers the pipeline phases.
type PhaseID int

const (
	P0ProjectLoad PhaseID = iota
	P1Parse
	P2Resolve
	P3TypeCheck
	P4Lower
	P5Emit
)

func (p PhaseID) String() string {
	names := [...]string{"P0 project-load", "P1 parse", "P2 collect-resolve",
		"P3 type-check", "P4 ir-lower", "P5 emit-link"}
	if int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("P%d", p)
}

// Observer receives phase progress events (the TUI implements it; the
// CURSIVE0_DEBUG_PHASES log is written by the driver itself).
type Observer interface {
	PhaseStart(id PhaseID, detail string)
	PhaseEnd(id PhaseID, ok bool)
}

// Options configure one driver run.
type Options struct {
	Dir      string
	Assembly string
	EmitIR   string // "", "ll", "bc"
	// LinkRuntime is the runtime archive path; empty skips the link.
	LinkRuntime string
	// SkipObjects stops after writing textual IR (no toolchain needed).
	SkipObjects bool
	// CheckOnly stops after P3: diagnostics without lowering or output.
	CheckOnly   bool
	Observer    Observer
	DebugPhases bool
}

// Result is the run's outcome.
type Result struct {
	Project *project.Project
	FileSet *source.FileSet
	Stream  *diag.Stream
	// Success is the conformance predicate: every phase ran without an
	// Error-severity diagnostic.
	Success bool
	// ObjectPaths lists written objects; ExePath the linked executable.
	ObjectPaths []string
	ExePath     string
}

// manifestGroup dedupes concurrent project loads sharing one root.
var manifestGroup singleflight.Group

// Run executes the pipeline.
func Run(opts Options) *Result {
	d := &driver{opts: opts, stream: diag.NewStream(), fs: source.NewFileSet()}
	return d.run()
}

type driver struct {
	opts   Options
	stream *diag.Stream
	fs     *source.FileSet
}

func (d *driver) phaseStart(id PhaseID, detail string) {
	trace.Get().Emit(trace.Phase, id.String(), "start %s", detail)
	if d.opts.DebugPhases {
		fmt.Fprintf(os.Stderr, "[c0] %s: %s\n", id, detail)
	}
	if d.opts.Observer != nil {
		d.opts.Observer.PhaseStart(id, detail)
	}
}

func (d *driver) phaseEnd(id PhaseID, ok bool) {
	trace.Get().Emit(trace.Phase, id.String(), "end ok=%v", ok)
	if d.opts.DebugPhases {
		fmt.Fprintf(os.Stderr, "[c0] %s: done (ok=%v)\n", id, ok)
	}
	if d.opts.Observer != nil {
		d.opts.Observer.PhaseEnd(id, ok)
	}
}

func (d *driver) emitAll(diags []diag.Diagnostic) {
	d.stream = d.stream.EmitAll(diags)
}

func (d *driver) run() *Result {
	res := &Result{Stream: d.stream, FileSet: d.fs}

	// P0: manifest, module discovery, output paths.
	d.phaseStart(P0ProjectLoad, d.opts.Dir)
	key := d.opts.Dir + "\x00" + d.opts.Assembly
	v, err, _ := manifestGroup.Do(key, func() (any, error) {
		p, diags := project.Load(d.opts.Dir, d.opts.Assembly)
		return struct {
			p     *project.Project
			diags []diag.Diagnostic
		}{p, diags}, nil
	})
	_ = err
	loaded := v.(struct {
		p     *project.Project
		diags []diag.Diagnostic
	})
	d.emitAll(loaded.diags)
	res.Project = loaded.p
	ok := loaded.p != nil && !d.stream.HasError()
	d.phaseEnd(P0ProjectLoad, ok)
	if !ok {
		res.Stream = d.stream
		return res
	}

	cache := LoadCache(res.Project.Root)
	for ai := range res.Project.Assemblies {
		asm := &res.Project.Assemblies[ai]
		start := time.Now()
		okAsm := d.runAssembly(asm, res)
		perModule := time.Since(start)
		if n := len(asm.Modules); n > 0 {
			perModule /= time.Duration(n)
		}
		for _, m := range asm.Modules {
			cache.Record(asm, m, perModule)
		}
		if !okAsm {
			res.Stream = d.stream
			return res
		}
	}
	if err := cache.Save(res.Project.Root); err != nil {
		trace.Get().Emit(trace.Detail, "cache", "save failed: %v", err)
	}
	res.Success = !d.stream.HasError()
	res.Stream = d.stream
	return res
}

func (d *driver) runAssembly(asm *project.Assembly, res *Result) bool {
	// P1: per-module parse. File loading is serialized (the FileSet is
	// append-only but not concurrent); parsing shares no mutable state
	// across modules, so it fans out under errgroup.
	d.phaseStart(P1Parse, fmt.Sprintf("%s (%d modules)", asm.Name, len(asm.Modules)))
	type parseJob struct {
		module *ast.Module
		files  []source.FileID
	}
	jobs := make([]parseJob, len(asm.Modules))
	for i, m := range asm.Modules {
		jobs[i].module = &ast.Module{PathKey: m.PathKey}
		for _, path := range m.Files {
			id, warns, err := d.fs.Load(path)
			for _, w := range warns {
				d.stream = d.stream.Emit(diag.NewExternal(diag.WarnLeadingBOM, source.NoSpan, w.Msg))
			}
			if err != nil {
				d.stream = d.stream.Emit(diag.NewExternal(diag.ErrSourceIOFailure, source.NoSpan, err.Error()))
				continue
			}
			jobs[i].files = append(jobs[i].files, id)
		}
	}
	moduleDiags := make([][]diag.Diagnostic, len(jobs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range jobs {
		g.Go(func() error {
			var mine []diag.Diagnostic
			for _, fid := range jobs[i].files {
				f, diags := parser.ParseFile(d.fs, fid)
				mine = append(mine, diags...)
				jobs[i].module.Files = append(jobs[i].module.Files, f)
			}
			moduleDiags[i] = mine
			return nil
		})
	}
	g.Wait()
	modules := make([]*ast.Module, len(jobs))
	for i, j := range jobs {
		modules[i] = j.module
		d.emitAll(moduleDiags[i])
	}
	p1ok := !d.stream.HasError()
	d.phaseEnd(P1Parse, p1ok)
	if !p1ok {
		return false
	}

	// P2: Σ, imports, resolution.
	d.phaseStart(P2Resolve, asm.Name)
	table, diags := symbols.Collect(modules)
	d.emitAll(diags)
	d.emitAll(symbols.BindImports(table))
	resolution, rdiags := symbols.Resolve(table)
	d.emitAll(rdiags)
	p2ok := !d.stream.HasError()
	d.phaseEnd(P2Resolve, p2ok)
	if !p2ok {
		return false
	}

	// P3: the type checker and its satellite analyses.
	d.phaseStart(P3TypeCheck, asm.Name)
	interner := types.NewInterner()
	typed, tdiags := sema.Check(table, resolution, interner)
	d.emitAll(tdiags)
	p3ok := !d.stream.HasError()
	d.phaseEnd(P3TypeCheck, p3ok)
	if !p3ok {
		return false
	}
	if d.opts.CheckOnly {
		return true
	}

	// P4: IR lowering. Skipped when P3 failed (structural dependency).
	d.phaseStart(P4Lower, asm.Name)
	irMods, lctx, ldiags := lower.Lower(table, typed, interner)
	d.emitAll(ldiags)
	p4ok := !d.stream.HasError()
	d.phaseEnd(P4Lower, p4ok)
	if !p4ok {
		return false
	}

	// P5: emit objects and link.
	d.phaseStart(P5Emit, asm.Name)
	ok := d.emitAndLink(asm, irMods, lctx, interner, res)
	d.phaseEnd(P5Emit, ok)
	return ok
}

func (d *driver) emitAndLink(asm *project.Assembly, irMods []*ir.Module, lctx *lower.Ctx, in *types.Interner, res *Result) bool {
	if bad := llvm.CheckRuntimeRefs(lctx.Runtime); len(bad) > 0 {
		for _, sym := range bad {
			d.stream = d.stream.Emit(diag.New(diag.ErrRuntimeIncompatible, source.NoSpan, fmt.Sprintf("%q", sym)))
		}
		return false
	}
	be := llvm.New(in, lctx)
	for i, m := range irMods {
		includeExtra := i == 0 // synthesized procs and v-tables live in the first object
		llPath := asm.IRPath(m.PathKey, "ll")
		if err := be.WriteIR(m, llPath, includeExtra); err != nil {
			d.stream = d.stream.Emit(diag.NewExternal(diag.ErrLinkFailed, source.NoSpan, err.Error()))
			return false
		}
		if d.opts.EmitIR == "bc" {
			if err := be.AssembleBitcode(llPath, asm.IRPath(m.PathKey, "bc")); err != nil {
				d.stream = d.stream.Emit(diag.NewExternal(diag.ErrLinkFailed, source.NoSpan, err.Error()))
				return false
			}
		}
		if d.opts.SkipObjects {
			continue
		}
		objPath := asm.ObjectPath(m.PathKey)
		if err := be.EmitObject(llPath, objPath); err != nil {
			d.stream = d.stream.Emit(diag.NewExternal(diag.ErrLinkFailed, source.NoSpan, err.Error()))
			return false
		}
		res.ObjectPaths = append(res.ObjectPaths, objPath)
	}
	if d.opts.SkipObjects || asm.Kind != project.KindExecutable {
		return true
	}
	exe := asm.Paths().ExePath
	if err := llvm.Link(res.ObjectPaths, d.opts.LinkRuntime, exe); err != nil {
		d.stream = d.stream.Emit(diag.NewExternal(diag.ErrLinkFailed, source.NoSpan, err.Error()))
		return false
	}
	res.ExePath = exe
	return true
}
