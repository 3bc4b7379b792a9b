package project

import (
	"fmt"
	"path/filepath"

	"cursive0/internal/diag"
)

// Assembly is one resolved compilation product.
type Assembly struct {
	Name    string
	Kind    AssemblyKind
	Root    string // absolute source root
	OutDir  string // absolute build dir
	EmitIR  string // "", "ll", or "bc"
	Modules []ModuleInfo
}

// Project is the fully resolved P0 output.
type Project struct {
	Root       string
	Assemblies []Assembly
}

// OutputPaths is the per-assembly computed output layout:
// build/obj/<module>.o, build/ir/<module>.{ll,bc}, build/bin/<assembly>.exe.
type OutputPaths struct {
	ObjDir  string
	IRDir   string
	BinDir  string
	ExePath string
}

// Load resolves the manifest at (or above) dir, discovers each assembly's
// modules, and verifies object-path uniqueness across the build.
func Load(dir string, selectAssembly string) (*Project, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	root, err := FindRoot(dir)
	if err != nil {
		return nil, append(diags, diag.NewExternal(diag.ErrManifestNotFound, noSpan(), err.Error()))
	}
	m, mdiags := LoadManifest(root)
	diags = append(diags, mdiags...)
	if m == nil {
		return nil, diags
	}

	p := &Project{Root: root}
	for _, decl := range m.Assemblies {
		if selectAssembly != "" && decl.Name != selectAssembly {
			continue
		}
		outDir := decl.OutDir
		if outDir == "" {
			outDir = "build"
		}
		a := Assembly{
			Name:   decl.Name,
			Kind:   AssemblyKind(decl.Kind),
			Root:   filepath.Join(root, decl.Root),
			OutDir: filepath.Join(root, outDir),
			EmitIR: decl.EmitIR,
		}
		mods, moddiags := DiscoverModules(decl.Name, a.Root)
		diags = append(diags, moddiags...)
		a.Modules = mods
		p.Assemblies = append(p.Assemblies, a)
	}
	if selectAssembly != "" && len(p.Assemblies) == 0 {
		diags = append(diags, diag.NewExternal(diag.ErrAssemblyInvalid, noSpan(),
			fmt.Sprintf("assembly %q is not declared in the manifest", selectAssembly)))
		return nil, diags
	}

	diags = append(diags, p.checkObjectCollisions()...)
	return p, diags
}

// Paths computes the output layout for one assembly.
func (a *Assembly) Paths() OutputPaths {
	return OutputPaths{
		ObjDir:  filepath.Join(a.OutDir, "obj"),
		IRDir:   filepath.Join(a.OutDir, "ir"),
		BinDir:  filepath.Join(a.OutDir, "bin"),
		ExePath: filepath.Join(a.OutDir, "bin", a.Name+".exe"),
	}
}

// ObjectPath returns the object file path for a module path key. The "::"
// separators flatten to '.' so the obj dir stays depth-one.
func (a *Assembly) ObjectPath(pathKey string) string {
	return filepath.Join(a.Paths().ObjDir, flattenKey(pathKey)+".o")
}

// IRPath returns the textual or bitcode IR path for a module.
func (a *Assembly) IRPath(pathKey, ext string) string {
	return filepath.Join(a.Paths().IRDir, flattenKey(pathKey)+"."+ext)
}

func flattenKey(pathKey string) string {
	out := make([]byte, 0, len(pathKey))
	for i := 0; i < len(pathKey); i++ {
		if pathKey[i] == ':' {
			if i+1 < len(pathKey) && pathKey[i+1] == ':' {
				out = append(out, '.')
				i++
			}
			continue
		}
		out = append(out, pathKey[i])
	}
	return string(out)
}

// checkObjectCollisions verifies all object paths within one build are
// unique; a collision is E-OUT-0001.
func (p *Project) checkObjectCollisions() []diag.Diagnostic {
	var diags []diag.Diagnostic
	seen := make(map[string]string)
	for ai := range p.Assemblies {
		a := &p.Assemblies[ai]
		for _, m := range a.Modules {
			obj := a.ObjectPath(m.PathKey)
			if prev, ok := seen[obj]; ok {
				diags = append(diags, diag.NewExternal(diag.ErrOutputCollision, noSpan(),
					fmt.Sprintf("%s (modules %s and %s)", obj, prev, m.PathKey)))
				continue
			}
			seen[obj] = m.PathKey
		}
	}
	return diags
}
