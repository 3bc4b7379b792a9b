// Package project implements the P0 external collaborator: manifest
// resolution, module discovery, and output-path computation. The core
// phases consume only the Project value it produces.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"cursive0/internal/diag"
)

// ManifestName is the fixed project file name searched for from the
// invocation directory upward.
const ManifestName = "cursive.toml"

// AssemblyKind selects whether a link step runs downstream.
type AssemblyKind string

const (
	KindExecutable AssemblyKind = "executable"
	KindLibrary    AssemblyKind = "library"
)

// Manifest mirrors the TOML project file.
type Manifest struct {
	Assemblies []AssemblyDecl `toml:"assembly"`
}

// AssemblyDecl is one [[assembly]] table entry.
type AssemblyDecl struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`
	Root   string `toml:"root"`
	OutDir string `toml:"out_dir"`
	EmitIR string `toml:"emit_ir"`
}

// FindRoot walks upward from dir looking for the manifest.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(abs, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("%s: no %s found in %s or any parent", diag.ErrManifestNotFound, ManifestName, dir)
		}
		abs = parent
	}
}

// LoadManifest decodes and validates the manifest at root.
func LoadManifest(root string) (*Manifest, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	var m Manifest
	path := filepath.Join(root, ManifestName)
	if _, err := toml.DecodeFile(path, &m); err != nil {
		diags = append(diags, diag.NewExternal(diag.ErrManifestMalformed, noSpan(), err.Error()))
		return nil, diags
	}
	if len(m.Assemblies) == 0 {
		diags = append(diags, diag.NewExternal(diag.ErrAssemblyInvalid, noSpan(), "manifest declares no [[assembly]] entries"))
		return nil, diags
	}
	seen := make(map[string]bool)
	for i := range m.Assemblies {
		a := &m.Assemblies[i]
		switch {
		case a.Name == "":
			diags = append(diags, diag.NewExternal(diag.ErrAssemblyInvalid, noSpan(), fmt.Sprintf("assembly %d: missing name", i)))
		case seen[a.Name]:
			diags = append(diags, diag.NewExternal(diag.ErrAssemblyInvalid, noSpan(), fmt.Sprintf("duplicate assembly name %q", a.Name)))
		}
		seen[a.Name] = true
		if a.Kind == "" {
			a.Kind = string(KindExecutable)
		}
		if a.Kind != string(KindExecutable) && a.Kind != string(KindLibrary) {
			diags = append(diags, diag.NewExternal(diag.ErrAssemblyInvalid, noSpan(),
				fmt.Sprintf("assembly %q: kind must be executable or library, got %q", a.Name, a.Kind)))
		}
		if a.Root == "" {
			a.Root = "src"
		}
	}
	return &m, diags
}
