package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/token"
)

// SourceExt is the Cursive0 source file extension.
const SourceExt = ".cursive"

func noSpan() source.Span { return source.NoSpan }

// ModuleInfo describes one discovered module before any file is parsed.
type ModuleInfo struct {
	// PathKey is the "::"-joined module path; the assembly root directory
	// itself is the assembly-named module.
	PathKey string
	Dir     string
	Files   []string // absolute source paths in deterministic order
}

// DiscoverModules walks the assembly root: every directory containing at
// least one .cursive file is a module. Ordering is case-folded
// lexicographic over path keys with ties broken bytewise; directories
// whose path keys collide after case folding are both preserved, with a
// warning plus an error (both emitted, neither suppressing discovery).
func DiscoverModules(assemblyName, rootDir string) ([]ModuleInfo, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	var modules []ModuleInfo

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		var files []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), SourceExt) {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		if len(files) == 0 {
			return nil
		}
		key, keyDiags := modulePathKey(assemblyName, rootDir, path)
		diags = append(diags, keyDiags...)
		sort.Slice(files, func(i, j int) bool {
			a, b := files[i], files[j]
			af, bf := strings.ToLower(a), strings.ToLower(b)
			if af != bf {
				return af < bf
			}
			return a < b
		})
		modules = append(modules, ModuleInfo{PathKey: key, Dir: path, Files: files})
		return nil
	})
	if err != nil {
		diags = append(diags, diag.NewExternal(diag.ErrModuleInvalidIdent, noSpan(), err.Error()))
		return nil, diags
	}

	sort.Slice(modules, func(i, j int) bool {
		a, b := modules[i].PathKey, modules[j].PathKey
		af, bf := strings.ToLower(a), strings.ToLower(b)
		if af != bf {
			return af < bf
		}
		return a < b
	})

	// Case-folded collisions: both directories are kept, and both a
	// warning and an error are emitted.
	byFold := make(map[string]string)
	for _, m := range modules {
		fold := strings.ToLower(m.PathKey)
		if prev, ok := byFold[fold]; ok && prev != m.PathKey {
			msg := fmt.Sprintf("%q and %q", prev, m.PathKey)
			diags = append(diags,
				diag.NewExternal(diag.WarnModuleCaseCollide, noSpan(), msg),
				diag.NewExternal(diag.ErrModuleCaseCollide, noSpan(), msg))
		} else {
			byFold[fold] = m.PathKey
		}
	}
	return modules, diags
}

// modulePathKey converts a module directory into its "::"-joined path key,
// validating that every component is an identifier and not a reserved
// keyword.
func modulePathKey(assemblyName, rootDir, dir string) (string, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	rel, err := filepath.Rel(rootDir, dir)
	if err != nil || rel == "." {
		return assemblyName, diags
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts {
		if !isIdent(part) {
			diags = append(diags, diag.NewExternal(diag.ErrModuleInvalidIdent, noSpan(), fmt.Sprintf("%q", part)))
		}
		if token.IsReservedKeyword(part) {
			diags = append(diags, diag.NewExternal(diag.ErrModuleInvalidIdent, noSpan(), fmt.Sprintf("%q is a reserved keyword", part)))
		}
	}
	return assemblyName + "::" + strings.Join(parts, "::"), diags
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return true
}
