// Package symbols builds Σ, the global symbol table: a flat map from
// interned "::"-joined path keys to declarations, plus per-module name
// maps, a visibility map, and the import graph. Σ is produced once at the
// end of P2 and is read-only thereafter.
package symbols

import (
	"cursive0/internal/ast"
	"cursive0/internal/source"
)

// DeclKind discriminates the Declaration variant a path key maps to.
type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclProcedure
	DeclRecord
	DeclEnum
	DeclVariant
	DeclModal
	DeclClass
	DeclTypeAlias
	DeclStatic
	DeclExternProc
	DeclModule
	DeclBuiltin
)

func (k DeclKind) String() string {
	switch k {
	case DeclProcedure:
		return "procedure"
	case DeclRecord:
		return "record"
	case DeclEnum:
		return "enum"
	case DeclVariant:
		return "variant"
	case DeclModal:
		return "modal"
	case DeclClass:
		return "class"
	case DeclTypeAlias:
		return "type alias"
	case DeclStatic:
		return "static"
	case DeclExternProc:
		return "extern procedure"
	case DeclModule:
		return "module"
	case DeclBuiltin:
		return "builtin"
	default:
		return "invalid"
	}
}

// Decl is one Σ entry.
type Decl struct {
	Kind    DeclKind
	PathKey string // full "module::…::name" key
	Module  string // owning module's path key
	Name    string
	Vis     ast.Visibility
	Span    source.Span

	// Exactly one of the following is set, matching Kind.
	Proc   *ast.ProcedureDecl
	Record *ast.RecordDecl
	Enum   *ast.EnumDecl
	// Variant entries carry the owning enum and the variant index.
	VariantOf    *ast.EnumDecl
	VariantIndex int
	Modal        *ast.ModalDecl
	Class        *ast.ClassDecl
	Alias        *ast.TypeAliasDecl
	Static       *ast.StaticDecl
	Extern       *ast.ExternBlock // the block an extern proc came from
}

// IsType reports whether the entry can appear in type position.
func (d *Decl) IsType() bool {
	switch d.Kind {
	case DeclRecord, DeclEnum, DeclModal, DeclClass, DeclTypeAlias, DeclBuiltin:
		return true
	}
	return false
}

// IsCapability reports whether the entry is a capability class.
func (d *Decl) IsCapability() bool {
	return d.Kind == DeclClass && d.Class != nil && d.Class.Capability
}

// VisibleFrom implements the three-level visibility rule: Public is
// visible cross-assembly, Internal within the same assembly, Private only
// within the declaring module. Assemblies are the first path-key segment.
func (d *Decl) VisibleFrom(fromModule string) bool {
	switch d.Vis {
	case ast.VisPublic:
		return true
	case ast.VisInternal:
		return assemblyOf(d.Module) == assemblyOf(fromModule)
	default:
		return d.Module == fromModule
	}
}

func assemblyOf(moduleKey string) string {
	for i := 0; i+1 < len(moduleKey); i++ {
		if moduleKey[i] == ':' && moduleKey[i+1] == ':' {
			return moduleKey[:i]
		}
	}
	return moduleKey
}
